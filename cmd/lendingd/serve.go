package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DomeLiquid/lending/api"
	"github.com/DomeLiquid/lending/config"
	"github.com/DomeLiquid/lending/core"
	"github.com/DomeLiquid/lending/lending"
	"github.com/DomeLiquid/lending/logging"
	"github.com/DomeLiquid/lending/metrics"
	"github.com/DomeLiquid/lending/oracle"
	"github.com/DomeLiquid/lending/store/badgerstore"
	"github.com/DomeLiquid/lending/store/gormstore"
	"github.com/DomeLiquid/lending/store/memory"
	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func serveCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serves the lending HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func openStore(cfg config.StorageConfig) (core.LedgerStore, func() error, error) {
	switch cfg.Driver {
	case config.StorageSqlite:
		s, err := gormstore.Open(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StorageBadger:
		s, err := badgerstore.Open(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return memory.New(), func() error { return nil }, nil
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(cfg.Logging.Level, os.Stdout)
	log := &logger
	clk := clock.New()

	store, closeStore, err := openStore(cfg.Storage)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error().Err(err).Msg("close store")
		}
	}()

	var (
		priceOracle core.PriceOracle
		poller      *oracle.Mixin
	)
	switch cfg.OracleSetup() {
	case core.MixinOracle:
		poller = oracle.NewMixinFromAccessToken(clk, log, cfg.Oracle.AccessToken, cfg.Oracle.Assets, cfg.Oracle.MaxAge)
		priceOracle = poller
	default:
		static := oracle.NewStatic(clk, cfg.Oracle.MaxAge)
		prices, err := cfg.StaticPrices()
		if err != nil {
			return err
		}
		for asset, price := range prices {
			if err := static.SetPrice(asset, price); err != nil {
				return err
			}
		}
		priceOracle = static
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	controller := lending.NewController(store, priceOracle,
		lending.WithClock(clk),
		lending.WithLogger(log),
		lending.WithObserver(collector),
	)
	if err := bootstrapBanks(ctx, controller, cfg.Banks, log); err != nil {
		return err
	}
	banks, err := controller.ListBanks(ctx)
	if err != nil {
		return err
	}
	for _, bank := range banks {
		collector.ObserveBank(bank)
	}

	handler := api.New(controller, log,
		api.WithMetrics(cfg.Server.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	).Handler()
	server := &http.Server{
		Addr:              cfg.Server.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("address", server.Addr).Str("storage", cfg.Storage.Driver).Str("oracle", cfg.OracleSetup().String()).Msg("serving")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if poller != nil {
		g.Go(func() error {
			if err := poller.Run(ctx, cfg.Oracle.RefreshInterval); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	err = g.Wait()
	log.Info().Err(err).Msg("stopped")
	return err
}

// bootstrapBanks creates configured banks that do not exist yet. Existing
// banks keep their stored configuration.
func bootstrapBanks(ctx context.Context, controller *lending.Controller, banks []config.BankConfig, log core.Log) error {
	for _, b := range banks {
		cfg, err := b.ToBankConfig()
		if err != nil {
			return errors.Wrapf(err, "bank %s", b.Asset)
		}
		if _, err := controller.InitializeBank(ctx, b.Asset, cfg); err != nil {
			if errors.Is(err, core.ErrAlreadyExists) {
				log.Debug().Str("asset", b.Asset).Msg("bank exists")
				continue
			}
			return errors.Wrapf(err, "initialize bank %s", b.Asset)
		}
	}
	return nil
}

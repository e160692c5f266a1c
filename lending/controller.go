package lending

import (
	"context"

	"github.com/DomeLiquid/lending/core"
	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Observer receives the outcome of every controller operation. bank is the
// committed bank state, nil when the operation failed.
type Observer interface {
	ObserveOperation(action string, err error, bank *core.Bank)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, error, *core.Bank) {}

type Option func(c *Controller)

func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		c.clk = clk
	}
}

func WithLogger(log core.Log) Option {
	return func(c *Controller) {
		c.log = log
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Controller) {
		c.observer = observer
	}
}

// Controller runs deposit, withdraw, borrow and repay against one
// (bank, position) pair at a time. Every operation accrues interest first,
// works on copies, and commits bank, position and journal entry together, so
// a failed call leaves no trace.
type Controller struct {
	store    core.LedgerStore
	oracle   core.PriceOracle
	clk      clock.Clock
	log      core.Log
	observer Observer

	registry *Registry
	ledger   *Ledger

	// always taken position first, then bank
	positionLocks *keyedMutex
	bankLocks     *keyedMutex
}

func NewController(store core.LedgerStore, oracle core.PriceOracle, opts ...Option) *Controller {
	c := &Controller{
		store:         store,
		oracle:        oracle,
		clk:           clock.New(),
		log:           core.NopLog(),
		observer:      nopObserver{},
		positionLocks: newKeyedMutex(),
		bankLocks:     newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.registry = NewRegistry(store, c.clk, c.log)
	c.ledger = NewLedger(store, c.clk, c.log)
	return c
}

// Receipt is the committed result of a balance operation.
type Receipt struct {
	Operate  *core.Operate  `json:"operate"`
	Bank     *core.Bank     `json:"bank"`
	Position *core.Position `json:"position"`
}

type Health struct {
	Owner            string          `json:"owner"`
	CollateralValue  decimal.Decimal `json:"collateralValue"`
	BorrowCapacity   decimal.Decimal `json:"borrowCapacity"`
	LiquidationValue decimal.Decimal `json:"liquidationValue"`
	BorrowedValue    decimal.Decimal `json:"borrowedValue"`
	// borrow capacity left, negative once debt exceeds it
	FreeCollateral   decimal.Decimal `json:"freeCollateral"`
	HealthFactor     decimal.Decimal `json:"healthFactor"`
	Liquidatable     bool            `json:"liquidatable"`
}

func (c *Controller) InitializeBank(ctx context.Context, asset string, cfg core.BankConfig) (*core.Bank, error) {
	unlock := c.bankLocks.Lock(asset)
	defer unlock()

	bank, err := c.registry.InitializeBank(ctx, asset, cfg)
	c.observer.ObserveOperation("initialize_bank", err, bank)
	return bank, err
}

func (c *Controller) GetBank(ctx context.Context, asset string) (*core.Bank, error) {
	return c.registry.GetBank(ctx, asset)
}

func (c *Controller) ListBanks(ctx context.Context) ([]*core.Bank, error) {
	return c.registry.ListBanks(ctx)
}

func (c *Controller) InitializeUser(ctx context.Context, owner string) (*core.Position, error) {
	unlock := c.positionLocks.Lock(owner)
	defer unlock()

	position, err := c.ledger.InitializeUser(ctx, owner)
	c.observer.ObserveOperation("initialize_user", err, nil)
	return position, err
}

func (c *Controller) GetPosition(ctx context.Context, owner string) (*core.Position, error) {
	return c.ledger.GetPosition(ctx, owner)
}

func (c *Controller) ListOperations(ctx context.Context, owner string, limit int) ([]*core.Operate, error) {
	if _, err := c.ledger.GetPosition(ctx, owner); err != nil {
		return nil, err
	}
	return c.store.ListOperates(ctx, owner, limit)
}

func (c *Controller) Deposit(ctx context.Context, owner, asset string, amount decimal.Decimal) (*Receipt, error) {
	return c.execute(ctx, owner, asset, core.ActionDeposit, amount, func(ba *core.BankAccountWrapper) (decimal.Decimal, decimal.Decimal, error) {
		shares, err := ba.Deposit(c.log, amount)
		return amount, shares, err
	})
}

func (c *Controller) Withdraw(ctx context.Context, owner, asset string, amount decimal.Decimal) (*Receipt, error) {
	return c.execute(ctx, owner, asset, core.ActionWithdraw, amount, func(ba *core.BankAccountWrapper) (decimal.Decimal, decimal.Decimal, error) {
		shares, err := ba.Withdraw(c.log, amount)
		return amount, shares, err
	})
}

func (c *Controller) Borrow(ctx context.Context, owner, asset string, amount decimal.Decimal) (*Receipt, error) {
	return c.execute(ctx, owner, asset, core.ActionBorrow, amount, func(ba *core.BankAccountWrapper) (decimal.Decimal, decimal.Decimal, error) {
		shares, err := ba.Borrow(c.log, amount)
		return amount, shares, err
	})
}

func (c *Controller) Repay(ctx context.Context, owner, asset string, amount decimal.Decimal) (*Receipt, error) {
	return c.execute(ctx, owner, asset, core.ActionRepay, amount, func(ba *core.BankAccountWrapper) (decimal.Decimal, decimal.Decimal, error) {
		shares, err := ba.Repay(c.log, amount)
		return amount, shares, err
	})
}

func (c *Controller) WithdrawAll(ctx context.Context, owner, asset string) (*Receipt, error) {
	return c.execute(ctx, owner, asset, core.ActionWithdrawAll, core.ONE, func(ba *core.BankAccountWrapper) (decimal.Decimal, decimal.Decimal, error) {
		return ba.WithdrawAll(c.log)
	})
}

func (c *Controller) RepayAll(ctx context.Context, owner, asset string) (*Receipt, error) {
	return c.execute(ctx, owner, asset, core.ActionRepayAll, core.ONE, func(ba *core.BankAccountWrapper) (decimal.Decimal, decimal.Decimal, error) {
		return ba.RepayAll(c.log)
	})
}

type applyFunc func(ba *core.BankAccountWrapper) (amount decimal.Decimal, shares decimal.Decimal, err error)

func (c *Controller) execute(ctx context.Context, owner, asset string, action core.ActionType, amount decimal.Decimal, apply applyFunc) (receipt *Receipt, err error) {
	var committed *core.Bank
	defer func() {
		c.observer.ObserveOperation(action.String(), err, committed)
		if err != nil {
			c.log.Debug().Err(err).Str("owner", owner).Str("asset", asset).Str("action", action.String()).Msg("operation rejected")
		}
	}()

	if !amount.IsPositive() {
		return nil, errors.Wrapf(core.ErrInvalidAmount, "amount %s must be positive", amount)
	}

	unlockPosition := c.positionLocks.Lock(owner)
	defer unlockPosition()
	unlockBank := c.bankLocks.Lock(asset)
	defer unlockBank()

	position, err := c.ledger.GetPosition(ctx, owner)
	if err != nil {
		return nil, err
	}
	bank, err := c.registry.GetBank(ctx, asset)
	if err != nil {
		return nil, err
	}

	ba := core.NewBankAccountWrapper(position, bank, core.WithClock(c.clk))
	if err := ba.Accrue(c.log); err != nil {
		return nil, err
	}

	moved, shares, err := apply(ba)
	if err != nil {
		return nil, err
	}

	if riskIncreasing(action) && position.HasBorrows() {
		if err := c.checkCollateral(ctx, ba); err != nil {
			return nil, err
		}
	}

	op := core.NewOperate(c.clk, ba, action, moved, shares)
	if err := c.store.Commit(ctx, bank, position, op); err != nil {
		return nil, errors.Wrap(err, "commit")
	}
	committed = bank

	c.log.Info().
		Str("owner", owner).
		Str("asset", asset).
		Str("action", action.String()).
		Str("amount", moved.String()).
		Str("shares", shares.String()).
		Msg("operation committed")

	return &Receipt{Operate: op, Bank: bank, Position: position}, nil
}

func riskIncreasing(action core.ActionType) bool {
	switch action {
	case core.ActionBorrow, core.ActionWithdraw, core.ActionWithdrawAll:
		return true
	default:
		return false
	}
}

// checkCollateral values the position with the operated bank as mutated and
// every other bank projected to now.
func (c *Controller) checkCollateral(ctx context.Context, ba *core.BankAccountWrapper) error {
	banks, err := c.loadBanks(ctx, ba.Position, ba.Bank)
	if err != nil {
		return err
	}
	engine, err := core.NewRiskEngine(ctx, ba.Position, banks, c.oracle)
	if err != nil {
		return err
	}
	return engine.CheckAccountHealth(core.Initial)
}

func (c *Controller) loadBanks(ctx context.Context, position *core.Position, current *core.Bank) (map[string]*core.Bank, error) {
	now := c.clk.Now().Unix()
	banks := map[string]*core.Bank{}
	if current != nil {
		banks[current.Asset] = current
	}
	for _, asset := range position.Assets() {
		if _, ok := banks[asset]; ok {
			continue
		}
		if position.DepositShares(asset).IsZero() && position.BorrowShares(asset).IsZero() {
			continue
		}
		bank, err := c.registry.GetBank(ctx, asset)
		if err != nil {
			return nil, err
		}
		projected, err := bank.ProjectedTo(now)
		if err != nil {
			return nil, err
		}
		banks[asset] = projected
	}
	return banks, nil
}

// AccountHealth values the owner's position at current prices without
// changing any state.
func (c *Controller) AccountHealth(ctx context.Context, owner string) (*Health, error) {
	unlock := c.positionLocks.Lock(owner)
	defer unlock()

	position, err := c.ledger.GetPosition(ctx, owner)
	if err != nil {
		return nil, err
	}
	banks, err := c.loadBanks(ctx, position, nil)
	if err != nil {
		return nil, err
	}
	engine, err := core.NewRiskEngine(ctx, position, banks, c.oracle)
	if err != nil {
		return nil, err
	}

	health := &Health{Owner: owner}
	if health.CollateralValue, health.BorrowedValue, err = engine.GetAccountHealthComponents(core.Equity); err != nil {
		return nil, err
	}
	if health.BorrowCapacity, _, err = engine.GetAccountHealthComponents(core.Initial); err != nil {
		return nil, err
	}
	if health.FreeCollateral, err = engine.GetAccountHealth(core.Initial); err != nil {
		return nil, err
	}
	if health.LiquidationValue, _, err = engine.GetAccountHealthComponents(core.Maintenance); err != nil {
		return nil, err
	}
	if health.HealthFactor, err = engine.HealthFactor(); err != nil {
		return nil, err
	}
	if health.Liquidatable, err = engine.IsLiquidatable(); err != nil {
		return nil, err
	}
	return health, nil
}

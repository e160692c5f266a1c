// Package metrics exports lending activity to prometheus.
package metrics

import (
	"github.com/DomeLiquid/lending/core"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lending"

type Collector struct {
	operations   *prometheus.CounterVec
	deposits     *prometheus.GaugeVec
	borrows      *prometheus.GaugeVec
	reserves     *prometheus.GaugeVec
	utilization  *prometheus.GaugeVec
	depositRates *prometheus.GaugeVec
	borrowRates  *prometheus.GaugeVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Count of lending operations by action and result.",
		}, []string{"action", "result"}),
		deposits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bank_deposits",
			Help:      "Total deposits held by a bank.",
		}, []string{"asset"}),
		borrows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bank_borrows",
			Help:      "Total outstanding borrows of a bank.",
		}, []string{"asset"}),
		reserves: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bank_reserves",
			Help:      "Protocol reserves accumulated by a bank.",
		}, []string{"asset"}),
		utilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bank_utilization_ratio",
			Help:      "Borrows over deposits of a bank.",
		}, []string{"asset"}),
		depositRates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bank_deposit_rate",
			Help:      "Annual deposit rate of a bank.",
		}, []string{"asset"}),
		borrowRates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bank_borrow_rate",
			Help:      "Annual borrow rate of a bank.",
		}, []string{"asset"}),
	}
	reg.MustRegister(
		c.operations,
		c.deposits,
		c.borrows,
		c.reserves,
		c.utilization,
		c.depositRates,
		c.borrowRates,
	)
	return c
}

// ObserveOperation counts the operation and refreshes the bank gauges when
// the operation committed.
func (c *Collector) ObserveOperation(action string, err error, bank *core.Bank) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = core.ErrorKind(err)
	}
	c.operations.WithLabelValues(action, result).Inc()

	if err == nil && bank != nil {
		c.ObserveBank(bank)
	}
}

func (c *Collector) ObserveBank(bank *core.Bank) {
	if c == nil || bank == nil {
		return
	}
	deposits, _ := bank.GetTotalDeposits().Float64()
	borrows, _ := bank.GetTotalBorrows().Float64()
	reserves, _ := bank.GetReserves().Float64()
	utilization, _ := bank.ComputeUtilizationRate().Float64()
	depositRate, _ := bank.DepositRate.Float64()
	borrowRate, _ := bank.BorrowRate.Float64()

	c.deposits.WithLabelValues(bank.Asset).Set(deposits)
	c.borrows.WithLabelValues(bank.Asset).Set(borrows)
	c.reserves.WithLabelValues(bank.Asset).Set(reserves)
	c.utilization.WithLabelValues(bank.Asset).Set(utilization)
	c.depositRates.WithLabelValues(bank.Asset).Set(depositRate)
	c.borrowRates.WithLabelValues(bank.Asset).Set(borrowRate)
}

package core

type RequirementType uint8

const (
	// borrow and withdraw checks, weighted by MaxLTV
	Initial RequirementType = iota
	// liquidation checks, weighted by LiquidationThreshold
	Maintenance
	// unweighted
	Equity
)

func (rt RequirementType) String() string {
	switch rt {
	case Initial:
		return "Initial"
	case Maintenance:
		return "Maintenance"
	case Equity:
		return "Equity"
	default:
		return "Unknown"
	}
}

package model

// LiquidityPosition is an owner's proportional claim on a pool.
type LiquidityPosition struct {
	PoolID               string  `json:"poolId"`
	OwnerID              string  `json:"ownerId"`
	ShareOfPool          float64 `json:"shareOfPool"`
	DepositedA           float64 `json:"depositedA"`
	DepositedB           float64 `json:"depositedB"`
	FeesEarnedCumulative float64 `json:"feesEarnedCumulative"`
}

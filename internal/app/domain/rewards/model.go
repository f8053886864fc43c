package rewards

import "time"

// Profile tracks reward accrual for one participant. PendingRewards grows
// only through activity registration and is zeroed only by a claim, which
// moves the full amount into ClaimedRewards.
type Profile struct {
	Address           string
	PendingRewards    uint64
	ClaimedRewards    uint64
	CarbonReductionKg int64
	UpdatedAt         time.Time
}

// State holds module-wide accrual settings and running totals.
type State struct {
	RewardRate       uint64 // token units minted per verified kg of reduction
	TotalDistributed uint64
	TotalCarbonKg    int64
	UpdatedAt        time.Time
}

package station

import "time"

// SettlementStatus values move strictly forward: pending -> approved -> completed.
type SettlementStatus string

const (
	StatusPending   SettlementStatus = "pending"
	StatusApproved  SettlementStatus = "approved"
	StatusCompleted SettlementStatus = "completed"
)

// Station is a revenue-collecting service point operated on behalf of the
// platform. Totals are cumulative over the station's lifetime; Pending is the
// net amount owed to the operator that has not yet been settled.
type Station struct {
	ID        string
	Operator  string
	Active    bool
	Volume    uint64
	FeesPaid  uint64
	Pending   uint64
	Settled   uint64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Settlement snapshots a station's pending amount at request time and tracks
// it through approval to payout.
type Settlement struct {
	ID          string
	StationID   string
	Amount      uint64
	Status      SettlementStatus
	RequestedAt time.Time
	ApprovedAt  time.Time
	CompletedAt time.Time
}

// FeeBreakdown is returned for reconciliation after recording a gross
// transaction. Fee is floored, never rounded up, so Gross == Fee + Net.
type FeeBreakdown struct {
	Gross uint64
	Fee   uint64
	Net   uint64
}

// State holds module-wide settlement settings.
type State struct {
	FeeRateBps uint64
	UpdatedAt  time.Time
}

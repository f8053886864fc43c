package escrow

import "time"

// Status values for an escrow. The happy path is created -> funded ->
// shipped -> completed; disputed and cancelled are reachable from any
// non-terminal state. completed and cancelled are terminal.
type Status string

const (
	StatusCreated   Status = "created"
	StatusFunded    Status = "funded"
	StatusShipped   Status = "shipped"
	StatusCompleted Status = "completed"
	StatusDisputed  Status = "disputed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Resolution selects where disputed funds go.
type Resolution string

const (
	ResolutionRefundBuyer Resolution = "refund_buyer"
	ResolutionPaySeller   Resolution = "pay_seller"
	ResolutionSplit       Resolution = "split"
)

// Escrow holds a buyer's deposit against a seller's delivery obligation.
// DepositAmount is zero until funding and equals Amount afterwards; funds
// move buyer -> vault -> (seller|buyer) exactly once over the lifetime.
type Escrow struct {
	ID              string
	Buyer           string
	Seller          string
	Amount          uint64
	DepositAmount   uint64
	Status          Status
	BuyerConfirmed  bool
	SellerConfirmed bool
	Deadline        time.Time
	DisputeReason   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

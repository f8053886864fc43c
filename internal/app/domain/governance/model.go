package governance

import "time"

// ProposalType identifies the privileged action a proposal gates.
type ProposalType string

const (
	TypeMint    ProposalType = "mint"
	TypePause   ProposalType = "pause"
	TypeUnpause ProposalType = "unpause"
	TypeText    ProposalType = "text"
)

// Payload carries the parameters of the gated action. Only mint proposals
// use Recipient and Amount.
type Payload struct {
	Recipient string
	Amount    uint64
	Memo      string
}

// Proposal is a committee motion. The creator's own vote is counted at
// creation, so VoteCount starts at 1. Voters is an audit trail only: the
// quorum check counts raw approving votes and deliberately does not
// deduplicate voters (see the vote handling in the governance service).
type Proposal struct {
	ID        string
	Creator   string
	Type      ProposalType
	Payload   Payload
	VoteCount int
	Voters    []string
	Executed  bool
	CreatedAt time.Time
	Expiry    time.Time
}

// Expired reports whether the proposal can no longer be voted on or executed.
func (p Proposal) Expired(now time.Time) bool {
	return !now.Before(p.Expiry)
}

// State holds module-wide governance settings.
type State struct {
	RequiredApprovals int
	UpdatedAt         time.Time
}

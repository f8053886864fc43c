package ledger

import "time"

// Account holds the token balance for a single participant address. Balances
// are denominated in the smallest token unit and can never go negative.
type Account struct {
	Address   string
	Balance   uint64
	Frozen    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// State is the singleton ledger record: the admin identity, the committee
// module name the governance service authenticates as, the circulating supply
// and the global pause flag.
type State struct {
	Admin       string
	Committee   string
	TotalSupply uint64
	Paused      bool
	UpdatedAt   time.Time
}

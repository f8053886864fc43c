package storage

import (
	"context"
	"errors"

	"github.com/agrichain-io/token_layer/internal/app/domain/escrow"
	"github.com/agrichain-io/token_layer/internal/app/domain/governance"
	"github.com/agrichain-io/token_layer/internal/app/domain/ledger"
	"github.com/agrichain-io/token_layer/internal/app/domain/rewards"
	"github.com/agrichain-io/token_layer/internal/app/domain/station"
)

// ErrNotFound is wrapped by store implementations when a record is missing.
var ErrNotFound = errors.New("record not found")

// LedgerStore persists accounts and the singleton ledger state. SaveBalances
// applies the state and all listed accounts as a single atomic write so a
// multi-account movement is never observable half-applied.
type LedgerStore interface {
	GetLedgerState(ctx context.Context) (ledger.State, error)
	SaveLedgerState(ctx context.Context, st ledger.State) (ledger.State, error)

	CreateAccount(ctx context.Context, acct ledger.Account) (ledger.Account, error)
	UpdateAccount(ctx context.Context, acct ledger.Account) (ledger.Account, error)
	GetAccount(ctx context.Context, address string) (ledger.Account, error)
	ListAccounts(ctx context.Context) ([]ledger.Account, error)

	SaveBalances(ctx context.Context, st ledger.State, accounts ...ledger.Account) error
}

// GovernanceStore persists proposals and governance settings.
type GovernanceStore interface {
	GetGovernanceState(ctx context.Context) (governance.State, error)
	SaveGovernanceState(ctx context.Context, st governance.State) (governance.State, error)

	CreateProposal(ctx context.Context, prop governance.Proposal) (governance.Proposal, error)
	UpdateProposal(ctx context.Context, prop governance.Proposal) (governance.Proposal, error)
	GetProposal(ctx context.Context, id string) (governance.Proposal, error)
	ListProposals(ctx context.Context) ([]governance.Proposal, error)
}

// RewardStore persists reward profiles and accrual settings.
type RewardStore interface {
	GetRewardState(ctx context.Context) (rewards.State, error)
	SaveRewardState(ctx context.Context, st rewards.State) (rewards.State, error)

	GetProfile(ctx context.Context, address string) (rewards.Profile, error)
	SaveProfile(ctx context.Context, prof rewards.Profile) (rewards.Profile, error)
	ListProfiles(ctx context.Context) ([]rewards.Profile, error)
}

// StationStore persists stations, settlements and fee settings.
type StationStore interface {
	GetStationState(ctx context.Context) (station.State, error)
	SaveStationState(ctx context.Context, st station.State) (station.State, error)

	CreateStation(ctx context.Context, stn station.Station) (station.Station, error)
	UpdateStation(ctx context.Context, stn station.Station) (station.Station, error)
	GetStation(ctx context.Context, id string) (station.Station, error)
	ListStations(ctx context.Context) ([]station.Station, error)

	CreateSettlement(ctx context.Context, stl station.Settlement) (station.Settlement, error)
	UpdateSettlement(ctx context.Context, stl station.Settlement) (station.Settlement, error)
	GetSettlement(ctx context.Context, id string) (station.Settlement, error)
	ListSettlements(ctx context.Context, stationID string) ([]station.Settlement, error)
}

// EscrowStore persists escrow records.
type EscrowStore interface {
	CreateEscrow(ctx context.Context, esc escrow.Escrow) (escrow.Escrow, error)
	UpdateEscrow(ctx context.Context, esc escrow.Escrow) (escrow.Escrow, error)
	GetEscrow(ctx context.Context, id string) (escrow.Escrow, error)
	ListEscrows(ctx context.Context) ([]escrow.Escrow, error)
	ListOpenEscrows(ctx context.Context) ([]escrow.Escrow, error)
}

package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agrichain-io/token_layer/internal/app/domain/escrow"
	"github.com/agrichain-io/token_layer/internal/app/domain/governance"
	"github.com/agrichain-io/token_layer/internal/app/domain/ledger"
	"github.com/agrichain-io/token_layer/internal/app/domain/rewards"
	"github.com/agrichain-io/token_layer/internal/app/domain/station"
	"github.com/agrichain-io/token_layer/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu sync.RWMutex

	ledgerState *ledger.State
	accounts    map[string]ledger.Account

	governanceState *governance.State
	proposals       map[string]governance.Proposal

	rewardState *rewards.State
	profiles    map[string]rewards.Profile

	stationState *station.State
	stations     map[string]station.Station
	settlements  map[string]station.Settlement

	escrows map[string]escrow.Escrow
}

var _ storage.LedgerStore = (*Store)(nil)
var _ storage.GovernanceStore = (*Store)(nil)
var _ storage.RewardStore = (*Store)(nil)
var _ storage.StationStore = (*Store)(nil)
var _ storage.EscrowStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts:    make(map[string]ledger.Account),
		proposals:   make(map[string]governance.Proposal),
		profiles:    make(map[string]rewards.Profile),
		stations:    make(map[string]station.Station),
		settlements: make(map[string]station.Settlement),
		escrows:     make(map[string]escrow.Escrow),
	}
}

// LedgerStore implementation --------------------------------------------------

func (s *Store) GetLedgerState(_ context.Context) (ledger.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ledgerState == nil {
		return ledger.State{}, fmt.Errorf("ledger state: %w", storage.ErrNotFound)
	}
	return *s.ledgerState, nil
}

func (s *Store) SaveLedgerState(_ context.Context, st ledger.State) (ledger.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.UpdatedAt = time.Now().UTC()
	s.ledgerState = &st
	return st, nil
}

func (s *Store) CreateAccount(_ context.Context, acct ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.Address == "" {
		return ledger.Account{}, fmt.Errorf("account address is required")
	}
	if _, exists := s.accounts[acct.Address]; exists {
		return ledger.Account{}, fmt.Errorf("account %s already exists", acct.Address)
	}

	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	s.accounts[acct.Address] = acct
	return acct, nil
}

func (s *Store) UpdateAccount(_ context.Context, acct ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.accounts[acct.Address]
	if !ok {
		return ledger.Account{}, fmt.Errorf("account %s: %w", acct.Address, storage.ErrNotFound)
	}

	acct.CreatedAt = original.CreatedAt
	acct.UpdatedAt = time.Now().UTC()

	s.accounts[acct.Address] = acct
	return acct, nil
}

func (s *Store) GetAccount(_ context.Context, address string) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[address]
	if !ok {
		return ledger.Account{}, fmt.Errorf("account %s: %w", address, storage.ErrNotFound)
	}
	return acct, nil
}

func (s *Store) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ledger.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		result = append(result, acct)
	}
	return result, nil
}

func (s *Store) SaveBalances(_ context.Context, st ledger.State, accounts ...ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acct := range accounts {
		if _, ok := s.accounts[acct.Address]; !ok {
			return fmt.Errorf("account %s: %w", acct.Address, storage.ErrNotFound)
		}
	}

	now := time.Now().UTC()
	for _, acct := range accounts {
		acct.CreatedAt = s.accounts[acct.Address].CreatedAt
		acct.UpdatedAt = now
		s.accounts[acct.Address] = acct
	}
	st.UpdatedAt = now
	s.ledgerState = &st
	return nil
}

// GovernanceStore implementation ----------------------------------------------

func (s *Store) GetGovernanceState(_ context.Context) (governance.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.governanceState == nil {
		return governance.State{}, fmt.Errorf("governance state: %w", storage.ErrNotFound)
	}
	return *s.governanceState, nil
}

func (s *Store) SaveGovernanceState(_ context.Context, st governance.State) (governance.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.UpdatedAt = time.Now().UTC()
	s.governanceState = &st
	return st, nil
}

func (s *Store) CreateProposal(_ context.Context, prop governance.Proposal) (governance.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prop.ID == "" {
		return governance.Proposal{}, fmt.Errorf("proposal id is required")
	}
	if _, exists := s.proposals[prop.ID]; exists {
		return governance.Proposal{}, fmt.Errorf("proposal %s already exists", prop.ID)
	}

	prop.CreatedAt = time.Now().UTC()
	prop.Voters = append([]string(nil), prop.Voters...)

	s.proposals[prop.ID] = prop
	return cloneProposal(prop), nil
}

func (s *Store) UpdateProposal(_ context.Context, prop governance.Proposal) (governance.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.proposals[prop.ID]
	if !ok {
		return governance.Proposal{}, fmt.Errorf("proposal %s: %w", prop.ID, storage.ErrNotFound)
	}

	prop.CreatedAt = original.CreatedAt
	prop.Voters = append([]string(nil), prop.Voters...)

	s.proposals[prop.ID] = prop
	return cloneProposal(prop), nil
}

func (s *Store) GetProposal(_ context.Context, id string) (governance.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prop, ok := s.proposals[id]
	if !ok {
		return governance.Proposal{}, fmt.Errorf("proposal %s: %w", id, storage.ErrNotFound)
	}
	return cloneProposal(prop), nil
}

func (s *Store) ListProposals(_ context.Context) ([]governance.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]governance.Proposal, 0, len(s.proposals))
	for _, prop := range s.proposals {
		result = append(result, cloneProposal(prop))
	}
	return result, nil
}

// RewardStore implementation ---------------------------------------------------

func (s *Store) GetRewardState(_ context.Context) (rewards.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.rewardState == nil {
		return rewards.State{}, fmt.Errorf("reward state: %w", storage.ErrNotFound)
	}
	return *s.rewardState, nil
}

func (s *Store) SaveRewardState(_ context.Context, st rewards.State) (rewards.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.UpdatedAt = time.Now().UTC()
	s.rewardState = &st
	return st, nil
}

func (s *Store) GetProfile(_ context.Context, address string) (rewards.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prof, ok := s.profiles[address]
	if !ok {
		return rewards.Profile{}, fmt.Errorf("reward profile %s: %w", address, storage.ErrNotFound)
	}
	return prof, nil
}

func (s *Store) SaveProfile(_ context.Context, prof rewards.Profile) (rewards.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prof.Address == "" {
		return rewards.Profile{}, fmt.Errorf("profile address is required")
	}
	prof.UpdatedAt = time.Now().UTC()
	s.profiles[prof.Address] = prof
	return prof, nil
}

func (s *Store) ListProfiles(_ context.Context) ([]rewards.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]rewards.Profile, 0, len(s.profiles))
	for _, prof := range s.profiles {
		result = append(result, prof)
	}
	return result, nil
}

// StationStore implementation --------------------------------------------------

func (s *Store) GetStationState(_ context.Context) (station.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stationState == nil {
		return station.State{}, fmt.Errorf("station state: %w", storage.ErrNotFound)
	}
	return *s.stationState, nil
}

func (s *Store) SaveStationState(_ context.Context, st station.State) (station.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.UpdatedAt = time.Now().UTC()
	s.stationState = &st
	return st, nil
}

func (s *Store) CreateStation(_ context.Context, stn station.Station) (station.Station, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stn.ID == "" {
		return station.Station{}, fmt.Errorf("station id is required")
	}
	if _, exists := s.stations[stn.ID]; exists {
		return station.Station{}, fmt.Errorf("station %s already exists", stn.ID)
	}

	now := time.Now().UTC()
	stn.CreatedAt = now
	stn.UpdatedAt = now

	s.stations[stn.ID] = stn
	return stn, nil
}

func (s *Store) UpdateStation(_ context.Context, stn station.Station) (station.Station, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.stations[stn.ID]
	if !ok {
		return station.Station{}, fmt.Errorf("station %s: %w", stn.ID, storage.ErrNotFound)
	}

	stn.CreatedAt = original.CreatedAt
	stn.UpdatedAt = time.Now().UTC()

	s.stations[stn.ID] = stn
	return stn, nil
}

func (s *Store) GetStation(_ context.Context, id string) (station.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stn, ok := s.stations[id]
	if !ok {
		return station.Station{}, fmt.Errorf("station %s: %w", id, storage.ErrNotFound)
	}
	return stn, nil
}

func (s *Store) ListStations(_ context.Context) ([]station.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]station.Station, 0, len(s.stations))
	for _, stn := range s.stations {
		result = append(result, stn)
	}
	return result, nil
}

func (s *Store) CreateSettlement(_ context.Context, stl station.Settlement) (station.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stl.ID == "" {
		return station.Settlement{}, fmt.Errorf("settlement id is required")
	}
	if _, exists := s.settlements[stl.ID]; exists {
		return station.Settlement{}, fmt.Errorf("settlement %s already exists", stl.ID)
	}

	s.settlements[stl.ID] = stl
	return stl, nil
}

func (s *Store) UpdateSettlement(_ context.Context, stl station.Settlement) (station.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.settlements[stl.ID]; !ok {
		return station.Settlement{}, fmt.Errorf("settlement %s: %w", stl.ID, storage.ErrNotFound)
	}

	s.settlements[stl.ID] = stl
	return stl, nil
}

func (s *Store) GetSettlement(_ context.Context, id string) (station.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stl, ok := s.settlements[id]
	if !ok {
		return station.Settlement{}, fmt.Errorf("settlement %s: %w", id, storage.ErrNotFound)
	}
	return stl, nil
}

func (s *Store) ListSettlements(_ context.Context, stationID string) ([]station.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]station.Settlement, 0)
	for _, stl := range s.settlements {
		if stationID == "" || stl.StationID == stationID {
			result = append(result, stl)
		}
	}
	return result, nil
}

// EscrowStore implementation ---------------------------------------------------

func (s *Store) CreateEscrow(_ context.Context, esc escrow.Escrow) (escrow.Escrow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if esc.ID == "" {
		return escrow.Escrow{}, fmt.Errorf("escrow id is required")
	}
	if _, exists := s.escrows[esc.ID]; exists {
		return escrow.Escrow{}, fmt.Errorf("escrow %s already exists", esc.ID)
	}

	now := time.Now().UTC()
	esc.CreatedAt = now
	esc.UpdatedAt = now

	s.escrows[esc.ID] = esc
	return esc, nil
}

func (s *Store) UpdateEscrow(_ context.Context, esc escrow.Escrow) (escrow.Escrow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.escrows[esc.ID]
	if !ok {
		return escrow.Escrow{}, fmt.Errorf("escrow %s: %w", esc.ID, storage.ErrNotFound)
	}

	esc.CreatedAt = original.CreatedAt
	esc.UpdatedAt = time.Now().UTC()

	s.escrows[esc.ID] = esc
	return esc, nil
}

func (s *Store) GetEscrow(_ context.Context, id string) (escrow.Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	esc, ok := s.escrows[id]
	if !ok {
		return escrow.Escrow{}, fmt.Errorf("escrow %s: %w", id, storage.ErrNotFound)
	}
	return esc, nil
}

func (s *Store) ListEscrows(_ context.Context) ([]escrow.Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]escrow.Escrow, 0, len(s.escrows))
	for _, esc := range s.escrows {
		result = append(result, esc)
	}
	return result, nil
}

func (s *Store) ListOpenEscrows(_ context.Context) ([]escrow.Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]escrow.Escrow, 0)
	for _, esc := range s.escrows {
		if !esc.Status.Terminal() {
			result = append(result, esc)
		}
	}
	return result, nil
}

// Helpers ----------------------------------------------------------------------

func cloneProposal(prop governance.Proposal) governance.Proposal {
	prop.Voters = append([]string(nil), prop.Voters...)
	return prop
}

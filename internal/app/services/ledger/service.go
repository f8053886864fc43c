// Package ledger owns account balances and total supply. Every balance
// mutation in the token layer goes through this service; downstream modules
// never touch accounts directly.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agrichain-io/token_layer/internal/app/domain/ledger"
	"github.com/agrichain-io/token_layer/internal/app/metrics"
	"github.com/agrichain-io/token_layer/internal/app/storage"
	"github.com/agrichain-io/token_layer/pkg/logger"
)

// Config carries the identities baked into a fresh ledger state.
type Config struct {
	Admin     string
	Committee string
}

// Service implements the balance primitives: opt-in, mint, burn, transfer,
// pause and freeze. Operations validate every precondition before writing,
// and multi-account movements are persisted through a single SaveBalances
// call, so no partial effect is ever observable.
type Service struct {
	store storage.LedgerStore
	cfg   Config
	log   *logger.Logger
	auth  *authority
}

// New constructs the ledger service.
func New(store storage.LedgerStore, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("ledger")
	}
	return &Service{
		store: store,
		cfg:   cfg,
		log:   log,
		auth:  newAuthority(),
	}
}

// loadState returns the persisted ledger state, seeding the configured
// defaults when nothing has been written yet.
func (s *Service) loadState(ctx context.Context) (ledger.State, error) {
	st, err := s.store.GetLedgerState(ctx)
	if err == nil {
		return st, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return ledger.State{Admin: s.cfg.Admin, Committee: s.cfg.Committee}, nil
	}
	return ledger.State{}, err
}

// OptIn activates an account with a zero balance. Re-opting-in an account
// that still holds a balance fails with ErrAlreadyActive; a zero-balance
// re-opt-in is a no-op returning the existing account.
func (s *Service) OptIn(ctx context.Context, address string) (ledger.Account, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return ledger.Account{}, fmt.Errorf("address is required")
	}

	existing, err := s.store.GetAccount(ctx, address)
	if err == nil {
		if existing.Balance != 0 {
			return ledger.Account{}, ErrAlreadyActive
		}
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return ledger.Account{}, err
	}

	acct, err := s.store.CreateAccount(ctx, ledger.Account{Address: address})
	if err != nil {
		return ledger.Account{}, err
	}
	s.log.WithField("address", address).Info("account opted in")
	return acct, nil
}

// Mint credits freshly issued tokens to the recipient and grows the total
// supply. The caller must present a valid Authorization: a ModuleKey held by
// a trusted module, or a single-use MintGrant issued by the committee.
func (s *Service) Mint(ctx context.Context, recipient string, amount uint64, auth Authorization) (ledger.Account, error) {
	st, err := s.loadState(ctx)
	if err != nil {
		return ledger.Account{}, err
	}
	if st.Paused {
		return ledger.Account{}, ErrPaused
	}
	if amount == 0 {
		return ledger.Account{}, ErrInvalidAmount
	}

	acct, err := s.store.GetAccount(ctx, recipient)
	if err != nil {
		return ledger.Account{}, err
	}
	if acct.Balance+amount < acct.Balance || st.TotalSupply+amount < st.TotalSupply {
		return ledger.Account{}, ErrInvalidAmount
	}

	if err := s.checkMintAuthorization(auth, recipient, amount); err != nil {
		return ledger.Account{}, err
	}

	acct.Balance += amount
	st.TotalSupply += amount
	if err := s.store.SaveBalances(ctx, st, acct); err != nil {
		s.releaseGrant(auth)
		return ledger.Account{}, err
	}

	metrics.RecordLedgerOp("mint", amount)
	s.log.WithField("recipient", recipient).
		WithField("amount", amount).
		Info("tokens minted")
	return acct, nil
}

// Burn destroys tokens held by the holder and shrinks total supply.
func (s *Service) Burn(ctx context.Context, holder string, amount uint64) (ledger.Account, error) {
	st, err := s.loadState(ctx)
	if err != nil {
		return ledger.Account{}, err
	}
	if st.Paused {
		return ledger.Account{}, ErrPaused
	}
	if amount == 0 {
		return ledger.Account{}, ErrInvalidAmount
	}

	acct, err := s.store.GetAccount(ctx, holder)
	if err != nil {
		return ledger.Account{}, err
	}
	if acct.Balance < amount {
		return ledger.Account{}, ErrInsufficientBalance
	}

	acct.Balance -= amount
	st.TotalSupply -= amount
	if err := s.store.SaveBalances(ctx, st, acct); err != nil {
		return ledger.Account{}, err
	}

	metrics.RecordLedgerOp("burn", amount)
	s.log.WithField("holder", holder).
		WithField("amount", amount).
		Info("tokens burned")
	return acct, nil
}

// Transfer moves tokens between two accounts. The debit and credit are
// written together; a failure on any precondition leaves both untouched.
func (s *Service) Transfer(ctx context.Context, sender, recipient string, amount uint64) error {
	st, err := s.loadState(ctx)
	if err != nil {
		return err
	}
	if st.Paused {
		return ErrPaused
	}
	if amount == 0 || sender == recipient {
		return ErrInvalidAmount
	}

	from, err := s.store.GetAccount(ctx, sender)
	if err != nil {
		return err
	}
	if from.Frozen {
		return ErrFrozen
	}
	if from.Balance < amount {
		return ErrInsufficientBalance
	}

	to, err := s.store.GetAccount(ctx, recipient)
	if err != nil {
		return err
	}

	from.Balance -= amount
	to.Balance += amount
	if err := s.store.SaveBalances(ctx, st, from, to); err != nil {
		return err
	}

	metrics.RecordLedgerOp("transfer", amount)
	s.log.WithField("sender", sender).
		WithField("recipient", recipient).
		WithField("amount", amount).
		Info("tokens transferred")
	return nil
}

// TransferSplit moves tokens from one sender to two distinct recipients in a
// single atomic write. Both recipients must exist before anything is debited;
// either the whole split applies or none of it does.
func (s *Service) TransferSplit(ctx context.Context, sender, first string, firstAmount uint64, second string, secondAmount uint64) error {
	st, err := s.loadState(ctx)
	if err != nil {
		return err
	}
	if st.Paused {
		return ErrPaused
	}
	total := firstAmount + secondAmount
	if total < firstAmount {
		return ErrInvalidAmount
	}
	if total == 0 || first == second || sender == first || sender == second {
		return ErrInvalidAmount
	}

	from, err := s.store.GetAccount(ctx, sender)
	if err != nil {
		return err
	}
	if from.Frozen {
		return ErrFrozen
	}
	if from.Balance < total {
		return ErrInsufficientBalance
	}

	a, err := s.store.GetAccount(ctx, first)
	if err != nil {
		return err
	}
	b, err := s.store.GetAccount(ctx, second)
	if err != nil {
		return err
	}

	from.Balance -= total
	a.Balance += firstAmount
	b.Balance += secondAmount
	if err := s.store.SaveBalances(ctx, st, from, a, b); err != nil {
		return err
	}

	metrics.RecordLedgerOp("transfer", total)
	s.log.WithField("sender", sender).
		WithField("first", first).
		WithField("second", second).
		WithField("amount", total).
		Info("tokens transferred split")
	return nil
}

// SetPaused toggles the global halt on mint/burn/transfer. Admin-only.
func (s *Service) SetPaused(ctx context.Context, caller string, paused bool) error {
	st, err := s.loadState(ctx)
	if err != nil {
		return err
	}
	if caller != st.Admin {
		return ErrUnauthorized
	}
	return s.setPaused(ctx, st, paused)
}

// SetPausedWithAuthority toggles the pause flag on behalf of the committee,
// used when a pause/unpause proposal executes.
func (s *Service) SetPausedWithAuthority(ctx context.Context, key ModuleKey, paused bool) error {
	st, err := s.loadState(ctx)
	if err != nil {
		return err
	}

	s.auth.mu.Lock()
	module, ok := s.auth.modules[key.id]
	s.auth.mu.Unlock()
	if !ok || module != key.module || module != st.Committee {
		return ErrUnauthorized
	}
	return s.setPaused(ctx, st, paused)
}

func (s *Service) setPaused(ctx context.Context, st ledger.State, paused bool) error {
	if st.Paused == paused {
		return nil
	}
	st.Paused = paused
	if _, err := s.store.SaveLedgerState(ctx, st); err != nil {
		return err
	}
	s.log.WithField("paused", paused).Warn("ledger pause flag changed")
	return nil
}

// SetFrozen flips the freeze flag on a single account. Admin-only. Frozen
// accounts cannot send transfers but can still receive.
func (s *Service) SetFrozen(ctx context.Context, caller, address string, frozen bool) (ledger.Account, error) {
	st, err := s.loadState(ctx)
	if err != nil {
		return ledger.Account{}, err
	}
	if caller != st.Admin {
		return ledger.Account{}, ErrUnauthorized
	}

	acct, err := s.store.GetAccount(ctx, address)
	if err != nil {
		return ledger.Account{}, err
	}
	if acct.Frozen == frozen {
		return acct, nil
	}

	acct.Frozen = frozen
	acct, err = s.store.UpdateAccount(ctx, acct)
	if err != nil {
		return ledger.Account{}, err
	}
	s.log.WithField("address", address).
		WithField("frozen", frozen).
		Warn("account freeze flag changed")
	return acct, nil
}

// GetAccount returns a single account.
func (s *Service) GetAccount(ctx context.Context, address string) (ledger.Account, error) {
	return s.store.GetAccount(ctx, address)
}

// ListAccounts returns all opted-in accounts.
func (s *Service) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	return s.store.ListAccounts(ctx)
}

// State returns the current ledger state.
func (s *Service) State(ctx context.Context) (ledger.State, error) {
	return s.loadState(ctx)
}

// Package rewards converts verified carbon-reduction activity into pending
// reward balances and mints them on claim.
package rewards

import (
	"context"
	"errors"
	"strings"

	"github.com/agrichain-io/token_layer/internal/app/domain/rewards"
	"github.com/agrichain-io/token_layer/internal/app/metrics"
	ledgersvc "github.com/agrichain-io/token_layer/internal/app/services/ledger"
	"github.com/agrichain-io/token_layer/internal/app/storage"
	"github.com/agrichain-io/token_layer/pkg/logger"
)

// Service accrues and pays out activity rewards. Accrual is pure bookkeeping;
// tokens are only minted when a participant claims, and a claim always drains
// the full pending amount.
type Service struct {
	store  storage.RewardStore
	ledger *ledgersvc.Service
	key    ledgersvc.ModuleKey
	rate   uint64
	log    *logger.Logger
}

// New constructs the rewards service. rate is the default token units minted
// per verified kg until the admin overrides it.
func New(store storage.RewardStore, ledger *ledgersvc.Service, key ledgersvc.ModuleKey, rate uint64, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("rewards")
	}
	return &Service{
		store:  store,
		ledger: ledger,
		key:    key,
		rate:   rate,
		log:    log,
	}
}

func (s *Service) loadState(ctx context.Context) (rewards.State, error) {
	st, err := s.store.GetRewardState(ctx)
	if err == nil {
		return st, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return rewards.State{RewardRate: s.rate}, nil
	}
	return rewards.State{}, err
}

// RegisterActivity credits pending rewards for a verified reduction. The
// reward is carbonKg times the configured rate; nothing touches the ledger
// until claim.
func (s *Service) RegisterActivity(ctx context.Context, address string, carbonKg int64) (rewards.Profile, error) {
	address = strings.TrimSpace(address)
	if address == "" || carbonKg <= 0 {
		return rewards.Profile{}, ledgersvc.ErrInvalidAmount
	}

	st, err := s.loadState(ctx)
	if err != nil {
		return rewards.Profile{}, err
	}

	prof, err := s.store.GetProfile(ctx, address)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return rewards.Profile{}, err
		}
		prof = rewards.Profile{Address: address}
	}

	reward := uint64(carbonKg) * st.RewardRate
	if st.RewardRate != 0 && reward/st.RewardRate != uint64(carbonKg) {
		return rewards.Profile{}, ledgersvc.ErrInvalidAmount
	}
	if prof.PendingRewards+reward < prof.PendingRewards {
		return rewards.Profile{}, ledgersvc.ErrInvalidAmount
	}
	prof.PendingRewards += reward
	prof.CarbonReductionKg += carbonKg
	prof, err = s.store.SaveProfile(ctx, prof)
	if err != nil {
		return rewards.Profile{}, err
	}

	st.TotalCarbonKg += carbonKg
	if _, err := s.store.SaveRewardState(ctx, st); err != nil {
		return rewards.Profile{}, err
	}

	s.log.WithField("address", address).
		WithField("carbon_kg", carbonKg).
		WithField("reward", reward).
		Info("activity registered")
	return prof, nil
}

// Claim mints the full pending amount into the participant's ledger balance.
// A claim with nothing pending returns 0 and is not an error; partial claims
// are not supported.
func (s *Service) Claim(ctx context.Context, address string) (uint64, error) {
	prof, err := s.store.GetProfile(ctx, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if prof.PendingRewards == 0 {
		return 0, nil
	}

	amount := prof.PendingRewards
	if _, err := s.ledger.Mint(ctx, address, amount, s.key); err != nil {
		return 0, err
	}

	prof.PendingRewards = 0
	prof.ClaimedRewards += amount
	if _, err := s.store.SaveProfile(ctx, prof); err != nil {
		return 0, err
	}

	st, err := s.loadState(ctx)
	if err != nil {
		return 0, err
	}
	st.TotalDistributed += amount
	if _, err := s.store.SaveRewardState(ctx, st); err != nil {
		return 0, err
	}

	metrics.RecordRewardClaim()
	s.log.WithField("address", address).
		WithField("amount", amount).
		Info("rewards claimed")
	return amount, nil
}

// SetRewardRate updates the accrual rate for future activity. Admin-only.
func (s *Service) SetRewardRate(ctx context.Context, caller string, rate uint64) (rewards.State, error) {
	ledgerState, err := s.ledger.State(ctx)
	if err != nil {
		return rewards.State{}, err
	}
	if caller != ledgerState.Admin {
		return rewards.State{}, ledgersvc.ErrUnauthorized
	}
	if rate == 0 {
		return rewards.State{}, ledgersvc.ErrInvalidAmount
	}

	st, err := s.loadState(ctx)
	if err != nil {
		return rewards.State{}, err
	}
	st.RewardRate = rate
	st, err = s.store.SaveRewardState(ctx, st)
	if err != nil {
		return rewards.State{}, err
	}
	s.log.WithField("reward_rate", rate).Info("reward rate updated")
	return st, nil
}

// GetProfile returns the reward profile for an address.
func (s *Service) GetProfile(ctx context.Context, address string) (rewards.Profile, error) {
	return s.store.GetProfile(ctx, address)
}

// State returns module totals and the current rate.
func (s *Service) State(ctx context.Context) (rewards.State, error) {
	return s.loadState(ctx)
}

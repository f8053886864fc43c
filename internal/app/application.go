// Package app wires the token layer services together: the ledger owning all
// balances, and the governance, rewards, station settlement and escrow
// modules routing every balance change through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	escrowsvc "github.com/agrichain-io/token_layer/internal/app/services/escrow"
	governancesvc "github.com/agrichain-io/token_layer/internal/app/services/governance"
	ledgersvc "github.com/agrichain-io/token_layer/internal/app/services/ledger"
	rewardssvc "github.com/agrichain-io/token_layer/internal/app/services/rewards"
	stationsvc "github.com/agrichain-io/token_layer/internal/app/services/station"
	"github.com/agrichain-io/token_layer/internal/app/storage"
	"github.com/agrichain-io/token_layer/internal/app/storage/memory"
	"github.com/agrichain-io/token_layer/internal/app/system"
	"github.com/agrichain-io/token_layer/pkg/logger"
)

// Module names the ledger issues capabilities for at wiring time.
const (
	ModuleCommittee = "governance"
	ModuleRewards   = "rewards"
	ModuleStation   = "station"
)

// DefaultVaultAddress holds escrow deposits unless configured otherwise.
const DefaultVaultAddress = "escrow.vault"

// Config carries the identities and defaults baked in at wiring time.
type Config struct {
	Admin          string
	VaultAddress   string
	RewardRate     uint64
	ExpiryInterval time.Duration
}

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Ledger     storage.LedgerStore
	Governance storage.GovernanceStore
	Rewards    storage.RewardStore
	Stations   storage.StationStore
	Escrows    storage.EscrowStore
}

// Application ties the domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Ledger     *ledgersvc.Service
	Governance *governancesvc.Service
	Rewards    *rewardssvc.Service
	Stations   *stationsvc.Service
	Escrows    *escrowsvc.Service
}

// New builds a fully initialised application with the provided stores. The
// escrow vault account is opted in and the trusted module keys are issued
// here; no other code can obtain them afterwards.
func New(cfg Config, stores Stores, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if cfg.Admin == "" {
		return nil, fmt.Errorf("admin identity is required")
	}
	if cfg.VaultAddress == "" {
		cfg.VaultAddress = DefaultVaultAddress
	}
	if cfg.RewardRate == 0 {
		cfg.RewardRate = 1000
	}

	mem := memory.New()
	if stores.Ledger == nil {
		stores.Ledger = mem
	}
	if stores.Governance == nil {
		stores.Governance = mem
	}
	if stores.Rewards == nil {
		stores.Rewards = mem
	}
	if stores.Stations == nil {
		stores.Stations = mem
	}
	if stores.Escrows == nil {
		stores.Escrows = mem
	}

	ctx := context.Background()

	ledgerService := ledgersvc.New(stores.Ledger, ledgersvc.Config{
		Admin:     cfg.Admin,
		Committee: ModuleCommittee,
	}, log)

	// a vault carrying deposits from a previous run is fine
	if _, err := ledgerService.OptIn(ctx, cfg.VaultAddress); err != nil && !errors.Is(err, ledgersvc.ErrAlreadyActive) {
		return nil, fmt.Errorf("opt in vault account: %w", err)
	}

	committeeKey, err := ledgerService.IssueModuleKey(ctx, cfg.Admin, ModuleCommittee)
	if err != nil {
		return nil, fmt.Errorf("issue committee key: %w", err)
	}
	rewardsKey, err := ledgerService.IssueModuleKey(ctx, cfg.Admin, ModuleRewards)
	if err != nil {
		return nil, fmt.Errorf("issue rewards key: %w", err)
	}
	stationKey, err := ledgerService.IssueModuleKey(ctx, cfg.Admin, ModuleStation)
	if err != nil {
		return nil, fmt.Errorf("issue station key: %w", err)
	}

	governanceService := governancesvc.New(stores.Governance, ledgerService, committeeKey, log)
	rewardsService := rewardssvc.New(stores.Rewards, ledgerService, rewardsKey, cfg.RewardRate, log)
	stationService := stationsvc.New(stores.Stations, ledgerService, stationKey, log)
	escrowService := escrowsvc.New(stores.Escrows, ledgerService, cfg.VaultAddress, log)

	manager := system.NewManager()
	for _, name := range []string{"ledger", "governance", "rewards", "station"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	poller := escrowsvc.NewExpiryPoller(stores.Escrows, escrowService, cfg.ExpiryInterval, log)
	if err := manager.Register(poller); err != nil {
		return nil, fmt.Errorf("register expiry poller: %w", err)
	}

	return &Application{
		manager:    manager,
		log:        log,
		Ledger:     ledgerService,
		Governance: governanceService,
		Rewards:    rewardsService,
		Stations:   stationService,
		Escrows:    escrowService,
	}, nil
}

// Attach registers an additional lifecycle service.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start launches background services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops background services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

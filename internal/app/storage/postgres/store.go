// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/agrichain-io/token_layer/internal/app/domain/escrow"
	"github.com/agrichain-io/token_layer/internal/app/domain/governance"
	"github.com/agrichain-io/token_layer/internal/app/domain/ledger"
	"github.com/agrichain-io/token_layer/internal/app/domain/rewards"
	"github.com/agrichain-io/token_layer/internal/app/domain/station"
	"github.com/agrichain-io/token_layer/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL. Amounts are
// stored as BIGINT; the engine's uint64 values stay far below the int64 range
// in practice.
type Store struct {
	db *sql.DB
}

var _ storage.LedgerStore = (*Store)(nil)
var _ storage.GovernanceStore = (*Store)(nil)
var _ storage.RewardStore = (*Store)(nil)
var _ storage.StationStore = (*Store)(nil)
var _ storage.EscrowStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the tables the store needs if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ledger_state (
			id INT PRIMARY KEY CHECK (id = 1),
			admin TEXT NOT NULL,
			committee TEXT NOT NULL,
			total_supply BIGINT NOT NULL,
			paused BOOLEAN NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS ledger_accounts (
			address TEXT PRIMARY KEY,
			balance BIGINT NOT NULL,
			frozen BOOLEAN NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS governance_state (
			id INT PRIMARY KEY CHECK (id = 1),
			required_approvals INT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS proposals (
			id TEXT PRIMARY KEY,
			creator TEXT NOT NULL,
			type TEXT NOT NULL,
			recipient TEXT NOT NULL,
			amount BIGINT NOT NULL,
			memo TEXT NOT NULL,
			vote_count INT NOT NULL,
			voters TEXT[] NOT NULL,
			executed BOOLEAN NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expiry TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS reward_state (
			id INT PRIMARY KEY CHECK (id = 1),
			reward_rate BIGINT NOT NULL,
			total_distributed BIGINT NOT NULL,
			total_carbon_kg BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS reward_profiles (
			address TEXT PRIMARY KEY,
			pending_rewards BIGINT NOT NULL,
			claimed_rewards BIGINT NOT NULL,
			carbon_reduction_kg BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS station_state (
			id INT PRIMARY KEY CHECK (id = 1),
			fee_rate_bps BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS stations (
			id TEXT PRIMARY KEY,
			operator TEXT NOT NULL,
			active BOOLEAN NOT NULL,
			volume BIGINT NOT NULL,
			fees_paid BIGINT NOT NULL,
			pending BIGINT NOT NULL,
			settled BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS settlements (
			id TEXT PRIMARY KEY,
			station_id TEXT NOT NULL REFERENCES stations (id),
			amount BIGINT NOT NULL,
			status TEXT NOT NULL,
			requested_at TIMESTAMPTZ NOT NULL,
			approved_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS escrows (
			id TEXT PRIMARY KEY,
			buyer TEXT NOT NULL,
			seller TEXT NOT NULL,
			amount BIGINT NOT NULL,
			deposit_amount BIGINT NOT NULL,
			status TEXT NOT NULL,
			buyer_confirmed BOOLEAN NOT NULL,
			seller_confirmed BOOLEAN NOT NULL,
			deadline TIMESTAMPTZ NOT NULL,
			dispute_reason TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
	`)
	return err
}

// notFound translates driver-level misses into the shared sentinel.
func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return err
}

// --- LedgerStore ------------------------------------------------------------

func (s *Store) GetLedgerState(ctx context.Context) (ledger.State, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT admin, committee, total_supply, paused, updated_at
		FROM ledger_state WHERE id = 1
	`)
	var st ledger.State
	if err := row.Scan(&st.Admin, &st.Committee, &st.TotalSupply, &st.Paused, &st.UpdatedAt); err != nil {
		return ledger.State{}, notFound(err, "ledger state", "1")
	}
	return st, nil
}

func (s *Store) SaveLedgerState(ctx context.Context, st ledger.State) (ledger.State, error) {
	st.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_state (id, admin, committee, total_supply, paused, updated_at)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET admin = $1, committee = $2, total_supply = $3, paused = $4, updated_at = $5
	`, st.Admin, st.Committee, st.TotalSupply, st.Paused, st.UpdatedAt)
	if err != nil {
		return ledger.State{}, err
	}
	return st, nil
}

func (s *Store) CreateAccount(ctx context.Context, acct ledger.Account) (ledger.Account, error) {
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_accounts (address, balance, frozen, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, acct.Address, acct.Balance, acct.Frozen, acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		return ledger.Account{}, err
	}
	return acct, nil
}

func (s *Store) UpdateAccount(ctx context.Context, acct ledger.Account) (ledger.Account, error) {
	acct.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE ledger_accounts
		SET balance = $2, frozen = $3, updated_at = $4
		WHERE address = $1
	`, acct.Address, acct.Balance, acct.Frozen, acct.UpdatedAt)
	if err != nil {
		return ledger.Account{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ledger.Account{}, notFound(sql.ErrNoRows, "account", acct.Address)
	}
	return acct, nil
}

func (s *Store) GetAccount(ctx context.Context, address string) (ledger.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, balance, frozen, created_at, updated_at
		FROM ledger_accounts WHERE address = $1
	`, address)
	var acct ledger.Account
	if err := row.Scan(&acct.Address, &acct.Balance, &acct.Frozen, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
		return ledger.Account{}, notFound(err, "account", address)
	}
	return acct, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, balance, frozen, created_at, updated_at
		FROM ledger_accounts ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Account
	for rows.Next() {
		var acct ledger.Account
		if err := rows.Scan(&acct.Address, &acct.Balance, &acct.Frozen, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

func (s *Store) SaveBalances(ctx context.Context, st ledger.State, accounts ...ledger.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	st.UpdatedAt = now
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_state (id, admin, committee, total_supply, paused, updated_at)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET admin = $1, committee = $2, total_supply = $3, paused = $4, updated_at = $5
	`, st.Admin, st.Committee, st.TotalSupply, st.Paused, st.UpdatedAt); err != nil {
		return err
	}

	for _, acct := range accounts {
		result, err := tx.ExecContext(ctx, `
			UPDATE ledger_accounts
			SET balance = $2, frozen = $3, updated_at = $4
			WHERE address = $1
		`, acct.Address, acct.Balance, acct.Frozen, now)
		if err != nil {
			return err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return notFound(sql.ErrNoRows, "account", acct.Address)
		}
	}
	return tx.Commit()
}

// --- GovernanceStore --------------------------------------------------------

func (s *Store) GetGovernanceState(ctx context.Context) (governance.State, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT required_approvals, updated_at FROM governance_state WHERE id = 1
	`)
	var st governance.State
	if err := row.Scan(&st.RequiredApprovals, &st.UpdatedAt); err != nil {
		return governance.State{}, notFound(err, "governance state", "1")
	}
	return st, nil
}

func (s *Store) SaveGovernanceState(ctx context.Context, st governance.State) (governance.State, error) {
	st.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO governance_state (id, required_approvals, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET required_approvals = $1, updated_at = $2
	`, st.RequiredApprovals, st.UpdatedAt)
	if err != nil {
		return governance.State{}, err
	}
	return st, nil
}

func (s *Store) CreateProposal(ctx context.Context, prop governance.Proposal) (governance.Proposal, error) {
	if prop.ID == "" {
		prop.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO proposals (id, creator, type, recipient, amount, memo, vote_count, voters, executed, created_at, expiry)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, prop.ID, prop.Creator, string(prop.Type), prop.Payload.Recipient, prop.Payload.Amount, prop.Payload.Memo,
		prop.VoteCount, pq.Array(prop.Voters), prop.Executed, prop.CreatedAt, prop.Expiry)
	if err != nil {
		return governance.Proposal{}, err
	}
	return prop, nil
}

func (s *Store) UpdateProposal(ctx context.Context, prop governance.Proposal) (governance.Proposal, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE proposals
		SET vote_count = $2, voters = $3, executed = $4
		WHERE id = $1
	`, prop.ID, prop.VoteCount, pq.Array(prop.Voters), prop.Executed)
	if err != nil {
		return governance.Proposal{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return governance.Proposal{}, notFound(sql.ErrNoRows, "proposal", prop.ID)
	}
	return prop, nil
}

func (s *Store) GetProposal(ctx context.Context, id string) (governance.Proposal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, creator, type, recipient, amount, memo, vote_count, voters, executed, created_at, expiry
		FROM proposals WHERE id = $1
	`, id)
	prop, err := scanProposal(row)
	if err != nil {
		return governance.Proposal{}, notFound(err, "proposal", id)
	}
	return prop, nil
}

func (s *Store) ListProposals(ctx context.Context) ([]governance.Proposal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, creator, type, recipient, amount, memo, vote_count, voters, executed, created_at, expiry
		FROM proposals ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []governance.Proposal
	for rows.Next() {
		prop, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, prop)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProposal(row rowScanner) (governance.Proposal, error) {
	var (
		prop governance.Proposal
		typ  string
	)
	if err := row.Scan(&prop.ID, &prop.Creator, &typ, &prop.Payload.Recipient, &prop.Payload.Amount,
		&prop.Payload.Memo, &prop.VoteCount, pq.Array(&prop.Voters), &prop.Executed, &prop.CreatedAt, &prop.Expiry); err != nil {
		return governance.Proposal{}, err
	}
	prop.Type = governance.ProposalType(typ)
	return prop, nil
}

// --- RewardStore ------------------------------------------------------------

func (s *Store) GetRewardState(ctx context.Context) (rewards.State, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT reward_rate, total_distributed, total_carbon_kg, updated_at
		FROM reward_state WHERE id = 1
	`)
	var st rewards.State
	if err := row.Scan(&st.RewardRate, &st.TotalDistributed, &st.TotalCarbonKg, &st.UpdatedAt); err != nil {
		return rewards.State{}, notFound(err, "reward state", "1")
	}
	return st, nil
}

func (s *Store) SaveRewardState(ctx context.Context, st rewards.State) (rewards.State, error) {
	st.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reward_state (id, reward_rate, total_distributed, total_carbon_kg, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET reward_rate = $1, total_distributed = $2, total_carbon_kg = $3, updated_at = $4
	`, st.RewardRate, st.TotalDistributed, st.TotalCarbonKg, st.UpdatedAt)
	if err != nil {
		return rewards.State{}, err
	}
	return st, nil
}

func (s *Store) GetProfile(ctx context.Context, address string) (rewards.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, pending_rewards, claimed_rewards, carbon_reduction_kg, updated_at
		FROM reward_profiles WHERE address = $1
	`, address)
	var prof rewards.Profile
	if err := row.Scan(&prof.Address, &prof.PendingRewards, &prof.ClaimedRewards, &prof.CarbonReductionKg, &prof.UpdatedAt); err != nil {
		return rewards.Profile{}, notFound(err, "reward profile", address)
	}
	return prof, nil
}

func (s *Store) SaveProfile(ctx context.Context, prof rewards.Profile) (rewards.Profile, error) {
	prof.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reward_profiles (address, pending_rewards, claimed_rewards, carbon_reduction_kg, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO UPDATE
		SET pending_rewards = $2, claimed_rewards = $3, carbon_reduction_kg = $4, updated_at = $5
	`, prof.Address, prof.PendingRewards, prof.ClaimedRewards, prof.CarbonReductionKg, prof.UpdatedAt)
	if err != nil {
		return rewards.Profile{}, err
	}
	return prof, nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]rewards.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, pending_rewards, claimed_rewards, carbon_reduction_kg, updated_at
		FROM reward_profiles ORDER BY address
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rewards.Profile
	for rows.Next() {
		var prof rewards.Profile
		if err := rows.Scan(&prof.Address, &prof.PendingRewards, &prof.ClaimedRewards, &prof.CarbonReductionKg, &prof.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, prof)
	}
	return out, rows.Err()
}

// --- StationStore -----------------------------------------------------------

func (s *Store) GetStationState(ctx context.Context) (station.State, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT fee_rate_bps, updated_at FROM station_state WHERE id = 1
	`)
	var st station.State
	if err := row.Scan(&st.FeeRateBps, &st.UpdatedAt); err != nil {
		return station.State{}, notFound(err, "station state", "1")
	}
	return st, nil
}

func (s *Store) SaveStationState(ctx context.Context, st station.State) (station.State, error) {
	st.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO station_state (id, fee_rate_bps, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET fee_rate_bps = $1, updated_at = $2
	`, st.FeeRateBps, st.UpdatedAt)
	if err != nil {
		return station.State{}, err
	}
	return st, nil
}

func (s *Store) CreateStation(ctx context.Context, stn station.Station) (station.Station, error) {
	now := time.Now().UTC()
	stn.CreatedAt = now
	stn.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stations (id, operator, active, volume, fees_paid, pending, settled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, stn.ID, stn.Operator, stn.Active, stn.Volume, stn.FeesPaid, stn.Pending, stn.Settled, stn.CreatedAt, stn.UpdatedAt)
	if err != nil {
		return station.Station{}, err
	}
	return stn, nil
}

func (s *Store) UpdateStation(ctx context.Context, stn station.Station) (station.Station, error) {
	stn.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE stations
		SET operator = $2, active = $3, volume = $4, fees_paid = $5, pending = $6, settled = $7, updated_at = $8
		WHERE id = $1
	`, stn.ID, stn.Operator, stn.Active, stn.Volume, stn.FeesPaid, stn.Pending, stn.Settled, stn.UpdatedAt)
	if err != nil {
		return station.Station{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return station.Station{}, notFound(sql.ErrNoRows, "station", stn.ID)
	}
	return stn, nil
}

func (s *Store) GetStation(ctx context.Context, id string) (station.Station, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, operator, active, volume, fees_paid, pending, settled, created_at, updated_at
		FROM stations WHERE id = $1
	`, id)
	var stn station.Station
	if err := row.Scan(&stn.ID, &stn.Operator, &stn.Active, &stn.Volume, &stn.FeesPaid, &stn.Pending, &stn.Settled, &stn.CreatedAt, &stn.UpdatedAt); err != nil {
		return station.Station{}, notFound(err, "station", id)
	}
	return stn, nil
}

func (s *Store) ListStations(ctx context.Context) ([]station.Station, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operator, active, volume, fees_paid, pending, settled, created_at, updated_at
		FROM stations ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []station.Station
	for rows.Next() {
		var stn station.Station
		if err := rows.Scan(&stn.ID, &stn.Operator, &stn.Active, &stn.Volume, &stn.FeesPaid, &stn.Pending, &stn.Settled, &stn.CreatedAt, &stn.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, stn)
	}
	return out, rows.Err()
}

func (s *Store) CreateSettlement(ctx context.Context, stl station.Settlement) (station.Settlement, error) {
	if stl.ID == "" {
		stl.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settlements (id, station_id, amount, status, requested_at, approved_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, stl.ID, stl.StationID, stl.Amount, string(stl.Status), stl.RequestedAt, stl.ApprovedAt, stl.CompletedAt)
	if err != nil {
		return station.Settlement{}, err
	}
	return stl, nil
}

func (s *Store) UpdateSettlement(ctx context.Context, stl station.Settlement) (station.Settlement, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE settlements
		SET amount = $2, status = $3, approved_at = $4, completed_at = $5
		WHERE id = $1
	`, stl.ID, stl.Amount, string(stl.Status), stl.ApprovedAt, stl.CompletedAt)
	if err != nil {
		return station.Settlement{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return station.Settlement{}, notFound(sql.ErrNoRows, "settlement", stl.ID)
	}
	return stl, nil
}

func (s *Store) GetSettlement(ctx context.Context, id string) (station.Settlement, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, station_id, amount, status, requested_at, approved_at, completed_at
		FROM settlements WHERE id = $1
	`, id)
	stl, err := scanSettlement(row)
	if err != nil {
		return station.Settlement{}, notFound(err, "settlement", id)
	}
	return stl, nil
}

func (s *Store) ListSettlements(ctx context.Context, stationID string) ([]station.Settlement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, station_id, amount, status, requested_at, approved_at, completed_at
		FROM settlements WHERE ($1 = '' OR station_id = $1) ORDER BY requested_at
	`, stationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []station.Settlement
	for rows.Next() {
		stl, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, stl)
	}
	return out, rows.Err()
}

func scanSettlement(row rowScanner) (station.Settlement, error) {
	var (
		stl    station.Settlement
		status string
	)
	if err := row.Scan(&stl.ID, &stl.StationID, &stl.Amount, &status, &stl.RequestedAt, &stl.ApprovedAt, &stl.CompletedAt); err != nil {
		return station.Settlement{}, err
	}
	stl.Status = station.SettlementStatus(status)
	return stl, nil
}

// --- EscrowStore ------------------------------------------------------------

func (s *Store) CreateEscrow(ctx context.Context, esc escrow.Escrow) (escrow.Escrow, error) {
	now := time.Now().UTC()
	esc.CreatedAt = now
	esc.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO escrows (id, buyer, seller, amount, deposit_amount, status, buyer_confirmed, seller_confirmed, deadline, dispute_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, esc.ID, esc.Buyer, esc.Seller, esc.Amount, esc.DepositAmount, string(esc.Status),
		esc.BuyerConfirmed, esc.SellerConfirmed, esc.Deadline, esc.DisputeReason, esc.CreatedAt, esc.UpdatedAt)
	if err != nil {
		return escrow.Escrow{}, err
	}
	return esc, nil
}

func (s *Store) UpdateEscrow(ctx context.Context, esc escrow.Escrow) (escrow.Escrow, error) {
	esc.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE escrows
		SET deposit_amount = $2, status = $3, buyer_confirmed = $4, seller_confirmed = $5, dispute_reason = $6, updated_at = $7
		WHERE id = $1
	`, esc.ID, esc.DepositAmount, string(esc.Status), esc.BuyerConfirmed, esc.SellerConfirmed, esc.DisputeReason, esc.UpdatedAt)
	if err != nil {
		return escrow.Escrow{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return escrow.Escrow{}, notFound(sql.ErrNoRows, "escrow", esc.ID)
	}
	return esc, nil
}

func (s *Store) GetEscrow(ctx context.Context, id string) (escrow.Escrow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, buyer, seller, amount, deposit_amount, status, buyer_confirmed, seller_confirmed, deadline, dispute_reason, created_at, updated_at
		FROM escrows WHERE id = $1
	`, id)
	esc, err := scanEscrow(row)
	if err != nil {
		return escrow.Escrow{}, notFound(err, "escrow", id)
	}
	return esc, nil
}

func (s *Store) ListEscrows(ctx context.Context) ([]escrow.Escrow, error) {
	return s.listEscrows(ctx, `
		SELECT id, buyer, seller, amount, deposit_amount, status, buyer_confirmed, seller_confirmed, deadline, dispute_reason, created_at, updated_at
		FROM escrows ORDER BY created_at
	`)
}

func (s *Store) ListOpenEscrows(ctx context.Context) ([]escrow.Escrow, error) {
	return s.listEscrows(ctx, `
		SELECT id, buyer, seller, amount, deposit_amount, status, buyer_confirmed, seller_confirmed, deadline, dispute_reason, created_at, updated_at
		FROM escrows
		WHERE status NOT IN ('completed', 'cancelled')
		ORDER BY created_at
	`)
}

func (s *Store) listEscrows(ctx context.Context, query string) ([]escrow.Escrow, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []escrow.Escrow
	for rows.Next() {
		esc, err := scanEscrow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, esc)
	}
	return out, rows.Err()
}

func scanEscrow(row rowScanner) (escrow.Escrow, error) {
	var (
		esc    escrow.Escrow
		status string
	)
	if err := row.Scan(&esc.ID, &esc.Buyer, &esc.Seller, &esc.Amount, &esc.DepositAmount, &status,
		&esc.BuyerConfirmed, &esc.SellerConfirmed, &esc.Deadline, &esc.DisputeReason, &esc.CreatedAt, &esc.UpdatedAt); err != nil {
		return escrow.Escrow{}, err
	}
	esc.Status = escrow.Status(status)
	return esc, nil
}

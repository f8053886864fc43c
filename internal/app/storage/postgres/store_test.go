package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"github.com/agrichain-io/token_layer/internal/app/domain/escrow"
	"github.com/agrichain-io/token_layer/internal/app/domain/governance"
	"github.com/agrichain-io/token_layer/internal/app/domain/ledger"
	"github.com/agrichain-io/token_layer/internal/app/domain/station"
	"github.com/agrichain-io/token_layer/internal/app/storage"
)

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := New(db)
	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	if _, err := store.GetLedgerState(ctx); err != nil && !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get ledger state: %v", err)
	}

	st, err := store.SaveLedgerState(ctx, ledger.State{Admin: "admin", Committee: "governance"})
	if err != nil {
		t.Fatalf("save ledger state: %v", err)
	}

	a, err := store.CreateAccount(ctx, ledger.Account{Address: "pg-alice", Balance: 500})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	b, err := store.CreateAccount(ctx, ledger.Account{Address: "pg-bob"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	a.Balance -= 200
	b.Balance += 200
	if err := store.SaveBalances(ctx, st, a, b); err != nil {
		t.Fatalf("save balances: %v", err)
	}
	got, err := store.GetAccount(ctx, "pg-bob")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if got.Balance != 200 {
		t.Fatalf("expected balance 200, got %d", got.Balance)
	}

	// balance writes against a missing account must roll back entirely
	if err := store.SaveBalances(ctx, st, a, ledger.Account{Address: "pg-ghost"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	prop, err := store.CreateProposal(ctx, governance.Proposal{
		Creator:   "pg-alice",
		Type:      governance.TypeMint,
		Payload:   governance.Payload{Recipient: "pg-bob", Amount: 100},
		VoteCount: 1,
		Voters:    []string{"pg-alice"},
		CreatedAt: time.Now().UTC(),
		Expiry:    time.Now().UTC().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	prop.VoteCount++
	prop.Voters = append(prop.Voters, "pg-bob")
	if _, err := store.UpdateProposal(ctx, prop); err != nil {
		t.Fatalf("update proposal: %v", err)
	}
	back, err := store.GetProposal(ctx, prop.ID)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if len(back.Voters) != 2 || back.VoteCount != 2 {
		t.Fatalf("unexpected proposal round-trip: %+v", back)
	}

	stn, err := store.CreateStation(ctx, station.Station{ID: "pg-st-1", Operator: "pg-alice", Active: true})
	if err != nil {
		t.Fatalf("create station: %v", err)
	}
	stl, err := store.CreateSettlement(ctx, station.Settlement{
		StationID:   stn.ID,
		Amount:      300,
		Status:      station.StatusPending,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create settlement: %v", err)
	}
	stls, err := store.ListSettlements(ctx, stn.ID)
	if err != nil || len(stls) != 1 || stls[0].ID != stl.ID {
		t.Fatalf("list settlements: %v (%d)", err, len(stls))
	}
	// a blank station id lists everything, matching the memory store
	all, err := store.ListSettlements(ctx, "")
	if err != nil || len(all) == 0 {
		t.Fatalf("list all settlements: %v (%d)", err, len(all))
	}

	esc, err := store.CreateEscrow(ctx, escrow.Escrow{
		ID:     "pg-esc-1",
		Buyer:  "pg-alice",
		Seller: "pg-bob",
		Amount: 50,
		Status: escrow.StatusCreated,
	})
	if err != nil {
		t.Fatalf("create escrow: %v", err)
	}
	esc.Status = escrow.StatusCancelled
	if _, err := store.UpdateEscrow(ctx, esc); err != nil {
		t.Fatalf("update escrow: %v", err)
	}
	open, err := store.ListOpenEscrows(ctx)
	if err != nil {
		t.Fatalf("list open escrows: %v", err)
	}
	for _, e := range open {
		if e.ID == esc.ID {
			t.Fatalf("cancelled escrow listed as open")
		}
	}
}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agrichain-io/token_layer/internal/app/domain/governance"
	"github.com/agrichain-io/token_layer/internal/app/domain/ledger"
	"github.com/agrichain-io/token_layer/internal/app/storage"
)

func TestSingletonStates(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.GetLedgerState(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unseeded state, got %v", err)
	}
	st, err := store.SaveLedgerState(ctx, ledger.State{Admin: "admin", TotalSupply: 42})
	if err != nil {
		t.Fatalf("save state: %v", err)
	}
	back, err := store.GetLedgerState(ctx)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if back.Admin != "admin" || back.TotalSupply != 42 {
		t.Fatalf("state round-trip: %+v", back)
	}
	if back.UpdatedAt != st.UpdatedAt {
		t.Fatalf("updated_at mismatch")
	}
}

func TestSaveBalancesAtomicity(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreateAccount(ctx, ledger.Account{Address: "alice", Balance: 100}); err != nil {
		t.Fatalf("create account: %v", err)
	}

	st := ledger.State{Admin: "admin", TotalSupply: 100}
	err := store.SaveBalances(ctx, st,
		ledger.Account{Address: "alice", Balance: 50},
		ledger.Account{Address: "ghost", Balance: 50},
	)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// nothing was applied
	acct, err := store.GetAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if acct.Balance != 100 {
		t.Fatalf("partial write observed: balance %d", acct.Balance)
	}
	if _, err := store.GetLedgerState(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("state written despite failure: %v", err)
	}
}

func TestProposalIsolation(t *testing.T) {
	store := New()
	ctx := context.Background()

	prop, err := store.CreateProposal(ctx, governance.Proposal{
		ID:      "p1",
		Creator: "alice",
		Type:    governance.TypeText,
		Voters:  []string{"alice"},
		Expiry:  time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}

	// mutating the returned slice must not corrupt the stored record
	prop.Voters[0] = "mallory"
	back, err := store.GetProposal(ctx, "p1")
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if back.Voters[0] != "alice" {
		t.Fatalf("stored voters aliased: %v", back.Voters)
	}
}

func TestNotFoundWrapping(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.GetAccount(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("account: %v", err)
	}
	if _, err := store.GetProposal(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("proposal: %v", err)
	}
	if _, err := store.GetStation(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("station: %v", err)
	}
	if _, err := store.GetSettlement(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("settlement: %v", err)
	}
	if _, err := store.GetEscrow(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("escrow: %v", err)
	}
	if _, err := store.GetProfile(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("profile: %v", err)
	}
}

package escrow

import (
	"context"
	"testing"
	"time"

	"github.com/agrichain-io/token_layer/internal/app/domain/escrow"
	ledgersvc "github.com/agrichain-io/token_layer/internal/app/services/ledger"
	"github.com/agrichain-io/token_layer/internal/app/storage/memory"
)

func TestExpiryPollerReleasesOverdueEscrows(t *testing.T) {
	mem := memory.New()
	ldg := ledgersvc.New(mem, ledgersvc.Config{Admin: "admin", Committee: "governance"}, nil)
	ctx := context.Background()

	ldg.OptIn(ctx, vaultAddr)
	ldg.OptIn(ctx, "buyer")
	ldg.OptIn(ctx, "seller")
	key, err := ldg.IssueModuleKey(ctx, "admin", "minter")
	if err != nil {
		t.Fatalf("issue key: %v", err)
	}
	if _, err := ldg.Mint(ctx, "buyer", 1000, key); err != nil {
		t.Fatalf("fund buyer: %v", err)
	}

	svc := New(mem, ldg, vaultAddr, nil)

	// already past its deadline at funding time
	if _, err := svc.Create(ctx, "overdue", "buyer", "seller", 600, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Deposit(ctx, "overdue", "buyer"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	// disputed escrows must be left alone
	if _, err := svc.Create(ctx, "contested", "buyer", "seller", 400, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Deposit(ctx, "contested", "buyer"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := svc.RaiseDispute(ctx, "contested", "buyer", "wrong grade"); err != nil {
		t.Fatalf("dispute: %v", err)
	}

	poller := NewExpiryPoller(mem, svc, 10*time.Millisecond, nil)
	if err := poller.Start(ctx); err != nil {
		t.Fatalf("start poller: %v", err)
	}
	defer poller.Stop(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for {
		esc, err := svc.GetEscrow(ctx, "overdue")
		if err != nil {
			t.Fatalf("get escrow: %v", err)
		}
		if esc.Status == escrow.StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("poller did not release overdue escrow, status %s", esc.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	seller, _ := ldg.GetAccount(ctx, "seller")
	if seller.Balance != 600 {
		t.Fatalf("expected seller balance 600, got %d", seller.Balance)
	}
	contested, _ := svc.GetEscrow(ctx, "contested")
	if contested.Status != escrow.StatusDisputed {
		t.Fatalf("disputed escrow was touched, status %s", contested.Status)
	}
}

package station

import (
	"context"
	"errors"
	"testing"

	"github.com/agrichain-io/token_layer/internal/app/domain/station"
	ledgersvc "github.com/agrichain-io/token_layer/internal/app/services/ledger"
	"github.com/agrichain-io/token_layer/internal/app/storage/memory"
)

func newTestService(t *testing.T) (*Service, *ledgersvc.Service) {
	t.Helper()
	mem := memory.New()
	ldg := ledgersvc.New(mem, ledgersvc.Config{Admin: "admin", Committee: "governance"}, nil)
	key, err := ldg.IssueModuleKey(context.Background(), "admin", "station")
	if err != nil {
		t.Fatalf("issue station key: %v", err)
	}
	return New(mem, ldg, key, nil), ldg
}

func TestRegisterStation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RegisterStation(ctx, "mallory", "st-1", "op-1"); !errors.Is(err, ledgersvc.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	stn, err := svc.RegisterStation(ctx, "admin", "st-1", "op-1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !stn.Active {
		t.Fatal("fresh station should be active")
	}
	if _, err := svc.RegisterStation(ctx, "admin", "st-1", "op-2"); !errors.Is(err, ledgersvc.ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive for duplicate id, got %v", err)
	}
}

func TestFeeMath(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.RegisterStation(ctx, "admin", "st-1", "op-1")

	// default rate is 500 bps
	fb, err := svc.RecordTransaction(ctx, "st-1", 100_000)
	if err != nil {
		t.Fatalf("record transaction: %v", err)
	}
	if fb.Fee != 5000 || fb.Net != 95_000 {
		t.Fatalf("unexpected breakdown: %+v", fb)
	}

	// floored math: fee + net always equals gross
	fb, err = svc.RecordTransaction(ctx, "st-1", 19)
	if err != nil {
		t.Fatalf("record transaction: %v", err)
	}
	if fb.Fee != 0 || fb.Net != 19 || fb.Fee+fb.Net != fb.Gross {
		t.Fatalf("unexpected breakdown for small gross: %+v", fb)
	}

	stn, _ := svc.GetStation(ctx, "st-1")
	if stn.Volume != 100_019 || stn.FeesPaid != 5000 || stn.Pending != 95_019 {
		t.Fatalf("unexpected station totals: %+v", stn)
	}
}

// The intermediate product gross*bps does not fit in 64 bits for large gross;
// the split math must stay exact anyway.
func TestFeeMathLargeGross(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.RegisterStation(ctx, "admin", "st-1", "op-1")

	gross := uint64(1) << 60
	fb, err := svc.RecordTransaction(ctx, "st-1", gross)
	if err != nil {
		t.Fatalf("record transaction: %v", err)
	}
	// floor(2^60 * 500 / 10000) at the default 500 bps
	if fb.Fee != 57_646_075_230_342_348 {
		t.Fatalf("expected fee 57646075230342348, got %d", fb.Fee)
	}
	if fb.Fee+fb.Net != gross {
		t.Fatalf("fee %d + net %d != gross %d", fb.Fee, fb.Net, gross)
	}

	// accumulating past uint64 capacity is rejected, not wrapped
	if _, err := svc.RecordTransaction(ctx, "st-1", ^uint64(0)); !errors.Is(err, ledgersvc.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount on volume overflow, got %v", err)
	}
	stn, _ := svc.GetStation(ctx, "st-1")
	if stn.Volume != gross {
		t.Fatalf("rejected transaction mutated totals: %+v", stn)
	}
}

func TestSettlementFlow(t *testing.T) {
	svc, ldg := newTestService(t)
	ctx := context.Background()

	ldg.OptIn(ctx, "op-1")
	svc.RegisterStation(ctx, "admin", "st-1", "op-1")
	svc.RecordTransaction(ctx, "st-1", 100_000)

	// operator-only request
	if _, err := svc.RequestSettlement(ctx, "st-1", "mallory", ""); !errors.Is(err, ledgersvc.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	stl, err := svc.RequestSettlement(ctx, "st-1", "op-1", "")
	if err != nil {
		t.Fatalf("request settlement: %v", err)
	}
	if stl.Amount != 95_000 || stl.Status != station.StatusPending {
		t.Fatalf("unexpected settlement: %+v", stl)
	}

	// withdraw before approval is rejected
	if _, err := svc.Withdraw(ctx, stl.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	if _, err := svc.ApproveSettlement(ctx, "mallory", stl.ID); !errors.Is(err, ledgersvc.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	stl, err = svc.ApproveSettlement(ctx, "admin", stl.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.ApproveSettlement(ctx, "admin", stl.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double approval should fail, got %v", err)
	}

	stl, err = svc.Withdraw(ctx, stl.ID)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if stl.Status != station.StatusCompleted {
		t.Fatalf("expected completed, got %s", stl.Status)
	}

	acct, _ := ldg.GetAccount(ctx, "op-1")
	if acct.Balance != 95_000 {
		t.Fatalf("expected operator balance 95000, got %d", acct.Balance)
	}
	stn, _ := svc.GetStation(ctx, "st-1")
	if stn.Pending != 0 || stn.Settled != 95_000 {
		t.Fatalf("unexpected station counters: %+v", stn)
	}

	// a second withdraw on the completed settlement is rejected
	if _, err := svc.Withdraw(ctx, stl.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	// and nothing is left to settle
	if _, err := svc.RequestSettlement(ctx, "st-1", "op-1", ""); !errors.Is(err, ErrNothingPending) {
		t.Fatalf("expected ErrNothingPending, got %v", err)
	}
}

func TestSetFeeRate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.RegisterStation(ctx, "admin", "st-1", "op-1")

	if _, err := svc.SetFeeRateBps(ctx, "mallory", 100); !errors.Is(err, ledgersvc.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.SetFeeRateBps(ctx, "admin", 10_001); !errors.Is(err, ledgersvc.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount above 100%%, got %v", err)
	}
	if _, err := svc.SetFeeRateBps(ctx, "admin", 1000); err != nil {
		t.Fatalf("set fee rate: %v", err)
	}

	fb, err := svc.RecordTransaction(ctx, "st-1", 50_000)
	if err != nil {
		t.Fatalf("record transaction: %v", err)
	}
	if fb.Fee != 5000 || fb.Net != 45_000 {
		t.Fatalf("new rate not applied: %+v", fb)
	}
}

func TestDeactivateStation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.RegisterStation(ctx, "admin", "st-1", "op-1")

	stn, err := svc.DeactivateStation(ctx, "admin", "st-1")
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if stn.Active {
		t.Fatal("station still active")
	}
	// idempotent
	if _, err := svc.DeactivateStation(ctx, "admin", "st-1"); err != nil {
		t.Fatalf("repeat deactivate: %v", err)
	}

	if _, err := svc.RecordTransaction(ctx, "st-1", 100); !errors.Is(err, ErrStationInactive) {
		t.Fatalf("expected ErrStationInactive, got %v", err)
	}
}

// Package escrow brokers large buyer/seller purchases: a buyer's deposit is
// held in a vault account until dual confirmation, deadline lapse or an
// administrative dispute resolution releases it.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agrichain-io/token_layer/internal/app/domain/escrow"
	"github.com/agrichain-io/token_layer/internal/app/metrics"
	ledgersvc "github.com/agrichain-io/token_layer/internal/app/services/ledger"
	"github.com/agrichain-io/token_layer/internal/app/storage"
	"github.com/agrichain-io/token_layer/pkg/logger"
)

var (
	ErrInvalidState = errors.New("operation not allowed in current state")
)

// Service owns the escrow state machine. All fund movements go through the
// ledger via the vault account; each escrow moves funds buyer -> vault and
// vault -> (seller|buyer) at most once.
type Service struct {
	store  storage.EscrowStore
	ledger *ledgersvc.Service
	vault  string
	log    *logger.Logger
}

// New constructs the escrow service. vault is the ledger account that holds
// deposits; it must be opted in before the first deposit.
func New(store storage.EscrowStore, ledger *ledgersvc.Service, vault string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("escrow")
	}
	return &Service{
		store:  store,
		ledger: ledger,
		vault:  vault,
		log:    log,
	}
}

// Create opens an escrow between distinct buyer and seller.
func (s *Service) Create(ctx context.Context, id, buyer, seller string, amount uint64, deadline time.Time) (escrow.Escrow, error) {
	id = strings.TrimSpace(id)
	buyer = strings.TrimSpace(buyer)
	seller = strings.TrimSpace(seller)
	if id == "" || buyer == "" || seller == "" {
		return escrow.Escrow{}, fmt.Errorf("escrow id, buyer and seller are required")
	}
	if buyer == seller || amount == 0 {
		return escrow.Escrow{}, ledgersvc.ErrInvalidAmount
	}

	esc, err := s.store.CreateEscrow(ctx, escrow.Escrow{
		ID:       id,
		Buyer:    buyer,
		Seller:   seller,
		Amount:   amount,
		Status:   escrow.StatusCreated,
		Deadline: deadline,
	})
	if err != nil {
		return escrow.Escrow{}, err
	}

	s.log.WithField("escrow_id", id).
		WithField("buyer", buyer).
		WithField("seller", seller).
		WithField("amount", amount).
		Info("escrow created")
	return esc, nil
}

// Deposit moves the buyer's funds into the vault and marks the escrow funded.
func (s *Service) Deposit(ctx context.Context, id, caller string) (escrow.Escrow, error) {
	esc, err := s.store.GetEscrow(ctx, id)
	if err != nil {
		return escrow.Escrow{}, err
	}
	if caller != esc.Buyer {
		return escrow.Escrow{}, ledgersvc.ErrUnauthorized
	}
	if esc.Status != escrow.StatusCreated {
		return escrow.Escrow{}, ErrInvalidState
	}

	if err := s.ledger.Transfer(ctx, esc.Buyer, s.vault, esc.Amount); err != nil {
		return escrow.Escrow{}, err
	}

	esc.DepositAmount = esc.Amount
	esc.Status = escrow.StatusFunded
	esc, err = s.store.UpdateEscrow(ctx, esc)
	if err != nil {
		return escrow.Escrow{}, err
	}

	metrics.RecordEscrowEvent("funded")
	s.log.WithField("escrow_id", id).
		WithField("amount", esc.Amount).
		Info("escrow funded")
	return esc, nil
}

// ConfirmShipment records the seller's delivery claim on a funded escrow.
func (s *Service) ConfirmShipment(ctx context.Context, id, caller string) (escrow.Escrow, error) {
	esc, err := s.store.GetEscrow(ctx, id)
	if err != nil {
		return escrow.Escrow{}, err
	}
	if caller != esc.Seller {
		return escrow.Escrow{}, ledgersvc.ErrUnauthorized
	}
	if esc.Status != escrow.StatusFunded {
		return escrow.Escrow{}, ErrInvalidState
	}

	esc.SellerConfirmed = true
	esc.Status = escrow.StatusShipped
	esc, err = s.store.UpdateEscrow(ctx, esc)
	if err != nil {
		return escrow.Escrow{}, err
	}

	s.log.WithField("escrow_id", id).Info("shipment confirmed")
	return esc, nil
}

// ConfirmReceipt records the buyer's acceptance. It flips the buyer flag only;
// the status changes when the funds are released.
func (s *Service) ConfirmReceipt(ctx context.Context, id, caller string) (escrow.Escrow, error) {
	esc, err := s.store.GetEscrow(ctx, id)
	if err != nil {
		return escrow.Escrow{}, err
	}
	if caller != esc.Buyer {
		return escrow.Escrow{}, ledgersvc.ErrUnauthorized
	}
	if esc.Status != escrow.StatusShipped {
		return escrow.Escrow{}, ErrInvalidState
	}

	esc.BuyerConfirmed = true
	esc, err = s.store.UpdateEscrow(ctx, esc)
	if err != nil {
		return escrow.Escrow{}, err
	}

	s.log.WithField("escrow_id", id).Info("receipt confirmed")
	return esc, nil
}

// Release pays the deposit out to the seller. It is permitted when both
// parties confirmed, when the caller is the admin, or when the deadline has
// passed. It succeeds at most once per escrow.
func (s *Service) Release(ctx context.Context, id, caller string, now time.Time) (escrow.Escrow, error) {
	esc, err := s.store.GetEscrow(ctx, id)
	if err != nil {
		return escrow.Escrow{}, err
	}
	if esc.Status.Terminal() || esc.Status == escrow.StatusDisputed || esc.DepositAmount == 0 {
		return escrow.Escrow{}, ErrInvalidState
	}

	allowed := esc.BuyerConfirmed && esc.SellerConfirmed
	if !allowed && now.After(esc.Deadline) {
		allowed = true
	}
	if !allowed {
		ledgerState, err := s.ledger.State(ctx)
		if err != nil {
			return escrow.Escrow{}, err
		}
		allowed = caller != "" && caller == ledgerState.Admin
	}
	if !allowed {
		return escrow.Escrow{}, ledgersvc.ErrUnauthorized
	}

	if err := s.ledger.Transfer(ctx, s.vault, esc.Seller, esc.DepositAmount); err != nil {
		return escrow.Escrow{}, err
	}

	esc.Status = escrow.StatusCompleted
	esc, err = s.store.UpdateEscrow(ctx, esc)
	if err != nil {
		return escrow.Escrow{}, err
	}

	metrics.RecordEscrowEvent("released")
	s.log.WithField("escrow_id", id).
		WithField("amount", esc.DepositAmount).
		Info("escrow released to seller")
	return esc, nil
}

// RaiseDispute freezes the escrow in the disputed state. Only the buyer or
// the seller may raise one, and only before the escrow reaches a terminal
// state.
func (s *Service) RaiseDispute(ctx context.Context, id, caller, reason string) (escrow.Escrow, error) {
	esc, err := s.store.GetEscrow(ctx, id)
	if err != nil {
		return escrow.Escrow{}, err
	}
	if caller != esc.Buyer && caller != esc.Seller {
		return escrow.Escrow{}, ledgersvc.ErrUnauthorized
	}
	if esc.Status.Terminal() {
		return escrow.Escrow{}, ErrInvalidState
	}

	esc.Status = escrow.StatusDisputed
	esc.DisputeReason = strings.TrimSpace(reason)
	esc, err = s.store.UpdateEscrow(ctx, esc)
	if err != nil {
		return escrow.Escrow{}, err
	}

	metrics.RecordEscrowEvent("disputed")
	s.log.WithField("escrow_id", id).
		WithField("raised_by", caller).
		Warn("dispute raised")
	return esc, nil
}

// ResolveDispute settles a disputed escrow. Admin-only. The resolution picks
// where the deposit goes: back to the buyer, on to the seller, or split down
// the middle with the odd unit going to the seller.
func (s *Service) ResolveDispute(ctx context.Context, id, caller string, resolution escrow.Resolution) (escrow.Escrow, error) {
	ledgerState, err := s.ledger.State(ctx)
	if err != nil {
		return escrow.Escrow{}, err
	}
	if caller != ledgerState.Admin {
		return escrow.Escrow{}, ledgersvc.ErrUnauthorized
	}

	esc, err := s.store.GetEscrow(ctx, id)
	if err != nil {
		return escrow.Escrow{}, err
	}
	if esc.Status != escrow.StatusDisputed {
		return escrow.Escrow{}, ErrInvalidState
	}

	if esc.DepositAmount > 0 {
		switch resolution {
		case escrow.ResolutionRefundBuyer:
			err = s.ledger.Transfer(ctx, s.vault, esc.Buyer, esc.DepositAmount)
		case escrow.ResolutionPaySeller:
			err = s.ledger.Transfer(ctx, s.vault, esc.Seller, esc.DepositAmount)
		case escrow.ResolutionSplit:
			buyerShare := esc.DepositAmount / 2
			err = s.ledger.TransferSplit(ctx, s.vault, esc.Buyer, buyerShare, esc.Seller, esc.DepositAmount-buyerShare)
		default:
			return escrow.Escrow{}, fmt.Errorf("unknown resolution %q", resolution)
		}
		if err != nil {
			return escrow.Escrow{}, err
		}
	}

	esc.Status = escrow.StatusCompleted
	esc, err = s.store.UpdateEscrow(ctx, esc)
	if err != nil {
		return escrow.Escrow{}, err
	}

	metrics.RecordEscrowEvent("resolved")
	s.log.WithField("escrow_id", id).
		WithField("resolution", string(resolution)).
		Info("dispute resolved")
	return esc, nil
}

// Cancel aborts the escrow and refunds any deposit to the buyer. The admin
// can cancel unconditionally; the parties can cancel jointly once both
// confirmation flags are set (used as a mutual-cancel signal).
func (s *Service) Cancel(ctx context.Context, id, caller string) (escrow.Escrow, error) {
	esc, err := s.store.GetEscrow(ctx, id)
	if err != nil {
		return escrow.Escrow{}, err
	}
	if esc.Status.Terminal() {
		return escrow.Escrow{}, ErrInvalidState
	}

	ledgerState, err := s.ledger.State(ctx)
	if err != nil {
		return escrow.Escrow{}, err
	}
	isAdmin := caller == ledgerState.Admin
	isParty := caller == esc.Buyer || caller == esc.Seller
	mutual := esc.BuyerConfirmed && esc.SellerConfirmed
	if !isAdmin && !(isParty && mutual) {
		return escrow.Escrow{}, ledgersvc.ErrUnauthorized
	}

	if esc.DepositAmount > 0 {
		if err := s.ledger.Transfer(ctx, s.vault, esc.Buyer, esc.DepositAmount); err != nil {
			return escrow.Escrow{}, err
		}
	}

	esc.Status = escrow.StatusCancelled
	esc, err = s.store.UpdateEscrow(ctx, esc)
	if err != nil {
		return escrow.Escrow{}, err
	}

	metrics.RecordEscrowEvent("cancelled")
	s.log.WithField("escrow_id", id).
		WithField("cancelled_by", caller).
		Warn("escrow cancelled")
	return esc, nil
}

// GetEscrow returns an escrow by id.
func (s *Service) GetEscrow(ctx context.Context, id string) (escrow.Escrow, error) {
	return s.store.GetEscrow(ctx, id)
}

// ListEscrows returns all escrows.
func (s *Service) ListEscrows(ctx context.Context) ([]escrow.Escrow, error) {
	return s.store.ListEscrows(ctx)
}

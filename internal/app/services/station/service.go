// Package station registers revenue-collecting service points, records their
// gross transactions net of the platform fee, and pays operators out through
// an approval-gated settlement flow.
package station

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agrichain-io/token_layer/internal/app/domain/station"
	"github.com/agrichain-io/token_layer/internal/app/metrics"
	ledgersvc "github.com/agrichain-io/token_layer/internal/app/services/ledger"
	"github.com/agrichain-io/token_layer/internal/app/storage"
	"github.com/agrichain-io/token_layer/pkg/logger"
)

var (
	ErrStationInactive = errors.New("station is not active")
	ErrNothingPending  = errors.New("nothing pending to settle")
	ErrInvalidState    = errors.New("operation not allowed in current state")
)

// DefaultFeeRateBps applies until the admin configures a platform fee.
const DefaultFeeRateBps = 500

// Service owns station bookkeeping and the pending -> approved -> completed
// settlement state machine. Settlement payouts are the only point where the
// service touches the ledger.
type Service struct {
	store  storage.StationStore
	ledger *ledgersvc.Service
	key    ledgersvc.ModuleKey
	log    *logger.Logger
}

// New constructs the station settlement service.
func New(store storage.StationStore, ledger *ledgersvc.Service, key ledgersvc.ModuleKey, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("station")
	}
	return &Service{
		store:  store,
		ledger: ledger,
		key:    key,
		log:    log,
	}
}

func (s *Service) loadState(ctx context.Context) (station.State, error) {
	st, err := s.store.GetStationState(ctx)
	if err == nil {
		return st, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return station.State{FeeRateBps: DefaultFeeRateBps}, nil
	}
	return station.State{}, err
}

// RegisterStation creates an active station with zeroed counters. Admin-only.
func (s *Service) RegisterStation(ctx context.Context, caller, id, operator string) (station.Station, error) {
	id = strings.TrimSpace(id)
	operator = strings.TrimSpace(operator)
	if id == "" || operator == "" {
		return station.Station{}, fmt.Errorf("station id and operator are required")
	}

	ledgerState, err := s.ledger.State(ctx)
	if err != nil {
		return station.Station{}, err
	}
	if caller != ledgerState.Admin {
		return station.Station{}, ledgersvc.ErrUnauthorized
	}

	if _, err := s.store.GetStation(ctx, id); err == nil {
		return station.Station{}, ledgersvc.ErrAlreadyActive
	} else if !errors.Is(err, storage.ErrNotFound) {
		return station.Station{}, err
	}

	stn, err := s.store.CreateStation(ctx, station.Station{
		ID:       id,
		Operator: operator,
		Active:   true,
	})
	if err != nil {
		return station.Station{}, err
	}

	s.log.WithField("station_id", id).
		WithField("operator", operator).
		Info("station registered")
	return stn, nil
}

// feeFor computes floor(gross*bps/10000) without overflowing the intermediate
// product. Exact for bps <= 10000.
func feeFor(gross, bps uint64) uint64 {
	return gross/10000*bps + gross%10000*bps/10000
}

// RecordTransaction books a gross amount collected by the station. The
// platform fee is floored basis-point math, so fee + net always equals gross
// and the same gross on a fresh station always yields identical totals.
func (s *Service) RecordTransaction(ctx context.Context, stationID string, gross uint64) (station.FeeBreakdown, error) {
	if gross == 0 {
		return station.FeeBreakdown{}, ledgersvc.ErrInvalidAmount
	}

	stn, err := s.store.GetStation(ctx, stationID)
	if err != nil {
		return station.FeeBreakdown{}, err
	}
	if !stn.Active {
		return station.FeeBreakdown{}, ErrStationInactive
	}

	st, err := s.loadState(ctx)
	if err != nil {
		return station.FeeBreakdown{}, err
	}

	fee := feeFor(gross, st.FeeRateBps)
	net := gross - fee

	if stn.Volume+gross < stn.Volume || stn.Pending+net < stn.Pending {
		return station.FeeBreakdown{}, ledgersvc.ErrInvalidAmount
	}
	stn.Volume += gross
	stn.FeesPaid += fee
	stn.Pending += net
	if _, err := s.store.UpdateStation(ctx, stn); err != nil {
		return station.FeeBreakdown{}, err
	}

	breakdown := station.FeeBreakdown{Gross: gross, Fee: fee, Net: net}
	s.log.WithField("station_id", stationID).
		WithField("gross", gross).
		WithField("fee", fee).
		WithField("net", net).
		Info("transaction recorded")
	return breakdown, nil
}

// RequestSettlement snapshots the station's pending amount into a settlement
// record. Only the registered operator may request; a blank settlement id is
// generated.
func (s *Service) RequestSettlement(ctx context.Context, stationID, caller, settlementID string) (station.Settlement, error) {
	stn, err := s.store.GetStation(ctx, stationID)
	if err != nil {
		return station.Settlement{}, err
	}
	if caller != stn.Operator {
		return station.Settlement{}, ledgersvc.ErrUnauthorized
	}
	if stn.Pending == 0 {
		return station.Settlement{}, ErrNothingPending
	}

	if strings.TrimSpace(settlementID) == "" {
		settlementID = uuid.NewString()
	}

	stl, err := s.store.CreateSettlement(ctx, station.Settlement{
		ID:          settlementID,
		StationID:   stationID,
		Amount:      stn.Pending,
		Status:      station.StatusPending,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return station.Settlement{}, err
	}

	s.log.WithField("settlement_id", stl.ID).
		WithField("station_id", stationID).
		WithField("amount", stl.Amount).
		Info("settlement requested")
	return stl, nil
}

// ApproveSettlement moves a settlement from pending to approved. Admin-only;
// the state machine only moves forward.
func (s *Service) ApproveSettlement(ctx context.Context, caller, settlementID string) (station.Settlement, error) {
	ledgerState, err := s.ledger.State(ctx)
	if err != nil {
		return station.Settlement{}, err
	}
	if caller != ledgerState.Admin {
		return station.Settlement{}, ledgersvc.ErrUnauthorized
	}

	stl, err := s.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return station.Settlement{}, err
	}
	if stl.Status != station.StatusPending {
		return station.Settlement{}, ErrInvalidState
	}

	stl.Status = station.StatusApproved
	stl.ApprovedAt = time.Now().UTC()
	stl, err = s.store.UpdateSettlement(ctx, stl)
	if err != nil {
		return station.Settlement{}, err
	}

	s.log.WithField("settlement_id", settlementID).Info("settlement approved")
	return stl, nil
}

// Withdraw completes an approved settlement: the settled amount is minted to
// the operator and the station's pending/settled counters move accordingly.
func (s *Service) Withdraw(ctx context.Context, settlementID string) (station.Settlement, error) {
	stl, err := s.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return station.Settlement{}, err
	}
	if stl.Status != station.StatusApproved {
		return station.Settlement{}, ErrInvalidState
	}

	stn, err := s.store.GetStation(ctx, stl.StationID)
	if err != nil {
		return station.Settlement{}, err
	}
	if stn.Pending < stl.Amount {
		return station.Settlement{}, ErrNothingPending
	}

	if _, err := s.ledger.Mint(ctx, stn.Operator, stl.Amount, s.key); err != nil {
		return station.Settlement{}, err
	}

	stn.Pending -= stl.Amount
	stn.Settled += stl.Amount
	if _, err := s.store.UpdateStation(ctx, stn); err != nil {
		return station.Settlement{}, err
	}

	stl.Status = station.StatusCompleted
	stl.CompletedAt = time.Now().UTC()
	stl, err = s.store.UpdateSettlement(ctx, stl)
	if err != nil {
		return station.Settlement{}, err
	}

	metrics.RecordSettlementCompleted()
	s.log.WithField("settlement_id", settlementID).
		WithField("station_id", stl.StationID).
		WithField("amount", stl.Amount).
		Info("settlement paid out")
	return stl, nil
}

// SetFeeRateBps updates the platform fee rate. Admin-only; capped at 100%.
func (s *Service) SetFeeRateBps(ctx context.Context, caller string, bps uint64) (station.State, error) {
	ledgerState, err := s.ledger.State(ctx)
	if err != nil {
		return station.State{}, err
	}
	if caller != ledgerState.Admin {
		return station.State{}, ledgersvc.ErrUnauthorized
	}
	if bps > 10000 {
		return station.State{}, ledgersvc.ErrInvalidAmount
	}

	st, err := s.loadState(ctx)
	if err != nil {
		return station.State{}, err
	}
	st.FeeRateBps = bps
	st, err = s.store.SaveStationState(ctx, st)
	if err != nil {
		return station.State{}, err
	}
	s.log.WithField("fee_rate_bps", bps).Info("fee rate updated")
	return st, nil
}

// DeactivateStation stops a station from recording transactions. Admin-only.
// Pending amounts stay settleable.
func (s *Service) DeactivateStation(ctx context.Context, caller, id string) (station.Station, error) {
	ledgerState, err := s.ledger.State(ctx)
	if err != nil {
		return station.Station{}, err
	}
	if caller != ledgerState.Admin {
		return station.Station{}, ledgersvc.ErrUnauthorized
	}

	stn, err := s.store.GetStation(ctx, id)
	if err != nil {
		return station.Station{}, err
	}
	if !stn.Active {
		return stn, nil
	}

	stn.Active = false
	stn, err = s.store.UpdateStation(ctx, stn)
	if err != nil {
		return station.Station{}, err
	}
	s.log.WithField("station_id", id).Warn("station deactivated")
	return stn, nil
}

// GetStation returns a station by id.
func (s *Service) GetStation(ctx context.Context, id string) (station.Station, error) {
	return s.store.GetStation(ctx, id)
}

// ListStations returns all registered stations.
func (s *Service) ListStations(ctx context.Context) ([]station.Station, error) {
	return s.store.ListStations(ctx)
}

// GetSettlement returns a settlement by id.
func (s *Service) GetSettlement(ctx context.Context, id string) (station.Settlement, error) {
	return s.store.GetSettlement(ctx, id)
}

// ListSettlements returns settlements, optionally filtered by station.
func (s *Service) ListSettlements(ctx context.Context, stationID string) ([]station.Settlement, error) {
	return s.store.ListSettlements(ctx, stationID)
}

// State returns the settlement settings.
func (s *Service) State(ctx context.Context) (station.State, error) {
	return s.loadState(ctx)
}

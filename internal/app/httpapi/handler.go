// Package httpapi exposes the token layer over REST. The surrounding
// deployment authenticates callers and forwards the verified identity in the
// X-Caller header; this package only translates payloads and error kinds.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	app "github.com/agrichain-io/token_layer/internal/app"
	"github.com/agrichain-io/token_layer/internal/app/domain/escrow"
	"github.com/agrichain-io/token_layer/internal/app/domain/governance"
	escrowsvc "github.com/agrichain-io/token_layer/internal/app/services/escrow"
	governancesvc "github.com/agrichain-io/token_layer/internal/app/services/governance"
	ledgersvc "github.com/agrichain-io/token_layer/internal/app/services/ledger"
	stationsvc "github.com/agrichain-io/token_layer/internal/app/services/station"
	"github.com/agrichain-io/token_layer/internal/app/storage"
)

// CallerHeader carries the identity verified by the outer layer.
const CallerHeader = "X-Caller"

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	audit *auditLog
}

// Options tune the handler.
type Options struct {
	AuditFile string
}

// NewHandler returns a mux exposing the core REST API.
func NewHandler(application *app.Application) http.Handler {
	return NewHandlerWithOptions(application, Options{})
}

// NewHandlerWithOptions returns a mux with explicit options.
func NewHandlerWithOptions(application *app.Application, opts Options) http.Handler {
	sink, err := newFileAuditSink(opts.AuditFile)
	if err != nil {
		sink = nil
	}
	h := &handler{app: application, audit: newAuditLog(0, sink)}

	mux := http.NewServeMux()
	mux.HandleFunc("/accounts", h.accounts)
	mux.HandleFunc("/accounts/", h.accountResources)
	mux.HandleFunc("/state", h.state)
	mux.HandleFunc("/state/pause", h.pause)
	mux.HandleFunc("/governance", h.governance)
	mux.HandleFunc("/proposals", h.proposals)
	mux.HandleFunc("/proposals/", h.proposalResources)
	mux.HandleFunc("/stations", h.stations)
	mux.HandleFunc("/stations/", h.stationResources)
	mux.HandleFunc("/settlements/", h.settlementResources)
	mux.HandleFunc("/fees", h.fees)
	mux.HandleFunc("/escrows", h.escrows)
	mux.HandleFunc("/escrows/", h.escrowResources)
	mux.HandleFunc("/audit", h.auditEntries)
	return mux
}

func caller(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(CallerHeader))
}

// Accounts ---------------------------------------------------------------------

func (h *handler) accounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Address string `json:"address"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		acct, err := h.app.Ledger.OptIn(r.Context(), payload.Address)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, acct)

	case http.MethodGet:
		accts, err := h.app.Ledger.ListAccounts(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, accts)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) accountResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/accounts"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	address := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		acct, err := h.app.Ledger.GetAccount(r.Context(), address)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, acct)
		return
	}

	switch parts[1] {
	case "transfer":
		h.accountTransfer(w, r, address)
	case "burn":
		h.accountBurn(w, r, address)
	case "freeze":
		h.accountFreeze(w, r, address)
	case "rewards":
		h.accountRewards(w, r, address, parts[2:])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) accountTransfer(w http.ResponseWriter, r *http.Request, address string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if caller(r) != address {
		writeError(w, http.StatusForbidden, fmt.Errorf("caller does not own account"))
		return
	}
	var payload struct {
		Recipient string `json:"recipient"`
		Amount    uint64 `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Ledger.Transfer(r.Context(), address, payload.Recipient, payload.Amount); err != nil {
		writeServiceError(w, err)
		return
	}
	acct, err := h.app.Ledger.GetAccount(r.Context(), address)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *handler) accountBurn(w http.ResponseWriter, r *http.Request, address string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if caller(r) != address {
		writeError(w, http.StatusForbidden, fmt.Errorf("caller does not own account"))
		return
	}
	var payload struct {
		Amount uint64 `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	acct, err := h.app.Ledger.Burn(r.Context(), address, payload.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *handler) accountFreeze(w http.ResponseWriter, r *http.Request, address string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Frozen bool `json:"frozen"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	acct, err := h.app.Ledger.SetFrozen(r.Context(), caller(r), address, payload.Frozen)
	h.recordAudit(r, "freeze", address, err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *handler) accountRewards(w http.ResponseWriter, r *http.Request, address string, rest []string) {
	if len(rest) == 0 || rest[0] == "" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		prof, err := h.app.Rewards.GetProfile(r.Context(), address)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, prof)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch rest[0] {
	case "activity":
		var payload struct {
			CarbonKg int64 `json:"carbon_kg"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		prof, err := h.app.Rewards.RegisterActivity(r.Context(), address, payload.CarbonKg)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, prof)
	case "claim":
		if caller(r) != address {
			writeError(w, http.StatusForbidden, fmt.Errorf("caller does not own account"))
			return
		}
		amount, err := h.app.Rewards.Claim(r.Context(), address)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]uint64{"claimed": amount})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Ledger state -----------------------------------------------------------------

func (h *handler) state(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	st, err := h.app.Ledger.State(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) pause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Paused bool `json:"paused"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := h.app.Ledger.SetPaused(r.Context(), caller(r), payload.Paused)
	h.recordAudit(r, "pause", fmt.Sprintf("%t", payload.Paused), err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	st, err := h.app.Ledger.State(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Governance -------------------------------------------------------------------

func (h *handler) governance(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		st, err := h.app.Governance.State(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, st)

	case http.MethodPost:
		var payload struct {
			RequiredApprovals int `json:"required_approvals"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		st, err := h.app.Governance.SetRequiredApprovals(r.Context(), caller(r), payload.RequiredApprovals)
		h.recordAudit(r, "set_quorum", fmt.Sprintf("%d", payload.RequiredApprovals), err)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) proposals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Type      string `json:"type"`
			Recipient string `json:"recipient"`
			Amount    uint64 `json:"amount"`
			Memo      string `json:"memo"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		prop, err := h.app.Governance.Propose(r.Context(), caller(r),
			governance.ProposalType(payload.Type),
			governance.Payload{Recipient: payload.Recipient, Amount: payload.Amount, Memo: payload.Memo},
			time.Now().UTC())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, prop)

	case http.MethodGet:
		props, err := h.app.Governance.ListProposals(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, props)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) proposalResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/proposals"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		prop, err := h.app.Governance.GetProposal(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, prop)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch parts[1] {
	case "votes":
		var payload struct {
			Approve bool `json:"approve"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		prop, err := h.app.Governance.Vote(r.Context(), id, caller(r), payload.Approve, time.Now().UTC())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, prop)

	case "execute":
		result, err := h.app.Governance.Execute(r.Context(), id, time.Now().UTC())
		h.recordAudit(r, "execute_proposal", id, err)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response := map[string]interface{}{"proposal": result.Proposal}
		// complete authorized mints immediately so the grant is not stranded
		if result.Grant != nil {
			acct, err := h.app.Ledger.Mint(r.Context(), result.Grant.Recipient(), result.Grant.Amount(), result.Grant)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			response["minted"] = acct
		}
		writeJSON(w, http.StatusOK, response)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Stations ---------------------------------------------------------------------

func (h *handler) stations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			ID       string `json:"id"`
			Operator string `json:"operator"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		stn, err := h.app.Stations.RegisterStation(r.Context(), caller(r), payload.ID, payload.Operator)
		h.recordAudit(r, "register_station", payload.ID, err)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, stn)

	case http.MethodGet:
		stns, err := h.app.Stations.ListStations(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, stns)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) stationResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/stations"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		stn, err := h.app.Stations.GetStation(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stn)
		return
	}

	switch parts[1] {
	case "transactions":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Gross uint64 `json:"gross"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		breakdown, err := h.app.Stations.RecordTransaction(r.Context(), id, payload.Gross)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, breakdown)

	case "settlements":
		switch r.Method {
		case http.MethodPost:
			var payload struct {
				SettlementID string `json:"settlement_id"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			stl, err := h.app.Stations.RequestSettlement(r.Context(), id, caller(r), payload.SettlementID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, stl)
		case http.MethodGet:
			stls, err := h.app.Stations.ListSettlements(r.Context(), id)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, stls)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	case "deactivate":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		stn, err := h.app.Stations.DeactivateStation(r.Context(), caller(r), id)
		h.recordAudit(r, "deactivate_station", id, err)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stn)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) settlementResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/settlements"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		stl, err := h.app.Stations.GetSettlement(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stl)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch parts[1] {
	case "approve":
		stl, err := h.app.Stations.ApproveSettlement(r.Context(), caller(r), id)
		h.recordAudit(r, "approve_settlement", id, err)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stl)
	case "withdraw":
		stl, err := h.app.Stations.Withdraw(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stl)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) fees(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		st, err := h.app.Stations.State(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, st)

	case http.MethodPost:
		var payload struct {
			FeeRateBps uint64 `json:"fee_rate_bps"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		st, err := h.app.Stations.SetFeeRateBps(r.Context(), caller(r), payload.FeeRateBps)
		h.recordAudit(r, "set_fee_rate", fmt.Sprintf("%d", payload.FeeRateBps), err)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Escrows ----------------------------------------------------------------------

func (h *handler) escrows(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			ID       string    `json:"id"`
			Buyer    string    `json:"buyer"`
			Seller   string    `json:"seller"`
			Amount   uint64    `json:"amount"`
			Deadline time.Time `json:"deadline"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		esc, err := h.app.Escrows.Create(r.Context(), payload.ID, payload.Buyer, payload.Seller, payload.Amount, payload.Deadline)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, esc)

	case http.MethodGet:
		escs, err := h.app.Escrows.ListEscrows(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, escs)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) escrowResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/escrows"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		esc, err := h.app.Escrows.GetEscrow(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, esc)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var (
		esc interface{}
		err error
	)
	switch parts[1] {
	case "deposit":
		esc, err = h.app.Escrows.Deposit(r.Context(), id, caller(r))
	case "ship":
		esc, err = h.app.Escrows.ConfirmShipment(r.Context(), id, caller(r))
	case "receive":
		esc, err = h.app.Escrows.ConfirmReceipt(r.Context(), id, caller(r))
	case "release":
		esc, err = h.app.Escrows.Release(r.Context(), id, caller(r), time.Now().UTC())
	case "dispute":
		var payload struct {
			Reason string `json:"reason"`
		}
		if derr := decodeJSON(r.Body, &payload); derr != nil {
			writeError(w, http.StatusBadRequest, derr)
			return
		}
		esc, err = h.app.Escrows.RaiseDispute(r.Context(), id, caller(r), payload.Reason)
	case "resolve":
		var payload struct {
			Resolution string `json:"resolution"`
		}
		if derr := decodeJSON(r.Body, &payload); derr != nil {
			writeError(w, http.StatusBadRequest, derr)
			return
		}
		esc, err = h.app.Escrows.ResolveDispute(r.Context(), id, caller(r), escrow.Resolution(payload.Resolution))
		h.recordAudit(r, "resolve_dispute", id, err)
	case "cancel":
		esc, err = h.app.Escrows.Cancel(r.Context(), id, caller(r))
		h.recordAudit(r, "cancel_escrow", id, err)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, esc)
}

// Audit ------------------------------------------------------------------------

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.audit.list())
}

func (h *handler) recordAudit(r *http.Request, operation, target string, err error) {
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}
	h.audit.add(auditEntry{
		Time:      time.Now().UTC(),
		Caller:    caller(r),
		Operation: operation,
		Target:    target,
		Status:    status,
	})
}

// Helpers ----------------------------------------------------------------------

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// writeServiceError maps core error kinds onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledgersvc.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ledgersvc.ErrAlreadyActive),
		errors.Is(err, governancesvc.ErrAlreadyExecuted),
		errors.Is(err, governancesvc.ErrExpired),
		errors.Is(err, governancesvc.ErrQuorumNotMet),
		errors.Is(err, stationsvc.ErrInvalidState),
		errors.Is(err, escrowsvc.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ledgersvc.ErrInsufficientBalance),
		errors.Is(err, ledgersvc.ErrInvalidAmount),
		errors.Is(err, ledgersvc.ErrPaused),
		errors.Is(err, ledgersvc.ErrFrozen),
		errors.Is(err, stationsvc.ErrStationInactive),
		errors.Is(err, stationsvc.ErrNothingPending):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

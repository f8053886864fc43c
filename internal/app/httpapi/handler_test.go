package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	app "github.com/agrichain-io/token_layer/internal/app"
	"github.com/agrichain-io/token_layer/internal/app/domain/governance"
	"github.com/agrichain-io/token_layer/internal/app/domain/ledger"
	"github.com/agrichain-io/token_layer/internal/app/domain/station"
)

const adminCaller = "admin"

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	application, err := app.New(app.Config{Admin: adminCaller}, app.Stores{}, nil)
	require.NoError(t, err)
	return NewHandler(application)
}

func doRequest(t *testing.T, h http.Handler, method, path, asCaller string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if asCaller != "" {
		req.Header.Set(CallerHeader, asCaller)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

// mintVia runs a mint proposal through the governance endpoints. The default
// quorum is three approvals, the creator's included.
func mintVia(t *testing.T, h http.Handler, recipient string, amount uint64) {
	t.Helper()
	rec := doRequest(t, h, http.MethodPost, "/proposals", "signer-1", map[string]interface{}{
		"type":      string(governance.TypeMint),
		"recipient": recipient,
		"amount":    amount,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var prop governance.Proposal
	decodeBody(t, rec, &prop)

	for _, voter := range []string{"signer-2", "signer-3"} {
		rec = doRequest(t, h, http.MethodPost, "/proposals/"+prop.ID+"/votes", voter, map[string]bool{"approve": true})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodPost, "/proposals/"+prop.ID+"/execute", "signer-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAccountLifecycle(t *testing.T) {
	h := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/accounts", "alice", map[string]string{"address": "alice"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(t, h, http.MethodPost, "/accounts", "bob", map[string]string{"address": "bob"})
	require.Equal(t, http.StatusCreated, rec.Code)

	mintVia(t, h, "alice", 1000)

	rec = doRequest(t, h, http.MethodGet, "/accounts/alice", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var acct ledger.Account
	decodeBody(t, rec, &acct)
	require.Equal(t, uint64(1000), acct.Balance)

	rec = doRequest(t, h, http.MethodPost, "/accounts/alice/transfer", "alice", map[string]interface{}{
		"recipient": "bob", "amount": 400,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, h, http.MethodPost, "/accounts/bob/burn", "bob", map[string]uint64{"amount": 100})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &acct)
	require.Equal(t, uint64(300), acct.Balance)

	rec = doRequest(t, h, http.MethodGet, "/state", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st ledger.State
	decodeBody(t, rec, &st)
	require.Equal(t, uint64(900), st.TotalSupply)
}

func TestErrorStatuses(t *testing.T) {
	h := newTestHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/accounts/ghost", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/accounts", "alice", map[string]string{"address": "alice"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(t, h, http.MethodPost, "/accounts", "bob", map[string]string{"address": "bob"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// empty balance
	rec = doRequest(t, h, http.MethodPost, "/accounts/alice/transfer", "alice", map[string]interface{}{
		"recipient": "bob", "amount": 10,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// caller mismatch on owner-only routes
	rec = doRequest(t, h, http.MethodPost, "/accounts/alice/transfer", "mallory", map[string]interface{}{
		"recipient": "bob", "amount": 10,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// non-admin freeze
	rec = doRequest(t, h, http.MethodPost, "/accounts/alice/freeze", "mallory", map[string]bool{"frozen": true})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// malformed payload
	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPauseBlocksTransfers(t *testing.T) {
	h := newTestHandler(t)

	doRequest(t, h, http.MethodPost, "/accounts", "alice", map[string]string{"address": "alice"})
	doRequest(t, h, http.MethodPost, "/accounts", "bob", map[string]string{"address": "bob"})
	mintVia(t, h, "alice", 500)

	rec := doRequest(t, h, http.MethodPost, "/state/pause", adminCaller, map[string]bool{"paused": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/accounts/alice/transfer", "alice", map[string]interface{}{
		"recipient": "bob", "amount": 100,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/state/pause", adminCaller, map[string]bool{"paused": false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/accounts/alice/transfer", "alice", map[string]interface{}{
		"recipient": "bob", "amount": 100,
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRewardsEndpoints(t *testing.T) {
	h := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/accounts", "farmer", map[string]string{"address": "farmer"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/accounts/farmer/rewards/activity", "oracle", map[string]int64{"carbon_kg": 25})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, h, http.MethodPost, "/accounts/farmer/rewards/claim", "farmer", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var claim map[string]uint64
	decodeBody(t, rec, &claim)
	require.Equal(t, uint64(25*1000), claim["claimed"])

	rec = doRequest(t, h, http.MethodGet, "/accounts/farmer", "", nil)
	var acct ledger.Account
	decodeBody(t, rec, &acct)
	require.Equal(t, uint64(25000), acct.Balance)
}

func TestStationSettlementFlow(t *testing.T) {
	h := newTestHandler(t)

	doRequest(t, h, http.MethodPost, "/accounts", "op-1", map[string]string{"address": "op-1"})

	rec := doRequest(t, h, http.MethodPost, "/stations", adminCaller, map[string]string{
		"id": "st-1", "operator": "op-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, h, http.MethodPost, "/stations/st-1/transactions", "op-1", map[string]uint64{"gross": 100000})
	require.Equal(t, http.StatusCreated, rec.Code)
	var fb station.FeeBreakdown
	decodeBody(t, rec, &fb)
	require.Equal(t, uint64(5000), fb.Fee)
	require.Equal(t, uint64(95000), fb.Net)

	rec = doRequest(t, h, http.MethodPost, "/stations/st-1/settlements", "op-1", map[string]string{})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var stl station.Settlement
	decodeBody(t, rec, &stl)
	require.Equal(t, station.StatusPending, stl.Status)

	rec = doRequest(t, h, http.MethodPost, fmt.Sprintf("/settlements/%s/approve", stl.ID), adminCaller, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodPost, fmt.Sprintf("/settlements/%s/withdraw", stl.ID), "op-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeBody(t, rec, &stl)
	require.Equal(t, station.StatusCompleted, stl.Status)

	rec = doRequest(t, h, http.MethodGet, "/accounts/op-1", "", nil)
	var acct ledger.Account
	decodeBody(t, rec, &acct)
	require.Equal(t, uint64(95000), acct.Balance)
}

func TestEscrowEndpoints(t *testing.T) {
	h := newTestHandler(t)

	doRequest(t, h, http.MethodPost, "/accounts", "buyer", map[string]string{"address": "buyer"})
	doRequest(t, h, http.MethodPost, "/accounts", "seller", map[string]string{"address": "seller"})
	mintVia(t, h, "buyer", 5000)

	rec := doRequest(t, h, http.MethodPost, "/escrows", "buyer", map[string]interface{}{
		"id": "esc-1", "buyer": "buyer", "seller": "seller", "amount": 5000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, h, http.MethodPost, "/escrows/esc-1/deposit", "buyer", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, h, http.MethodPost, "/escrows/esc-1/ship", "seller", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, h, http.MethodPost, "/escrows/esc-1/receive", "buyer", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, h, http.MethodPost, "/escrows/esc-1/release", "buyer", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, h, http.MethodGet, "/accounts/seller", "", nil)
	var acct ledger.Account
	decodeBody(t, rec, &acct)
	require.Equal(t, uint64(5000), acct.Balance)

	// a second release must not move funds again
	rec = doRequest(t, h, http.MethodPost, "/escrows/esc-1/release", "buyer", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuditTrail(t *testing.T) {
	h := newTestHandler(t)

	doRequest(t, h, http.MethodPost, "/accounts", "alice", map[string]string{"address": "alice"})
	rec := doRequest(t, h, http.MethodPost, "/accounts/alice/freeze", adminCaller, map[string]bool{"frozen": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/audit", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []auditEntry
	decodeBody(t, rec, &entries)
	require.Len(t, entries, 1)
	require.Equal(t, "freeze", entries[0].Operation)
	require.Equal(t, adminCaller, entries[0].Caller)
	require.Equal(t, "alice", entries[0].Target)
}

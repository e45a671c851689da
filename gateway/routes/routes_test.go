package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"onecoupon/faucet"
	"onecoupon/gateway/middleware"
	"onecoupon/ledger"
	"onecoupon/ptb"
	"onecoupon/screens"
	"onecoupon/wallet"
)

const (
	owner       = "0x00000000000000000000000000000000000000000000000000000000000000aa"
	packageID   = "0x000000000000000000000000000000000000000000000000000000000000c0de"
	merchantID  = "0x00000000000000000000000000000000000000000000000000000000000000m1"
	couponID    = "0x00000000000000000000000000000000000000000000000000000000000000c1"
	hmacSecret  = "serve-secret"
	submittedTx = "SubmittedDigest"
)

type stubLedger struct {
	history []ledger.Transaction
}

func (stubLedger) Balance(context.Context, string, string) (ledger.BalanceResult, error) {
	return ledger.BalanceResult{TotalBalance: "2000000000"}, nil
}

func (stubLedger) OwnedObjects(_ context.Context, addr, structType, _ string, _ int) (ledger.OwnedObjectsResult, error) {
	var res ledger.OwnedObjectsResult
	switch {
	case strings.HasSuffix(structType, "::Merchant"):
		res.Objects = []ledger.Object{{ID: merchantID, Type: structType, Owner: ledger.Owner{Kind: ledger.OwnerAddress, Address: addr}}}
	case strings.HasSuffix(structType, "::Coupon"):
		content := fmt.Sprintf(`{"id":{"id":%q},"code":[83,65,86,69],"value_bps":2000,"max_uses":1,"used":0,"expires_at_ms":"%d","merchant":%q}`,
			couponID, time.Now().Add(24*time.Hour).UnixMilli(), merchantID)
		res.Objects = []ledger.Object{{ID: couponID, Type: structType, Owner: ledger.Owner{Kind: ledger.OwnerAddress, Address: addr}, Content: json.RawMessage(content)}}
	}
	return res, nil
}

func (s stubLedger) TransactionHistory(context.Context, ledger.HistoryQuery) (ledger.HistoryResult, error) {
	return ledger.HistoryResult{Transactions: s.history}, nil
}

func (stubLedger) ChainIdentifier(context.Context) (string, error) { return "4c78adac", nil }

type stubFaucet struct{}

func (stubFaucet) Request(context.Context, string) (faucet.Result, error) {
	return faucet.Result{Digest: "FaucetDigest"}, nil
}

type recorder struct {
	mu    sync.Mutex
	calls []*ptb.CallDescriptor
}

func (r *recorder) submit(_ context.Context, desc *ptb.CallDescriptor) (wallet.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, desc)
	return wallet.Receipt{Digest: submittedTx}, nil
}

type harness struct {
	server  *httptest.Server
	session *wallet.Session
	wallet  *recorder
}

func newHarness(t *testing.T, auth bool) *harness {
	t.Helper()
	node := stubLedger{history: []ledger.Transaction{{Digest: "HistoryDigest", Status: ledger.StatusSuccess}}}
	session := wallet.NewSession("testnet", "testnet")
	rec := &recorder{}
	session.Connect(wallet.FuncWallet{Address: owner, SubmitFunc: rec.submit})

	deps := screens.Deps{
		Session: session,
		Networks: screens.StaticNetworks(map[string]screens.Network{"testnet": {
			Ledger:      node,
			Faucet:      faucet.NewGate(stubFaucet{}, faucet.NewCooldown(time.Minute)),
			ExplorerURL: "https://onescan.cc",
		}}),
		Contract:    ptb.Config{PackageID: packageID, Module: "coupon"},
		CoinType:    "0x2::oct::OCT",
		SettleDelay: time.Hour,
	}
	set := Screens{
		Issue:    screens.NewIssueScreen(deps),
		Coupons:  screens.NewCouponsScreen(deps),
		Faucet:   screens.NewFaucetScreen(deps),
		Activity: screens.NewActivityScreen(deps),
		Network:  screens.NewNetworkScreen(deps),
	}
	t.Cleanup(set.Issue.Close)
	t.Cleanup(set.Faucet.Close)

	reg := prometheus.NewRegistry()
	handler := New(Config{
		Screens:       set,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{Enabled: auth, HMACSecret: hmacSecret}, nil),
		RateLimiter:   middleware.NewRateLimiter(middleware.RateLimit{RequestsPerMinute: 6000, Burst: 100}, nil),
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{Registerer: reg, Gatherer: reg}, nil),
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &harness{server: server, session: session, wallet: rec}
}

func (h *harness) do(t *testing.T, method, path, body, token string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, h.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := h.server.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	var payload map[string]interface{}
	if strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	}
	return res, payload
}

func signedToken(t *testing.T) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "console",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(hmacSecret))
	require.NoError(t, err)
	return signed
}

func TestHealthAndNetwork(t *testing.T) {
	h := newHarness(t, false)
	res, _ := h.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NotEmpty(t, res.Header.Get(middleware.HeaderRequestID))

	res, body := h.do(t, http.MethodGet, "/api/network", "", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "4c78adac", body["chain_id"])
	require.Equal(t, "Connected", body["wallet"])
}

func TestIssueRequiresToken(t *testing.T) {
	h := newHarness(t, true)
	form := fmt.Sprintf(`{"recipient":%q,"code":"SAVE20","value_bps":2000,"max_uses":1,"expires_at":%q}`,
		owner, time.Now().Add(48*time.Hour).UTC().Format(time.RFC3339))

	res, _ := h.do(t, http.MethodPost, "/api/coupons/issue", form, "")
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, body := h.do(t, http.MethodPost, "/api/coupons/issue", form, signedToken(t))
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, submittedTx, body["digest"])
	require.Len(t, h.wallet.calls, 1)
	require.Equal(t, "issue", h.wallet.calls[0].Function)
	require.Equal(t, merchantID, h.wallet.calls[0].Arguments[0].Text)

	view := body["view"].(map[string]interface{})
	outcome := view["outcome"].(map[string]interface{})
	require.Equal(t, "Coupon issued successfully! Transaction: "+submittedTx, outcome["message"])
}

func TestIssueValidationRendersInline(t *testing.T) {
	h := newHarness(t, false)
	form := fmt.Sprintf(`{"recipient":%q,"code":"X","value_bps":0,"max_uses":1,"expires_at":%q}`,
		owner, time.Now().Add(time.Hour).UTC().Format(time.RFC3339))
	res, body := h.do(t, http.MethodPost, "/api/coupons/issue", form, "")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Contains(t, body["error"], "value_bps")
	require.Empty(t, h.wallet.calls)

	res, _ = h.do(t, http.MethodPost, "/api/coupons/issue", `{"unknown":1}`, "")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestPreviewAndRedeem(t *testing.T) {
	h := newHarness(t, false)
	res, body := h.do(t, http.MethodGet, "/api/coupons/"+couponID+"/preview?total=10.0", "", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "2.000", body["discount"])
	require.Equal(t, "8.000", body["final_total"])

	for _, total := range []string{"abc", "NaN", "Inf", "1e3", "0"} {
		res, _ = h.do(t, http.MethodGet, "/api/coupons/"+couponID+"/preview?total="+total, "", "")
		require.Equal(t, http.StatusBadRequest, res.StatusCode, total)
	}
	res, _ = h.do(t, http.MethodPost, "/api/coupons/"+couponID+"/redeem", `{"order_total":"NaN"}`, "")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Empty(t, h.wallet.calls)
	res, _ = h.do(t, http.MethodGet, "/api/coupons/0xmissing/preview?total=1", "", "")
	require.Equal(t, http.StatusNotFound, res.StatusCode)

	res, body = h.do(t, http.MethodPost, "/api/coupons/"+couponID+"/redeem", `{"order_total":"10.0"}`, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, submittedTx, body["digest"])
	require.Equal(t, uint64(10_000_000_000), h.wallet.calls[0].Arguments[1].Uint)
}

func TestDisconnectedIsPreconditionFailed(t *testing.T) {
	h := newHarness(t, false)
	h.session.Disconnect()
	res, body := h.do(t, http.MethodPost, "/api/faucet/request", "", "")
	require.Equal(t, http.StatusPreconditionFailed, res.StatusCode)
	require.NotEmpty(t, body["error"])

	res, body = h.do(t, http.MethodGet, "/api/coupons", "", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	view := body["view"].(map[string]interface{})
	require.Equal(t, screens.MsgConnectCoupons, view["blocked"])
}

func TestFaucetCooldownOverHTTP(t *testing.T) {
	h := newHarness(t, false)
	res, body := h.do(t, http.MethodPost, "/api/faucet/request", "", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "FaucetDigest", body["digest"])

	res, body = h.do(t, http.MethodPost, "/api/faucet/request", "", "")
	require.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	view := body["view"].(map[string]interface{})
	require.Equal(t, true, view["button_disabled"])
}

func TestActivityExportAndMetrics(t *testing.T) {
	h := newHarness(t, false)
	res, _ := h.do(t, http.MethodGet, "/api/activity/export?format=csv", "", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "text/csv", res.Header.Get("Content-Type"))
	require.Len(t, res.Header.Get(headerChecksum), 64)

	res, _ = h.do(t, http.MethodGet, "/api/activity/export?format=xml", "", "")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	req, err := http.NewRequest(http.MethodGet, h.server.URL+"/metrics", nil)
	require.NoError(t, err)
	metrics, err := h.server.Client().Do(req)
	require.NoError(t, err)
	defer metrics.Body.Close()
	require.Contains(t, readAll(t, metrics), `onecoupon_http_requests_total{method="GET",route="/api/activity/export",status="200"}`)
}

func readAll(t *testing.T, res *http.Response) string {
	t.Helper()
	var sb strings.Builder
	_, err := io.Copy(&sb, res.Body)
	require.NoError(t, err)
	return sb.String()
}

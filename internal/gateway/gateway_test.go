package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/danmuck/dslactl/internal/dsla"
	"github.com/danmuck/dslactl/internal/observability"
	"github.com/danmuck/dslactl/internal/retrieval"
	"github.com/danmuck/dslactl/internal/testutil/testlog"
)

type stubAccessor struct {
	getRaw func(ctx context.Context, addr solana.PublicKey) (*retrieval.RawAccount, error)
}

func (s stubAccessor) GetRaw(ctx context.Context, addr solana.PublicKey) (*retrieval.RawAccount, error) {
	return s.getRaw(ctx, addr)
}

var (
	lockupAddr  = solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	foreignAddr = solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
	brokenAddr  = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	testlog.Start(t)
	gin.SetMode(gin.TestMode)

	lockup, err := dsla.Lockup{AvailableTokens: 7, LockedFromPeriodID: 2}.Encode()
	if err != nil {
		t.Fatalf("encode lockup: %v", err)
	}
	acc := stubAccessor{getRaw: func(_ context.Context, addr solana.PublicKey) (*retrieval.RawAccount, error) {
		switch addr {
		case lockupAddr:
			return &retrieval.RawAccount{Owner: dsla.ProgramID, Data: lockup}, nil
		case foreignAddr:
			return &retrieval.RawAccount{Owner: solana.SystemProgramID, Data: lockup}, nil
		case brokenAddr:
			return nil, errors.New("connection reset")
		}
		return nil, nil
	}}
	g := New("gateway-test", ":0", nil, dsla.NewClient(acc, dsla.ProgramID))
	g.RegisterRoutes()
	return g
}

func serve(g *Gateway, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	g.HTTPRouter().ServeHTTP(rr, req)
	return rr
}

func TestHealthAndKinds(t *testing.T) {
	g := newTestGateway(t)

	rr := serve(g, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("health status = %d", rr.Code)
	}
	var health map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health["status"] != "ok" || health["program"] != dsla.ProgramID.String() {
		t.Fatalf("unexpected health: %v", health)
	}
	if rr.Header().Get(observability.RequestIDHeader) == "" {
		t.Fatalf("missing request id header")
	}

	rr = serve(g, http.MethodGet, "/kinds", "")
	var kinds struct {
		Kinds []KindInfo `json:"kinds"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &kinds); err != nil {
		t.Fatalf("decode kinds: %v", err)
	}
	if len(kinds.Kinds) != 6 || kinds.Kinds[0].Name != "Governance" {
		t.Fatalf("unexpected kinds: %+v", kinds.Kinds)
	}

	rr = serve(g, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "dslactl_http_requests_total") {
		t.Fatalf("metrics missing request counter: status=%d", rr.Code)
	}
}

func TestGetAccount(t *testing.T) {
	g := newTestGateway(t)

	rr := serve(g, http.MethodGet, "/accounts/Lockup/"+lockupAddr.String(), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Kind    string          `json:"kind"`
		Address string          `json:"address"`
		Account json.RawMessage `json:"account"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Kind != "Lockup" || resp.Address != lockupAddr.String() {
		t.Fatalf("unexpected response: %+v", resp)
	}
	var lockup dsla.Lockup
	if err := json.Unmarshal(resp.Account, &lockup); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if lockup.AvailableTokens != 7 || lockup.LockedFromPeriodID != 2 {
		t.Fatalf("unexpected lockup: %+v", lockup)
	}
}

func TestGetAccountStatuses(t *testing.T) {
	g := newTestGateway(t)
	absent := solana.MustPublicKeyFromBase58("Vote111111111111111111111111111111111111111")

	tests := []struct {
		name string
		path string
		want int
	}{
		{"absent", "/accounts/Lockup/" + absent.String(), http.StatusNotFound},
		{"foreign owner", "/accounts/Lockup/" + foreignAddr.String(), http.StatusConflict},
		{"type mismatch", "/accounts/Sla/" + lockupAddr.String(), http.StatusUnprocessableEntity},
		{"unknown kind", "/accounts/Vault/" + lockupAddr.String(), http.StatusBadRequest},
		{"bad address", "/accounts/Lockup/not-a-key", http.StatusBadRequest},
		{"rpc failure", "/accounts/Lockup/" + brokenAddr.String(), http.StatusBadGateway},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(g, http.MethodGet, tc.path, "")
			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d body=%s", rr.Code, tc.want, rr.Body.String())
			}
			if !bytes.Contains(rr.Body.Bytes(), []byte(`"error"`)) {
				t.Fatalf("missing error body: %s", rr.Body.String())
			}
		})
	}
}

func TestDecode(t *testing.T) {
	g := newTestGateway(t)
	raw, err := dsla.SlaRegistry{SlaAccountAddresses: []solana.PublicKey{lockupAddr}}.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	data := base64.StdEncoding.EncodeToString(raw)

	for _, kind := range []string{"auto", "SlaRegistry", ""} {
		rr := serve(g, http.MethodPost, "/decode", `{"kind":"`+kind+`","data":"`+data+`"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("kind %q: status = %d body=%s", kind, rr.Code, rr.Body.String())
		}
		want := `{"kind":"SlaRegistry","account":{"slaAccountAddresses":["` + lockupAddr.String() + `"]}}`
		if rr.Body.String() != want {
			t.Fatalf("kind %q: body = %s\nwant   %s", kind, rr.Body.String(), want)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	g := newTestGateway(t)
	unknownTag := base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4, 5, 6, 7, 8, 0})
	short := base64.StdEncoding.EncodeToString([]byte{1, 2})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing data", `{"kind":"auto"}`, http.StatusBadRequest},
		{"bad base64", `{"kind":"auto","data":"%%%"}`, http.StatusBadRequest},
		{"unknown kind", `{"kind":"Vault","data":"` + unknownTag + `"}`, http.StatusBadRequest},
		{"unknown tag", `{"kind":"auto","data":"` + unknownTag + `"}`, http.StatusUnprocessableEntity},
		{"short blob", `{"kind":"auto","data":"` + short + `"}`, http.StatusUnprocessableEntity},
		{"wrong kind", `{"kind":"Sla","data":"` + unknownTag + `"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(g, http.MethodPost, "/decode", tc.body)
			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d body=%s", rr.Code, tc.want, rr.Body.String())
			}
		})
	}
}

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dropbox/godropbox/time2"
	"github.com/labstack/echo/v4"
	"github/chapool/go-gasless/internal/api"
	"github/chapool/go-gasless/internal/api/router"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/wallet/chain"
)

// Env is what a test server runs against.
type Env struct {
	Server *api.Server
	Chain  *TokenChain
	// Node is the JSON-RPC endpoint in front of Chain
	Node *httptest.Server
}

// DefaultTestConfig is the environment config with the test token and smart account.
func DefaultTestConfig() config.Server {
	cfg := config.DefaultServiceConfigFromEnv()

	cfg.Chain.ChainID = BaseSepoliaChainID.Int64()
	cfg.Chain.TokenAddress = DefaultTokenAddress.Hex()
	cfg.Sponsor.SmartAccount = SmartAccount.Hex()
	cfg.Wallet.EmbeddedAccounts = 2
	cfg.Logger.PrettyPrintConsole = false
	cfg.Lock = config.Lock{}

	return cfg
}

// WithTestServer runs closure against a fully wired server. Reads go through a real
// RPC client to a node backed by an in-memory token chain; batches execute directly
// on the chain from SmartAccount.
func WithTestServer(t *testing.T, closure func(env *Env)) {
	t.Helper()

	WithTestServerConfigurable(t, DefaultTestConfig(), closure)
}

func WithTestServerConfigurable(t *testing.T, cfg config.Server, closure func(env *Env)) {
	t.Helper()

	tc := NewTokenChain(time2.DefaultClock, SmartAccount)
	node := NewNode(t, tc, BaseSepoliaChainID)
	cfg.Chain.RPCURLs = []string{node.URL}

	client, err := chain.NewRPCClient(t.Context(), cfg.Chain.RPCURLs)
	if err != nil {
		t.Fatalf("failed to dial test node: %v", err)
	}

	s, err := api.InitNewServerWithChain(cfg, client, NewTestKeyring(t, cfg.Wallet.EmbeddedAccounts), tc)
	if err != nil {
		t.Fatalf("failed to init server: %v", err)
	}

	router.Init(s)

	t.Cleanup(func() {
		s.Shutdown(context.Background())
	})

	closure(&Env{Server: s, Chain: tc, Node: node})
}

// PerformRequest runs a request against the server's echo instance. body is sent as JSON.
func PerformRequest(t *testing.T, s *api.Server, method string, path string, body interface{}, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header[k] = v
	}

	res := httptest.NewRecorder()
	s.Echo.ServeHTTP(res, req)

	return res
}

// ParseResponseAndValidate decodes the JSON response body into v.
func ParseResponseAndValidate(t *testing.T, res *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		t.Fatalf("failed to parse response body %q: %v", res.Body.String(), err)
	}
}

//go:build integration

package integration_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vyrodovalexey/warehouse-allocator/internal/auth"
	"github.com/vyrodovalexey/warehouse-allocator/internal/config"
	"github.com/vyrodovalexey/warehouse-allocator/internal/server"
	"github.com/vyrodovalexey/warehouse-allocator/internal/store"
	"github.com/vyrodovalexey/warehouse-allocator/internal/warehouse"
)

// Credentials wired into every test server.
const (
	operatorUser     = "dock"
	operatorPassword = "forklift"
	viewerAPIKey     = "scanner-key"
)

// DefaultTimeout bounds every HTTP call made by the suite.
const DefaultTimeout = 10 * time.Second

// testEnv is a running warehouse API backed by an in-memory store.
type testEnv struct {
	t      *testing.T
	url    string
	client *http.Client
}

// layout customises the warehouse built for a test.
type layout struct {
	dims     warehouse.Dimensions
	strategy string
	today    time.Time
}

// startEnv builds config, authenticator, store and server the way the
// binary does and serves them through httptest.
func startEnv(t *testing.T, l layout) *testEnv {
	t.Helper()

	if l.dims == (warehouse.Dimensions{}) {
		l.dims = warehouse.Dimensions{Rows: 2, Shelves: 2, Zones: 3}
	}
	if l.strategy == "" {
		l.strategy = warehouse.StrategyNearest
	}
	if l.today.IsZero() {
		l.today = time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(operatorPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	cfg := &config.Config{
		ServerPort:       8080,
		LogLevel:         "error",
		ShutdownTimeout:  5 * time.Second,
		MetricsEnabled:   true,
		AuthMode:         "multi",
		BasicAuthUsers:   operatorUser + ":" + string(hash),
		APIKeys:          viewerAPIKey + ":scanner:viewer",
		Dimensions:       l.dims,
		Strategy:         l.strategy,
		FragileRowLimit:  2,
		ExpirationFilter: true,
		NearExpiryDays:   3,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	basic, err := auth.NewBasicAuthenticator(cfg.BasicAuthUsers)
	if err != nil {
		t.Fatalf("basic auth: %v", err)
	}
	keys, err := auth.NewAPIKeyAuthenticator(cfg.APIKeys)
	if err != nil {
		t.Fatalf("api keys: %v", err)
	}

	today := l.today
	wh, err := cfg.NewWarehouse(func() time.Time { return today })
	if err != nil {
		t.Fatalf("warehouse: %v", err)
	}

	srv := server.New(cfg, zap.NewNop(), store.NewMemoryStore(wh, zap.NewNop()),
		auth.NewMultiAuthenticator(basic, keys))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{
		t:      t,
		url:    ts.URL,
		client: &http.Client{Timeout: DefaultTimeout},
	}
}

// credentials selects how a request authenticates.
type credentials int

const (
	asAnonymous credentials = iota
	asOperator
	asViewer
)

// do sends a request and returns the status and raw body.
func (e *testEnv) do(who credentials, method, path, body string) (int, []byte) {
	e.t.Helper()

	req, err := http.NewRequest(method, e.url+path, strings.NewReader(body))
	if err != nil {
		e.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	switch who {
	case asOperator:
		req.SetBasicAuth(operatorUser, operatorPassword)
	case asViewer:
		req.Header.Set(auth.APIKeyHeader, viewerAPIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		e.t.Fatalf("read body: %v", err)
	}

	return resp.StatusCode, data
}

// apiResponse mirrors the success envelope of the API.
type apiResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()

	var resp apiResponse[T]
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	if !resp.Success {
		t.Fatalf("unsuccessful response: %s", data)
	}

	return resp.Data
}

type location struct {
	Row   int `json:"row"`
	Shelf int `json:"shelf"`
	Zone  int `json:"zone"`
}

type storedItem struct {
	Location location   `json:"location"`
	Zones    []location `json:"zones"`
	Message  string     `json:"message"`
}

type expiryReport struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Items []struct {
		DaysLeft int `json:"days_left"`
	} `json:"items"`
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func normalItem(id int, name string) string {
	return fmt.Sprintf(`{"id":%d,"name":%q,"quantity":1,"quality":{"type":"normal"}}`, id, name)
}

func fragileItem(id int, name, expiry string, maxRow int) string {
	return fmt.Sprintf(`{"id":%d,"name":%q,"quantity":1,"quality":{"type":"fragile","expiry_date":%q,"max_row":%d}}`,
		id, name, expiry, maxRow)
}

func oversizedItem(id int, name string, zones int) string {
	return fmt.Sprintf(`{"id":%d,"name":%q,"quantity":1,"quality":{"type":"oversized","zones_needed":%d}}`,
		id, name, zones)
}

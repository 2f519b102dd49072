//go:build performance

package performance_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/warehouse-allocator/internal/config"
	"github.com/vyrodovalexey/warehouse-allocator/internal/server"
	"github.com/vyrodovalexey/warehouse-allocator/internal/store"
	"github.com/vyrodovalexey/warehouse-allocator/internal/warehouse"
)

// EnvServerURL points the benchmarks at an already running server.
const EnvServerURL = "PERF_SERVER_URL"

// DefaultTimeout bounds every HTTP call.
const DefaultTimeout = 10 * time.Second

var (
	serverOnce sync.Once
	serverURL  string
	nextID     atomic.Uint32
)

// getOrStartServer returns PERF_SERVER_URL or starts one in-process
// server shared by every benchmark.
func getOrStartServer(b *testing.B) string {
	b.Helper()

	if url := os.Getenv(EnvServerURL); url != "" {
		return url
	}

	serverOnce.Do(func() {
		serverURL = startLocalServer(b)
	})

	return serverURL
}

func startLocalServer(b *testing.B) string {
	b.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		b.Fatalf("Failed to find available port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	cfg := &config.Config{
		ServerPort:       port,
		LogLevel:         "error",
		ShutdownTimeout:  5 * time.Second,
		MetricsEnabled:   true,
		AuthMode:         "none",
		Dimensions:       warehouse.Dimensions{Rows: 20, Shelves: 20, Zones: 10},
		Strategy:         warehouse.StrategyNearest,
		FragileRowLimit:  -1,
		ExpirationFilter: true,
		NearExpiryDays:   3,
	}

	wh, err := cfg.NewWarehouse(time.Now)
	if err != nil {
		b.Fatalf("NewWarehouse: %v", err)
	}
	srv := server.New(cfg, zap.NewNop(), store.NewMemoryStore(wh, zap.NewNop()), nil)

	go func() {
		if srvErr := srv.Start(); srvErr != nil {
			b.Logf("Server error: %v", srvErr)
		}
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.Fatalf("Server did not become ready within timeout")
		case <-ticker.C:
			resp, reqErr := http.Get(baseURL + "/ready")
			if reqErr != nil {
				continue
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return baseURL
			}
		}
	}
}

func send(b *testing.B, client *http.Client, method, url, body string) int {
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		b.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		b.Fatalf("%s %s: %v", method, url, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return resp.StatusCode
}

// BenchmarkHealthEndpoint measures baseline request latency.
func BenchmarkHealthEndpoint(b *testing.B) {
	baseURL := getOrStartServer(b)
	client := &http.Client{Timeout: DefaultTimeout}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if status := send(b, client, http.MethodGet, baseURL+"/health", ""); status != http.StatusOK {
				b.Errorf("status = %d", status)
			}
		}
	})
}

// BenchmarkAddRemove stores and removes an item per iteration so the
// warehouse never fills up.
func BenchmarkAddRemove(b *testing.B) {
	baseURL := getOrStartServer(b)
	client := &http.Client{Timeout: DefaultTimeout}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			id := nextID.Add(1)
			body := fmt.Sprintf(`{"id":%d,"name":"bench-%d","quantity":1,"quality":{"type":"normal"}}`, id, id)

			if status := send(b, client, http.MethodPost, baseURL+"/api/v1/items", body); status != http.StatusCreated {
				b.Errorf("add status = %d", status)
				continue
			}
			if status := send(b, client, http.MethodDelete, fmt.Sprintf("%s/api/v1/items/%d", baseURL, id), ""); status != http.StatusOK {
				b.Errorf("remove status = %d", status)
			}
		}
	})
}

// BenchmarkSearchByName measures index lookups against a populated grid.
func BenchmarkSearchByName(b *testing.B) {
	baseURL := getOrStartServer(b)
	client := &http.Client{Timeout: DefaultTimeout}

	for i := range 100 {
		id := nextID.Add(1)
		body := fmt.Sprintf(`{"id":%d,"name":"shelf-stock-%d","quantity":1,"quality":{"type":"normal"}}`, id, i%10)
		send(b, client, http.MethodPost, baseURL+"/api/v1/items", body)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			url := fmt.Sprintf("%s/api/v1/search?name=shelf-stock-%d", baseURL, i%10)
			if status := send(b, client, http.MethodGet, url, ""); status != http.StatusOK {
				b.Errorf("search status = %d", status)
			}
			i++
		}
	})
}

// BenchmarkWarehouseAdd measures the allocation engine without HTTP.
func BenchmarkWarehouseAdd(b *testing.B) {
	dims := warehouse.Dimensions{Rows: 20, Shelves: 20, Zones: 10}

	for _, name := range []string{warehouse.StrategyNearest, warehouse.StrategyRoundRobin} {
		b.Run(name, func(b *testing.B) {
			for n := 0; n < b.N; n++ {
				b.StopTimer()
				strategy, err := warehouse.ParseStrategy(name)
				if err != nil {
					b.Fatal(err)
				}
				wh, err := warehouse.New(dims, strategy)
				if err != nil {
					b.Fatal(err)
				}
				b.StartTimer()

				for i := range dims.Total() {
					item, err := warehouse.NewItem(uint32(i), "crate", 1, warehouse.NormalQuality(), "1")
					if err != nil {
						b.Fatal(err)
					}
					if _, err := wh.Add(item); err != nil {
						b.Fatalf("add %d: %v", i, err)
					}
				}
			}
		})
	}
}

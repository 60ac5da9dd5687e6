package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optionflow/pkg/config"
	"github.com/wonny/optionflow/pkg/httputil"
	"github.com/wonny/optionflow/pkg/logger"
)

func testClient(t *testing.T, serverURL string, maxPages int) *Client {
	t.Helper()
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "error",
		LogFormat: "json",
		Polygon: config.PolygonConfig{
			APIKey:  "test-key",
			BaseURL: serverURL,
		},
		Ingest: config.IngestConfig{
			MaxPages:  maxPages,
			PageDelay: time.Millisecond,
		},
	}
	log := logger.New(cfg)
	httpClient := httputil.New(cfg, log).DisableRetry()
	return NewClient(cfg, httpClient, log)
}

func chainPage(tickers []string, nextURL string) ChainResponse {
	page := ChainResponse{Status: "OK", NextURL: nextURL}
	for _, ticker := range tickers {
		snap := ContractSnapshot{}
		snap.Details.Ticker = ticker
		page.Results = append(page.Results, snap)
	}
	return page
}

func TestFetchOptionChainPagination(t *testing.T) {
	var requests atomic.Int32

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/v3/snapshot/options/SPY", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(chainPage([]string{"O:SPY1", "O:SPY2"}, server.URL+"/page2"))
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		json.NewEncoder(w).Encode(chainPage([]string{"O:SPY3"}, server.URL+"/page3"))
	})
	mux.HandleFunc("/page3", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		// Final page: no next_url
		json.NewEncoder(w).Encode(chainPage([]string{"O:SPY4", "O:SPY5"}, ""))
	})

	client := testClient(t, server.URL, 50)

	contracts, err := client.FetchOptionChain(context.Background(), "SPY")
	require.NoError(t, err)

	require.Len(t, contracts, 5)
	want := []string{"O:SPY1", "O:SPY2", "O:SPY3", "O:SPY4", "O:SPY5"}
	for i, ticker := range want {
		assert.Equal(t, ticker, contracts[i].Details.Ticker)
	}

	// Exactly three requests: pagination must stop once next_url is absent
	assert.Equal(t, int32(3), requests.Load())
}

func TestFetchOptionChainPageCeiling(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		// Every page points at another one; only the ceiling stops the walk
		next := fmt.Sprintf("http://%s/page%d", r.Host, n+1)
		json.NewEncoder(w).Encode(chainPage([]string{fmt.Sprintf("O:SPY%d", n)}, next))
	}))
	defer server.Close()

	client := testClient(t, server.URL, 3)

	contracts, err := client.FetchOptionChain(context.Background(), "SPY")
	require.NoError(t, err, "page ceiling is a soft stop, not an error")
	assert.Len(t, contracts, 3)
	assert.Equal(t, int32(3), requests.Load())
}

func TestFetchOptionChainNonOKStatusAborts(t *testing.T) {
	var requests atomic.Int32

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/v3/snapshot/options/SPY", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		json.NewEncoder(w).Encode(chainPage([]string{"O:SPY1"}, server.URL+"/page2"))
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		json.NewEncoder(w).Encode(ChainResponse{Status: "ERROR"})
	})

	client := testClient(t, server.URL, 50)

	contracts, err := client.FetchOptionChain(context.Background(), "SPY")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadStatus)
	assert.Nil(t, contracts, "a failed page must discard already-collected results")
	assert.Equal(t, int32(2), requests.Load())
}

func TestFetchOptionChainHTTPErrorAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := testClient(t, server.URL, 50)

	contracts, err := client.FetchOptionChain(context.Background(), "SPY")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadStatus)
	assert.Nil(t, contracts)
}

func TestFetchUnderlyingPrevClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/aggs/ticker/SPY/prev", r.URL.Path)
		json.NewEncoder(w).Encode(PrevCloseResponse{
			Status: "OK",
			Ticker: "SPY",
			Results: []PrevCloseBar{
				{Close: 456.78, Timestamp: 1750075200000},
			},
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL, 50)

	price, err := client.FetchUnderlyingPrevClose(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, "SPY", price.Symbol)
	assert.Equal(t, 456.78, price.Price)
	assert.False(t, price.AsOf.IsZero())
}

func TestFetchUnderlyingPrevCloseEmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(PrevCloseResponse{Status: "OK", Ticker: "SPY"})
	}))
	defer server.Close()

	client := testClient(t, server.URL, 50)

	_, err := client.FetchUnderlyingPrevClose(context.Background(), "SPY")
	require.Error(t, err)
}

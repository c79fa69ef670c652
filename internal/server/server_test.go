package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/finquery/internal/app"
	"github.com/ternarybob/finquery/internal/common"
	"github.com/ternarybob/finquery/internal/models"
	"github.com/ternarybob/finquery/internal/services/aliases"
)

func testUniverse() *models.Universe {
	return &models.Universe{
		Records: []models.UniverseRecord{
			{Ticker: "AAPL", CompanyName: "Apple Inc."},
			{Ticker: "MSFT", CompanyName: "Microsoft Corporation"},
			{Ticker: "GOOGL", CompanyName: "Alphabet Inc. Class A"},
			{Ticker: "GOOG", CompanyName: "Alphabet Inc. Class C"},
		},
		Overrides: []models.ManualOverride{
			{Phrase: "google", Ticker: "GOOGL", Priority: 10},
		},
	}
}

func newTestServer(t *testing.T, configure func(*common.Config)) *Server {
	t.Helper()
	config := common.NewDefaultConfig()
	config.Storage.Badger.Path = t.TempDir()
	config.Server.RateLimit = 0
	if configure != nil {
		configure(config)
	}

	application, err := app.NewWithSource(config, arbor.NewLogger(), aliases.StaticSource{Universe: testUniverse()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })
	return New(application)
}

func serve(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

type intentResponse struct {
	Entities []models.ResolvedEntity `json:"entities"`
	Metrics  []string                `json:"metrics"`
	Period   *struct {
		Kind              string          `json:"kind"`
		StartPeriod       json.RawMessage `json:"start_period"`
		EndPeriod         json.RawMessage `json:"end_period"`
		NormalizeToFiscal bool            `json:"normalize_to_fiscal"`
	} `json:"period"`
	Warnings []string `json:"warnings"`
}

func TestResolveEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("GET", func(t *testing.T) {
		rec := serve(s, "GET", "/api/resolve?q=Apple+revenue+FY24", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

		var got intentResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got.Entities, 1)
		assert.Equal(t, "AAPL", got.Entities[0].Ticker)
		assert.Equal(t, []string{"revenue"}, got.Metrics)
		require.NotNil(t, got.Period)
		assert.Equal(t, "fiscal_year", got.Period.Kind)
		assert.JSONEq(t, "2024", string(got.Period.StartPeriod))
		assert.True(t, got.Period.NormalizeToFiscal)
		assert.Empty(t, got.Warnings)

		var raw struct {
			Period map[string]json.RawMessage `json:"period"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
		keys := make([]string, 0, len(raw.Period))
		for k := range raw.Period {
			keys = append(keys, k)
		}
		assert.ElementsMatch(t, []string{"kind", "start_period", "end_period", "normalize_to_fiscal"}, keys)
	})

	t.Run("POST with anchor", func(t *testing.T) {
		rec := serve(s, "POST", "/api/resolve", `{"query":"MSFT revenue last 2 quarters","year":2024,"quarter":2}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var got intentResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.NotNil(t, got.Period)
		assert.Equal(t, "relative", got.Period.Kind)
		assert.JSONEq(t, `{"year":2024,"quarter":1}`, string(got.Period.StartPeriod))
		assert.JSONEq(t, `{"year":2024,"quarter":2}`, string(got.Period.EndPeriod))
	})

	t.Run("empty lists are arrays", func(t *testing.T) {
		rec := serve(s, "GET", "/api/resolve?q=what+is+EBITDA", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"entities":[],"metrics":[],"period":null,"warnings":[]}`, rec.Body.String())
	})

	t.Run("bad requests", func(t *testing.T) {
		tests := []struct {
			method string
			target string
			body   string
			code   int
		}{
			{"GET", "/api/resolve", "", http.StatusBadRequest},
			{"GET", "/api/resolve?q=apple&year=abc", "", http.StatusBadRequest},
			{"GET", "/api/resolve?q=apple&year=2024&quarter=5", "", http.StatusBadRequest},
			{"GET", "/api/resolve?q=apple&quarter=2", "", http.StatusBadRequest},
			{"POST", "/api/resolve", `{"query":`, http.StatusBadRequest},
			{"POST", "/api/resolve", `{"query":"apple","extra":1}`, http.StatusBadRequest},
			{"DELETE", "/api/resolve?q=apple", "", http.StatusMethodNotAllowed},
		}
		for _, tt := range tests {
			rec := serve(s, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.code, rec.Code, "%s %s %s", tt.method, tt.target, tt.body)
		}
	})
}

func TestAttributeEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, "POST", "/api/attribute", `{"query":"gross margin improved to 45.9%, and operating margin rose"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Numbers []models.NumberAttribution `json:"numbers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Numbers, 1)
	assert.Equal(t, "gross_margin", got.Numbers[0].MetricID)
	assert.True(t, got.Numbers[0].Percent)
}

func TestAttributeEndpoint_Truncates(t *testing.T) {
	s := newTestServer(t, func(c *common.Config) { c.Resolver.MaxInputLength = 20 })

	query := strings.Repeat("revenue 1 ", 500)
	rec := serve(s, "POST", "/api/attribute", `{"query":"`+query+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Numbers  []models.NumberAttribution `json:"numbers"`
		Warnings []string                   `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"input_truncated: 20 characters"}, got.Warnings)
	assert.Len(t, got.Numbers, 2)
}

func TestIndexEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, "GET", "/api/index", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info struct {
		Version    string        `json:"version"`
		Source     string        `json:"source"`
		Tickers    int           `json:"tickers"`
		Overrides  int           `json:"overrides"`
		Collisions []interface{} `json:"collisions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.NotEmpty(t, info.Version)
	assert.Equal(t, "static", info.Source)
	assert.Equal(t, 4, info.Tickers)
	assert.Equal(t, 1, info.Overrides)
	assert.NotNil(t, info.Collisions)

	rec = serve(s, "POST", "/api/index/rebuild", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), info.Version)

	assert.Equal(t, http.StatusMethodNotAllowed, serve(s, "GET", "/api/index/rebuild", "").Code)

	rec = serve(s, "GET", "/api/index/entries/msft", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entry models.AliasEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, "MSFT", entry.Ticker)
	assert.Contains(t, entry.Aliases, "microsoft")

	assert.Equal(t, http.StatusNotFound, serve(s, "GET", "/api/index/entries/ZZZZ", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(s, "GET", "/api/index/entries/", "").Code)
}

func TestSystemEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, "GET", "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"tickers":4`)

	rec = serve(s, "GET", "/api/version", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version"`)

	serve(s, "GET", "/api/resolve?q=Apple", "")
	rec = serve(s, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "finquery_resolver_resolutions_total")
	assert.Contains(t, rec.Body.String(), `finquery_index_aliases{kind="tickers"} 4`)

	assert.Equal(t, http.StatusNotFound, serve(s, "GET", "/nope", "").Code)
}

func TestQueryLogEndpoint(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(t, nil)
		assert.Equal(t, http.StatusNotFound, serve(s, "GET", "/api/querylog", "").Code)
	})

	t.Run("enabled", func(t *testing.T) {
		s := newTestServer(t, func(c *common.Config) { c.QueryLog.Enabled = true })

		require.Equal(t, http.StatusOK, serve(s, "GET", "/api/resolve?q=Apple+revenue", "").Code)
		require.NoError(t, s.app.Recorder.Close())

		rec := serve(s, "GET", "/api/querylog?outcome=resolved", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var got struct {
			Records  []models.QueryLogRecord `json:"records"`
			Keywords []models.KeywordLookup  `json:"keywords"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got.Records, 1)
		assert.Equal(t, "Apple revenue", got.Records[0].Query)
		require.Len(t, got.Keywords, 1)
		assert.Equal(t, "AAPL", got.Keywords[0].Keyword)

		assert.Equal(t, http.StatusBadRequest, serve(s, "GET", "/api/querylog?outcome=bogus", "").Code)
	})
}

func TestRequestIDPropagation(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *common.Config) {
		c.Server.RateLimit = 1
		c.Server.RateBurst = 2
	})

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		codes = append(codes, serve(s, "GET", "/api/resolve?q=Apple", "").Code)
	}
	assert.Equal(t, []int{200, 200, 429, 429}, codes)

	// Health checks are never throttled
	assert.Equal(t, http.StatusOK, serve(s, "GET", "/api/health", "").Code)
}

func TestClientLimiters_Sweep(t *testing.T) {
	c := newClientLimiters(10, 1)
	require.NotNil(t, c)
	c.sweepMin = 2
	c.idle = -1

	assert.True(t, c.allow("a"))
	assert.True(t, c.allow("b"))
	assert.True(t, c.allow("c"))
	assert.LessOrEqual(t, len(c.clients), 2)

	assert.Nil(t, newClientLimiters(0, 5))
}

package bsapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, loginPath, r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		// Auth endpoint must not carry a token header.
		assert.Empty(t, r.Header.Get("token"))

		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "webcs", req.ApplicationCode)
		assert.Equal(t, "op@example.com", req.Email)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(LoginResponse{
			Code:        "OK",
			ID:          "u-7",
			Email:       "op@example.com",
			Partners:    []PartnerRef{{Code: "P1"}, {Code: "P2"}},
			AccessToken: "tok-abc",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", WithTokenSource(func() string { return "stale" }))
	got, err := client.Login(context.Background(), LoginRequest{
		ApplicationCode: "webcs",
		Email:           "op@example.com",
		Password:        "secret",
		Device:          "dashboard",
	})

	require.NoError(t, err)
	assert.Equal(t, "OK", got.Code)
	assert.Equal(t, "tok-abc", got.AccessToken)
	require.Len(t, got.Partners, 2)
	assert.Equal(t, "P1", got.Partners[0].Code)
}

func TestLogin_Rejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(LoginResponse{Code: "INVALID_CREDENTIALS"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	got, err := client.Login(context.Background(), LoginRequest{Email: "x@y.z"})

	// A rejection is a well-formed reply, not a transport error.
	require.NoError(t, err)
	assert.NotEqual(t, "OK", got.Code)
}

func TestPartnerInfo_FirstRecordWins(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, partnerPath, r.URL.Path)
		assert.Equal(t, "P1", r.URL.Query().Get("code"))
		assert.Equal(t, "tok-abc", r.Header.Get("token"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(listResponse[PartnerRecord]{
			Status: "OK",
			Count:  2,
			Data: []PartnerRecord{
				{ID: "pid-1", Name: "Alpha Steel"},
				{ID: "pid-9", Name: "Duplicate Row"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", WithTokenSource(func() string { return "tok-abc" }))
	got, err := client.PartnerInfo(context.Background(), "P1")

	require.NoError(t, err)
	assert.Equal(t, "pid-1", got.ID)
	assert.Equal(t, "Alpha Steel", got.Name)
}

func TestPartnerInfo_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(listResponse[PartnerRecord]{Status: "OK"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	_, err := client.PartnerInfo(context.Background(), "NOPE")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSiteSummary_SplitsMetricsFromIdentity(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, summaryPath, r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "pid-1", q.Get("partner"))
		assert.Equal(t, "sinter", q.Get("site"))
		assert.Equal(t, "2024-01-10", q.Get("start_date"))
		assert.Equal(t, "2024-01-12", q.Get("end_date"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "OK", "table": "shift_summary", "count": 1, "next": false,
			"data": [{
				"production_day": "2024-01-10",
				"shift_no": "2",
				"supervisor": "Nguyen Van A",
				"runtime_hours": "7.5",
				"sinter_output": null,
				"mystery_column": "keep-me"
			}]
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	rows, err := client.SiteSummary(context.Background(), SummaryQuery{
		PartnerID: "pid-1",
		Site:      "sinter",
		StartDate: "2024-01-10",
		EndDate:   "2024-01-12",
	})

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-01-10", rows[0].Day)
	assert.Equal(t, 2, rows[0].Shift)
	assert.Equal(t, "Nguyen Van A", rows[0].Supervisor)
	assert.Equal(t, "7.5", rows[0].Metrics["runtime_hours"])
	assert.Nil(t, rows[0].Metrics["sinter_output"])
	assert.Contains(t, rows[0].Metrics, "sinter_output")
	assert.Equal(t, "keep-me", rows[0].Metrics["mystery_column"])
	// Identity keys must not leak into the metric set.
	assert.NotContains(t, rows[0].Metrics, "production_day")
}

func TestSiteSummary_NoEndDate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("end_date"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"OK","data":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	rows, err := client.SiteSummary(context.Background(), SummaryQuery{
		PartnerID: "pid-1",
		Site:      "furnace",
		StartDate: "2024-01-10",
	})

	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTechSnapshots(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, technologyPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "OK",
			"data": [
				{"shift_no": 1, "suction_pressure": 11.2, "ignition_temp": null, "recorded_at": "2024-01-10T06:00:00Z"},
				{"shift_no": 2, "suction_pressure": "11.9", "recorded_at": 1704924000000}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	snaps, err := client.TechSnapshots(context.Background(), SummaryQuery{PartnerID: "pid-1", Site: "sinter", StartDate: "2024-01-10"})

	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, 11.2, snaps[0].SuctionPressure)
	assert.Nil(t, snaps[0].IgnitionTemp)
	assert.Equal(t, "11.9", snaps[1].SuctionPressure)
}

func TestList_EnvelopeStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"EXPIRED_TOKEN","data":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	_, err := client.SiteSummary(context.Background(), SummaryQuery{PartnerID: "p", Site: "casting", StartDate: "2024-01-10"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "EXPIRED_TOKEN")
}

func TestDo_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`server error`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	_, err := client.PartnerInfo(context.Background(), "P1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestDo_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	_, err := client.PartnerInfo(context.Background(), "P1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestDo_ContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(srv.URL, "test-key")
	_, err := client.PartnerInfo(ctx, "P1")
	require.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	c := NewClient("https://suite.example.com", "my-key")
	hc := c.(*httpClient)
	assert.Equal(t, "my-key", hc.apiKey)
	assert.Equal(t, "https://suite.example.com", hc.baseURL)
	assert.Nil(t, hc.limiter)
	assert.Equal(t, 30*time.Second, hc.http.Timeout)
}

func TestWithOptions(t *testing.T) {
	t.Parallel()

	custom := &http.Client{}
	c := NewClient("u", "k",
		WithHTTPClient(custom),
		WithRateLimit(5),
		WithBaseURL("https://other.example.com"),
	)
	hc := c.(*httpClient)
	assert.Equal(t, custom, hc.http)
	assert.NotNil(t, hc.limiter)
	assert.Equal(t, "https://other.example.com", hc.baseURL)
}

func TestShiftRow_ShiftNoForms(t *testing.T) {
	t.Parallel()

	var row ShiftRow
	require.NoError(t, json.Unmarshal([]byte(`{"shift_no": 3}`), &row))
	assert.Equal(t, 3, row.Shift)

	require.NoError(t, json.Unmarshal([]byte(`{"shift_no": "1"}`), &row))
	assert.Equal(t, 1, row.Shift)

	require.NoError(t, json.Unmarshal([]byte(`{"shift_no": "n/a"}`), &row))
	assert.Equal(t, 0, row.Shift)

	require.NoError(t, json.Unmarshal([]byte(`{}`), &row))
	assert.Equal(t, 0, row.Shift)
}

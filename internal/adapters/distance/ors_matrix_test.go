package distance

import (
	"context"
	"encoding/json"
	"fleet-route-planner/internal/domain"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

var points = []domain.Coordinates{
	{Lon: 13.40, Lat: 52.52},
	{Lon: 13.45, Lat: 52.50},
	{Lon: 13.38, Lat: 52.55},
}

// orsStub answers every matrix request with distance 1000*(i+j) and
// duration 60*(i+j) for the requested source rows.
func orsStub(t *testing.T, calls *atomic.Int32, failFirst int, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if r.URL.Path != "/v2/matrix/driving-car" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "key" {
			t.Errorf("missing api key header")
		}
		if int(n) <= failFirst {
			http.Error(w, "busy", status)
			return
		}

		var req matrixRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		sources := req.Sources
		if len(sources) == 0 {
			for i := range req.Locations {
				sources = append(sources, i)
			}
		}

		var resp matrixResponse
		for _, i := range sources {
			drow := make([]*float64, len(req.Locations))
			trow := make([]*float64, len(req.Locations))
			for j := range req.Locations {
				d, s := float64(1000*(i+j)), float64(60*(i+j))
				if i == j {
					d, s = 0, 0
				}
				drow[j], trow[j] = &d, &s
			}
			resp.Distances = append(resp.Distances, drow)
			resp.Durations = append(resp.Durations, trow)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestSource(t *testing.T, url string, maxElements int) *ORSMatrixSource {
	t.Helper()
	src, err := NewORSMatrixSource("key", ORSOptions{BaseURL: url, RatePerSecond: 1000, MaxElements: maxElements})
	if err != nil {
		t.Fatalf("NewORSMatrixSource: %v", err)
	}
	src.backoff = time.Millisecond
	return src
}

func TestORSTableSingleRequest(t *testing.T) {
	var calls atomic.Int32
	srv := orsStub(t, &calls, 0, 0)
	defer srv.Close()

	table, err := newTestSource(t, srv.URL, 0).Table(context.Background(), points)
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("requests = %d, want 1", calls.Load())
	}
	if got := *table.DistancesMeters[1][2]; got != 3000 {
		t.Fatalf("distance[1][2] = %v, want 3000", got)
	}
	if got := *table.DurationsSeconds[2][0]; got != 120 {
		t.Fatalf("duration[2][0] = %v, want 120", got)
	}
}

func TestORSTableSplitsLargeRequests(t *testing.T) {
	var calls atomic.Int32
	srv := orsStub(t, &calls, 0, 0)
	defer srv.Close()

	// Four elements allow one row of three locations per request.
	table, err := newTestSource(t, srv.URL, 4).Table(context.Background(), points)
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("requests = %d, want 3", calls.Load())
	}
	for i := range points {
		for j := range points {
			want := float64(1000 * (i + j))
			if i == j {
				want = 0
			}
			if got := *table.DistancesMeters[i][j]; got != want {
				t.Fatalf("distance[%d][%d] = %v, want %v", i, j, got, want)
			}
		}
	}
}

func TestORSTableRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := orsStub(t, &calls, 2, http.StatusServiceUnavailable)
	defer srv.Close()

	if _, err := newTestSource(t, srv.URL, 0).Table(context.Background(), points); err != nil {
		t.Fatalf("Table: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("requests = %d, want 2 failures + 1 success", calls.Load())
	}
}

func TestORSTableDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := orsStub(t, &calls, 10, http.StatusBadRequest)
	defer srv.Close()

	if _, err := newTestSource(t, srv.URL, 0).Table(context.Background(), points); err == nil {
		t.Fatalf("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("requests = %d, want 1", calls.Load())
	}
}

func TestNewORSMatrixSourceRequiresKey(t *testing.T) {
	if _, err := NewORSMatrixSource("", ORSOptions{}); err == nil {
		t.Fatalf("expected error for empty api key")
	}
}

func TestMockMatrixSource(t *testing.T) {
	src := NewMockMatrixSource([]MockPair{{From: points[0], To: points[1], Meters: 4200, Seconds: 300}})

	table, err := src.Table(context.Background(), points[:2])
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if *table.DistancesMeters[0][1] != 4200 || *table.DurationsSeconds[0][1] != 300 {
		t.Fatalf("unexpected known pair")
	}
	if table.DistancesMeters[1][0] != nil {
		t.Fatalf("unknown pair should be a nil cell")
	}
	if *table.DistancesMeters[0][0] != 0 {
		t.Fatalf("diagonal should be zero")
	}
}

func TestParseRetryAfter(t *testing.T) {
	cases := map[string]time.Duration{
		"":    0,
		"2":   2 * time.Second,
		"-1":  0,
		"600": maxRetryAfter,
		"Wed, 21 Oct 2015 07:28:00 GMT": 0,
	}
	for in, want := range cases {
		if got := parseRetryAfter(in); got != want {
			t.Fatalf("parseRetryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}

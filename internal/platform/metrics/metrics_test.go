package metrics

import (
	"net/http"
	"testing"
	"time"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record("/api/v1/goals", http.StatusOK, 10*time.Millisecond)
	c.Record("/api/v1/goals", http.StatusNotFound, 20*time.Millisecond)
	c.Record("/api/v1/goals/{id}/approve", http.StatusTooManyRequests, 0)
	c.Record("", http.StatusInternalServerError, 30*time.Millisecond)

	snap := c.Snapshot()
	if snap["requestsTotal"].(uint64) != 4 {
		t.Fatalf("unexpected total %v", snap["requestsTotal"])
	}
	if snap["clientErrorsTotal"].(uint64) != 2 || snap["serverErrorsTotal"].(uint64) != 1 || snap["rateLimitedTotal"].(uint64) != 1 {
		t.Fatalf("unexpected error counters %+v", snap)
	}
	byRoute := snap["requestsByRoute"].(map[string]uint64)
	if byRoute["/api/v1/goals"] != 2 || len(byRoute) != 2 {
		t.Fatalf("unexpected route counters %+v", byRoute)
	}
	if snap["avgDurationMs"].(float64) != 15 {
		t.Fatalf("unexpected average %v", snap["avgDurationMs"])
	}
}

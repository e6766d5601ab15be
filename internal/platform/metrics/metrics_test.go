package metrics

import (
	"testing"
	"time"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(404, 20*time.Millisecond)
	c.Record(500, 30*time.Millisecond)
	c.Event("request.approved")
	c.Event("request.approved")

	snap := c.Snapshot()
	if snap["requestsTotal"].(uint64) != 3 {
		t.Fatalf("unexpected total %v", snap["requestsTotal"])
	}
	if snap["errorsTotal"].(uint64) != 1 || snap["clientErrorsTotal"].(uint64) != 1 {
		t.Fatalf("unexpected error counts %+v", snap)
	}
	if snap["rateLimitedTotal"].(uint64) != 0 {
		t.Fatalf("unexpected rate limited count %v", snap["rateLimitedTotal"])
	}
	if snap["avgDurationMs"].(float64) != 20 {
		t.Fatalf("unexpected avg %v", snap["avgDurationMs"])
	}
	events := snap["events"].(map[string]uint64)
	if events["request.approved"] != 2 {
		t.Fatalf("unexpected events %v", events)
	}
}

func TestCollectorCountsRateLimited(t *testing.T) {
	c := New()
	c.Record(429, time.Millisecond)
	c.Record(429, time.Millisecond)
	c.Record(400, time.Millisecond)

	snap := c.Snapshot()
	if snap["rateLimitedTotal"].(uint64) != 2 {
		t.Fatalf("unexpected rate limited count %v", snap["rateLimitedTotal"])
	}
	if snap["clientErrorsTotal"].(uint64) != 3 {
		t.Fatalf("unexpected client error count %v", snap["clientErrorsTotal"])
	}
}

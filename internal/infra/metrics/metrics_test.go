//go:build !integration

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	MustRegister()
	MustRegister() // idempotent

	before := testutil.ToFloat64(tagActivations.WithLabelValues("success"))
	IncActivation(" Success ")
	if got := testutil.ToFloat64(tagActivations.WithLabelValues("success")); got != before+1 {
		t.Errorf("expected activation counter to increase by 1, got %v -> %v", before, got)
	}

	IncNotification("smtp", errors.New("down"))
	if got := testutil.ToFloat64(notificationsTotal.WithLabelValues("smtp", "failed")); got < 1 {
		t.Errorf("expected a failed smtp notification to be counted, got %v", got)
	}

	SetDBPoolStats(10, 7, 3)
	if got := testutil.ToFloat64(dbPoolStats.WithLabelValues("in_use")); got != 3 {
		t.Errorf("expected in_use=3, got %v", got)
	}
}

func TestSetTagInventory_ReplacesSnapshot(t *testing.T) {
	SetTagInventory(map[string]int{"active": 4, "blocked": 1})
	if got := testutil.ToFloat64(tagInventory.WithLabelValues("active")); got != 4 {
		t.Errorf("expected active=4, got %v", got)
	}

	SetTagInventory(map[string]int{"active": 2})
	if got := testutil.ToFloat64(tagInventory.WithLabelValues("active")); got != 2 {
		t.Errorf("expected active=2, got %v", got)
	}
	if n := testutil.CollectAndCount(tagInventory); n != 1 {
		t.Errorf("expected stale statuses to be dropped, got %d series", n)
	}
}

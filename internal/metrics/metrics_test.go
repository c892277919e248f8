package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// second registration is a no-op
	if err := Register(reg); err != nil {
		t.Fatalf("Register twice: %v", err)
	}

	IncStart("miroimage")
	IncStart("miroimage")
	IncStartFailure("miroshape")
	IncStop("miroimage")
	IncKill("miroimage")
	SetRunning("miroimage", true)
	SetRunning("miroshape", false)

	if got := testutil.ToFloat64(serviceStarts.WithLabelValues("miroimage")); got != 2 {
		t.Fatalf("starts_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(startFailures.WithLabelValues("miroshape")); got != 1 {
		t.Fatalf("start_failures_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(running.WithLabelValues("miroimage")); got != 1 {
		t.Fatalf("running = %v, want 1", got)
	}
	if got := testutil.ToFloat64(running.WithLabelValues("miroshape")); got != 0 {
		t.Fatalf("running = %v, want 0", got)
	}
}

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/vidyasagar/navshell/internal/nav"
)

func TestCollectorCountsIntentsAndLoads(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.IntentSubmitted(nav.IntentLoadURL, nil)
	c.IntentSubmitted(nav.IntentGoBack, nav.ErrAtHistoryBoundary)
	c.IntentSubmitted(nav.IntentLoadURL, nav.ErrBusy)
	c.LoadSettled(nav.IntentLoadURL, &nav.LoadError{Reason: "dns"}, 20*time.Millisecond)
	c.AgentCommand("navigate", "ok")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Intents.WithLabelValues("load_url", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Intents.WithLabelValues("go_back", "at_history_boundary")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Intents.WithLabelValues("load_url", "busy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Loads.WithLabelValues("load_url", "load_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AgentCommands.WithLabelValues("navigate", "ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.LoadDuration))
}

func TestResult(t *testing.T) {
	assert.Equal(t, "invalid_location", Result(errors.Join(nav.ErrInvalidLocation)))
	assert.Equal(t, "error", Result(errors.New("boom")))
}

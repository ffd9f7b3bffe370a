package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(aggregationRows.WithLabelValues("TOTAL"))
	CountRow("TOTAL")
	CountRow("TOTAL")
	assert.Equal(t, before+2, testutil.ToFloat64(aggregationRows.WithLabelValues("TOTAL")))

	okBefore := testutil.ToFloat64(aggregationRuns.WithLabelValues(OutcomeOK))
	ObserveAggregation(OutcomeOK, time.Now())
	assert.Equal(t, okBefore+1, testutil.ToFloat64(aggregationRuns.WithLabelValues(OutcomeOK)))
}

func TestWriteTextfile(t *testing.T) {
	CountComparison("Machine")
	path := filepath.Join(t.TempDir(), "greenmetrics.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `greenmetrics_comparisons_total{case="Machine"}`))
}

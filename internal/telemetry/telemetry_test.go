package telemetry

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/javamap/internal/model"
)

func TestMetricsCounts(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.FileScanned("pass1")
	m.FileScanned("pass1")
	m.FileFailed("pass2")
	m.Relations([]model.Relation{
		{Type: model.Declares},
		{Type: model.Calls},
		{Type: model.Calls},
	})
	m.Reference([]string{"import", "variable"})
	m.ObservePhase("pass1", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.filesScanned.WithLabelValues("pass1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fileFailures.WithLabelValues("pass2")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.relations.WithLabelValues("calls")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.references.WithLabelValues("import")))
}

func TestMetricsWriteTextfile(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.FileScanned("pass2")

	path := filepath.Join(t.TempDir(), "javamap.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `javamap_files_scanned_total{phase="pass2"} 1`)
}

func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.FileScanned("pass1")
	m.Relations([]model.Relation{{Type: model.Declares}})
	m.ObservePhase("x", time.Now())
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile("ignored"))
}

func TestSetupTracingNil(t *testing.T) {
	t.Parallel()

	shutdown, err := SetupTracing(nil, "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupTracingWriter(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := SetupTracing(&buf, "test")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

package dashboard_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/pkg/dashboard"
)

func TestExportFilename(t *testing.T) {
	exportedAt := time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, "analytics-30d-2024-03-15.json", dashboard.ExportFilename(dashboard.Range30Days, exportedAt))
}

func TestSnapshotWriteJSON(t *testing.T) {
	rows := dashboard.RowSet{
		Countries: []dashboard.MetricRow{{DimensionValue: "US", Count: 120}},
		Devices:   []dashboard.MetricRow{{DimensionValue: "mobile", Count: 4}},
	}
	summary := dashboard.SummaryStats{TotalViews: 150, UniqueVisitors: 90, AvgDurationSeconds: 42.5}
	snap := dashboard.NewSnapshot(dashboard.Range7Days, summary, rows, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, snap.WriteJSON(&buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{\n  \"timeRange\": \"7d\""), out)
	assert.Contains(t, out, "\n    \"totalViews\": 150")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	for _, key := range []string{"summary", "countries", "pages", "devices"} {
		assert.Contains(t, decoded, key)
	}
	assert.Equal(t, []any{}, decoded["pages"])
	assert.Equal(t, []any{map[string]any{"country": "US", "count": float64(120)}}, decoded["countries"])
	assert.Equal(t, 42.5, decoded["summary"].(map[string]any)["avgDuration"])
}

func TestSnapshotKeepsDimensionKeyForEmptyValues(t *testing.T) {
	rows := dashboard.RowSet{
		Countries: []dashboard.MetricRow{{DimensionValue: "", Count: 3}},
		Pages:     []dashboard.MetricRow{{DimensionValue: "", Count: 2}},
		Devices:   []dashboard.MetricRow{{DimensionValue: "", Count: 1}},
	}
	snap := dashboard.NewSnapshot(dashboard.Range7Days, dashboard.SummaryStats{}, rows, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, snap.WriteJSON(&buf))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, []any{map[string]any{"country": dashboard.UnknownValue, "count": float64(3)}}, decoded["countries"])
	assert.Equal(t, []any{map[string]any{"page": dashboard.UnknownValue, "count": float64(2)}}, decoded["pages"])
	assert.Equal(t, []any{map[string]any{"device": dashboard.UnknownValue, "count": float64(1)}}, decoded["devices"])
}

func TestSnapshotWriteFile(t *testing.T) {
	dir := t.TempDir()
	snap := dashboard.NewSnapshot(dashboard.Range30Days, dashboard.SummaryStats{}, dashboard.RowSet{}, time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC))

	path, err := snap.WriteFile(filepath.Join(dir, "exports"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "exports", "analytics-30d-2024-03-15.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

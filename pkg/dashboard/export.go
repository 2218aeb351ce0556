package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is the downloadable view of the dashboard.
type Snapshot struct {
	TimeRange  TimeRange    `json:"timeRange"`
	ExportedAt time.Time    `json:"exportedAt"`
	Summary    SummaryStats `json:"summary"`
	Countries  []Item       `json:"countries"`
	Pages      []Item       `json:"pages"`
	Devices    []Item       `json:"devices"`
}

// NewSnapshot flattens the summary and the locally filtered rows.
func NewSnapshot(r TimeRange, summary SummaryStats, rows RowSet, exportedAt time.Time) Snapshot {
	return Snapshot{
		TimeRange:  r,
		ExportedAt: exportedAt,
		Summary:    summary,
		Countries:  toItems(ViewCountries, rows.Get(ViewCountries)),
		Pages:      toItems(ViewPages, rows.Get(ViewPages)),
		Devices:    toItems(ViewDevices, rows.Get(ViewDevices)),
	}
}

func toItems(v View, rows []MetricRow) []Item {
	items := make([]Item, len(rows))
	for i, row := range rows {
		items[i] = NewItem(v, row)
	}
	return items
}

// ExportFilename names the export file after the range and the export date.
func ExportFilename(r TimeRange, t time.Time) string {
	return fmt.Sprintf("analytics-%s-%s.json", r, t.Format("2006-01-02"))
}

// Filename is ExportFilename for this snapshot.
func (s Snapshot) Filename() string {
	return ExportFilename(s.TimeRange, s.ExportedAt)
}

// WriteJSON writes the snapshot as 2-space indented JSON.
func (s Snapshot) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// WriteFile writes the snapshot into dir and returns the file path.
func (s Snapshot) WriteFile(dir string) (string, error) {
	var buf bytes.Buffer
	if err := s.WriteJSON(&buf); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, s.Filename())
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

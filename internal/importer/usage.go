package importer

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/bher20/eratecompare/internal/tariff"
)

// UsageRow is one line of a usage CSV: timestamp,value,direction.
type UsageRow struct {
	Timestamp string  `csv:"timestamp"`
	Value     float64 `csv:"value"`
	Direction string  `csv:"direction"`
}

// UsageTimeLayouts are tried in order when parsing timestamps. Timestamps
// without a zone are read in the location passed to ReadUsageCSV.
var UsageTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// ReadUsageCSV decodes readings and returns them ordered by time.
func ReadUsageCSV(r io.Reader, loc *time.Location) ([]tariff.UsageReading, error) {
	if loc == nil {
		loc = time.Local
	}
	var rows []UsageRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("decode usage csv: %w", err)
	}

	out := make([]tariff.UsageReading, 0, len(rows))
	for i, row := range rows {
		ts, err := parseTimestamp(row.Timestamp, loc)
		if err != nil {
			return nil, fmt.Errorf("usage row %d: %w", i+1, err)
		}
		dir, err := tariff.ParseDirection(row.Direction)
		if err != nil {
			return nil, fmt.Errorf("usage row %d: %w", i+1, err)
		}
		out = append(out, tariff.UsageReading{Time: ts, KWh: row.Value, Direction: dir})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// WriteUsageCSV encodes readings with RFC 3339 timestamps.
func WriteUsageCSV(w io.Writer, readings []tariff.UsageReading) error {
	rows := make([]UsageRow, 0, len(readings))
	for _, r := range readings {
		rows = append(rows, UsageRow{
			Timestamp: r.Time.Format(time.RFC3339),
			Value:     r.KWh,
			Direction: string(r.Direction),
		})
	}
	return gocsv.Marshal(rows, w)
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range UsageTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

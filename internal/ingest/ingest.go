// Package ingest reads activity import files.
package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rshade/ecolife/internal/emissions"
	"github.com/rshade/ecolife/internal/ledger"
	"github.com/rshade/ecolife/internal/logging"
)

// Supported file formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

const dateLayout = "2006-01-02"

var (
	// ErrUnsupportedFormat is returned for file extensions with no parser.
	ErrUnsupportedFormat = errors.New("unsupported import format")
	// ErrInvalidRecord marks a row that cannot become an activity.
	ErrInvalidRecord = errors.New("invalid import record")
)

// Record is one activity as written in an import file.
type Record struct {
	ActivityType string   `json:"activityType" yaml:"activityType"`
	Value        *float64 `json:"value"        yaml:"value"`
	Unit         string   `json:"unit"         yaml:"unit"`
	Date         string   `json:"date"         yaml:"date"`
	Notes        string   `json:"notes"        yaml:"notes"`
}

// NewActivity converts r into a ledger request for userID. Line is the
// 1-based position used in error messages.
func (r Record) NewActivity(userID string, line int) (ledger.NewActivity, error) {
	if strings.TrimSpace(r.ActivityType) == "" {
		return ledger.NewActivity{}, fmt.Errorf("%w: record %d: activityType is required", ErrInvalidRecord, line)
	}
	if r.Value == nil {
		return ledger.NewActivity{}, fmt.Errorf("%w: record %d: value is required", ErrInvalidRecord, line)
	}
	in := ledger.NewActivity{
		UserID:       userID,
		ActivityType: emissions.ActivityType(strings.TrimSpace(r.ActivityType)),
		Value:        r.Value,
		Unit:         emissions.Unit(strings.TrimSpace(r.Unit)),
		Notes:        r.Notes,
	}
	if d := strings.TrimSpace(r.Date); d != "" {
		t, err := parseDate(d)
		if err != nil {
			return ledger.NewActivity{}, fmt.Errorf("%w: record %d: %w", ErrInvalidRecord, line, err)
		}
		in.Date = &t
	}
	return in, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not YYYY-MM-DD or RFC 3339", raw)
	}
	return t, nil
}

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadFile reads and parses an import file, choosing the parser by extension.
func LoadFile(ctx context.Context, path string) ([]Record, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading import file: %w", err)
	}
	return Parse(ctx, format, data)
}

// Parse decodes data in the given format.
func Parse(ctx context.Context, format string, data []byte) ([]Record, error) {
	log := logging.FromContext(ctx)
	log.Debug().
		Ctx(ctx).
		Str("component", "ingest").
		Str("format", format).
		Int("data_size_bytes", len(data)).
		Msg("parsing import file")

	var (
		records []Record
		err     error
	)
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &records)
	case FormatYAML:
		err = yaml.Unmarshal(data, &records)
	case FormatCSV:
		records, err = parseCSV(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		log.Error().Ctx(ctx).Str("component", "ingest").Str("format", format).Err(err).Msg("import parse failed")
		return nil, fmt.Errorf("parsing %s import: %w", format, err)
	}

	log.Debug().Ctx(ctx).Str("component", "ingest").Int("record_count", len(records)).Msg("import parsed")
	return records, nil
}

// parseCSV reads a header row naming the Record fields, in any order.
// activityType and value columns are required.
func parseCSV(data []byte) ([]Record, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	typeCol, okType := cols["activitytype"]
	valueCol, okValue := cols["value"]
	if !okType || !okValue {
		return nil, fmt.Errorf("%w: csv header needs activityType and value columns", ErrInvalidRecord)
	}
	field := func(row []string, name string) string {
		if i, ok := cols[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		rec := Record{
			ActivityType: strings.TrimSpace(row[typeCol]),
			Unit:         field(row, "unit"),
			Date:         field(row, "date"),
			Notes:        field(row, "notes"),
		}
		if raw := strings.TrimSpace(row[valueCol]); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: value %q is not a number", ErrInvalidRecord, line, raw)
			}
			rec.Value = &v
		}
		records = append(records, rec)
	}
}

package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrUnknownFormat reports a format name outside the supported set. New
// still returns a usable formatter alongside it so callers can warn and
// keep going instead of dying on a typo.
var ErrUnknownFormat = errors.New("unknown report format")

// Formatter renders header-labelled rows to a writer.
type Formatter interface {
	Render(w io.Writer, header []string, rows [][]string) error
}

// New selects a formatter by name: "csv" or "json". Any other name returns
// the Structured formatter together with ErrUnknownFormat.
func New(format string) (Formatter, error) {
	switch format {
	case "csv":
		return Tabular{}, nil
	case "json":
		return Structured{}, nil
	default:
		return Structured{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Tabular writes CSV with the header as the first record. Quoting is left
// to encoding/csv so fields holding commas, quotes or newlines round-trip.
type Tabular struct{}

func (Tabular) Render(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Structured writes a JSON array with one object per row, keyed by the
// header names. Rows shorter than the header fill the missing keys with
// empty strings.
type Structured struct{}

func (Structured) Render(w io.Writer, header []string, rows [][]string) error {
	records := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		record := make(map[string]string, len(header))
		for i, key := range header {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			record[key] = value
		}
		records = append(records, record)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// OpenOutput opens path for writing, or hands back stdout when path is
// empty. Stdout is wrapped so callers can defer Close on every branch.
func OpenOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

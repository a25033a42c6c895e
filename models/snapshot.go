package models

import (
	"strconv"
	"time"
)

// Snapshot is the persisted per-file, per-commit analysis summary. At most
// one live row exists per (filename, git_commit); superseding a row deletes
// it and its violations first, never updates in place.
type Snapshot struct {
	ID            int64     `json:"id"`
	Filename      string    `json:"filename"`
	Sev1          int       `json:"sev_1"`
	Sev2          int       `json:"sev_2"`
	Sev3          int       `json:"sev_3"`
	Sev4          int       `json:"sev_4"`
	Sev5          int       `json:"sev_5"`
	Lines         int       `json:"lines"`
	AvgMcCabe     float64   `json:"avg_mccabe"`
	Subs          int       `json:"subs"`
	Violations    int       `json:"violations"`
	GitCommit     string    `json:"git_commit"`
	GitCommitTime time.Time `json:"git_commit_time"`
	DateInserted  time.Time `json:"date_inserted"`
}

// StoredViolation is the persisted detail row behind a Snapshot. It shares
// structure with Violation but not identity: the diff algorithm only ever
// sees ephemeral ViolationSets rebuilt from these rows.
type StoredViolation struct {
	ID     int64 `json:"id"`
	FileID int64 `json:"file_id"`
	// Filename is joined in from the owning Snapshot for display.
	Filename      string `json:"filename"`
	Violation     `json:",inline"`
	GitCommit     string    `json:"git_commit"`
	GitCommitTime time.Time `json:"git_commit_time"`
	DateInserted  time.Time `json:"date_inserted"`
}

// Report headers. Column order is part of the output contract.
var (
	DetailHeader = []string{"file", "line_number", "description", "explanation", "severity", "commit"}

	SummaryHeader = []string{"filename", "sev_1", "sev_2", "sev_3", "sev_4", "sev_5", "lines", "avg_mccabe", "subs", "violations", "commit"}

	HistoryHeader = []string{"filename", "sev_1", "sev_2", "sev_3", "sev_4", "sev_5", "lines", "avg_mccabe", "subs", "violations", "commit", "date_inserted"}
)

// DetailRow projects one fresh finding into DetailHeader order.
func DetailRow(file string, v Violation, commit string) []string {
	return []string{
		file,
		strconv.Itoa(v.Line),
		v.Description,
		v.Explanation,
		strconv.Itoa(v.Severity),
		commit,
	}
}

// SummaryRow projects one analysis run into SummaryHeader order.
func SummaryRow(file string, set *ViolationSet, metrics FileMetrics, commit string) []string {
	sev := set.SeverityCounts()
	return []string{
		file,
		strconv.Itoa(sev[0]),
		strconv.Itoa(sev[1]),
		strconv.Itoa(sev[2]),
		strconv.Itoa(sev[3]),
		strconv.Itoa(sev[4]),
		strconv.Itoa(metrics.Lines),
		formatMcCabe(metrics.AvgMcCabe),
		strconv.Itoa(metrics.Subs),
		strconv.Itoa(set.Total()),
		commit,
	}
}

// SummaryRow projects the stored row into SummaryHeader order.
func (s Snapshot) SummaryRow() []string {
	return []string{
		s.Filename,
		strconv.Itoa(s.Sev1),
		strconv.Itoa(s.Sev2),
		strconv.Itoa(s.Sev3),
		strconv.Itoa(s.Sev4),
		strconv.Itoa(s.Sev5),
		strconv.Itoa(s.Lines),
		formatMcCabe(s.AvgMcCabe),
		strconv.Itoa(s.Subs),
		strconv.Itoa(s.Violations),
		s.GitCommit,
	}
}

// HistoryRow is SummaryRow plus the insertion timestamp, for stored-history
// listings.
func (s Snapshot) HistoryRow() []string {
	return append(s.SummaryRow(), s.DateInserted.UTC().Format(time.RFC3339))
}

func formatMcCabe(avg float64) string {
	return strconv.FormatFloat(avg, 'f', 2, 64)
}

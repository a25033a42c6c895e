package perlcritic

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/crittrail/crittrail/models"
)

// violationFields is the field count of one verboseFormat line:
// line, severity, policy, description, explanation, source.
const violationFields = 6

var (
	subsPattern   = regexp.MustCompile(`^(\d+) subroutines/methods\.`)
	linesPattern  = regexp.MustCompile(`^(\d+) lines(?:[.,]|$)`)
	mccabePattern = regexp.MustCompile(`^Average McCabe score of subroutines was ([0-9]+(?:\.[0-9]+)?)`)
)

// parseOutput splits engine stdout into violations and file metrics.
// Violation lines are tab delimited per verboseFormat; everything else is
// offered to the statistics matchers and otherwise ignored, which covers
// the "source OK" line and the parts of the statistics block we do not
// keep. A missing statistics block simply leaves the metrics at zero.
func parseOutput(output string) (*models.ViolationSet, models.FileMetrics, error) {
	set := models.NewViolationSet()
	var metrics models.FileMetrics

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.SplitN(line, "\t", violationFields)
		if len(fields) == violationFields {
			v, err := parseViolation(fields)
			if err != nil {
				return nil, models.FileMetrics{}, fmt.Errorf("malformed violation line %q: %w", line, err)
			}
			set.Add(v)
			continue
		}

		applyStatistic(&metrics, strings.TrimSpace(line))
	}

	return set, metrics, nil
}

func parseViolation(fields []string) (models.Violation, error) {
	lineNum, err := strconv.Atoi(fields[0])
	if err != nil {
		return models.Violation{}, fmt.Errorf("line number %q: %w", fields[0], err)
	}
	severity, err := strconv.Atoi(fields[1])
	if err != nil {
		return models.Violation{}, fmt.Errorf("severity %q: %w", fields[1], err)
	}
	if severity < 1 || severity > 5 {
		return models.Violation{}, fmt.Errorf("severity %d out of range", severity)
	}
	return models.Violation{
		Line:        lineNum,
		Severity:    severity,
		Policy:      fields[2],
		Description: fields[3],
		Explanation: fields[4],
		Source:      fields[5],
	}, nil
}

func applyStatistic(metrics *models.FileMetrics, line string) {
	if m := subsPattern.FindStringSubmatch(line); m != nil {
		metrics.Subs, _ = strconv.Atoi(m[1])
		return
	}
	if m := linesPattern.FindStringSubmatch(line); m != nil {
		metrics.Lines, _ = strconv.Atoi(m[1])
		return
	}
	if m := mccabePattern.FindStringSubmatch(line); m != nil {
		metrics.AvgMcCabe, _ = strconv.ParseFloat(m[1], 64)
	}
}

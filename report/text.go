package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/erkboost/pkg/errors"
)

// Separator は各条件の出力ブロックを区切る行
var Separator = strings.Repeat("_", 70)

// FormatVector renders values as a bracketed list using the shortest
// representation that parses back to the identical float64.
func FormatVector(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ParseVector is the inverse of FormatVector. Commas are optional.
func ParseVector(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, errors.NewValidationError("vector", "must be enclosed in brackets", s)
	}
	fields := strings.FieldsFunc(s[1:len(s)-1], func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.NewValidationError("vector", fmt.Sprintf("element %d is not a number", i), f)
		}
		out[i] = v
	}
	return out, nil
}

// WriteSummary prints the cross-validation summary block for one source.
func WriteSummary(w io.Writer, source string, s Summary) error {
	if _, err := fmt.Fprintf(w, "Source File: %s\n", source); err != nil {
		return err
	}
	return WriteScores(w, []ScoreLine{
		{Label: "Rsq", Mean: s.R2Mean, SEM: s.R2SEM},
		{Label: "EV", Mean: s.EVMean, SEM: s.EVSEM},
	})
}

// ScoreLine is one scorer's mean and standard error across folds.
type ScoreLine struct {
	Label string
	Mean  float64
	SEM   float64
}

// WriteScores prints one "Label Mean/SEM" line per scorer.
func WriteScores(w io.Writer, lines []ScoreLine) error {
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%-4s Mean:  %g, %-3s SEM:  %g\n", l.Label, l.Mean, l.Label, l.SEM); err != nil {
			return err
		}
	}
	return nil
}

// WriteImportance prints the mean and SEM vectors followed by the separator.
func WriteImportance(w io.Writer, means, sems []float64) error {
	_, err := fmt.Fprintf(w, "Importance Mean: %s\nImportance SEM:  %s\n%s\n",
		FormatVector(means), FormatVector(sems), Separator)
	return err
}

// WritePValues prints the per-parameter p-values, one per line, most
// significant first according to order.
func WritePValues(w io.Writer, names []string, pValues []float64, order []int) error {
	if len(names) != len(pValues) {
		return errors.NewDimensionError("WritePValues", len(names), len(pValues), 0)
	}
	if order == nil {
		order = make([]int, len(names))
		for i := range order {
			order[i] = i
		}
	}
	for _, i := range order {
		if _, err := fmt.Fprintf(w, "%-12s p = %.6g\n", names[i], pValues[i]); err != nil {
			return err
		}
	}
	return nil
}

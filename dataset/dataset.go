// Package dataset loads the response-time spreadsheets: a header row, one
// column per model parameter and the response time in the last column.
package dataset

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"github.com/YuminosukeSato/erkboost/schema"
	"gonum.org/v1/gonum/mat"
)

// Dataset is a numeric table split into features and target.
type Dataset struct {
	Source       string
	FeatureNames []string
	TargetName   string
	X            *mat.Dense    // n×p
	Y            *mat.VecDense // n
}

// NSamples returns the number of rows.
func (d *Dataset) NSamples() int {
	r, _ := d.X.Dims()
	return r
}

// NFeatures returns the number of feature columns.
func (d *Dataset) NFeatures() int {
	_, c := d.X.Dims()
	return c
}

// ValidateSchema checks the feature header against s.
func (d *Dataset) ValidateSchema(s *schema.Schema) error {
	return s.Validate(d.Source, d.FeatureNames)
}

// Load reads a dataset, choosing the format from the file extension.
func Load(path string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path)
	case ".csv", ".txt":
		return LoadCSV(path)
	default:
		return nil, errors.Wrapf(errors.ErrUnsupportedFormat, "%s", path)
	}
}

// FromRecords builds a Dataset from string cells; the first record is the
// header. Rows whose cells are all empty are skipped.
func FromRecords(source string, records [][]string) (*Dataset, error) {
	if len(records) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s: no header row", source)
	}
	header := trimTrailingEmpty(records[0])
	if len(header) < 2 {
		return nil, errors.NewDataFormatError(source, 1, len(header), strings.Join(header, ","),
			"need at least one feature column and a target column")
	}
	nCols := len(header)

	var body [][]string
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		body = append(body, rec)
	}
	if len(body) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s: no data rows", source)
	}

	X := mat.NewDense(len(body), nCols-1, nil)
	y := mat.NewVecDense(len(body), nil)
	for i, rec := range body {
		row := i + 2 // 1始まり、ヘッダー行を含む
		if len(trimTrailingEmpty(rec)) > nCols {
			return nil, errors.NewDataFormatError(source, row, nCols+1, rec[nCols], "more cells than header columns")
		}
		for j := 0; j < nCols; j++ {
			cell := ""
			if j < len(rec) {
				cell = strings.TrimSpace(rec[j])
			}
			v, err := parseCell(cell)
			if err != nil {
				return nil, errors.NewDataFormatError(source, row, j+1, cell, err.Error())
			}
			if j == nCols-1 {
				y.SetVec(i, v)
			} else {
				X.Set(i, j, v)
			}
		}
	}

	names := make([]string, nCols-1)
	for j := range names {
		names[j] = strings.TrimSpace(header[j])
	}
	return &Dataset{
		Source:       source,
		FeatureNames: names,
		TargetName:   strings.TrimSpace(header[nCols-1]),
		X:            X,
		Y:            y,
	}, nil
}

func parseCell(cell string) (float64, error) {
	if cell == "" {
		return 0, errors.New("empty cell")
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, errors.New("not a number")
	}
	if err := errors.CheckScalar("parseCell", v, 0); err != nil {
		return 0, errors.New("non-finite value")
	}
	return v, nil
}

func trimTrailingEmpty(rec []string) []string {
	n := len(rec)
	for n > 0 && strings.TrimSpace(rec[n-1]) == "" {
		n--
	}
	return rec[:n]
}

func isBlank(rec []string) bool {
	return len(trimTrailingEmpty(rec)) == 0
}

// Records converts the dataset back to string cells with a header row,
// using the shortest representation that parses back to the same float.
func (d *Dataset) Records() [][]string {
	n, p := d.X.Dims()
	out := make([][]string, 0, n+1)
	header := append(append([]string(nil), d.FeatureNames...), d.TargetName)
	out = append(out, header)
	for i := 0; i < n; i++ {
		rec := make([]string, p+1)
		for j := 0; j < p; j++ {
			rec[j] = strconv.FormatFloat(d.X.At(i, j), 'g', -1, 64)
		}
		rec[p] = strconv.FormatFloat(d.Y.AtVec(i), 'g', -1, 64)
		out = append(out, rec)
	}
	return out
}

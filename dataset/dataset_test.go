package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"github.com/YuminosukeSato/erkboost/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func sample() *Dataset {
	return &Dataset{
		Source:       "sample",
		FeatureNames: []string{"a", "b"},
		TargetName:   "time",
		X:            mat.NewDense(3, 2, []float64{0.1, 1e-7, 2, -3.5, 1.0 / 3.0, 4}),
		Y:            mat.NewVecDense(3, []float64{10, 20.25, 0.30000000000000004}),
	}
}

func TestReadCSV(t *testing.T) {
	in := "a, b,time\n1,2,3\n4,5,6\n\n"
	d, err := ReadCSV(strings.NewReader(in), "in.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, d.FeatureNames)
	assert.Equal(t, "time", d.TargetName)
	assert.Equal(t, 2, d.NSamples())
	assert.Equal(t, 2, d.NFeatures())
	assert.Equal(t, 5.0, d.X.At(1, 1))
	assert.Equal(t, 6.0, d.Y.AtVec(1))
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		row    int
		column int
	}{
		{"non numeric", "a,b,t\n1,x,3\n", 2, 2},
		{"missing cell", "a,b,t\n1,2,3\n1,2\n", 3, 3},
		{"extra cell", "a,b,t\n1,2,3,4\n", 2, 4},
		{"infinite", "a,b,t\n1,Inf,3\n", 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in), "bad.csv")
			var de *errors.DataFormatError
			require.True(t, errors.As(err, &de), "got %v", err)
			assert.Equal(t, tt.row, de.Row)
			assert.Equal(t, tt.column, de.Column)
			assert.Equal(t, "bad.csv", de.Source)
		})
	}

	_, err := ReadCSV(strings.NewReader(""), "empty.csv")
	assert.ErrorIs(t, err, errors.ErrEmptyData)

	_, err = ReadCSV(strings.NewReader("a,b\n"), "header-only.csv")
	assert.ErrorIs(t, err, errors.ErrEmptyData)

	_, err = ReadCSV(strings.NewReader("t\n1\n"), "one-col.csv")
	assert.Error(t, err)
}

func TestCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))

	d, err := ReadCSV(&buf, "rt.csv")
	require.NoError(t, err)
	assert.True(t, mat.Equal(sample().X, d.X))
	assert.True(t, mat.Equal(sample().Y, d.Y))
}

func TestXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ERK_times_test.xlsx")
	require.NoError(t, SaveXLSX(path, sample()))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, d.Source)
	assert.Equal(t, []string{"a", "b"}, d.FeatureNames)
	assert.Equal(t, "time", d.TargetName)
	assert.True(t, mat.Equal(sample().X, d.X), "values must survive the workbook exactly")
	assert.True(t, mat.Equal(sample().Y, d.Y))
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in_memory.xlsx")
	require.NoError(t, SaveXLSX(path, sample()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	d, err := ReadXLSX(bytes.NewReader(data), "upload.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "upload.xlsx", d.Source)
	assert.Equal(t, []string{"a", "b"}, d.FeatureNames)
	assert.True(t, mat.Equal(sample().X, d.X))

	_, err = ReadXLSX(strings.NewReader("not a workbook"), "broken.xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.xlsx")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("data.parquet")
	assert.ErrorIs(t, err, errors.ErrUnsupportedFormat)

	_, err = Load(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestValidateSchema(t *testing.T) {
	s := schema.Default()
	names := s.Names()
	n := len(names)

	d := &Dataset{
		Source:       "x.csv",
		FeatureNames: names,
		TargetName:   "time",
		X:            mat.NewDense(1, n, nil),
		Y:            mat.NewVecDense(1, nil),
	}
	assert.NoError(t, d.ValidateSchema(s))

	d.FeatureNames = names[1:]
	var se *errors.SchemaError
	assert.True(t, errors.As(d.ValidateSchema(s), &se))
}

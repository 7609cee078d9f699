package dataset

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/YuminosukeSato/erkboost/pkg/errors"
)

// LoadCSV reads a comma-separated dataset file.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open csv")
	}
	defer f.Close()
	return ReadCSV(f, path)
}

// ReadCSV reads a comma-separated dataset from r.
func ReadCSV(r io.Reader, source string) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "%s: read csv", source)
	}
	return FromRecords(source, records)
}

// WriteCSV writes d with a header row.
func WriteCSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(d.Records()); err != nil {
		return errors.Wrap(err, "write csv")
	}
	return nil
}

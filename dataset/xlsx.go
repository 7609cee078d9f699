package dataset

import (
	"io"
	"os"

	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// LoadXLSX reads the first worksheet of an Excel workbook.
func LoadXLSX(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open xlsx")
	}
	defer file.Close()
	return ReadXLSX(file, path)
}

// ReadXLSX reads the first worksheet of a workbook from r.
func ReadXLSX(r io.Reader, source string) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: open xlsx", source)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s: workbook has no sheets", source)
	}
	// 表示形式で丸められないよう生の値を読む
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "%s: read sheet %q", source, sheets[0])
	}
	return FromRecords(source, rows)
}

// SaveXLSX writes d to a new workbook with a single sheet.
func SaveXLSX(path string, d *Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	n, p := d.X.Dims()

	header := make([]interface{}, 0, p+1)
	for _, name := range d.FeatureNames {
		header = append(header, name)
	}
	header = append(header, d.TargetName)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.Wrap(err, "write header")
	}

	row := make([]interface{}, p+1)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			row[j] = d.X.At(i, j)
		}
		row[p] = d.Y.AtVec(i)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "write row %d", i+2)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrap(err, "save xlsx")
	}
	return nil
}

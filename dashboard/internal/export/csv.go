package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/fetalalert/fetalalert/pkg/types"
)

// WriteCSV writes rows under the fixed header. Values are written exactly
// as received; unavailable values are empty cells.
func WriteCSV(w io.Writer, rows []types.Row) error {
	if len(rows) == 0 {
		return ErrNoRows
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for i, r := range rows {
		if err := cw.Write(fields(r)); err != nil {
			return fmt.Errorf("export: write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return nil
}

// ParseCSV reads a file produced by WriteCSV back into rows.
func ParseCSV(r io.Reader) ([]types.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("export: read header: %w", err)
	}
	for i, h := range Header {
		if head[i] != h {
			return nil, fmt.Errorf("export: header column %d is %q, want %q", i+1, head[i], h)
		}
	}

	var rows []types.Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("export: read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, types.Row{
			Date:      rec[0],
			Time:      rec[1],
			HeartRate: types.ParseValue(rec[2]),
			SpO2:      types.ParseValue(rec[3]),
			Movements: types.ParseValue(rec[4]),
		})
	}
	return rows, nil
}

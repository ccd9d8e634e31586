package export

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/fetalalert/fetalalert/pkg/types"
)

// ErrNoRows is returned when there is nothing to export.
var ErrNoRows = errors.New("export: no rows to export")

// Header is the fixed column header, in column order.
var Header = []string{"FECHA", "HORA", "FC", "SpO2", "PATADAS"}

// Supported formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Filename returns base with its extension replaced by format's.
func Filename(base, format string) string {
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + format
}

// fields returns a row's cells in column order, raw values as received.
func fields(r types.Row) []string {
	return []string{r.Date, r.Time, r.HeartRate.Raw, r.SpO2.Raw, r.Movements.Raw}
}

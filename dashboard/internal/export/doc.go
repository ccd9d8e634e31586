// Package export writes the rendered row set to CSV or XLSX.
//
// Columns are fixed: FECHA, HORA, FC, SpO2, PATADAS. The CSV writer emits
// values exactly as received so ParseCSV reproduces the original rows.
// Exporting an empty set fails with ErrNoRows.
package export

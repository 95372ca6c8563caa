// Package output provides mapping result formatters.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/txmap/internal/mapper"
)

// ResultWriter writes the rows of mapped groups.
type ResultWriter interface {
	WriteHeader() error
	WriteResult(res *mapper.Result) error
	Flush() error
}

// Format names an output format.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatTab    Format = "tab"
	FormatDuckDB Format = "duckdb"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatTab, FormatDuckDB:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want csv, tab or duckdb)", s)
}

// NewWriter returns a text writer for format. DuckDB output is handled by
// the duckdb package.
func NewWriter(w io.Writer, format Format, aux []string) (ResultWriter, error) {
	switch format {
	case FormatCSV:
		return NewCSVWriter(w), nil
	case FormatTab:
		return NewTabWriter(w, aux), nil
	}
	return nil, fmt.Errorf("format %q is not a text format", format)
}

// TabWriter writes mapping rows in tab-delimited format with the genomic
// coordinates alongside the transcript offset.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
	aux     int
}

// NewTabWriter creates a new tab-delimited writer. aux names the payload
// columns carried in each row's Values.
func NewTabWriter(w io.Writer, aux []string) *TabWriter {
	columns := []string{
		"#chrom",
		"strand",
		"genomic_position",
		"transcript",
		"spliced_offset",
	}
	columns = append(columns, aux...)
	columns = append(columns, "spliced")

	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: columns,
		aux:     len(aux),
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// WriteResult writes every row of res.
func (tw *TabWriter) WriteResult(res *mapper.Result) error {
	for i := range res.Rows {
		if err := tw.Write(res.Chrom, res.Strand.String(), &res.Rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// Write writes a single row.
func (tw *TabWriter) Write(chrom, strand string, row *mapper.Row) error {
	values := make([]string, 0, len(tw.columns))
	values = append(values,
		chrom,
		strand,
		strconv.FormatInt(row.GenomicPos, 10),
		row.TranscriptID,
		strconv.FormatInt(row.Offset, 10),
	)

	for i := 0; i < tw.aux; i++ {
		if i < len(row.Values) {
			values = append(values, strconv.FormatFloat(row.Values[i], 'f', -1, 64))
		} else {
			values = append(values, "-")
		}
	}

	spliced := "0"
	if row.Spliced {
		spliced = "1"
	}
	values = append(values, spliced)

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

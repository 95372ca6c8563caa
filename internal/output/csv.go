package output

import (
	"bufio"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/inodb/txmap/internal/mapper"
)

// CSVRow is one line of the transcript-relative CSV consumed by the
// downstream sequence extraction step.
type CSVRow struct {
	Transcript string  `csv:"transcript"`
	Position   int64   `csv:"position"`
	RSR        float64 `csv:"rsr"`
	TotalReads float64 `csv:"total_reads"`
	Splice     int     `csv:"splice"`
}

// CSVWriter writes mapping rows as transcript,position,rsr,total_reads,splice.
type CSVWriter struct {
	w *bufio.Writer
}

// NewCSVWriter creates a CSV writer. The payload columns are fixed to rsr and
// total_reads.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line taken from the CSVRow tags.
func (cw *CSVWriter) WriteHeader() error {
	return gocsv.Marshal([]*CSVRow{}, cw.w)
}

// WriteResult writes every row of res.
func (cw *CSVWriter) WriteResult(res *mapper.Result) error {
	if len(res.Rows) == 0 {
		return nil
	}
	rows := make([]*CSVRow, len(res.Rows))
	for i := range res.Rows {
		rows[i] = toCSVRow(&res.Rows[i])
	}
	return gocsv.MarshalWithoutHeaders(rows, cw.w)
}

// Flush flushes any buffered data to the underlying writer.
func (cw *CSVWriter) Flush() error {
	return cw.w.Flush()
}

func toCSVRow(r *mapper.Row) *CSVRow {
	row := &CSVRow{
		Transcript: r.TranscriptID,
		Position:   r.Offset,
	}
	if len(r.Values) > 0 {
		row.RSR = r.Values[0]
	}
	if len(r.Values) > 1 {
		row.TotalReads = r.Values[1]
	}
	if r.Spliced {
		row.Splice = 1
	}
	return row
}

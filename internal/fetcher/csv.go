package fetcher

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter rune // ',' when zero
	Comment   rune // lines starting with it are skipped; 0 disables
}

func newCSVReader(r io.Reader, opts CSVOptions) *csv.Reader {
	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.Comment = opts.Comment
	// Exported site lists are often ragged and loosely quoted.
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	return cr
}

// StreamCSV emits trimmed records on the first channel. A read failure or
// cancellation is reported on the second; both close when the reader is done.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	out := make(chan []string, 64)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(out)
		if err := pumpCSV(ctx, newCSVReader(r, opts), out); err != nil {
			errc <- err
		}
	}()

	return out, errc
}

func pumpCSV(ctx context.Context, cr *csv.Reader, out chan<- []string) error {
	for {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "csv: context cancelled")
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "csv: read record")
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		select {
		case out <- rec:
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "csv: context cancelled")
		}
	}
}

// ReadCSV collects every record from StreamCSV.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) ([][]string, error) {
	recs, errc := StreamCSV(ctx, r, opts)
	var rows [][]string
	for rec := range recs {
		rows = append(rows, rec)
	}
	if err := <-errc; err != nil {
		return nil, err
	}
	return rows, nil
}

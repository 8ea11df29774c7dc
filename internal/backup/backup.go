package backup

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/tvanderstad/parasol-db/internal/kv"
	"github.com/tvanderstad/parasol-db/internal/view"
)

// Format is the version written in every export header.
const Format = 1

// exportChunk bounds the records held in memory while exporting.
const exportChunk = 1024

// DefaultBatchSize is the number of commands Import writes per batch.
const DefaultBatchSize = 1000

var (
	ErrNotEmpty  = errors.New("backup: target table is not empty")
	ErrBadHeader = errors.New("backup: missing or invalid header")
)

var xzMagic = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

// Header is the first line of an export.
type Header struct {
	Format       int      `json:"format"`
	Table        string   `json:"table"`
	Seq          view.Seq `json:"seq"`
	ExportedAtMs int64    `json:"exportedAtMs"`
}

// Entry is one exported command.
type Entry struct {
	Seq view.Seq `json:"seq"`
	kv.Command
}

type ExportOptions struct {
	// Compress wraps the output in an xz stream.
	Compress bool
	// To bounds the export; zero means the table's current seq.
	To view.Seq
}

// Export writes the header and every command of (0, To] of s as JSON lines.
// It returns the number of commands written.
func Export(w io.Writer, s *kv.Store, opts ExportOptions) (n int, err error) {
	to := opts.To
	if to == 0 || to > s.CurrentSeq() {
		to = s.CurrentSeq()
	}
	if opts.Compress {
		xw, xerr := xz.NewWriter(w)
		if xerr != nil {
			return 0, fmt.Errorf("xz writer: %w", xerr)
		}
		defer func() {
			if cerr := xw.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("xz close: %w", cerr)
			}
		}()
		w = xw
	}
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	hdr := Header{Format: Format, Table: s.Name(), Seq: to, ExportedAtMs: time.Now().UnixMilli()}
	if err := enc.Encode(hdr); err != nil {
		return 0, err
	}
	for lo := view.Seq(0); lo < to; {
		recs, err := s.Log().Records(lo, to, view.Forward, exportChunk)
		if err != nil {
			return n, err
		}
		if len(recs) == 0 {
			break
		}
		for _, r := range recs {
			if err := enc.Encode(Entry{Seq: r.Seq, Command: r.Event}); err != nil {
				return n, err
			}
			n++
		}
		lo = recs[len(recs)-1].Seq
	}
	return n, bw.Flush()
}

type ImportOptions struct {
	// BatchSize bounds the commands per write; defaults to DefaultBatchSize.
	BatchSize int
	// Append allows importing into a table that already has records. Seqs
	// are then reassigned after the table's current seq.
	Append bool
}

// Import reads an export (plain or xz, detected from the stream) and applies
// its commands to s in order. It returns the header and the number of
// commands applied.
func Import(ctx context.Context, r io.Reader, s *kv.Store, opts ImportOptions) (Header, int, error) {
	if !opts.Append && s.CurrentSeq() != 0 {
		return Header{}, 0, fmt.Errorf("%w: %s at seq %d", ErrNotEmpty, s.Name(), s.CurrentSeq())
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	br := bufio.NewReader(r)
	if magic, _ := br.Peek(len(xzMagic)); bytes.Equal(magic, xzMagic) {
		xr, err := xz.NewReader(br)
		if err != nil {
			return Header{}, 0, fmt.Errorf("xz reader: %w", err)
		}
		br = bufio.NewReader(xr)
	}

	dec := json.NewDecoder(br)
	var hdr Header
	if err := dec.Decode(&hdr); err != nil || hdr.Format != Format {
		return Header{}, 0, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}

	n := 0
	batch := make([]kv.Command, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := s.Apply(ctx, batch...); err != nil {
			return err
		}
		n += len(batch)
		batch = batch[:0]
		return nil
	}
	for {
		var e Entry
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return hdr, n, fmt.Errorf("entry %d: %w", n+len(batch)+1, err)
		}
		if err := e.Command.Validate(); err != nil {
			return hdr, n, fmt.Errorf("entry seq %d: %w", e.Seq, err)
		}
		batch = append(batch, e.Command)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return hdr, n, err
			}
		}
	}
	return hdr, n, flush()
}

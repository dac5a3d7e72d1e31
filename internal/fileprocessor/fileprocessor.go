// Package fileprocessor orchestrates one file's tail -> scan -> parse ->
// accumulate pass, the unit of work the coordinator runs under a file's
// gate.
package fileprocessor

import (
	"github.com/otus-labs/logwatch-agent/internal/parser"
	"github.com/otus-labs/logwatch-agent/internal/registry"
	"github.com/otus-labs/logwatch-agent/internal/scanner"
	"github.com/otus-labs/logwatch-agent/internal/stats"
	"github.com/otus-labs/logwatch-agent/internal/tailer"
)

// Reader is the tailer capability the processor depends on, expressed as an
// interface so tests can substitute an in-memory fake (design note 9.1).
type Reader interface {
	ReadAppended(path string, offset *uint64, onChunk tailer.OnChunk) (tailer.Status, int)
}

// Processor runs process_once for one file at a time, under the caller's
// held gate.
type Processor struct {
	reader Reader
}

// New returns a Processor backed by reader.
func New(reader Reader) *Processor {
	return &Processor{reader: reader}
}

// ProcessOnce reads whatever bytes have been appended to path since
// state.Offset, scans them into lines, parses each line, and accumulates
// the results into buf. The caller must hold state.Gate and must have
// already confirmed state is not delete-pending.
func (p *Processor) ProcessOnce(path string, state *registry.FileState, buf *stats.Buffer) {
	localOffset := state.Offset

	var line parser.Line
	status, totalRead := p.reader.ReadAppended(path, &localOffset, func(chunk []byte) {
		scanner.Scan(chunk, &state.Carry, func(l []byte) {
			buf.LinesProcessed++
			if !parser.Parse(l, &line) {
				buf.MalformedLines++
				return
			}
			buf.AddLine(line)
		})
	})

	switch status {
	case tailer.FileNotFound:
		buf.FileNotFound++
	case tailer.AccessDenied:
		buf.AccessDenied++
	case tailer.IoError:
		buf.IoException++
	case tailer.TruncatedReset:
		buf.TruncationReset++
	}

	if totalRead > 0 || status == tailer.TruncatedReset {
		state.Offset = localOffset
	}
}

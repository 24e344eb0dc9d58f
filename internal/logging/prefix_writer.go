package logging

import (
	"bytes"
	"io"
)

// PrefixWriter prepends a fixed prefix to every complete line written
// through it, holding back only the trailing partial line between
// calls rather than round-tripping it through a growable buffer.
type PrefixWriter struct {
	prefix  string
	writer  io.Writer
	pending []byte
}

// NewPrefixWriter creates a PrefixWriter around w.
func NewPrefixWriter(prefix string, w io.Writer) *PrefixWriter {
	return &PrefixWriter{prefix: prefix, writer: w}
}

func (pw *PrefixWriter) Write(p []byte) (int, error) {
	written := len(p)
	pw.pending = append(pw.pending, p...)

	for {
		idx := bytes.IndexByte(pw.pending, '\n')
		if idx < 0 {
			break
		}
		if err := pw.emitLine(pw.pending[:idx+1]); err != nil {
			return 0, err
		}
		pw.pending = pw.pending[idx+1:]
	}
	return written, nil
}

// emitLine writes one already-terminated line, prefix first.
func (pw *PrefixWriter) emitLine(line []byte) error {
	if _, err := io.WriteString(pw.writer, pw.prefix); err != nil {
		return err
	}
	_, err := pw.writer.Write(line)
	return err
}

// Package io provides writers for streaming remote command output.
package io

import (
	"bytes"
	"io"
	"sync"
)

// StreamWriter writes complete lines to w, each preceded by a prefix, and
// flushes after every line so output appears while a command is running.
// Stdout and stderr of one command may share a StreamWriter.
type StreamWriter struct {
	mu      sync.Mutex
	w       io.Writer
	prefix  []byte
	pending []byte
	flusher interface{ Flush() error }
}

// NewStreamWriter creates a StreamWriter. If w supports Flush it is flushed
// after every line.
func NewStreamWriter(w io.Writer, prefix string) *StreamWriter {
	sw := &StreamWriter{w: w, prefix: []byte(prefix)}
	if f, ok := w.(interface{ Flush() error }); ok {
		sw.flusher = f
	}
	return sw
}

// Write buffers p and emits every line it completes.
func (sw *StreamWriter) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.pending = append(sw.pending, p...)
	for {
		i := bytes.IndexByte(sw.pending, '\n')
		if i < 0 {
			break
		}
		if err := sw.emit(sw.pending[:i+1]); err != nil {
			return len(p), err
		}
		sw.pending = sw.pending[i+1:]
	}
	return len(p), nil
}

// Flush emits a trailing partial line, terminated with a newline.
func (sw *StreamWriter) Flush() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if len(sw.pending) == 0 {
		return nil
	}
	line := append(sw.pending, '\n')
	sw.pending = nil
	return sw.emit(line)
}

func (sw *StreamWriter) emit(line []byte) error {
	buf := make([]byte, 0, len(sw.prefix)+len(line))
	buf = append(buf, sw.prefix...)
	buf = append(buf, line...)
	if _, err := sw.w.Write(buf); err != nil {
		return err
	}
	if sw.flusher != nil {
		return sw.flusher.Flush()
	}
	return nil
}

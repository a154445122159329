package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type StreamMode string

const (
	StreamInstant    StreamMode = "instant"
	StreamSmooth     StreamMode = "smooth"
	StreamTypewriter StreamMode = "typewriter"
	StreamQuiet      StreamMode = "quiet"
)

// StreamWriter handles buffered token streaming with configurable modes.
type StreamWriter struct {
	mode   StreamMode
	output io.Writer
	buffer *bufio.Writer

	mu            sync.Mutex
	batch         strings.Builder
	lastFlush     time.Time
	flushInterval time.Duration
	batchSize     int // flush after N tokens

	accumulator strings.Builder
}

// NewStreamWriter creates a streaming output handler for generated text.
func NewStreamWriter(mode StreamMode) *StreamWriter {
	w := &StreamWriter{
		mode:          mode,
		output:        os.Stdout,
		buffer:        bufio.NewWriterSize(os.Stdout, 4096),
		flushInterval: 50 * time.Millisecond,
		batchSize:     5,
		lastFlush:     time.Now(),
	}

	if mode == StreamSmooth {
		go w.backgroundFlusher()
	}

	return w
}

// Write handles a single token from the engine.
func (w *StreamWriter) Write(token string) {
	switch w.mode {
	case StreamSmooth:
		w.writeSmooth(token)
	case StreamTypewriter:
		w.writeTypewriter(token)
	case StreamQuiet:
		w.writeQuiet(token)
	default:
		w.writeInstant(token)
	}
}

// Flush ensures all buffered content is written and returns the full text.
func (w *StreamWriter) Flush() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.mode {
	case StreamQuiet:
		result := w.accumulator.String()
		fmt.Fprint(w.output, result)
		return result
	case StreamSmooth:
		w.flushBatch()
		return w.accumulator.String()
	default:
		_ = w.buffer.Flush()
		return w.accumulator.String()
	}
}

func (w *StreamWriter) writeInstant(token string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.accumulator.WriteString(token)
	_, _ = w.buffer.WriteString(token)
	_ = w.buffer.Flush()
}

// writeSmooth batches tokens and flushes on size or elapsed time.
func (w *StreamWriter) writeSmooth(token string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.accumulator.WriteString(token)
	w.batch.WriteString(token)

	if w.batch.Len() > 0 {
		elapsed := time.Since(w.lastFlush)
		tokenCount := strings.Count(w.batch.String(), " ") + 1
		if tokenCount >= w.batchSize || elapsed >= w.flushInterval {
			w.flushBatch()
		}
	}
}

func (w *StreamWriter) writeTypewriter(token string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.accumulator.WriteString(token)
	for _, r := range token {
		fmt.Fprintf(w.buffer, "%c", r)
		_ = w.buffer.Flush()
	}
}

func (w *StreamWriter) writeQuiet(token string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.accumulator.WriteString(token)
}

// flushBatch writes the accumulated batch to output (must hold lock).
func (w *StreamWriter) flushBatch() {
	if w.batch.Len() == 0 {
		return
	}

	_, _ = w.buffer.WriteString(w.batch.String())
	_ = w.buffer.Flush()

	w.batch.Reset()
	w.lastFlush = time.Now()
}

func (w *StreamWriter) backgroundFlusher() {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for range ticker.C {
		w.mu.Lock()
		if time.Since(w.lastFlush) >= w.flushInterval && w.batch.Len() > 0 {
			w.flushBatch()
		}
		w.mu.Unlock()
	}
}

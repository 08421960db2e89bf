package service

import (
	"bytes"
	"io"
	"sync"
)

// EventEmittingWriter wraps a buffer and forwards each write to an optional
// callback, so a caller (the API's websocket broadcaster, the GUI's console
// view) can observe guest output as it happens instead of polling
// GetBufferAndClear. Wails isn't part of this project's dependency stack,
// so the callback replaces the teacher's runtime.EventsEmit call; the
// buffering/callback shape is otherwise identical to api.EventWriter, which
// plays the same role for HTTP sessions.
type EventEmittingWriter struct {
	buffer  *bytes.Buffer
	onWrite func(chunk string)
	mutex   sync.Mutex
}

// NewEventEmittingWriter creates a new event-emitting writer. onWrite may be
// nil, in which case writes are simply buffered.
func NewEventEmittingWriter(buffer *bytes.Buffer, onWrite func(string)) *EventEmittingWriter {
	return &EventEmittingWriter{
		buffer:  buffer,
		onWrite: onWrite,
	}
}

// Write implements io.Writer interface
func (w *EventEmittingWriter) Write(p []byte) (n int, err error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	n, err = w.buffer.Write(p)
	if err == nil && n > 0 && w.onWrite != nil {
		w.onWrite(string(p))
	}
	return n, err
}

// GetBufferAndClear returns buffer contents and clears it
func (w *EventEmittingWriter) GetBufferAndClear() string {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	output := w.buffer.String()
	w.buffer.Reset()
	return output
}

// Ensure EventEmittingWriter implements io.Writer
var _ io.Writer = (*EventEmittingWriter)(nil)

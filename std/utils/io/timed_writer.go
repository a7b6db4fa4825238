package io

import (
	"bufio"
	"io"
	"sync"
	"time"
)

// TimedWriter buffers writes and flushes either once maxQueue writes have
// queued up or deadline has elapsed since the first of them, whichever
// comes first. Used by std/log so a burst of log lines on the forwarding
// hot path coalesces into one syscall instead of one per line, while a
// quiet logger still flushes promptly.
type TimedWriter struct {
	*bufio.Writer
	mutex    sync.Mutex
	deadline time.Duration
	maxQueue int

	queueSize int
	timer     *time.Timer
	prevErr   error
}

// NewTimedWriter wraps w in a bufio.Writer of bufsize and batches flushes on
// a 1ms deadline / 8-write queue, the pair std/log's hot path relies on.
func NewTimedWriter(w io.Writer, bufsize int) *TimedWriter {
	return &TimedWriter{
		Writer:   bufio.NewWriterSize(w, bufsize),
		deadline: 1 * time.Millisecond,
		maxQueue: 8,
	}
}

// Flush forces any queued writes out immediately.
func (w *TimedWriter) Flush() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.flush_()
}

func (w *TimedWriter) Write(p []byte) (n int, err error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if err := w.prevErr; err != nil {
		w.prevErr = nil
		return 0, err
	}

	n, err = w.Writer.Write(p)
	if err != nil {
		return n, err
	}

	w.queueSize++
	if w.deadline == 0 || w.queueSize >= w.maxQueue {
		return n, w.flush_()
	}

	if w.timer == nil {
		w.timer = time.AfterFunc(w.deadline, func() { w.Flush() })
	}

	return
}

func (w *TimedWriter) flush_() error {
	err := w.Writer.Flush()
	if err != nil {
		w.prevErr = err
	}

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.queueSize = 0

	return err
}

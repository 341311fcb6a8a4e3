package supervisor

import (
	"errors"
	"io"
	"os"
	"time"

	"parhist/internal/histogram"
)

// ResultPipe is the private byte channel between one worker process and the
// supervisor. Ownership splits at spawn time: the worker inherits a duplicate
// of the write end (fd 3 via ExtraFiles) and closes it after transmitting;
// the supervisor closes its own copy of the write end right after the spawn
// and the read end after the notifier's single drain.
//
// Each endpoint must be closed exactly once by its owner; CloseRead and
// CloseWrite report a second close as an error so leaks and double closes
// both show up in tests.
type ResultPipe struct {
	r, w *os.File
}

// NewResultPipe creates the endpoint pair. Creation failure is fatal to the
// whole run; the caller does not retry.
func NewResultPipe() (*ResultPipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	return &ResultPipe{r: r, w: w}, nil
}

// WriteEnd exposes the write end for handing to a spawned worker.
func (p *ResultPipe) WriteEnd() *os.File { return p.w }

// CloseWrite closes the supervisor's copy of the write end. The worker holds
// its own duplicate, so the pipe only reports EOF once the worker is done.
func (p *ResultPipe) CloseWrite() error {
	if p.w == nil {
		return errors.New("write end already closed")
	}
	err := p.w.Close()
	p.w = nil
	return err
}

// CloseRead releases the read end once the notifier has drained it.
func (p *ResultPipe) CloseRead() error {
	if p.r == nil {
		return errors.New("read end already closed")
	}
	err := p.r.Close()
	p.r = nil
	return err
}

// Drain performs the single bounded read of the worker's payload.
//
// A worker that died before transmitting leaves the pipe empty or short;
// that is reported as ok == false, never as an error. The read is bounded by
// the deadline so the notifier can never block indefinitely, even against a
// worker that kept the write end open without sending.
func (p *ResultPipe) Drain(timeout time.Duration) (histogram.Histogram, bool, error) {
	var h histogram.Histogram
	if p.r == nil {
		return h, false, errors.New("read end already closed")
	}
	if err := p.r.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return h, false, err
	}

	buf := make([]byte, histogram.BinarySize)
	n, _ := io.ReadFull(p.r, buf)
	if n < histogram.BinarySize {
		// EOF, short read or deadline expiry: no usable data.
		return h, false, nil
	}

	if err := h.UnmarshalBinary(buf); err != nil {
		return h, false, err
	}
	return h, true, nil
}

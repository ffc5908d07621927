// Package capture contains the two input surfaces that feed raw ticket
// strings into a check-in session: a continuous scan loop driven by an
// external decoder capability, and a single-shot manual entry form.
// Both converge on the exact same outcome semantics.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nandaprad/tixly/internal/checkin"
)

// ErrCaptureDevice is returned when the decoder cannot start (permission
// denied, no camera). It is surfaced once; the operator falls back to
// manual entry.
var ErrCaptureDevice = errors.New("capture device unavailable")

// ErrBusy is returned by ManualEntry while a prior submission is still
// outstanding. The front end disables the submit control on it.
var ErrBusy = errors.New("a check-in request is already outstanding")

// CheckInFunc is the sole entry point both adapters call.
type CheckInFunc func(ctx context.Context, rawTicket string) checkin.Result

// Decoder is the external camera decode capability. Start begins emitting
// decoded text through onDecode; decode misses (no QR in frame) arrive at
// onMiss continuously and are expected, not errors. Start and Stop may
// fail for hardware or permission reasons.
type Decoder interface {
	Start(ctx context.Context, onDecode func(text string), onMiss func(err error)) error
	Stop() error
}

// ResultFunc receives each attempt's outcome for rendering.
type ResultFunc func(checkin.Result)

// ScanLoop drives a Decoder and serializes its decode callbacks: while a
// check-in for a prior decode is in flight, new decodes are dropped, then
// scanning resumes after resolution. By default the loop stops itself on
// the first successful check-in, mirroring a scanner modal that closes on
// success.
type ScanLoop struct {
	dec      Decoder
	checkIn  CheckInFunc
	onResult ResultFunc

	// ContinueOnSuccess keeps the loop running after a successful
	// check-in instead of stopping, for kiosk-style scanning.
	ContinueOnSuccess bool

	mu       sync.Mutex
	inFlight bool
	stopped  bool
}

// NewScanLoop constructs a ScanLoop. onResult may be nil.
func NewScanLoop(dec Decoder, checkIn CheckInFunc, onResult ResultFunc) *ScanLoop {
	if onResult == nil {
		onResult = func(checkin.Result) {}
	}
	return &ScanLoop{dec: dec, checkIn: checkIn, onResult: onResult}
}

// Start begins the decode loop. A start failure is the only decoder
// condition surfaced to the operator.
func (l *ScanLoop) Start(ctx context.Context) error {
	err := l.dec.Start(ctx, func(text string) {
		l.handleDecode(ctx, text)
	}, func(err error) {
		// Decode misses happen continuously while searching for a code;
		// they never reach the operator.
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureDevice, err)
	}
	return nil
}

func (l *ScanLoop) handleDecode(ctx context.Context, text string) {
	l.mu.Lock()
	if l.inFlight || l.stopped {
		l.mu.Unlock()
		return
	}
	l.inFlight = true
	l.mu.Unlock()

	res := l.checkIn(ctx, text)
	l.onResult(res)

	l.mu.Lock()
	l.inFlight = false
	stop := res.Success && !l.ContinueOnSuccess && !l.stopped
	if stop {
		l.stopped = true
	}
	l.mu.Unlock()

	if stop {
		if err := l.dec.Stop(); err != nil {
			slog.Warn("scanner stop failed", "error", err)
		}
	}
}

// Stop halts the decode loop. Safe to call more than once. A check-in
// already in flight is not cancelled; its mutation still applies and its
// result is discarded, which leaves data integrity unaffected.
func (l *ScanLoop) Stop() error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	l.mu.Unlock()
	return l.dec.Stop()
}

// ManualEntry is the single-shot typed-input surface. It guards against
// concurrent submissions and hands everything else to the shared
// check-in entry point, whose resolver handles empty input.
type ManualEntry struct {
	checkIn CheckInFunc

	mu   sync.Mutex
	busy bool
}

// NewManualEntry constructs a ManualEntry.
func NewManualEntry(checkIn CheckInFunc) *ManualEntry {
	return &ManualEntry{checkIn: checkIn}
}

// Submit runs one attempt. ErrBusy is returned while a prior submission
// is outstanding; any other outcome, success or rejection, arrives as a
// Result so the form can render it inline.
func (m *ManualEntry) Submit(ctx context.Context, rawTicket string) (checkin.Result, error) {
	m.mu.Lock()
	if m.busy {
		m.mu.Unlock()
		return checkin.Result{}, ErrBusy
	}
	m.busy = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.busy = false
		m.mu.Unlock()
	}()

	return m.checkIn(ctx, rawTicket), nil
}

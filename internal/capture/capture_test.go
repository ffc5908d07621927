package capture_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandaprad/tixly/internal/capture"
	"github.com/nandaprad/tixly/internal/checkin"
)

// fakeDecoder is a hand-driven Decoder: tests push decoded text through
// emit, standing in for the camera worker.
type fakeDecoder struct {
	mu       sync.Mutex
	startErr error
	stops    int
	onDecode func(string)
	onMiss   func(error)
}

func (d *fakeDecoder) Start(ctx context.Context, onDecode func(string), onMiss func(error)) error {
	if d.startErr != nil {
		return d.startErr
	}
	d.mu.Lock()
	d.onDecode = onDecode
	d.onMiss = onMiss
	d.mu.Unlock()
	return nil
}

func (d *fakeDecoder) Stop() error {
	d.mu.Lock()
	d.stops++
	d.mu.Unlock()
	return nil
}

func (d *fakeDecoder) emit(text string) {
	d.mu.Lock()
	cb := d.onDecode
	d.mu.Unlock()
	cb(text)
}

func (d *fakeDecoder) miss(err error) {
	d.mu.Lock()
	cb := d.onMiss
	d.mu.Unlock()
	cb(err)
}

func (d *fakeDecoder) stopCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stops
}

func acceptAll(ctx context.Context, raw string) checkin.Result {
	return checkin.Result{Success: true, Kind: checkin.KindAccepted, Message: raw}
}

func rejectAll(ctx context.Context, raw string) checkin.Result {
	return checkin.Result{Success: false, Kind: checkin.KindNotFound, Message: raw}
}

func TestScanLoopStartFailure(t *testing.T) {
	dec := &fakeDecoder{startErr: errors.New("permission denied")}
	loop := capture.NewScanLoop(dec, acceptAll, nil)

	err := loop.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, capture.ErrCaptureDevice)
}

func TestScanLoopStopsOnFirstSuccess(t *testing.T) {
	dec := &fakeDecoder{}
	var results []checkin.Result
	loop := capture.NewScanLoop(dec, acceptAll, func(r checkin.Result) {
		results = append(results, r)
	})
	require.NoError(t, loop.Start(context.Background()))

	dec.emit("TIX-A1B2C3D4")
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 1, dec.stopCount())

	// Decodes after stop are ignored.
	dec.emit("TIX-E5F6G7H8")
	assert.Len(t, results, 1)
}

func TestScanLoopContinuesOnRejection(t *testing.T) {
	dec := &fakeDecoder{}
	var results []checkin.Result
	loop := capture.NewScanLoop(dec, rejectAll, func(r checkin.Result) {
		results = append(results, r)
	})
	require.NoError(t, loop.Start(context.Background()))

	dec.emit("TIX-ZZZZZZZZ")
	dec.emit("TIX-ZZZZZZZZ")
	assert.Len(t, results, 2)
	assert.Zero(t, dec.stopCount(), "rejections keep the scanner running")
}

func TestScanLoopKioskMode(t *testing.T) {
	dec := &fakeDecoder{}
	loop := capture.NewScanLoop(dec, acceptAll, nil)
	loop.ContinueOnSuccess = true
	require.NoError(t, loop.Start(context.Background()))

	dec.emit("TIX-A1B2C3D4")
	dec.emit("TIX-E5F6G7H8")
	assert.Zero(t, dec.stopCount())
	require.NoError(t, loop.Stop())
	assert.Equal(t, 1, dec.stopCount())
}

func TestScanLoopBackpressure(t *testing.T) {
	dec := &fakeDecoder{}
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	slowCheckIn := func(ctx context.Context, raw string) checkin.Result {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return checkin.Result{Success: false, Kind: checkin.KindNotFound}
	}
	loop := capture.NewScanLoop(dec, slowCheckIn, nil)
	require.NoError(t, loop.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		dec.emit("TIX-A1B2C3D4")
		close(done)
	}()

	// Wait until the first decode is in flight.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, time.Second, time.Millisecond)

	// Rapid decodes while the request is outstanding are suppressed.
	dec.emit("TIX-A1B2C3D4")
	dec.emit("TIX-A1B2C3D4")

	close(release)
	<-done
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()

	// Scanning resumes after resolution.
	dec.emit("TIX-E5F6G7H8")
	mu.Lock()
	assert.Equal(t, 2, calls)
	mu.Unlock()
}

func TestScanLoopIgnoresDecodeMisses(t *testing.T) {
	dec := &fakeDecoder{}
	var results []checkin.Result
	loop := capture.NewScanLoop(dec, acceptAll, func(r checkin.Result) {
		results = append(results, r)
	})
	require.NoError(t, loop.Start(context.Background()))

	// No-QR-in-frame noise fires continuously and never surfaces.
	for i := 0; i < 50; i++ {
		dec.miss(errors.New("no qr code in frame"))
	}
	assert.Empty(t, results)
	assert.Zero(t, dec.stopCount())
}

func TestScanLoopStopIdempotent(t *testing.T) {
	dec := &fakeDecoder{}
	loop := capture.NewScanLoop(dec, acceptAll, nil)
	require.NoError(t, loop.Start(context.Background()))

	require.NoError(t, loop.Stop())
	require.NoError(t, loop.Stop())
	assert.Equal(t, 1, dec.stopCount())
}

func TestManualEntrySubmit(t *testing.T) {
	me := capture.NewManualEntry(rejectAll)

	res, err := me.Submit(context.Background(), "TIX-ZZZZZZZZ")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, checkin.KindNotFound, res.Kind)

	// The guard resets after each submission.
	res, err = me.Submit(context.Background(), "TIX-ZZZZZZZZ")
	require.NoError(t, err)
	assert.Equal(t, checkin.KindNotFound, res.Kind)
}

func TestManualEntryBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	me := capture.NewManualEntry(func(ctx context.Context, raw string) checkin.Result {
		close(started)
		<-release
		return checkin.Result{Success: true, Kind: checkin.KindAccepted}
	})

	go func() {
		_, _ = me.Submit(context.Background(), "TIX-A1B2C3D4")
	}()
	<-started

	_, err := me.Submit(context.Background(), "TIX-E5F6G7H8")
	assert.ErrorIs(t, err, capture.ErrBusy)
	close(release)
}

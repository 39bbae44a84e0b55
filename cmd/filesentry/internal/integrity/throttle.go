package integrity

import (
	"context"
	"io"
	"time"
)

// throttledReader delays reads so the average rate since the first read
// stays at or below rate bytes per second.
type throttledReader struct {
	ctx   context.Context
	r     io.Reader
	rate  float64
	total int64
	start time.Time
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func newThrottledReader(ctx context.Context, r io.Reader, bytesPerSecond int64) *throttledReader {
	return &throttledReader{
		ctx:   ctx,
		r:     r,
		rate:  float64(bytesPerSecond),
		now:   time.Now,
		sleep: sleepContext,
	}
}

func (t *throttledReader) Read(p []byte) (int, error) {
	if t.start.IsZero() {
		t.start = t.now()
	}

	n, err := t.r.Read(p)
	if n > 0 {
		t.total += int64(n)
		if delayErr := t.delay(); delayErr != nil {
			return n, delayErr
		}
	}
	return n, err
}

// delay sleeps until the time at which total bytes are allowed at rate.
func (t *throttledReader) delay() error {
	if t.rate <= 0 {
		return nil
	}

	target := t.start.Add(time.Duration(float64(time.Second) * float64(t.total) / t.rate))
	if wait := target.Sub(t.now()); wait > 0 {
		return t.sleep(t.ctx, wait)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

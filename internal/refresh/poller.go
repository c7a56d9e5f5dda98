// Package refresh re-fetches a resource on a fixed interval and pushes each
// result to a sink until the caller goes away.
package refresh

import (
	"context"
	"errors"
	"time"
)

// Ticker is the slice of *time.Ticker the poller needs; tests drive it by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func NewTimeTicker(d time.Duration) Ticker { return timeTicker{t: time.NewTicker(d)} }

type Poller[T any] struct {
	Interval time.Duration
	Fetch    func(ctx context.Context) (T, error)
	Sink     func(T) error

	// OnFetchError is told about failed fetches; the tick is skipped.
	OnFetchError func(error)
	// NewTicker defaults to NewTimeTicker.
	NewTicker func(time.Duration) Ticker
}

var ErrNoInterval = errors.New("refresh: interval must be positive")

// Run fetches once per tick and hands the result to Sink. It returns nil when
// ctx is done and the sink's error when the sink fails. The ticker is stopped
// before Run returns.
func (p *Poller[T]) Run(ctx context.Context) error {
	if p.Interval <= 0 {
		return ErrNoInterval
	}
	mk := p.NewTicker
	if mk == nil {
		mk = NewTimeTicker
	}
	t := mk(p.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C():
		}
		// a tick and a cancel can race; cancel wins
		if ctx.Err() != nil {
			return nil
		}
		v, err := p.Fetch(ctx)
		if err != nil {
			if p.OnFetchError != nil {
				p.OnFetchError(err)
			}
			continue
		}
		if err := p.Sink(v); err != nil {
			return err
		}
	}
}

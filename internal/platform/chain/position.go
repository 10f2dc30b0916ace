// Package chain derives the host ordering axis that proposal deadlines are
// expressed in. A position is the number of whole intervals elapsed since
// genesis, so it only ever moves forward while the wall clock does.
package chain

import (
	"context"
	"errors"
	"sync"
	"time"
)

type PositionSource struct {
	genesis  time.Time
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last uint64
}

func NewPositionSource(genesis time.Time, interval time.Duration) (*PositionSource, error) {
	if interval <= 0 {
		return nil, errors.New("position interval must be positive")
	}
	return &PositionSource{
		genesis:  genesis.UTC(),
		interval: interval,
		now:      time.Now,
	}, nil
}

// CurrentPosition never reports a lower value than a previous call, even if
// the wall clock steps backwards.
func (s *PositionSource) CurrentPosition(context.Context) (uint64, error) {
	elapsed := s.now().UTC().Sub(s.genesis)
	var position uint64
	if elapsed > 0 {
		position = uint64(elapsed / s.interval)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if position < s.last {
		return s.last, nil
	}
	s.last = position
	return position, nil
}

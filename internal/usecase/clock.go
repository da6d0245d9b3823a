package usecase

import "time"

// Clock lets tests pin the time used for cache-busting and timestamps.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

package rate

import "errors"

var (
	// ErrRateLimited means the attempt budget for the current window
	// is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps transport failures so callers can
	// distinguish policy rejections from infrastructure outages.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

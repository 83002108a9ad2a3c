package cache

import (
	"context"
	"time"

	"github.com/nandanugg/roadsafe/module/core/domain"
)

// LocationCache memoises provider lookups keyed by IP. A miss is reported as
// (nil, false, nil).
type LocationCache interface {
	Get(ctx context.Context, key string) (*domain.UserLocation, bool, error)
	Set(ctx context.Context, key string, loc *domain.UserLocation, ttl time.Duration) error
}

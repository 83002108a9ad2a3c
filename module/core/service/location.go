package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nandanugg/roadsafe/module/core/domain"
	"github.com/nandanugg/roadsafe/module/core/internal/repository/cache"
	"github.com/nandanugg/roadsafe/module/core/internal/repository/locator"
	"github.com/nandanugg/roadsafe/observability"
)

const selfKey = "self"

type LocationService struct {
	provider locator.LocationProvider
	cache    cache.LocationCache
	ttl      time.Duration
	metrics  *observability.Collector
	log      logrus.FieldLogger
}

func NewLocationService(provider locator.LocationProvider, c cache.LocationCache, ttl time.Duration, metrics *observability.Collector, log logrus.FieldLogger) *LocationService {
	return &LocationService{
		provider: provider,
		cache:    c,
		ttl:      ttl,
		metrics:  metrics,
		log:      log,
	}
}

// Locate resolves ip through the provider, serving repeat lookups from the
// cache. An empty ip resolves the server's own public address.
func (s *LocationService) Locate(ctx context.Context, ip string) (*domain.UserLocation, error) {
	key := ip
	if key == "" {
		key = selfKey
	}

	loc, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("location cache read failed")
	}
	if ok {
		s.metrics.ObserveLookup(observability.LookupHit)
		return loc, nil
	}

	loc, err = s.provider.Locate(ctx, ip)
	if err != nil {
		s.metrics.ObserveLookup(observability.LookupError)
		return nil, err
	}
	s.metrics.ObserveLookup(observability.LookupMiss)

	if err := s.cache.Set(ctx, key, loc, s.ttl); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("location cache write failed")
	}
	return loc, nil
}

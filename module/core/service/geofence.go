package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/nandanugg/roadsafe/module/core/domain"
	"github.com/nandanugg/roadsafe/module/core/internal/repository/database"
	"github.com/nandanugg/roadsafe/module/core/internal/repository/publisher"
	"github.com/nandanugg/roadsafe/observability"
)

const earthRadiusMeters = 6371000

// IsOutsideGeofences reports whether p lies outside every geofence. A point
// exactly on a boundary is inside.
func IsOutsideGeofences(p domain.GeoPoint, geofences []domain.Geofence) bool {
	for _, gf := range geofences {
		if contains(gf, p) {
			return false
		}
	}
	return true
}

// ContainingGeofences returns every geofence that contains p, in input order.
func ContainingGeofences(p domain.GeoPoint, geofences []domain.Geofence) []domain.Geofence {
	var inside []domain.Geofence
	for _, gf := range geofences {
		if contains(gf, p) {
			inside = append(inside, gf)
		}
	}
	return inside
}

func contains(gf domain.Geofence, p domain.GeoPoint) bool {
	return Distance(p, gf.Center) <= gf.Radius
}

// Distance is the great-circle distance in meters on a spherical earth.
func Distance(a, b domain.GeoPoint) float64 {
	return haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

type GeofenceService struct {
	repo      database.CheckRepository
	publisher publisher.AlertPublisher
	metrics   *observability.Collector
	geofences []domain.Geofence
	now       func() time.Time
}

func NewGeofenceService(repo database.CheckRepository, pub publisher.AlertPublisher, geofences []domain.Geofence, metrics *observability.Collector) *GeofenceService {
	return &GeofenceService{
		repo:      repo,
		publisher: pub,
		metrics:   metrics,
		geofences: geofences,
		now:       time.Now,
	}
}

func (s *GeofenceService) Geofences() []domain.Geofence {
	return s.geofences
}

// Evaluate runs the containment check without recording it.
func (s *GeofenceService) Evaluate(subject string, p domain.GeoPoint) *domain.CheckResult {
	res := &domain.CheckResult{
		Subject:   subject,
		Point:     p,
		Outside:   IsOutsideGeofences(p, s.geofences),
		CheckedAt: s.now(),
	}
	if !res.Outside {
		res.Zones = ContainingGeofences(p, s.geofences)
	}
	return res
}

// Check evaluates p, records the result and publishes a zone-entry alert when
// p is inside at least one geofence.
func (s *GeofenceService) Check(ctx context.Context, subject string, p domain.GeoPoint) (*domain.CheckResult, error) {
	res := s.Evaluate(subject, p)
	s.metrics.ObserveCheck(res.Outside)

	if err := s.repo.Insert(ctx, res); err != nil {
		return nil, fmt.Errorf("record check: %w", err)
	}

	if !res.Outside {
		alert := &domain.ZoneAlert{
			Subject:   subject,
			Event:     domain.ZoneEntry,
			Point:     p,
			Zones:     res.Zones,
			Timestamp: res.CheckedAt.Unix(),
		}
		if err := s.publisher.PublishAlert(ctx, alert); err != nil {
			return nil, fmt.Errorf("publish alert: %w", err)
		}
	}
	return res, nil
}

func (s *GeofenceService) Latest(ctx context.Context, subject string) (*domain.CheckResult, error) {
	return s.repo.GetLatest(ctx, subject)
}

func (s *GeofenceService) History(ctx context.Context, query *domain.HistoryQuery) ([]domain.CheckResult, error) {
	return s.repo.GetHistory(ctx, query)
}

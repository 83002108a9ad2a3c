package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nandanugg/roadsafe/module/core/domain"
	"github.com/nandanugg/roadsafe/module/core/internal/repository/database"
)

var _ database.GeofenceRepository = (*GeofenceRepo)(nil)

// GeofenceRepo reads zones from the geofences table. Rows that fail
// validation abort the load rather than being skipped.
type GeofenceRepo struct {
	db *sql.DB
}

func NewGeofenceRepo(db *sql.DB) *GeofenceRepo {
	return &GeofenceRepo{db: db}
}

func (r *GeofenceRepo) List(ctx context.Context) ([]domain.Geofence, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT latitude, longitude, radius, COALESCE(label, '') FROM geofences ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Geofence
	for rows.Next() {
		var g domain.Geofence
		if err := rows.Scan(&g.Center.Lat, &g.Center.Lon, &g.Radius, &g.Label); err != nil {
			return nil, err
		}
		if err := domain.ValidateGeofence(g); err != nil {
			return nil, fmt.Errorf("geofence %d: %w", len(results)+1, err)
		}
		results = append(results, g)
	}
	return results, rows.Err()
}

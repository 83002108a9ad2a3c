package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nandanugg/roadsafe/module/core/domain"
	"github.com/nandanugg/roadsafe/module/core/internal/repository/database"
)

var _ database.CheckRepository = (*CheckRepo)(nil)

type CheckRepo struct {
	db *sql.DB
}

func NewCheckRepo(db *sql.DB) *CheckRepo {
	return &CheckRepo{db: db}
}

func (r *CheckRepo) Insert(ctx context.Context, res *domain.CheckResult) error {
	zones, err := json.Marshal(nonNilZones(res.Zones))
	if err != nil {
		return fmt.Errorf("marshal zones: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO location_checks (subject, latitude, longitude, outside, zones, checked_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		res.Subject, res.Point.Lat, res.Point.Lon, res.Outside, string(zones), res.CheckedAt,
	)
	return err
}

func (r *CheckRepo) GetLatest(ctx context.Context, subject string) (*domain.CheckResult, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT subject, latitude, longitude, outside, zones, checked_at FROM location_checks WHERE subject = $1 ORDER BY checked_at DESC LIMIT 1`,
		subject,
	)

	res, err := scanCheck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoHistory
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *CheckRepo) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.CheckResult, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT subject, latitude, longitude, outside, zones, checked_at FROM location_checks WHERE subject = $1 AND checked_at >= $2 AND checked_at <= $3 ORDER BY checked_at ASC`,
		query.Subject, query.Start, query.End,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.CheckResult
	for rows.Next() {
		res, err := scanCheck(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCheck(s scanner) (*domain.CheckResult, error) {
	var (
		res   domain.CheckResult
		zones []byte
	)
	if err := s.Scan(&res.Subject, &res.Point.Lat, &res.Point.Lon, &res.Outside, &zones, &res.CheckedAt); err != nil {
		return nil, err
	}
	if len(zones) > 0 {
		if err := json.Unmarshal(zones, &res.Zones); err != nil {
			return nil, fmt.Errorf("decode zones: %w", err)
		}
	}
	return &res, nil
}

func nonNilZones(zones []domain.Geofence) []domain.Geofence {
	if zones == nil {
		return []domain.Geofence{}
	}
	return zones
}

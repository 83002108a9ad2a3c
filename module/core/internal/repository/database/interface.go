package database

import (
	"context"

	"github.com/nandanugg/roadsafe/module/core/domain"
)

type CheckRepository interface {
	Insert(ctx context.Context, res *domain.CheckResult) error
	GetLatest(ctx context.Context, subject string) (*domain.CheckResult, error)
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.CheckResult, error)
}

type GeofenceRepository interface {
	List(ctx context.Context) ([]domain.Geofence, error)
}

package publisher

import (
	"context"

	"github.com/nandanugg/roadsafe/module/core/domain"
)

type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert *domain.ZoneAlert) error
}

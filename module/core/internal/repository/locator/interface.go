package locator

import (
	"context"

	"github.com/nandanugg/roadsafe/module/core/domain"
)

// LocationProvider resolves an IP address to a position. An empty ip asks for
// the caller's own public address.
type LocationProvider interface {
	Locate(ctx context.Context, ip string) (*domain.UserLocation, error)
}

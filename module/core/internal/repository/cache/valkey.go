package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/nandanugg/roadsafe/module/core/domain"
)

var _ LocationCache = (*Valkey)(nil)

const keyPrefix = "roadsafe:location:"

// Valkey shares cached lookups between server replicas.
type Valkey struct {
	client valkey.Client
}

func NewValkey(addr string) (*Valkey, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Valkey{client: client}, nil
}

func (v *Valkey) Get(ctx context.Context, key string) (*domain.UserLocation, bool, error) {
	b, err := v.client.Do(ctx, v.client.B().Get().Key(keyPrefix+key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var loc domain.UserLocation
	if err := json.Unmarshal(b, &loc); err != nil {
		return nil, false, fmt.Errorf("decode cached location: %w", err)
	}
	return &loc, true, nil
}

func (v *Valkey) Set(ctx context.Context, key string, loc *domain.UserLocation, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}
	return v.client.Do(ctx,
		v.client.B().Set().Key(keyPrefix+key).Value(string(b)).Ex(ttl).Build(),
	).Error()
}

func (v *Valkey) Close() {
	v.client.Close()
}

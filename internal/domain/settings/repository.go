// Package settings exposes the global key/value configuration store.
package settings

import "context"

// Repository reads global settings. Get returns ok=false for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

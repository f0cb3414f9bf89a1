// Package cache keeps round listings in Redis between invalidations.
package cache

import (
	"context"
	"fmt"

	"github.com/terra-clan/jury-engine/internal/models"
)

// Key names. Juror listings are stored per username.
const (
	keyPrefix      = "jury:rounds:"
	KeyAdminRounds = keyPrefix + "admin"

	// generationKey lives outside keyPrefix so invalidation never deletes it
	generationKey = "jury:rounds-generation"
)

// JurorKey returns the cache key of one juror's round listing
func JurorKey(username string) string {
	return keyPrefix + "juror:" + username
}

// Cache stores round listings. A miss is reported through the bool result,
// never as an error.
//
// Listings are stored per generation. InvalidateRounds starts a new
// generation, so a listing read before an invalidation and written after it
// lands under the old generation where no reader looks for it.
type Cache interface {
	Generation(ctx context.Context) (uint64, error)
	GetRounds(ctx context.Context, gen uint64, key string) ([]models.Round, bool, error)
	SetRounds(ctx context.Context, gen uint64, key string, rounds []models.Round) error
	InvalidateRounds(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// Noop is used when Redis is not configured
type Noop struct{}

func (Noop) Generation(context.Context) (uint64, error) { return 0, nil }
func (Noop) GetRounds(context.Context, uint64, string) ([]models.Round, bool, error) {
	return nil, false, nil
}
func (Noop) SetRounds(context.Context, uint64, string, []models.Round) error { return nil }
func (Noop) InvalidateRounds(context.Context) error                          { return nil }
func (Noop) HealthCheck(context.Context) error                               { return nil }
func (Noop) Close() error                                                    { return nil }

// versioned returns the storage key of a listing in generation gen
func versioned(gen uint64, key string) string {
	return fmt.Sprintf("%s@%d", key, gen)
}

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/terra-clan/jury-engine/internal/models"
)

// ErrNotFound is returned by mutations whose target row does not exist.
// Lookups return a nil result instead.
var ErrNotFound = errors.New("record not found")

// RoundFilters narrows ListRounds. Zero fields are ignored.
type RoundFilters struct {
	CampaignID     string
	Juror          string
	Statuses       []models.RoundStatus
	DeadlineBefore *time.Time
	Limit          int
	Offset         int
}

// Repository defines the interface for campaign persistence
type Repository interface {
	// Campaigns
	CreateCampaign(ctx context.Context, c *models.Campaign) error
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	UpdateCampaignName(ctx context.Context, id, name string) error

	// Rounds
	CreateRound(ctx context.Context, campaignID string, r *models.Round) error
	GetRound(ctx context.Context, id string) (*models.Round, error)
	ListRounds(ctx context.Context, filters RoundFilters) ([]models.Round, error)
	UpdateRoundStatus(ctx context.Context, id string, status models.RoundStatus) error
	SetRoundTasks(ctx context.Context, id string, total int) error

	// ActivateRound checks the campaign ordering and marks the round active in
	// one transaction. A nil round with nil error means the round does not exist.
	ActivateRound(ctx context.Context, id string) (*models.Round, error)

	// Users
	GetUserByApiKey(ctx context.Context, apiKey string) (*models.User, error)
	UpdateUserLastUsed(ctx context.Context, apiKey string) error
	UpsertOrganizer(ctx context.Context, u *models.User) error

	// Notify publishes payload on a Postgres notification channel
	Notify(ctx context.Context, channel, payload string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}

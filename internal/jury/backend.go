// Package jury holds the round and campaign lifecycle core: activation gating,
// round creation, navigation decisions, dashboard grouping and campaign renaming.
//
// Components never reach the persistence service directly. They are handed a
// Backend and an events.Publisher at construction and report every outcome as
// a returned error plus events the presentation caller subscribes to.
package jury

import (
	"context"
	"log/slog"

	"github.com/terra-clan/jury-engine/internal/events"
	"github.com/terra-clan/jury-engine/internal/models"
)

// Backend is the remote persistence collaborator used by the core.
// pkg/client.Client implements it over HTTP.
type Backend interface {
	ActivateRound(ctx context.Context, roundID string) error
	CreateRound(ctx context.Context, campaignID string, req models.CreateRoundRequest) error
	UpdateCampaign(ctx context.Context, campaignID string, update models.CampaignUpdate) error
	ListAdminRounds(ctx context.Context) ([]models.Round, error)
	ListJurorRounds(ctx context.Context) (*models.JurorRounds, error)
	AddOrganizer(ctx context.Context, req models.AddOrganizerRequest) error
}

// Action names reported through events.BusyChanged
const (
	ActionCreateRound  = "create-round"
	ActionAddOrganizer = "add-organizer"
)

func defaults(pub events.Publisher, logger *slog.Logger) (events.Publisher, *slog.Logger) {
	if pub == nil {
		pub = events.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return pub, logger
}

func notifyError(pub events.Publisher, message string) {
	pub.Publish(events.Notification{Level: events.LevelError, Message: message})
}

func notifySuccess(pub events.Publisher, message string) {
	pub.Publish(events.Notification{Level: events.LevelSuccess, Message: message})
}

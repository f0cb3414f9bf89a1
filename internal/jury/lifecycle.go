package jury

import (
	"context"
	"errors"
	"log/slog"

	"github.com/terra-clan/jury-engine/internal/events"
	"github.com/terra-clan/jury-engine/internal/models"
)

// Role of the user the presentation layer is acting for
type Role string

const (
	RoleOrganizer Role = "organizer"
	RoleJuror     Role = "juror"
)

// Target identifies a destination in the presentation layer
type Target string

const (
	TargetAdminRound Target = "admin.round"
	TargetJurorRound Target = "juror.round"
)

// NavigationIntent asks the presentation layer to open a round
type NavigationIntent struct {
	Target  Target `json:"target"`
	RoundID string `json:"round_id,omitempty"`
}

// LifecycleManager drives round activation and navigation
type LifecycleManager struct {
	backend   Backend
	publisher events.Publisher
	logger    *slog.Logger
}

// NewLifecycleManager creates a LifecycleManager
func NewLifecycleManager(backend Backend, pub events.Publisher, logger *slog.Logger) *LifecycleManager {
	pub, logger = defaults(pub, logger)
	return &LifecycleManager{
		backend:   backend,
		publisher: pub,
		logger:    logger,
	}
}

// Activate asks the service to activate a round. The caller is expected to have
// consulted the gate already; nothing is re-validated here and no local state
// changes. On success the round's campaign is invalidated for a full reload.
func (m *LifecycleManager) Activate(ctx context.Context, round models.Round) error {
	m.logger.Info("activating round", "round_id", round.ID, "campaign_id", round.Campaign.ID)

	if err := m.backend.ActivateRound(ctx, round.ID); err != nil {
		rerr := remoteError("activate round", err)
		m.logger.Warn("round activation failed", "round_id", round.ID, "error", err)
		notifyError(m.publisher, rerr.Message)

		if errors.Is(err, models.ErrPreviousRoundIncomplete) || errors.Is(err, models.ErrRoundNotActivatable) {
			return &ActivationError{RemoteError: rerr}
		}
		return rerr
	}

	m.publisher.Publish(events.StateInvalidated{Scope: events.ScopeCampaign, ID: round.Campaign.ID})
	return nil
}

// RequestNavigation returns where to go to work on a round. Rounds that are not
// navigable are ignored silently: the second result is false.
func (m *LifecycleManager) RequestNavigation(round models.Round, role Role) (NavigationIntent, bool) {
	if !IsNavigable(round) {
		m.logger.Debug("ignoring navigation to closed round",
			"round_id", round.ID,
			"status", round.Status,
			"total_tasks", round.TotalTasks,
		)
		return NavigationIntent{}, false
	}

	target := TargetJurorRound
	if role == RoleOrganizer {
		target = TargetAdminRound
	}
	return NavigationIntent{Target: target, RoundID: round.ID}, true
}

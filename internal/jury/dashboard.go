package jury

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/terra-clan/jury-engine/internal/models"
)

// DashboardView is everything the landing page shows
type DashboardView struct {
	IsAdmin bool
	IsJuror bool

	// AdminRounds is the organizer listing as returned; AdminIndex keys it by round ID.
	AdminRounds []models.Round
	AdminIndex  map[string]models.Round

	JurorCampaigns *Grouping
	User           *models.User
}

// Dashboard loads the organizer and juror views
type Dashboard struct {
	backend Backend
	logger  *slog.Logger
}

// NewDashboard creates a Dashboard
func NewDashboard(backend Backend, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{backend: backend, logger: logger}
}

// Load fetches both listings. A failure on one side leaves the other populated;
// the returned error joins whatever failed. A caller without organizer rights
// is refused the organizer listing, which only means IsAdmin stays false.
func (d *Dashboard) Load(ctx context.Context) (*DashboardView, error) {
	view := &DashboardView{
		AdminIndex:     map[string]models.Round{},
		JurorCampaigns: GroupByCampaign(nil),
	}
	var errs []error

	adminRounds, err := d.backend.ListAdminRounds(ctx)
	switch {
	case errors.Is(err, models.ErrForbidden):
		d.logger.Debug("not an organizer, skipping organizer rounds")
	case err != nil:
		d.logger.Warn("failed to load organizer rounds", "error", err)
		errs = append(errs, fmt.Errorf("organizer rounds: %w", err))
	default:
		view.IsAdmin = len(adminRounds) > 0
		view.AdminRounds = adminRounds
		view.AdminIndex = IndexRounds(adminRounds)
	}

	juror, err := d.backend.ListJurorRounds(ctx)
	if err != nil {
		d.logger.Warn("failed to load juror rounds", "error", err)
		errs = append(errs, fmt.Errorf("juror rounds: %w", err))
	} else if juror != nil {
		view.IsJuror = len(juror.Rounds) > 0
		view.User = juror.User
		view.JurorCampaigns = GroupByCampaign(juror.Rounds)
	}

	return view, errors.Join(errs...)
}

package jury

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/terra-clan/jury-engine/internal/events"
	"github.com/terra-clan/jury-engine/internal/models"
)

// OrganizerService grants organizer rights from the dashboard
type OrganizerService struct {
	backend   Backend
	publisher events.Publisher
	logger    *slog.Logger

	mu      sync.Mutex
	pending bool
}

// NewOrganizerService creates an OrganizerService
func NewOrganizerService(backend Backend, pub events.Publisher, logger *slog.Logger) *OrganizerService {
	pub, logger = defaults(pub, logger)
	return &OrganizerService{
		backend:   backend,
		publisher: pub,
		logger:    logger,
	}
}

// Busy reports whether a request is in flight
func (s *OrganizerService) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// AddOrganizer promotes the first picked username to organizer.
func (s *OrganizerService) AddOrganizer(ctx context.Context, usernames []string) error {
	if len(usernames) == 0 || strings.TrimSpace(usernames[0]) == "" {
		s.publisher.Publish(events.Notification{
			Level:   events.LevelError,
			Message: "Error",
			Detail:  "Provide organizer name",
		})
		return &ValidationError{Field: "username", Message: "Provide organizer name"}
	}
	username := strings.TrimSpace(usernames[0])

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return ErrSubmissionPending
	}
	s.pending = true
	s.mu.Unlock()
	s.publisher.Publish(events.BusyChanged{Action: ActionAddOrganizer, Busy: true})

	err := s.backend.AddOrganizer(ctx, models.AddOrganizerRequest{Username: username})

	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
	s.publisher.Publish(events.BusyChanged{Action: ActionAddOrganizer, Busy: false})

	if err != nil {
		rerr := remoteError("add organizer", err)
		s.logger.Warn("failed to add organizer", "username", username, "error", err)
		notifyError(s.publisher, rerr.Message)
		return rerr
	}

	s.logger.Info("organizer added", "username", username)
	notifySuccess(s.publisher, username+" added as an organizer")
	s.publisher.Publish(events.StateInvalidated{Scope: events.ScopeDashboard})
	return nil
}

// Resolve handles the outcome of the new-organizer dialog
func (s *OrganizerService) Resolve(ctx context.Context, result DialogResult[[]string]) error {
	usernames, ok := result.Payload()
	if !ok {
		return nil
	}
	return s.AddOrganizer(ctx, usernames)
}

package jury

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/terra-clan/jury-engine/internal/events"
	"github.com/terra-clan/jury-engine/internal/models"
)

// Round creation defaults
const (
	DefaultVoteMethod = models.VoteRating
	DefaultQuorum     = 2
)

// JurorRecord is a juror as picked in the new-round form. Only Name is kept.
type JurorRecord struct {
	Name     string            `json:"name"`
	ID       string            `json:"id,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RoundInput is the organizer's input for a new round. Zero values mean
// "use the default". Status is accepted but never honoured.
type RoundInput struct {
	Name         string
	VoteMethod   models.VoteMethod
	Quorum       int
	Jurors       []JurorRecord
	Status       models.RoundStatus
	DeadlineDate *time.Time
}

// CreationService validates and submits new rounds
type CreationService struct {
	backend   Backend
	publisher events.Publisher
	logger    *slog.Logger

	mu      sync.Mutex
	pending bool
}

// NewCreationService creates a CreationService
func NewCreationService(backend Backend, pub events.Publisher, logger *slog.Logger) *CreationService {
	pub, logger = defaults(pub, logger)
	return &CreationService{
		backend:   backend,
		publisher: pub,
		logger:    logger,
	}
}

// BuildRound applies defaults and validation to input and returns the round
// that would be appended to campaign.
func (s *CreationService) BuildRound(campaign *models.Campaign, input RoundInput) (models.Round, error) {
	round := models.Round{
		Name:       input.Name,
		VoteMethod: input.VoteMethod,
		Quorum:     input.Quorum,
		Jurors:     make([]string, 0, len(input.Jurors)),
		Status:     models.RoundPaused,
		Campaign:   campaign.Ref(),
	}

	if strings.TrimSpace(round.Name) == "" {
		round.Name = fmt.Sprintf("Round %d", len(campaign.Rounds)+1)
	}

	if round.VoteMethod == "" {
		round.VoteMethod = DefaultVoteMethod
	} else if _, err := models.ParseVoteMethod(string(round.VoteMethod)); err != nil {
		return models.Round{}, &ValidationError{Field: "vote_method", Message: err.Error()}
	}

	switch {
	case round.Quorum == 0:
		round.Quorum = DefaultQuorum
	case round.Quorum < 0:
		return models.Round{}, &ValidationError{Field: "quorum", Message: "quorum must be at least 1"}
	}

	for i, j := range input.Jurors {
		name := strings.TrimSpace(j.Name)
		if name == "" {
			return models.Round{}, &ValidationError{
				Field:   "jurors",
				Message: fmt.Sprintf("juror #%d has no name", i+1),
			}
		}
		round.Jurors = append(round.Jurors, name)
	}

	if input.DeadlineDate != nil {
		d := input.DeadlineDate.UTC().Truncate(time.Second)
		round.DeadlineDate = &d
	}

	return round, nil
}

// Busy reports whether a submission is in flight
func (s *CreationService) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Submit builds the round and sends it to the service. A second Submit while
// the first is pending returns ErrSubmissionPending without a network call.
// Failures leave the session open so the caller can resubmit.
func (s *CreationService) Submit(ctx context.Context, campaign *models.Campaign, input RoundInput) error {
	round, err := s.BuildRound(campaign, input)
	if err != nil {
		notifyError(s.publisher, err.Error())
		return err
	}

	if !s.begin() {
		return ErrSubmissionPending
	}
	defer s.end()

	if err := s.backend.CreateRound(ctx, campaign.ID, models.NewCreateRoundRequest(round)); err != nil {
		s.logger.Error("failed to create round",
			"campaign_id", campaign.ID,
			"name", round.Name,
			"error", err,
		)
		return remoteError("create round", err)
	}

	s.logger.Info("round created",
		"campaign_id", campaign.ID,
		"name", round.Name,
		"vote_method", round.VoteMethod,
		"quorum", round.Quorum,
		"jurors", len(round.Jurors),
	)
	s.publisher.Publish(events.StateInvalidated{Scope: events.ScopeCampaign, ID: campaign.ID})
	return nil
}

// Resolve handles the outcome of the new-round dialog
func (s *CreationService) Resolve(ctx context.Context, campaign *models.Campaign, result DialogResult[RoundInput]) error {
	input, ok := result.Payload()
	if !ok {
		return nil
	}
	return s.Submit(ctx, campaign, input)
}

func (s *CreationService) begin() bool {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return false
	}
	s.pending = true
	s.mu.Unlock()

	s.publisher.Publish(events.BusyChanged{Action: ActionCreateRound, Busy: true})
	return true
}

func (s *CreationService) end() {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()

	s.publisher.Publish(events.BusyChanged{Action: ActionCreateRound, Busy: false})
}

// Package campaign is the service side of the round lifecycle: it validates
// requests, persists them and announces the resulting state changes.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/jury-engine/internal/cache"
	"github.com/terra-clan/jury-engine/internal/events"
	"github.com/terra-clan/jury-engine/internal/models"
	"github.com/terra-clan/jury-engine/internal/notify"
	"github.com/terra-clan/jury-engine/internal/storage"
)

// Common errors
var (
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrRoundNotFound     = errors.New("round not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Manager defines the campaign and round operations exposed over HTTP
type Manager interface {
	CreateCampaign(ctx context.Context, name string) (*models.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	RenameCampaign(ctx context.Context, id, name string) (*models.Campaign, error)

	CreateRound(ctx context.Context, campaignID string, req models.CreateRoundRequest) (*models.Round, error)
	ActivateRound(ctx context.Context, id string) (*models.Round, error)
	CompleteRound(ctx context.Context, id string) (*models.Round, error)
	CancelRound(ctx context.Context, id string) (*models.Round, error)
	SetTasks(ctx context.Context, id string, total int) (*models.Round, error)

	ListAdminRounds(ctx context.Context) ([]models.Round, error)
	ListJurorRounds(ctx context.Context, username string) ([]models.Round, error)
	Overdue(ctx context.Context, now time.Time) ([]models.Round, error)

	AddOrganizer(ctx context.Context, username string) (*models.User, error)

	Ping(ctx context.Context) error
}

// Option configures a Service
type Option func(*Service)

// WithCache sets the round listing cache
func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithNotifier sets where state changes are announced
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics sets the lifecycle counters
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service implements Manager on a storage.Repository
type Service struct {
	repo     storage.Repository
	cache    cache.Cache
	notifier notify.Notifier
	metrics  *Metrics
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates a Service
func NewService(repo storage.Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		cache:    cache.Noop{},
		notifier: notify.NotifierFunc(func(context.Context, notify.Message) error { return nil }),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks database connectivity
func (s *Service) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// --- Campaigns ---

// CreateCampaign creates an empty campaign
func (s *Service) CreateCampaign(ctx context.Context, name string) (*models.Campaign, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: campaign name is required", ErrInvalidInput)
	}

	c := &models.Campaign{
		ID:        uuid.New().String(),
		Name:      name,
		Rounds:    []models.Round{},
		CreatedAt: s.now().UTC(),
	}

	if err := s.repo.CreateCampaign(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	s.logger.Info("campaign created", "campaign_id", c.ID, "name", c.Name)
	s.changed(ctx, events.ScopeDashboard, "")
	return c, nil
}

// GetCampaign retrieves a campaign with its rounds
func (s *Service) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	c, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	if c == nil {
		return nil, ErrCampaignNotFound
	}

	return c, nil
}

// RenameCampaign replaces the campaign name
func (s *Service) RenameCampaign(ctx context.Context, id, name string) (*models.Campaign, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: campaign name is required", ErrInvalidInput)
	}

	if err := s.repo.UpdateCampaignName(ctx, id, name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to rename campaign: %w", err)
	}

	s.logger.Info("campaign renamed", "campaign_id", id, "name", name)
	s.changed(ctx, events.ScopeCampaign, id)
	return s.GetCampaign(ctx, id)
}

// --- Rounds ---

// CreateRound validates req and appends a paused round to the campaign
func (s *Service) CreateRound(ctx context.Context, campaignID string, req models.CreateRoundRequest) (*models.Round, error) {
	round, err := s.buildRound(req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateRound(ctx, campaignID, round); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to create round: %w", err)
	}

	s.logger.Info("round created",
		"round_id", round.ID,
		"campaign_id", campaignID,
		"vote_method", round.VoteMethod,
		"quorum", round.Quorum,
		"jurors", len(round.Jurors),
	)
	s.metrics.roundCreated(round.VoteMethod)
	s.changed(ctx, events.ScopeCampaign, campaignID)
	return round, nil
}

func (s *Service) buildRound(req models.CreateRoundRequest) (*models.Round, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: round name is required", ErrInvalidInput)
	}

	method, err := models.ParseVoteMethod(string(req.VoteMethod))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if req.Quorum < 1 {
		return nil, fmt.Errorf("%w: quorum must be at least 1", ErrInvalidInput)
	}

	jurors := make([]string, 0, len(req.Jurors))
	seen := make(map[string]bool, len(req.Jurors))
	for _, j := range req.Jurors {
		j = strings.TrimSpace(j)
		if j == "" {
			return nil, fmt.Errorf("%w: juror name is required", ErrInvalidInput)
		}
		if seen[j] {
			return nil, fmt.Errorf("%w: juror %q listed twice", ErrInvalidInput, j)
		}
		seen[j] = true
		jurors = append(jurors, j)
	}

	if len(jurors) > 0 {
		if req.Quorum > len(jurors) {
			return nil, fmt.Errorf("%w: quorum %d exceeds %d jurors", ErrInvalidInput, req.Quorum, len(jurors))
		}
		if method == models.VoteRanking && req.Quorum != len(jurors) {
			return nil, fmt.Errorf("%w: ranking rounds need a quorum equal to the number of jurors (%d)", ErrInvalidInput, len(jurors))
		}
	}

	deadline, err := models.ParseDeadline(req.DeadlineDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	return &models.Round{
		ID:           uuid.New().String(),
		Name:         name,
		VoteMethod:   method,
		Quorum:       req.Quorum,
		Jurors:       jurors,
		Status:       models.RoundPaused,
		DeadlineDate: deadline,
		CreatedAt:    s.now().UTC(),
	}, nil
}

// ActivateRound makes a paused round active. Activating an active round is a no-op.
func (s *Service) ActivateRound(ctx context.Context, id string) (*models.Round, error) {
	round, err := s.repo.ActivateRound(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrPreviousRoundIncomplete) || errors.Is(err, models.ErrRoundNotActivatable) {
			s.logger.Info("round activation refused", "round_id", id, "reason", err)
			s.metrics.activationRefused()
			return nil, err
		}
		return nil, fmt.Errorf("failed to activate round: %w", err)
	}

	if round == nil {
		return nil, ErrRoundNotFound
	}

	s.logger.Info("round activated", "round_id", id, "campaign_id", round.Campaign.ID)
	s.metrics.transition(models.RoundActive)
	s.changed(ctx, events.ScopeCampaign, round.Campaign.ID)
	return round, nil
}

// CompleteRound closes an active round
func (s *Service) CompleteRound(ctx context.Context, id string) (*models.Round, error) {
	return s.transition(ctx, id, models.RoundCompleted, func(r *models.Round) error {
		if r.Status != models.RoundActive {
			return fmt.Errorf("%w: only active rounds can be completed, round is %s", ErrInvalidTransition, r.Status)
		}
		return nil
	})
}

// CancelRound cancels a round that has not finished
func (s *Service) CancelRound(ctx context.Context, id string) (*models.Round, error) {
	return s.transition(ctx, id, models.RoundCancelled, func(r *models.Round) error {
		if r.Status.IsTerminal() {
			return fmt.Errorf("%w: round is already %s", ErrInvalidTransition, r.Status)
		}
		return nil
	})
}

func (s *Service) transition(ctx context.Context, id string, to models.RoundStatus, check func(*models.Round) error) (*models.Round, error) {
	round, err := s.getRound(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := check(round); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRoundStatus(ctx, id, to); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to update round status: %w", err)
	}

	s.logger.Info("round status changed", "round_id", id, "from", round.Status, "to", to)
	round.Status = to
	s.metrics.transition(to)
	s.changed(ctx, events.ScopeCampaign, round.Campaign.ID)
	return round, nil
}

// SetTasks records the number of tasks allocated to a round
func (s *Service) SetTasks(ctx context.Context, id string, total int) (*models.Round, error) {
	if total < 0 {
		return nil, fmt.Errorf("%w: total tasks cannot be negative", ErrInvalidInput)
	}

	round, err := s.getRound(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetRoundTasks(ctx, id, total); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to set round tasks: %w", err)
	}

	round.TotalTasks = total
	s.changed(ctx, events.ScopeCampaign, round.Campaign.ID)
	return round, nil
}

func (s *Service) getRound(ctx context.Context, id string) (*models.Round, error) {
	round, err := s.repo.GetRound(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	if round == nil {
		return nil, ErrRoundNotFound
	}

	return round, nil
}

// --- Listings ---

// ListAdminRounds returns every round of every campaign
func (s *Service) ListAdminRounds(ctx context.Context) ([]models.Round, error) {
	return s.cachedRounds(ctx, cache.KeyAdminRounds, storage.RoundFilters{})
}

// ListJurorRounds returns the rounds a juror is assigned to
func (s *Service) ListJurorRounds(ctx context.Context, username string) ([]models.Round, error) {
	return s.cachedRounds(ctx, cache.JurorKey(username), storage.RoundFilters{Juror: username})
}

func (s *Service) cachedRounds(ctx context.Context, key string, filters storage.RoundFilters) ([]models.Round, error) {
	// The generation is read before the listing; a change committed after
	// this point bumps it, and the listing below is cached where no one reads.
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.logger.Warn("round cache unavailable", "error", err)
		rounds, err := s.repo.ListRounds(ctx, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to list rounds: %w", err)
		}
		return rounds, nil
	}

	rounds, ok, err := s.cache.GetRounds(ctx, gen, key)
	if err != nil {
		s.logger.Warn("round cache read failed", "key", key, "error", err)
	}
	if ok {
		return rounds, nil
	}

	rounds, err = s.repo.ListRounds(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}

	if err := s.cache.SetRounds(ctx, gen, key, rounds); err != nil {
		s.logger.Warn("round cache write failed", "key", key, "error", err)
	}

	return rounds, nil
}

// Overdue returns active rounds whose deadline is before now
func (s *Service) Overdue(ctx context.Context, now time.Time) ([]models.Round, error) {
	rounds, err := s.repo.ListRounds(ctx, storage.RoundFilters{
		Statuses:       []models.RoundStatus{models.RoundActive},
		DeadlineBefore: &now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue rounds: %w", err)
	}

	// Recheck so the result always agrees with Round.IsOverdue.
	overdue := rounds[:0]
	for i := range rounds {
		if rounds[i].IsOverdue(now) {
			overdue = append(overdue, rounds[i])
		}
	}
	return overdue, nil
}

// --- Users ---

// AddOrganizer grants organizer rights, creating the user if needed
func (s *Service) AddOrganizer(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: Provide organizer name", ErrInvalidInput)
	}

	key, err := models.GenerateApiKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate api key: %w", err)
	}

	u := &models.User{
		ID:        uuid.New().String(),
		Username:  username,
		ApiKey:    key,
		CreatedAt: s.now().UTC(),
	}

	if err := s.repo.UpsertOrganizer(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to add organizer: %w", err)
	}

	s.logger.Info("organizer added", "username", username, "user_id", u.ID)
	s.changed(ctx, events.ScopeDashboard, "")
	return u, nil
}

// changed drops cached listings and announces the change. Both are best effort.
func (s *Service) changed(ctx context.Context, scope events.Scope, id string) {
	if err := s.cache.InvalidateRounds(ctx); err != nil {
		s.logger.Warn("round cache invalidation failed", "error", err)
	}

	msg, err := notify.NewMessage(notify.TypeInvalidated, notify.Invalidation{Scope: scope, ID: id})
	if err == nil {
		err = s.notifier.Notify(ctx, msg)
	}
	if err != nil {
		s.logger.Warn("failed to announce change", "scope", scope, "id", id, "error", err)
	}
}

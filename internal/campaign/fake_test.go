package campaign

import (
	"context"
	"fmt"
	"sync"

	"github.com/terra-clan/jury-engine/internal/models"
	"github.com/terra-clan/jury-engine/internal/notify"
	"github.com/terra-clan/jury-engine/internal/storage"
)

// FakeRepository is an in-memory storage.Repository
type FakeRepository struct {
	mu        sync.Mutex
	campaigns map[string]*models.Campaign
	users     map[string]*models.User

	ListRoundsCalls int
	AfterListRounds func()
	PingFunc        func(ctx context.Context) error
}

func NewFakeRepository() *FakeRepository {
	return &FakeRepository{
		campaigns: make(map[string]*models.Campaign),
		users:     make(map[string]*models.User),
	}
}

func (f *FakeRepository) CreateCampaign(_ context.Context, c *models.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	cp.Rounds = append([]models.Round{}, c.Rounds...)
	f.campaigns[c.ID] = &cp
	return nil
}

func (f *FakeRepository) GetCampaign(_ context.Context, id string) (*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Rounds = append([]models.Round{}, c.Rounds...)
	return &cp, nil
}

func (f *FakeRepository) UpdateCampaignName(_ context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return fmt.Errorf("campaign %s: %w", id, storage.ErrNotFound)
	}
	c.Name = name
	for i := range c.Rounds {
		c.Rounds[i].Campaign.Name = name
	}
	return nil
}

func (f *FakeRepository) CreateRound(_ context.Context, campaignID string, r *models.Round) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[campaignID]
	if !ok {
		return fmt.Errorf("campaign %s: %w", campaignID, storage.ErrNotFound)
	}
	r.Campaign = c.Ref()
	c.Rounds = append(c.Rounds, *r)
	return nil
}

func (f *FakeRepository) find(id string) (*models.Campaign, int) {
	for _, c := range f.campaigns {
		for i, r := range c.Rounds {
			if r.ID == id {
				return c, i
			}
		}
	}
	return nil, -1
}

func (f *FakeRepository) GetRound(_ context.Context, id string) (*models.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, i := f.find(id)
	if c == nil {
		return nil, nil
	}
	r := c.Rounds[i]
	return &r, nil
}

func (f *FakeRepository) ListRounds(_ context.Context, filters storage.RoundFilters) ([]models.Round, error) {
	out := f.listRounds(filters)
	if f.AfterListRounds != nil {
		f.AfterListRounds()
	}
	return out, nil
}

func (f *FakeRepository) listRounds(filters storage.RoundFilters) []models.Round {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListRoundsCalls++

	out := make([]models.Round, 0)
	for _, c := range f.campaigns {
		if filters.CampaignID != "" && c.ID != filters.CampaignID {
			continue
		}
		for _, r := range c.Rounds {
			if filters.Juror != "" && !contains(r.Jurors, filters.Juror) {
				continue
			}
			if len(filters.Statuses) > 0 && !containsStatus(filters.Statuses, r.Status) {
				continue
			}
			if filters.DeadlineBefore != nil && (r.DeadlineDate == nil || !r.DeadlineDate.Before(*filters.DeadlineBefore)) {
				continue
			}
			out = append(out, r)
		}
	}
	return out
}

func (f *FakeRepository) UpdateRoundStatus(_ context.Context, id string, status models.RoundStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, i := f.find(id)
	if c == nil {
		return fmt.Errorf("round %s: %w", id, storage.ErrNotFound)
	}
	c.Rounds[i].Status = status
	return nil
}

func (f *FakeRepository) SetRoundTasks(_ context.Context, id string, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, i := f.find(id)
	if c == nil {
		return fmt.Errorf("round %s: %w", id, storage.ErrNotFound)
	}
	c.Rounds[i].TotalTasks = total
	return nil
}

func (f *FakeRepository) ActivateRound(_ context.Context, id string) (*models.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, i := f.find(id)
	if c == nil {
		return nil, nil
	}
	if err := c.CheckActivation(id); err != nil {
		return nil, err
	}
	c.Rounds[i].Status = models.RoundActive
	r := c.Rounds[i]
	return &r, nil
}

func (f *FakeRepository) GetUserByApiKey(_ context.Context, apiKey string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ApiKey == apiKey {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *FakeRepository) UpdateUserLastUsed(context.Context, string) error { return nil }

func (f *FakeRepository) UpsertOrganizer(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.users[u.Username]; ok {
		existing.IsOrganizer = true
		*u = *existing
		return nil
	}
	u.IsOrganizer = true
	cp := *u
	f.users[u.Username] = &cp
	return nil
}

func (f *FakeRepository) Notify(context.Context, string, string) error { return nil }

func (f *FakeRepository) Ping(ctx context.Context) error {
	if f.PingFunc != nil {
		return f.PingFunc(ctx)
	}
	return nil
}

func (f *FakeRepository) Close() error { return nil }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsStatus(list []models.RoundStatus, s models.RoundStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// recordingNotifier keeps every message it is handed
type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

func (n *recordingNotifier) Messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.messages...)
}

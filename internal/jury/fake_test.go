package jury

import (
	"context"
	"sync"

	"github.com/terra-clan/jury-engine/internal/models"
)

// FakeBackend is a programmable Backend that counts calls
type FakeBackend struct {
	ActivateRoundFunc   func(ctx context.Context, roundID string) error
	CreateRoundFunc     func(ctx context.Context, campaignID string, req models.CreateRoundRequest) error
	UpdateCampaignFunc  func(ctx context.Context, campaignID string, update models.CampaignUpdate) error
	ListAdminRoundsFunc func(ctx context.Context) ([]models.Round, error)
	ListJurorRoundsFunc func(ctx context.Context) (*models.JurorRounds, error)
	AddOrganizerFunc    func(ctx context.Context, req models.AddOrganizerRequest) error

	mu    sync.Mutex
	calls map[string]int
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{calls: make(map[string]int)}
}

func (f *FakeBackend) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

// Calls returns how many times a method was invoked
func (f *FakeBackend) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *FakeBackend) ActivateRound(ctx context.Context, roundID string) error {
	f.record("ActivateRound")
	if f.ActivateRoundFunc != nil {
		return f.ActivateRoundFunc(ctx, roundID)
	}
	return nil
}

func (f *FakeBackend) CreateRound(ctx context.Context, campaignID string, req models.CreateRoundRequest) error {
	f.record("CreateRound")
	if f.CreateRoundFunc != nil {
		return f.CreateRoundFunc(ctx, campaignID, req)
	}
	return nil
}

func (f *FakeBackend) UpdateCampaign(ctx context.Context, campaignID string, update models.CampaignUpdate) error {
	f.record("UpdateCampaign")
	if f.UpdateCampaignFunc != nil {
		return f.UpdateCampaignFunc(ctx, campaignID, update)
	}
	return nil
}

func (f *FakeBackend) ListAdminRounds(ctx context.Context) ([]models.Round, error) {
	f.record("ListAdminRounds")
	if f.ListAdminRoundsFunc != nil {
		return f.ListAdminRoundsFunc(ctx)
	}
	return nil, nil
}

func (f *FakeBackend) ListJurorRounds(ctx context.Context) (*models.JurorRounds, error) {
	f.record("ListJurorRounds")
	if f.ListJurorRoundsFunc != nil {
		return f.ListJurorRoundsFunc(ctx)
	}
	return &models.JurorRounds{}, nil
}

func (f *FakeBackend) AddOrganizer(ctx context.Context, req models.AddOrganizerRequest) error {
	f.record("AddOrganizer")
	if f.AddOrganizerFunc != nil {
		return f.AddOrganizerFunc(ctx, req)
	}
	return nil
}

// apiError mimics a collaborator error carrying a user-facing message
type apiError struct {
	code    string
	message string
	err     error
}

func (e *apiError) Error() string       { return "API error: " + e.code + " - " + e.message }
func (e *apiError) UserMessage() string { return e.message }
func (e *apiError) Unwrap() error       { return e.err }

func testCampaign(statuses ...models.RoundStatus) *models.Campaign {
	c := &models.Campaign{ID: "camp-1", Name: "Wiki Loves Earth"}
	for i, st := range statuses {
		c.Rounds = append(c.Rounds, models.Round{
			ID:       "round-" + string(rune('a'+i)),
			Status:   st,
			Campaign: c.Ref(),
		})
	}
	return c
}

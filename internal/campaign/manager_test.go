package campaign

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/jury-engine/internal/models"
	"github.com/terra-clan/jury-engine/internal/notify"
)

type mapCache struct {
	mu            sync.Mutex
	gen           uint64
	entries       map[string][]models.Round
	invalidations int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]models.Round)}
}

func (c *mapCache) Generation(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *mapCache) GetRounds(_ context.Context, gen uint64, key string) ([]models.Round, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[fmt.Sprintf("%s@%d", key, gen)]
	return r, ok, nil
}

func (c *mapCache) SetRounds(_ context.Context, gen uint64, key string, rounds []models.Round) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fmt.Sprintf("%s@%d", key, gen)] = rounds
	return nil
}

func (c *mapCache) InvalidateRounds(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.invalidations++
	c.entries = make(map[string][]models.Round)
	return nil
}

func (c *mapCache) HealthCheck(context.Context) error { return nil }
func (c *mapCache) Close() error                      { return nil }

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	repo     *FakeRepository
	cache    *mapCache
	notifier *recordingNotifier
	metrics  *Metrics
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     NewFakeRepository(),
		cache:    newMapCache(),
		notifier: &recordingNotifier{},
		metrics:  NewMetrics(prometheus.NewRegistry()),
	}
	f.svc = NewService(f.repo,
		WithCache(f.cache),
		WithNotifier(f.notifier),
		WithMetrics(f.metrics),
		WithClock(func() time.Time { return fixedNow }),
	)
	return f
}

func (f *fixture) campaign(t *testing.T) *models.Campaign {
	t.Helper()
	c, err := f.svc.CreateCampaign(context.Background(), "Wiki Loves Monuments 2026")
	require.NoError(t, err)
	return c
}

func (f *fixture) round(t *testing.T, campaignID string) *models.Round {
	t.Helper()
	r, err := f.svc.CreateRound(context.Background(), campaignID, models.CreateRoundRequest{
		Name:       "Round",
		VoteMethod: models.VoteRating,
		Quorum:     1,
		Jurors:     []string{"Alice"},
	})
	require.NoError(t, err)
	return r
}

func TestService_CreateCampaign(t *testing.T) {
	f := newFixture(t)

	c := f.campaign(t)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, fixedNow, c.CreatedAt)
	assert.Empty(t, c.Rounds)

	_, err := f.svc.CreateCampaign(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := f.svc.GetCampaign(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wiki Loves Monuments 2026", got.Name)

	_, err = f.svc.GetCampaign(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCampaignNotFound)
}

func TestService_CreateRound(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t)
	jurors := []string{gofakeit.Username(), gofakeit.Username(), gofakeit.Username()}

	r, err := f.svc.CreateRound(context.Background(), c.ID, models.CreateRoundRequest{
		Name:         " Round 1 ",
		VoteMethod:   models.VoteRanking,
		Quorum:       3,
		Jurors:       jurors,
		Status:       models.RoundActive,
		DeadlineDate: "2026-04-01T00:00:00",
	})
	require.NoError(t, err)

	assert.Equal(t, "Round 1", r.Name)
	assert.Equal(t, models.RoundPaused, r.Status, "new rounds start paused")
	assert.Equal(t, jurors, r.Jurors)
	require.NotNil(t, r.DeadlineDate)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), *r.DeadlineDate)
	assert.Equal(t, c.ID, r.Campaign.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.roundsCreated.WithLabelValues("ranking")))

	_, err = f.svc.CreateRound(context.Background(), "missing", models.CreateRoundRequest{Name: "x", VoteMethod: models.VoteYesNo, Quorum: 1})
	assert.ErrorIs(t, err, ErrCampaignNotFound)
}

func TestService_CreateRoundValidation(t *testing.T) {
	tests := []struct {
		name string
		req  models.CreateRoundRequest
	}{
		{"missing name", models.CreateRoundRequest{VoteMethod: models.VoteRating, Quorum: 1}},
		{"unknown vote method", models.CreateRoundRequest{Name: "R", VoteMethod: "approval", Quorum: 1}},
		{"zero quorum", models.CreateRoundRequest{Name: "R", VoteMethod: models.VoteRating}},
		{"blank juror", models.CreateRoundRequest{Name: "R", VoteMethod: models.VoteRating, Quorum: 1, Jurors: []string{" "}}},
		{"duplicate juror", models.CreateRoundRequest{Name: "R", VoteMethod: models.VoteRating, Quorum: 1, Jurors: []string{"A", "A"}}},
		{"quorum above jurors", models.CreateRoundRequest{Name: "R", VoteMethod: models.VoteRating, Quorum: 3, Jurors: []string{"A", "B"}}},
		{"ranking quorum below jurors", models.CreateRoundRequest{Name: "R", VoteMethod: models.VoteRanking, Quorum: 1, Jurors: []string{"A", "B"}}},
		{"bad deadline", models.CreateRoundRequest{Name: "R", VoteMethod: models.VoteRating, Quorum: 1, DeadlineDate: "tomorrow"}},
	}

	f := newFixture(t)
	c := f.campaign(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateRound(context.Background(), c.ID, tt.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestService_ActivateRound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t)
	r1 := f.round(t, c.ID)
	r2 := f.round(t, c.ID)

	_, err := f.svc.ActivateRound(ctx, r2.ID)
	assert.ErrorIs(t, err, models.ErrPreviousRoundIncomplete)

	got, err := f.svc.ActivateRound(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundActive, got.Status)

	_, err = f.svc.ActivateRound(ctx, r1.ID)
	require.NoError(t, err, "activating an active round is tolerated")

	_, err = f.svc.ActivateRound(ctx, r2.ID)
	assert.ErrorIs(t, err, models.ErrPreviousRoundIncomplete, "predecessor active is not enough")

	_, err = f.svc.CompleteRound(ctx, r1.ID)
	require.NoError(t, err)
	_, err = f.svc.ActivateRound(ctx, r2.ID)
	require.NoError(t, err)

	_, err = f.svc.ActivateRound(ctx, r1.ID)
	assert.ErrorIs(t, err, models.ErrRoundNotActivatable)

	_, err = f.svc.ActivateRound(ctx, "missing")
	assert.ErrorIs(t, err, ErrRoundNotFound)

	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.activationsRefused))
}

func TestService_Transitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t)
	r := f.round(t, c.ID)

	_, err := f.svc.CompleteRound(ctx, r.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition, "paused rounds cannot complete")

	got, err := f.svc.CancelRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundCancelled, got.Status)

	_, err = f.svc.CancelRound(ctx, r.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.CancelRound(ctx, "missing")
	assert.ErrorIs(t, err, ErrRoundNotFound)
}

func TestService_SetTasks(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t)
	r := f.round(t, c.ID)

	got, err := f.svc.SetTasks(context.Background(), r.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, got.TotalTasks)

	_, err = f.svc.SetTasks(context.Background(), r.ID, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_RenameCampaign(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t)

	got, err := f.svc.RenameCampaign(context.Background(), c.ID, "New Name")
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)

	_, err = f.svc.RenameCampaign(context.Background(), "missing", "x")
	assert.ErrorIs(t, err, ErrCampaignNotFound)

	_, err = f.svc.RenameCampaign(context.Background(), c.ID, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_ListingsAreCachedUntilChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t)
	f.round(t, c.ID)

	first, err := f.svc.ListAdminRounds(ctx)
	require.NoError(t, err)
	second, err := f.svc.ListAdminRounds(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.repo.ListRoundsCalls)

	juror, err := f.svc.ListJurorRounds(ctx, "Alice")
	require.NoError(t, err)
	assert.Len(t, juror, 1)
	none, err := f.svc.ListJurorRounds(ctx, "Mallory")
	require.NoError(t, err)
	assert.Empty(t, none)

	f.round(t, c.ID)
	third, err := f.svc.ListAdminRounds(ctx)
	require.NoError(t, err)
	assert.Len(t, third, 2)
}

func TestService_ChangeDuringListingIsNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t)
	f.round(t, c.ID)

	// A round is added after the listing was read but before it is cached.
	f.repo.AfterListRounds = func() {
		f.repo.AfterListRounds = nil
		f.round(t, c.ID)
	}

	stale, err := f.svc.ListAdminRounds(ctx)
	require.NoError(t, err)
	assert.Len(t, stale, 1)

	fresh, err := f.svc.ListAdminRounds(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
	assert.Equal(t, 2, f.repo.ListRoundsCalls)
}

func TestService_AnnouncesChanges(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t)
	f.round(t, c.ID)

	msgs := f.notifier.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, notify.TypeInvalidated, msgs[1].Type)
	assert.JSONEq(t, `{"scope":"campaign","id":"`+c.ID+`"}`, string(msgs[1].Payload))
	assert.Equal(t, 2, f.cache.invalidations)
}

func TestService_Overdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.campaign(t)

	r, err := f.svc.CreateRound(ctx, c.ID, models.CreateRoundRequest{
		Name: "Late", VoteMethod: models.VoteYesNo, Quorum: 1, DeadlineDate: "2026-02-01T00:00:00",
	})
	require.NoError(t, err)

	overdue, err := f.svc.Overdue(ctx, fixedNow)
	require.NoError(t, err)
	assert.Empty(t, overdue, "paused rounds are not overdue")

	_, err = f.svc.ActivateRound(ctx, r.ID)
	require.NoError(t, err)

	overdue, err = f.svc.Overdue(ctx, fixedNow)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, r.ID, overdue[0].ID)
	assert.Equal(t, models.RoundActive, overdue[0].Status, "overdue rounds keep their status")
}

func TestService_AddOrganizer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.AddOrganizer(ctx, "Slaporte")
	require.NoError(t, err)
	assert.True(t, u.IsOrganizer)
	assert.Len(t, u.ApiKey, 48)

	again, err := f.svc.AddOrganizer(ctx, "Slaporte")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	_, err = f.svc.AddOrganizer(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_Ping(t *testing.T) {
	f := newFixture(t)
	down := errors.New("down")
	f.repo.PingFunc = func(context.Context) error { return down }

	assert.ErrorIs(t, f.svc.Ping(context.Background()), down)
}

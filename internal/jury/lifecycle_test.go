package jury

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/jury-engine/internal/events"
	"github.com/terra-clan/jury-engine/internal/models"
)

func TestLifecycleManager_Activate(t *testing.T) {
	round := models.Round{
		ID:       "round-2",
		Status:   models.RoundPaused,
		Campaign: models.CampaignRef{ID: "camp-1", Name: "Wiki Loves Earth"},
	}

	tests := []struct {
		name           string
		backendErr     error
		wantActivation bool
		wantRemote     bool
		wantMessage    string
	}{
		{
			name: "success invalidates campaign",
		},
		{
			name: "previous round incomplete",
			backendErr: &apiError{
				code:    "previous_round_incomplete",
				message: "Round 1 must be completed first",
				err:     models.ErrPreviousRoundIncomplete,
			},
			wantActivation: true,
			wantRemote:     true,
			wantMessage:    "Round 1 must be completed first",
		},
		{
			name:        "transport failure",
			backendErr:  fmt.Errorf("request failed: %w", errors.New("connection refused")),
			wantRemote:  true,
			wantMessage: "request failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := NewFakeBackend()
			var gotID string
			backend.ActivateRoundFunc = func(ctx context.Context, roundID string) error {
				gotID = roundID
				return tt.backendErr
			}
			rec := &events.Recorder{}
			m := NewLifecycleManager(backend, rec, nil)

			err := m.Activate(context.Background(), round)

			assert.Equal(t, "round-2", gotID)
			assert.Equal(t, 1, backend.Calls("ActivateRound"))

			if tt.backendErr == nil {
				require.NoError(t, err)
				assert.Equal(t, []events.Event{
					events.StateInvalidated{Scope: events.ScopeCampaign, ID: "camp-1"},
				}, rec.Events())
				return
			}

			require.Error(t, err)
			var actErr *ActivationError
			assert.Equal(t, tt.wantActivation, errors.As(err, &actErr))
			var remoteErr *RemoteError
			assert.Equal(t, tt.wantRemote, errors.As(err, &remoteErr))
			assert.Equal(t, tt.wantMessage, remoteErr.Message)

			assert.Empty(t, rec.OfType(events.TypeStateInvalidated))
			assert.Equal(t, []events.Event{
				events.Notification{Level: events.LevelError, Message: tt.wantMessage},
			}, rec.OfType(events.TypeNotification))
		})
	}
}

func TestLifecycleManager_ActivateUnwrapsSentinel(t *testing.T) {
	backend := NewFakeBackend()
	backend.ActivateRoundFunc = func(context.Context, string) error {
		return &apiError{code: "round_not_activatable", message: "round is completed", err: models.ErrRoundNotActivatable}
	}
	m := NewLifecycleManager(backend, nil, nil)

	err := m.Activate(context.Background(), models.Round{ID: "r"})

	assert.ErrorIs(t, err, models.ErrRoundNotActivatable)
	assert.EqualError(t, err, "activation rejected: round is completed")
}

func TestLifecycleManager_ActivateAlreadyActiveIsForwarded(t *testing.T) {
	backend := NewFakeBackend()
	m := NewLifecycleManager(backend, nil, nil)
	round := models.Round{ID: "r", Status: models.RoundActive}

	require.NoError(t, m.Activate(context.Background(), round))
	require.NoError(t, m.Activate(context.Background(), round))

	assert.Equal(t, 2, backend.Calls("ActivateRound"))
}

func TestLifecycleManager_RequestNavigation(t *testing.T) {
	m := NewLifecycleManager(NewFakeBackend(), nil, nil)

	tests := []struct {
		name   string
		round  models.Round
		role   Role
		want   NavigationIntent
		wantOK bool
	}{
		{
			name:   "organizer opens active round",
			round:  models.Round{ID: "r1", Status: models.RoundActive, TotalTasks: 10, VoteMethod: models.VoteRating},
			role:   RoleOrganizer,
			want:   NavigationIntent{Target: TargetAdminRound, RoundID: "r1"},
			wantOK: true,
		},
		{
			name:   "juror opens active round",
			round:  models.Round{ID: "r1", Status: models.RoundActive, TotalTasks: 10, VoteMethod: models.VoteRanking},
			role:   RoleJuror,
			want:   NavigationIntent{Target: TargetJurorRound, RoundID: "r1"},
			wantOK: true,
		},
		{
			name:  "active round without tasks is ignored",
			round: models.Round{ID: "r1", Status: models.RoundActive, TotalTasks: 0},
			role:  RoleJuror,
		},
		{
			name:  "paused round is ignored",
			round: models.Round{ID: "r1", Status: models.RoundPaused, TotalTasks: 10},
			role:  RoleOrganizer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.RequestNavigation(tt.round, tt.role)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

package jury

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/jury-engine/internal/events"
	"github.com/terra-clan/jury-engine/internal/models"
)

func TestNameEditor_BeginEdit(t *testing.T) {
	rec := &events.Recorder{}
	e := NewNameEditor(NewFakeBackend(), rec, nil)
	c := testCampaign()

	e.BeginEdit(c)

	assert.True(t, e.IsEditing())
	assert.Equal(t, "Wiki Loves Earth", e.Buffer())
	assert.Equal(t, []events.Event{events.FocusRequested{Field: FieldCampaignName}}, rec.Events())
}

func TestNameEditor_CancelEdit(t *testing.T) {
	backend := NewFakeBackend()
	e := NewNameEditor(backend, nil, nil)
	c := testCampaign()

	e.BeginEdit(c)
	e.SetBuffer("Something else")
	e.CancelEdit()

	assert.Equal(t, "Wiki Loves Earth", c.Name)
	assert.False(t, e.IsEditing())
	assert.Empty(t, e.Buffer())
	assert.ErrorIs(t, e.CommitEdit(context.Background(), c), ErrNotEditing)
	assert.Zero(t, backend.Calls("UpdateCampaign"))
}

func TestNameEditor_CommitEdit(t *testing.T) {
	backend := NewFakeBackend()
	var got models.CampaignUpdate
	backend.UpdateCampaignFunc = func(ctx context.Context, id string, update models.CampaignUpdate) error {
		assert.Equal(t, "camp-1", id)
		got = update
		return nil
	}
	rec := &events.Recorder{}
	e := NewNameEditor(backend, rec, nil)
	c := testCampaign()

	e.BeginEdit(c)
	e.SetBuffer("New Name")
	require.NoError(t, e.CommitEdit(context.Background(), c))

	assert.Equal(t, "New Name", c.Name)
	assert.Equal(t, models.CampaignUpdate{Name: "New Name"}, got)
	assert.False(t, e.IsEditing())
	assert.Equal(t, []events.Event{
		events.Notification{Level: events.LevelSuccess, Message: "Campaign name changed"},
	}, rec.OfType(events.TypeNotification))
	assert.Equal(t, []events.Event{
		events.StateInvalidated{Scope: events.ScopeCampaign, ID: "camp-1"},
	}, rec.OfType(events.TypeStateInvalidated))
}

func TestNameEditor_CommitEditFailureRollsBack(t *testing.T) {
	backend := NewFakeBackend()
	backend.UpdateCampaignFunc = func(context.Context, string, models.CampaignUpdate) error {
		return errors.New("connection reset")
	}
	rec := &events.Recorder{}
	e := NewNameEditor(backend, rec, nil)
	c := testCampaign()

	e.BeginEdit(c)
	e.SetBuffer("New Name")
	err := e.CommitEdit(context.Background(), c)

	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "Wiki Loves Earth", c.Name)
	assert.Empty(t, rec.OfType(events.TypeStateInvalidated))
	assert.Equal(t, []events.Event{
		events.Notification{Level: events.LevelError, Message: "connection reset"},
	}, rec.OfType(events.TypeNotification))
}

func TestNameEditor_CommitBlankName(t *testing.T) {
	backend := NewFakeBackend()
	e := NewNameEditor(backend, nil, nil)
	c := testCampaign()

	e.BeginEdit(c)
	e.SetBuffer("   ")
	err := e.CommitEdit(context.Background(), c)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, e.IsEditing(), "edit stays open after a validation error")
	assert.Equal(t, "Wiki Loves Earth", c.Name)
	assert.Zero(t, backend.Calls("UpdateCampaign"))
}

func TestNameEditor_CommitOtherCampaign(t *testing.T) {
	e := NewNameEditor(NewFakeBackend(), nil, nil)
	c := testCampaign()
	other := &models.Campaign{ID: "camp-2", Name: "Other"}

	e.BeginEdit(c)
	assert.ErrorIs(t, e.CommitEdit(context.Background(), other), ErrNotEditing)
	assert.Equal(t, "Other", other.Name)
}

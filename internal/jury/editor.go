package jury

import (
	"context"
	"log/slog"
	"strings"

	"github.com/terra-clan/jury-engine/internal/events"
	"github.com/terra-clan/jury-engine/internal/models"
)

// FieldCampaignName is the input focused by BeginEdit
const FieldCampaignName = "campaign-name"

// NameEditor is the transient rename flow for one campaign at a time.
// The edit buffer never merges into the name partially: CommitEdit replaces it,
// CancelEdit discards the buffer.
type NameEditor struct {
	backend   Backend
	publisher events.Publisher
	logger    *slog.Logger

	campaignID string
	buffer     string
	editing    bool
}

// NewNameEditor creates a NameEditor
func NewNameEditor(backend Backend, pub events.Publisher, logger *slog.Logger) *NameEditor {
	pub, logger = defaults(pub, logger)
	return &NameEditor{
		backend:   backend,
		publisher: pub,
		logger:    logger,
	}
}

// BeginEdit copies the campaign name into the buffer and asks for input focus
func (e *NameEditor) BeginEdit(campaign *models.Campaign) {
	e.campaignID = campaign.ID
	e.buffer = campaign.Name
	e.editing = true
	e.publisher.Publish(events.FocusRequested{Field: FieldCampaignName})
}

// SetBuffer replaces the in-flight edit value
func (e *NameEditor) SetBuffer(name string) {
	e.buffer = name
}

// Buffer returns the in-flight edit value
func (e *NameEditor) Buffer() string {
	return e.buffer
}

// IsEditing reports whether an edit is in progress
func (e *NameEditor) IsEditing() bool {
	return e.editing
}

// CancelEdit discards the buffer; the campaign name is untouched
func (e *NameEditor) CancelEdit() {
	e.editing = false
	e.buffer = ""
	e.campaignID = ""
}

// CommitEdit sets the campaign name from the buffer and sends it to the service.
// The name is updated optimistically and restored if the service rejects it.
func (e *NameEditor) CommitEdit(ctx context.Context, campaign *models.Campaign) error {
	if !e.editing || e.campaignID != campaign.ID {
		return ErrNotEditing
	}
	if strings.TrimSpace(e.buffer) == "" {
		verr := &ValidationError{Field: "name", Message: "campaign name is required"}
		notifyError(e.publisher, verr.Error())
		return verr
	}

	previous := campaign.Name
	campaign.Name = e.buffer
	e.editing = false
	e.buffer = ""
	e.campaignID = ""

	if err := e.backend.UpdateCampaign(ctx, campaign.ID, models.CampaignUpdate{Name: campaign.Name}); err != nil {
		campaign.Name = previous
		rerr := remoteError("rename campaign", err)
		e.logger.Warn("campaign rename failed", "campaign_id", campaign.ID, "error", err)
		notifyError(e.publisher, rerr.Message)
		return rerr
	}

	e.logger.Info("campaign renamed", "campaign_id", campaign.ID, "name", campaign.Name)
	notifySuccess(e.publisher, "Campaign name changed")
	e.publisher.Publish(events.StateInvalidated{Scope: events.ScopeCampaign, ID: campaign.ID})
	return nil
}

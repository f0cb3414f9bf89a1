package models

import (
	"fmt"
	"strings"
	"time"
)

// Campaign is a named container for an ordered sequence of rounds
type Campaign struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Rounds    []Round   `json:"rounds"`
	CreatedAt time.Time `json:"created_at"`
}

// CampaignRef identifies the campaign that owns a listed round
type CampaignRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Ref returns the reference form of the campaign
func (c *Campaign) Ref() CampaignRef {
	return CampaignRef{ID: c.ID, Name: c.Name}
}

// Slug returns the URL-friendly form of the campaign name
func (c *Campaign) Slug() string {
	return strings.ReplaceAll(c.Name, " ", "-")
}

// RoundsBefore returns the rounds created before the given round.
// The second result is false when the round does not belong to the campaign.
func (c *Campaign) RoundsBefore(roundID string) ([]Round, bool) {
	for i, r := range c.Rounds {
		if r.ID == roundID {
			return c.Rounds[:i], true
		}
	}
	return nil, false
}

// CheckActivation returns nil when roundID may become active: it is paused (or
// already active) and the round created before it, if any, is completed.
func (c *Campaign) CheckActivation(roundID string) error {
	before, ok := c.RoundsBefore(roundID)
	if !ok {
		return fmt.Errorf("%w: round %s is not part of campaign %s", ErrRoundNotActivatable, roundID, c.ID)
	}

	round := c.Rounds[len(before)]
	switch {
	case round.IsActive():
		return nil
	case round.Status.IsTerminal():
		return fmt.Errorf("%w: round %q is %s", ErrRoundNotActivatable, round.Name, round.Status)
	}

	if len(before) > 0 {
		prev := before[len(before)-1]
		if prev.Status != RoundCompleted {
			return fmt.Errorf("%w: round %q is %s", ErrPreviousRoundIncomplete, prev.Name, prev.Status)
		}
	}
	return nil
}

// CampaignUpdate carries the mutable campaign fields
type CampaignUpdate struct {
	Name string `json:"name"`
}

// CreateCampaignRequest represents a request to create a campaign
type CreateCampaignRequest struct {
	Name string `json:"name"`
}

// CampaignResponse is returned by the campaign endpoints
type CampaignResponse struct {
	Campaign
	Slug string `json:"slug"`
}

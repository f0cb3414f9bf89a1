package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Data-model boundary errors
var (
	ErrUnknownVoteMethod  = errors.New("unknown vote method")
	ErrUnknownRoundStatus = errors.New("unknown round status")

	// ErrPreviousRoundIncomplete is returned when activation is requested for a round
	// whose predecessor in creation order has not completed.
	ErrPreviousRoundIncomplete = errors.New("previous round is not completed")

	// ErrRoundNotActivatable is returned when a completed or cancelled round is asked
	// to become active again.
	ErrRoundNotActivatable = errors.New("round cannot be activated")
)

// VoteMethod is the voting mechanic of a round
type VoteMethod string

const (
	VoteYesNo   VoteMethod = "yesno"
	VoteRating  VoteMethod = "rating"
	VoteRanking VoteMethod = "ranking"
)

// VoteMethods lists every accepted vote method in display order
var VoteMethods = []VoteMethod{VoteYesNo, VoteRating, VoteRanking}

// ParseVoteMethod converts a raw value into a VoteMethod
func ParseVoteMethod(s string) (VoteMethod, error) {
	switch m := VoteMethod(s); m {
	case VoteYesNo, VoteRating, VoteRanking:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVoteMethod, s)
}

// Label returns the human readable name of the vote method
func (m VoteMethod) Label() string {
	switch m {
	case VoteYesNo:
		return "Yes/No"
	case VoteRating:
		return "Rating"
	case VoteRanking:
		return "Ranking"
	}
	return string(m)
}

// UnmarshalJSON rejects values outside the declared set
func (m *VoteMethod) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseVoteMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// RoundStatus represents the current state of a round
type RoundStatus string

const (
	RoundPaused    RoundStatus = "paused"
	RoundActive    RoundStatus = "active"
	RoundCompleted RoundStatus = "completed"
	RoundCancelled RoundStatus = "cancelled"
)

// ParseRoundStatus converts a raw value into a RoundStatus
func ParseRoundStatus(s string) (RoundStatus, error) {
	switch st := RoundStatus(s); st {
	case RoundPaused, RoundActive, RoundCompleted, RoundCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRoundStatus, s)
}

// IsTerminal returns true if no further transition is possible
func (s RoundStatus) IsTerminal() bool {
	return s == RoundCompleted || s == RoundCancelled
}

// UnmarshalJSON rejects values outside the declared set
func (s *RoundStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseRoundStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Round is one voting phase within a campaign
type Round struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	VoteMethod   VoteMethod  `json:"vote_method"`
	Quorum       int         `json:"quorum"`
	Jurors       []string    `json:"jurors"`
	Status       RoundStatus `json:"status"`
	DeadlineDate *time.Time  `json:"deadline_date,omitempty"`
	TotalTasks   int         `json:"total_tasks"`
	Campaign     CampaignRef `json:"campaign"`
	CreatedAt    time.Time   `json:"created_at"`
}

// IsActive returns true if the round is accepting votes
func (r *Round) IsActive() bool {
	return r.Status == RoundActive
}

// IsOverdue reports whether an active round has passed its deadline
func (r *Round) IsOverdue(now time.Time) bool {
	if r.DeadlineDate == nil || !r.IsActive() {
		return false
	}
	return now.After(*r.DeadlineDate)
}

// DeadlineLayout is the fixed precision used for deadlines on the wire.
// It carries no offset, so values are always written and read as UTC.
const DeadlineLayout = "2006-01-02T15:04:05"

// CreateRoundRequest is the payload sent to create a round in a campaign
type CreateRoundRequest struct {
	Name         string      `json:"name"`
	VoteMethod   VoteMethod  `json:"vote_method"`
	Quorum       int         `json:"quorum"`
	Jurors       []string    `json:"jurors"`
	Status       RoundStatus `json:"status"`
	DeadlineDate string      `json:"deadline_date,omitempty"`
}

// NewCreateRoundRequest converts a built round into its wire form
func NewCreateRoundRequest(r Round) CreateRoundRequest {
	req := CreateRoundRequest{
		Name:       r.Name,
		VoteMethod: r.VoteMethod,
		Quorum:     r.Quorum,
		Jurors:     r.Jurors,
		Status:     r.Status,
	}
	if req.Jurors == nil {
		req.Jurors = []string{}
	}
	if r.DeadlineDate != nil {
		req.DeadlineDate = r.DeadlineDate.UTC().Format(DeadlineLayout)
	}
	return req
}

// ParseDeadline parses a UTC deadline in DeadlineLayout; empty input yields nil
func ParseDeadline(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DeadlineLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid deadline_date %q: %w", s, err)
	}
	return &t, nil
}

// SetTasksRequest sets the number of work items assigned to a round
type SetTasksRequest struct {
	TotalTasks int `json:"total_tasks"`
}

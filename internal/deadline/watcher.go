// Package deadline reports active rounds that have passed their deadline.
// Deadlines are informational: the watcher never changes a round's status.
package deadline

import (
	"context"
	"log/slog"
	"time"

	"github.com/terra-clan/jury-engine/internal/models"
	"github.com/terra-clan/jury-engine/internal/notify"
)

// Source lists overdue rounds
type Source interface {
	Overdue(ctx context.Context, now time.Time) ([]models.Round, error)
}

// Watcher periodically announces newly overdue rounds
type Watcher struct {
	source   Source
	notifier notify.Notifier
	interval time.Duration
	now      func() time.Time

	// reported holds rounds already announced, so each is announced once
	reported map[string]bool
}

// NewWatcher creates a new deadline watcher
func NewWatcher(source Source, notifier notify.Notifier, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Watcher{
		source:   source,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
		reported: make(map[string]bool),
	}
}

// Start begins the watcher in a goroutine
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *Watcher) run(ctx context.Context) {
	slog.Info("deadline watcher started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("deadline watcher stopped")
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// Check runs one cycle and returns the rounds announced in it
func (w *Watcher) Check(ctx context.Context) []models.Round {
	slog.Debug("running deadline check")

	overdue, err := w.source.Overdue(ctx, w.now())
	if err != nil {
		slog.Error("failed to list overdue rounds", "error", err)
		return nil
	}

	current := make(map[string]bool, len(overdue))
	var announced []models.Round

	for _, r := range overdue {
		current[r.ID] = true
		if w.reported[r.ID] {
			continue
		}

		msg, err := notify.NewMessage(notify.TypeRoundOverdue, notify.RoundOverdue{
			RoundID:    r.ID,
			CampaignID: r.Campaign.ID,
		})
		if err == nil {
			err = w.notifier.Notify(ctx, msg)
		}
		if err != nil {
			slog.Error("failed to announce overdue round", "error", err, "round_id", r.ID)
			continue
		}

		slog.Info("round past deadline",
			"round_id", r.ID,
			"campaign_id", r.Campaign.ID,
			"deadline", r.DeadlineDate,
		)
		announced = append(announced, r)
	}

	// Rounds no longer overdue (completed, cancelled, deadline moved) may be announced again later
	for id := range w.reported {
		if !current[id] {
			delete(w.reported, id)
		}
	}
	for _, r := range announced {
		w.reported[r.ID] = true
	}

	return announced
}

package jury

import "github.com/terra-clan/jury-engine/internal/models"

// IsLastRoundCompleted reports whether a new round may become active after the
// given rounds: true when there are none, or the last one is completed.
// Quorum, jurors and vote method play no part.
func IsLastRoundCompleted(rounds []models.Round) bool {
	if len(rounds) == 0 {
		return true
	}
	return rounds[len(rounds)-1].Status == models.RoundCompleted
}

// IsNavigable reports whether a round can be entered: it must be active and
// have at least one assigned task.
func IsNavigable(round models.Round) bool {
	return round.Status == models.RoundActive && round.TotalTasks > 0
}

// CanActivate applies IsLastRoundCompleted to the rounds created before roundID
// in its campaign. It is advisory; the service performs the authoritative check.
func CanActivate(campaign *models.Campaign, roundID string) bool {
	before, ok := campaign.RoundsBefore(roundID)
	if !ok {
		return false
	}
	return IsLastRoundCompleted(before)
}

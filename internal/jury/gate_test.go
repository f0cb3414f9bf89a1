package jury

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/terra-clan/jury-engine/internal/models"
)

var allStatuses = []models.RoundStatus{
	models.RoundPaused,
	models.RoundActive,
	models.RoundCompleted,
	models.RoundCancelled,
}

func TestIsLastRoundCompleted(t *testing.T) {
	t.Run("empty campaign", func(t *testing.T) {
		assert.True(t, IsLastRoundCompleted(nil))
		assert.True(t, IsLastRoundCompleted([]models.Round{}))
	})

	for _, st := range allStatuses {
		t.Run("last round "+string(st), func(t *testing.T) {
			rounds := testCampaign(models.RoundCompleted, st).Rounds
			assert.Equal(t, st == models.RoundCompleted, IsLastRoundCompleted(rounds))
		})
	}

	t.Run("only the last round counts", func(t *testing.T) {
		rounds := testCampaign(models.RoundPaused, models.RoundCompleted).Rounds
		assert.True(t, IsLastRoundCompleted(rounds))
	})
}

func TestIsNavigable(t *testing.T) {
	for _, st := range allStatuses {
		for _, tasks := range []int{0, 1, 25} {
			round := models.Round{Status: st, TotalTasks: tasks}
			want := st == models.RoundActive && tasks > 0
			assert.Equal(t, want, IsNavigable(round), "status=%s tasks=%d", st, tasks)
		}
	}
}

func TestCanActivate(t *testing.T) {
	c := testCampaign(models.RoundCompleted, models.RoundActive, models.RoundPaused)

	assert.True(t, CanActivate(c, "round-a"), "first round has no predecessor")
	assert.True(t, CanActivate(c, "round-b"), "predecessor completed")
	assert.False(t, CanActivate(c, "round-c"), "predecessor still active")
	assert.False(t, CanActivate(c, "unknown"))
}

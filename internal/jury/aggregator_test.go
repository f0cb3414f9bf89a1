package jury

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/terra-clan/jury-engine/internal/models"
)

func mkRound(id, campaignID string, status models.RoundStatus) models.Round {
	return models.Round{ID: id, Status: status, Campaign: models.CampaignRef{ID: campaignID}}
}

func TestGroupByCampaign(t *testing.T) {
	r1 := mkRound("r1", "A", models.RoundActive)
	r2 := mkRound("r2", "B", models.RoundPaused)
	r3 := mkRound("r3", "A", models.RoundCompleted)
	r4 := mkRound("r4", "B", models.RoundCancelled)
	r5 := mkRound("r5", "C", models.RoundCancelled)

	g := GroupByCampaign([]models.Round{r1, r2, r3, r4, r5})

	if diff := cmp.Diff([]string{"A", "B"}, g.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	want := [][]models.Round{{r1, r3}, {r2}}
	if diff := cmp.Diff(want, g.Groups()); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, g.Len())
	assert.Nil(t, g.Get("C"), "campaign with only cancelled rounds is absent")
}

func TestGroupByCampaign_Empty(t *testing.T) {
	g := GroupByCampaign(nil)
	assert.Zero(t, g.Len())
	assert.Empty(t, g.Keys())
	assert.Empty(t, g.Groups())
}

func TestGroupByCampaign_KeysAreCopied(t *testing.T) {
	g := GroupByCampaign([]models.Round{mkRound("r1", "A", models.RoundActive)})
	keys := g.Keys()
	keys[0] = "mutated"
	assert.Equal(t, []string{"A"}, g.Keys())
}

func TestIndexRounds(t *testing.T) {
	r1 := mkRound("r1", "A", models.RoundActive)
	r2 := mkRound("r2", "A", models.RoundCancelled)

	got := IndexRounds([]models.Round{r1, r2})

	want := map[string]models.Round{"r1": r1, "r2": r2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}
}

package jury

import "github.com/terra-clan/jury-engine/internal/models"

// Grouping is an insertion-ordered mapping from campaign ID to its rounds
type Grouping struct {
	keys   []string
	groups map[string][]models.Round
}

// Keys returns campaign IDs in first-occurrence order
func (g *Grouping) Keys() []string {
	return append([]string(nil), g.keys...)
}

// Get returns the rounds of one campaign
func (g *Grouping) Get(campaignID string) []models.Round {
	return g.groups[campaignID]
}

// Len returns the number of campaigns
func (g *Grouping) Len() int {
	return len(g.keys)
}

// Groups returns the round groups in key order
func (g *Grouping) Groups() [][]models.Round {
	out := make([][]models.Round, 0, len(g.keys))
	for _, k := range g.keys {
		out = append(out, g.groups[k])
	}
	return out
}

// GroupByCampaign builds the juror view: cancelled rounds are dropped and the
// rest are grouped by campaign. This is a stable grouping, not a sort.
func GroupByCampaign(rounds []models.Round) *Grouping {
	g := &Grouping{groups: make(map[string][]models.Round)}
	for _, r := range rounds {
		if r.Status == models.RoundCancelled {
			continue
		}
		id := r.Campaign.ID
		if _, seen := g.groups[id]; !seen {
			g.keys = append(g.keys, id)
		}
		g.groups[id] = append(g.groups[id], r)
	}
	return g
}

// IndexRounds builds the organizer view: every round keyed by its ID, nothing filtered
func IndexRounds(rounds []models.Round) map[string]models.Round {
	index := make(map[string]models.Round, len(rounds))
	for _, r := range rounds {
		index[r.ID] = r
	}
	return index
}

package service

import (
	"sort"
	"strconv"
	"strings"

	"github.com/campusfix/dispatch/internal/config"
	"github.com/campusfix/dispatch/internal/models"
)

type Candidate struct {
	Technician models.Technician `json:"technician"`
	ActiveLoad int               `json:"active_load"`
	Score      float64           `json:"score"`
}

// Score rates how well a technician fits work in building for trade.
func Score(p config.Policy, t models.Technician, building string, trade models.Trade, activeLoad int) float64 {
	score := 0.0
	if t.IsAvailable {
		score += p.AvailableWeight
	}
	if t.CoversBuilding(building) {
		score += p.BuildingMatchWeight
	}
	if t.Trade == trade {
		score += p.TradeMatchWeight
	}
	if activeLoad < p.MaxActiveAssignments {
		score += float64(p.MaxActiveAssignments-activeLoad) * p.LowWorkloadWeight
	}
	return score
}

// RankTechnicians scores every technician and sorts best first. Equal scores
// keep their input order.
func RankTechnicians(p config.Policy, techs []models.Technician, loads map[string]int, building string, trade models.Trade) []Candidate {
	out := make([]Candidate, 0, len(techs))
	for _, t := range techs {
		load := loads[t.ID]
		out = append(out, Candidate{Technician: t, ActiveLoad: load, Score: Score(p, t, building, trade, load)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// PickLeastLoaded returns the technician with the fewest active assignments,
// first in input order on ties, skipping exclude.
func PickLeastLoaded(techs []models.Technician, loads map[string]int, exclude string) (models.Technician, bool) {
	best := -1
	for i, t := range techs {
		if t.ID == exclude {
			continue
		}
		if best < 0 || loads[t.ID] < loads[techs[best].ID] {
			best = i
		}
	}
	if best < 0 {
		return models.Technician{}, false
	}
	return techs[best], true
}

func priorityBase(p models.Priority) float64 {
	switch p {
	case models.PriorityCritical:
		return 10
	case models.PriorityHigh:
		return 7
	case models.PriorityMedium:
		return 4
	case models.PriorityLow:
		return 1
	}
	return 0
}

func UrgencyScore(p config.Policy, priority models.Priority, upvotes int, safety bool) float64 {
	score := priorityBase(priority) + float64(upvotes)*p.UpvoteWeight
	if safety {
		score += p.SafetyBonus
	}
	return score
}

// FloorNumber parses a floor label; anything non-numeric counts as 0.
func FloorNumber(floor string) int {
	n, err := strconv.Atoi(strings.TrimSpace(floor))
	if err != nil {
		return 0
	}
	return n
}

func describeCandidate(c Candidate, building string, trade models.Trade) string {
	var parts []string
	if c.Technician.IsAvailable {
		parts = append(parts, "available")
	}
	if c.Technician.CoversBuilding(building) {
		parts = append(parts, "covers "+building)
	}
	if c.Technician.Trade == trade {
		parts = append(parts, "trade "+string(trade))
	}
	parts = append(parts, strconv.Itoa(c.ActiveLoad)+" active")
	return "score " + strconv.FormatFloat(c.Score, 'f', 1, 64) + " (" + strings.Join(parts, ", ") + ")"
}

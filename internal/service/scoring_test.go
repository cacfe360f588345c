package service

import (
	"testing"

	"github.com/campusfix/dispatch/internal/config"
	"github.com/campusfix/dispatch/internal/models"
)

func TestScoreGoreHallExample(t *testing.T) {
	p := config.DefaultPolicy()
	t1 := models.Technician{ID: "t1", Trade: models.TradeHVAC, AssignedBuildings: []string{"Gore Hall"}, IsAvailable: true}
	t2 := models.Technician{ID: "t2", Trade: models.TradeHVAC, AssignedBuildings: []string{}, IsAvailable: true}

	if got := Score(p, t1, "Gore Hall", models.TradeHVAC, 0); got != 26 {
		t.Fatalf("expected T1 score 26, got %v", got)
	}
	if got := Score(p, t2, "Gore Hall", models.TradeHVAC, 0); got != 21 {
		t.Fatalf("expected T2 score 21, got %v", got)
	}

	ranked := RankTechnicians(p, []models.Technician{t2, t1}, map[string]int{}, "Gore Hall", models.TradeHVAC)
	if ranked[0].Technician.ID != "t1" {
		t.Fatalf("expected t1 ranked first, got %s", ranked[0].Technician.ID)
	}
}

func TestScoreMonotonicity(t *testing.T) {
	p := config.DefaultPolicy()
	both := models.Technician{Trade: models.TradePlumbing, AssignedBuildings: []string{"Sever Hall"}, IsAvailable: true}
	tradeOnly := models.Technician{Trade: models.TradePlumbing, IsAvailable: true}
	neither := models.Technician{Trade: models.TradeCustodial, IsAvailable: true}

	for load := 0; load <= 4; load++ {
		b := Score(p, both, "Sever Hall", models.TradePlumbing, load)
		tr := Score(p, tradeOnly, "Sever Hall", models.TradePlumbing, load)
		n := Score(p, neither, "Sever Hall", models.TradePlumbing, load)
		if !(b >= tr && tr >= n) {
			t.Fatalf("load %d: expected %v >= %v >= %v", load, b, tr, n)
		}
	}
}

func TestScoreWorkloadFairness(t *testing.T) {
	p := config.DefaultPolicy()
	tech := models.Technician{Trade: models.TradeHVAC, IsAvailable: true}

	prev := Score(p, tech, "Gore Hall", models.TradeHVAC, 0)
	for load := 1; load <= 5; load++ {
		cur := Score(p, tech, "Gore Hall", models.TradeHVAC, load)
		if cur > prev {
			t.Fatalf("score rose with load %d: %v > %v", load, cur, prev)
		}
		prev = cur
	}
	if Score(p, tech, "Gore Hall", models.TradeHVAC, 3) != Score(p, tech, "Gore Hall", models.TradeHVAC, 7) {
		t.Fatalf("expected no workload bonus at or beyond the cap")
	}
}

func TestRankTechniciansKeepsInputOrderOnTies(t *testing.T) {
	p := config.DefaultPolicy()
	techs := []models.Technician{
		{ID: "a", Trade: models.TradeHVAC, IsAvailable: true},
		{ID: "b", Trade: models.TradeHVAC, IsAvailable: true},
		{ID: "c", Trade: models.TradeHVAC, IsAvailable: true},
	}
	ranked := RankTechnicians(p, techs, map[string]int{}, "Gore Hall", models.TradeHVAC)
	for i, want := range []string{"a", "b", "c"} {
		if ranked[i].Technician.ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, ranked[i].Technician.ID)
		}
	}
}

func TestPickLeastLoaded(t *testing.T) {
	techs := []models.Technician{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	loads := map[string]int{"a": 2, "b": 1, "c": 1}

	got, ok := PickLeastLoaded(techs, loads, "")
	if !ok || got.ID != "b" {
		t.Fatalf("expected b, got %s", got.ID)
	}
	got, _ = PickLeastLoaded(techs, loads, "b")
	if got.ID != "c" {
		t.Fatalf("expected c when b excluded, got %s", got.ID)
	}
	if _, ok := PickLeastLoaded([]models.Technician{{ID: "a"}}, loads, "a"); ok {
		t.Fatalf("expected no candidate")
	}
}

func TestUrgencyScore(t *testing.T) {
	p := config.DefaultPolicy()
	cases := []struct {
		priority models.Priority
		upvotes  int
		safety   bool
		want     float64
	}{
		{models.PriorityCritical, 1, false, 11.5},
		{models.PriorityHigh, 2, true, 13},
		{models.PriorityMedium, 0, false, 4},
		{models.PriorityLow, 4, false, 7},
	}
	for _, tc := range cases {
		if got := UrgencyScore(p, tc.priority, tc.upvotes, tc.safety); got != tc.want {
			t.Fatalf("%s/%d/%v: expected %v, got %v", tc.priority, tc.upvotes, tc.safety, tc.want, got)
		}
	}
}

func TestFloorNumber(t *testing.T) {
	cases := map[string]int{"3": 3, " 12 ": 12, "": 0, "B": 0, "2nd": 0, "-1": -1}
	for in, want := range cases {
		if got := FloorNumber(in); got != want {
			t.Fatalf("FloorNumber(%q) = %d, want %d", in, got, want)
		}
	}
}

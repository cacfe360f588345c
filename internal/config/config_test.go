package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadReadsPolicyFromEnvironment(t *testing.T) {
	t.Setenv("SCORE_TRADE_WEIGHT", "7")
	t.Setenv("DUPLICATE_WINDOW", "48h")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Policy.TradeMatchWeight != 7 {
		t.Fatalf("expected trade weight 7, got %v", cfg.Policy.TradeMatchWeight)
	}
	if cfg.Policy.DuplicateWindow != 48*time.Hour {
		t.Fatalf("expected 48h duplicate window, got %s", cfg.Policy.DuplicateWindow)
	}
	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Port)
	}
	if cfg.Policy.UnassignedCriticalAfter != 15*time.Minute || cfg.Policy.MaxActiveAssignments != 3 {
		t.Fatalf("untouched policy keys lost their defaults: %+v", cfg.Policy)
	}
}

func TestLoadRejectsInvalidPolicy(t *testing.T) {
	t.Setenv("BATCH_WINDOW", "0s")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "BATCH_WINDOW must be positive") {
		t.Fatalf("expected batch window error, got %v", err)
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*Policy)
		wantErr string
	}{
		{"zero weight switches factor off", func(p *Policy) { p.LowWorkloadWeight = 0 }, ""},
		{"negative weight", func(p *Policy) { p.BuildingMatchWeight = -1 }, "score weights must not be negative"},
		{"no assignment capacity", func(p *Policy) { p.MaxActiveAssignments = 0 }, "MAX_ACTIVE_ASSIGNMENTS must be positive"},
		{"zero escalation threshold", func(p *Policy) { p.UnacceptedCriticalAfter = 0 }, "UNACCEPTED_CRITICAL_AFTER must be positive"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultPolicy()
			tc.mutate(&p)
			err := p.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected %q, got %v", tc.wantErr, err)
			}
		})
	}
}

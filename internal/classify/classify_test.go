package classify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campusfix/dispatch/internal/models"
)

func TestKeywordClassifier(t *testing.T) {
	k := KeywordClassifier{Buildings: []string{"Gore Hall", "Widener Library"}}

	cases := []struct {
		name     string
		email    Email
		trade    models.Trade
		priority models.Priority
		safety   bool
		building string
		room     string
		floor    string
	}{
		{
			name:     "leak",
			email:    Email{Subject: "Leak in Gore Hall", Body: "Sink in room 204 on the 2nd floor is leaking."},
			trade:    models.TradePlumbing,
			priority: models.PriorityHigh,
			building: "Gore Hall",
			room:     "204",
			floor:    "2",
		},
		{
			name:     "sparking outlet",
			email:    Email{Subject: "Outlet", Body: "The outlet near the stacks in widener library throws sparks, floor 3"},
			trade:    models.TradeElectrical,
			priority: models.PriorityCritical,
			safety:   true,
			building: "Widener Library",
			floor:    "3",
		},
		{
			name:     "cosmetic",
			email:    Email{Subject: "Dirty hallway", Body: "Minor thing, whenever you can."},
			trade:    models.TradeCustodial,
			priority: models.PriorityLow,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := k.Classify(context.Background(), tc.email)
			if err != nil {
				t.Fatalf("classify: %v", err)
			}
			if res.Trade != tc.trade || res.Priority != tc.priority || res.SafetyConcern != tc.safety {
				t.Fatalf("got trade=%s priority=%s safety=%v", res.Trade, res.Priority, res.SafetyConcern)
			}
			if res.Building != tc.building || res.Room != tc.room || res.Floor != tc.floor {
				t.Fatalf("got building=%q room=%q floor=%q", res.Building, res.Room, res.Floor)
			}
		})
	}
}

func TestHTTPClassifierRejectsUnknownTrade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/classify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"trade":"wizardry","priority":"high"}`))
	}))
	defer srv.Close()

	h := HTTPClassifier{BaseURL: srv.URL, Client: srv.Client()}
	if _, err := h.Classify(context.Background(), Email{Body: "x"}); err == nil {
		t.Fatalf("expected error for unknown trade")
	}
}

func TestHTTPClassifierDefaultsPriority(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"trade":"hvac","building":"Gore Hall","safety_concern":false}`))
	}))
	defer srv.Close()

	h := HTTPClassifier{BaseURL: srv.URL, Client: srv.Client()}
	res, err := h.Classify(context.Background(), Email{Body: "too cold"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Trade != models.TradeHVAC || res.Priority != models.PriorityMedium || res.Building != "Gore Hall" {
		t.Fatalf("unexpected result %+v", res)
	}
}

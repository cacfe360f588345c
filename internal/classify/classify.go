package classify

import (
	"context"

	"github.com/campusfix/dispatch/internal/models"
)

type Email struct {
	From    string `json:"from"`
	Name    string `json:"name,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Result is a normalized draft derived from free text. Building may be empty
// when the text never names one.
type Result struct {
	Building        string          `json:"building"`
	Room            string          `json:"room"`
	Floor           string          `json:"floor"`
	Trade           models.Trade    `json:"trade"`
	Priority        models.Priority `json:"priority"`
	SafetyConcern   bool            `json:"safety_concern"`
	Summary         string          `json:"summary"`
	SuggestedAction string          `json:"suggested_action"`
}

type Classifier interface {
	Classify(ctx context.Context, e Email) (Result, error)
}

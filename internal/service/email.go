package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusfix/dispatch/internal/classify"
)

// IntakeEmail classifies a free-text email into a draft and runs it through
// Intake.
func (e *Engine) IntakeEmail(ctx context.Context, email classify.Email) (IntakeResult, error) {
	if strings.TrimSpace(email.Subject) == "" && strings.TrimSpace(email.Body) == "" {
		return IntakeResult{}, fmt.Errorf("%w: email has no subject or body", ErrValidation)
	}
	if e.Classifier == nil {
		return IntakeResult{}, fmt.Errorf("no classifier configured")
	}
	c, err := e.Classifier.Classify(ctx, email)
	if err != nil {
		return IntakeResult{}, fmt.Errorf("classify email: %w", err)
	}
	if c.Building == "" {
		return IntakeResult{}, fmt.Errorf("%w: could not determine the building from the email", ErrValidation)
	}

	description := strings.TrimSpace(email.Body)
	if description == "" {
		description = c.Summary
	}
	return e.Intake(ctx, Draft{
		Building:        c.Building,
		Room:            c.Room,
		Floor:           c.Floor,
		Description:     description,
		SuggestedAction: c.SuggestedAction,
		Trade:           c.Trade,
		Priority:        c.Priority,
		SafetyConcern:   c.SafetyConcern,
		ReporterName:    email.Name,
		ReporterEmail:   email.From,
	})
}

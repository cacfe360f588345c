package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusfix/dispatch/internal/models"
)

type TechnicianInput struct {
	Name              string       `json:"name"`
	Email             string       `json:"email"`
	Phone             string       `json:"phone"`
	Trade             models.Trade `json:"trade"`
	AssignedBuildings []string     `json:"assigned_buildings"`
	IsAvailable       bool         `json:"is_available"`
}

func (e *Engine) validateTechnician(in *TechnicianInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !in.Trade.Valid() {
		return fmt.Errorf("%w: unknown trade %q", ErrValidation, in.Trade)
	}
	if in.AssignedBuildings == nil {
		in.AssignedBuildings = []string{}
	}
	if e.Catalog != nil {
		for _, b := range in.AssignedBuildings {
			if _, ok := e.Catalog.Lookup(b); !ok {
				return fmt.Errorf("%w: unknown building %q", ErrValidation, b)
			}
		}
	}
	return nil
}

func (e *Engine) CreateTechnician(ctx context.Context, in TechnicianInput) (models.Technician, error) {
	if err := e.validateTechnician(&in); err != nil {
		return models.Technician{}, err
	}
	now := e.now()
	t := models.Technician{
		Name:              in.Name,
		Email:             in.Email,
		Phone:             in.Phone,
		Trade:             in.Trade,
		AssignedBuildings: in.AssignedBuildings,
		IsAvailable:       in.IsAvailable,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := e.Store.CreateTechnician(ctx, &t); err != nil {
		return models.Technician{}, err
	}
	e.Logger.Info().Str("technician_id", t.ID).Str("trade", string(t.Trade)).Msg("technician created")
	return t, nil
}

func (e *Engine) UpdateTechnician(ctx context.Context, id string, in TechnicianInput) (models.Technician, error) {
	if err := e.validateTechnician(&in); err != nil {
		return models.Technician{}, err
	}
	t, err := e.Store.GetTechnician(ctx, id)
	if err != nil {
		return models.Technician{}, err
	}
	t.Name = in.Name
	t.Email = in.Email
	t.Phone = in.Phone
	t.Trade = in.Trade
	t.AssignedBuildings = in.AssignedBuildings
	t.IsAvailable = in.IsAvailable
	t.UpdatedAt = e.now()
	if err := e.Store.UpdateTechnician(ctx, t); err != nil {
		return models.Technician{}, err
	}
	return t, nil
}

// DeleteTechnician refuses while the technician still holds pending, accepted
// or in-progress work.
func (e *Engine) DeleteTechnician(ctx context.Context, id string) error {
	if _, err := e.Store.GetTechnician(ctx, id); err != nil {
		return err
	}
	counts, err := e.Store.ActiveAssignmentCounts(ctx, []string{id})
	if err != nil {
		return err
	}
	if n := counts[id]; n > 0 {
		return fmt.Errorf("%w: %d active assignment(s)", ErrTechnicianBusy, n)
	}
	if err := e.Store.DeleteTechnician(ctx, id); err != nil {
		return err
	}
	e.Logger.Info().Str("technician_id", id).Msg("technician deleted")
	return nil
}

func (e *Engine) GetTechnician(ctx context.Context, id string) (models.Technician, error) {
	return e.Store.GetTechnician(ctx, id)
}

func (e *Engine) ListTechnicians(ctx context.Context, availableOnly bool) ([]models.Technician, error) {
	return e.Store.ListTechnicians(ctx, availableOnly)
}

package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/campusfix/dispatch/internal/models"
)

type HTTPClassifier struct {
	BaseURL string
	Client  *http.Client
}

type responseBody struct {
	Building        string `json:"building"`
	Room            string `json:"room"`
	Floor           string `json:"floor"`
	Trade           string `json:"trade"`
	Priority        string `json:"priority"`
	SafetyConcern   bool   `json:"safety_concern"`
	Summary         string `json:"summary"`
	SuggestedAction string `json:"suggested_action"`
}

func (h HTTPClassifier) Classify(ctx context.Context, e Email) (Result, error) {
	if h.Client == nil {
		h.Client = &http.Client{Timeout: 15 * time.Second}
	}

	b, _ := json.Marshal(e)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/classify", bytes.NewBuffer(b))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.Client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, errors.New("classification service error")
	}

	var r responseBody
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Result{}, err
	}

	res := Result{
		Building:        r.Building,
		Room:            r.Room,
		Floor:           r.Floor,
		Trade:           models.Trade(r.Trade),
		Priority:        models.Priority(r.Priority),
		SafetyConcern:   r.SafetyConcern,
		Summary:         r.Summary,
		SuggestedAction: r.SuggestedAction,
	}
	if !res.Trade.Valid() {
		return Result{}, errors.New("classification service returned unknown trade " + r.Trade)
	}
	if !res.Priority.Valid() {
		res.Priority = models.PriorityMedium
	}
	return res, nil
}

package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/config"
)

// Habitica scores health habits on the Habitica API.
type Habitica struct {
	hc  *http.Client
	cfg config.HabiticaConfig
}

// Score is the user's stats after scoring a task.
type Score struct {
	Delta float64 `json:"delta"`
	Exp   float64 `json:"exp"`
	Level int     `json:"lvl"`
	Gold  float64 `json:"gp"`
}

// Configured reports whether credentials are present.
func (h *Habitica) Configured() bool {
	return h.cfg.UserID != "" && h.cfg.APIToken != ""
}

func (h *Habitica) headers() map[string]string {
	return map[string]string{
		"x-api-user": h.cfg.UserID,
		"x-api-key":  h.cfg.APIToken,
		"x-client":   h.cfg.UserID + "-aegis",
	}
}

func (h *Habitica) url(path string) string {
	return strings.TrimRight(h.cfg.BaseURL, "/") + path
}

// ScoreHabit finds (or creates) a habit named task and scores it up.
func (h *Habitica) ScoreHabit(ctx context.Context, task string) (Score, error) {
	if !h.Configured() {
		return Score{}, errors.New("habitica is not configured")
	}

	var list struct {
		Data []struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := getJSON(ctx, h.hc, "Habitica", h.url("/tasks/user?type=habits"), h.headers(), &list); err != nil {
		return Score{}, err
	}

	var id string
	for _, t := range list.Data {
		if strings.EqualFold(strings.TrimSpace(t.Text), task) {
			id = t.ID
			break
		}
	}
	if id == "" {
		var created struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		body := map[string]any{"text": task, "type": "habit", "up": true, "down": false, "notes": "Created by AEGIS"}
		if err := postJSON(ctx, h.hc, "Habitica", h.url("/tasks/user"), h.headers(), body, &created); err != nil {
			return Score{}, err
		}
		id = created.Data.ID
	}
	if id == "" {
		return Score{}, fmt.Errorf("habitica returned no task id for %q", task)
	}

	var scored struct {
		Data Score `json:"data"`
	}
	if err := postJSON(ctx, h.hc, "Habitica", h.url("/tasks/"+url.PathEscape(id)+"/score/up"), h.headers(), nil, &scored); err != nil {
		return Score{}, err
	}
	return scored.Data, nil
}

package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/sweeney/safety-interlock/internal/config"
	"github.com/sweeney/safety-interlock/internal/interlock"
)

// ChannelJSON is the JSON representation of one configured channel.
type ChannelJSON struct {
	Channel      int    `json:"channel"`
	ResetChannel int    `json:"reset_channel"`
	TriggerValue int    `json:"trigger_value"`
	Description  string `json:"description"`
	Triggered    bool   `json:"triggered"`
	TriggerTime  string `json:"trigger_time,omitempty"`
}

// ConfigJSON is the response of the configuration query.
type ConfigJSON struct {
	Status       bool          `json:"status"`
	SystemState  string        `json:"system_state"`
	LimitedSpeed int           `json:"limited_speed"`
	Channels     []ChannelJSON `json:"channels"`
}

// UpdateRequest is the payload of a configuration update. Both fields are
// required; a missing or mistyped field fails the request without mutating
// any state.
type UpdateRequest struct {
	LimitedSpeed *int            `json:"limited_speed"`
	Channels     *[]config.Entry `json:"channels"`
}

// ResultJSON is the response of the update and reset operations.
type ResultJSON struct {
	Status       bool   `json:"status"`
	Message      string `json:"message"`
	LimitedSpeed int    `json:"limited_speed,omitempty"`
}

func (s *Server) handleConfigJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.sup.Snapshot()

	out := ConfigJSON{
		Status:       true,
		SystemState:  snap.State.String(),
		LimitedSpeed: snap.LimitedSpeed,
		Channels:     []ChannelJSON{},
	}
	for _, c := range snap.Channels {
		cj := ChannelJSON{
			Channel:      c.Channel,
			ResetChannel: c.ResetChannel,
			TriggerValue: c.TriggerValue,
			Description:  c.Description,
			Triggered:    c.Triggered,
		}
		if c.Triggered {
			cj.TriggerTime = c.TriggerTime.UTC().Format(time.RFC3339)
		}
		out.Channels = append(out.Channels, cj)
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleConfigUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("web: malformed config update: %v", err)
		writeJSON(w, http.StatusBadRequest, ResultJSON{Status: false, Message: "malformed request body"})
		return
	}
	if req.LimitedSpeed == nil || req.Channels == nil {
		writeJSON(w, http.StatusBadRequest, ResultJSON{Status: false, Message: "missing limited_speed or channels"})
		return
	}

	if err := s.sup.UpdateConfig(*req.Channels, *req.LimitedSpeed); err != nil {
		writeJSON(w, http.StatusOK, ResultJSON{Status: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ResultJSON{Status: true, Message: "configuration updated"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	err := s.sup.Reset()
	out := ResultJSON{LimitedSpeed: s.sup.LimitedSpeed()}
	switch {
	case err == nil:
		out.Status = true
		out.Message = "latches cleared, recovery attempted"
		writeJSON(w, http.StatusOK, out)
	case errors.Is(err, interlock.ErrHazardPresent):
		out.Message = err.Error()
		writeJSON(w, http.StatusConflict, out)
	default:
		out.Message = err.Error()
		writeJSON(w, http.StatusInternalServerError, out)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	data, _ := json.MarshalIndent(v, "", "  ")
	w.Write(data)
}

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"styleextractor/logging"
	"styleextractor/types"

	"github.com/shirou/gopsutil/v3/mem"
)

// MsgNoImage is the validation error for a body without an image
const MsgNoImage = "No image data provided in JSON body"

// MsgBodyTooLarge is returned with 413 when the body exceeds MaxBodyBytes
const MsgBodyTooLarge = "Request body too large"

// ExtractStyles handles POST /extract-styles. Once the body is a JSON object
// with an "image" key the response is always 200; analysis failures show up
// as an empty colour list or a descriptive font_style.
func (s *Server) ExtractStyles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logging.LogWarning("Rejected body over %d bytes", tooLarge.Limit)
			respondError(w, MsgBodyTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		logging.LogWarning("Failed to read request body: %v", err)
		respondError(w, MsgNoImage, http.StatusBadRequest)
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		respondError(w, MsgNoImage, http.StatusBadRequest)
		return
	}

	rawImage, ok := fields["image"]
	if !ok {
		respondError(w, MsgNoImage, http.StatusBadRequest)
		return
	}

	// a non-string image is analysed as an undecodable payload
	var payload string
	if err := json.Unmarshal(rawImage, &payload); err != nil {
		logging.LogWarning("Field 'image' is not a string: %v", err)
		payload = ""
	}

	numColors := s.cfg.Palette.NumColors
	if rawCount, ok := fields["num_colors"]; ok {
		var n int
		if err := json.Unmarshal(rawCount, &n); err != nil || n < 1 {
			logging.LogWarning("Ignoring invalid num_colors %s, using %d", string(rawCount), numColors)
		} else {
			numColors = n
		}
	}

	if err := s.slots.Acquire(r.Context(), 1); err != nil {
		respondError(w, "Server busy", http.StatusServiceUnavailable)
		return
	}
	s.inFlight.Add(1)
	defer func() {
		s.inFlight.Add(-1)
		s.slots.Release(1)
	}()

	colors := s.extractor.DominantColors(payload, numColors)
	if colors == nil {
		colors = []string{}
	}
	status := s.detector.Detect(r.Context(), payload)

	respondJSON(w, types.StyleResponse{
		Colors:    colors,
		FontStyle: status.Message(),
	}, http.StatusOK)
}

// Health handles GET /health
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := types.HealthStatus{
		Status:        "ok",
		OCRAvailable:  s.detector.EngineAvailable(),
		InFlight:      s.inFlight.Load(),
		MaxConcurrent: s.maxSlots,
		Uptime:        time.Since(s.started).Round(time.Second).String(),
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		status.MemoryUsedPct = vm.UsedPercent
		status.MemoryAvailable = vm.Available
	} else {
		logging.DebugLog("Memory stats unavailable: %v", err)
	}

	respondJSON(w, status, http.StatusOK)
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.LogError("Failed to write response: %v", err)
	}
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, types.ErrorResponse{Error: message}, status)
}

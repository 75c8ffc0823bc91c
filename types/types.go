package types

// StyleResponse is the body of a successful /extract-styles call
type StyleResponse struct {
	Colors    []string `json:"colors"`
	FontStyle string   `json:"font_style"`
}

// ErrorResponse is the body of every non-200 response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthStatus is the body of GET /health
type HealthStatus struct {
	Status          string  `json:"status"`
	OCRAvailable    bool    `json:"ocr_available"`
	InFlight        int64   `json:"in_flight"`
	MaxConcurrent   int     `json:"max_concurrent"`
	MemoryUsedPct   float64 `json:"memory_used_percent,omitempty"`
	MemoryAvailable uint64  `json:"memory_available_bytes,omitempty"`
	Uptime          string  `json:"uptime"`
}

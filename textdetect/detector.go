// Package textdetect reports whether an image contains legible text. It does
// not classify fonts; the only signal is text present or not.
package textdetect

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"styleextractor/imageprocessor"
	"styleextractor/logging"

	"gocv.io/x/gocv"
)

// Status is the outcome of a detection
type Status int

const (
	NoText Status = iota
	TextDetected
	EngineUnavailable
	AnalysisFailed
)

// Message returns the user-facing description sent as font_style
func (s Status) Message() string {
	switch s {
	case TextDetected:
		return "Text detected (style needs further analysis)"
	case NoText:
		return "No prominent text detected"
	case EngineUnavailable:
		return "Tesseract OCR not found. Font analysis unavailable."
	default:
		return "Error during font analysis."
	}
}

func (s Status) String() string {
	switch s {
	case TextDetected:
		return "text-detected"
	case NoText:
		return "no-text"
	case EngineUnavailable:
		return "engine-unavailable"
	default:
		return "analysis-failed"
	}
}

// Detector decodes a payload to grayscale and runs OCR on it
type Detector struct {
	registry      *imageprocessor.ImageLoaderRegistry
	recognizer    Recognizer
	minConfidence float64
	timeout       time.Duration
}

// NewDetector creates a detector. Words need a confidence strictly above
// minConfidence to count.
func NewDetector(registry *imageprocessor.ImageLoaderRegistry, recognizer Recognizer, minConfidence float64, timeout time.Duration) *Detector {
	return &Detector{
		registry:      registry,
		recognizer:    recognizer,
		minConfidence: minConfidence,
		timeout:       timeout,
	}
}

// EngineAvailable reports whether the recognizer can run
func (d *Detector) EngineAvailable() bool {
	return d.recognizer.Available()
}

// Detect never fails: engine absence and every other error, panics
// included, map to a Status and are logged.
func (d *Detector) Detect(ctx context.Context, payload string) Status {
	data, err := imageprocessor.DecodePayload(payload)
	if err != nil {
		logging.LogError("Error in text detection: %v", err)
		return AnalysisFailed
	}
	return d.DetectBytes(ctx, data)
}

// DetectBytes is Detect for raw image bytes
func (d *Detector) DetectBytes(ctx context.Context, data []byte) (status Status) {
	defer func() {
		if r := recover(); r != nil {
			logging.LogError("Error in text detection: %v", r)
			status = AnalysisFailed
		}
	}()

	found, err := d.Analyze(ctx, data)
	switch {
	case errors.Is(err, ErrEngineUnavailable):
		logging.LogWarning("Tesseract is not installed or not in PATH: %v", err)
		return EngineUnavailable
	case err != nil:
		logging.LogError("Error in text detection: %v", err)
		return AnalysisFailed
	case found:
		return TextDetected
	default:
		return NoText
	}
}

// Analyze reports whether raw image bytes contain a confidently read word
func (d *Detector) Analyze(ctx context.Context, data []byte) (bool, error) {
	gray, _, err := d.registry.LoadImage(data, gocv.IMReadGrayScale)
	if err != nil {
		return false, err
	}
	defer gray.Close()

	encoded, err := gocv.IMEncode(gocv.PNGFileExt, gray)
	if err != nil {
		return false, fmt.Errorf("failed to encode grayscale image: %w", err)
	}
	defer encoded.Close()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	words, err := d.recognizer.Recognize(ctx, encoded.GetBytes())
	if err != nil {
		return false, err
	}

	return HasConfidentWord(words, d.minConfidence), nil
}

// HasConfidentWord reports whether any word has non-empty text and a
// confidence strictly greater than minConfidence. Confidences are truncated
// to whole numbers first, so 60.9 does not beat a threshold of 60. It stops
// at the first hit.
func HasConfidentWord(words []Word, minConfidence float64) bool {
	for _, w := range words {
		if math.Trunc(w.Confidence) > minConfidence && strings.TrimSpace(w.Text) != "" {
			return true
		}
	}
	return false
}

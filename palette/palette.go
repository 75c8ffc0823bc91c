// Package palette extracts a dominant colour palette from an image by
// k-means clustering of its downsampled pixels.
//
// The order of the returned colours is whatever order OpenCV emits cluster
// centres in. It is not sorted and is not stable across runs, since the
// k-means++ seeding is randomised.
package palette

import (
	"errors"
	"fmt"
	"image"
	"math"

	"styleextractor/imageprocessor"
	"styleextractor/logging"

	"github.com/lucasb-eyer/go-colorful"
	"gocv.io/x/gocv"
)

// ErrInvalidColorCount is returned for k < 1 or k above the sample count
var ErrInvalidColorCount = errors.New("invalid color count")

// Options are the clustering parameters
type Options struct {
	ResizeWidth   int
	ResizeHeight  int
	MaxIterations int
	Epsilon       float64
	Attempts      int
}

// DefaultOptions match the reference behaviour: 200x200 area resize,
// 100 iterations or epsilon 0.2, 10 attempts.
func DefaultOptions() Options {
	return Options{
		ResizeWidth:   200,
		ResizeHeight:  200,
		MaxIterations: 100,
		Epsilon:       0.2,
		Attempts:      10,
	}
}

// Extractor runs the decode, resize, cluster and format pipeline. It holds
// no per-request state and is safe for concurrent use.
type Extractor struct {
	registry *imageprocessor.ImageLoaderRegistry
	opts     Options
}

// NewExtractor creates an extractor that decodes through registry
func NewExtractor(registry *imageprocessor.ImageLoaderRegistry, opts Options) *Extractor {
	return &Extractor{
		registry: registry,
		opts:     opts,
	}
}

// DominantColors returns k hex colours for a base64 payload. It never fails:
// any error, panics from the OpenCV bindings included, is logged and turned
// into an empty list.
func (e *Extractor) DominantColors(payload string, k int) (colors []string) {
	defer func() {
		if r := recover(); r != nil {
			logging.LogError("Error in palette extraction: %v", r)
			colors = []string{}
		}
	}()

	data, err := imageprocessor.DecodePayload(payload)
	if err != nil {
		logging.LogError("Could not decode image from base64 data: %v", err)
		return []string{}
	}

	colors, err = e.Extract(data, k)
	if err != nil {
		logging.LogError("Error in palette extraction: %v", err)
		return []string{}
	}
	return colors
}

// Extract returns k hex colours for raw image bytes
func (e *Extractor) Extract(data []byte, k int) ([]string, error) {
	if k < 1 || k > e.opts.ResizeWidth*e.opts.ResizeHeight {
		return nil, fmt.Errorf("%w: %d", ErrInvalidColorCount, k)
	}

	img, format, err := e.registry.LoadImage(data, gocv.IMReadColor)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	if logging.DebugEnabled() {
		if hash, err := imageprocessor.ComputeAverageHash(img); err == nil {
			logging.DebugLog("Extracting %d colors from %s image %dx%d (ahash %s)",
				k, format, img.Cols(), img.Rows(), hash)
		}
	}

	return e.ExtractMat(img, k)
}

// ExtractMat clusters an already decoded 3-channel BGR image
func (e *Extractor) ExtractMat(img gocv.Mat, k int) ([]string, error) {
	if img.Empty() {
		return nil, fmt.Errorf("cannot extract colors from empty image")
	}
	if img.Channels() != 3 {
		return nil, fmt.Errorf("expected 3 channel image, got %d", img.Channels())
	}
	if k < 1 || k > e.opts.ResizeWidth*e.opts.ResizeHeight {
		return nil, fmt.Errorf("%w: %d", ErrInvalidColorCount, k)
	}

	resized := gocv.NewMat()
	defer resized.Close()

	gocv.Resize(img, &resized, image.Point{X: e.opts.ResizeWidth, Y: e.opts.ResizeHeight}, 0, 0, gocv.InterpolationArea)
	if resized.Empty() {
		return nil, fmt.Errorf("resize to %dx%d failed", e.opts.ResizeWidth, e.opts.ResizeHeight)
	}

	// one row per pixel, one column per channel
	pixels := resized.Reshape(1, resized.Rows()*resized.Cols())
	defer pixels.Close()

	samples := gocv.NewMat()
	defer samples.Close()
	pixels.ConvertTo(&samples, gocv.MatTypeCV32F)

	labels := gocv.NewMat()
	defer labels.Close()
	centers := gocv.NewMat()
	defer centers.Close()

	criteria := gocv.NewTermCriteria(gocv.Count+gocv.EPS, e.opts.MaxIterations, e.opts.Epsilon)
	compactness := gocv.KMeans(samples, k, &labels, criteria, e.opts.Attempts, gocv.KMeansPPCenters, &centers)

	if centers.Empty() || centers.Cols() != 3 {
		return nil, fmt.Errorf("clustering produced no centers")
	}
	logging.DebugLog("k-means converged with compactness %.2f over %d samples", compactness, samples.Rows())

	colors := make([]string, 0, centers.Rows())
	for i := 0; i < centers.Rows(); i++ {
		b := centers.GetFloatAt(i, 0)
		g := centers.GetFloatAt(i, 1)
		r := centers.GetFloatAt(i, 2)
		colors = append(colors, hexFromChannels(r, g, b))
	}

	return colors, nil
}

// hexFromChannels rounds each channel to 0..255 and formats #rrggbb
func hexFromChannels(r, g, b float32) string {
	c := colorful.Color{
		R: float64(roundChannel(r)) / 255.0,
		G: float64(roundChannel(g)) / 255.0,
		B: float64(roundChannel(b)) / 255.0,
	}
	return c.Hex()
}

func roundChannel(v float32) uint8 {
	f := math.Round(float64(v))
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 255 {
		return 255
	}
	return uint8(f)
}

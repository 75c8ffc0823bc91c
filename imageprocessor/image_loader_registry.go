package imageprocessor

import (
	"errors"
	"fmt"
	"sync"

	"styleextractor/logging"

	"gocv.io/x/gocv"
)

// ImageLoaderRegistry holds loaders in priority order
type ImageLoaderRegistry struct {
	loaders []ImageLoader
	mutex   sync.RWMutex
}

// NewImageLoaderRegistry creates a registry with the standard loaders:
// OpenCV first, then Go decoders, PDF rendering and embedded previews
// (through exiftool when installed, else by scanning for JPEG markers).
func NewImageLoaderRegistry() *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{}

	registry.RegisterLoader(NewNativeImageLoader())
	registry.RegisterLoader(NewStdlibImageLoader())
	registry.RegisterLoader(NewPDFImageLoader(96))
	registry.RegisterLoader(NewPreviewImageLoader())
	registry.RegisterLoader(NewEmbeddedJPEGLoader())

	return registry
}

// NewEmptyRegistry creates a registry without loaders
func NewEmptyRegistry() *ImageLoaderRegistry {
	return &ImageLoaderRegistry{}
}

// RegisterLoader appends a loader; earlier loaders are tried first
func (r *ImageLoaderRegistry) RegisterLoader(loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.loaders = append(r.loaders, loader)
}

// LoadersFor returns the loaders willing to try format, in order
func (r *ImageLoaderRegistry) LoadersFor(format FormatType) []ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var matched []ImageLoader
	for _, l := range r.loaders {
		if l.CanLoad(format) {
			matched = append(matched, l)
		}
	}
	return matched
}

// LoadImage decodes raw image bytes with the first loader that succeeds
func (r *ImageLoaderRegistry) LoadImage(data []byte, flags gocv.IMReadFlag) (gocv.Mat, FormatType, error) {
	if len(data) == 0 {
		return gocv.NewMat(), FormatUnknown, ErrEmptyPayload
	}

	format := DetectFormat(data)
	loaders := r.LoadersFor(format)
	if len(loaders) == 0 {
		return gocv.NewMat(), format, fmt.Errorf("%w: no loader for %s", ErrUnsupportedFormat, format)
	}

	var errs []error
	for _, loader := range loaders {
		img, err := loader.LoadImage(data, flags)
		if err == nil && !img.Empty() {
			logging.DebugLog("Loaded %s payload (%d bytes) with %s loader: %dx%d",
				format, len(data), loader.Name(), img.Cols(), img.Rows())
			return img, format, nil
		}
		img.Close()
		if err != nil {
			errs = append(errs, err)
		}
	}

	return gocv.NewMat(), format, fmt.Errorf("%w: %v", ErrUnsupportedFormat, errors.Join(errs...))
}

// Decode decodes a base64 payload and loads the image it carries
func (r *ImageLoaderRegistry) Decode(payload string, flags gocv.IMReadFlag) (gocv.Mat, FormatType, error) {
	data, err := DecodePayload(payload)
	if err != nil {
		return gocv.NewMat(), FormatUnknown, err
	}
	return r.LoadImage(data, flags)
}

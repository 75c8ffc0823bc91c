package imageprocessor

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrUnsupportedFormat is returned when no loader produced an image
var ErrUnsupportedFormat = errors.New("unsupported or corrupt image data")

// ImageLoader decodes encoded image bytes into a Mat
type ImageLoader interface {
	// Name identifies the loader in logs
	Name() string

	// CanLoad determines if this loader should try the sniffed format
	CanLoad(format FormatType) bool

	// LoadImage decodes data. flags selects colour (BGR, 3 channels) or
	// grayscale output; the caller owns the returned Mat.
	LoadImage(data []byte, flags gocv.IMReadFlag) (gocv.Mat, error)
}

// BaseImageLoader provides common functionality for all image loaders
type BaseImageLoader struct {
	// Formats this loader can handle
	SupportedFormats []FormatType
}

// CanLoad checks if this loader supports the format
func (l *BaseImageLoader) CanLoad(format FormatType) bool {
	for _, supported := range l.SupportedFormats {
		if format == supported {
			return true
		}
	}
	return false
}

// newImageLoadError creates a standardized error for image loading failures
func newImageLoadError(loader string, format FormatType, err error) error {
	if err == nil {
		return fmt.Errorf("%s: could not decode %s data", loader, format)
	}
	return fmt.Errorf("%s: could not decode %s data: %w", loader, format, err)
}

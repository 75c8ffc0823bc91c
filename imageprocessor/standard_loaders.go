package imageprocessor

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"gocv.io/x/gocv"
)

// NativeImageLoader decodes with OpenCV's own codecs
type NativeImageLoader struct{}

// NewNativeImageLoader creates the OpenCV-backed loader
func NewNativeImageLoader() *NativeImageLoader {
	return &NativeImageLoader{}
}

func (l *NativeImageLoader) Name() string { return "opencv" }

// CanLoad accepts everything except containers OpenCV has no codec for
func (l *NativeImageLoader) CanLoad(format FormatType) bool {
	switch format {
	case FormatPDF, FormatHEIC, FormatCR3, FormatPSD:
		return false
	}
	return true
}

// LoadImage decodes data with IMDecode
func (l *NativeImageLoader) LoadImage(data []byte, flags gocv.IMReadFlag) (gocv.Mat, error) {
	img, err := gocv.IMDecode(data, flags)
	if err != nil {
		return gocv.NewMat(), newImageLoadError(l.Name(), DetectFormat(data), err)
	}
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), newImageLoadError(l.Name(), DetectFormat(data), nil)
	}
	return img, nil
}

// StdlibImageLoader decodes with Go's image decoders. It covers the
// formats an OpenCV build may lack (GIF, WebP) and acts as a second
// opinion for the common ones.
type StdlibImageLoader struct {
	BaseImageLoader
}

// NewStdlibImageLoader creates a loader backed by image.Decode
func NewStdlibImageLoader() *StdlibImageLoader {
	return &StdlibImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatJPEG,
				FormatPNG,
				FormatGIF,
				FormatBMP,
				FormatTIFF,
				FormatWEBP,
				FormatUnknown,
			},
		},
	}
}

func (l *StdlibImageLoader) Name() string { return "go-image" }

// LoadImage decodes data with image.Decode and converts it to a Mat
func (l *StdlibImageLoader) LoadImage(data []byte, flags gocv.IMReadFlag) (gocv.Mat, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return gocv.NewMat(), newImageLoadError(l.Name(), DetectFormat(data), err)
	}

	mat, err := matFromGoImage(img, flags)
	if err != nil {
		return gocv.NewMat(), newImageLoadError(l.Name(), FormatType(format), err)
	}
	return mat, nil
}

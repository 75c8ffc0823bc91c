package imageprocessor

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"styleextractor/logging"

	"gocv.io/x/gocv"
)

var jpegSOI = []byte{0xFF, 0xD8, 0xFF}

// EmbeddedJPEGLoader finds JPEG streams embedded in RAW, TIFF and PSD
// containers by scanning for their markers. It needs no external tools and
// runs after the exiftool loader.
type EmbeddedJPEGLoader struct{}

// NewEmbeddedJPEGLoader creates a loader for formats with embedded previews
func NewEmbeddedJPEGLoader() *EmbeddedJPEGLoader {
	return &EmbeddedJPEGLoader{}
}

func (l *EmbeddedJPEGLoader) Name() string { return "embedded-jpeg" }

func (l *EmbeddedJPEGLoader) CanLoad(format FormatType) bool {
	return HasEmbeddedPreview(format)
}

// LoadImage decodes the largest embedded JPEG that OpenCV accepts
func (l *EmbeddedJPEGLoader) LoadImage(data []byte, flags gocv.IMReadFlag) (gocv.Mat, error) {
	format := DetectFormat(data)

	previews := findEmbeddedJPEGs(data)
	if len(previews) == 0 {
		return gocv.NewMat(), newImageLoadError(l.Name(), format, fmt.Errorf("no embedded JPEG found"))
	}

	for _, preview := range previews {
		img, err := gocv.IMDecode(preview, flags)
		if err != nil {
			continue
		}
		if img.Empty() {
			img.Close()
			continue
		}
		logging.DebugLog("Decoded %d byte JPEG embedded in %s payload", len(preview), format)
		return img, nil
	}

	return gocv.NewMat(), newImageLoadError(l.Name(), format, fmt.Errorf("%d embedded JPEGs, none decodable", len(previews)))
}

// findEmbeddedJPEGs returns every complete JPEG stream in data, largest first.
// Thumbnails nested inside a stream's APP1 segment are skipped with it.
func findEmbeddedJPEGs(data []byte) [][]byte {
	var found [][]byte

	pos := 0
	for pos < len(data) {
		idx := bytes.Index(data[pos:], jpegSOI)
		if idx < 0 {
			break
		}
		start := pos + idx

		n := jpegLength(data[start:])
		if n <= 0 {
			pos = start + len(jpegSOI)
			continue
		}

		found = append(found, data[start:start+n])
		pos = start + n
	}

	// insertion sort; containers carry only a handful of previews
	for i := 1; i < len(found); i++ {
		for j := i; j > 0 && len(found[j]) > len(found[j-1]); j-- {
			found[j], found[j-1] = found[j-1], found[j]
		}
	}
	return found
}

// jpegLength walks the marker segments of the JPEG starting at data[0] and
// returns its length through the EOI marker, or -1 if it is truncated or
// malformed.
func jpegLength(data []byte) int {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return -1
	}

	i := 2
	for i+1 < len(data) {
		if data[i] != 0xFF {
			return -1
		}
		// fill bytes
		for i+1 < len(data) && data[i+1] == 0xFF {
			i++
		}
		if i+1 >= len(data) {
			return -1
		}

		marker := data[i+1]
		switch {
		case marker == 0xD9:
			return i + 2
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7):
			i += 2
			continue
		}

		if i+4 > len(data) {
			return -1
		}
		segLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if segLen < 2 || i+2+segLen > len(data) {
			return -1
		}
		i += 2 + segLen

		if marker != 0xDA {
			continue
		}

		// entropy-coded data runs until the next marker other than a
		// stuffed zero or a restart marker
		for i+1 < len(data) {
			if data[i] == 0xFF {
				next := data[i+1]
				if next != 0x00 && (next < 0xD0 || next > 0xD7) {
					break
				}
			}
			i++
		}
	}

	return -1
}

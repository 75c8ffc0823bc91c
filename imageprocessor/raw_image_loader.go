package imageprocessor

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"styleextractor/logging"

	"github.com/barasher/go-exiftool"
	"gocv.io/x/gocv"
)

// previewTags are tried in order; the first present one wins
var previewTags = []string{
	"JpgFromRaw",
	"LargestImagePreview",
	"PreviewImage",
	"OtherImage",
	"ThumbnailImage",
}

// PreviewImageLoader extracts the JPEG preview embedded in camera RAW,
// HEIC and PSD files. It needs the exiftool binary.
type PreviewImageLoader struct {
	BaseImageLoader
	TempDir string
}

// NewPreviewImageLoader creates a loader that goes through exiftool
func NewPreviewImageLoader() *PreviewImageLoader {
	return &PreviewImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatRAW,
				FormatCR2,
				FormatCR3,
				FormatHEIC,
				FormatTIFF,
				FormatPSD,
			},
		},
		TempDir: os.TempDir(),
	}
}

func (l *PreviewImageLoader) Name() string { return "exiftool-preview" }

// CanLoad also requires exiftool on PATH
func (l *PreviewImageLoader) CanLoad(format FormatType) bool {
	return l.BaseImageLoader.CanLoad(format) && hasExiftool()
}

// LoadImage writes data to a temp file, asks exiftool which preview tags
// exist and decodes the first one that OpenCV accepts.
func (l *PreviewImageLoader) LoadImage(data []byte, flags gocv.IMReadFlag) (gocv.Mat, error) {
	format := DetectFormat(data)

	tmp, err := os.CreateTemp(l.TempDir, "styleextractor_preview_*")
	if err != nil {
		return gocv.NewMat(), newImageLoadError(l.Name(), format, err)
	}
	tempPath := tmp.Name()
	defer os.Remove(tempPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return gocv.NewMat(), newImageLoadError(l.Name(), format, err)
	}
	tmp.Close()

	tags, err := availablePreviewTags(tempPath)
	if err != nil {
		return gocv.NewMat(), newImageLoadError(l.Name(), format, err)
	}

	for _, tag := range tags {
		preview, err := extractPreview(tempPath, tag)
		if err != nil {
			logging.LogWarning("exiftool could not extract %s: %v", tag, err)
			continue
		}

		img, err := gocv.IMDecode(preview, flags)
		if err != nil {
			continue
		}
		if img.Empty() {
			img.Close()
			continue
		}

		logging.DebugLog("Decoded %s payload from embedded %s", format, tag)
		return img, nil
	}

	return gocv.NewMat(), newImageLoadError(l.Name(), format, fmt.Errorf("no usable embedded preview"))
}

// availablePreviewTags lists the preview tags exiftool reports for path
func availablePreviewTags(path string) ([]string, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("failed to start exiftool: %w", err)
	}
	defer et.Close()

	infos := et.ExtractMetadata(path)
	if len(infos) == 0 {
		return nil, fmt.Errorf("no metadata extracted")
	}
	if infos[0].Err != nil {
		return nil, infos[0].Err
	}

	var tags []string
	for _, tag := range previewTags {
		if _, ok := infos[0].Fields[tag]; ok {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("no preview tags present")
	}
	return tags, nil
}

// extractPreview pulls the binary value of tag out of path. go-exiftool
// only reports binary fields, so the bytes come from the command line tool.
func extractPreview(path, tag string) ([]byte, error) {
	cmd := exec.Command("exiftool", "-b", "-"+tag, path)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w, stderr: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("empty %s", tag)
	}
	return stdout.Bytes(), nil
}

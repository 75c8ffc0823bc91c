package imageprocessor

import (
	"fmt"
	"image"
	"os/exec"
	"runtime"

	"gocv.io/x/gocv"
)

// Check if exiftool is available on the system
func hasExiftool() bool {
	_, err := exec.LookPath("exiftool")
	return err == nil
}

// matFromGoImage converts a Go image into a BGR Mat, or a single channel
// Mat when flags asks for grayscale.
func matFromGoImage(img image.Image, flags gocv.IMReadFlag) (gocv.Mat, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return gocv.NewMat(), fmt.Errorf("image has no pixels")
	}

	buf := make([]byte, width*height*3)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			// Convert from 0-65535 to 0-255
			r, g, b, _ := img.At(x, y).RGBA()
			buf[i] = uint8(b >> 8)
			buf[i+1] = uint8(g >> 8)
			buf[i+2] = uint8(r >> 8)
			i += 3
		}
	}

	view, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, buf)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to build matrix: %w", err)
	}
	// the view may alias buf, so take an owned copy before buf goes away
	mat := view.Clone()
	view.Close()
	runtime.KeepAlive(buf)

	if flags != gocv.IMReadGrayScale {
		return mat, nil
	}

	gray := gocv.NewMat()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)
	mat.Close()
	if gray.Empty() {
		gray.Close()
		return gocv.NewMat(), fmt.Errorf("grayscale conversion failed")
	}
	return gray, nil
}

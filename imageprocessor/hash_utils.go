package imageprocessor

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ComputeAverageHash calculates a 64-bit average hash for the image and
// returns it as 16 hex digits. It identifies payloads in logs.
func ComputeAverageHash(img gocv.Mat) (string, error) {
	if img.Empty() {
		return "", fmt.Errorf("cannot compute hash for empty image")
	}

	// Resize to 8x8
	resized := gocv.NewMat()
	defer resized.Close()

	gocv.Resize(img, &resized, image.Point{X: 8, Y: 8}, 0, 0, gocv.InterpolationArea)

	// Convert to grayscale if not already
	gray := gocv.NewMat()
	defer gray.Close()

	if img.Channels() != 1 {
		gocv.CvtColor(resized, &gray, gocv.ColorBGRToGray)
	} else {
		resized.CopyTo(&gray)
	}
	if gray.Empty() {
		return "", fmt.Errorf("cannot compute hash: resize failed")
	}

	var sum uint64
	var count int
	for y := 0; y < gray.Rows(); y++ {
		for x := 0; x < gray.Cols(); x++ {
			sum += uint64(gray.GetUCharAt(y, x))
			count++
		}
	}

	threshold := float64(sum) / float64(count)

	var hash uint64
	for y := 0; y < gray.Rows(); y++ {
		for x := 0; x < gray.Cols(); x++ {
			hash <<= 1
			if float64(gray.GetUCharAt(y, x)) >= threshold {
				hash |= 1
			}
		}
	}

	return fmt.Sprintf("%016x", hash), nil
}

package imageprocessor

import (
	"fmt"

	"github.com/gen2brain/go-fitz"
	"gocv.io/x/gocv"
)

// PDFImageLoader renders the first page of a PDF mockup
type PDFImageLoader struct {
	BaseImageLoader
	DPI float64
}

// NewPDFImageLoader creates a PDF loader rendering at the given DPI
func NewPDFImageLoader(dpi float64) *PDFImageLoader {
	if dpi <= 0 {
		dpi = 96
	}
	return &PDFImageLoader{
		BaseImageLoader: BaseImageLoader{SupportedFormats: []FormatType{FormatPDF}},
		DPI:             dpi,
	}
}

func (l *PDFImageLoader) Name() string { return "pdf" }

// LoadImage renders page one of the document held in data
func (l *PDFImageLoader) LoadImage(data []byte, flags gocv.IMReadFlag) (gocv.Mat, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return gocv.NewMat(), newImageLoadError(l.Name(), FormatPDF, err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return gocv.NewMat(), newImageLoadError(l.Name(), FormatPDF, fmt.Errorf("document has no pages"))
	}

	page, err := doc.ImageDPI(0, l.DPI)
	if err != nil {
		return gocv.NewMat(), newImageLoadError(l.Name(), FormatPDF, err)
	}

	return matFromGoImage(page, flags)
}

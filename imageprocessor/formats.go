package imageprocessor

import "bytes"

// FormatType represents a known image format type
type FormatType string

// Known image format constants
const (
	FormatUnknown FormatType = "unknown"
	FormatJPEG    FormatType = "jpeg"
	FormatPNG     FormatType = "png"
	FormatGIF     FormatType = "gif"
	FormatTIFF    FormatType = "tiff"
	FormatRAW     FormatType = "raw"
	FormatBMP     FormatType = "bmp"
	FormatWEBP    FormatType = "webp"
	FormatHEIC    FormatType = "heic"
	FormatCR2     FormatType = "cr2"
	FormatCR3     FormatType = "cr3"
	FormatPSD     FormatType = "psd"
	FormatPDF     FormatType = "pdf"
)

type signature struct {
	offset int
	magic  []byte
	format FormatType
}

// Order matters: CR2 is a TIFF container and must be matched before it.
var signatures = []signature{
	{0, []byte{0xFF, 0xD8, 0xFF}, FormatJPEG},
	{0, []byte("\x89PNG\r\n\x1a\n"), FormatPNG},
	{0, []byte("GIF87a"), FormatGIF},
	{0, []byte("GIF89a"), FormatGIF},
	{0, []byte("%PDF-"), FormatPDF},
	{0, []byte("8BPS"), FormatPSD},
	{0, []byte("FUJIFILMCCD-RAW"), FormatRAW},
	{8, []byte("CR"), FormatCR2},
	{0, []byte("II*\x00"), FormatTIFF},
	{0, []byte("MM\x00*"), FormatTIFF},
	{0, []byte("BM"), FormatBMP},
}

// DetectFormat sniffs the format of an encoded image from its leading bytes
func DetectFormat(data []byte) FormatType {
	if len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return FormatWEBP
	}

	if len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")) {
		switch string(data[8:12]) {
		case "crx ":
			return FormatCR3
		case "heic", "heix", "hevc", "hevx", "mif1", "msf1", "avif":
			return FormatHEIC
		}
	}

	for _, sig := range signatures {
		end := sig.offset + len(sig.magic)
		if len(data) < end {
			continue
		}
		if !bytes.Equal(data[sig.offset:end], sig.magic) {
			continue
		}
		// "CR" at offset 8 only means CR2 inside a TIFF header
		if sig.format == FormatCR2 && !isTIFFHeader(data) {
			continue
		}
		return sig.format
	}

	return FormatUnknown
}

func isTIFFHeader(data []byte) bool {
	return len(data) >= 4 && (bytes.Equal(data[0:4], []byte("II*\x00")) || bytes.Equal(data[0:4], []byte("MM\x00*")))
}

// IsRawFormat reports whether the format is a camera RAW container
func IsRawFormat(format FormatType) bool {
	return format == FormatRAW ||
		format == FormatCR2 ||
		format == FormatCR3
}

// HasEmbeddedPreview reports whether the format usually carries a JPEG
// preview that exiftool can extract
func HasEmbeddedPreview(format FormatType) bool {
	return IsRawFormat(format) || format == FormatHEIC || format == FormatTIFF || format == FormatPSD
}

// Package imageprocessor turns transport payloads into OpenCV matrices.
//
// Payloads are base64 strings. The decoded bytes are sniffed for their
// format and handed to the first registered loader that can decode them:
// OpenCV itself, Go's image decoders, a PDF renderer, or the embedded
// preview of a camera RAW/HEIC file.
package imageprocessor

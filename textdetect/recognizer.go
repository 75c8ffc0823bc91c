package textdetect

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// ErrEngineUnavailable is returned when the OCR engine cannot be run at all
var ErrEngineUnavailable = errors.New("text recognition engine unavailable")

// Word is one word-level OCR result. Confidence is 0-100; a value the
// engine did not compute is reported as 0.
type Word struct {
	Text       string
	Confidence float64
}

// Recognizer runs word-level text recognition on an encoded grayscale image
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) ([]Word, error)
	Available() bool
}

// TesseractRecognizer shells out to the tesseract command line tool and
// parses its TSV output.
type TesseractRecognizer struct {
	Path     string
	Language string
}

// NewTesseractRecognizer creates a recognizer for the binary at path
func NewTesseractRecognizer(path, language string) *TesseractRecognizer {
	if path == "" {
		path = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &TesseractRecognizer{Path: path, Language: language}
}

// Available reports whether the tesseract binary can be found
func (t *TesseractRecognizer) Available() bool {
	_, err := exec.LookPath(t.Path)
	return err == nil
}

// Recognize feeds image to tesseract on stdin and returns every word row
func (t *TesseractRecognizer) Recognize(ctx context.Context, image []byte) ([]Word, error) {
	bin, err := exec.LookPath(t.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}

	cmd := exec.CommandContext(ctx, bin, "stdin", "stdout", "-l", t.Language, "tsv")
	cmd.Stdin = bytes.NewReader(image)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
		return nil, fmt.Errorf("tesseract failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	return ParseTSV(&stdout)
}

// ParseTSV parses tesseract TSV output into words. Rows of every level are
// returned; non-word rows carry empty text and a confidence of -1.
func ParseTSV(r io.Reader) ([]Word, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, scanner.Err()
	}

	confIdx, textIdx := -1, -1
	for i, name := range strings.Split(scanner.Text(), "\t") {
		switch strings.TrimSpace(name) {
		case "conf":
			confIdx = i
		case "text":
			textIdx = i
		}
	}
	if confIdx < 0 || textIdx < 0 {
		return nil, fmt.Errorf("TSV header lacks conf/text columns: %q", scanner.Text())
	}

	var words []Word
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) <= confIdx {
			continue
		}

		word := Word{Confidence: parseConfidence(fields[confIdx])}
		if len(fields) > textIdx {
			// text is the last column and may itself contain tabs
			word.Text = strings.Join(fields[textIdx:], "\t")
		}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read TSV: %w", err)
	}

	return words, nil
}

func parseConfidence(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	conf, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return conf
}

package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"styleextractor/config"
	"styleextractor/imageprocessor"
	"styleextractor/palette"
	"styleextractor/textdetect"
	"styleextractor/types"

	"github.com/lucasb-eyer/go-colorful"
)

type fakeExtractor struct {
	colors   []string
	lastK    int
	payloads []string
}

func (f *fakeExtractor) DominantColors(payload string, k int) []string {
	f.lastK = k
	f.payloads = append(f.payloads, payload)
	return f.colors
}

type fakeDetector struct {
	status    textdetect.Status
	available bool
}

func (f *fakeDetector) Detect(ctx context.Context, payload string) textdetect.Status {
	return f.status
}

func (f *fakeDetector) EngineAvailable() bool { return f.available }

// slowExtractor blocks inside DominantColors until release is closed
type slowExtractor struct {
	entered chan struct{}
	release chan struct{}
}

func (s *slowExtractor) DominantColors(payload string, k int) []string {
	close(s.entered)
	<-s.release
	return []string{"#010203"}
}

func newTestServer(extractor PaletteExtractor, detector TextDetector) *Server {
	cfg := config.Default()
	cfg.MaxConcurrent = 2
	cfg.MaxBodyBytes = 1 << 20
	return NewServer(cfg, extractor, detector)
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/extract-styles", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestExtractStylesValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "image=abc"},
		{"missing image", `{"picture": "abc"}`},
		{"json array", `["image"]`},
		{"json null", `null`},
	}

	srv := newTestServer(&fakeExtractor{}, &fakeDetector{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, srv.Handler(), tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}

			var resp types.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if resp.Error != "No image data provided in JSON body" {
				t.Errorf("error = %q", resp.Error)
			}
		})
	}
}

func TestExtractStylesSuccess(t *testing.T) {
	extractor := &fakeExtractor{colors: []string{"#112233", "#aabbcc"}}
	srv := newTestServer(extractor, &fakeDetector{status: textdetect.TextDetected})

	rec := post(t, srv.Handler(), `{"image": "abcd"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header = %q", got)
	}

	var resp types.StyleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(resp.Colors) != 2 || resp.Colors[0] != "#112233" {
		t.Errorf("colors = %v", resp.Colors)
	}
	if resp.FontStyle != "Text detected (style needs further analysis)" {
		t.Errorf("font_style = %q", resp.FontStyle)
	}
	if extractor.lastK != 5 || extractor.payloads[0] != "abcd" {
		t.Errorf("extractor called with k=%d payloads=%v", extractor.lastK, extractor.payloads)
	}
}

func TestExtractStylesDegradesGracefully(t *testing.T) {
	srv := newTestServer(&fakeExtractor{colors: nil}, &fakeDetector{status: textdetect.AnalysisFailed})

	for _, body := range []string{`{"image": 42}`, `{"image": null}`, `{"image": "not-base64!"}`} {
		rec := post(t, srv.Handler(), body)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", body, rec.Code)
		}
		// colors must serialize as [] rather than null
		if !strings.Contains(rec.Body.String(), `"colors":[]`) {
			t.Errorf("%s: body = %s", body, rec.Body.String())
		}
	}
}

func TestExtractStylesNumColors(t *testing.T) {
	tests := []struct {
		body  string
		wantK int
	}{
		{`{"image": "x", "num_colors": 3}`, 3},
		{`{"image": "x", "num_colors": 0}`, 5},
		{`{"image": "x", "num_colors": "many"}`, 5},
	}

	for _, tt := range tests {
		extractor := &fakeExtractor{}
		srv := newTestServer(extractor, &fakeDetector{})
		post(t, srv.Handler(), tt.body)
		if extractor.lastK != tt.wantK {
			t.Errorf("%s: k = %d, want %d", tt.body, extractor.lastK, tt.wantK)
		}
	}
}

func TestMethodsAndPreflight(t *testing.T) {
	srv := newTestServer(&fakeExtractor{}, &fakeDetector{})

	req := httptest.NewRequest(http.MethodOptions, "/extract-styles", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("missing Access-Control-Allow-Methods")
	}

	req = httptest.NewRequest(http.MethodGet, "/extract-styles", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d", rec.Code)
	}
}

func TestBodyTooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.MaxBodyBytes = 16
	srv := NewServer(cfg, &fakeExtractor{}, &fakeDetector{})

	rec := post(t, srv.Handler(), `{"image": "`+strings.Repeat("A", 64)+`"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}

	var resp types.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Error != MsgBodyTooLarge {
		t.Errorf("error = %q, want %q", resp.Error, MsgBodyTooLarge)
	}
}

func TestShutdownDrainsInFlightRequest(t *testing.T) {
	extractor := &slowExtractor{entered: make(chan struct{}), release: make(chan struct{})}
	srv := newTestServer(extractor, &fakeDetector{status: textdetect.NoText})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	type result struct {
		status int
		body   types.StyleResponse
		err    error
	}
	respCh := make(chan result, 1)
	go func() {
		resp, err := http.Post("http://"+ln.Addr().String()+"/extract-styles", "application/json",
			strings.NewReader(`{"image": "abcd"}`))
		if err != nil {
			respCh <- result{err: err}
			return
		}
		defer resp.Body.Close()
		var body types.StyleResponse
		err = json.NewDecoder(resp.Body).Decode(&body)
		respCh <- result{status: resp.StatusCode, body: body, err: err}
	}()

	select {
	case <-extractor.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the extractor")
	}

	shutdownErr := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownErr <- srv.Shutdown(ctx)
	}()

	// Serve must keep blocking while the analysis is still running
	select {
	case err := <-serveErr:
		t.Fatalf("Serve returned %v before the in-flight request finished", err)
	case <-time.After(200 * time.Millisecond):
	}

	close(extractor.release)

	res := <-respCh
	if res.err != nil {
		t.Fatalf("in-flight request failed: %v", res.err)
	}
	if res.status != http.StatusOK || len(res.body.Colors) != 1 {
		t.Errorf("got %d %+v", res.status, res.body)
	}

	if err := <-shutdownErr; err != nil {
		t.Errorf("Shutdown = %v", err)
	}
	select {
	case err := <-serveErr:
		if err != nil {
			t.Errorf("Serve = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}

func TestShutdownTimeoutIsReported(t *testing.T) {
	extractor := &slowExtractor{entered: make(chan struct{}), release: make(chan struct{})}
	defer close(extractor.release)
	srv := newTestServer(extractor, &fakeDetector{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	go func() {
		resp, err := http.Post("http://"+ln.Addr().String()+"/extract-styles", "application/json",
			strings.NewReader(`{"image": "abcd"}`))
		if err == nil {
			resp.Body.Close()
		}
	}()
	<-extractor.entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := srv.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown = %v, want deadline exceeded", err)
	}
	if err := <-serveErr; !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve = %v, want deadline exceeded", err)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeExtractor{}, &fakeDetector{available: true})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status types.HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != "ok" || !status.OCRAvailable || status.MaxConcurrent != 2 {
		t.Errorf("unexpected health %+v", status)
	}
}

func TestSolidColorRoundTrip(t *testing.T) {
	want := color.RGBA{R: 34, G: 139, B: 34, A: 255}
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			img.SetRGBA(x, y, want)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	extractor := palette.NewExtractor(imageprocessor.NewImageLoaderRegistry(), palette.DefaultOptions())
	srv := newTestServer(extractor, &fakeDetector{status: textdetect.NoText})

	body, _ := json.Marshal(map[string]string{"image": base64.StdEncoding.EncodeToString(buf.Bytes())})
	rec := post(t, srv.Handler(), string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp types.StyleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Colors) != 5 {
		t.Fatalf("expected 5 colors, got %v", resp.Colors)
	}
	for _, hex := range resp.Colors {
		c, err := colorful.Hex(hex)
		if err != nil {
			t.Fatalf("bad hex %q: %v", hex, err)
		}
		r, g, b := c.RGB255()
		if diff(r, want.R) > 1 || diff(g, want.G) > 1 || diff(b, want.B) > 1 {
			t.Errorf("color %s too far from #228b22", hex)
		}
	}
	if resp.FontStyle != "No prominent text detected" {
		t.Errorf("font_style = %q", resp.FontStyle)
	}
}

func diff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

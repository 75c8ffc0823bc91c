package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the service. Zero values are never used
// directly; start from Default().
type Config struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`

	// MaxBodyBytes caps the JSON request body size.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// MaxConcurrent bounds the number of analyses running at once.
	MaxConcurrent   int           `yaml:"max_concurrent"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Palette PaletteConfig `yaml:"palette"`
	OCR     OCRConfig     `yaml:"ocr"`

	Debug   bool   `yaml:"debug"`
	LogFile string `yaml:"log_file"`
}

// PaletteConfig are the clustering parameters
type PaletteConfig struct {
	NumColors     int     `yaml:"num_colors"`
	ResizeWidth   int     `yaml:"resize_width"`
	ResizeHeight  int     `yaml:"resize_height"`
	MaxIterations int     `yaml:"max_iterations"`
	Epsilon       float64 `yaml:"epsilon"`
	Attempts      int     `yaml:"attempts"`
}

// OCRConfig configures the text presence detector
type OCRConfig struct {
	TesseractPath string        `yaml:"tesseract_path"`
	Language      string        `yaml:"language"`
	MinConfidence float64       `yaml:"min_confidence"`
	Timeout       time.Duration `yaml:"timeout"`
}

// Default returns the configuration the service runs with when nothing is
// overridden.
func Default() *Config {
	return &Config{
		Host:            "127.0.0.1",
		Port:            "5000",
		MaxBodyBytes:    20 << 20,
		MaxConcurrent:   0,
		ShutdownTimeout: 10 * time.Second,
		Palette: PaletteConfig{
			NumColors:     5,
			ResizeWidth:   200,
			ResizeHeight:  200,
			MaxIterations: 100,
			Epsilon:       0.2,
			Attempts:      10,
		},
		OCR: OCRConfig{
			TesseractPath: "tesseract",
			Language:      "eng",
			MinConfidence: 60,
			Timeout:       30 * time.Second,
		},
	}
}

// LoadFile reads a YAML config file on top of the defaults
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyArgs overrides fields from the command-line argument map produced by
// utils.ParseArguments. Unknown keys are ignored.
func (c *Config) ApplyArgs(args map[string]string) error {
	if v, ok := args["host"]; ok && v != "" {
		c.Host = v
	}
	if v, ok := args["port"]; ok && v != "" {
		c.Port = v
	}
	if v, ok := args["colors"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid --colors value %q: %w", v, err)
		}
		c.Palette.NumColors = n
	}
	if v, ok := args["max-body"]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid --max-body value %q: %w", v, err)
		}
		c.MaxBodyBytes = n
	}
	if v, ok := args["workers"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid --workers value %q: %w", v, err)
		}
		c.MaxConcurrent = n
	}
	if v, ok := args["tesseract"]; ok && v != "" {
		c.OCR.TesseractPath = v
	}
	if v, ok := args["lang"]; ok && v != "" {
		c.OCR.Language = v
	}
	if _, ok := args["debug"]; ok {
		c.Debug = true
	}
	if v, ok := args["logfile"]; ok && v != "" {
		c.LogFile = v
	}
	return nil
}

// ApplyEnv honours PORT the way most hosting platforms set it
func (c *Config) ApplyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Port = port
	}
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Validate rejects values the analysis pipeline cannot run with
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent must not be negative, got %d", c.MaxConcurrent)
	}

	p := c.Palette
	if p.NumColors < 1 {
		return fmt.Errorf("num_colors must be at least 1, got %d", p.NumColors)
	}
	if p.ResizeWidth < 1 || p.ResizeHeight < 1 {
		return fmt.Errorf("resize dimensions must be positive, got %dx%d", p.ResizeWidth, p.ResizeHeight)
	}
	if p.NumColors > p.ResizeWidth*p.ResizeHeight {
		return fmt.Errorf("num_colors %d exceeds the %d sampled pixels", p.NumColors, p.ResizeWidth*p.ResizeHeight)
	}
	if p.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", p.MaxIterations)
	}
	if p.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %f", p.Epsilon)
	}
	if p.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1, got %d", p.Attempts)
	}

	if c.OCR.TesseractPath == "" {
		return fmt.Errorf("tesseract_path must not be empty")
	}
	if c.OCR.MinConfidence < 0 || c.OCR.MinConfidence > 100 {
		return fmt.Errorf("min_confidence must be within 0-100, got %f", c.OCR.MinConfidence)
	}
	return nil
}

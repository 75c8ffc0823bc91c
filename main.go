package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"styleextractor/config"
	"styleextractor/imageprocessor"
	"styleextractor/logging"
	"styleextractor/palette"
	"styleextractor/server"
	"styleextractor/signalhandler"
	"styleextractor/textdetect"
	"styleextractor/types"
	"styleextractor/utils"
)

func main() {
	runtime.GOMAXPROCS(signalhandler.GetOptimalProcs())

	args := utils.ParseArguments()

	// serve is the default command
	command, hasCommand := args["command"]
	if !hasCommand {
		command = "serve"
	}
	if _, ok := args["help"]; ok {
		utils.PrintUsage()
		os.Exit(0)
	}

	cfg, err := loadConfig(args)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		utils.PrintUsage()
		os.Exit(1)
	}

	if cfg.Debug || cfg.LogFile != "" {
		logPath := cfg.LogFile
		if logPath == "" {
			logPath = "styleextractor.log"
		}
		if err := logging.SetupLogger(logPath, cfg.Debug); err != nil {
			fmt.Printf("Warning: Failed to setup logging: %v\n", err)
			if cfg.Debug {
				logging.EnableDebug()
			}
		} else {
			fmt.Printf("Logging to: %s\n", logPath)
		}
		defer logging.CloseLogger()
	}

	registry := imageprocessor.NewImageLoaderRegistry()
	extractor := palette.NewExtractor(registry, palette.Options{
		ResizeWidth:   cfg.Palette.ResizeWidth,
		ResizeHeight:  cfg.Palette.ResizeHeight,
		MaxIterations: cfg.Palette.MaxIterations,
		Epsilon:       cfg.Palette.Epsilon,
		Attempts:      cfg.Palette.Attempts,
	})
	recognizer := textdetect.NewTesseractRecognizer(cfg.OCR.TesseractPath, cfg.OCR.Language)
	detector := textdetect.NewDetector(registry, recognizer, cfg.OCR.MinConfidence, cfg.OCR.Timeout)

	switch command {
	case "serve":
		handleServeCommand(cfg, extractor, detector)
	case "extract":
		handleExtractCommand(args, cfg, extractor, detector)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		utils.PrintUsage()
		os.Exit(1)
	}
}

// loadConfig layers defaults, the optional YAML file, flags and $PORT
func loadConfig(args map[string]string) (*config.Config, error) {
	cfg := config.Default()
	if path, ok := args["config"]; ok && path != "" {
		var err error
		cfg, err = config.LoadFile(path)
		if err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv()
	if err := cfg.ApplyArgs(args); err != nil {
		return nil, err
	}

	if cfg.MaxConcurrent == 0 {
		cfg.MaxConcurrent = signalhandler.GetOptimalProcs()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func handleServeCommand(cfg *config.Config, extractor *palette.Extractor, detector *textdetect.Detector) {
	srv := server.NewServer(cfg, extractor, detector)

	// ListenAndServe reports the shutdown result once requests have drained
	signalhandler.SetupHandler(func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		srv.Shutdown(ctx)
	})

	if !detector.EngineAvailable() {
		logging.LogWarning("Tesseract not found at %q; font_style will report it as unavailable", cfg.OCR.TesseractPath)
	}

	fmt.Printf("Server starting on http://%s\n", cfg.Addr())
	fmt.Printf("Palette size: %d, max concurrent analyses: %d\n", cfg.Palette.NumColors, cfg.MaxConcurrent)
	fmt.Println("Endpoints:")
	fmt.Println("  POST /extract-styles - Palette and text presence from a base64 image")
	fmt.Println("  GET  /health         - Health check")

	if err := srv.ListenAndServe(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logging.LogError("Shutdown timed out after %v with analyses still running", cfg.ShutdownTimeout)
			logging.CloseLogger()
			os.Exit(1)
		}
		log.Fatalf("Server failed: %v", err)
	}
	fmt.Println("Server stopped")
}

func handleExtractCommand(args map[string]string, cfg *config.Config, extractor *palette.Extractor, detector *textdetect.Detector) {
	imagePath, ok := args["image"]
	if !ok || imagePath == "" {
		fmt.Println("Error: Missing image path (use --image=PATH)")
		os.Exit(1)
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		log.Fatalf("Cannot read image: %v", err)
	}

	startTime := time.Now()

	colors, err := extractor.Extract(data, cfg.Palette.NumColors)
	if err != nil {
		logging.LogError("Error in palette extraction: %v", err)
		colors = []string{}
	}

	status := detector.DetectBytes(context.Background(), data)

	out, err := json.MarshalIndent(types.StyleResponse{Colors: colors, FontStyle: status.Message()}, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
	fmt.Println(string(out))

	logging.DebugLog("Analysed %s in %v", imagePath, time.Since(startTime))
}

package utils

import (
	"fmt"
	"os"
	"strings"
)

var commands = map[string]bool{
	"serve":   true,
	"extract": true,
}

// ParseArguments converts command-line arguments into a map of flags and values
func ParseArguments() map[string]string {
	return parseArgs(os.Args[1:])
}

func parseArgs(argv []string) map[string]string {
	args := make(map[string]string)

	// First, identify the command (serve/extract)
	commandIndex := -1
	for i, arg := range argv {
		if commands[arg] {
			args["command"] = arg
			commandIndex = i
			break
		}
	}

	for i := 0; i < len(argv); i++ {
		if i == commandIndex {
			continue
		}

		arg := argv[i]

		// Handle flags with equals sign (--key=value)
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			flagName := strings.TrimPrefix(parts[0], "--")
			args[flagName] = parts[1]
			continue
		}

		// Handle flags without equals sign (--key value)
		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")

			// Check if this is a boolean flag (no value)
			if i+1 >= len(argv) || strings.HasPrefix(argv[i+1], "--") || i+1 == commandIndex {
				args[flagName] = "true"
			} else {
				args[flagName] = argv[i+1]
				i++
			}
		}
	}

	return args
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage() {
	fmt.Printf("Usage:\n")
	fmt.Printf("  %s serve [--config=PATH] [--host=ADDR] [--port=PORT] [--colors=N] [--workers=N] [--debug] [--logfile=PATH]\n", os.Args[0])
	fmt.Printf("  %s extract --image=PATH [--config=PATH] [--colors=N] [--debug] [--logfile=PATH]\n", os.Args[0])
	fmt.Printf("\nParameters:\n")
	fmt.Printf("  --config      : YAML configuration file\n")
	fmt.Printf("  --host        : Listen address (default: 127.0.0.1)\n")
	fmt.Printf("  --port        : Listen port (default: 5000, or $PORT)\n")
	fmt.Printf("  --image       : Image file to analyse\n")
	fmt.Printf("  --colors      : Number of palette colors (default: 5)\n")
	fmt.Printf("  --workers     : Maximum concurrent analyses (default: 3/4 of CPUs)\n")
	fmt.Printf("  --max-body    : Maximum request body in bytes (default: 20971520)\n")
	fmt.Printf("  --tesseract   : Path to the tesseract binary (default: tesseract)\n")
	fmt.Printf("  --lang        : Tesseract language (default: eng)\n")
	fmt.Printf("  --debug       : Enable debug mode (logs detailed information)\n")
	fmt.Printf("  --logfile     : Log file path (default: styleextractor.log in debug mode)\n")
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  %s serve --port=8080 --debug\n", os.Args[0])
	fmt.Printf("  %s extract --image=/path/to/mockup.png --colors=6\n", os.Args[0])
}

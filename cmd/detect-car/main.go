package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hawraz/carsell-flow/config"
	"github.com/hawraz/carsell-flow/internal/draft"
	"github.com/hawraz/carsell-flow/internal/marketplace"
	"github.com/hawraz/carsell-flow/internal/vision"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <image-path>...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_API_KEY  - Detect via Gemini directly\n")
		fmt.Fprintf(os.Stderr, "  CARSELL_API_URL - Detect via the backend vision endpoint\n")
		os.Exit(1)
	}

	config.LoadEnvFile()

	var images []marketplace.ImageUpload
	for _, path := range os.Args[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", path, err)
			os.Exit(1)
		}
		images = append(images, marketplace.ImageUpload{
			FileName: filepath.Base(path),
			Data:     data,
		})
	}

	ctx := context.Background()

	var detector vision.Detector
	switch {
	case os.Getenv("GEMINI_API_KEY") != "":
		gemini, err := vision.NewGeminiDetector(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating Gemini detector: %v\n", err)
			os.Exit(1)
		}
		detector = gemini
	case os.Getenv("CARSELL_API_URL") != "":
		client := marketplace.NewClient(marketplace.ClientOpts{
			BaseURL: os.Getenv("CARSELL_API_URL"),
			Auth:    os.Getenv("CARSELL_API_TOKEN"),
		})
		detector = vision.NewBackendDetector(client)
	default:
		fmt.Fprintf(os.Stderr, "Set GEMINI_API_KEY or CARSELL_API_URL\n")
		os.Exit(1)
	}

	result, err := detector.DetectCar(ctx, images)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error detecting car: %v\n", err)
		os.Exit(1)
	}
	if result == nil || result.Error != "" || result.Make == "" {
		fmt.Println("No car detected")
		if result != nil && result.Error != "" {
			fmt.Printf("  error: %s\n", result.Error)
		}
		return
	}

	fmt.Printf("Make:       %s\n", result.Make)
	fmt.Printf("Model:      %s\n", result.Model)
	fmt.Printf("Confidence: %.2f (%s)\n", result.Confidence, draft.ConfidenceLabel(result.Confidence))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/hawraz/carsell-flow/config"
	"github.com/hawraz/carsell-flow/internal/draft"
	"github.com/hawraz/carsell-flow/internal/flow"
	"github.com/hawraz/carsell-flow/internal/marketplace"
	"github.com/hawraz/carsell-flow/internal/vision"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const logFileName = "carsell-flow.log"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Try to load existing .env file
	config.LoadEnvFile()

	// Check if required config is missing
	if missing := checkRequiredConfig(); len(missing) > 0 {
		if isInteractiveTerminal() {
			// Interactive terminal - run setup wizard
			if !runSetupWizard() {
				waitOnWindows()
				os.Exit(1)
			}
		} else {
			// Non-interactive (scripts, CI) - fail with clear error
			fatalWithWait("missing required config: %s", strings.Join(missing, ", "))
		}
	}

	// Log to file only. Writing to stderr would corrupt the interactive forms.
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		fatalWithWait("failed to open log file: %v", err)
	}
	defer logFile.Close()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: logFile, NoColor: true})

	apiURL := os.Getenv("CARSELL_API_URL")
	if apiURL == "" {
		fatalWithWait("CARSELL_API_URL is not set")
	}

	// Phone encryption passphrase (required)
	phoneKey := os.Getenv("CARSELL_PHONE_KEY")
	if phoneKey == "" {
		fatalWithWait("CARSELL_PHONE_KEY is not set")
	}

	// Database path (optional, defaults to drafts.db)
	dbPath := os.Getenv("CARSELL_DB_PATH")
	if dbPath == "" {
		dbPath = "drafts.db"
	}

	// Seller profile key for draft persistence (optional)
	profile := os.Getenv("CARSELL_PROFILE")
	if profile == "" {
		profile = "default"
	}

	// Edit mode: patch an existing listing instead of creating a new one
	var editListingID int64
	if s := os.Getenv("CARSELL_EDIT_LISTING"); s != "" {
		editListingID, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			fatalWithWait("CARSELL_EDIT_LISTING must be a valid listing id: %v", err)
		}
	}

	// Derive encryption key from passphrase
	encryptionKey, err := draft.DeriveKey(phoneKey)
	if err != nil {
		fatalWithWait("failed to derive encryption key: %v", err)
	}

	// Initialize draft store
	store, err := draft.NewSQLiteStore(dbPath, encryptionKey)
	if err != nil {
		fatalWithWait("failed to initialize draft store: %v", err)
	}
	defer store.Close()
	log.Info().Str("dbPath", dbPath).Str("profile", profile).Msg("draft store initialized")

	client := marketplace.NewClient(marketplace.ClientOpts{
		BaseURL: apiURL,
		Auth:    os.Getenv("CARSELL_API_TOKEN"),
	})

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Detection runs through the backend vision endpoint unless a Gemini key
	// is configured, in which case photos are analyzed directly.
	var detector vision.Detector
	if os.Getenv("GEMINI_API_KEY") != "" {
		gemini, err := vision.NewGeminiDetector(ctx)
		if err != nil {
			fatalWithWait("failed to initialize gemini detector: %v", err)
		}
		detector = gemini
		log.Info().Msg("using gemini car detection")
	} else {
		detector = vision.NewBackendDetector(client)
	}

	previewDir, err := os.MkdirTemp("", "carsell-previews-")
	if err != nil {
		fatalWithWait("failed to create preview directory: %v", err)
	}
	defer os.RemoveAll(previewDir)

	d := draft.New(store, profile)
	f := flow.New(flow.Config{
		Draft:         d,
		Service:       client,
		Detector:      detector,
		Store:         store,
		Profile:       profile,
		Notifier:      flow.NewConsoleNotifier(os.Stdout),
		PreviewDir:    previewDir,
		EditListingID: editListingID,
	})

	if editListingID != 0 {
		if err := f.LoadEditListing(ctx); err != nil {
			fatalWithWait("failed to load listing %d: %v", editListingID, err)
		}
	}

	if err := runFlow(ctx, f); err != nil {
		if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, context.Canceled) {
			fmt.Println("\nCancelled. Your draft is saved locally and will resume next time.")
			log.Info().Msg("flow cancelled")
			return
		}
		fatalWithWait("%v", err)
	}

	log.Info().Msg("flow complete")
}

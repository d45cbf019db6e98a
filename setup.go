package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/hawraz/carsell-flow/config"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// getConfigDir returns the application's config directory path.
// Creates the directory if it doesn't exist.
func getConfigDir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	configDir := filepath.Join(configBase, config.AppName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// getConfigFilePath returns the full path to the config file.
func getConfigFilePath() (string, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, config.EnvFileName), nil
}

// requiredEnvVars lists all environment variables that must be set before
// the sell flow can run.
var requiredEnvVars = []string{"CARSELL_API_URL", "CARSELL_PHONE_KEY"}

// checkRequiredConfig checks if all required environment variables are set.
// Returns the names of any missing variables.
func checkRequiredConfig() []string {
	var missing []string
	for _, v := range requiredEnvVars {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// isInteractiveTerminal returns true if both stdin and stdout are TTYs.
// This is used to determine if we can run the interactive setup wizard.
func isInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// runSetupWizard runs an interactive wizard to collect required configuration.
// Returns true if setup was successful and the flow should continue starting.
func runSetupWizard() bool {
	// Header style
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	fmt.Println()
	fmt.Println(titleStyle.Render("🚗 Carsell Flow - First-time Setup"))
	fmt.Println()

	var apiURL, apiToken string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Marketplace API URL").
				Description("Base URL of the marketplace backend, e.g. https://api.example.com").
				Value(&apiURL).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("API URL is required")
					}
					return validateAPIBaseURL(s)
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("API Token").
				Description("Bearer token for authenticated endpoints (leave empty if the API is open)").
				Value(&apiToken),
		),
	).WithTheme(huh.ThemeBase16())

	err := form.Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\nSetup cancelled.")
			return false
		}
		fmt.Printf("\nError: %v\n", err)
		return false
	}

	// Generate the phone encryption passphrase automatically
	phoneKey := generatePhoneKey()

	// Write configuration to .env file
	cfg := map[string]string{
		"CARSELL_API_URL":   strings.TrimRight(apiURL, "/"),
		"CARSELL_API_TOKEN": apiToken,
		"CARSELL_PHONE_KEY": phoneKey,
	}

	configPath, err := writeEnvFile(cfg)
	if err != nil {
		fmt.Printf("\nError saving configuration: %v\n", err)
		waitOnWindows()
		return false
	}

	// Set values in current process
	for k, v := range cfg {
		os.Setenv(k, v)
	}

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	pathStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	fmt.Println()
	fmt.Println(successStyle.Render("✓ Configuration saved"))
	fmt.Println(pathStyle.Render("  " + configPath))
	fmt.Println()

	return true
}

func generatePhoneKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based if crypto/rand fails (unlikely)
		return fmt.Sprintf("carsell-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}

// validateAPIBaseURL validates the backend URL by fetching the public car
// makes endpoint, which is lightweight and needs no auth.
func validateAPIBaseURL(base string) error {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("must be a full URL, e.g. https://api.example.com")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reqURL := strings.TrimRight(base, "/") + "/api/makes"
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.New("connection timed out - check your internet")
		}
		return errors.New("connection failed - check the URL and your internet")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("backend error (HTTP %d)", resp.StatusCode)
	}
	if resp.StatusCode == 404 {
		return errors.New("URL reachable but not a marketplace API (no /api/makes)")
	}

	return nil
}

// writeEnvFile writes the configuration to the config file.
// Uses restrictive permissions (0600) since the file contains secrets.
// Returns the path where the config was written.
func writeEnvFile(cfg map[string]string) (string, error) {
	configPath, err := getConfigFilePath()
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	// Write in a consistent order, quoting values to handle special characters
	order := []string{"CARSELL_API_URL", "CARSELL_API_TOKEN", "CARSELL_PHONE_KEY"}
	for _, key := range order {
		if val, ok := cfg[key]; ok && val != "" {
			if _, err := fmt.Fprintf(f, "%s=%q\n", key, val); err != nil {
				return "", fmt.Errorf("failed to write %s: %w", key, err)
			}
		}
	}

	return configPath, nil
}

// waitOnWindows pauses execution on Windows so users can see error messages
// before the console window closes.
func waitOnWindows() {
	if runtime.GOOS == "windows" {
		fmt.Println()
		fmt.Println("Press Enter to exit...")
		fmt.Scanln()
	}
}

// fatalWithWait logs a fatal error and waits on Windows before exiting.
func fatalWithWait(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Error().Msg(msg)
	fmt.Fprintln(os.Stderr, msg)
	waitOnWindows()
	os.Exit(1)
}

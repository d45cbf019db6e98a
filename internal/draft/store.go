package draft

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hawraz/carsell-flow/internal/marketplace"
	_ "modernc.org/sqlite"
)

// Session value keys mirrored by individual steps for quick reads without
// going through the container. Mirrors the browser frontend's
// sessionStorage layout.
const (
	KeyLocation      = "sell_location"
	KeyListingID     = "sell_listing_id"
	KeyEditListingID = "edit_listing_id"
	KeyImages        = "sell_images"
	KeyCarDetails    = "sell_car_details"
	KeyContact       = "sell_contact"
)

// PersistedDraft is the durable subset of a sell draft. Local images are
// deliberately absent: they hold raw file data and never survive
// serialization.
type PersistedDraft struct {
	DraftID        string
	ListingID      int64 // 0 means no server-side listing yet
	UploadedImages []marketplace.ListingImage
	AIDetection    *AIDetection
	Location       *marketplace.Location
	Phone          string
	CarDetails     map[string]any
	LastUpdated    time.Time
}

// Store defines the interface for draft persistence. Drafts are keyed by
// profile so multiple sell flows can share one database file.
type Store interface {
	Load(profile string) (*PersistedDraft, error)
	Save(profile string, d *PersistedDraft) error
	Delete(profile string) error
	Close() error

	// Session value methods (step-scoped mirrors)
	GetValue(profile, key string) (string, error)
	SetValue(profile, key, value string) error
	DeleteValue(profile, key string) error
	ClearValues(profile string) error
}

// SQLiteStore implements Store using SQLite with the phone number
// encrypted at rest.
type SQLiteStore struct {
	db            *sql.DB
	encryptionKey []byte
	mu            sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based draft store.
// The dbPath is the path to the SQLite database file.
// The encryptionKey is used to encrypt/decrypt the stored phone number.
func NewSQLiteStore(dbPath string, encryptionKey []byte) (*SQLiteStore, error) {
	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set file permissions (only works on creation)
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		// Ignore error if file doesn't exist yet
	}

	store := &SQLiteStore{
		db:            db,
		encryptionKey: encryptionKey,
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	draftsQuery := `
	CREATE TABLE IF NOT EXISTS drafts (
		profile TEXT PRIMARY KEY,
		draft_id TEXT NOT NULL,
		listing_id INTEGER NOT NULL DEFAULT 0,
		uploaded_images TEXT NOT NULL,
		ai_detection TEXT,
		location TEXT,
		encrypted_phone TEXT,
		car_details TEXT,
		last_updated DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(draftsQuery); err != nil {
		return fmt.Errorf("failed to create drafts table: %w", err)
	}

	valuesQuery := `
	CREATE TABLE IF NOT EXISTS session_values (
		profile TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (profile, key)
	);
	`
	if _, err := s.db.Exec(valuesQuery); err != nil {
		return fmt.Errorf("failed to create session_values table: %w", err)
	}

	return nil
}

// Load retrieves the persisted draft for a profile.
// Returns nil, nil if no draft exists.
func (s *SQLiteStore) Load(profile string) (*PersistedDraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var draftID, uploadedImages string
	var aiDetection, location, encryptedPhone, carDetails sql.NullString
	var listingID int64
	var lastUpdated time.Time

	err := s.db.QueryRow(
		"SELECT draft_id, listing_id, uploaded_images, ai_detection, location, encrypted_phone, car_details, last_updated FROM drafts WHERE profile = ?",
		profile,
	).Scan(&draftID, &listingID, &uploadedImages, &aiDetection, &location, &encryptedPhone, &carDetails, &lastUpdated)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query draft: %w", err)
	}

	d := &PersistedDraft{
		DraftID:     draftID,
		ListingID:   listingID,
		LastUpdated: lastUpdated,
	}

	if err := json.Unmarshal([]byte(uploadedImages), &d.UploadedImages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal uploaded images: %w", err)
	}
	if aiDetection.Valid && aiDetection.String != "" {
		if err := json.Unmarshal([]byte(aiDetection.String), &d.AIDetection); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ai detection: %w", err)
		}
	}
	if location.Valid && location.String != "" {
		if err := json.Unmarshal([]byte(location.String), &d.Location); err != nil {
			return nil, fmt.Errorf("failed to unmarshal location: %w", err)
		}
	}
	if carDetails.Valid && carDetails.String != "" {
		if err := json.Unmarshal([]byte(carDetails.String), &d.CarDetails); err != nil {
			return nil, fmt.Errorf("failed to unmarshal car details: %w", err)
		}
	}
	if encryptedPhone.Valid && encryptedPhone.String != "" {
		phone, err := Decrypt(encryptedPhone.String, s.encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt phone: %w", err)
		}
		d.Phone = string(phone)
	}

	return d, nil
}

// Save stores or updates the persisted draft for a profile.
func (s *SQLiteStore) Save(profile string, d *PersistedDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uploadedImages, err := json.Marshal(d.UploadedImages)
	if err != nil {
		return fmt.Errorf("failed to marshal uploaded images: %w", err)
	}

	marshalOrEmpty := func(v any) (string, error) {
		if v == nil {
			return "", nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	var aiDetection, location, carDetails string
	if d.AIDetection != nil {
		if aiDetection, err = marshalOrEmpty(d.AIDetection); err != nil {
			return fmt.Errorf("failed to marshal ai detection: %w", err)
		}
	}
	if d.Location != nil {
		if location, err = marshalOrEmpty(d.Location); err != nil {
			return fmt.Errorf("failed to marshal location: %w", err)
		}
	}
	if d.CarDetails != nil {
		if carDetails, err = marshalOrEmpty(d.CarDetails); err != nil {
			return fmt.Errorf("failed to marshal car details: %w", err)
		}
	}

	var encryptedPhone string
	if d.Phone != "" {
		encryptedPhone, err = Encrypt([]byte(d.Phone), s.encryptionKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt phone: %w", err)
		}
	}

	d.LastUpdated = time.Now()

	_, err = s.db.Exec(`
		INSERT INTO drafts (profile, draft_id, listing_id, uploaded_images, ai_detection, location, encrypted_phone, car_details, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile) DO UPDATE SET
			draft_id = excluded.draft_id,
			listing_id = excluded.listing_id,
			uploaded_images = excluded.uploaded_images,
			ai_detection = excluded.ai_detection,
			location = excluded.location,
			encrypted_phone = excluded.encrypted_phone,
			car_details = excluded.car_details,
			last_updated = excluded.last_updated
	`, profile, d.DraftID, d.ListingID, string(uploadedImages), aiDetection, location, encryptedPhone, carDetails, d.LastUpdated)

	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}

	return nil
}

// Delete removes the persisted draft for a profile.
func (s *SQLiteStore) Delete(profile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM drafts WHERE profile = ?", profile)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	return nil
}

// GetValue retrieves a session value.
// Returns empty string if not set.
func (s *SQLiteStore) GetValue(profile, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow(
		"SELECT value FROM session_values WHERE profile = ? AND key = ?",
		profile, key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query session value: %w", err)
	}

	return value, nil
}

// SetValue sets a session value.
func (s *SQLiteStore) SetValue(profile, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO session_values (profile, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(profile, key) DO UPDATE SET
			value = excluded.value
	`, profile, key, value)

	if err != nil {
		return fmt.Errorf("failed to set session value: %w", err)
	}
	return nil
}

// DeleteValue removes a single session value.
func (s *SQLiteStore) DeleteValue(profile, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM session_values WHERE profile = ? AND key = ?", profile, key)
	if err != nil {
		return fmt.Errorf("failed to delete session value: %w", err)
	}
	return nil
}

// ClearValues removes all session values for a profile.
func (s *SQLiteStore) ClearValues(profile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM session_values WHERE profile = ?", profile)
	if err != nil {
		return fmt.Errorf("failed to clear session values: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

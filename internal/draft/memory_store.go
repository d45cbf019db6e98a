package draft

import "sync"

// MemoryStore is an in-memory Store. Used when persistence is disabled and
// as a stand-in store in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]*PersistedDraft
	values map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drafts: make(map[string]*PersistedDraft),
		values: make(map[string]map[string]string),
	}
}

// Load returns the stored draft for the profile, or nil if there is none.
func (s *MemoryStore) Load(profile string) (*PersistedDraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[profile]
	if !ok {
		return nil, nil
	}
	copied := *d
	return &copied, nil
}

func (s *MemoryStore) Save(profile string, d *PersistedDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *d
	s.drafts[profile] = &copied
	return nil
}

func (s *MemoryStore) Delete(profile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, profile)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// GetValue returns the session value, or empty string if not set.
func (s *MemoryStore) GetValue(profile, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[profile][key], nil
}

func (s *MemoryStore) SetValue(profile, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[profile] == nil {
		s.values[profile] = make(map[string]string)
	}
	s.values[profile][key] = value
	return nil
}

func (s *MemoryStore) DeleteValue(profile, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values[profile], key)
	return nil
}

func (s *MemoryStore) ClearValues(profile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, profile)
	return nil
}

var _ Store = (*MemoryStore)(nil)

package marketplace

import (
	"context"
	"sync"
)

// MockListingService is a test double for ListingService.
// Each method can be overridden with a custom function.
// If not overridden, methods return sensible defaults.
// Thread-safe for use in concurrent tests.
type MockListingService struct {
	CreateDraftListingFunc  func(ctx context.Context, req CreateDraftRequest) (int64, error)
	UploadListingImagesFunc func(ctx context.Context, listingID int64, images []ImageUpload) (*UploadImagesResponse, error)
	DeleteListingImageFunc  func(ctx context.Context, listingID, imageID int64) error
	DetectCarVisionFunc     func(ctx context.Context, images []ImageUpload) (*VisionResult, error)
	GetListingFunc          func(ctx context.Context, listingID int64) (*Listing, error)
	UpdateDraftListingFunc  func(ctx context.Context, listingID int64, fields map[string]any) error
	UpdateUserOverridesFunc func(ctx context.Context, listingID int64, overrides UserOverrides) error
	PublishListingFunc      func(ctx context.Context, listingID int64) error
	GetMakesFunc            func(ctx context.Context) ([]string, error)
	GetModelsFunc           func(ctx context.Context, makeName string) ([]string, error)

	mu sync.Mutex

	// Calls tracks all method invocations for assertions
	Calls []MockCall
}

// MockCall records a method call for test assertions.
type MockCall struct {
	Method string
	Args   []any
}

// Ensure MockListingService implements ListingService
var _ ListingService = (*MockListingService)(nil)

func (m *MockListingService) CreateDraftListing(ctx context.Context, req CreateDraftRequest) (int64, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "CreateDraftListing", Args: []any{req}})
	fn := m.CreateDraftListingFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return 1, nil
}

func (m *MockListingService) UploadListingImages(ctx context.Context, listingID int64, images []ImageUpload) (*UploadImagesResponse, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "UploadListingImages", Args: []any{listingID, len(images)}})
	fn := m.UploadListingImagesFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, listingID, images)
	}
	ids := make([]int64, len(images))
	urls := make([]string, len(images))
	for i := range images {
		ids[i] = int64(i + 1)
		urls[i] = "/uploads/mock.jpg"
	}
	return &UploadImagesResponse{Success: true, ImageIDs: ids, ImageURLs: urls}, nil
}

func (m *MockListingService) DeleteListingImage(ctx context.Context, listingID, imageID int64) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "DeleteListingImage", Args: []any{listingID, imageID}})
	fn := m.DeleteListingImageFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, listingID, imageID)
	}
	return nil
}

func (m *MockListingService) DetectCarVision(ctx context.Context, images []ImageUpload) (*VisionResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "DetectCarVision", Args: []any{len(images)}})
	fn := m.DetectCarVisionFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, images)
	}
	return &VisionResult{Make: "Toyota", Model: "Corolla", Confidence: 0.9}, nil
}

func (m *MockListingService) GetListing(ctx context.Context, listingID int64) (*Listing, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "GetListing", Args: []any{listingID}})
	fn := m.GetListingFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, listingID)
	}
	return &Listing{ID: listingID}, nil
}

func (m *MockListingService) UpdateDraftListing(ctx context.Context, listingID int64, fields map[string]any) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "UpdateDraftListing", Args: []any{listingID, fields}})
	fn := m.UpdateDraftListingFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, listingID, fields)
	}
	return nil
}

func (m *MockListingService) UpdateUserOverrides(ctx context.Context, listingID int64, overrides UserOverrides) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "UpdateUserOverrides", Args: []any{listingID, overrides}})
	fn := m.UpdateUserOverridesFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, listingID, overrides)
	}
	return nil
}

func (m *MockListingService) PublishListing(ctx context.Context, listingID int64) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "PublishListing", Args: []any{listingID}})
	fn := m.PublishListingFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, listingID)
	}
	return nil
}

func (m *MockListingService) GetMakes(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "GetMakes"})
	fn := m.GetMakesFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return []string{"Toyota", "Honda", "Kia"}, nil
}

func (m *MockListingService) GetModels(ctx context.Context, makeName string) ([]string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "GetModels", Args: []any{makeName}})
	fn := m.GetModelsFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, makeName)
	}
	return []string{"Corolla", "Camry", "Yaris"}, nil
}

// Reset clears all recorded calls.
func (m *MockListingService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// CallCount returns the number of times a method was called.
func (m *MockListingService) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, call := range m.Calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

// WasCalled returns true if the method was called at least once.
func (m *MockListingService) WasCalled(method string) bool {
	return m.CallCount(method) > 0
}

// LastCallArgs returns the arguments from the last call to the specified method.
func (m *MockListingService) LastCallArgs(method string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == method {
			return m.Calls[i].Args
		}
	}
	return nil
}

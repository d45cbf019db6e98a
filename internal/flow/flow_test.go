package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hawraz/carsell-flow/internal/draft"
	"github.com/hawraz/carsell-flow/internal/marketplace"
	"github.com/hawraz/carsell-flow/internal/vision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (c *captureNotifier) Notify(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, text)
}

func (c *captureNotifier) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}

func newTestFlow(t *testing.T, editListingID int64) (*Flow, *marketplace.MockListingService, *draft.MemoryStore, *captureNotifier) {
	t.Helper()
	store := draft.NewMemoryStore()
	mock := &marketplace.MockListingService{}
	notifier := &captureNotifier{}
	f := New(Config{
		Draft:         draft.New(store, "test"),
		Service:       mock,
		Detector:      vision.NewBackendDetector(mock),
		Store:         store,
		Profile:       "test",
		Notifier:      notifier,
		EditListingID: editListingID,
	})
	return f, mock, store, notifier
}

func addLocalImages(f *Flow, n int) {
	for i := 0; i < n; i++ {
		f.draft.AddImage(draft.LocalImage{
			ID:       fmt.Sprintf("img-%d", i),
			FileName: fmt.Sprintf("car-%d.jpg", i),
			Data:     []byte("fake image data"),
		})
	}
}

func TestLoadEditListing(t *testing.T) {
	t.Run("overlays location and uploaded images", func(t *testing.T) {
		f, mock, _, _ := newTestFlow(t, 77)
		mock.GetListingFunc = func(ctx context.Context, listingID int64) (*marketplace.Listing, error) {
			return &marketplace.Listing{
				ID:              listingID,
				LocationCountry: "Iraq",
				LocationState:   "Erbil",
				LocationCity:    "Erbil",
				Images: []marketplace.ListingImage{
					{ID: 1, URL: "/uploads/1.jpg"},
					{ID: 2, URL: "/uploads/2.jpg"},
					{ID: 3, URL: "/uploads/3.jpg"},
					{ID: 4, URL: "/uploads/4.jpg"},
				},
			}, nil
		}

		require.NoError(t, f.LoadEditListing(context.Background()))

		s := f.Review()
		require.NotNil(t, s.Location)
		assert.Equal(t, "Iraq", s.Location.Country)
		assert.Equal(t, "Erbil", s.Location.City)
		require.Len(t, s.Images, 4)

		// The grid sees the listing's photos, so the photos step advances
		// without re-uploading.
		assert.True(t, f.Grid().CanAdvance())
		require.NoError(t, f.SubmitPhotos(context.Background()))
		assert.Equal(t, 0, mock.CallCount("UploadListingImages"))
		assert.Equal(t, 0, mock.CallCount("DetectCarVision"))
	})

	t.Run("keeps draft fields the listing does not carry", func(t *testing.T) {
		f, mock, _, _ := newTestFlow(t, 77)
		f.draft.SetLocation(&marketplace.Location{Country: "Iraq", State: "Baghdad", City: "Baghdad"})
		mock.GetListingFunc = func(ctx context.Context, listingID int64) (*marketplace.Listing, error) {
			return &marketplace.Listing{ID: listingID}, nil
		}

		require.NoError(t, f.LoadEditListing(context.Background()))

		s := f.Review()
		require.NotNil(t, s.Location)
		assert.Equal(t, "Baghdad", s.Location.City)
	})

	t.Run("fetch failure is returned", func(t *testing.T) {
		f, mock, _, _ := newTestFlow(t, 77)
		mock.GetListingFunc = func(ctx context.Context, listingID int64) (*marketplace.Listing, error) {
			return nil, errors.New("not found")
		}

		assert.Error(t, f.LoadEditListing(context.Background()))
	})

	t.Run("no-op outside edit mode", func(t *testing.T) {
		f, mock, _, _ := newTestFlow(t, 0)

		require.NoError(t, f.LoadEditListing(context.Background()))
		assert.Equal(t, 0, mock.CallCount("GetListing"))
	})
}

func TestSubmitLocation(t *testing.T) {
	t.Run("requires all three fields", func(t *testing.T) {
		f, _, _, _ := newTestFlow(t, 0)

		assert.Error(t, f.SubmitLocation("Iraq", "", "Erbil"))
		assert.Error(t, f.SubmitLocation("", "Erbil", "Erbil"))
		assert.NoError(t, f.SubmitLocation("Iraq", "Erbil", "Erbil"))
	})

	t.Run("resets a previously created listing", func(t *testing.T) {
		f, _, store, _ := newTestFlow(t, 0)
		f.draft.SetListingID(99)
		f.draft.SetUploadedImages([]marketplace.ListingImage{{ID: 1, URL: "u"}})

		require.NoError(t, f.SubmitLocation("Iraq", "Baghdad", "Baghdad"))

		assert.Zero(t, f.draft.ListingID())
		assert.Empty(t, f.draft.UploadedImages())
		v, err := store.GetValue("test", draft.KeyListingID)
		require.NoError(t, err)
		assert.Empty(t, v)
	})

	t.Run("edit mode keeps the existing listing", func(t *testing.T) {
		f, _, _, _ := newTestFlow(t, 77)

		require.NoError(t, f.SubmitLocation("Iraq", "Erbil", "Erbil"))

		assert.Equal(t, int64(77), f.draft.ListingID())
	})
}

func TestEnsureListing(t *testing.T) {
	t.Run("creates the draft listing at most once", func(t *testing.T) {
		f, mock, store, _ := newTestFlow(t, 0)
		require.NoError(t, f.SubmitLocation("Iraq", "Erbil", "Erbil"))

		for i := 0; i < 3; i++ {
			require.NoError(t, f.EnsureListing(context.Background()))
		}

		assert.Equal(t, 1, mock.CallCount("CreateDraftListing"))
		assert.Equal(t, int64(1), f.draft.ListingID())
		v, err := store.GetValue("test", draft.KeyListingID)
		require.NoError(t, err)
		assert.Equal(t, "1", v)
	})

	t.Run("retries after a failed creation", func(t *testing.T) {
		f, mock, _, _ := newTestFlow(t, 0)
		require.NoError(t, f.SubmitLocation("Iraq", "Erbil", "Erbil"))

		mock.CreateDraftListingFunc = func(ctx context.Context, req marketplace.CreateDraftRequest) (int64, error) {
			return 0, errors.New("server unavailable")
		}
		require.Error(t, f.EnsureListing(context.Background()))
		assert.Zero(t, f.draft.ListingID())

		mock.CreateDraftListingFunc = nil
		require.NoError(t, f.EnsureListing(context.Background()))
		assert.Equal(t, 2, mock.CallCount("CreateDraftListing"))
		assert.Equal(t, int64(1), f.draft.ListingID())
	})

	t.Run("requires a location", func(t *testing.T) {
		f, mock, _, _ := newTestFlow(t, 0)

		require.Error(t, f.EnsureListing(context.Background()))
		assert.Equal(t, 0, mock.CallCount("CreateDraftListing"))
	})

	t.Run("passes the selected location", func(t *testing.T) {
		f, mock, _, _ := newTestFlow(t, 0)
		require.NoError(t, f.SubmitLocation("Iraq", "Basra", "Basra"))
		require.NoError(t, f.EnsureListing(context.Background()))

		args := mock.LastCallArgs("CreateDraftListing")
		require.NotNil(t, args)
		req := args[0].(marketplace.CreateDraftRequest)
		assert.Equal(t, "Iraq", req.LocationCountry)
		assert.Equal(t, "Basra", req.LocationState)
	})
}

func TestSubmitPhotos(t *testing.T) {
	t.Run("rejects too few images", func(t *testing.T) {
		f, _, _, _ := newTestFlow(t, 0)
		f.draft.SetListingID(1)
		addLocalImages(f, draft.MinImages-1)

		err := f.SubmitPhotos(context.Background())

		require.Error(t, err)
		assert.Equal(t, MsgMinImages, err.Error())
	})

	t.Run("requires the draft listing", func(t *testing.T) {
		f, _, _, _ := newTestFlow(t, 0)
		addLocalImages(f, draft.MinImages)

		err := f.SubmitPhotos(context.Background())

		require.Error(t, err)
		assert.Equal(t, MsgDraftNotReady, err.Error())
	})

	t.Run("skips upload when images are already uploaded", func(t *testing.T) {
		f, mock, _, _ := newTestFlow(t, 0)
		f.draft.SetListingID(1)
		f.draft.SetUploadedImages([]marketplace.ListingImage{
			{ID: 1, URL: "u1"}, {ID: 2, URL: "u2"}, {ID: 3, URL: "u3"}, {ID: 4, URL: "u4"},
		})

		require.NoError(t, f.SubmitPhotos(context.Background()))

		assert.Equal(t, 0, mock.CallCount("UploadListingImages"))
		assert.Equal(t, 0, mock.CallCount("DetectCarVision"))
	})
}

func TestRecordOverride(t *testing.T) {
	t.Run("saves overrides for prefilled fields", func(t *testing.T) {
		f, mock, _, _ := newTestFlow(t, 0)
		f.draft.SetListingID(1)
		f.draft.SetAIDetection(&draft.AIDetection{Make: "Toyota", Model: "Corolla", Confidence: 0.9, ConfidenceLabel: draft.ConfidenceHigh})

		form, err := f.LoadDetailsForm(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Toyota", form.Values["make"])
		assert.True(t, form.AIDetected)

		f.RecordOverride(context.Background(), "make", "Honda")

		require.Equal(t, 1, mock.CallCount("UpdateUserOverrides"))
		args := mock.LastCallArgs("UpdateUserOverrides")
		overrides := args[1].(marketplace.UserOverrides)
		assert.Equal(t, "Honda", overrides.Make)
	})

	t.Run("ignores fields the seller typed from scratch", func(t *testing.T) {
		f, mock, _, _ := newTestFlow(t, 0)
		f.draft.SetListingID(1)
		f.draft.SetAIDetection(&draft.AIDetection{Make: "Toyota", Model: "Corolla", Confidence: 0.9, ConfidenceLabel: draft.ConfidenceHigh})
		_, err := f.LoadDetailsForm(context.Background())
		require.NoError(t, err)

		f.RecordOverride(context.Background(), "color", "Red")
		f.RecordOverride(context.Background(), "make", "Toyota")

		assert.Equal(t, 0, mock.CallCount("UpdateUserOverrides"))
	})
}

func TestLoadDetailsForm(t *testing.T) {
	t.Run("prefills from the listing when there is no detection", func(t *testing.T) {
		f, mock, _, _ := newTestFlow(t, 0)
		f.draft.SetListingID(5)
		mock.GetListingFunc = func(ctx context.Context, listingID int64) (*marketplace.Listing, error) {
			return &marketplace.Listing{ID: listingID, Make: "Kia", Model: "Sportage", Year: 2021, Color: "White"}, nil
		}

		form, err := f.LoadDetailsForm(context.Background())

		require.NoError(t, err)
		assert.False(t, form.AIDetected)
		assert.Equal(t, "Kia", form.Values["make"])
		assert.Equal(t, "2021", form.Values["year"])
		assert.Equal(t, 1, mock.CallCount("GetModels"))
	})

	t.Run("degrades to an empty form when fetches fail", func(t *testing.T) {
		f, mock, _, _ := newTestFlow(t, 0)
		mock.GetMakesFunc = func(ctx context.Context) ([]string, error) {
			return nil, errors.New("server unavailable")
		}

		form, err := f.LoadDetailsForm(context.Background())

		require.NoError(t, err)
		assert.Empty(t, form.Makes)
		assert.Empty(t, form.Values)
	})
}

func TestPublishValidation(t *testing.T) {
	publishableFlow := func(t *testing.T) (*Flow, *marketplace.MockListingService) {
		f, mock, _, _ := newTestFlow(t, 0)
		require.NoError(t, f.SubmitLocation("Iraq", "Erbil", "Erbil"))
		require.NoError(t, f.EnsureListing(context.Background()))
		require.NoError(t, f.SubmitDetails(context.Background(), map[string]any{
			"make": "Toyota", "model": "Corolla", "year": "2020",
		}))
		require.NoError(t, f.SubmitContact(context.Background(), Contact{Phone: "07501234567", PhoneCountryCode: "+964"}))
		return f, mock
	}

	t.Run("requires agreement", func(t *testing.T) {
		f, mock := publishableFlow(t)

		err := f.Publish(context.Background(), Agreement{Terms: true})

		require.Error(t, err)
		assert.Equal(t, MsgAgreementRequired, err.Error())
		assert.Equal(t, 0, mock.CallCount("PublishListing"))
	})

	t.Run("requires car details", func(t *testing.T) {
		f, mock, _, _ := newTestFlow(t, 0)
		require.NoError(t, f.SubmitLocation("Iraq", "Erbil", "Erbil"))
		require.NoError(t, f.EnsureListing(context.Background()))

		err := f.Publish(context.Background(), Agreement{Terms: true, Accurate: true})

		require.Error(t, err)
		assert.Equal(t, MsgMissingCarDetails, err.Error())
		assert.Equal(t, 0, mock.CallCount("PublishListing"))
	})

	t.Run("requires contact info", func(t *testing.T) {
		f, _, _, _ := newTestFlow(t, 0)
		require.NoError(t, f.SubmitLocation("Iraq", "Erbil", "Erbil"))
		require.NoError(t, f.EnsureListing(context.Background()))
		require.NoError(t, f.SubmitDetails(context.Background(), map[string]any{
			"make": "Toyota", "model": "Corolla", "year": "2020",
		}))

		err := f.Publish(context.Background(), Agreement{Terms: true, Accurate: true})

		require.Error(t, err)
		assert.Equal(t, MsgMissingContactInfo, err.Error())
	})

	t.Run("publishes and clears the draft", func(t *testing.T) {
		f, mock := publishableFlow(t)
		draftID := f.draft.EnsureDraftID()

		require.NoError(t, f.Publish(context.Background(), Agreement{Terms: true, Accurate: true}))

		assert.Equal(t, 1, mock.CallCount("PublishListing"))
		assert.Zero(t, f.draft.ListingID())
		assert.Nil(t, f.draft.Location())
		assert.Equal(t, draftID, f.draft.DraftID())
	})
}

func TestSaveDraft(t *testing.T) {
	f, mock, store, notifier := newTestFlow(t, 0)
	require.NoError(t, f.SubmitLocation("Iraq", "Erbil", "Erbil"))
	require.NoError(t, f.EnsureListing(context.Background()))
	require.NoError(t, f.SubmitDetails(context.Background(), map[string]any{"make": "Toyota", "model": "Corolla"}))
	require.NoError(t, f.SubmitContact(context.Background(), Contact{Phone: "07501234567"}))

	require.NoError(t, f.SaveDraft(context.Background()))

	args := mock.LastCallArgs("UpdateDraftListing")
	require.NotNil(t, args)
	fields := args[1].(map[string]any)
	assert.Equal(t, "Toyota", fields["make"])
	assert.Equal(t, "Iraq", fields["location_country"])
	assert.Equal(t, "07501234567", fields["phone"])

	assert.Zero(t, f.draft.ListingID())
	v, err := store.GetValue("test", draft.KeyContact)
	require.NoError(t, err)
	assert.Empty(t, v)
	assert.Contains(t, notifier.messages(), MsgDraftSaved)
	assert.Equal(t, 0, mock.CallCount("PublishListing"))
}

func TestSellFlowEndToEnd(t *testing.T) {
	t.Run("happy path from location to publish", func(t *testing.T) {
		f, mock, store, notifier := newTestFlow(t, 0)
		ctx := context.Background()

		require.NoError(t, f.SubmitLocation("Iraq", "Erbil", "Erbil"))
		require.NoError(t, f.EnsureListing(ctx))
		addLocalImages(f, 5)

		require.NoError(t, f.SubmitPhotos(ctx))
		assert.Len(t, f.draft.UploadedImages(), 5)
		assert.Empty(t, f.draft.Images())

		form, err := f.LoadDetailsForm(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Toyota", form.Values["make"])
		assert.Equal(t, "Corolla", form.Values["model"])
		assert.Equal(t, draft.ConfidenceHigh, form.ConfidenceLabel)

		require.NoError(t, f.SubmitDetails(ctx, map[string]any{
			"make": form.Values["make"], "model": form.Values["model"], "year": "2020", "price": 15000,
		}))
		require.NoError(t, f.SubmitContact(ctx, Contact{Phone: "07501234567", PhoneCountryCode: "+964", ShowPhoneOnly: true}))
		require.NoError(t, f.Publish(ctx, Agreement{Terms: true, Accurate: true}))

		assert.Equal(t, 1, mock.CallCount("CreateDraftListing"))
		assert.Equal(t, 1, mock.CallCount("UploadListingImages"))
		assert.Equal(t, 1, mock.CallCount("DetectCarVision"))
		assert.Equal(t, 1, mock.CallCount("PublishListing"))
		assert.Contains(t, notifier.messages(), MsgPublished)

		loc, err := store.GetValue("test", draft.KeyLocation)
		require.NoError(t, err)
		assert.Empty(t, loc)
	})

	t.Run("detection failure falls back to manual entry", func(t *testing.T) {
		f, mock, _, notifier := newTestFlow(t, 0)
		ctx := context.Background()
		mock.DetectCarVisionFunc = func(ctx context.Context, images []marketplace.ImageUpload) (*marketplace.VisionResult, error) {
			return &marketplace.VisionResult{Confidence: 0.1}, nil
		}
		mock.GetListingFunc = func(ctx context.Context, listingID int64) (*marketplace.Listing, error) {
			return &marketplace.Listing{ID: listingID}, nil
		}

		require.NoError(t, f.SubmitLocation("Iraq", "Erbil", "Erbil"))
		require.NoError(t, f.EnsureListing(ctx))
		addLocalImages(f, 4)

		require.NoError(t, f.SubmitPhotos(ctx))
		assert.Contains(t, notifier.messages(), vision.ManualEntryMessage)
		assert.Len(t, f.draft.UploadedImages(), 4)
		assert.Nil(t, f.draft.AIDetectionResult())

		form, err := f.LoadDetailsForm(ctx)
		require.NoError(t, err)
		assert.False(t, form.AIDetected)
		assert.Empty(t, form.Values["make"])

		require.NoError(t, f.SubmitDetails(ctx, map[string]any{
			"make": "Nissan", "model": "Altima", "year": "2018",
		}))
		require.NoError(t, f.SubmitContact(ctx, Contact{Phone: "07501234567"}))
		require.NoError(t, f.Publish(ctx, Agreement{Terms: true, Accurate: true}))

		assert.Equal(t, 1, mock.CallCount("PublishListing"))
	})
}

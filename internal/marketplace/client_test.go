package marketplace

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDraftListing(t *testing.T) {
	var req *http.Request
	var body []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req = r
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"listing_id":123,"success":true}`))
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL, Auth: "tok"})
	id, err := client.CreateDraftListing(context.Background(), CreateDraftRequest{
		LocationCountry: "Iraq",
		LocationState:   "Erbil",
		LocationCity:    "Erbil",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(123), id)
	assert.Equal(t, "/api/marketplace/listings/draft", req.URL.Path)
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))

	var sent map[string]string
	require.NoError(t, json.Unmarshal(body, &sent))
	assert.Equal(t, "Iraq", sent["location_country"])
	assert.Equal(t, "Erbil", sent["location_city"])
}

func TestCreateDraftListingServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL})
	_, err := client.CreateDraftListing(context.Background(), CreateDraftRequest{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status: 500")
}

func TestUploadListingImages(t *testing.T) {
	var req *http.Request
	var fileCount int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req = r
		require.NoError(t, r.ParseMultipartForm(32<<20))
		fileCount = len(r.MultipartForm.File["images"])
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"image_ids":[10,11],"image_urls":["/uploads/10.jpg","/uploads/11.jpg"]}`))
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL})
	resp, err := client.UploadListingImages(context.Background(), 5, []ImageUpload{
		{FileName: "front.jpg", Data: []byte("aaa")},
		{FileName: "back.jpg", Data: []byte("bbb")},
	})

	require.NoError(t, err)
	assert.Equal(t, "/api/marketplace/listings/5/images", req.URL.Path)
	assert.Equal(t, 2, fileCount)
	assert.Equal(t, []int64{10, 11}, resp.ImageIDs)
	assert.Equal(t, []string{"/uploads/10.jpg", "/uploads/11.jpg"}, resp.ImageURLs)
}

func TestDeleteListingImage(t *testing.T) {
	var req *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req = r
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL})
	err := client.DeleteListingImage(context.Background(), 5, 10)

	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/api/marketplace/listings/5/images/10", req.URL.Path)
}

func TestDetectCarVision(t *testing.T) {
	var body []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"make":"Toyota","model":"Corolla","confidence":0.82}`))
	}))
	defer ts.Close()

	pngData := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	client := NewClient(ClientOpts{BaseURL: ts.URL})
	res, err := client.DetectCarVision(context.Background(), []ImageUpload{
		{FileName: "front.png", Data: pngData},
		{FileName: "back.jpg", Data: []byte{0xff, 0xd8, 0xff, 0xe0}},
	})

	require.NoError(t, err)
	assert.Equal(t, "Toyota", res.Make)
	assert.Equal(t, 0.82, res.Confidence)

	var sent VisionRequest
	require.NoError(t, json.Unmarshal(body, &sent))
	require.Len(t, sent.Images, 2)
	assert.Equal(t, "image/png", sent.Images[0].MediaType)
	assert.Equal(t, "image/jpeg", sent.Images[1].MediaType)
	assert.NotEmpty(t, sent.Images[0].Data)
}

func TestDetectCarVisionServerErrorIsInBand(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL})
	res, err := client.DetectCarVision(context.Background(), []ImageUpload{
		{FileName: "front.jpg", Data: []byte{0xff, 0xd8, 0xff, 0xe0}},
	})

	// Detection failures come back as an error result, never a Go error,
	// so the pipeline shows the message and falls back to manual entry.
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Contains(t, res.Error, "status: 500")
}

func TestGetListing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/marketplace/listings/7", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7,"make":"Kia","model":"Sportage","year":2021,"phone":"0750","show_phone_to_buyers_only":false,"images":[{"id":1,"url":"/uploads/1.jpg"}]}`))
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL})
	listing, err := client.GetListing(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, "Kia", listing.Make)
	assert.Equal(t, 2021, listing.Year)
	require.NotNil(t, listing.ShowPhoneOnly)
	assert.False(t, *listing.ShowPhoneOnly)
	require.Len(t, listing.Images, 1)
	assert.Equal(t, int64(1), listing.Images[0].ID)
}

func TestUpdateDraftListing(t *testing.T) {
	var req *http.Request
	var body []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req = r
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL})
	err := client.UpdateDraftListing(context.Background(), 7, map[string]any{
		"make": "Kia", "location_city": "Erbil",
	})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "/api/marketplace/listings/7", req.URL.Path)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(body, &sent))
	assert.Equal(t, "Kia", sent["make"])
}

func TestUpdateUserOverrides(t *testing.T) {
	var req *http.Request
	var body []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req = r
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL})
	err := client.UpdateUserOverrides(context.Background(), 7, UserOverrides{Make: "Honda"})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/api/marketplace/listings/7/user-overrides", req.URL.Path)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(body, &sent))
	assert.Equal(t, true, sent["user_overrode"])
	selected := sent["selected_by_user"].(map[string]any)
	assert.Equal(t, "Honda", selected["make"])
}

func TestPublishListing(t *testing.T) {
	var req *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req = r
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL})
	err := client.PublishListing(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/api/marketplace/listings/7/publish", req.URL.Path)
}

func TestGetMakes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/makes", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`["Toyota","Honda","Kia"]`))
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL})
	makes, err := client.GetMakes(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"Toyota", "Honda", "Kia"}, makes)
}

func TestGetModels(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/makes/Toyota/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`["Corolla","Camry"]`))
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL})
	models, err := client.GetModels(context.Background(), "Toyota")

	require.NoError(t, err)
	assert.Equal(t, []string{"Corolla", "Camry"}, models)
}

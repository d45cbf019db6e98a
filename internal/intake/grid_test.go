package intake

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hawraz/carsell-flow/internal/draft"
	"github.com/hawraz/carsell-flow/internal/marketplace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	jpegBytes = []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0, 0, 0, 0, 0, 0, 0}
	webpBytes = append([]byte("RIFF\x00\x00\x00\x00WEBPVP8 "), 0, 0, 0, 0)
	mp4Bytes  = []byte{0, 0, 0, 0x14, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0, 0, 0, 0, 'm', 'p', '4', '2'}
	movBytes  = []byte{0, 0, 0, 0x14, 'f', 't', 'y', 'p', 'q', 't', ' ', ' ', 0, 0, 0, 0}
)

func newTestGrid(t *testing.T) (*Grid, *draft.Draft) {
	t.Helper()
	d := draft.New(nil, "test")
	return NewGrid(d, ""), d
}

func pngFiles(n int) []File {
	files := make([]File, n)
	for i := range files {
		files[i] = File{Name: fmt.Sprintf("car-%d.png", i), Data: pngBytes}
	}
	return files
}

func TestGridAdd(t *testing.T) {
	t.Run("accepts supported image and video types", func(t *testing.T) {
		g, d := newTestGrid(t)

		rejections := g.Add([]File{
			{Name: "a.png", Data: pngBytes},
			{Name: "b.jpg", Data: jpegBytes},
			{Name: "c.webp", Data: webpBytes},
			{Name: "d.mp4", Data: mp4Bytes},
			{Name: "e.mov", Data: movBytes},
		})

		assert.Empty(t, rejections)
		require.Len(t, d.Images(), 5)
		assert.False(t, d.Images()[0].IsVideo)
		assert.True(t, d.Images()[3].IsVideo)
		assert.Equal(t, "video/quicktime", d.Images()[4].MIMEType)
	})

	t.Run("detects type from content not extension", func(t *testing.T) {
		g, d := newTestGrid(t)

		rejections := g.Add([]File{{Name: "car.png", Data: []byte("not an image at all")}})

		require.Len(t, rejections, 1)
		assert.Empty(t, d.Images())
	})

	t.Run("rejects oversized files individually", func(t *testing.T) {
		g, d := newTestGrid(t)
		big := make([]byte, MaxFileSize+1)
		copy(big, pngBytes)

		rejections := g.Add([]File{
			{Name: "huge.png", Data: big},
			{Name: "ok.png", Data: pngBytes},
		})

		require.Len(t, rejections, 1)
		assert.Equal(t, "huge.png", rejections[0].FileName)
		assert.Len(t, d.Images(), 1)
	})

	t.Run("clamps batch to remaining capacity", func(t *testing.T) {
		g, d := newTestGrid(t)
		g.Add(pngFiles(8))

		rejections := g.Add([]File{
			{Name: "x1.png", Data: pngBytes},
			{Name: "x2.png", Data: pngBytes},
			{Name: "x3.png", Data: pngBytes},
		})

		assert.Empty(t, rejections)
		assert.Len(t, d.Images(), draft.MaxImages)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		g, d := newTestGrid(t)

		assert.Empty(t, g.Add(nil))
		assert.Empty(t, d.Images())
	})

	t.Run("full grid drops further files", func(t *testing.T) {
		g, d := newTestGrid(t)
		g.Add(pngFiles(draft.MaxImages))

		g.Add([]File{{Name: "extra.png", Data: pngBytes}})

		assert.Len(t, d.Images(), draft.MaxImages)
	})
}

func TestGridCanAdvance(t *testing.T) {
	g, _ := newTestGrid(t)

	g.Add(pngFiles(draft.MinImages - 1))
	assert.False(t, g.CanAdvance())

	g.Add(pngFiles(1))
	assert.True(t, g.CanAdvance())

	g.Add(pngFiles(draft.MaxImages - draft.MinImages))
	assert.True(t, g.CanAdvance())
	assert.Equal(t, draft.MaxImages, g.Count())
}

func TestGridCountUsesUploadedAfterSupersession(t *testing.T) {
	g, d := newTestGrid(t)
	g.Add(pngFiles(6))

	d.SetUploadedImages([]marketplace.ListingImage{
		{ID: 1, URL: "https://cdn.example/1.jpg"},
		{ID: 2, URL: "https://cdn.example/2.jpg"},
		{ID: 3, URL: "https://cdn.example/3.jpg"},
		{ID: 4, URL: "https://cdn.example/4.jpg"},
	})

	assert.Empty(t, d.Images())
	assert.Equal(t, 4, g.Count())
	assert.True(t, g.CanAdvance())
}

func TestGridRemoveUploaded(t *testing.T) {
	t.Run("deletes server-side before dropping locally", func(t *testing.T) {
		g, d := newTestGrid(t)
		d.SetListingID(42)
		d.SetUploadedImages([]marketplace.ListingImage{{ID: 7, URL: "u7"}, {ID: 8, URL: "u8"}})
		mock := &marketplace.MockListingService{}

		err := g.RemoveUploaded(context.Background(), mock, 7)

		require.NoError(t, err)
		assert.Equal(t, 1, mock.CallCount("DeleteListingImage"))
		require.Len(t, d.UploadedImages(), 1)
		assert.Equal(t, int64(8), d.UploadedImages()[0].ID)
	})

	t.Run("keeps entry when delete fails", func(t *testing.T) {
		g, d := newTestGrid(t)
		d.SetListingID(42)
		d.SetUploadedImages([]marketplace.ListingImage{{ID: 7, URL: "u7"}})
		mock := &marketplace.MockListingService{}
		mock.DeleteListingImageFunc = func(ctx context.Context, listingID, imageID int64) error {
			return errors.New("server unavailable")
		}

		err := g.RemoveUploaded(context.Background(), mock, 7)

		require.Error(t, err)
		assert.Len(t, d.UploadedImages(), 1)
	})

	t.Run("errors without a listing", func(t *testing.T) {
		g, _ := newTestGrid(t)
		mock := &marketplace.MockListingService{}

		err := g.RemoveUploaded(context.Background(), mock, 7)

		require.Error(t, err)
		assert.Equal(t, 0, mock.CallCount("DeleteListingImage"))
	})
}

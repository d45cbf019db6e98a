// Package intake turns raw file selections into local draft images,
// enforcing count, type and size constraints before anything touches the
// network.
package intake

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hawraz/carsell-flow/internal/draft"
	"github.com/hawraz/carsell-flow/internal/marketplace"
	"github.com/rs/zerolog/log"
)

// MaxFileSize is the per-file size cap (10MB), matching the backend's
// upload limit.
const MaxFileSize = 10 * 1024 * 1024

// acceptedTypes maps accepted MIME types to whether they are video.
var acceptedTypes = map[string]bool{
	"image/jpeg":      false,
	"image/png":       false,
	"image/webp":      false,
	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,
}

// File is a raw file selection entering the grid. Both the file-picker and
// drag-and-drop paths converge here.
type File struct {
	Name string
	Data []byte
}

// Rejection explains why a file was not added. The caller decides how to
// surface it (the step page notifies per rejected file).
type Rejection struct {
	FileName string
	Reason   string
}

// Grid manages photo intake for a draft. It shows either local or uploaded
// entries, never both, mirroring the container's supersession invariant.
type Grid struct {
	draft      *draft.Draft
	previewDir string
}

// NewGrid creates a grid over the given draft. previewDir receives
// temporary preview copies; pass empty to skip preview materialization.
func NewGrid(d *draft.Draft, previewDir string) *Grid {
	return &Grid{draft: d, previewDir: previewDir}
}

// Count returns the visible item count (local or uploaded, never summed).
func (g *Grid) Count() int {
	return g.draft.VisibleCount()
}

// CanAdvance reports whether the photo step's Next action is allowed.
func (g *Grid) CanAdvance() bool {
	n := g.Count()
	return n >= draft.MinImages && n <= draft.MaxImages
}

// Add validates and appends a batch of files to the draft's local images.
// The batch is clamped to the remaining capacity; files beyond the cap are
// silently dropped (best effort fill). Per-file validation failures are
// returned as rejections and the file is not forwarded. An empty batch is
// a no-op.
func (g *Grid) Add(files []File) []Rejection {
	var rejections []Rejection

	remaining := draft.MaxImages - g.Count()
	if remaining < 0 {
		remaining = 0
	}

	for _, f := range files {
		if remaining == 0 {
			break
		}
		if int64(len(f.Data)) > MaxFileSize {
			rejections = append(rejections, Rejection{FileName: f.Name, Reason: fmt.Sprintf("%s is over 10MB", f.Name)})
			continue
		}
		mimeType, isVideo, ok := sniffType(f.Data)
		if !ok {
			rejections = append(rejections, Rejection{FileName: f.Name, Reason: "use JPG, PNG, WebP or MP4/WebM/MOV"})
			continue
		}

		img := draft.LocalImage{
			ID:       uuid.New().String(),
			FileName: f.Name,
			Data:     f.Data,
			MIMEType: mimeType,
			IsVideo:  isVideo,
		}
		if g.previewDir != "" {
			path, err := g.writePreview(img)
			if err != nil {
				log.Warn().Err(err).Str("file", f.Name).Msg("failed to write preview")
			} else {
				img.PreviewPath = path
			}
		}

		g.draft.AddImage(img)
		remaining--
	}

	return rejections
}

// Remove drops a local image, releasing its preview copy first.
func (g *Grid) Remove(id string) {
	img, ok := g.draft.RemoveImage(id)
	if !ok {
		return
	}
	releasePreview(img)
}

// RemoveUploaded deletes an uploaded image server-side, then drops it from
// the draft. If the delete call fails the entry stays, keeping the grid
// consistent with the server.
func (g *Grid) RemoveUploaded(ctx context.Context, svc marketplace.ListingService, id int64) error {
	listingID := g.draft.ListingID()
	if listingID == 0 {
		return fmt.Errorf("no listing to remove image from")
	}
	if err := svc.DeleteListingImage(ctx, listingID, id); err != nil {
		return err
	}
	g.draft.RemoveUploadedImage(id)
	return nil
}

// ReleasePreviews removes the preview copies for the given images. Called
// when the local set is superseded by uploads or the flow ends.
func (g *Grid) ReleasePreviews(imgs []draft.LocalImage) {
	for _, img := range imgs {
		releasePreview(img)
	}
}

func (g *Grid) writePreview(img draft.LocalImage) (string, error) {
	path := filepath.Join(g.previewDir, "preview-"+img.ID+filepath.Ext(img.FileName))
	if err := os.WriteFile(path, img.Data, 0600); err != nil {
		return "", err
	}
	return path, nil
}

func releasePreview(img draft.LocalImage) {
	if img.PreviewPath == "" {
		return
	}
	if err := os.Remove(img.PreviewPath); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", img.PreviewPath).Msg("failed to remove preview")
	}
}

// sniffType detects the MIME type from content and reports whether it is
// accepted. Extensions are ignored; only bytes count.
func sniffType(data []byte) (mimeType string, isVideo, ok bool) {
	mimeType = http.DetectContentType(data)
	if mimeType == "application/octet-stream" && isQuickTime(data) {
		mimeType = "video/quicktime"
	}
	isVideo, ok = acceptedTypes[mimeType]
	return mimeType, isVideo, ok
}

// isQuickTime checks for the MOV container signature, which
// http.DetectContentType does not recognize.
func isQuickTime(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")) && bytes.Equal(data[8:10], []byte("qt"))
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/objectstore"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/transport"
)

// UploadHandler accepts files and images for message attachments.
type UploadHandler struct {
	store    objectstore.Store
	maxBytes int64
}

func NewUploadHandler(store objectstore.Store, maxBytes int64) *UploadHandler {
	return &UploadHandler{store: store, maxBytes: maxBytes}
}

// Upload POST /api/upload (multipart field "file")
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		// Room for the multipart framing around the file.
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+64<<10)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			transport.WriteError(w, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload limit")
			return
		}
		transport.WriteError(w, http.StatusBadRequest, "missing_file", "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	stored, err := h.store.Put(r.Context(), file, header.Filename, header.Header.Get("Content-Type"))
	switch {
	case errors.Is(err, objectstore.ErrTooLarge):
		transport.WriteError(w, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload limit")
		return
	case errors.Is(err, objectstore.ErrEmpty):
		transport.WriteError(w, http.StatusBadRequest, "empty_file", "file is empty")
		return
	case err != nil:
		transport.Error(w, r, err)
		return
	}

	transport.WriteJSON(w, http.StatusCreated, stored.Attachment)
}

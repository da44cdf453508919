package v1handler

import (
	"net/http"

	"filescan/pkg/domain"
	"filescan/pkg/scanservice/vtgateway"
	"filescan/pkg/serrors"
)

// SubmitScan accepts a multipart upload and starts a scan session. The upload
// to the gateway happens synchronously; polling continues in the background
// and the response carries the post-upload session snapshot.
func (h *Handler) SubmitScan(w http.ResponseWriter, r *http.Request) {
	// the form parser buffers to disk beyond this, the cap itself is enforced
	// against the declared part size below
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeError(w, r, serrors.Wrap(serrors.ErrBadRequest, err, "could not parse multipart form"))

		return
	}

	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, serrors.Wrap(serrors.ErrBadRequest, err, `missing "file" form field`))

		return
	}
	defer func() {
		_ = f.Close()
	}()

	if hdr.Size > vtgateway.MaxFileSize {
		writeError(w, r, serrors.With(serrors.ErrBadRequest,
			"file too large: %d bytes, max is %d", hdr.Size, vtgateway.MaxFileSize))

		return
	}

	file := domain.FileInfo{
		Name:     hdr.Filename,
		Size:     hdr.Size,
		MimeType: hdr.Header.Get("Content-Type"),
	}

	if err := h.deps.Session.Submit(r.Context(), file, f); err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, http.StatusAccepted, h.deps.Session.Snapshot())
}

// CurrentScan returns the session snapshot.
func (h *Handler) CurrentScan(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Session.Snapshot())
}

// ResetScan cancels any in-flight work and returns the session to idle.
func (h *Handler) ResetScan(w http.ResponseWriter, r *http.Request) {
	h.deps.Session.Reset()
	writeJSON(w, http.StatusOK, h.deps.Session.Snapshot())
}

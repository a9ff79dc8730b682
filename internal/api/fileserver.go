package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adgrid/signage/internal/fsutil"
	"github.com/adgrid/signage/internal/log"
)

// handleMedia serves one media file by name from the media root. Devices
// fetch announced content through this endpoint.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "media")

	name, err := fsutil.SafeBaseName(chi.URLParam(r, "filename"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	path, err := fsutil.ConfineRelPath(s.cfg.MediaDir, name)
	if err != nil {
		logger.Warn().Err(err).
			Str("event", "media.confine_failed").
			Str(log.FieldFilename, name).
			Msg("rejected media path")
		http.NotFound(w, r)
		return
	}
	if err := fsutil.IsRegularFile(path); err != nil {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, path)
}

package api

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/adgrid/signage/internal/fsutil"
	"github.com/adgrid/signage/internal/log"
	"github.com/adgrid/signage/internal/metrics"
)

// uploadResponse is the success payload of POST /upload.
type uploadResponse struct {
	Status          string  `json:"status"`
	RequestID       string  `json:"request_id"`
	Filename        string  `json:"filename"`
	FileURL         string  `json:"file_url"`
	FileSizeKB      float64 `json:"file_size_kb"`
	NotifiedScreens int     `json:"notified_screens"`
}

type errorResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
	Message   string `json:"message"`
}

// handleUpload accepts one multipart file, writes it durably under the media
// root, and only then broadcasts the new-content notification. The response
// reports exactly how many screens were notified.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.WithComponentFromContext(ctx, "upload")
	requestID := log.RequestIDFromContext(ctx)
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.uploadError(w, logger, requestID, http.StatusBadRequest, "invalid multipart upload", err)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Debug().Err(err).Msg("close upload part")
		}
	}()

	name, err := fsutil.SafeBaseName(header.Filename)
	if err != nil {
		s.uploadError(w, logger, requestID, http.StatusBadRequest, "invalid filename", err)
		return
	}

	destPath, err := fsutil.ConfineRelPath(s.cfg.MediaDir, name)
	if err != nil {
		s.uploadError(w, logger, requestID, http.StatusBadRequest, "invalid filename", err)
		return
	}

	pending, err := renameio.NewPendingFile(destPath)
	if err != nil {
		s.uploadError(w, logger, requestID, http.StatusInternalServerError, "storing file failed", err)
		return
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending upload")
		}
	}()

	written, err := io.Copy(pending, file)
	if err != nil {
		s.uploadError(w, logger, requestID, http.StatusInternalServerError, "storing file failed", err)
		return
	}
	// The rename publishes the file; the broadcast happens strictly after,
	// never concurrently with the write.
	if err := pending.CloseAtomicallyReplace(); err != nil {
		s.uploadError(w, logger, requestID, http.StatusInternalServerError, "storing file failed", err)
		return
	}

	notified := s.dispatcher.Broadcast(ctx, name)

	metrics.UploadsTotal.WithLabelValues("uploaded").Inc()
	metrics.UploadBytesTotal.Add(float64(written))

	sizeKB := math.Round(float64(written)/1024*100) / 100
	logger.Info().
		Str("event", "upload.completed").
		Str(log.FieldFilename, name).
		Float64(log.FieldSizeKB, sizeKB).
		Int("notified_screens", notified).
		Dur("duration", time.Since(start)).
		Msg("upload completed")

	writeJSON(w, http.StatusOK, uploadResponse{
		Status:          "uploaded",
		RequestID:       requestID,
		Filename:        name,
		FileURL:         "/media/" + name,
		FileSizeKB:      sizeKB,
		NotifiedScreens: notified,
	})
}

func (s *Server) uploadError(w http.ResponseWriter, logger zerolog.Logger, requestID string, status int, msg string, err error) {
	metrics.UploadsTotal.WithLabelValues("error").Inc()
	logger.Warn().Err(err).
		Str("event", "upload.failed").
		Str("message", msg).
		Msg("upload failed")
	writeJSON(w, status, errorResponse{
		Status:    "error",
		RequestID: requestID,
		Message:   msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger := log.WithComponent("api")
		logger.Debug().Err(err).Msg("encode response")
	}
}

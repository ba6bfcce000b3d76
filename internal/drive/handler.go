package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-go/internal/pipeline/reorder"
)

// Browser is the part of Service the HTTP handler uses.
type Browser interface {
	FileSource
	FindFolderByPath(ctx context.Context, path string) (string, error)
}

type Handler struct {
	service       Browser
	ingestService *IngestService
	defaultFolder string
}

func NewHandler(service Browser, ingestService *IngestService, defaultFolder string) *Handler {
	return &Handler{
		service:       service,
		ingestService: ingestService,
		defaultFolder: defaultFolder,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/drive/files", h.ListFiles).Methods("GET")
	router.HandleFunc("/api/drive/files/download", h.DownloadFile).Methods("GET")
	router.HandleFunc("/api/drive/import", h.ImportFolder).Methods("POST")
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	folderID := query.Get("folderId")
	folderPath := query.Get("path")

	var err error
	if folderPath != "" {
		// Find folder by path
		folderID, err = h.service.FindFolderByPath(r.Context(), folderPath)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
	}

	files, err := h.service.ListFiles(r.Context(), folderID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, files)
}

func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.URL.Query().Get("fileId")
	if fileID == "" {
		http.Error(w, "fileId parameter is required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=data.csv")

	if err := h.service.DownloadFile(r.Context(), fileID, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ImportFolder downloads a folder and processes it. The optional date
// parameter (YYYYMMDD) sets the snapshot prefix of the downloaded files.
func (h *Handler) ImportFolder(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	folderID := query.Get("folderId")
	if folderID == "" {
		folderID = h.defaultFolder
	}
	if folderID == "" {
		http.Error(w, "folderId parameter is required", http.StatusBadRequest)
		return
	}

	var date time.Time
	if raw := query.Get("date"); raw != "" {
		parsed, err := time.Parse(reorder.SnapshotDateLayout, raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid date %q, expected YYYYMMDD", raw), http.StatusBadRequest)
			return
		}
		date = parsed
	}

	result, err := h.ingestService.ImportFolder(r.Context(), folderID, date)
	if err != nil {
		log.Error().Err(err).Str("folder", folderID).Msg("drive import failed")
		http.Error(w, fmt.Sprintf("import failed: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

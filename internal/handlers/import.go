package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"raggedbooks/internal/contextutil"
	"raggedbooks/internal/indexer"
	"raggedbooks/internal/service"
)

// ImportHandler starts imports in the background. Only one import runs
// at a time.
type ImportHandler struct {
	library service.Library
	opts    indexer.FolderOptions
	slot    chan struct{}
	wg      sync.WaitGroup
}

// NewImportHandler creates a new ImportHandler. opts are used for
// folder imports; Force is taken from each request.
func NewImportHandler(library service.Library, opts indexer.FolderOptions) *ImportHandler {
	return &ImportHandler{
		library: library,
		opts:    opts,
		slot:    make(chan struct{}, 1),
	}
}

// ImportRequest represents the HTTP request payload for imports.
type ImportRequest struct {
	// Path is a file or folder. Relative paths resolve against the PDF
	// folder; empty means the PDF folder itself.
	Path  string `json:"path"`
	Force bool   `json:"force"`
}

// ImportAccepted is returned once an import was started.
type ImportAccepted struct {
	Status string `json:"status"`
	Path   string `json:"path"`
	Kind   string `json:"kind"`
}

// ServeHTTP handles POST /api/import.
func (h *ImportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	path := strings.TrimSpace(req.Path)
	if path == "" {
		path = h.library.PDFFolder()
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(h.library.PDFFolder(), path)
	}

	info, err := os.Stat(path)
	if err != nil {
		logger.WarnContext(ctx, "import path not found", "path", path, "error", err)
		writeError(w, http.StatusNotFound, "Path not found")
		return
	}
	kind := "file"
	if info.IsDir() {
		kind = "folder"
	}

	select {
	case h.slot <- struct{}{}:
	default:
		writeError(w, http.StatusConflict, "An import is already running")
		return
	}

	// The import outlives the request.
	bg := context.WithoutCancel(ctx)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() { <-h.slot }()
		h.run(bg, path, info.IsDir(), req.Force)
	}()

	writeJSON(w, http.StatusAccepted, ImportAccepted{Status: "started", Path: path, Kind: kind})
}

func (h *ImportHandler) run(ctx context.Context, path string, dir, force bool) {
	logger := contextutil.LoggerFromContext(ctx)

	if !dir {
		res, err := h.library.ImportFile(ctx, path, force)
		if err != nil {
			logger.ErrorContext(ctx, "import failed", "path", path, "error", err)
			return
		}
		logger.InfoContext(ctx, "import finished", "path", path, "chunks", res.Chunks, "skipped", res.Skipped)
		return
	}

	opts := h.opts
	opts.Force = force
	report, err := h.library.ImportFolder(ctx, path, opts)
	if err != nil {
		logger.ErrorContext(ctx, "folder import failed", "folder", path, "error", err)
		return
	}
	logger.InfoContext(ctx, "folder import finished",
		"folder", path,
		"imported", len(report.Imported),
		"skipped", len(report.Skipped),
		"failed", len(report.Failed),
	)
}

// Wait blocks until background imports have finished.
func (h *ImportHandler) Wait() {
	h.wg.Wait()
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"raggedbooks/internal/handlers"
	"raggedbooks/internal/indexer"
	"raggedbooks/internal/metrics"
	"raggedbooks/internal/service"
	"raggedbooks/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Library     service.Library
	VectorStore vectorstore.VectorStore
	Collection  string
	// FolderOptions apply to imports started through the API.
	FolderOptions indexer.FolderOptions
	// Metrics is optional; when set GET /metrics is served.
	Metrics *metrics.Metrics
}

// Router is the API handler. Wait blocks until imports started through
// the API have finished.
type Router struct {
	http.Handler
	imports *handlers.ImportHandler
}

// Wait blocks until background imports have finished.
func (r *Router) Wait() {
	r.imports.Wait()
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) *Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger(deps.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	importHandler := handlers.NewImportHandler(deps.Library, deps.FolderOptions)
	booksHandler := handlers.NewBooksHandler(deps.Library)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.VectorStore, deps.Collection))
		r.Method(http.MethodGet, "/search", handlers.NewSearchHandler(deps.Library))
		r.Method(http.MethodPost, "/ask", handlers.NewAskHandler(deps.Library))
		r.Method(http.MethodGet, "/books", booksHandler)
		r.Delete("/books/{filename}", booksHandler.Delete)
		r.Method(http.MethodPost, "/import", importHandler)
		r.Get("/runs", booksHandler.Runs)
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	return &Router{Handler: r, imports: importHandler}
}

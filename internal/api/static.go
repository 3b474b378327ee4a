package api

import (
	"mime"
	"net/http"
	"path/filepath"

	"github.com/adityawarman/citralab/internal/handler"
	"github.com/adityawarman/citralab/internal/storage"

	"github.com/gorilla/mux"
)

// Serves a stored artifact. Artifact names are unique and never rewritten,
// so the response can be cached.
func (a *API) staticHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	vars := mux.Vars(r)
	key := vars["area"] + "/" + vars["file"]

	data, err := a.Storage.Get(r.Context(), key)
	if err != nil {
		if err == storage.ErrNotFound {
			return notFoundError
		}

		a.logError(r, "error getting file from storage", err)
		return handler.InternalServerError()
	}

	contentType := mime.TypeByExtension(filepath.Ext(vars["file"]))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")

	if _, err := w.Write(data); err != nil {
		a.logError(r, "error writing file response", err)
	}

	return nil
}

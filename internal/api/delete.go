package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/adityawarman/citralab/internal/handler"
)

// Removes every history record owned by the session name
func (a *API) deleteHistoryHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	name, _ := a.Session.Name(r)
	if name == "" {
		return redirect(w, r, "/history")
	}

	if _, err := a.Pipeline.DeleteAll(r.Context(), name); err != nil {
		a.logError(r, "error deleting the history", err)
		return handler.InternalServerError()
	}

	a.Session.Flash(w, "Riwayat berhasil dihapus.")
	return redirect(w, r, "/history")
}

// Removes a single history record, if the name owns it
func (a *API) deleteItemHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	name := strings.TrimSpace(r.URL.Query().Get("nama"))
	if name == "" {
		name, _ = a.Session.Name(r)
	}

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || name == "" {
		return redirect(w, r, "/history")
	}

	deleted, err := a.Pipeline.DeleteItem(r.Context(), id, name)
	if err != nil {
		a.logError(r, "error deleting the history item", err)
		return handler.InternalServerError()
	}

	if deleted {
		a.Session.Flash(w, "1 item berhasil dihapus")
	}

	return redirect(w, r, "/history")
}

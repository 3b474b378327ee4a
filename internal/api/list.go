package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/adityawarman/citralab/internal/handler"
	"github.com/adityawarman/citralab/internal/history"
)

const (
	// Default number of items per page
	defaultLimit = 30
	// Max number of items per page
	maxLimit = 100
)

// Paginated history list, with `page` and `limit` query parameters
func (a *API) listHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	name := a.sessionName(w, r)
	if name == "" {
		return handler.BadRequest("a name is required")
	}

	limit := getLimit(r)
	page := getPage(r)

	offset := limit * (page - 1)

	records, err := a.History.List(r.Context(), name, offset, limit)
	if err != nil {
		a.logError(r, "error getting the history list", err)
		return handler.InternalServerError()
	}

	if records == nil {
		records = []history.Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	// If we've ran out of items, don't include the next page in the Link header
	end := len(records) < limit
	w.Header().Set("Link", a.getLinkHeader(name, page, limit, end))

	if err := json.NewEncoder(w).Encode(records); err != nil {
		a.logError(r, "error encoding the history list", err)
		return handler.InternalServerError()
	}

	return nil
}

func getLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	return limit
}

func getPage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	return page
}

func (a *API) getLinkHeader(name string, page, limit int, end bool) string {
	nama := url.QueryEscape(name)

	if page == 1 {
		return fmt.Sprintf("<%s/v2/history?nama=%s&page=%d&limit=%d>; rel=\"next\"", a.RootURL, nama, page+1, limit)
	}

	if end {
		return fmt.Sprintf("<%s/v2/history?nama=%s&page=%d&limit=%d>; rel=\"prev\"", a.RootURL, nama, page-1, limit)
	}

	return fmt.Sprintf("<%s/v2/history?nama=%s&page=%d&limit=%d>; rel=\"prev\", <%s/v2/history?nama=%s&page=%d&limit=%d>; rel=\"next\"",
		a.RootURL, nama, page-1, limit, a.RootURL, nama, page+1, limit)
}

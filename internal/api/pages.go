package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/adityawarman/citralab/internal/handler"
	"github.com/adityawarman/citralab/internal/pipeline"
	"github.com/adityawarman/citralab/internal/web"
)

// sessionName resolves the visitor name, letting ?nama rebind the session
func (a *API) sessionName(w http.ResponseWriter, r *http.Request) string {
	if name := strings.TrimSpace(r.URL.Query().Get("nama")); name != "" {
		if err := a.Session.Set(w, name); err != nil {
			a.logError(r, "error setting the session name", err)
		}

		return name
	}

	name, _ := a.Session.Name(r)
	return name
}

func (a *API) render(w http.ResponseWriter, r *http.Request, page string, data interface{}) *handler.Error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := web.Render(w, page, data); err != nil {
		a.logError(r, "error rendering page", err)
		return handler.InternalServerError()
	}

	return nil
}

// Landing page with the name form
func (a *API) indexHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return a.render(w, r, "index.tmpl", web.IndexData{
		Flash: a.Session.TakeFlash(w, r),
	})
}

// Upload form, requires a session name
func (a *API) uploadHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	name := a.sessionName(w, r)
	if name == "" {
		a.Session.Flash(w, "Masukkan nama terlebih dahulu.")
		return redirect(w, r, "/")
	}

	return a.render(w, r, "upload.tmpl", web.UploadData{
		Nama:    name,
		Flash:   a.Session.TakeFlash(w, r),
		Methods: web.Methods,
	})
}

// Runs an uploaded image through the processing pipeline
func (a *API) processHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	name := strings.TrimSpace(r.FormValue("nama"))
	if name == "" {
		name, _ = a.Session.Name(r)
	}

	method := strings.TrimSpace(r.FormValue("method"))

	var originalFilename string
	file, fileHeader, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		originalFilename = fileHeader.Filename
	}

	result, err := a.Pipeline.Run(r.Context(), name, method, originalFilename, file)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrMissingIdentity):
			a.Session.Flash(w, "Nama tidak boleh kosong.")
			return redirect(w, r, "/")
		case errors.Is(err, pipeline.ErrMissingFile):
			a.Session.Flash(w, "Pilih file gambar terlebih dahulu.")
			return redirect(w, r, "/upload")
		case errors.Is(err, pipeline.ErrUnsupportedFormat):
			a.Session.Flash(w, "Format file tidak didukung.")
			return redirect(w, r, "/upload")
		}

		var processingError *pipeline.ProcessingError
		if errors.As(err, &processingError) {
			a.Session.Flash(w, fmt.Sprintf("Gagal memproses gambar: %s", processingError.Err))
			return redirect(w, r, "/upload")
		}

		a.logError(r, "error running the processing pipeline", err)
		return handler.InternalServerError()
	}

	return a.render(w, r, "result.tmpl", web.ResultData{
		Nama:   result.Name,
		Metode: result.Method,
		Ori:    "/static/" + result.OriginalPath,
		Hasil:  "/static/" + result.ResultPath,
	})
}

// History page for the session name, newest first
func (a *API) historyHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	name := a.sessionName(w, r)
	if name == "" {
		a.Session.Flash(w, "Masukkan nama terlebih dahulu.")
		return redirect(w, r, "/")
	}

	records, err := a.History.ListByName(r.Context(), name)
	if err != nil {
		a.logError(r, "error getting the history list", err)
		return handler.InternalServerError()
	}

	return a.render(w, r, "history.tmpl", web.HistoryData{
		Nama:    name,
		Flash:   a.Session.TakeFlash(w, r),
		Records: records,
	})
}

func (a *API) logoutHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	a.Session.Clear(w)
	return redirect(w, r, "/")
}

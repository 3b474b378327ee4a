// Package web contains the embedded html templates for the frontend.
package web

import (
	"embed"
	"html/template"
	"io"

	"github.com/adityawarman/citralab/internal/history"
)

//go:embed templates/*.tmpl
var content embed.FS

var templates = template.Must(template.ParseFS(content, "templates/*.tmpl"))

// MethodOption is a selectable processing method
type MethodOption struct {
	Value string
	Label string
}

// Methods lists the processing methods shown in the upload form
var Methods = []MethodOption{
	{Value: "grayscale", Label: "Grayscale"},
	{Value: "invert", Label: "Invert"},
	{Value: "otsu", Label: "OTSU Threshold"},
	{Value: "edge", Label: "Canny Edge"},
}

// IndexData is the view data for the landing page
type IndexData struct {
	Flash string
}

// UploadData is the view data for the upload form
type UploadData struct {
	Nama    string
	Flash   string
	Methods []MethodOption
}

// ResultData is the view data for the processing result page
type ResultData struct {
	Nama   string
	Metode string
	Ori    string
	Hasil  string
}

// HistoryData is the view data for the history page
type HistoryData struct {
	Nama    string
	Flash   string
	Records []history.Record
}

// Render executes the given page template
func Render(w io.Writer, page string, data interface{}) error {
	return templates.ExecuteTemplate(w, page, data)
}

package api_test

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"time"

	"github.com/adityawarman/citralab/internal/api"
	"github.com/adityawarman/citralab/internal/health"
	"github.com/adityawarman/citralab/internal/history"
	"github.com/adityawarman/citralab/internal/hmac"
	"github.com/adityawarman/citralab/internal/logger"
	"github.com/adityawarman/citralab/internal/pipeline"
	"github.com/adityawarman/citralab/internal/session"
	tracingTest "github.com/adityawarman/citralab/internal/tracing/test"
	"go.uber.org/zap"

	historyFile "github.com/adityawarman/citralab/internal/history/file"
	historyMock "github.com/adityawarman/citralab/internal/history/mock"
	imageMock "github.com/adityawarman/citralab/internal/image/mock"
	storageMock "github.com/adityawarman/citralab/internal/storage/mock"

	"testing"
)

const rootURL = "https://example.com"

func TestAPI(t *testing.T) {
	ctx := context.Background()

	log := logger.New(zap.FatalLevel)
	defer log.Sync()

	tracer := tracingTest.Tracer(log)

	sess := &session.Session{
		HMAC: &hmac.HMAC{
			Key: []byte("test"),
		},
	}

	store, err := historyFile.New(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatal(err)
	}

	storage := storageMock.New()

	if _, err := store.Insert(ctx, &history.Record{
		Name:         "budi",
		OriginalPath: "uploads/kucing_0a1b2c3d.jpg",
		ResultPath:   "processed/kucing_0a1b2c3d_grayscale_11223344.png",
		Method:       "grayscale",
	}); err != nil {
		t.Fatal(err)
	}

	if err := storage.Put(ctx, "uploads/kucing_0a1b2c3d.jpg", []byte("jpegdata")); err != nil {
		t.Fatal(err)
	}

	pipe := &pipeline.Pipeline{
		Storage:   storage,
		Processor: &imageMock.Processor{},
		History:   store,
		Tracer:    tracer,
		Log:       log,
	}

	checker := &health.Checker{
		Ctx:     ctx,
		History: store,
		Storage: storage,
		Log:     log,
	}
	checker.Run()

	router := (&api.API{
		Pipeline:       pipe,
		History:        store,
		Storage:        storage,
		Session:        sess,
		HealthChecker:  checker,
		Log:            log,
		Tracer:         tracer,
		RootURL:        rootURL,
		HandlerTimeout: time.Minute,
	}).Router()

	mockStoreRouter := (&api.API{
		Pipeline:       pipe,
		History:        &historyMock.Provider{},
		Storage:        storage,
		Session:        sess,
		HealthChecker:  checker,
		Log:            log,
		Tracer:         tracer,
		RootURL:        rootURL,
		HandlerTimeout: time.Minute,
	}).Router()

	budi := sessionCookies(sess, "budi")

	tests := []struct {
		Name             string
		URL              string
		Router           http.Handler
		Cookies          []*http.Cookie
		ExpectedStatus   int
		ExpectedBody     string
		ExpectedLocation string
		ExpectedHeaders  map[string]string
	}{
		{
			Name:           "/ renders the landing page",
			URL:            "/",
			Router:         router,
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   "<h1>Citralab</h1>",
			ExpectedHeaders: map[string]string{
				"Content-Type": "text/html; charset=utf-8",
			},
		},
		{
			Name:             "/upload without a name redirects home",
			URL:              "/upload",
			Router:           router,
			ExpectedStatus:   http.StatusFound,
			ExpectedLocation: "/",
		},
		{
			Name:           "/upload?nama sets the session name",
			URL:            "/upload?nama=budi",
			Router:         router,
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   "Halo, budi!",
		},
		{
			Name:           "/upload keeps the session name",
			URL:            "/upload",
			Router:         router,
			Cookies:        budi,
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   "Halo, budi!",
		},
		{
			Name:             "/history without a name redirects home",
			URL:              "/history",
			Router:           router,
			ExpectedStatus:   http.StatusFound,
			ExpectedLocation: "/",
		},
		{
			Name:           "/history lists the session records",
			URL:            "/history",
			Router:         router,
			Cookies:        budi,
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   "/static/uploads/kucing_0a1b2c3d.jpg",
		},
		{
			Name:           "/v2/history lists records",
			URL:            "/v2/history?nama=budi",
			Router:         router,
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   `"original_path":"uploads/kucing_0a1b2c3d.jpg"`,
			ExpectedHeaders: map[string]string{
				"Content-Type":  "application/json",
				"Link":          fmt.Sprintf("<%s/v2/history?nama=budi&page=2&limit=30>; rel=\"next\"", rootURL),
				"Cache-Control": "no-cache, no-store, must-revalidate",
			},
		},
		{
			Name:           "/v2/history clamps the limit",
			URL:            "/v2/history?nama=budi&limit=1000",
			Router:         router,
			ExpectedStatus: http.StatusOK,
			ExpectedHeaders: map[string]string{
				"Link": fmt.Sprintf("<%s/v2/history?nama=budi&page=2&limit=100>; rel=\"next\"", rootURL),
			},
		},
		{
			Name:           "/v2/history for an unknown name is empty",
			URL:            "/v2/history?nama=nobody",
			Router:         router,
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   "[]",
		},
		{
			Name:           "/v2/history without a name",
			URL:            "/v2/history",
			Router:         router,
			ExpectedStatus: http.StatusBadRequest,
			ExpectedBody:   "a name is required",
		},
		{
			Name:           "/v2/history store error",
			URL:            "/v2/history?nama=budi",
			Router:         mockStoreRouter,
			ExpectedStatus: http.StatusInternalServerError,
			ExpectedBody:   "Something went wrong",
		},
		{
			Name:           "/history store error",
			URL:            "/history",
			Router:         mockStoreRouter,
			Cookies:        budi,
			ExpectedStatus: http.StatusInternalServerError,
			ExpectedBody:   "Something went wrong",
		},
		{
			Name:             "/delete_item with a bad id redirects",
			URL:              "/delete_item?id=abc",
			Router:           router,
			Cookies:          budi,
			ExpectedStatus:   http.StatusFound,
			ExpectedLocation: "/history",
		},
		{
			Name:             "/logout redirects home",
			URL:              "/logout",
			Router:           router,
			Cookies:          budi,
			ExpectedStatus:   http.StatusFound,
			ExpectedLocation: "/",
		},
		{
			Name:           "/static serves an upload",
			URL:            "/static/uploads/kucing_0a1b2c3d.jpg",
			Router:         router,
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   "jpegdata",
			ExpectedHeaders: map[string]string{
				"Content-Type":  "image/jpeg",
				"Cache-Control": "public, max-age=3600",
			},
		},
		{
			Name:           "/static 404s on a missing file",
			URL:            "/static/uploads/missing.jpg",
			Router:         router,
			ExpectedStatus: http.StatusNotFound,
			ExpectedBody:   "page not found",
		},
		{
			Name:           "/health reports status",
			URL:            "/health",
			Router:         router,
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   `"healthy":true`,
		},
		{
			Name:           "404",
			URL:            "/asdf",
			Router:         router,
			ExpectedStatus: http.StatusNotFound,
			ExpectedBody:   "page not found",
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", test.URL, nil)
			for _, cookie := range test.Cookies {
				req.AddCookie(cookie)
			}

			test.Router.ServeHTTP(w, req)

			if w.Code != test.ExpectedStatus {
				t.Fatalf("wrong response code, %#v", w.Code)
			}

			if test.ExpectedLocation != "" {
				if location := w.Header().Get("Location"); location != test.ExpectedLocation {
					t.Errorf("wrong redirect %#v", location)
				}
			}

			if test.ExpectedBody != "" && !strings.Contains(w.Body.String(), test.ExpectedBody) {
				t.Errorf("wrong response %#v", w.Body.String())
			}

			for expectedHeader, expectedValue := range test.ExpectedHeaders {
				if headerValue := w.Header().Get(expectedHeader); headerValue != expectedValue {
					t.Errorf("wrong header value for %s, %#v", expectedHeader, headerValue)
				}
			}
		})
	}
}

func TestProcess(t *testing.T) {
	ctx := context.Background()

	log := logger.New(zap.FatalLevel)
	defer log.Sync()

	tracer := tracingTest.Tracer(log)

	sess := &session.Session{
		HMAC: &hmac.HMAC{
			Key: []byte("test"),
		},
	}

	store, err := historyFile.New(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatal(err)
	}

	storage := storageMock.New()

	router := (&api.API{
		Pipeline: &pipeline.Pipeline{
			Storage:   storage,
			Processor: &imageMock.Processor{},
			History:   store,
			Tracer:    tracer,
			Log:       log,
		},
		History:        store,
		Storage:        storage,
		Session:        sess,
		HealthChecker:  &health.Checker{Ctx: ctx, Log: log},
		Log:            log,
		Tracer:         tracer,
		RootURL:        rootURL,
		HandlerTimeout: time.Minute,
	}).Router()

	failingRouter := (&api.API{
		Pipeline: &pipeline.Pipeline{
			Storage:   storage,
			Processor: &imageMock.FailingProcessor{},
			History:   store,
			Tracer:    tracer,
			Log:       log,
		},
		History:        store,
		Storage:        storage,
		Session:        sess,
		HealthChecker:  &health.Checker{Ctx: ctx, Log: log},
		Log:            log,
		Tracer:         tracer,
		RootURL:        rootURL,
		HandlerTimeout: time.Minute,
	}).Router()

	t.Run("processes an upload", func(t *testing.T) {
		w := postForm(router, "budi", "grayscale", "kucing.jpg", []byte("jpegdata"), nil)

		if w.Code != http.StatusOK {
			t.Fatalf("wrong response code, %#v: %s", w.Code, w.Body.String())
		}

		body := w.Body.String()
		if !strings.Contains(body, "/static/uploads/kucing_") || !strings.Contains(body, "/static/processed/kucing_") {
			t.Errorf("result page is missing artifact links: %s", body)
		}

		if storage.Len() != 2 {
			t.Errorf("wrong number of stored files, %#v", storage.Keys())
		}

		records, err := store.ListByName(ctx, "budi")
		if err != nil {
			t.Fatal(err)
		}

		if len(records) != 1 || records[0].Method != "grayscale" {
			t.Errorf("wrong history records %#v", records)
		}
	})

	t.Run("falls back to the session name", func(t *testing.T) {
		w := postForm(router, "", "invert", "anjing.png", []byte("pngdata"), sessionCookies(sess, "siti"))

		if w.Code != http.StatusOK {
			t.Fatalf("wrong response code, %#v: %s", w.Code, w.Body.String())
		}

		records, err := store.ListByName(ctx, "siti")
		if err != nil {
			t.Fatal(err)
		}

		if len(records) != 1 {
			t.Errorf("wrong history records %#v", records)
		}
	})

	validationTests := []struct {
		Name             string
		Nama             string
		Method           string
		Filename         string
		Data             []byte
		ExpectedLocation string
	}{
		{"missing name", "", "grayscale", "kucing.jpg", []byte("jpegdata"), "/"},
		{"missing file", "budi", "grayscale", "", nil, "/upload"},
		{"empty file", "budi", "grayscale", "kucing.jpg", []byte{}, "/upload"},
		{"unsupported format", "budi", "grayscale", "kucing.gif", []byte("gifdata"), "/upload"},
	}

	for _, test := range validationTests {
		t.Run(test.Name, func(t *testing.T) {
			filesBefore := storage.Len()

			w := postForm(router, test.Nama, test.Method, test.Filename, test.Data, nil)

			if w.Code != http.StatusFound {
				t.Fatalf("wrong response code, %#v: %s", w.Code, w.Body.String())
			}

			if location := w.Header().Get("Location"); location != test.ExpectedLocation {
				t.Errorf("wrong redirect %#v", location)
			}

			if storage.Len() != filesBefore {
				t.Errorf("a rejected upload left files behind, %#v", storage.Keys())
			}
		})
	}

	t.Run("processing failure keeps the upload", func(t *testing.T) {
		filesBefore := storage.Len()

		w := postForm(failingRouter, "budi", "edge", "kucing.jpg", []byte("jpegdata"), nil)

		if w.Code != http.StatusFound {
			t.Fatalf("wrong response code, %#v: %s", w.Code, w.Body.String())
		}

		if location := w.Header().Get("Location"); location != "/upload" {
			t.Errorf("wrong redirect %#v", location)
		}

		// The upload stays behind, but no result and no record
		if storage.Len() != filesBefore+1 {
			t.Errorf("wrong number of stored files, %#v", storage.Keys())
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	log := logger.New(zap.FatalLevel)
	defer log.Sync()

	tracer := tracingTest.Tracer(log)

	sess := &session.Session{
		HMAC: &hmac.HMAC{
			Key: []byte("test"),
		},
	}

	store, err := historyFile.New(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatal(err)
	}

	storage := storageMock.New()

	var ids []int64
	for _, record := range []history.Record{
		{Name: "budi", OriginalPath: "uploads/a.jpg", ResultPath: "processed/a.png", Method: "grayscale"},
		{Name: "budi", OriginalPath: "uploads/b.jpg", ResultPath: "processed/b.png", Method: "invert"},
		{Name: "siti", OriginalPath: "uploads/c.jpg", ResultPath: "processed/c.png", Method: "otsu"},
	} {
		record := record
		id, err := store.Insert(ctx, &record)
		if err != nil {
			t.Fatal(err)
		}

		ids = append(ids, id)
	}

	router := (&api.API{
		Pipeline: &pipeline.Pipeline{
			Storage:   storage,
			Processor: &imageMock.Processor{},
			History:   store,
			Tracer:    tracer,
			Log:       log,
		},
		History:        store,
		Storage:        storage,
		Session:        sess,
		HealthChecker:  &health.Checker{Ctx: ctx, Log: log},
		Log:            log,
		Tracer:         tracer,
		RootURL:        rootURL,
		HandlerTimeout: time.Minute,
	}).Router()

	budi := sessionCookies(sess, "budi")

	t.Run("delete_item refuses another name's record", func(t *testing.T) {
		w := getWithCookies(router, fmt.Sprintf("/delete_item?id=%d", ids[2]), budi)

		if w.Code != http.StatusFound {
			t.Fatalf("wrong response code, %#v", w.Code)
		}

		if _, err := store.Get(ctx, ids[2]); err != nil {
			t.Errorf("record was deleted by a non-owner: %s", err)
		}
	})

	t.Run("delete_item removes an owned record", func(t *testing.T) {
		w := getWithCookies(router, fmt.Sprintf("/delete_item?id=%d", ids[0]), budi)

		if w.Code != http.StatusFound {
			t.Fatalf("wrong response code, %#v", w.Code)
		}

		if _, err := store.Get(ctx, ids[0]); err != history.ErrNotFound {
			t.Errorf("record was not deleted: %v", err)
		}
	})

	t.Run("delete_history removes the session records", func(t *testing.T) {
		w := getWithCookies(router, "/delete_history", budi)

		if w.Code != http.StatusFound {
			t.Fatalf("wrong response code, %#v", w.Code)
		}

		records, err := store.ListByName(ctx, "budi")
		if err != nil {
			t.Fatal(err)
		}

		if len(records) != 0 {
			t.Errorf("history was not deleted %#v", records)
		}

		// The other name's record survives
		if _, err := store.Get(ctx, ids[2]); err != nil {
			t.Errorf("wrong record deleted: %s", err)
		}
	})

	t.Run("delete_history without a session redirects", func(t *testing.T) {
		w := getWithCookies(router, "/delete_history", nil)

		if w.Code != http.StatusFound {
			t.Fatalf("wrong response code, %#v", w.Code)
		}

		if location := w.Header().Get("Location"); location != "/history" {
			t.Errorf("wrong redirect %#v", location)
		}
	})
}

func sessionCookies(sess *session.Session, name string) []*http.Cookie {
	w := httptest.NewRecorder()
	sess.Set(w, name)
	return w.Result().Cookies()
}

func getWithCookies(router http.Handler, url string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", url, nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	router.ServeHTTP(w, req)
	return w
}

func postForm(router http.Handler, nama, method, filename string, data []byte, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("nama", nama)
	mw.WriteField("method", method)
	if filename != "" {
		fw, _ := mw.CreateFormFile("file", filename)
		fw.Write(data)
	}
	mw.Close()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/process", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	router.ServeHTTP(w, req)
	return w
}

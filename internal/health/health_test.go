package health_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/adityawarman/citralab/internal/cache/memory"
	"github.com/adityawarman/citralab/internal/health"
	historyFile "github.com/adityawarman/citralab/internal/history/file"
	historyMock "github.com/adityawarman/citralab/internal/history/mock"
	"github.com/adityawarman/citralab/internal/logger"
	storageMock "github.com/adityawarman/citralab/internal/storage/mock"

	"go.uber.org/zap"
)

func TestHealthy(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.New(zap.FatalLevel)
	defer log.Sync()

	store, err := historyFile.New(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatal(err)
	}

	checker := &health.Checker{
		Ctx:     ctx,
		History: store,
		Cache:   memory.New(),
		Storage: storageMock.New(),
		Log:     log,
	}

	checker.Run()

	waitForStatus(t, checker, true)

	status := checker.Status()
	if status.History != "healthy" || status.Cache != "healthy" || status.Storage != "healthy" {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestUnhealthyHistory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.New(zap.FatalLevel)
	defer log.Sync()

	checker := &health.Checker{
		Ctx:     ctx,
		History: &historyMock.Provider{},
		Log:     log,
	}

	checker.Run()

	waitForStatus(t, checker, false)

	if checker.Status().History != "unhealthy" {
		t.Errorf("unexpected status %+v", checker.Status())
	}
}

func waitForStatus(t *testing.T, checker *health.Checker, healthy bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if checker.Status().Healthy == healthy {
			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("checker never became healthy=%v: %+v", healthy, checker.Status())
}

package health

import (
	"context"
	"sync"
	"time"

	"github.com/adityawarman/citralab/internal/cache"
	"github.com/adityawarman/citralab/internal/history"
	"github.com/adityawarman/citralab/internal/logger"
	"github.com/adityawarman/citralab/internal/storage"
)

const checkInterval = 10 * time.Second
const checkTimeout = 8 * time.Second

// Checker is a periodic health checker
type Checker struct {
	Ctx     context.Context
	History history.Provider
	Cache   cache.Provider
	Storage storage.Provider
	Log     *logger.Logger

	status Status
	mutex  sync.RWMutex
}

// Status contains the healthcheck status
type Status struct {
	Healthy bool   `json:"healthy"`
	History string `json:"history,omitempty"`
	Cache   string `json:"cache,omitempty"`
	Storage string `json:"storage,omitempty"`
}

// Run starts the health checker
func (c *Checker) Run() {
	ticker := time.NewTicker(checkInterval)
	go func() {
		for {
			select {
			case <-ticker.C:
				c.runCheck()
			case <-c.Ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()

	c.runCheck()
}

// Status returns the status of the health checks
func (c *Checker) Status() Status {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.status
}

func (c *Checker) runCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	channel := make(chan Status, 1)
	go func() {
		c.check(ctx, channel)
	}()

	select {
	case <-ctx.Done():
		c.mutex.Lock()

		c.status = Status{
			Healthy: false,
		}
		if c.History != nil {
			c.status.History = "unknown"
		}
		if c.Cache != nil {
			c.status.Cache = "unknown"
		}
		if c.Storage != nil {
			c.status.Storage = "unknown"
		}

		c.mutex.Unlock()
		c.Log.Errorw("healthcheck timed out")
	case status, ok := <-channel:
		if !ok {
			return
		}

		c.mutex.Lock()
		c.status = status
		c.mutex.Unlock()
		if !status.Healthy {
			c.Log.Errorw("healthcheck error",
				"status", status,
			)
		}
	}
}

func (c *Checker) check(ctx context.Context, channel chan Status) {
	defer close(channel)

	if ctx.Err() != nil {
		return
	}

	status := Status{
		Healthy: true,
	}
	if c.History != nil {
		status.History = "unknown"
	}
	if c.Cache != nil {
		status.Cache = "unknown"
	}
	if c.Storage != nil {
		status.Storage = "unknown"
	}

	if c.History != nil {
		if err := c.History.Ping(ctx); err != nil {
			status.Healthy = false
			status.History = "unhealthy"
		} else {
			status.History = "healthy"
		}
	}

	if ctx.Err() != nil {
		return
	}

	if c.Cache != nil {
		if _, err := c.Cache.Get(ctx, "healthcheck"); err != cache.ErrNotFound && err != nil {
			status.Healthy = false
			status.Cache = "unhealthy"
		} else {
			status.Cache = "healthy"
		}
	}

	if ctx.Err() != nil {
		return
	}

	if c.Storage != nil {
		if _, err := c.Storage.Get(ctx, "healthcheck"); err != storage.ErrNotFound && err != nil {
			status.Healthy = false
			status.Storage = "unhealthy"
		} else {
			status.Storage = "healthy"
		}
	}

	channel <- status
}

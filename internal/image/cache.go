package image

import (
	"context"

	"github.com/adityawarman/citralab/internal/cache"
	"github.com/adityawarman/citralab/internal/storage"
	"github.com/adityawarman/citralab/internal/tracing"
)

// Cache is a read-through cache over the artifact storage, used by
// processors to load source images
type Cache = cache.Auto

// NewCache instantiates a new cache
func NewCache(tracer *tracing.Tracer, cacheProvider cache.Provider, storageProvider storage.Provider) *Cache {
	return &Cache{
		Tracer:   tracer,
		Provider: cacheProvider,
		Loader: func(ctx context.Context, key string) (data []byte, err error) {
			ctx, span := tracer.Start(ctx, "image.Cache.Loader")
			defer span.End()

			return storageProvider.Get(ctx, key)
		},
	}
}

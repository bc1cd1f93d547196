// Package cache keeps rendered post bodies in memory, keyed by a hash of the
// markdown source so an edit never serves stale HTML.
package cache

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"
)

type RenderCache struct {
	md    goldmark.Markdown
	store *ttlcache.Cache
	log   *zap.Logger
}

// NewRenderCache builds a cache holding at most size entries for ttl each.
// Raw HTML in the source is not passed through.
func NewRenderCache(ttl time.Duration, size int, log *zap.Logger) *RenderCache {
	if log == nil {
		log = zap.NewNop()
	}

	store := ttlcache.NewCache()
	store.SetTTL(ttl)
	store.SkipTTLExtensionOnHit(true)
	if size > 0 {
		store.SetCacheSizeLimit(size)
	}

	return &RenderCache{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Linkify,
			),
		),
		store: store,
		log:   log,
	}
}

// generateHash generates an xxHash hash for the given string
func generateHash(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

// Render returns the HTML for a markdown source, or the source itself when
// goldmark fails.
func (r *RenderCache) Render(source string) string {
	key := generateHash(source)

	if v, err := r.store.Get(key); err == nil {
		return v.(string)
	} else if !errors.Is(err, ttlcache.ErrNotFound) {
		r.log.Warn("Render cache lookup failed", zap.Error(err))
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		r.log.Warn("Failed to render markdown", zap.Error(err))
		return source
	}

	html := buf.String()
	if err := r.store.Set(key, html); err != nil {
		r.log.Warn("Failed to store rendered markdown", zap.Error(err))
	}
	return html
}

// Metrics exposes the store counters. Hits counts every lookup; lookups
// served from the cache are Retrievals.
func (r *RenderCache) Metrics() ttlcache.Metrics {
	return r.store.GetMetrics()
}

// Purge drops every cached entry.
func (r *RenderCache) Purge() error {
	return r.store.Purge()
}

func (r *RenderCache) Len() int {
	return r.store.Count()
}

func (r *RenderCache) Close() error {
	return r.store.Close()
}

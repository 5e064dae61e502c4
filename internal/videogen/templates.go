package videogen

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/reelcraft/backend/internal/models"
)

// ErrTemplateSourceUnavailable indicates the template lister is not configured.
var ErrTemplateSourceUnavailable = errors.New("videogen: template source unavailable")

// TemplateLister fetches the full template catalog from its remote source.
type TemplateLister interface {
	ListTemplates(ctx context.Context) ([]models.TemplateVideo, error)
}

// CachingTemplateLibrary wraps a TemplateLister with an age-based cache.
// The catalog changes rarely, so a listing stays fresh for the configured
// window, 24 hours by default, and is invalidated purely by age.
type CachingTemplateLibrary struct {
	base    TemplateLister
	ttl     time.Duration
	nowFunc func() time.Time

	mu        sync.RWMutex
	templates []models.TemplateVideo
	fetchedAt time.Time
}

// NewCachingTemplateLibrary returns a TemplateLister that caches listings
// for the provided TTL.
func NewCachingTemplateLibrary(base TemplateLister, ttl time.Duration) *CachingTemplateLibrary {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachingTemplateLibrary{
		base:    base,
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// WithNowFunc overrides the time source. Useful for tests.
func (c *CachingTemplateLibrary) WithNowFunc(now func() time.Time) *CachingTemplateLibrary {
	c.nowFunc = now
	return c
}

// ListTemplates returns the cached catalog while it is fresh, otherwise it
// delegates to the underlying lister and stores the result. A fetch failure
// with a stale cache present falls back to the stale copy.
func (c *CachingTemplateLibrary) ListTemplates(ctx context.Context) ([]models.TemplateVideo, error) {
	if c == nil || c.base == nil {
		return nil, ErrTemplateSourceUnavailable
	}

	now := c.nowFunc()

	c.mu.RLock()
	cached := c.templates
	fresh := cached != nil && now.Sub(c.fetchedAt) < c.ttl
	c.mu.RUnlock()
	if fresh {
		return cached, nil
	}

	templates, err := c.base.ListTemplates(ctx)
	if err != nil {
		if cached != nil {
			return cached, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.templates = templates
	c.fetchedAt = now
	c.mu.Unlock()

	return templates, nil
}

// Package kernel provides dependency injection management for the backend.
// It consolidates all services and provides type-safe access to dependencies.
package kernel

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dalilsuez/backend/internal/auth"
	"github.com/dalilsuez/backend/internal/cache"
	"github.com/dalilsuez/backend/internal/events"
	"github.com/dalilsuez/backend/internal/idempotency"
	"github.com/dalilsuez/backend/internal/logger"
	"github.com/dalilsuez/backend/internal/ratelimit"
	"github.com/dalilsuez/backend/internal/recommend"
	"github.com/dalilsuez/backend/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Kernel holds all application dependencies and provides type-safe access.
// It implements the Service Locator pattern with additional lifecycle management.
type Kernel struct {
	// Core infrastructure
	db     *gorm.DB
	logger *zap.Logger
	cache  *cache.RedisClient

	// Services
	auth        auth.ServiceInterface
	limiter     *ratelimit.Limiter
	idempotency *idempotency.Store
	events      *events.Service
	recommender *recommend.Resolver
	spans       *telemetry.BusinessEvents

	// Lifecycle hooks
	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

// New creates a new empty kernel.
// Services should be registered using Set* methods.
func New() *Kernel {
	return &Kernel{
		cleanupFuncs: make([]func(context.Context) error, 0),
	}
}

// SetDB registers the database connection
func (c *Kernel) SetDB(db *gorm.DB) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.db = db
	return c
}

// DB returns the database connection
func (c *Kernel) DB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// SetLogger registers the logger
func (c *Kernel) SetLogger(l *zap.Logger) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
	return c
}

// Logger returns the logger instance
func (c *Kernel) Logger() *zap.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.logger == nil {
		return logger.Log
	}
	return c.logger
}

// SetCache registers the Redis cache client
func (c *Kernel) SetCache(client *cache.RedisClient) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = client
	return c
}

// Cache returns the Redis cache client
func (c *Kernel) Cache() *cache.RedisClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache
}

// SetAuthService registers the auth service
func (c *Kernel) SetAuthService(svc auth.ServiceInterface) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = svc
	return c
}

// Auth returns the auth service
func (c *Kernel) Auth() auth.ServiceInterface {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.auth
}

// SetLimiter registers the in-process rate limiter
func (c *Kernel) SetLimiter(l *ratelimit.Limiter) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limiter = l
	return c
}

// Limiter returns the in-process rate limiter
func (c *Kernel) Limiter() *ratelimit.Limiter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.limiter
}

// SetIdempotencyStore registers the idempotency response cache
func (c *Kernel) SetIdempotencyStore(s *idempotency.Store) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idempotency = s
	return c
}

// IdempotencyStore returns the idempotency response cache
func (c *Kernel) IdempotencyStore() *idempotency.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idempotency
}

// SetEventsService registers the event log service
func (c *Kernel) SetEventsService(s *events.Service) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = s
	return c
}

// Events returns the event log service
func (c *Kernel) Events() *events.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.events
}

// SetRecommender registers the recommendation resolver
func (c *Kernel) SetRecommender(r *recommend.Resolver) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recommender = r
	return c
}

// Recommender returns the recommendation resolver
func (c *Kernel) Recommender() *recommend.Resolver {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recommender
}

// SetSpans registers the domain span helpers
func (c *Kernel) SetSpans(be *telemetry.BusinessEvents) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spans = be
	return c
}

// Spans returns the domain span helpers
func (c *Kernel) Spans() *telemetry.BusinessEvents {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.spans == nil {
		return telemetry.NewBusinessEvents()
	}
	return c.spans
}

// OnCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions are called in LIFO order (last registered, first cleaned up).
func (c *Kernel) OnCleanup(fn func(context.Context) error) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
	return c
}

// Cleanup performs graceful shutdown of all registered services.
// It calls cleanup functions in reverse order of registration.
// The lock is released before any function runs; calling Logger or another
// getter while holding it would block forever.
func (c *Kernel) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	log := c.logger
	c.mu.Unlock()

	if log == nil {
		log = logger.Log
	}

	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			log.Error("cleanup function failed",
				zap.Int("index", i),
				zap.Error(err),
			)
		}
	}

	return nil
}

// Validate checks that all required dependencies are registered.
// This should be called after initialization and before starting the server.
func (c *Kernel) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	missingDeps := []string{}

	if c.db == nil {
		missingDeps = append(missingDeps, "database (DB)")
	}
	if c.auth == nil {
		missingDeps = append(missingDeps, "auth service")
	}
	if c.limiter == nil {
		missingDeps = append(missingDeps, "rate limiter")
	}
	if c.idempotency == nil {
		missingDeps = append(missingDeps, "idempotency store")
	}
	if c.events == nil {
		missingDeps = append(missingDeps, "events service")
	}
	if c.recommender == nil {
		missingDeps = append(missingDeps, "recommendation resolver")
	}

	if len(missingDeps) > 0 {
		return fmt.Errorf("missing required dependencies: %s", strings.Join(missingDeps, ", "))
	}

	return nil
}

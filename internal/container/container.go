// Package container owns the process-wide resources of the campuslink
// backend and shuts them down in reverse order of registration.
package container

import (
	"context"
	"errors"
	"sync"

	"github.com/campuslink/backend/internal/auth"
	"github.com/campuslink/backend/internal/cache"
	"github.com/campuslink/backend/internal/chat"
	"github.com/campuslink/backend/internal/events"
	"github.com/campuslink/backend/internal/logger"
	"github.com/campuslink/backend/internal/storage"
	"github.com/campuslink/backend/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds all application dependencies. Nothing in the service
// reads a package-level DB or hub; everything is handed out from here.
type Container struct {
	// Core infrastructure
	db     *gorm.DB
	logger *zap.Logger
	cache  *cache.RedisClient

	// Chat
	auth        *auth.Service
	hub         *websocket.Hub
	wsHandler   *websocket.Handler
	coordinator *chat.Coordinator

	// Optional outbound integrations
	publisher events.Publisher
	uploader  storage.MediaUploader

	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

// New creates a new empty container.
func New() *Container {
	return &Container{
		cleanupFuncs: make([]func(context.Context) error, 0),
	}
}

// SetDB registers the database connection
func (c *Container) SetDB(db *gorm.DB) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.db = db
	return c
}

// DB returns the database connection
func (c *Container) DB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

func (c *Container) SetLogger(l *zap.Logger) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
	return c
}

// Logger falls back to the global logger.
func (c *Container) Logger() *zap.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loggerLocked()
}

func (c *Container) loggerLocked() *zap.Logger {
	if c.logger == nil {
		return logger.Log
	}
	return c.logger
}

// SetCache registers the Redis client. Nil means Redis is not configured.
func (c *Container) SetCache(client *cache.RedisClient) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = client
	return c
}

func (c *Container) Cache() *cache.RedisClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache
}

func (c *Container) SetAuthService(service *auth.Service) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = service
	return c
}

func (c *Container) Auth() *auth.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.auth
}

// SetHub registers the realtime hub
func (c *Container) SetHub(hub *websocket.Hub) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hub = hub
	return c
}

func (c *Container) Hub() *websocket.Hub {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hub
}

// SetWebSocketHandler registers the WebSocket handler
func (c *Container) SetWebSocketHandler(handler *websocket.Handler) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wsHandler = handler
	return c
}

func (c *Container) WebSocket() *websocket.Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.wsHandler
}

func (c *Container) SetCoordinator(coordinator *chat.Coordinator) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coordinator = coordinator
	return c
}

func (c *Container) Coordinator() *chat.Coordinator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.coordinator
}

// SetPublisher registers the event publisher
func (c *Container) SetPublisher(p events.Publisher) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publisher = p
	return c
}

// Publisher never returns nil.
func (c *Container) Publisher() events.Publisher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.publisher == nil {
		return events.NopPublisher{}
	}
	return c.publisher
}

func (c *Container) SetUploader(u storage.MediaUploader) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploader = u
	return c
}

// Uploader returns nil when media storage is not configured.
func (c *Container) Uploader() storage.MediaUploader {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.uploader
}

// OnCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions are called in LIFO order (last registered, first cleaned up).
func (c *Container) OnCleanup(fn func(context.Context) error) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
	return c
}

// Cleanup runs every cleanup function even when earlier ones fail and
// returns the joined errors. Functions run at most once.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	// Run unlocked so cleanup functions may use the getters.
	var errs []error
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			c.Logger().Error("Cleanup function failed", zap.Int("index", i), zap.Error(err))
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Validate checks that all required dependencies are registered.
func (c *Container) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	missingDeps := []string{}

	if c.db == nil {
		missingDeps = append(missingDeps, "database (DB)")
	}
	if c.auth == nil {
		missingDeps = append(missingDeps, "auth service")
	}
	if c.hub == nil {
		missingDeps = append(missingDeps, "realtime hub")
	}
	if c.coordinator == nil {
		missingDeps = append(missingDeps, "delivery coordinator")
	}

	if len(missingDeps) > 0 {
		return NewInitializationError("Missing required dependencies", missingDeps)
	}

	if c.cache == nil {
		c.loggerLocked().Info("Redis not configured; rate limiting and feed cache disabled")
	}
	if c.uploader == nil {
		c.loggerLocked().Info("Media storage not configured; posts with media will be refused")
	}
	return nil
}

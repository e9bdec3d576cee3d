package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/smarta/server/internal/metrics"
)

// ProviderFactory builds an unstarted provider for a client instance
type ProviderFactory func(clientID string) (*Provider, error)

type registryEntry struct {
	provider *Provider
	lastSeen time.Time
}

// Registry keeps one started Provider per client instance and tears them
// down when idle or at shutdown.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	factory ProviderFactory
	idleTTL time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	stop    chan struct{}
	stopped sync.Once
}

// NewRegistry creates a registry and starts its idle janitor
func NewRegistry(factory ProviderFactory, idleTTL time.Duration, logger *slog.Logger, m *metrics.Metrics) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Registry{
		entries: make(map[string]*registryEntry),
		factory: factory,
		idleTTL: idleTTL,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	// Cleanup goroutine to evict idle providers
	if idleTTL > 0 {
		go r.janitor()
	}

	return r
}

// Get returns the provider for clientID, creating and starting it on first use
func (r *Registry) Get(ctx context.Context, clientID string) (*Provider, error) {
	r.mu.Lock()
	if entry, ok := r.entries[clientID]; ok {
		entry.lastSeen = r.now()
		r.mu.Unlock()
		return entry.provider, nil
	}
	r.mu.Unlock()

	provider, err := r.factory(clientID)
	if err != nil {
		return nil, fmt.Errorf("create session provider: %w", err)
	}
	if err := provider.Start(ctx); err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("start session provider: %w", err)
	}

	r.mu.Lock()
	if entry, ok := r.entries[clientID]; ok {
		// Lost a creation race; keep the first provider.
		entry.lastSeen = r.now()
		r.mu.Unlock()
		_ = provider.Close()
		return entry.provider, nil
	}
	r.entries[clientID] = &registryEntry{provider: provider, lastSeen: r.now()}
	count := len(r.entries)
	r.mu.Unlock()

	r.metrics.SetActiveClients(count)
	return provider, nil
}

// Len returns the number of live providers
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close stops the janitor and closes every provider
func (r *Registry) Close() {
	r.stopped.Do(func() { close(r.stop) })

	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	for clientID, entry := range entries {
		if err := entry.provider.Close(); err != nil {
			r.logger.Warn("failed to close session provider", "client_id", clientID, "error", err)
		}
	}
	r.metrics.SetActiveClients(0)
}

// evictIdle closes providers not seen since idleTTL before now
func (r *Registry) evictIdle(now time.Time) int {
	cutoff := now.Add(-r.idleTTL)

	r.mu.Lock()
	var evicted []*Provider
	for clientID, entry := range r.entries {
		if entry.lastSeen.Before(cutoff) {
			evicted = append(evicted, entry.provider)
			delete(r.entries, clientID)
		}
	}
	count := len(r.entries)
	r.mu.Unlock()

	for _, p := range evicted {
		_ = p.Close()
	}
	if len(evicted) > 0 {
		r.logger.Info("evicted idle session providers", "count", len(evicted))
	}
	r.metrics.SetActiveClients(count)
	return len(evicted)
}

func (r *Registry) janitor() {
	interval := r.idleTTL / 4
	if interval > time.Hour {
		interval = time.Hour
	}
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle(r.now())
		case <-r.stop:
			return
		}
	}
}

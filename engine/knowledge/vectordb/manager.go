package vectordb

import (
	"context"
	"fmt"
	"sync"

	"github.com/compozy/docchat/pkg/logger"
)

// Manager hands out one store per configuration ID so that the indexer and the
// retriever of a process work on the same records. A store is closed when its
// last holder releases it.
type Manager struct {
	mu     sync.Mutex
	leases map[string]*lease
}

type lease struct {
	store   Store
	config  Config
	holders int
}

var defaultManager = NewManager()

func NewManager() *Manager {
	return &Manager{leases: make(map[string]*lease)}
}

// AcquireShared opens or reuses the store for cfg from the process-wide manager.
func AcquireShared(ctx context.Context, cfg *Config) (Store, func(context.Context) error, error) {
	return defaultManager.AcquireShared(ctx, cfg)
}

// AcquireShared returns the store for cfg.ID and a release function that is
// safe to call more than once. Asking for an open ID with a different
// provider, path or dimension is an error.
func (m *Manager) AcquireShared(ctx context.Context, cfg *Config) (Store, func(context.Context) error, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leases[cfg.ID]
	if ok && l.config != *cfg {
		return nil, nil, fmt.Errorf(
			"vector_db %q: already open as %s %q with dimension %d",
			cfg.ID, l.config.Provider, l.config.Path, l.config.Dimension,
		)
	}
	if !ok {
		store, err := instantiateStore(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		l = &lease{store: store, config: *cfg}
		m.leases[cfg.ID] = l
		logger.FromContext(ctx).Debug("Vector store opened", "id", cfg.ID, "provider", cfg.Provider, "path", cfg.Path)
	}
	l.holders++
	return l.store, m.releaser(cfg.ID, l), nil
}

func (m *Manager) releaser(id string, l *lease) func(context.Context) error {
	var once sync.Once
	return func(ctx context.Context) error {
		var err error
		once.Do(func() {
			m.mu.Lock()
			l.holders--
			last := l.holders == 0
			if last {
				delete(m.leases, id)
			}
			m.mu.Unlock()
			if last {
				err = l.store.Close(ctx)
			}
		})
		return err
	}
}

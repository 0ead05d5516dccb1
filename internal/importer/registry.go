package importer

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// DepsFactory собирает зависимости для новой сессии (свой кэш справочников на сессию)
type DepsFactory func() Deps

// Registry активные сессии по идентификатору
type Registry struct {
	factory DepsFactory
	ttl     time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session

	cron *cron.Cron
}

// NewRegistry создает реестр; ttl <= 0 отключает очистку
func NewRegistry(factory DepsFactory, ttl time.Duration) *Registry {
	return &Registry{
		factory:  factory,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Create новая пустая сессия
func (r *Registry) Create() *Session {
	var deps Deps
	if r.factory != nil {
		deps = r.factory()
	}
	s := NewSession(uuid.NewString(), deps)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get сессия по идентификатору
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Delete закрывает сессию
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

// Len количество сессий
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sessions все активные сессии
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Sweep удаляет сессии без активности дольше ttl
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if now.Sub(s.LastActivity()) > r.ttl {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// StartJanitor запускает периодическую очистку по cron-расписанию
func (r *Registry) StartJanitor(spec string) error {
	if r.ttl <= 0 || spec == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if n := r.Sweep(time.Now()); n > 0 {
			log.Printf("удалено устаревших сессий: %d", n)
		}
	}); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}
	c.Start()
	r.cron = c
	return nil
}

// Stop останавливает очистку
func (r *Registry) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

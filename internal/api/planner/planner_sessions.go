package planner

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

var ErrSessionNotFound = errors.New("planner: session not found")

// Sessions keeps planning sessions in memory. Idle sessions expire after
// the configured TTL; every access extends it.
type Sessions struct {
	logger         *slog.Logger
	planner        Service
	requestTimeout time.Duration
	items          *cache.Cache
}

func NewSessions(planner Service, requestTimeout, ttl time.Duration, logger *slog.Logger) *Sessions {
	return &Sessions{
		logger:         logger,
		planner:        planner,
		requestTimeout: requestTimeout,
		items:          cache.New(ttl, ttl/2),
	}
}

func (s *Sessions) Create() *Orchestrator {
	id := uuid.NewString()
	o := NewOrchestrator(id, s.planner, s.requestTimeout, s.logger)
	s.items.Set(id, o, cache.DefaultExpiration)
	return o
}

func (s *Sessions) Get(id string) (*Orchestrator, error) {
	v, found := s.items.Get(id)
	if !found {
		return nil, ErrSessionNotFound
	}
	o := v.(*Orchestrator)
	s.items.Set(id, o, cache.DefaultExpiration)
	return o, nil
}

func (s *Sessions) Len() int {
	return s.items.ItemCount()
}

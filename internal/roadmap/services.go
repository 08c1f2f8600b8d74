package roadmap

import (
	"sync"

	"github.com/hpungsan/roadmap/internal/completion"
	"github.com/hpungsan/roadmap/internal/logger"
	"github.com/hpungsan/roadmap/internal/prompt"
)

// ClientFactory builds the completion client for a variant.
type ClientFactory func(v prompt.Variant) (completion.Client, error)

// Services hands out one Service per variant, building each on first use.
type Services struct {
	build ClientFactory
	log   *logger.Logger

	mu        sync.Mutex
	byVariant map[prompt.Variant]*Service
}

// NewServices creates an empty Services cache.
func NewServices(build ClientFactory, log *logger.Logger) *Services {
	return &Services{build: build, log: log, byVariant: make(map[prompt.Variant]*Service)}
}

// For returns the Service for v.
func (s *Services) For(v prompt.Variant) (*Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if svc, ok := s.byVariant[v]; ok {
		return svc, nil
	}
	client, err := s.build(v)
	if err != nil {
		return nil, err
	}
	svc := NewService(client, v, s.log)
	s.byVariant[v] = svc
	return svc, nil
}

package core

import (
	"context"
	"sync"

	"synthesis.io/tutor-backend/internal/logger"
	"synthesis.io/tutor-backend/internal/store"
)

type ModuleStore interface {
	ListModules(ctx context.Context) ([]store.Module, error)
	SeedModules(ctx context.Context, defaults []store.Module) (int, error)
}

func DefaultModules() []store.Module {
	return []store.Module{
		{
			Name:        "Introduction to Numbers",
			Description: "Learn about numbers and basic operations",
			Subject:     "Math",
			Difficulty:  1,
			Locked:      false,
		},
		{
			Name:        "Reading Comprehension",
			Description: "Improve your understanding of written text",
			Subject:     "English",
			Difficulty:  1,
			Locked:      false,
		},
		{
			Name:        "Basic Science Concepts",
			Description: "Introduction to science fundamentals",
			Subject:     "Science",
			Difficulty:  1,
			Locked:      false,
		},
		{
			Name:         "Advanced Mathematics",
			Description:  "Complex math operations and problem solving",
			Subject:      "Math",
			Difficulty:   3,
			Locked:       true,
			Requirements: []string{"Introduction to Numbers"},
		},
	}
}

type ModuleCatalog struct {
	store ModuleStore
	log   *logger.Logger

	seedOnce sync.Once
	seedErr  error
}

func NewModuleCatalog(ms ModuleStore, log *logger.Logger) *ModuleCatalog {
	return &ModuleCatalog{store: ms, log: log}
}

// EnsureSeeded populates the default catalog if it is empty. It runs at most
// once per catalog; later calls return the first result.
func (c *ModuleCatalog) EnsureSeeded(ctx context.Context) error {
	c.seedOnce.Do(func() {
		n, err := c.store.SeedModules(ctx, DefaultModules())
		if err != nil {
			c.seedErr = err
			return
		}
		if n > 0 {
			c.log.Info("Seeded default modules", "count", n)
		}
	})
	return c.seedErr
}

func (c *ModuleCatalog) ListModules(ctx context.Context) ([]store.Module, error) {
	return c.store.ListModules(ctx)
}

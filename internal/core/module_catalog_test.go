package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthesis.io/tutor-backend/internal/logger"
	"synthesis.io/tutor-backend/internal/store"
)

type countingModuleStore struct {
	mu    sync.Mutex
	seeds int
	err   error
}

func (c *countingModuleStore) ListModules(ctx context.Context) ([]store.Module, error) {
	return nil, nil
}

func (c *countingModuleStore) SeedModules(ctx context.Context, defaults []store.Module) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seeds++
	return len(defaults), c.err
}

func TestModuleCatalog_EnsureSeededRunsOnce(t *testing.T) {
	ms := &countingModuleStore{}
	catalog := NewModuleCatalog(ms, logger.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, catalog.EnsureSeeded(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ms.seeds)
}

func TestModuleCatalog_EnsureSeededRemembersError(t *testing.T) {
	boom := errors.New("boom")
	catalog := NewModuleCatalog(&countingModuleStore{err: boom}, logger.NewNop())

	assert.ErrorIs(t, catalog.EnsureSeeded(context.Background()), boom)
	assert.ErrorIs(t, catalog.EnsureSeeded(context.Background()), boom)
}

func TestModuleCatalog_SeedsDefaultsIntoStore(t *testing.T) {
	db := openTestStore(t)
	catalog := NewModuleCatalog(db, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, catalog.EnsureSeeded(ctx))
	// A second catalog over the same store must not duplicate rows.
	require.NoError(t, NewModuleCatalog(db, logger.NewNop()).EnsureSeeded(ctx))

	modules, err := catalog.ListModules(ctx)
	require.NoError(t, err)
	require.Len(t, modules, len(DefaultModules()))

	advanced := modules[3]
	assert.Equal(t, "Advanced Mathematics", advanced.Name)
	assert.True(t, advanced.Locked)
	assert.Equal(t, []string{"Introduction to Numbers"}, advanced.Requirements)
	for _, m := range modules {
		assert.NotEmpty(t, m.ID)
	}
}

package jobs

import (
	"context"
	"errors"
	"log"
	"testing"

	"github.com/storepulse/backend/pkg/models"
	"github.com/storepulse/backend/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStores(t *testing.T, repo *storage.MemoryRepository, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := repo.Create(context.Background(), &models.Store{Name: "store"})
		require.NoError(t, err)
	}
}

func TestForEachStoreIsolatesFailures(t *testing.T) {
	repo := storage.NewMemoryRepository()
	seedStores(t, repo, 3)

	cm := NewCronManager(repo, nil, nil, log.Default())

	var processed []int
	cm.forEachStore(context.Background(), "daily_spend", func(ctx context.Context, store *models.Store) error {
		processed = append(processed, store.ID)
		if store.ID == 2 {
			return errors.New("provider down")
		}
		return nil
	})

	// The failing store does not stop the ones after it
	assert.Len(t, processed, 3)
}

func TestForEachStoreStopsOnCancelledContext(t *testing.T) {
	repo := storage.NewMemoryRepository()
	seedStores(t, repo, 3)

	cm := NewCronManager(repo, nil, nil, log.Default())

	ctx, cancel := context.WithCancel(context.Background())

	var processed int
	cm.forEachStore(ctx, "traffic", func(ctx context.Context, store *models.Store) error {
		processed++
		cancel() // cancel mid-run; remaining stores must be skipped
		return nil
	})

	assert.Equal(t, 1, processed)
}

func TestSetupJobsRegistersSchedules(t *testing.T) {
	cm := NewCronManager(storage.NewMemoryRepository(), nil, nil, log.Default())
	require.NoError(t, cm.SetupJobs())
	assert.Len(t, cm.cron.Entries(), 5)
}

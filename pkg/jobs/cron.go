package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/storepulse/backend/pkg/dates"
	"github.com/storepulse/backend/pkg/metrics"
	"github.com/storepulse/backend/pkg/models"
	"github.com/storepulse/backend/pkg/storage"
	"github.com/storepulse/backend/pkg/sync"
)

// CronManager manages scheduled sync jobs. All schedules run in IST because
// the daily buckets are IST civil dates.
type CronManager struct {
	cron    *cron.Cron
	stores  storage.StoreRepository
	syncer  *sync.Service
	metrics *metrics.Metrics
	logger  *log.Logger
}

// NewCronManager creates a new cron manager
func NewCronManager(stores storage.StoreRepository, syncer *sync.Service, m *metrics.Metrics, logger *log.Logger) *CronManager {
	if logger == nil {
		logger = log.Default()
	}

	return &CronManager{
		cron:    cron.New(cron.WithLocation(dates.IST)),
		stores:  stores,
		syncer:  syncer,
		metrics: m,
		logger:  logger,
	}
}

// SetupJobs configures all scheduled jobs
func (cm *CronManager) SetupJobs() error {
	cm.logger.Println("Setting up cron jobs...")

	// Daily at 1:30 AM IST: sync yesterday's spend and orders for every store
	_, err := cm.cron.AddFunc("30 1 * * *", func() {
		cm.logger.Println("🕐 Running daily metrics sync job...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		yesterday := dates.YesterdayIST()
		cm.forEachStore(ctx, "daily_spend", func(ctx context.Context, store *models.Store) error {
			_, err := cm.syncer.SyncDay(ctx, store, yesterday)
			return err
		})

		cm.logger.Println("✅ Daily metrics sync job completed")
	})
	if err != nil {
		return err
	}

	// Daily at 3 AM IST: rebuild product analytics over the last 30 days
	_, err = cm.cron.AddFunc("0 3 * * *", func() {
		cm.logger.Println("🕐 Running daily product sync job...")

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Hour)
		defer cancel()

		window := &models.Window{From: dates.DaysAgoIST(30), To: dates.YesterdayIST()}
		cm.forEachStore(ctx, "products", func(ctx context.Context, store *models.Store) error {
			_, err := cm.syncer.SyncProducts(ctx, store, window)
			return err
		})

		cm.logger.Println("✅ Daily product sync job completed")
	})
	if err != nil {
		return err
	}

	// Monthly on the 1st at 4 AM IST: rebuild all-time product analytics
	_, err = cm.cron.AddFunc("0 4 1 * *", func() {
		cm.logger.Println("🕐 Running monthly all-time product sync job...")

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
		defer cancel()

		cm.forEachStore(ctx, "products_all_time", func(ctx context.Context, store *models.Store) error {
			_, err := cm.syncer.SyncProducts(ctx, store, nil)
			return err
		})

		cm.logger.Println("✅ Monthly all-time product sync job completed")
	})
	if err != nil {
		return err
	}

	// Daily at 5 AM IST: rebuild traffic analytics for the last 7 days
	_, err = cm.cron.AddFunc("0 5 * * *", func() {
		cm.logger.Println("🕐 Running daily traffic sync job...")

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Hour)
		defer cancel()

		window := models.Window{From: dates.DaysAgoIST(7), To: dates.YesterdayIST()}
		cm.forEachStore(ctx, "traffic", func(ctx context.Context, store *models.Store) error {
			_, err := cm.syncer.SyncTraffic(ctx, store, window)
			return err
		})

		cm.logger.Println("✅ Daily traffic sync job completed")
	})
	if err != nil {
		return err
	}

	// Weekly on Sunday at 6 AM IST: rebuild traffic analytics for 30 days
	_, err = cm.cron.AddFunc("0 6 * * 0", func() {
		cm.logger.Println("🕐 Running weekly traffic sync job...")

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Hour)
		defer cancel()

		window := models.Window{From: dates.DaysAgoIST(30), To: dates.YesterdayIST()}
		cm.forEachStore(ctx, "traffic_weekly", func(ctx context.Context, store *models.Store) error {
			_, err := cm.syncer.SyncTraffic(ctx, store, window)
			return err
		})

		cm.logger.Println("✅ Weekly traffic sync job completed")
	})
	if err != nil {
		return err
	}

	cm.logger.Printf("Configured %d cron jobs", len(cm.cron.Entries()))
	return nil
}

// forEachStore runs fn sequentially for every store. One store's failure is
// logged and skipped so the rest still sync; a cancelled context stops the
// loop between stores.
func (cm *CronManager) forEachStore(ctx context.Context, job string, fn func(context.Context, *models.Store) error) {
	start := time.Now()

	storeList, err := cm.stores.List(ctx)
	if err != nil {
		cm.logger.Printf("❌ [%s] Failed to list stores: %v", job, err)
		if cm.metrics != nil {
			cm.metrics.RecordSyncRun(job, false)
		}
		return
	}

	failed := 0
	for i := range storeList {
		if ctx.Err() != nil {
			cm.logger.Printf("⚠️ [%s] Context cancelled, stopping after %d stores", job, i)
			break
		}

		store := &storeList[i]
		if err := fn(ctx, store); err != nil {
			failed++
			cm.logger.Printf("❌ [%s] Store %d (%s) failed: %v", job, store.ID, store.Name, err)
			if cm.metrics != nil {
				cm.metrics.RecordStoreProcessed(job, false)
			}
			continue
		}
		if cm.metrics != nil {
			cm.metrics.RecordStoreProcessed(job, true)
		}
	}

	if cm.metrics != nil {
		cm.metrics.RecordSyncRun(job, failed == 0)
		cm.metrics.RecordSyncDuration(job, time.Since(start))
	}
	cm.logger.Printf("[%s] Processed %d stores (%d failed) in %s",
		job, len(storeList), failed, time.Since(start).Round(time.Millisecond))
}

// Start begins running scheduled jobs
func (cm *CronManager) Start() {
	cm.logger.Println("Starting cron scheduler...")
	cm.cron.Start()
}

// Stop gracefully stops the cron scheduler
func (cm *CronManager) Stop() {
	cm.logger.Println("Stopping cron scheduler...")
	ctx := cm.cron.Stop()
	<-ctx.Done()
	cm.logger.Println("Cron scheduler stopped")
}

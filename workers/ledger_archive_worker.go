// workers/ledger_archive_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/sidneypayan/linguami-sub005/models"
	"github.com/sidneypayan/linguami-sub005/services"
	"github.com/sidneypayan/linguami-sub005/utils"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// LedgerArchiveWorker exports the previous month's ledger slice to R2 as
// JSON. The ledger is append-only, so a closed month never changes and one
// export per month is enough.
type LedgerArchiveWorker struct {
	DB *gorm.DB
}

func NewLedgerArchiveWorker(db *gorm.DB) *LedgerArchiveWorker {
	return &LedgerArchiveWorker{DB: db}
}

// StartMonthly registers the export job for the 1st of each month, 04:00 UTC.
func (w *LedgerArchiveWorker) StartMonthly(sched gocron.Scheduler) error {
	_, err := sched.NewJob(
		gocron.MonthlyJob(1,
			gocron.NewDaysOfTheMonth(1),
			gocron.NewAtTimes(gocron.NewAtTime(4, 0, 0)),
		),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if err := w.ArchivePreviousMonth(ctx, time.Now()); err != nil {
				log.Printf("❌ [ARCHIVE] monthly export failed: %v", err)
			}
		}),
	)
	return err
}

// previousMonth returns the calendar month before the one containing ref.
// Stepping back from the month start avoids AddDate's day-of-month
// normalization (Mar 31 minus one month lands on Mar 3, not in February).
func previousMonth(ref time.Time) services.Period {
	return services.MonthBounds(services.MonthBounds(ref).Start.AddDate(0, 0, -1))
}

// ArchivePreviousMonth exports the month before the one containing ref.
func (w *LedgerArchiveWorker) ArchivePreviousMonth(ctx context.Context, ref time.Time) error {
	if !utils.R2Enabled() {
		log.Println("➡️ [ARCHIVE] R2 not configured — skipping ledger export")
		return nil
	}

	month := previousMonth(ref)

	var entries []models.XpTransaction
	err := w.DB.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", month.Start, month.End.AddDate(0, 0, 1)).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return fmt.Errorf("load month slice: %w", err)
	}
	if len(entries) == 0 {
		log.Printf("➡️ [ARCHIVE] no transactions for %s — nothing to export", month.Start.Format("2006-01"))
		return nil
	}

	payload, err := json.Marshal(struct {
		PeriodStart  time.Time              `json:"period_start"`
		PeriodEnd    time.Time              `json:"period_end"`
		Count        int                    `json:"count"`
		Transactions []models.XpTransaction `json:"transactions"`
	}{month.Start, month.End, len(entries), entries})
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}

	key := fmt.Sprintf("ledger/%s.json", month.Start.Format("2006-01"))
	if err := utils.UploadToR2(ctx, key, "application/json", payload); err != nil {
		return err
	}

	log.Printf("📦 [ARCHIVE] exported %d transactions to %s", len(entries), key)
	return nil
}

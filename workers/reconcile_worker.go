// workers/reconcile_worker.go
package workers

import (
	"log"
	"time"

	"github.com/sidneypayan/linguami-sub005/models"
	"github.com/sidneypayan/linguami-sub005/services"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// ReconcileWorker replays the ledger nightly and repairs any drift between
// the xp_transactions sums (the system of record) and the cached totals on
// user_progresses. Drift can only come from a partial failure between the
// best-effort bonus steps; the ledger always wins.
type ReconcileWorker struct {
	DB    *gorm.DB
	Curve services.LevelCurve
}

func NewReconcileWorker(db *gorm.DB, curve services.LevelCurve) *ReconcileWorker {
	if curve.BaseXP <= 0 {
		curve = services.DefaultLevelCurve
	}
	return &ReconcileWorker{DB: db, Curve: curve}
}

// StartNightly registers the reconcile job at 03:10 UTC on the shared scheduler.
func (w *ReconcileWorker) StartNightly(sched gocron.Scheduler) error {
	_, err := sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 10, 0))),
		gocron.NewTask(func() {
			if err := w.ReconcileAll(); err != nil {
				log.Printf("❌ [RECONCILE] run failed: %v", err)
			}
		}),
	)
	return err
}

type ledgerSums struct {
	ExternalUserID string
	XPSum          int64
	GoldSum        int64
}

// ReconcileAll walks every profile and overwrites totals that disagree with
// the ledger.
func (w *ReconcileWorker) ReconcileAll() error {
	started := time.Now()

	var sums []ledgerSums
	err := w.DB.Model(&models.XpTransaction{}).
		Select("external_user_id, COALESCE(SUM(xp_amount),0) AS xp_sum, COALESCE(SUM(gold_amount),0) AS gold_sum").
		Group("external_user_id").
		Scan(&sums).Error
	if err != nil {
		return err
	}

	repaired := 0
	for _, s := range sums {
		// Level is derived from total_xp, so it gets repaired together with
		// the totals it is computed from.
		level, _ := w.Curve.LevelFromXP(s.XPSum)
		res := w.DB.Model(&models.UserProgress{}).
			Where("external_user_id = ? AND (total_xp <> ? OR total_gold <> ? OR level <> ?)",
				s.ExternalUserID, s.XPSum, s.GoldSum, level).
			Updates(map[string]interface{}{
				"total_xp":   s.XPSum,
				"total_gold": s.GoldSum,
				"level":      level,
			})
		if res.Error != nil {
			log.Printf("⚠️ [RECONCILE] repair failed for %s: %v", s.ExternalUserID, res.Error)
			continue
		}
		if res.RowsAffected > 0 {
			repaired++
			log.Printf("🔧 [RECONCILE] repaired totals for %s (xp=%d, gold=%d, lvl=%d)", s.ExternalUserID, s.XPSum, s.GoldSum, level)
		}
	}

	log.Printf("✅ [RECONCILE] checked %d users, repaired %d in %s", len(sums), repaired, time.Since(started).Round(time.Millisecond))
	return nil
}

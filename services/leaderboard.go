package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sidneypayan/linguami-sub005/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// LeaderboardEntry is one ranked row of a weekly leaderboard.
type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	ExternalUserID string `json:"external_user_id"`
	XP             int64  `json:"xp"`
}

// LeaderboardService ranks users by weekly XP from the materialized
// period_xp_trackings sums. A Redis sorted set caches the ranking; the cache
// is strictly optional — with a nil client every read falls through to SQL.
type LeaderboardService struct {
	DB    *gorm.DB
	Redis *redis.Client
	TTL   time.Duration
}

func NewLeaderboardService(db *gorm.DB, rdb *redis.Client) *LeaderboardService {
	return &LeaderboardService{DB: db, Redis: rdb, TTL: 2 * time.Minute}
}

func weeklyKey(weekStart time.Time) string {
	return "leaderboard:weekly:" + weekStart.Format(time.DateOnly)
}

// WeeklyTop returns the top N users for the week containing ref.
func (s *LeaderboardService) WeeklyTop(ctx context.Context, ref time.Time, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	weekStart := WeekBounds(ref).Start

	if entries, ok := s.readCache(ctx, weekStart, limit); ok {
		return entries, nil
	}

	var rows []models.PeriodXpTracking
	err := s.DB.WithContext(ctx).
		Where("period_type = ? AND period_start = ?", models.GoalTypeWeekly, weekStart).
		Order("xp_total DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("weekly leaderboard query: %w", err)
	}

	entries := make([]LeaderboardEntry, len(rows))
	for i, row := range rows {
		entries[i] = LeaderboardEntry{Rank: i + 1, ExternalUserID: row.ExternalUserID, XP: row.XPTotal}
	}

	s.writeCache(ctx, weekStart, entries)
	return entries, nil
}

// WeeklyRank returns the user's 1-based rank this week, or 0 when they have
// no tracked XP yet.
func (s *LeaderboardService) WeeklyRank(ctx context.Context, ref time.Time, externalUserID string) (int, int64, error) {
	weekStart := WeekBounds(ref).Start

	if s.Redis != nil {
		rank, err := s.Redis.ZRevRank(ctx, weeklyKey(weekStart), externalUserID).Result()
		if err == nil {
			score, _ := s.Redis.ZScore(ctx, weeklyKey(weekStart), externalUserID).Result()
			return int(rank) + 1, int64(score), nil
		}
		if !errors.Is(err, redis.Nil) {
			log.Printf("⚠️ [LEADERBOARD] redis rank lookup failed: %v", err)
		}
	}

	var row models.PeriodXpTracking
	err := s.DB.WithContext(ctx).
		Where("external_user_id = ? AND period_type = ? AND period_start = ?",
			externalUserID, models.GoalTypeWeekly, weekStart).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	var ahead int64
	err = s.DB.WithContext(ctx).Model(&models.PeriodXpTracking{}).
		Where("period_type = ? AND period_start = ? AND xp_total > ?",
			models.GoalTypeWeekly, weekStart, row.XPTotal).
		Count(&ahead).Error
	if err != nil {
		return 0, 0, err
	}
	return int(ahead) + 1, row.XPTotal, nil
}

func (s *LeaderboardService) readCache(ctx context.Context, weekStart time.Time, limit int) ([]LeaderboardEntry, bool) {
	if s.Redis == nil {
		return nil, false
	}
	zs, err := s.Redis.ZRevRangeWithScores(ctx, weeklyKey(weekStart), 0, int64(limit-1)).Result()
	if err != nil || len(zs) == 0 {
		if err != nil && !errors.Is(err, redis.Nil) {
			log.Printf("⚠️ [LEADERBOARD] cache read failed: %v", err)
		}
		return nil, false
	}
	entries := make([]LeaderboardEntry, len(zs))
	for i, z := range zs {
		id, _ := z.Member.(string)
		entries[i] = LeaderboardEntry{Rank: i + 1, ExternalUserID: id, XP: int64(z.Score)}
	}
	return entries, true
}

func (s *LeaderboardService) writeCache(ctx context.Context, weekStart time.Time, entries []LeaderboardEntry) {
	if s.Redis == nil || len(entries) == 0 {
		return
	}
	key := weeklyKey(weekStart)
	members := make([]redis.Z, len(entries))
	for i, e := range entries {
		members[i] = redis.Z{Score: float64(e.XP), Member: e.ExternalUserID}
	}
	pipe := s.Redis.Pipeline()
	pipe.ZAdd(ctx, key, members...)
	pipe.Expire(ctx, key, s.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("⚠️ [LEADERBOARD] cache write failed: %v", err)
	}
}

package stats

import (
	"context"
	"time"

	"github.com/niedraa/typevision-server/domain"
	"github.com/niedraa/typevision-server/logger"
	"github.com/redis/go-redis/v9"
)

const leaderboardKey = "leaderboard:wpm"

type StatsRepo interface {
	RecordRaceResult(ctx context.Context, result domain.RaceResult) (domain.UserStats, error)
	GetUserStats(ctx context.Context, userId string) (domain.UserStats, error)
	UnlockAchievement(ctx context.Context, userId, code string) error
	GetAchievements(ctx context.Context, userId string) ([]domain.Achievement, error)
}

type UserGetter interface {
	GetUserById(ctx context.Context, id string) (domain.User, error)
}

// achievementRule unlocks when its predicate first holds on a player's
// aggregates. Unlocks are idempotent so re-evaluating is harmless.
type achievementRule struct {
	code string
	test func(domain.UserStats) bool
}

var achievementRules = []achievementRule{
	{"first_race", func(s domain.UserStats) bool { return s.RacesPlayed >= 1 }},
	{"first_win", func(s domain.UserStats) bool { return s.RacesWon >= 1 }},
	{"speed_demon", func(s domain.UserStats) bool { return s.BestWPM >= 100 }},
	{"sharpshooter", func(s domain.UserStats) bool { return s.RacesPlayed >= 10 && s.AvgAccuracy >= 0.98 }},
	{"marathon", func(s domain.UserStats) bool { return s.RacesPlayed >= 100 }},
}

type Service struct {
	repo       StatsRepo
	userGetter UserGetter
	rdb        redis.UniversalClient
}

func NewService(repo StatsRepo, userGetter UserGetter, rdb redis.UniversalClient) *Service {
	return &Service{repo: repo, userGetter: userGetter, rdb: rdb}
}

// RecordRace folds a finished race into each player's aggregates, refreshes
// the global leaderboard and evaluates achievement unlocks. Called from a
// room goroutine, failures are logged and swallowed: losing a stats update
// must never break a race.
func (s *Service) RecordRace(ctx context.Context, results []domain.RaceResult) {
	for _, result := range results {
		stats, err := s.repo.RecordRaceResult(ctx, result)
		if err != nil {
			logger.Warningf("race result for %s not recorded: %v", result.UserId, err)
			continue
		}

		if err := s.rdb.ZAdd(ctx, leaderboardKey, redis.Z{
			Score:  stats.BestWPM,
			Member: result.UserId,
		}).Err(); err != nil {
			logger.Warningf("leaderboard update for %s failed: %v", result.UserId, err)
		}

		s.evaluateAchievements(ctx, result.UserId, stats)
	}
}

func (s *Service) evaluateAchievements(ctx context.Context, userId string, stats domain.UserStats) {
	for _, rule := range achievementRules {
		if !rule.test(stats) {
			continue
		}
		if err := s.repo.UnlockAchievement(ctx, userId, rule.code); err != nil {
			logger.Warningf("achievement %s for %s not persisted: %v", rule.code, userId, err)
		}
	}
}

func (s *Service) GetUserStats(ctx context.Context, userId string) (domain.UserStats, error) {
	return s.repo.GetUserStats(ctx, userId)
}

func (s *Service) GetAchievements(ctx context.Context, userId string) ([]domain.Achievement, error) {
	return s.repo.GetAchievements(ctx, userId)
}

type LeaderboardEntry struct {
	UserId   string  `json:"userId"`
	Username string  `json:"username"`
	BestWPM  float64 `json:"bestWpm"`
	Rank     int     `json:"rank"`
}

// Leaderboard returns the top players by best WPM, highest first.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	zs, err := s.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(zs))
	for i, z := range zs {
		userId, _ := z.Member.(string)
		entry := LeaderboardEntry{
			UserId:  userId,
			BestWPM: z.Score,
			Rank:    i + 1,
		}

		lookupCtx, cancel := context.WithTimeout(ctx, time.Second)
		if user, err := s.userGetter.GetUserById(lookupCtx, userId); err == nil {
			entry.Username = user.Username
		}
		cancel()

		entries = append(entries, entry)
	}

	return entries, nil
}

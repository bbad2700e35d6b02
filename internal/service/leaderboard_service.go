package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lingo-api/internal/dto"
	"github.com/noah-isme/gema-lingo-api/internal/observability"
	"github.com/noah-isme/gema-lingo-api/internal/repository"
)

// LeaderboardSize is the number of ranked users returned per challenge.
const LeaderboardSize = 20

// LeaderboardService ranks users by their best submission for a challenge.
type LeaderboardService interface {
	Top(ctx context.Context, challengeID string) (dto.LeaderboardResponse, error)
	Invalidate(ctx context.Context, challengeID uuid.UUID)
}

type leaderboardService struct {
	repo   repository.SubmissionRepository
	cache  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewLeaderboardService constructs the leaderboard service. A nil cache disables caching.
func NewLeaderboardService(repo repository.SubmissionRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) LeaderboardService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &leaderboardService{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "leaderboard_service").Logger(),
	}
}

func (s *leaderboardService) Top(ctx context.Context, rawChallengeID string) (dto.LeaderboardResponse, error) {
	challengeID, err := parseChallengeID(rawChallengeID)
	if err != nil {
		return dto.LeaderboardResponse{}, err
	}

	if cached, ok := s.fetchCache(ctx, challengeID); ok {
		cached.CacheHit = true
		observability.LeaderboardRequests().WithLabelValues("hit").Inc()
		return cached, nil
	}
	generation := s.generation(ctx, challengeID)

	rows, err := s.repo.BestByUser(ctx, challengeID, LeaderboardSize)
	if err != nil {
		observability.LeaderboardRequests().WithLabelValues("error").Inc()
		return dto.LeaderboardResponse{}, err
	}

	result := dto.LeaderboardResponse{
		ChallengeID: challengeID.String(),
		Entries:     dto.NewLeaderboardEntries(rows),
	}

	s.writeCache(ctx, challengeID, generation, result)
	observability.LeaderboardRequests().WithLabelValues("miss").Inc()

	return result, nil
}

func (s *leaderboardService) Invalidate(ctx context.Context, challengeID uuid.UUID) {
	if s.cache == nil {
		return
	}
	_, err := s.cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, leaderboardGenerationKey(challengeID))
		pipe.Del(ctx, leaderboardCacheKey(challengeID))
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("challenge_id", challengeID.String()).Msg("failed to invalidate leaderboard cache")
	}
}

func (s *leaderboardService) fetchCache(ctx context.Context, challengeID uuid.UUID) (dto.LeaderboardResponse, bool) {
	if s.cache == nil {
		return dto.LeaderboardResponse{}, false
	}
	payload, err := s.cache.Get(ctx, leaderboardCacheKey(challengeID)).Result()
	if err != nil {
		return dto.LeaderboardResponse{}, false
	}

	var result dto.LeaderboardResponse
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode leaderboard cache")
		return dto.LeaderboardResponse{}, false
	}
	return result, true
}

// generation reads the invalidation counter. Zero when unset or unreadable.
func (s *leaderboardService) generation(ctx context.Context, challengeID uuid.UUID) int64 {
	if s.cache == nil {
		return 0
	}
	value, err := s.cache.Get(ctx, leaderboardGenerationKey(challengeID)).Int64()
	if err != nil {
		return 0
	}
	return value
}

// writeCache stores the board unless an invalidation happened since the
// generation was read, so a board computed before a submission is not cached.
func (s *leaderboardService) writeCache(ctx context.Context, challengeID uuid.UUID, generation int64, result dto.LeaderboardResponse) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode leaderboard cache")
		return
	}

	generationKey := leaderboardGenerationKey(challengeID)
	err = s.cache.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, generationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleLeaderboard
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, leaderboardCacheKey(challengeID), payload, s.ttl)
			return nil
		})
		return err
	}, generationKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleLeaderboard), errors.Is(err, redis.TxFailedErr):
		s.logger.Debug().Str("challenge_id", challengeID.String()).Msg("leaderboard changed while loading, skipping cache")
	default:
		s.logger.Warn().Err(err).Msg("failed to store leaderboard cache")
	}
}

var errStaleLeaderboard = errors.New("leaderboard invalidated during read")

func leaderboardCacheKey(challengeID uuid.UUID) string {
	return "leaderboard:v1:" + challengeID.String()
}

func leaderboardGenerationKey(challengeID uuid.UUID) string {
	return "leaderboard:v1:" + challengeID.String() + ":gen"
}

package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lingo-api/internal/dto"
	"github.com/noah-isme/gema-lingo-api/internal/models"
	"github.com/noah-isme/gema-lingo-api/internal/observability"
	"github.com/noah-isme/gema-lingo-api/internal/repository"
	"github.com/noah-isme/gema-lingo-api/pkg/ai"
	"github.com/noah-isme/gema-lingo-api/pkg/scoring"
)

var (
	// ErrInvalidIdentifier indicates a malformed challenge identifier.
	ErrInvalidIdentifier = errors.New("invalid challenge identifier")
	// ErrEmptySubmission indicates the submission text is blank.
	ErrEmptySubmission = errors.New("submission text is empty")
	// ErrChallengeNotFound indicates the challenge does not exist.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrUserNotFound indicates the submitting user has no record.
	ErrUserNotFound = errors.New("user not found")
	// ErrChallengeInactive indicates the challenge no longer accepts submissions.
	ErrChallengeInactive = errors.New("challenge is not active")
	// ErrMisconfiguredChallenge indicates the challenge has no rubric.
	ErrMisconfiguredChallenge = errors.New("challenge has no rubric")
	// ErrWordCountTooLow indicates the text is shorter than the challenge minimum.
	ErrWordCountTooLow = errors.New("submission has too few words")
	// ErrWordCountTooHigh indicates the text is longer than the challenge maximum.
	ErrWordCountTooHigh = errors.New("submission has too many words")
	// ErrAttemptConflict indicates concurrent submissions kept claiming the same attempt number.
	ErrAttemptConflict = errors.New("attempt number conflict, please resubmit")
)

// WordCountError reports the counted words and the bound they violated.
type WordCountError struct {
	Err   error
	Count int
	Bound int
}

func (e *WordCountError) Error() string {
	return fmt.Sprintf("%v: counted %d, limit %d", e.Err, e.Count, e.Bound)
}

func (e *WordCountError) Unwrap() error {
	return e.Err
}

const defaultConflictAttempts = 3

// SubmissionServiceOptions tunes the submission pipeline.
type SubmissionServiceOptions struct {
	// StoreRawResponse keeps the provider's raw reply on the submission row.
	StoreRawResponse bool
	// ConflictAttempts bounds how many times an attempt number is claimed.
	ConflictAttempts int
}

// SubmissionService evaluates challenge submissions and records their rewards.
type SubmissionService interface {
	Submit(ctx context.Context, challengeID string, userID uint, req dto.SubmissionCreateRequest) (dto.SubmissionResultResponse, error)
	ListMine(ctx context.Context, challengeID string, userID uint) ([]dto.MySubmissionResponse, error)
}

type submissionService struct {
	challenges  repository.ChallengeRepository
	submissions repository.SubmissionRepository
	evaluator   ai.Evaluator
	leaderboard LeaderboardService
	events      SubmissionEventPublisher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	tracer      trace.Tracer
	opts        SubmissionServiceOptions
	logger      zerolog.Logger
}

// NewSubmissionService wires the submission pipeline.
func NewSubmissionService(
	challenges repository.ChallengeRepository,
	submissions repository.SubmissionRepository,
	evaluator ai.Evaluator,
	leaderboard LeaderboardService,
	events SubmissionEventPublisher,
	validate *validator.Validate,
	opts SubmissionServiceOptions,
	logger zerolog.Logger,
) SubmissionService {
	if opts.ConflictAttempts <= 0 {
		opts.ConflictAttempts = defaultConflictAttempts
	}
	if events == nil {
		events = NoopSubmissionEventPublisher{}
	}

	return &submissionService{
		challenges:  challenges,
		submissions: submissions,
		evaluator:   evaluator,
		leaderboard: leaderboard,
		events:      events,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-lingo-api/internal/service/submission"),
		opts:        opts,
		logger:      logger.With().Str("component", "submission_service").Logger(),
	}
}

func (s *submissionService) Submit(ctx context.Context, rawChallengeID string, userID uint, req dto.SubmissionCreateRequest) (dto.SubmissionResultResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submissions.submit", trace.WithAttributes(
		attribute.String("submission.challenge_id", rawChallengeID),
		attribute.Int64("submission.user_id", int64(userID)),
	))
	defer span.End()

	challenge, wordCount, err := s.intake(ctx, rawChallengeID, req)
	if err != nil {
		s.fail(span, "rejected", err)
		return dto.SubmissionResultResponse{}, err
	}

	evaluation, err := s.evaluator.Evaluate(ctx, ai.EvaluationInput{
		ChallengeID: challenge.ID.String(),
		Title:       challenge.Title,
		Prompt:      challenge.Prompt,
		Language:    challenge.Language,
		Category:    challenge.Category,
		Difficulty:  challenge.Difficulty,
		Rubric:      challenge.Rubric,
		Essay:       req.Text,
	})
	if err != nil {
		s.fail(span, "ai_failed", err)
		return dto.SubmissionResultResponse{}, err
	}

	categories := make([]scoring.Category, 0, len(evaluation.Categories))
	for _, category := range evaluation.Categories {
		category.Comment = s.sanitize(category.Comment)
		categories = append(categories, category)
	}

	reconciliation := scoring.Reconcile(challenge.Rubric, categories)
	if len(reconciliation.Unmatched) > 0 {
		s.logger.Warn().
			Str("challenge_id", challenge.ID.String()).
			Strs("categories", reconciliation.Unmatched).
			Msg("evaluation categories did not match the rubric")
	}

	submission := models.Submission{
		ChallengeID:      challenge.ID,
		UserID:           userID,
		Text:             req.Text,
		WordCount:        wordCount,
		Scores:           reconciliation.Scores,
		TotalScore:       reconciliation.Total,
		Feedback:         s.sanitize(evaluation.OverallFeedback),
		AIModel:          evaluation.Model,
		ProcessingTimeMs: evaluation.ProcessingTimeMs,
	}
	if s.opts.StoreRawResponse {
		submission.AIRaw = evaluation.Raw
	}

	reward, err := s.store(ctx, &submission, challenge.Difficulty)
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrAttemptConflict) {
			outcome = "conflict"
		}
		s.fail(span, outcome, err)
		return dto.SubmissionResultResponse{}, err
	}

	response := dto.NewSubmissionResultResponse(submission)
	if reward.Applied {
		xp := reward.UserXP
		response.UserXP = &xp
	}

	aggregate, err := s.challenges.RecordSubmissionScore(ctx, challenge.ID, submission.TotalScore)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("challenge_id", challenge.ID.String()).
			Str("submission_id", submission.ID.String()).
			Msg("failed to update challenge aggregate")
	} else {
		response.Challenge = dto.NewChallengeAggregateResponse(aggregate)
	}

	if s.leaderboard != nil {
		s.leaderboard.Invalidate(ctx, challenge.ID)
	}
	s.publish(ctx, submission)

	span.SetAttributes(
		attribute.Int("submission.attempt", submission.AttemptNumber),
		attribute.Float64("submission.total_score", submission.TotalScore),
		attribute.Int("submission.xp_awarded", submission.XPAwarded),
	)
	observability.Submissions().WithLabelValues("stored").Inc()
	observability.XPAwarded().Observe(float64(submission.XPAwarded))

	return response, nil
}

// intake runs every check that must pass before the evaluator is called.
func (s *submissionService) intake(ctx context.Context, rawChallengeID string, req dto.SubmissionCreateRequest) (models.Challenge, int, error) {
	challengeID, err := parseChallengeID(rawChallengeID)
	if err != nil {
		return models.Challenge{}, 0, err
	}

	if strings.TrimSpace(req.Text) == "" {
		return models.Challenge{}, 0, ErrEmptySubmission
	}

	if err := s.validator.Struct(req); err != nil {
		return models.Challenge{}, 0, err
	}

	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Challenge{}, 0, ErrChallengeNotFound
		}
		return models.Challenge{}, 0, err
	}

	if !challenge.IsActive {
		return models.Challenge{}, 0, ErrChallengeInactive
	}
	if len(challenge.Rubric) == 0 {
		return models.Challenge{}, 0, ErrMisconfiguredChallenge
	}

	words := scoring.CountWords(req.Text)
	if words < challenge.WordLimitMin {
		return models.Challenge{}, 0, &WordCountError{Err: ErrWordCountTooLow, Count: words, Bound: challenge.WordLimitMin}
	}
	if challenge.WordLimitMax > 0 && words > challenge.WordLimitMax {
		return models.Challenge{}, 0, &WordCountError{Err: ErrWordCountTooHigh, Count: words, Bound: challenge.WordLimitMax}
	}

	return challenge, words, nil
}

// store claims the next attempt number and persists the submission with its
// XP. A lost race on the attempt number is retried with a fresh count.
func (s *submissionService) store(ctx context.Context, submission *models.Submission, difficulty string) (repository.RewardResult, error) {
	for try := 1; ; try++ {
		count, err := s.submissions.CountAttempts(ctx, submission.ChallengeID, submission.UserID)
		if err != nil {
			return repository.RewardResult{}, err
		}

		submission.ID = uuid.Nil
		submission.AttemptNumber = int(count) + 1
		submission.XPAwarded = scoring.Award(difficulty, submission.TotalScore, submission.AttemptNumber)

		reward, err := s.submissions.CreateWithReward(ctx, submission)
		switch {
		case err == nil:
			return reward, nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			return repository.RewardResult{}, ErrUserNotFound
		case !errors.Is(err, repository.ErrDuplicateAttempt):
			return repository.RewardResult{}, err
		case try >= s.opts.ConflictAttempts:
			return repository.RewardResult{}, fmt.Errorf("%w: %w", ErrAttemptConflict, err)
		}

		s.logger.Warn().
			Str("challenge_id", submission.ChallengeID.String()).
			Uint("user_id", submission.UserID).
			Int("attempt_number", submission.AttemptNumber).
			Int("try", try).
			Msg("attempt number already taken, recounting")
	}
}

func (s *submissionService) ListMine(ctx context.Context, rawChallengeID string, userID uint) ([]dto.MySubmissionResponse, error) {
	challengeID, err := parseChallengeID(rawChallengeID)
	if err != nil {
		return nil, err
	}

	submissions, err := s.submissions.ListByChallengeAndUser(ctx, challengeID, userID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.MySubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		items = append(items, dto.NewMySubmissionResponse(submission))
	}
	return items, nil
}

func (s *submissionService) publish(ctx context.Context, submission models.Submission) {
	event := dto.SubmissionEvent{
		EventID:       uuid.NewString(),
		Type:          SubmissionEvaluatedEvent,
		SubmissionID:  submission.ID.String(),
		ChallengeID:   submission.ChallengeID.String(),
		UserID:        submission.UserID,
		AttemptNumber: submission.AttemptNumber,
		TotalScore:    submission.TotalScore,
		XPAwarded:     submission.XPAwarded,
		OccurredAt:    submission.CreatedAt.UTC(),
	}
	// broker failures are logged by the publisher and never fail the submission
	_ = s.events.PublishSubmissionEvaluated(ctx, event)
}

const maxEntityPasses = 5

// plainTextEntities restores the escapes the strict policy adds to ordinary prose.
// Angle brackets stay escaped.
var plainTextEntities = strings.NewReplacer("&#39;", "'", "&#34;", `"`, "&amp;", "&")

// sanitize strips markup from provider text. Entities are decoded until the
// text is stable first, so encoded tags reach the policy as tags.
func (s *submissionService) sanitize(value string) string {
	for i := 0; i < maxEntityPasses; i++ {
		decoded := html.UnescapeString(value)
		if decoded == value {
			break
		}
		value = decoded
	}
	return strings.TrimSpace(plainTextEntities.Replace(s.sanitizer.Sanitize(value)))
}

func (s *submissionService) fail(span trace.Span, outcome string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	observability.Submissions().WithLabelValues(outcome).Inc()
}

func parseChallengeID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, ErrInvalidIdentifier
	}
	return id, nil
}

package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lingo-api/internal/dto"
	"github.com/noah-isme/gema-lingo-api/internal/middleware"
	"github.com/noah-isme/gema-lingo-api/internal/service"
	"github.com/noah-isme/gema-lingo-api/internal/utils"
	"github.com/noah-isme/gema-lingo-api/pkg/ai"
	"github.com/noah-isme/gema-lingo-api/pkg/scoring"
)

// SubmissionHandler exposes challenge submission and leaderboard endpoints.
type SubmissionHandler struct {
	submissions   service.SubmissionService
	leaderboard   service.LeaderboardService
	submitLimiter fiber.Handler
	logger        zerolog.Logger
}

// NewSubmissionHandler constructs the handler. submitLimiter may be nil.
func NewSubmissionHandler(submissions service.SubmissionService, leaderboard service.LeaderboardService, submitLimiter fiber.Handler, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		submissions:   submissions,
		leaderboard:   leaderboard,
		submitLimiter: submitLimiter,
		logger:        logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register wires submission routes under a challenges group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	submit := []fiber.Handler{h.submit}
	if h.submitLimiter != nil {
		submit = append([]fiber.Handler{h.submitLimiter}, submit...)
	}

	router.Post("/:challengeId/submissions", submit...)
	router.Get("/:challengeId/submissions/mine", h.listMine)
	router.Get("/:challengeId/leaderboard", h.leaderboardTop)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return utils.FailWithCode(c, fiber.StatusUnauthorized, "unauthenticated", "authentication required", nil)
	}

	var req dto.SubmissionCreateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.FailWithCode(c, fiber.StatusBadRequest, "invalid_body", "invalid request body", nil)
		}
	}

	result, err := h.submissions.Submit(c.UserContext(), c.Params("challengeId"), userID, req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission evaluated", result)
}

func (h *SubmissionHandler) listMine(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return utils.FailWithCode(c, fiber.StatusUnauthorized, "unauthenticated", "authentication required", nil)
	}

	items, err := h.submissions.ListMine(c.UserContext(), c.Params("challengeId"), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, items, "submissions retrieved", fiber.Map{"count": len(items)})
}

func (h *SubmissionHandler) leaderboardTop(c *fiber.Ctx) error {
	board, err := h.leaderboard.Top(c.UserContext(), c.Params("challengeId"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, board.Entries, "leaderboard retrieved", fiber.Map{
		"challenge_id": board.ChallengeID,
		"cache_hit":    board.CacheHit,
	})
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var wordErr *service.WordCountError
	var evalErr *ai.EvaluationError

	switch {
	case errors.Is(err, service.ErrInvalidIdentifier):
		return utils.FailWithCode(c, fiber.StatusBadRequest, "invalid_identifier", "challenge id is not valid", nil)
	case errors.Is(err, service.ErrEmptySubmission):
		return utils.FailWithCode(c, fiber.StatusBadRequest, "empty_submission", "submission text must not be empty", nil)
	case isValidationError(err):
		return utils.FailWithCode(c, fiber.StatusBadRequest, "validation_failed", "submission failed validation", validationDetails(err))
	case errors.As(err, &wordErr):
		details := fiber.Map{"word_count": wordErr.Count}
		if errors.Is(err, service.ErrWordCountTooHigh) {
			details["max"] = wordErr.Bound
			return utils.FailWithCode(c, fiber.StatusUnprocessableEntity, "word_count_too_high", "submission has too many words", details)
		}
		details["min"] = wordErr.Bound
		return utils.FailWithCode(c, fiber.StatusUnprocessableEntity, "word_count_too_low", "submission has too few words", details)
	case errors.Is(err, service.ErrChallengeNotFound):
		return utils.FailWithCode(c, fiber.StatusNotFound, "not_found", "challenge not found", nil)
	case errors.Is(err, service.ErrUserNotFound):
		return utils.FailWithCode(c, fiber.StatusNotFound, "not_found", "user not found", nil)
	case errors.Is(err, service.ErrChallengeInactive):
		return utils.FailWithCode(c, fiber.StatusConflict, "challenge_inactive", "challenge is not accepting submissions", nil)
	case errors.Is(err, service.ErrAttemptConflict):
		return utils.FailWithCode(c, fiber.StatusConflict, "duplicate_attempt", "another submission claimed this attempt, please resubmit", nil)
	case errors.Is(err, service.ErrMisconfiguredChallenge):
		requestLogger(h.logger, c).Error().Err(err).Str("challenge_id", c.Params("challengeId")).Msg("challenge has no rubric")
		return utils.FailWithCode(c, fiber.StatusInternalServerError, "misconfigured_challenge", "challenge is misconfigured", nil)
	case errors.Is(err, scoring.ErrInvalidRubric):
		requestLogger(h.logger, c).Error().Err(err).Str("challenge_id", c.Params("challengeId")).Msg("challenge rubric is invalid")
		return utils.FailWithCode(c, fiber.StatusInternalServerError, "invalid_rubric", "challenge rubric is invalid", nil)
	case errors.As(err, &evalErr):
		return utils.FailWithCode(c, fiber.StatusBadGateway, "ai_evaluation_failed", "evaluation is temporarily unavailable, please try again", fiber.Map{
			"challenge_id":   evalErr.ChallengeID,
			"essay_length":   evalErr.EssayLength,
			"rubric_size":    evalErr.RubricSize,
			"attempts":       evalErr.Attempts,
			"timestamp":      evalErr.Timestamp.UTC().Format(time.RFC3339),
			"correlation_id": middleware.GetCorrelationID(c),
		})
	default:
		requestLogger(h.logger, c).Error().Err(err).Str("path", c.Path()).Msg("submission request failed")
		return utils.FailWithCode(c, fiber.StatusInternalServerError, "internal_error", "internal server error", nil)
	}
}

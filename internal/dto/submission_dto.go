package dto

import (
	"time"

	"github.com/noah-isme/gema-lingo-api/internal/models"
	"github.com/noah-isme/gema-lingo-api/internal/repository"
	"github.com/noah-isme/gema-lingo-api/pkg/scoring"
)

// SubmissionCreateRequest is the body of a challenge submission. Text is capped
// at 50 000 characters.
type SubmissionCreateRequest struct {
	Text string `json:"text" validate:"max=50000"`
}

// ChallengeAggregateResponse is the challenge-wide score summary after a submission.
type ChallengeAggregateResponse struct {
	ID            string  `json:"id"`
	AverageScore  float64 `json:"average_score"`
	AttemptsCount int64   `json:"attempts_count"`
}

// SubmissionResultResponse is returned after a submission has been evaluated and stored.
type SubmissionResultResponse struct {
	ID               string                      `json:"id"`
	ChallengeID      string                      `json:"challenge_id"`
	AttemptNumber    int                         `json:"attempt_number"`
	TotalScore       float64                     `json:"total_score"`
	Scores           []scoring.WeightedScore     `json:"scores"`
	Feedback         string                      `json:"feedback"`
	XPAwarded        int                         `json:"xp_awarded"`
	UserXP           *int64                      `json:"user_xp,omitempty"`
	Challenge        *ChallengeAggregateResponse `json:"challenge,omitempty"`
	WordCount        int                         `json:"word_count"`
	AIModel          string                      `json:"ai_model"`
	ProcessingTimeMs int64                       `json:"processing_time_ms"`
	CreatedAt        time.Time                   `json:"created_at"`
}

// NewSubmissionResultResponse maps a stored submission into its response payload.
func NewSubmissionResultResponse(submission models.Submission) SubmissionResultResponse {
	scores := submission.Scores
	if scores == nil {
		scores = []scoring.WeightedScore{}
	}
	return SubmissionResultResponse{
		ID:               submission.ID.String(),
		ChallengeID:      submission.ChallengeID.String(),
		AttemptNumber:    submission.AttemptNumber,
		TotalScore:       submission.TotalScore,
		Scores:           scores,
		Feedback:         submission.Feedback,
		XPAwarded:        submission.XPAwarded,
		WordCount:        submission.WordCount,
		AIModel:          submission.AIModel,
		ProcessingTimeMs: submission.ProcessingTimeMs,
		CreatedAt:        submission.CreatedAt,
	}
}

// NewChallengeAggregateResponse summarises a challenge's score aggregate.
func NewChallengeAggregateResponse(challenge models.Challenge) *ChallengeAggregateResponse {
	return &ChallengeAggregateResponse{
		ID:            challenge.ID.String(),
		AverageScore:  challenge.AverageScore,
		AttemptsCount: challenge.AttemptsCount,
	}
}

// MySubmissionResponse is one row of the caller's submission history.
type MySubmissionResponse struct {
	ID            string    `json:"id"`
	AttemptNumber int       `json:"attempt_number"`
	TotalScore    float64   `json:"total_score"`
	XPAwarded     int       `json:"xp_awarded"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewMySubmissionResponse projects a submission into its history row.
func NewMySubmissionResponse(submission models.Submission) MySubmissionResponse {
	return MySubmissionResponse{
		ID:            submission.ID.String(),
		AttemptNumber: submission.AttemptNumber,
		TotalScore:    submission.TotalScore,
		XPAwarded:     submission.XPAwarded,
		CreatedAt:     submission.CreatedAt,
	}
}

// LeaderboardUser is the public identity shown on a leaderboard.
type LeaderboardUser struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// LeaderboardEntryResponse is a single ranked leaderboard row.
type LeaderboardEntryResponse struct {
	Rank          int             `json:"rank"`
	User          LeaderboardUser `json:"user"`
	BestScore     float64         `json:"best_score"`
	AttemptNumber int             `json:"attempt_number"`
	SubmissionID  string          `json:"submission_id"`
	AchievedAt    time.Time       `json:"achieved_at"`
}

// NewLeaderboardEntries ranks repository rows starting at 1.
func NewLeaderboardEntries(rows []repository.LeaderboardRow) []LeaderboardEntryResponse {
	entries := make([]LeaderboardEntryResponse, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, LeaderboardEntryResponse{
			Rank: i + 1,
			User: LeaderboardUser{
				ID:        row.User.ID,
				Name:      row.User.Name,
				AvatarURL: row.User.AvatarURL,
			},
			BestScore:     row.Submission.TotalScore,
			AttemptNumber: row.Submission.AttemptNumber,
			SubmissionID:  row.Submission.ID.String(),
			AchievedAt:    row.Submission.CreatedAt,
		})
	}
	return entries
}

// LeaderboardResponse wraps the ranked entries for a challenge.
type LeaderboardResponse struct {
	ChallengeID string                     `json:"challenge_id"`
	Entries     []LeaderboardEntryResponse `json:"entries"`
	CacheHit    bool                       `json:"cache_hit"`
}

// SubmissionEvent is published after a submission has been stored.
type SubmissionEvent struct {
	EventID       string    `json:"event_id"`
	Type          string    `json:"type"`
	SubmissionID  string    `json:"submission_id"`
	ChallengeID   string    `json:"challenge_id"`
	UserID        uint      `json:"user_id"`
	AttemptNumber int       `json:"attempt_number"`
	TotalScore    float64   `json:"total_score"`
	XPAwarded     int       `json:"xp_awarded"`
	OccurredAt    time.Time `json:"occurred_at"`
}

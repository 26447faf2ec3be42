package handlers

import (
	"context"
	"net/http"

	"availability-backend/internal/models"
	"availability-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// VoteCaster records votes
type VoteCaster interface {
	CastVote(ctx context.Context, req services.VoteRequest) (*services.VoteResult, error)
}

// VoteHandler handles vote-related HTTP requests
type VoteHandler struct {
	votes VoteCaster
}

// NewVoteHandler creates a new vote handler
func NewVoteHandler(votes VoteCaster) *VoteHandler {
	return &VoteHandler{votes: votes}
}

// CastVoteRequest represents the request body for casting a vote
type CastVoteRequest struct {
	Username string  `json:"username" validate:"required"`
	Status   string  `json:"status" validate:"required,oneof=AVAILABLE MAYBE UNAVAILABLE"`
	Comment  *string `json:"comment"`
}

// CastVoteResponse is the stored vote plus the day's tally after it
type CastVoteResponse struct {
	UserID           string  `json:"userId"`
	Username         string  `json:"username"`
	Day              string  `json:"day"`
	Status           string  `json:"status"`
	Comment          *string `json:"comment"`
	AvailableCount   int     `json:"availableCount"`
	TotalVotes       int     `json:"totalVotes"`
	ThresholdCrossed bool    `json:"thresholdCrossed"`
}

// CastVote handles POST /api/days/{day}/vote
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	day := chi.URLParam(r, "day")

	var req CastVoteRequest
	if err := decodeBody(r, &req); err != nil {
		respondAppError(w, err)
		return
	}

	result, err := h.votes.CastVote(r.Context(), services.VoteRequest{
		Username: req.Username,
		Day:      day,
		Status:   models.Status(req.Status),
		Comment:  req.Comment,
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("username", req.Username).
			Str("day", day).
			Msg("Failed to cast vote")
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, CastVoteResponse{
		UserID:           result.User.ID,
		Username:         result.User.Username,
		Day:              result.Day,
		Status:           string(result.Vote.Status),
		Comment:          result.Vote.Comment,
		AvailableCount:   result.AfterCount,
		TotalVotes:       result.TotalVotes,
		ThresholdCrossed: result.Crossed,
	})
}

package handlers

import (
	"context"
	"net/http"

	"availability-backend/internal/models"
	"availability-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// DayLister serves the read side of the calendar
type DayLister interface {
	ListDays(ctx context.Context) ([]*models.DaySummary, error)
	GetDay(ctx context.Context, day string) (*models.DaySummary, error)
}

// BlockScheduler blocks recurring weekdays
type BlockScheduler interface {
	BlockWeekdays(ctx context.Context, req services.BlockRequest) (int, error)
}

// DayHandler handles calendar-related HTTP requests
type DayHandler struct {
	days   DayLister
	blocks BlockScheduler
}

// NewDayHandler creates a new day handler
func NewDayHandler(days DayLister, blocks BlockScheduler) *DayHandler {
	return &DayHandler{
		days:   days,
		blocks: blocks,
	}
}

// ListDays handles GET /api/days
func (h *DayHandler) ListDays(w http.ResponseWriter, r *http.Request) {
	days, err := h.days.ListDays(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list days")
		respondAppError(w, err)
		return
	}
	if days == nil {
		days = []*models.DaySummary{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"days": days})
}

// GetDay handles GET /api/days/{day}
func (h *DayHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	day := chi.URLParam(r, "day")

	summary, err := h.days.GetDay(r.Context(), day)
	if err != nil {
		log.Error().Err(err).Str("day", day).Msg("Failed to get day")
		respondAppError(w, err)
		return
	}
	if summary.Votes == nil {
		summary.Votes = []models.Vote{}
	}
	respondJSON(w, http.StatusOK, summary)
}

// BlockDaysRequest represents the request body for blocking weekdays
type BlockDaysRequest struct {
	Username string `json:"username" validate:"required"`
	Weekdays []int  `json:"weekdays" validate:"required,min=1,dive,min=0,max=6"`
	Range    *struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"range"`
	MonthsAhead *int   `json:"monthsAhead"`
	Note        string `json:"note"`
}

// BlockDays handles POST /api/block-days
func (h *DayHandler) BlockDays(w http.ResponseWriter, r *http.Request) {
	var req BlockDaysRequest
	if err := decodeBody(r, &req); err != nil {
		respondAppError(w, err)
		return
	}

	blockReq := services.BlockRequest{
		Username:    req.Username,
		Weekdays:    req.Weekdays,
		MonthsAhead: req.MonthsAhead,
		Note:        req.Note,
	}
	if req.Range != nil {
		blockReq.Range = &services.DateRange{Start: req.Range.Start, End: req.Range.End}
	}

	affected, err := h.blocks.BlockWeekdays(r.Context(), blockReq)
	if err != nil {
		log.Error().Err(err).Str("username", req.Username).Msg("Failed to block days")
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"affectedDays": affected})
}

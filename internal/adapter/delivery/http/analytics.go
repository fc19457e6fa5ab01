package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"

	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/usecase"
)

// ISO-8601 date-time layouts. Seconds are optional and fractional seconds are
// accepted after the seconds field when parsing.
var (
	offsetDateTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04Z07:00"}
	localDateTimeLayouts  = []string{"2006-01-02T15:04:05", "2006-01-02T15:04"}
)

type analyticsUseCase interface {
	Location() *time.Location
	ClicksByDateForCode(ctx context.Context, owner, shortCode string, start, end time.Time) ([]entity.DailyClicks, error)
	ClicksByDateForOwner(ctx context.Context, owner string, startDate, endDate entity.Date) (map[entity.Date]int64, error)
}

type analyticsHandler struct {
	useCase analyticsUseCase
}

func newAnalyticsHandler(useCase analyticsUseCase) *analyticsHandler {
	return &analyticsHandler{useCase: useCase}
}

// parseDateTime accepts date-times with an offset and local date-times, which
// are read in loc.
func parseDateTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range offsetDateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	var err error

	for _, layout := range localDateTimeLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, err
}

func (h *analyticsHandler) clicksByCode(w http.ResponseWriter, r *http.Request) {
	loc := h.useCase.Location()

	start, err := parseDateTime(r.URL.Query().Get("startDate"), loc)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidDateFormatResponse)
		return
	}

	end, err := parseDateTime(r.URL.Query().Get("endDate"), loc)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidDateFormatResponse)
		return
	}

	shortCode := chi.URLParam(r, "shortCode")

	daily, err := h.useCase.ClicksByDateForCode(r.Context(), ownerFromContext(r.Context()), shortCode, start, end)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	resp := make([]dailyClicksResponse, 0, len(daily))
	for _, d := range daily {
		resp = append(resp, dailyClicksResponse{
			ClickDate: d.Date.String(),
			Count:     d.Count,
		})
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

func (h *analyticsHandler) totalClicks(w http.ResponseWriter, r *http.Request) {
	startDate, err := entity.ParseDate(r.URL.Query().Get("startDate"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidDateFormatResponse)
		return
	}

	endDate, err := entity.ParseDate(r.URL.Query().Get("endDate"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidDateFormatResponse)
		return
	}

	counts, err := h.useCase.ClicksByDateForOwner(r.Context(), ownerFromContext(r.Context()), startDate, endDate)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, counts)
}

func (h *analyticsHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entity.ErrURLNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, urlNotFoundResponse)
	case errors.Is(err, usecase.ErrInvalidDateRange):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidDateRangeResponse)
	default:
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
	}
}

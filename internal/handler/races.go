package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keiba/internal/repository"
	"keiba/internal/scrape"
	"keiba/internal/service"
)

var monthRe = regexp.MustCompile(`^\d{6}$`)

type RaceHandler struct {
	Collector *service.CollectorService
	Repo      repository.Repository
	Logger    *zap.Logger
}

func (h *RaceHandler) Register(r *gin.Engine) {
	r.GET("/races", h.listRaces)
	r.GET("/races/:id", h.getRace)
	r.POST("/races", h.collectMonth)
	r.POST("/races/:id", h.collectRace)
}

func (h *RaceHandler) listRaces(c *gin.Context) {
	params := repository.ListRacesParams{
		Venue:   c.Query("venue"),
		Surface: c.Query("surface"),
		Limit:   intQuery(c, "limit", 100),
		Offset:  intQuery(c, "offset", 0),
	}
	races, err := h.Repo.ListRaces(c.Request.Context(), params)
	if err != nil {
		h.Logger.Warn("list races failed", zap.Error(err))
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := h.Repo.CountRaces(c.Request.Context(), params)
	if err != nil {
		h.Logger.Warn("count races failed", zap.Error(err))
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, "ok", gin.H{"races": races, "total": total})
}

func (h *RaceHandler) getRace(c *gin.Context) {
	id := c.Param("id")
	race, err := h.Repo.GetRace(c.Request.Context(), id)
	if err != nil {
		h.Logger.Warn("get race failed", zap.String("race_id", id), zap.Error(err))
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	if race == nil {
		Error(c, http.StatusNotFound, "race not found: "+id)
		return
	}
	Ok(c, "ok", race)
}

// collectMonth triggers bulk collection. The month defaults to one week from
// now rounded to its month; an explicit YYYYMM query overrides it.
func (h *RaceHandler) collectMonth(c *gin.Context) {
	year, month := service.DefaultMonth(time.Now())
	if raw := c.Query("month"); raw != "" {
		if !monthRe.MatchString(raw) {
			Error(c, http.StatusBadRequest, "month must be YYYYMM: "+raw)
			return
		}
		year, month = raw[:4], raw[4:]
	}

	result, err := h.Collector.BulkCollect(c.Request.Context(), year, month)
	if err != nil {
		h.Logger.Warn("bulk collection failed",
			zap.String("year", year),
			zap.String("month", month),
			zap.Error(err),
		)
		status := http.StatusInternalServerError
		if errors.Is(err, scrape.ErrNoScheduleData) {
			status = http.StatusNotFound
		}
		Error(c, status, err.Error())
		return
	}
	Ok(c, "collected "+result.Month, result)
}

func (h *RaceHandler) collectRace(c *gin.Context) {
	id := c.Param("id")
	if err := h.Collector.Collect(c.Request.Context(), id); err != nil {
		h.Logger.Warn("race collection failed", zap.String("race_id", id), zap.Error(err))
		Error(c, collectStatus(err), err.Error())
		return
	}
	Ok(c, "collected "+id, nil)
}

func collectStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidIdentifier):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoPage):
		return http.StatusNotFound
	case errors.Is(err, scrape.ErrMalformedDocument):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

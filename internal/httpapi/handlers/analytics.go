package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/inkbooth/inkbooth/internal/analytics"
	"github.com/inkbooth/inkbooth/internal/auth"
	"github.com/inkbooth/inkbooth/internal/common"
	"github.com/inkbooth/inkbooth/internal/config"
)

// DashboardHandler serves the analytics API consumed by the charts frontend.
// Query failures here are fatal for the process: a dashboard without data has
// no purpose.
type DashboardHandler struct {
	Cfg config.Config
	Agg *analytics.Aggregator
}

func NewDashboardHandler(cfg config.Config, agg *analytics.Aggregator) *DashboardHandler {
	return &DashboardHandler{Cfg: cfg, Agg: agg}
}

type adminLoginReq struct {
	Password string `json:"password"`
}

func (h *DashboardHandler) Login(c *gin.Context) {
	var req adminLoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if h.Cfg.AdminPasswordHash == "" || !auth.CheckPassword(h.Cfg.AdminPasswordHash, req.Password) {
		common.Fail(c, http.StatusUnauthorized, 40102, "invalid credentials")
		return
	}
	tok, err := auth.SignJWT("admin", h.Cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50020, "failed to sign token")
		return
	}
	common.OK(c, gin.H{"token": tok})
}

type prepareReq struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Continent string `json:"continent"`
	Country   string `json:"country"`
	OS        string `json:"os"`
	Browser   string `json:"browser"`
	Language  string `json:"language"`
}

func parseDay(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	return time.Parse("2006-01-02", s)
}

// Prepare builds the working set; every derived endpoint depends on it.
func (h *DashboardHandler) Prepare(c *gin.Context) {
	var req prepareReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	start, err := parseDay(req.Start, time.Unix(0, 0))
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10020, "invalid start date")
		return
	}
	end, err := parseDay(req.End, time.Now().AddDate(0, 0, 1))
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10021, "invalid end date")
		return
	}

	rows, err := h.Agg.PrepareFilteredData(c.Request.Context(), start, end, analytics.Filters{
		Continent: req.Continent,
		Country:   req.Country,
		OS:        req.OS,
		Browser:   req.Browser,
		Language:  req.Language,
	})
	if err != nil {
		log.Fatalf("dashboard: prepare: %v", err)
	}

	started := 0
	for _, r := range rows {
		if r.Started {
			started++
		}
	}
	common.OK(c, gin.H{
		"sessions": rows,
		"total":    len(rows),
		"started":  started,
	})
}

func (h *DashboardHandler) TopUploaded(c *gin.Context) {
	stats, err := h.Agg.TopUploadedImages(c.Request.Context())
	if err != nil {
		h.derivedError(c, err)
		return
	}
	common.OK(c, gin.H{"images": stats})
}

func (h *DashboardHandler) TopUsed(c *gin.Context) {
	stats, err := h.Agg.TopUsedImages(c.Request.Context())
	if err != nil {
		h.derivedError(c, err)
		return
	}
	common.OK(c, gin.H{"images": stats})
}

func (h *DashboardHandler) StyleUsage(c *gin.Context) {
	var start, end *time.Time
	if s := c.Query("start"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			common.Fail(c, http.StatusBadRequest, 10020, "invalid start date")
			return
		}
		start = &t
	}
	if s := c.Query("end"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			common.Fail(c, http.StatusBadRequest, 10021, "invalid end date")
			return
		}
		end = &t
	}

	shares, err := h.Agg.StyleUsage(c.Request.Context(), start, end)
	if err != nil {
		h.derivedError(c, err)
		return
	}
	common.OK(c, gin.H{"styles": shares})
}

func (h *DashboardHandler) Filters(c *gin.Context) {
	opts, err := h.Agg.FilterOptions(c.Request.Context())
	if err != nil {
		log.Fatalf("dashboard: filters: %v", err)
	}
	common.OK(c, opts)
}

// derivedError distinguishes "prepare not called yet" from a broken
// datastore; only the latter is fatal.
func (h *DashboardHandler) derivedError(c *gin.Context, err error) {
	if errors.Is(err, analytics.ErrNoWorkingSet) {
		common.Fail(c, http.StatusConflict, 10022, "call prepare first")
		return
	}
	log.Fatalf("dashboard: query: %v", err)
}

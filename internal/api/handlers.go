package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/newsthreader/internal/database"
	"github.com/jonesrussell/newsthreader/internal/domain"
	"github.com/jonesrussell/newsthreader/internal/logger"
	"github.com/jonesrussell/newsthreader/internal/threading"
)

// DomainStatReader serves domain reliability views.
type DomainStatReader interface {
	ListAll(ctx context.Context) ([]*domain.DomainStat, error)
	ListByStatus(ctx context.Context, status string) ([]*domain.DomainStat, error)
	Get(ctx context.Context, dom string) (*domain.DomainStat, error)
	SetAllowlisted(ctx context.Context, dom string, allowlisted bool) error
}

// ThreadReader serves thread views.
type ThreadReader interface {
	ListAll(ctx context.Context) ([]*domain.StoryThread, error)
	Get(ctx context.Context, id string) (*domain.StoryThread, error)
}

// ThreadArticleReader lists the member articles of a thread.
type ThreadArticleReader interface {
	ListByThread(ctx context.Context, threadID string) ([]domain.Article, error)
}

// RunReportReader serves the latest run report.
type RunReportReader interface {
	Latest(ctx context.Context) (*domain.RunReport, error)
}

// Handler holds the operator API handlers.
type Handler struct {
	domains  DomainStatReader
	threads  ThreadReader
	articles ThreadArticleReader
	runs     RunReportReader
	// heatDecayRate feeds thread heat ranking.
	heatDecayRate float64
	logger        logger.Interface
	now           func() time.Time
}

// NewHandler creates the API handler set.
func NewHandler(
	domains DomainStatReader,
	threads ThreadReader,
	articles ThreadArticleReader,
	runs RunReportReader,
	heatDecayRate float64,
	log logger.Interface,
) *Handler {
	return &Handler{
		domains:       domains,
		threads:       threads,
		articles:      articles,
		runs:          runs,
		heatDecayRate: heatDecayRate,
		logger:        log,
		now:           time.Now,
	}
}

// ListDomains returns every tracked domain with its reliability stats.
func (h *Handler) ListDomains(c *gin.Context) {
	stats, err := h.domains.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list domains", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list domains"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"domains": stats, "count": len(stats)})
}

// ListBlockedDomains returns only blocked domains, worst score first.
func (h *Handler) ListBlockedDomains(c *gin.Context) {
	stats, err := h.domains.ListByStatus(c.Request.Context(), domain.DomainStatusBlocked)
	if err != nil {
		h.logger.Error("Failed to list blocked domains", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list blocked domains"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"domains": stats, "count": len(stats)})
}

// GetDomain returns one domain's stats.
func (h *Handler) GetDomain(c *gin.Context) {
	stat, err := h.domains.Get(c.Request.Context(), c.Param("domain"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Domain not found"})
		return
	}
	c.JSON(http.StatusOK, stat)
}

// allowlistRequest is the body for PUT /domains/:domain/allowlist.
type allowlistRequest struct {
	Allowlisted *bool `json:"allowlisted" binding:"required"`
}

// SetAllowlist flips a domain's allowlist flag.
func (h *Handler) SetAllowlist(c *gin.Context) {
	var req allowlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	dom := c.Param("domain")
	if err := h.domains.SetAllowlisted(c.Request.Context(), dom, *req.Allowlisted); err != nil {
		h.logger.Error("Failed to set allowlist", "domain", dom, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set allowlist"})
		return
	}

	h.logger.Info("Allowlist updated", "domain", dom, "allowlisted", *req.Allowlisted)
	c.JSON(http.StatusOK, gin.H{"domain": dom, "allowlisted": *req.Allowlisted})
}

// threadView is a thread plus its computed heat score.
type threadView struct {
	*domain.StoryThread
	Heat float64 `json:"heat"`
}

// ListThreads returns all threads ranked by heat, hottest first.
func (h *Handler) ListThreads(c *gin.Context) {
	threads, err := h.threads.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list threads", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list threads"})
		return
	}

	now := h.now()
	views := make([]threadView, 0, len(threads))
	for _, thread := range threads {
		members, listErr := h.articles.ListByThread(c.Request.Context(), thread.ID)
		if listErr != nil {
			h.logger.Error("Failed to list thread members", "thread_id", thread.ID, "error", listErr.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rank threads"})
			return
		}
		views = append(views, threadView{
			StoryThread: thread,
			Heat:        threading.HeatScore(members, h.heatDecayRate, now),
		})
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].Heat > views[j].Heat })

	c.JSON(http.StatusOK, gin.H{"threads": views, "count": len(views)})
}

// GetThread returns one thread with its member articles and heat.
func (h *Handler) GetThread(c *gin.Context) {
	id := c.Param("id")
	thread, err := h.threads.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Thread not found"})
		return
	}

	members, err := h.articles.ListByThread(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to list thread members", "thread_id", id, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load thread"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"thread":   thread,
		"heat":     threading.HeatScore(members, h.heatDecayRate, h.now()),
		"articles": members,
	})
}

// LatestRun returns the most recent run report.
func (h *Handler) LatestRun(c *gin.Context) {
	report, err := h.runs.Latest(c.Request.Context())
	if err != nil {
		if errors.Is(err, database.ErrNoRunReport) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No runs recorded yet"})
			return
		}
		h.logger.Error("Failed to load latest run", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load latest run"})
		return
	}
	c.JSON(http.StatusOK, report)
}

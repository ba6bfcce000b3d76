package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/autopo-go/internal/domain"
	"github.com/andresuchdata/autopo-go/internal/service"
)

type RunHandler struct {
	runService *service.RunService
}

func NewRunHandler(runService *service.RunService) *RunHandler {
	return &RunHandler{runService: runService}
}

func (h *RunHandler) CreateRun(c *gin.Context) {
	var payload domain.RunCreate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	run, err := h.runService.CreateRun(c.Request.Context(), &payload)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, run)
}

func (h *RunHandler) ListRuns(c *gin.Context) {
	runs, err := h.runService.ListRuns(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (h *RunHandler) GetRun(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	run, err := h.runService.GetRun(c.Request.Context(), id)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// ExecuteRun processes a run synchronously and returns it in its final state
func (h *RunHandler) ExecuteRun(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	run, err := h.runService.ExecuteRun(c.Request.Context(), id)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *RunHandler) GetRunResults(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	results, err := h.runService.GetResults(c.Request.Context(), id)
	if err != nil {
		errorResponse(c, err)
		return
	}

	if v := strings.TrimSpace(c.Query("variant")); v != "" {
		variant, ok := domain.ParseResultVariant(v)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown variant " + v})
			return
		}
		filtered := results[:0:0]
		for _, r := range results {
			if r.Variant == variant {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	c.JSON(http.StatusOK, results)
}

func parseRunID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return 0, false
	}
	return id, true
}

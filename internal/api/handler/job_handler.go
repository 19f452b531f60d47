package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mytankugift/catalog-sync/internal/api/dto"
	"github.com/mytankugift/catalog-sync/internal/jobs"
)

// CreateJob handles POST /api/v1/jobs.
// Creates a new PENDING pipeline job; a worker picks it up on its next
// poll.
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	job, err := h.jobs.Create(c.Request.Context(), jobs.Type(req.Type))
	if err != nil {
		if errors.Is(err, jobs.ErrInvalidType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown job type: " + req.Type})
			return
		}
		h.logger.Error("Failed to create job", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create job"})
		return
	}

	h.events.JobCreated(c.Request.Context(), job)

	c.JSON(http.StatusCreated, toDTO(job))
}

// GetJob handles GET /api/v1/jobs/:job_id.
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_id must be a valid UUID"})
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		h.logger.Error("Failed to get job", slog.String("job_id", jobID), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job"})
		return
	}

	c.JSON(http.StatusOK, toDTO(job))
}

// ListJobs handles GET /api/v1/jobs.
// Lists jobs newest first with optional type/status filters and keyset
// pagination.
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}

	if req.Type != "" && !jobs.Type(req.Type).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown job type: " + req.Type})
		return
	}

	if req.Limit <= 0 {
		req.Limit = 20
	}
	if req.Limit > 100 {
		req.Limit = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
		return
	}

	// Fetch one extra row to learn whether another page exists.
	list, err := h.jobs.List(c.Request.Context(), jobs.Filter{
		Type:   jobs.Type(req.Type),
		Status: jobs.Status(req.Status),
		Limit:  req.Limit + 1,
		Cursor: cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}

	hasMore := len(list) > req.Limit
	if hasMore {
		list = list[:req.Limit]
	}

	resp := dto.ListJobsResponse{Jobs: make([]dto.JobDTO, len(list))}
	for i := range list {
		resp.Jobs[i] = toDTO(&list[i])
	}

	if hasMore {
		last := list[len(list)-1]
		resp.NextCursor = EncodeJobCursor(&jobs.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// CancelJob handles POST /api/v1/jobs/:job_id/cancel.
// Flips a PENDING or RUNNING job to its cancelled terminal state; the
// executor, if one is mid-run, observes it at its next status check.
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_id must be a valid UUID"})
		return
	}

	job, err := h.jobs.Cancel(c.Request.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		case errors.Is(err, jobs.ErrJobTerminal):
			c.JSON(http.StatusConflict, gin.H{"error": "job already finished"})
		default:
			h.logger.Error("Failed to cancel job", slog.String("job_id", jobID), slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel job"})
		}
		return
	}

	h.events.JobCancelled(c.Request.Context(), job)

	c.JSON(http.StatusOK, toDTO(job))
}

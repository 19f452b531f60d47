package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mytankugift/catalog-sync/internal/api/dto"
	"github.com/mytankugift/catalog-sync/internal/jobs"
)

// fakeJobService is an in-memory JobService with the repository's
// terminal-state rules.
type fakeJobService struct {
	jobs    map[string]*jobs.Job
	listErr error
}

func newFakeJobService() *fakeJobService {
	return &fakeJobService{jobs: make(map[string]*jobs.Job)}
}

func (s *fakeJobService) add(t jobs.Type, status jobs.Status, createdAt time.Time) *jobs.Job {
	job := &jobs.Job{
		ID:        uuid.New().String(),
		Type:      t,
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	s.jobs[job.ID] = job
	return job
}

func (s *fakeJobService) Create(ctx context.Context, t jobs.Type) (*jobs.Job, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %s", jobs.ErrInvalidType, t)
	}
	return s.add(t, jobs.StatusPending, time.Now()), nil
}

func (s *fakeJobService) Get(ctx context.Context, id string) (*jobs.Job, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, jobs.ErrJobNotFound
	}
	return job, nil
}

func (s *fakeJobService) List(ctx context.Context, filter jobs.Filter) ([]jobs.Job, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}

	var list []jobs.Job
	for _, job := range s.jobs {
		if filter.Type != "" && job.Type != filter.Type {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		list = append(list, *job)
	}
	// Newest first, mirroring the repository's ordering.
	for i := 0; i < len(list); i++ {
		for j := i + 1; j < len(list); j++ {
			if list[j].CreatedAt.After(list[i].CreatedAt) {
				list[i], list[j] = list[j], list[i]
			}
		}
	}
	if filter.Limit > 0 && len(list) > filter.Limit {
		list = list[:filter.Limit]
	}
	return list, nil
}

func (s *fakeJobService) Cancel(ctx context.Context, id string) (*jobs.Job, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, jobs.ErrJobNotFound
	}
	if job.Status.Terminal() {
		return nil, jobs.ErrJobTerminal
	}
	job.Status = jobs.StatusFailed
	job.Error = sql.NullString{String: jobs.CancelledMessage, Valid: true}
	return job, nil
}

func setupTestRouter(service *fakeJobService) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewJobHandler(&Dependencies{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Jobs:   service,
	})

	r := gin.New()
	v1 := r.Group("/api/v1")
	{
		v1.POST("/jobs", h.CreateJob)
		v1.GET("/jobs", h.ListJobs)
		v1.GET("/jobs/:job_id", h.GetJob)
		v1.POST("/jobs/:job_id/cancel", h.CancelJob)
	}
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateJob(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "valid type", body: `{"type":"RAW"}`, wantStatus: http.StatusCreated},
		{name: "stock refresh", body: `{"type":"STOCK_REFRESH"}`, wantStatus: http.StatusCreated},
		{name: "unknown type", body: `{"type":"REINDEX"}`, wantStatus: http.StatusBadRequest},
		{name: "missing type", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "malformed body", body: `{`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupTestRouter(newFakeJobService())
			w := doRequest(r, http.MethodPost, "/api/v1/jobs", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestCreateJobResponseShape(t *testing.T) {
	r := setupTestRouter(newFakeJobService())
	w := doRequest(r, http.MethodPost, "/api/v1/jobs", `{"type":"NORMALIZE"}`)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp dto.JobDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "NORMALIZE", resp.Type)
	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, 0, resp.Progress)
	assert.Empty(t, resp.Error)
}

func TestGetJob(t *testing.T) {
	service := newFakeJobService()
	job := service.add(jobs.TypeEnrich, jobs.StatusRunning, time.Now())
	r := setupTestRouter(service)

	t.Run("found", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v1/jobs/"+job.ID, "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.JobDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, job.ID, resp.ID)
		assert.Equal(t, "RUNNING", resp.Status)
	})

	t.Run("not found", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v1/jobs/"+uuid.New().String(), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("not a uuid", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v1/jobs/latest", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListJobs(t *testing.T) {
	service := newFakeJobService()
	base := time.Now().Add(-time.Hour)
	service.add(jobs.TypeRaw, jobs.StatusDone, base)
	service.add(jobs.TypeRaw, jobs.StatusPending, base.Add(time.Minute))
	service.add(jobs.TypeEnrich, jobs.StatusPending, base.Add(2*time.Minute))
	r := setupTestRouter(service)

	t.Run("all jobs newest first", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v1/jobs", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.ListJobsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Jobs, 3)
		assert.Equal(t, "ENRICH", resp.Jobs[0].Type)
		assert.Empty(t, resp.NextCursor)
	})

	t.Run("filter by type", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v1/jobs?type=RAW", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.ListJobsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Jobs, 2)
	})

	t.Run("filter by status", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v1/jobs?status=DONE", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.ListJobsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Jobs, 1)
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v1/jobs?type=REINDEX", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid cursor is rejected", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v1/jobs?cursor=%21%21", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("limit produces next cursor", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v1/jobs?limit=2", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.ListJobsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Jobs, 2)
		require.NotEmpty(t, resp.NextCursor)

		cursor, err := DecodeJobCursor(resp.NextCursor)
		require.NoError(t, err)
		assert.Equal(t, resp.Jobs[1].ID, cursor.ID)
	})
}

func TestCancelJob(t *testing.T) {
	service := newFakeJobService()
	running := service.add(jobs.TypePublish, jobs.StatusRunning, time.Now())
	finished := service.add(jobs.TypePublish, jobs.StatusDone, time.Now())
	r := setupTestRouter(service)

	t.Run("running job is cancelled", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/api/v1/jobs/"+running.ID+"/cancel", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.JobDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "FAILED", resp.Status)
		assert.Equal(t, jobs.CancelledMessage, resp.Error)
	})

	t.Run("finished job conflicts", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/api/v1/jobs/"+finished.ID+"/cancel", "")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown job", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/api/v1/jobs/"+uuid.New().String()+"/cancel", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("cancel is not idempotent", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/api/v1/jobs/"+running.ID+"/cancel", "")
		assert.Equal(t, http.StatusConflict, w.Code, "a second cancel hits a terminal job")
	})
}

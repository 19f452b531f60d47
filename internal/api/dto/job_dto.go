package dto

// CreateJobRequest asks for a new pipeline job of one type.
type CreateJobRequest struct {
	Type string `json:"type" binding:"required"`
}

// ListJobsRequest filters and paginates the job listing.
type ListJobsRequest struct {
	Type   string `form:"type"`
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Cursor string `form:"cursor"`
}

// ListJobsResponse returns one page of jobs, newest first.
type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// JobDTO is the external representation of a job.
type JobDTO struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	Attempts   int    `json:"attempts"`
	LockedBy   string `json:"locked_by,omitempty"`
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

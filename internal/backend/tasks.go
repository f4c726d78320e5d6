package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

type CreateTaskInput struct {
	TitleTask       string `json:"titleTask"       validate:"required,min=1,max=200"`
	DescriptionTask string `json:"descriptionTask,omitempty" validate:"omitempty,max=2000"`
	TaskStatusID    int64  `json:"taskStatusId"    validate:"required,gt=0"`
}

type UpdateTaskInput struct {
	TaskID          int64  `json:"taskId"          validate:"required,gt=0"`
	TitleTask       string `json:"titleTask,omitempty"       validate:"omitempty,min=1,max=200"`
	DescriptionTask string `json:"descriptionTask,omitempty" validate:"omitempty,max=2000"`
	TaskStatusID    int64  `json:"taskStatusId,omitempty"    validate:"omitempty,gt=0"`
}

type TaskFilters struct {
	TaskStatusID int64
	SearchTerm   string
	PageNumber   int
	PageSize     int
}

func (f TaskFilters) query() url.Values {
	q := url.Values{}
	if f.TaskStatusID > 0 {
		q.Set("taskStatusId", strconv.FormatInt(f.TaskStatusID, 10))
	}
	if f.SearchTerm != "" {
		q.Set("searchTerm", f.SearchTerm)
	}
	if f.PageNumber > 0 {
		q.Set("pageNumber", strconv.Itoa(f.PageNumber))
	}
	if f.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(f.PageSize))
	}
	return q
}

// TaskMetrics is the dashboard aggregate.
type TaskMetrics struct {
	TotalTasks           int64   `json:"totalTasks"`
	CompletedTasks       int64   `json:"completedTasks"`
	PendingTasks         int64   `json:"pendingTasks"`
	CompletionPercentage float64 `json:"completionPercentage"`
}

func (c *Client) CreateTask(ctx context.Context, in CreateTaskInput) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, c.applicationURL, "Tasks", nil, in)
}

func (c *Client) UpdateTask(ctx context.Context, in UpdateTaskInput) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, c.applicationURL, "Tasks/"+strconv.FormatInt(in.TaskID, 10), nil, in)
}

func (c *Client) DeleteTask(ctx context.Context, taskID int64) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, c.applicationURL, "Tasks/"+strconv.FormatInt(taskID, 10), nil, nil)
}

func (c *Client) ListTasks(ctx context.Context, filters TaskFilters) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, c.applicationURL, "Tasks", filters.query(), nil)
}

func (c *Client) GetTaskByID(ctx context.Context, taskID int64) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, c.applicationURL, "Tasks/"+strconv.FormatInt(taskID, 10), nil, nil)
}

func (c *Client) GetTaskMetrics(ctx context.Context) (*TaskMetrics, error) {
	data, err := c.do(ctx, http.MethodGet, c.applicationURL, "Tasks/metrics", nil, nil)
	if err != nil {
		return nil, err
	}
	var metrics TaskMetrics
	if err := json.Unmarshal(data, &metrics); err != nil {
		return nil, err
	}
	return &metrics, nil
}

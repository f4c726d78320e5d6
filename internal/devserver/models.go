package devserver

import "time"

// UserRecord mirrors the application API's user vocabulary.
type UserRecord struct {
	UserID           int64      `json:"userId"`
	PublicID         string     `json:"publicId"`
	NameUser         string     `json:"nameUser"`
	EmailUser        string     `json:"emailUser"`
	PhoneUser        string     `json:"phoneUser,omitempty"`
	SpecialitiesUser string     `json:"specialitiesUser,omitempty"`
	UserImage        string     `json:"userImage,omitempty"`
	PasswordHash     string     `json:"-"`
	IsActiveUser     bool       `json:"isActiveUser"`
	CreatedAtUser    time.Time  `json:"createdAtUser"`
	UpdatedAtUser    *time.Time `json:"updatedAtUser,omitempty"`
}

type UserPatch struct {
	UserID           int64
	NameUser         *string
	EmailUser        *string
	PhoneUser        *string
	SpecialitiesUser *string
	IsActiveUser     *bool
	UserImage        *string
}

type UserQuery struct {
	NameUser         string
	EmailUser        string
	PhoneUser        string
	SpecialitiesUser string
	IsActiveUser     *bool
	PageNumber       int
	PageSize         int
}

// Task statuses: 1 pending, 2 completed, matching the original application.
const (
	TaskStatusPending   int64 = 1
	TaskStatusCompleted int64 = 2
)

type TaskRecord struct {
	TaskID          int64      `json:"taskId"`
	TitleTask       string     `json:"titleTask"`
	DescriptionTask string     `json:"descriptionTask,omitempty"`
	TaskStatusID    int64      `json:"taskStatusId"`
	NameTaskStatus  string     `json:"nameTaskStatus,omitempty"`
	IsCompleted     bool       `json:"isCompleted"`
	CreatedAtTask   time.Time  `json:"createdAtTask"`
	UpdatedAtTask   *time.Time `json:"updatedAtTask,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

type TaskPatch struct {
	TaskID          int64
	TitleTask       *string
	DescriptionTask *string
	TaskStatusID    *int64
}

type TaskQuery struct {
	TaskStatusID int64
	SearchTerm   string
	PageNumber   int
	PageSize     int
}

type TaskMetrics struct {
	TotalTasks           int64   `json:"totalTasks"`
	CompletedTasks       int64   `json:"completedTasks"`
	PendingTasks         int64   `json:"pendingTasks"`
	CompletionPercentage float64 `json:"completionPercentage"`
}

// Page wraps a list payload with its pagination counters.
type Page[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	PageNumber int   `json:"pageNumber"`
	PageSize   int   `json:"pageSize"`
}

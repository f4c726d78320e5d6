package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type TaskStore interface {
	Create(ctx context.Context, t *TaskRecord) (*TaskRecord, error)
	Update(ctx context.Context, patch TaskPatch) (*TaskRecord, error)
	Delete(ctx context.Context, taskID int64) error
	List(ctx context.Context, q TaskQuery) (*Page[TaskRecord], error)
	GetByID(ctx context.Context, taskID int64) (*TaskRecord, error)
	Metrics(ctx context.Context) (*TaskMetrics, error)
}

const (
	taskColumns = `t.id, t.title, t.description, t.task_status_id, s.name, t.created_at, t.updated_at, t.completed_at`

	taskFrom = ` FROM tasks t JOIN task_statuses s ON s.id = t.task_status_id`

	insertTaskQuery = `
				WITH inserted AS (
					INSERT INTO tasks (title, description, task_status_id)
					VALUES ($1, $2, $3)
					RETURNING *
				)
				SELECT ` + taskColumns + ` FROM inserted t JOIN task_statuses s ON s.id = t.task_status_id
				`

	updateTaskQuery = `
				WITH updated AS (
					UPDATE tasks
					SET title          = COALESCE($2, title),
					    description    = COALESCE($3, description),
					    task_status_id = COALESCE($4, task_status_id),
					    completed_at   = CASE
					        WHEN COALESCE($4, task_status_id) = 2 AND completed_at IS NULL THEN now()
					        WHEN COALESCE($4, task_status_id) <> 2 THEN NULL
					        ELSE completed_at
					    END,
					    updated_at     = now()
					WHERE id = $1
					RETURNING *
				)
				SELECT ` + taskColumns + ` FROM updated t JOIN task_statuses s ON s.id = t.task_status_id
				`

	deleteTaskQuery = `DELETE FROM tasks WHERE id = $1`

	selectTaskByIDQuery = `SELECT ` + taskColumns + taskFrom + ` WHERE t.id = $1`

	taskMetricsQuery = `
				SELECT count(*)                                  AS total,
				       count(*) FILTER (WHERE task_status_id = 2) AS completed
				FROM tasks
				`
)

type taskStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewTaskStore(db *sql.DB, logger *zap.Logger) TaskStore {
	return &taskStore{db: db, logger: logger}
}

func (s *taskStore) Create(ctx context.Context, t *TaskRecord) (*TaskRecord, error) {
	statusID := t.TaskStatusID
	if statusID == 0 {
		statusID = TaskStatusPending
	}
	row := s.db.QueryRowContext(ctx, insertTaskQuery, strings.TrimSpace(t.TitleTask), t.DescriptionTask, statusID)
	return s.scanTask(row)
}

func (s *taskStore) Update(ctx context.Context, patch TaskPatch) (*TaskRecord, error) {
	row := s.db.QueryRowContext(ctx, updateTaskQuery,
		patch.TaskID,
		patch.TitleTask,
		patch.DescriptionTask,
		patch.TaskStatusID,
	)
	return s.scanTask(row)
}

func (s *taskStore) Delete(ctx context.Context, taskID int64) error {
	res, err := s.db.ExecContext(ctx, deleteTaskQuery, taskID)
	if err != nil {
		s.logger.Error("failed to delete task", zap.Int64("taskId", taskID), zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *taskStore) List(ctx context.Context, q TaskQuery) (*Page[TaskRecord], error) {
	where := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q.TaskStatusID > 0 {
		where = append(where, "t.task_status_id = "+arg(q.TaskStatusID))
	}
	if q.SearchTerm != "" {
		p := arg("%" + q.SearchTerm + "%")
		where = append(where, "(t.title ILIKE "+p+" OR t.description ILIKE "+p+")")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT count(*)"+taskFrom+" WHERE "+cond, args...).Scan(&total); err != nil {
		s.logger.Error("failed to count tasks", zap.Error(err))
		return nil, err
	}

	pageNumber, pageSize := normalizePage(q.PageNumber, q.PageSize)
	query := "SELECT " + taskColumns + taskFrom + " WHERE " + cond +
		" ORDER BY t.id DESC" +
		" LIMIT " + arg(pageSize) +
		" OFFSET " + arg((pageNumber-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("failed to list tasks", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	page := &Page[TaskRecord]{
		Items:      []TaskRecord{},
		TotalCount: total,
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}
	for rows.Next() {
		t, err := scanTaskFrom(rows.Scan)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, *t)
	}
	return page, rows.Err()
}

func (s *taskStore) GetByID(ctx context.Context, taskID int64) (*TaskRecord, error) {
	return s.scanTask(s.db.QueryRowContext(ctx, selectTaskByIDQuery, taskID))
}

func (s *taskStore) Metrics(ctx context.Context) (*TaskMetrics, error) {
	var m TaskMetrics
	if err := s.db.QueryRowContext(ctx, taskMetricsQuery).Scan(&m.TotalTasks, &m.CompletedTasks); err != nil {
		s.logger.Error("failed to compute task metrics", zap.Error(err))
		return nil, err
	}
	m.PendingTasks = m.TotalTasks - m.CompletedTasks
	if m.TotalTasks > 0 {
		m.CompletionPercentage = float64(m.CompletedTasks) / float64(m.TotalTasks) * 100
	}
	return &m, nil
}

func (s *taskStore) scanTask(row *sql.Row) (*TaskRecord, error) {
	t, err := scanTaskFrom(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		s.logger.Error("task query failed", zap.Error(err))
		return nil, err
	}
	return t, nil
}

func scanTaskFrom(scan func(...any) error) (*TaskRecord, error) {
	var t TaskRecord
	var updatedAt, completedAt sql.NullTime
	if err := scan(
		&t.TaskID,
		&t.TitleTask,
		&t.DescriptionTask,
		&t.TaskStatusID,
		&t.NameTaskStatus,
		&t.CreatedAtTask,
		&updatedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		t.UpdatedAtTask = &updatedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	t.IsCompleted = t.TaskStatusID == TaskStatusCompleted
	return &t, nil
}

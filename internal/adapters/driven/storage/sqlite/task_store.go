package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driven"
)

const taskColumns = `id, index_uid, content, status, error, created_at, started_at, finished_at`

// taskStore implements driven.TaskStore.
type taskStore struct {
	store *Store
}

var _ driven.TaskStore = (*taskStore)(nil)

// Register stores a new enqueued task. The ID is allocated by the same
// INSERT that writes the row, so it is visible only once the row commits.
func (s *taskStore) Register(
	ctx context.Context, indexUID string, content domain.TaskContent,
) (*domain.Task, error) {
	if indexUID == "" {
		return nil, fmt.Errorf("%w: index uid is required", domain.ErrInvalidInput)
	}
	if !content.Kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown task kind %q", domain.ErrInvalidInput, content.Kind)
	}

	contentJSON, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("marshalling task content: %w", err)
	}
	var contentID interface{}
	if id, ok := content.ContentID(); ok {
		contentID = nullString(id.String())
	}

	row := s.store.db.QueryRowContext(ctx, `
		INSERT INTO tasks (index_uid, kind, content, content_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+taskColumns,
		indexUID, string(content.Kind), string(contentJSON), contentID,
		string(domain.TaskEnqueued), formatTime(time.Now()))

	task, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("registering task: %w", err)
	}
	return task, nil
}

// Get retrieves a task by ID. A task hidden by the filter is not found.
func (s *taskStore) Get(ctx context.Context, id domain.TaskID, filter *domain.TaskFilter) (*domain.Task, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, int64(id))

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting task: %w", err)
	}
	if !filter.Matches(task) {
		return nil, domain.ErrNotFound
	}
	return task, nil
}

// List returns matching tasks, most recent first.
func (s *taskStore) List(
	ctx context.Context, filter *domain.TaskFilter, limit int, from *domain.TaskID,
) ([]domain.Task, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
	}

	var (
		where []string
		args  []interface{}
	)
	if from != nil {
		where = append(where, "id <= ?")
		args = append(args, int64(*from))
	}
	if filter != nil {
		where, args = appendIn(where, args, "index_uid", filter.Indexes)
		where, args = appendIn(where, args, "status", filter.Statuses)
		where, args = appendIn(where, args, "kind", filter.Kinds)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	return s.queryTasks(ctx, query, args...)
}

// Pending returns enqueued tasks in ascending ID order.
func (s *taskStore) Pending(ctx context.Context, limit int) ([]domain.Task, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
	}
	return s.queryTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status = ?
		ORDER BY id ASC
		LIMIT ?
	`, string(domain.TaskEnqueued), limit)
}

// ClaimNext moves the lowest enqueued task to processing in one statement.
// Returns nil and no error if no task is enqueued.
func (s *taskStore) ClaimNext(ctx context.Context) (*domain.Task, error) {
	row := s.store.db.QueryRowContext(ctx, `
		UPDATE tasks SET status = ?, started_at = ?
		WHERE id = (SELECT id FROM tasks WHERE status = ? ORDER BY id ASC LIMIT 1)
		RETURNING `+taskColumns,
		string(domain.TaskProcessing), formatTime(time.Now()), string(domain.TaskEnqueued))

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claiming task: %w", err)
	}
	return task, nil
}

// Finish records the terminal outcome of a processing task.
func (s *taskStore) Finish(
	ctx context.Context, id domain.TaskID, result domain.TaskResult,
) (*domain.Task, error) {
	status := domain.TaskSucceeded
	errMsg := ""
	if !result.Succeeded {
		status = domain.TaskFailed
		errMsg = result.Error
	}

	row := s.store.db.QueryRowContext(ctx, `
		UPDATE tasks SET status = ?, error = ?, finished_at = ?
		WHERE id = ? AND status = ?
		RETURNING `+taskColumns,
		string(status), nullString(errMsg), formatTime(time.Now()),
		int64(id), string(domain.TaskProcessing))

	task, err := scanTask(row)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("finishing task: %w", err)
	}

	// Nothing updated: tell a missing task from one in the wrong state.
	if _, err := s.Get(ctx, id, nil); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: task %d is not processing", domain.ErrInvalidTransition, id)
}

// ActiveContent returns content IDs still referenced by unfinished tasks.
func (s *taskStore) ActiveContent(ctx context.Context) (map[domain.ContentID]struct{}, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT content_id FROM tasks
		WHERE content_id IS NOT NULL AND status IN (?, ?)
	`, string(domain.TaskEnqueued), string(domain.TaskProcessing))
	if err != nil {
		return nil, fmt.Errorf("querying active content: %w", err)
	}
	defer rows.Close()

	active := make(map[domain.ContentID]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning content id: %w", err)
		}
		active[domain.ContentID(id)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating active content: %w", err)
	}
	return active, nil
}

func (s *taskStore) queryTasks(ctx context.Context, query string, args ...interface{}) ([]domain.Task, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task //nolint:prealloc // size unknown from query
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// appendIn adds a "column IN (...)" clause when values is non-empty.
func appendIn[T ~string](where []string, args []interface{}, column string, values []T) ([]string, []interface{}) {
	if len(values) == 0 {
		return where, args
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	for _, v := range values {
		args = append(args, string(v))
	}
	return append(where, column+" IN ("+placeholders+")"), args
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		id          int64
		task        domain.Task
		contentJSON string
		status      string
		errMsg      sql.NullString
		createdAt   string
		startedAt   sql.NullString
		finishedAt  sql.NullString
	)

	if err := row.Scan(&id, &task.IndexUID, &contentJSON, &status, &errMsg,
		&createdAt, &startedAt, &finishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	task.ID = domain.TaskID(id)
	task.Status = domain.TaskStatus(status)
	if !task.Status.IsValid() {
		return nil, fmt.Errorf("%w: task %d has unknown status %q", domain.ErrCorruption, id, status)
	}
	if err := json.Unmarshal([]byte(contentJSON), &task.Content); err != nil {
		return nil, fmt.Errorf("%w: task %d content: %v", domain.ErrCorruption, id, err)
	}
	task.Error = errMsg.String

	var err error
	if task.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("%w: task %d created_at: %v", domain.ErrCorruption, id, err)
	}
	if task.StartedAt, err = parseNullableTime(startedAt); err != nil {
		return nil, fmt.Errorf("%w: task %d started_at: %v", domain.ErrCorruption, id, err)
	}
	if task.FinishedAt, err = parseNullableTime(finishedAt); err != nil {
		return nil, fmt.Errorf("%w: task %d finished_at: %v", domain.ErrCorruption, id, err)
	}
	return &task, nil
}

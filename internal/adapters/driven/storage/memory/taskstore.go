package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driven"
)

// Ensure TaskStore implements the interface.
var _ driven.TaskStore = (*TaskStore)(nil)

// TaskStore is an in-memory implementation of driven.TaskStore.
// Tasks are kept in ID order; IDs start at 1.
type TaskStore struct {
	mu     sync.RWMutex
	tasks  []domain.Task
	nextID domain.TaskID
}

// NewTaskStore creates a new in-memory task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{nextID: 1}
}

// Register stores a new enqueued task.
func (s *TaskStore) Register(_ context.Context, indexUID string, content domain.TaskContent) (*domain.Task, error) {
	if indexUID == "" {
		return nil, fmt.Errorf("%w: index uid is required", domain.ErrInvalidInput)
	}
	if !content.Kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown task kind %q", domain.ErrInvalidInput, content.Kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	task := domain.Task{
		ID:        s.nextID,
		IndexUID:  indexUID,
		Content:   content,
		Status:    domain.TaskEnqueued,
		CreatedAt: time.Now().UTC(),
	}
	s.nextID++
	s.tasks = append(s.tasks, task)
	return &task, nil
}

// Get retrieves a task by ID. A task hidden by the filter is not found.
func (s *TaskStore) Get(_ context.Context, id domain.TaskID, filter *domain.TaskFilter) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.find(id)
	if !ok || !filter.Matches(&s.tasks[i]) {
		return nil, domain.ErrNotFound
	}
	task := s.tasks[i]
	return &task, nil
}

// List returns matching tasks, most recent first.
func (s *TaskStore) List(
	_ context.Context, filter *domain.TaskFilter, limit int, from *domain.TaskID,
) ([]domain.Task, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Task
	for i := len(s.tasks) - 1; i >= 0 && len(result) < limit; i-- {
		task := s.tasks[i]
		if from != nil && task.ID > *from {
			continue
		}
		if filter.Matches(&task) {
			result = append(result, task)
		}
	}
	return result, nil
}

// Pending returns enqueued tasks in ascending ID order.
func (s *TaskStore) Pending(_ context.Context, limit int) ([]domain.Task, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Task
	for _, task := range s.tasks {
		if len(result) == limit {
			break
		}
		if task.Status == domain.TaskEnqueued {
			result = append(result, task)
		}
	}
	return result, nil
}

// ClaimNext moves the lowest enqueued task to processing.
func (s *TaskStore) ClaimNext(_ context.Context) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].Status != domain.TaskEnqueued {
			continue
		}
		now := time.Now().UTC()
		s.tasks[i].Status = domain.TaskProcessing
		s.tasks[i].StartedAt = &now
		task := s.tasks[i]
		return &task, nil
	}
	return nil, nil
}

// Finish records the terminal outcome of a processing task.
func (s *TaskStore) Finish(_ context.Context, id domain.TaskID, result domain.TaskResult) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.find(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if s.tasks[i].Status != domain.TaskProcessing {
		return nil, fmt.Errorf("%w: task %d is %s", domain.ErrInvalidTransition, id, s.tasks[i].Status)
	}
	now := time.Now().UTC()
	s.tasks[i].FinishedAt = &now
	if result.Succeeded {
		s.tasks[i].Status = domain.TaskSucceeded
	} else {
		s.tasks[i].Status = domain.TaskFailed
		s.tasks[i].Error = result.Error
	}
	task := s.tasks[i]
	return &task, nil
}

// ActiveContent returns content IDs still referenced by unfinished tasks.
func (s *TaskStore) ActiveContent(_ context.Context) (map[domain.ContentID]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	active := make(map[domain.ContentID]struct{})
	for _, task := range s.tasks {
		if task.Status.IsTerminal() {
			continue
		}
		if id, ok := task.Content.ContentID(); ok {
			active[id] = struct{}{}
		}
	}
	return active, nil
}

// find locates a task by ID. Caller must hold mu.
func (s *TaskStore) find(id domain.TaskID) (int, bool) {
	// IDs are dense from 1, so the index is the ID minus one.
	i := int(id) - 1
	if i < 0 || i >= len(s.tasks) {
		return 0, false
	}
	return i, true
}

package repository

import (
	"fmt"
	"sync"

	"github.com/prathamsoni002/migration-automation-service/internal/model"
)

var (
	ErrTaskNotFound = fmt.Errorf("task not found")
	ErrTaskExists   = fmt.Errorf("task already exists")
)

// TaskRepository 内存任务注册表。进程重启即丢失，迁移任务生命周期只有
// 几分钟，可以接受。所有读-改-写都在锁内完成，浏览器 I/O 绝不持锁。
type TaskRepository struct {
	mu    sync.Mutex
	tasks map[string]*model.Task
}

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{
		tasks: make(map[string]*model.Task),
	}
}

// Create 注册新任务，ID 已存在时返回错误
func (r *TaskRepository) Create(task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[task.ID]; ok {
		return ErrTaskExists
	}
	clone := *task
	r.tasks[task.ID] = &clone
	return nil
}

// Get 返回任务的副本，调用方的修改不会影响注册表
func (r *TaskRepository) Get(id string) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return model.Task{}, ErrTaskNotFound
	}
	return *task, nil
}

// Update 在锁内执行 mutate 完成部分更新。mutate 不得阻塞。
func (r *TaskRepository) Update(id string, mutate func(*model.Task)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	mutate(task)
	return nil
}

// Delete 移除任务并返回被移除的记录
func (r *TaskRepository) Delete(id string) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return model.Task{}, ErrTaskNotFound
	}
	delete(r.tasks, id)
	return *task, nil
}

// Count 当前注册的任务数，用于 /health
func (r *TaskRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

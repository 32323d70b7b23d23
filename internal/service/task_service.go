package service

import (
	"context"

	"noizlabs/internal/domain"
)

// TaskView is a catalog entry with the caller's completion state.
type TaskView struct {
	*domain.Task
	Completed bool `json:"completed"`
	Verified  bool `json:"verified"`
}

type TaskService struct {
	Deps
}

func NewTaskService(d Deps) *TaskService {
	return &TaskService{Deps: d}
}

func (s *TaskService) List(ctx context.Context, userID int64) ([]TaskView, error) {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.Tasks.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	done, err := s.Tasks.ListUserTasks(ctx, p.WalletAddress)
	if err != nil {
		return nil, err
	}
	byTask := make(map[int64]*domain.UserTask, len(done))
	for _, ut := range done {
		byTask[ut.TaskID] = ut
	}

	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		v := TaskView{Task: t}
		if ut, ok := byTask[t.ID]; ok {
			v.Completed = true
			v.Verified = ut.Verified
		}
		views = append(views, v)
	}
	return views, nil
}

// Complete records a verified completion. Social tasks are verified on
// click-through; referral tasks need at least one referred wallet.
func (s *TaskService) Complete(ctx context.Context, userID, taskID int64) (*domain.UserTask, error) {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	task, err := s.Tasks.GetByID(ctx, taskID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if !task.IsActive {
		return nil, ErrTaskNotFound
	}

	if task.Kind == domain.TaskKindReferral {
		n, err := s.Referrals.CountReferrals(ctx, p.WalletAddress)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrTaskRequirements
		}
	}

	ut := &domain.UserTask{WalletAddress: p.WalletAddress, TaskID: task.ID, Verified: true}
	if err := s.Tasks.CreateUserTask(ctx, ut); err != nil {
		if isConflict(err) {
			return nil, ErrTaskAlreadyCompleted
		}
		return nil, err
	}
	return ut, nil
}

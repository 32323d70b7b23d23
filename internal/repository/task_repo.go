package repository

import (
	"context"

	"noizlabs/internal/db"
	"noizlabs/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func (r *TaskRepository) ListActive(ctx context.Context) ([]*domain.Task, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT id, kind, title, description, link, reward, is_active, sort_order, created_at
		 FROM tasks WHERE is_active = TRUE ORDER BY sort_order, id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var res []*domain.Task
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.Kind, &t.Title, &t.Description, &t.Link, &t.Reward,
			&t.IsActive, &t.SortOrder, &t.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &t)
	}
	return res, rows.Err()
}

func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	var t domain.Task
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, kind, title, description, link, reward, is_active, sort_order, created_at
		 FROM tasks WHERE id = $1`, id,
	).Scan(&t.ID, &t.Kind, &t.Title, &t.Description, &t.Link, &t.Reward, &t.IsActive, &t.SortOrder, &t.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

// CreateUserTask records a completion; a second one for the same task is ErrConflict
func (r *TaskRepository) CreateUserTask(ctx context.Context, ut *domain.UserTask) error {
	return mapErr(db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO user_tasks (wallet_address, task_id, verified)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		ut.WalletAddress, ut.TaskID, ut.Verified,
	).Scan(&ut.ID, &ut.CreatedAt))
}

func (r *TaskRepository) GetUserTask(ctx context.Context, wallet string, taskID int64) (*domain.UserTask, error) {
	var ut domain.UserTask
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, wallet_address, task_id, verified, created_at
		 FROM user_tasks WHERE wallet_address = $1 AND task_id = $2`,
		wallet, taskID,
	).Scan(&ut.ID, &ut.WalletAddress, &ut.TaskID, &ut.Verified, &ut.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &ut, nil
}

func (r *TaskRepository) ListUserTasks(ctx context.Context, wallet string) ([]*domain.UserTask, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT id, wallet_address, task_id, verified, created_at
		 FROM user_tasks WHERE wallet_address = $1 ORDER BY created_at`, wallet)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var res []*domain.UserTask
	for rows.Next() {
		var ut domain.UserTask
		if err := rows.Scan(&ut.ID, &ut.WalletAddress, &ut.TaskID, &ut.Verified, &ut.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &ut)
	}
	return res, rows.Err()
}

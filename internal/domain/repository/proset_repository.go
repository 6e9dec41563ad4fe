package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"code_arena/internal/common"
	"code_arena/internal/domain/model"
)

type ProSetRepository interface {
	Create(ctx context.Context, proset *model.ProSet) error
	FindByID(ctx context.Context, id int) (*model.ProSet, error)
	List(ctx context.Context) ([]model.ProSet, error)
	Update(ctx context.Context, proset *model.ProSet) error
	Delete(ctx context.Context, id int) error

	AddItem(ctx context.Context, item *model.ProItem) error
	FindItemByID(ctx context.Context, id int) (*model.ProItem, error)
	ListItems(ctx context.Context, prosetID int) ([]model.ProItem, error)
	UpdateItem(ctx context.Context, item *model.ProItem) error
	RemoveItem(ctx context.Context, id int) error
}

type pgProSetRepository struct {
	db *sql.DB
}

func NewPgProSetRepository(db *sql.DB) ProSetRepository {
	return &pgProSetRepository{db: db}
}

func (r *pgProSetRepository) Create(ctx context.Context, ps *model.ProSet) error {
	query := `INSERT INTO prosets (name, category, hidden) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, ps.Name, ps.Category, ps.Hidden).
		Scan(&ps.ID, &ps.CreatedAt, &ps.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pgProSetRepository.Create: %w", err)
	}
	return nil
}

func (r *pgProSetRepository) FindByID(ctx context.Context, id int) (*model.ProSet, error) {
	query := `SELECT id, name, category, hidden, created_at, updated_at FROM prosets WHERE id = $1`
	ps := &model.ProSet{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&ps.ID, &ps.Name, &ps.Category, &ps.Hidden, &ps.CreatedAt, &ps.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProSetRepository.FindByID: %w", err)
	}
	return ps, nil
}

func (r *pgProSetRepository) List(ctx context.Context) ([]model.ProSet, error) {
	query := `SELECT id, name, category, hidden, created_at, updated_at FROM prosets ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgProSetRepository.List: %w", err)
	}
	defer rows.Close()

	var prosets []model.ProSet
	for rows.Next() {
		var ps model.ProSet
		if err := rows.Scan(&ps.ID, &ps.Name, &ps.Category, &ps.Hidden, &ps.CreatedAt, &ps.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgProSetRepository.List scan: %w", err)
		}
		prosets = append(prosets, ps)
	}
	return prosets, rows.Err()
}

func (r *pgProSetRepository) Update(ctx context.Context, ps *model.ProSet) error {
	query := `UPDATE prosets SET name = $1, category = $2, hidden = $3, updated_at = NOW() WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, ps.Name, ps.Category, ps.Hidden, ps.ID)
	if err != nil {
		return fmt.Errorf("pgProSetRepository.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgProSetRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM prosets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgProSetRepository.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgProSetRepository) AddItem(ctx context.Context, item *model.ProItem) error {
	query := `INSERT INTO proitems (proset_id, problem_id, hidden, deadline) VALUES ($1, $2, $3, $4)
	          RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, item.ProSetID, item.ProblemID, item.Hidden, item.Deadline).
		Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgProSetRepository.AddItem: %w", err)
	}
	return nil
}

func (r *pgProSetRepository) FindItemByID(ctx context.Context, id int) (*model.ProItem, error) {
	query := `SELECT id, proset_id, problem_id, hidden, deadline, created_at FROM proitems WHERE id = $1`
	item := &model.ProItem{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&item.ID, &item.ProSetID, &item.ProblemID, &item.Hidden, &item.Deadline, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProSetRepository.FindItemByID: %w", err)
	}
	return item, nil
}

func (r *pgProSetRepository) ListItems(ctx context.Context, prosetID int) ([]model.ProItem, error) {
	query := `SELECT id, proset_id, problem_id, hidden, deadline, created_at FROM proitems
	          WHERE proset_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, prosetID)
	if err != nil {
		return nil, fmt.Errorf("pgProSetRepository.ListItems: %w", err)
	}
	defer rows.Close()

	var items []model.ProItem
	for rows.Next() {
		var item model.ProItem
		if err := rows.Scan(&item.ID, &item.ProSetID, &item.ProblemID, &item.Hidden, &item.Deadline, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgProSetRepository.ListItems scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *pgProSetRepository) UpdateItem(ctx context.Context, item *model.ProItem) error {
	query := `UPDATE proitems SET hidden = $1, deadline = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, item.Hidden, item.Deadline, item.ID)
	if err != nil {
		return fmt.Errorf("pgProSetRepository.UpdateItem: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgProSetRepository) RemoveItem(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM proitems WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgProSetRepository.RemoveItem: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

package repository

import (
	"context"
	"time"

	"github.com/spf13/cast"

	"clinic/internal/db"
	"clinic/internal/model"
)

// BranchRepository defines persistence operations for branches.
type BranchRepository interface {
	ListActive(ctx context.Context) ([]model.Branch, error)
	Create(ctx context.Context, branch *model.Branch) error
	DoctorCount(ctx context.Context, branchID uint) (int64, error)
}

type branchRepository struct {
	exec *db.Executor
	now  func() time.Time
}

// NewBranchRepository creates a new branch repository.
func NewBranchRepository(exec *db.Executor) BranchRepository {
	return &branchRepository{exec: exec, now: time.Now}
}

// ListActive returns active branches ordered by name.
func (r *branchRepository) ListActive(ctx context.Context) ([]model.Branch, error) {
	rows, err := r.exec.QueryAll(ctx,
		"SELECT id, name, address, phone, is_active, created_at FROM branches WHERE is_active = TRUE ORDER BY name")
	if err != nil {
		return nil, err
	}
	branches := make([]model.Branch, 0, len(rows))
	for _, rec := range rows {
		branches = append(branches, model.Branch{
			ID:        rec.Uint("id"),
			Name:      rec.String("name"),
			Address:   rec.String("address"),
			Phone:     rec.String("phone"),
			IsActive:  rec.Bool("is_active"),
			CreatedAt: rec.Time("created_at"),
		})
	}
	return branches, nil
}

// Create inserts an active branch and sets its ID.
func (r *branchRepository) Create(ctx context.Context, branch *model.Branch) error {
	now := r.now().UTC()
	res, err := r.exec.Exec(ctx,
		"INSERT INTO branches (name, address, phone, is_active, created_at) VALUES (?, ?, ?, TRUE, ?)",
		branch.Name, branch.Address, branch.Phone, now)
	if err != nil {
		return err
	}
	branch.ID = uint(res.LastInsertID)
	branch.IsActive = true
	branch.CreatedAt = now
	return nil
}

// DoctorCount counts the active doctors of a branch with fn_branch_doctor_count.
func (r *branchRepository) DoctorCount(ctx context.Context, branchID uint) (int64, error) {
	v, err := r.exec.ExecuteFunction(ctx, "fn_branch_doctor_count", branchID)
	if err != nil {
		return 0, err
	}
	return cast.ToInt64(v), nil
}

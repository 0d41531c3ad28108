package service

import (
	"context"
	"strings"

	"clinic/internal/cache"
	apperrors "clinic/internal/errors"
	"clinic/internal/model"
	"clinic/internal/repository"
)

const branchCachePrefix = "branches."

// CreateBranchInput carries a new branch.
type CreateBranchInput struct {
	Name    string
	Address string
	Phone   string
}

// BranchService handles branch operations.
type BranchService interface {
	List(ctx context.Context) ([]model.Branch, error)
	Create(ctx context.Context, in CreateBranchInput) (*model.Branch, error)
	DoctorCount(ctx context.Context, branchID uint) (int64, error)
}

type branchService struct {
	branches repository.BranchRepository
	cache    cache.Store
	list     func(ctx context.Context, _ struct{}) ([]model.Branch, error)
}

// NewBranchService creates a branch service whose list is memoized in store.
func NewBranchService(branches repository.BranchRepository, store cache.Store) BranchService {
	s := &branchService{branches: branches, cache: store}
	s.list = cache.Memoize(store, branchCachePrefix+"list", 0, func(ctx context.Context, _ struct{}) ([]model.Branch, error) {
		return branches.ListActive(ctx)
	})
	return s
}

// List returns active branches, served from the cache within its TTL.
func (s *branchService) List(ctx context.Context) ([]model.Branch, error) {
	return s.list(ctx, struct{}{})
}

// Create inserts a branch and drops cached branch lists.
func (s *branchService) Create(ctx context.Context, in CreateBranchInput) (*model.Branch, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.Validation("branch name is required")
	}
	branch := &model.Branch{Name: name, Address: in.Address, Phone: in.Phone}
	if err := s.branches.Create(ctx, branch); err != nil {
		return nil, err
	}
	s.cache.DeletePrefix(ctx, branchCachePrefix)
	return branch, nil
}

// DoctorCount returns the number of active doctors at a branch.
func (s *branchService) DoctorCount(ctx context.Context, branchID uint) (int64, error) {
	if branchID == 0 {
		return 0, apperrors.Validation("branch id is required")
	}
	return s.branches.DoctorCount(ctx, branchID)
}

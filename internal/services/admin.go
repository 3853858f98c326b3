package services

import (
	"context"

	"github.com/contesthub/apiserver/types"
)

// AdminRepository defines persistence operations for admin accounts.
type AdminRepository interface {
	GetByID(ctx context.Context, id int) (types.Admin, error)
	GetByEmail(ctx context.Context, email string) (types.Admin, error)
	Create(ctx context.Context, admin types.Admin) (types.Admin, error)
}

// AdminService encapsulates admin account use-cases. Admins authenticate
// through the same login path as users by secondary lookup.
type AdminService struct {
	repo AdminRepository
}

func NewAdminService(repo AdminRepository) *AdminService {
	return &AdminService{repo: repo}
}

func (s *AdminService) GetByID(ctx context.Context, id int) (types.Admin, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *AdminService) GetByEmail(ctx context.Context, email string) (types.Admin, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *AdminService) Create(ctx context.Context, admin types.Admin) (types.Admin, error) {
	return s.repo.Create(ctx, admin)
}

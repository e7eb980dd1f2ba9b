package service

import (
	"context"
	"log/slog"

	"anoa.com/gamification/internal/entity"
	"anoa.com/gamification/internal/modules/user/dto"
	"anoa.com/gamification/internal/modules/user/repository"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// UserService keeps the local directory in sync with the upstream user system.
type UserService interface {
	RegisterUser(ctx context.Context, input dto.RegisterUserInput) (*entity.User, error)
}

type userService struct {
	repo      repository.UserRepository
	sanitizer *bluemonday.Policy
}

func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo, sanitizer: bluemonday.StrictPolicy()}
}

func (s *userService) RegisterUser(ctx context.Context, input dto.RegisterUserInput) (*entity.User, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, err
	}

	roleName := input.Role
	if roleName == "" {
		roleName = entity.RoleMember
	}
	role, err := s.repo.FindRoleByName(ctx, roleName)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		ID:          id,
		Username:    s.sanitizer.Sanitize(input.Username),
		DisplayName: s.sanitizer.Sanitize(input.DisplayName),
		AvatarURL:   input.AvatarURL,
		RoleID:      &role.ID,
	}
	if err := s.repo.Upsert(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("User registered",
		slog.String("user_id", user.ID.String()),
		slog.String("role", roleName))

	user.Role = *role
	return user, nil
}

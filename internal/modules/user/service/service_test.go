package service

import (
	"context"
	"testing"

	"anoa.com/gamification/internal/entity"
	"anoa.com/gamification/internal/modules/user/dto"
	"anoa.com/gamification/internal/modules/user/repository"
	"anoa.com/gamification/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserRepository struct {
	mock.Mock
	repository.UserRepository
}

func (m *MockUserRepository) FindRoleByName(ctx context.Context, name string) (*entity.Role, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Role), args.Error(1)
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func TestRegisterUser(t *testing.T) {
	t.Run("defaults to member and strips markup", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewUserService(repo)
		id := uuid.New()

		repo.On("FindRoleByName", mock.Anything, entity.RoleMember).Return(&entity.Role{ID: 3, Name: entity.RoleMember}, nil)
		repo.On("Upsert", mock.Anything, mock.MatchedBy(func(u *entity.User) bool {
			return u.ID == id && *u.RoleID == 3
		})).Return(nil)

		user, err := svc.RegisterUser(context.Background(), dto.RegisterUserInput{
			ID:          id.String(),
			Username:    "alice",
			DisplayName: "<b>Alice</b>",
		})
		require.NoError(t, err)
		assert.Equal(t, "Alice", user.DisplayName)
		assert.Equal(t, entity.RoleMember, user.Role.Name)
		repo.AssertExpectations(t)
	})

	t.Run("unknown role", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewUserService(repo)

		repo.On("FindRoleByName", mock.Anything, entity.RoleService).Return(nil, apperror.NotFound("role not found"))

		_, err := svc.RegisterUser(context.Background(), dto.RegisterUserInput{
			ID:       uuid.NewString(),
			Username: "billing",
			Role:     entity.RoleService,
		})
		assert.ErrorIs(t, err, apperror.ErrNotFound)
		repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})
}

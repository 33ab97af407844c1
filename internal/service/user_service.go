package service

import (
	"context"

	"github.com/donkilove/ZYKJ-MES/internal/model/entity"
	"github.com/donkilove/ZYKJ-MES/internal/repository"
)

// UserService 用户查询
type UserService struct {
	repo     *repository.UserRepository
	presence *PresenceService
}

// NewUserService 创建用户服务
func NewUserService(repo *repository.UserRepository, presence *PresenceService) *UserService {
	return &UserService{repo: repo, presence: presence}
}

// UserListItem 用户列表项，附在线标记
type UserListItem struct {
	entity.User
	IsOnline bool `json:"is_online"`
}

// List 分页查询用户并标注在线状态
func (s *UserService) List(ctx context.Context, params repository.UserListParams) ([]UserListItem, int64, error) {
	users, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	online := s.presence.OnlineSet(ctx, ids)

	items := make([]UserListItem, 0, len(users))
	for _, u := range users {
		items = append(items, UserListItem{User: u, IsOnline: online[u.ID]})
	}
	return items, total, nil
}

// Get 查询单个用户
func (s *UserService) Get(ctx context.Context, id uint) (*entity.User, error) {
	return s.repo.FindByID(ctx, id)
}

package service

import (
	"context"

	"github.com/splitshare/splitshare-system/internal/model"
	"github.com/splitshare/splitshare-system/internal/repository"
)

// CreateGroupInput содержит параметры создания группы, заданные владельцем.
type CreateGroupInput struct {
	Name        string
	Category    string
	TotalPrice  float64
	SlotsTotal  int32
	Credentials string
}

// CreateGroup создаёт группу от имени владельца. Новая группа попадает
// на модерацию и не видна в каталоге до одобрения.
func (s *Service) CreateGroup(ctx context.Context, ownerID int64, input CreateGroupInput) (*model.Group, error) {
	if input.Name == "" || input.SlotsTotal < 1 || input.TotalPrice < 0 {
		return nil, ErrInvalidGroupParams
	}

	return s.repo.CreateGroup(ctx, repository.CreateGroupParams{
		OwnerID:         ownerID,
		Name:            input.Name,
		Category:        input.Category,
		TotalPriceCents: int64(input.TotalPrice * 100),
		SlotsTotal:      input.SlotsTotal,
		Credentials:     input.Credentials,
	})
}

// GetGroup возвращает группу по идентификатору.
func (s *Service) GetGroup(ctx context.Context, groupID int64) (*model.Group, error) {
	return s.repo.GetGroupByID(ctx, groupID)
}

// ListGroups возвращает страницу каталога активных групп.
func (s *Service) ListGroups(ctx context.Context, search, category string, page, limit int) ([]model.Group, int64, error) {
	page, limit = normalizePage(page, limit)
	return s.repo.ListActiveGroups(ctx, search, category, page, limit)
}

// ListGroupsByOwner возвращает группы, созданные пользователем.
func (s *Service) ListGroupsByOwner(ctx context.Context, ownerID int64) ([]model.Group, error) {
	return s.repo.ListGroupsByOwner(ctx, ownerID)
}

// UpdateGroupInput содержит изменяемые владельцем поля группы.
type UpdateGroupInput struct {
	Name        string
	Category    string
	TotalPrice  float64
	Credentials string
}

// UpdateGroup обновляет группу от имени владельца.
func (s *Service) UpdateGroup(ctx context.Context, groupID, requesterID int64, input UpdateGroupInput) (*model.Group, error) {
	if input.Name == "" || input.TotalPrice < 0 {
		return nil, ErrInvalidGroupParams
	}

	return s.repo.UpdateGroup(ctx, groupID, requesterID, repository.UpdateGroupParams{
		Name:            input.Name,
		Category:        input.Category,
		TotalPriceCents: int64(input.TotalPrice * 100),
		Credentials:     input.Credentials,
	})
}

// DeleteGroup удаляет группу владельца без активных участников.
func (s *Service) DeleteGroup(ctx context.Context, groupID, requesterID int64) error {
	return s.repo.DeleteGroup(ctx, groupID, requesterID)
}

// GroupCredentials возвращает доступы группы владельцу или активному участнику.
func (s *Service) GroupCredentials(ctx context.Context, groupID, userID int64) (string, error) {
	return s.repo.GroupCredentials(ctx, groupID, userID)
}

// JoinGroup добавляет пользователя в группу с указанным типом участия.
// Для временного участия days задаёт срок в днях.
func (s *Service) JoinGroup(ctx context.Context, userID, groupID int64, membershipType string, days int) (*model.Membership, error) {
	mt := model.MembershipType(membershipType)
	switch mt {
	case model.MembershipMonthly:
		days = 0
	case model.MembershipTemporary:
		if days < 1 || days > model.DaysPerMonth {
			return nil, ErrInvalidMembership
		}
	default:
		return nil, ErrInvalidMembership
	}

	return s.repo.JoinGroup(ctx, userID, groupID, mt, days)
}

// LeaveGroup выводит пользователя из группы и возвращает сумму возврата в кредитах.
func (s *Service) LeaveGroup(ctx context.Context, userID, membershipID int64) (float64, error) {
	refundCents, err := s.repo.LeaveGroup(ctx, userID, membershipID)
	if err != nil {
		return 0, err
	}
	return float64(refundCents) / 100, nil
}

// ListMembershipsByUser возвращает участия пользователя.
func (s *Service) ListMembershipsByUser(ctx context.Context, userID int64) ([]model.Membership, error) {
	return s.repo.ListMembershipsByUser(ctx, userID)
}

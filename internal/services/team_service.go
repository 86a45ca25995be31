package services

import (
	"cmms/internal/models"
	"cmms/pkg/pagination"
	"context"
	"fmt"

	"gorm.io/gorm"
)

type TeamService struct {
	db    *gorm.DB
	store *ScopedStore[models.Team, *models.Team]
}

func NewTeamService(db *gorm.DB) *TeamService {
	return &TeamService{
		db:    db,
		store: NewScopedStore[models.Team](db, "name", "name"),
	}
}

// TeamInput 班组参数
type TeamInput struct {
	Name        string
	Description string
	LeaderID    *uint
	IsActive    *bool
	MemberIDs   []uint
}

// Create 创建班组
func (s *TeamService) Create(ctx context.Context, actor *Actor, input TeamInput) (*models.Team, error) {
	var team *models.Team
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		team = &models.Team{IsActive: true}
		if err := applyTeam(tx, actor, team, input); err != nil {
			return err
		}
		team.AssignTenant(actor.TenantID)
		if err := tx.Omit("Members").Create(team).Error; err != nil {
			return err
		}
		return replaceMembers(tx, actor, team, input.MemberIDs)
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// GetByID 获取班组及成员
func (s *TeamService) GetByID(ctx context.Context, actor *Actor, id uint) (*models.Team, error) {
	return s.store.Get(ctx, actor, id, "Members")
}

// List 班组列表
func (s *TeamService) List(ctx context.Context, actor *Actor, search string, page *pagination.PageParams) ([]models.Team, int64, error) {
	return s.store.List(ctx, actor, search, page, func(db *gorm.DB) *gorm.DB {
		return db.Preload("Members")
	})
}

// Update 更新班组，MemberIDs 为 nil 时成员不变
func (s *TeamService) Update(ctx context.Context, actor *Actor, id uint, input TeamInput) (*models.Team, error) {
	var team *models.Team
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		team, err = findOwned[models.Team](tx, actor, id)
		if err != nil {
			return err
		}
		if err := applyTeam(tx, actor, team, input); err != nil {
			return err
		}
		if err := tx.Omit("Members").Save(team).Error; err != nil {
			return err
		}
		if input.MemberIDs != nil {
			return replaceMembers(tx, actor, team, input.MemberIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// SetMembers 替换班组成员，成员必须属于同一租户
func (s *TeamService) SetMembers(ctx context.Context, actor *Actor, id uint, userIDs []uint) (*models.Team, error) {
	var team *models.Team
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		team, err = findOwned[models.Team](tx, actor, id)
		if err != nil {
			return err
		}
		return replaceMembers(tx, actor, team, userIDs)
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// Delete 删除班组，工单和保养计划解除关联
func (s *TeamService) Delete(ctx context.Context, actor *Actor, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		team, err := findOwned[models.Team](tx, actor, id)
		if err != nil {
			return err
		}
		if err := tx.Model(team).Association("Members").Clear(); err != nil {
			return err
		}
		if err := tx.Model(&models.WorkOrder{}).Where("team_id = ?", team.ID).Update("team_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.MaintenanceSchedule{}).Where("assigned_team_id = ?", team.ID).Update("assigned_team_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(team).Error
	})
}

func applyTeam(tx *gorm.DB, actor *Actor, team *models.Team, input TeamInput) error {
	name, err := requireName(input.Name)
	if err != nil {
		return err
	}
	if err := assertRef[models.User](tx, actor, input.LeaderID, "leader_id"); err != nil {
		return err
	}
	team.Name = name
	team.Description = input.Description
	team.LeaderID = input.LeaderID
	if input.IsActive != nil {
		team.IsActive = *input.IsActive
	}
	return nil
}

func replaceMembers(tx *gorm.DB, actor *Actor, team *models.Team, userIDs []uint) error {
	members := make([]models.User, 0, len(userIDs))
	if len(userIDs) > 0 {
		if err := tx.Where("id IN ?", userIDs).Find(&members).Error; err != nil {
			return err
		}
		if len(members) != len(uniqueIDs(userIDs)) {
			return fmt.Errorf("%w: 成员不存在", ErrInvalidInput)
		}
		for i := range members {
			if err := AssertOwned(&members[i], actor); err != nil {
				return err
			}
		}
	}
	if err := tx.Model(team).Association("Members").Replace(members); err != nil {
		return err
	}
	team.Members = members
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

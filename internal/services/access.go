package services

import (
	"cmms/internal/models"
	"cmms/pkg/logger"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Actor 当前操作者，由认证中间件构造并显式传入每个服务调用
type Actor struct {
	UserID   uint
	TenantID uint
	RoleID   *uint
	Username string
}

// TenantScope 把查询限定在操作者所在租户。actor 为空时不返回任何行
func TenantScope(actor *Actor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if actor == nil || actor.TenantID == 0 {
			return db.Where("1 = 0")
		}
		return db.Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: "tenant_id"},
			Value:  actor.TenantID,
		})
	}
}

// AssertOwned 校验记录属于操作者所在租户。
// 跨租户访问属于安全问题，记录日志和指标，错误信息不包含对方租户的任何数据
func AssertOwned(record models.TenantOwned, actor *Actor) error {
	entity := entityName(record)
	if actor != nil && record != nil && record.OwnerTenantID() == actor.TenantID {
		return nil
	}

	fields := logrus.Fields{"entity": entity}
	if actor != nil {
		fields["actor_id"] = actor.UserID
		fields["actor_tenant_id"] = actor.TenantID
	}
	if record != nil {
		fields["record_tenant_id"] = record.OwnerTenantID()
	}
	logger.GetLogger().WithFields(fields).Warn("Cross-tenant access denied")
	crossTenantDenials.WithLabelValues(entity).Inc()

	return ErrCrossTenantAccess
}

func entityName(record models.TenantOwned) string {
	if record == nil {
		return "unknown"
	}
	name := fmt.Sprintf("%T", record)
	name = strings.TrimPrefix(name, "*")
	return strings.TrimPrefix(name, "models.")
}

// findOwned 按主键加载记录后校验归属。
// 不带租户条件查询，这样猜测到的其他租户ID会暴露为越权而不是静默的不存在
func findOwned[T any, P interface {
	*T
	models.TenantOwned
}](db *gorm.DB, actor *Actor, id uint, preloads ...string) (P, error) {
	var rec T
	query := db
	for _, p := range preloads {
		query = query.Preload(p)
	}
	if err := query.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	p := P(&rec)
	if err := AssertOwned(p, actor); err != nil {
		return nil, err
	}
	return p, nil
}

// assertRef 校验可选的外键引用属于操作者租户
func assertRef[T any, P interface {
	*T
	models.TenantOwned
}](db *gorm.DB, actor *Actor, id *uint, field string) error {
	if id == nil || *id == 0 {
		return nil
	}
	if _, err := findOwned[T, P](db, actor, *id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: %s 不存在", ErrInvalidInput, field)
		}
		return err
	}
	return nil
}

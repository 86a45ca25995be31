package services

import (
	"cmms/internal/models"
	"cmms/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/datatypes"
)

// errStaleSnapshot 读库期间角色已被修改
var errStaleSnapshot = errors.New("role snapshot is stale")

// roleSnapshot 权限判断需要的角色字段
type roleSnapshot struct {
	ID          uint     `json:"id"`
	TenantID    uint     `json:"tenant_id"`
	Name        string   `json:"name"`
	IsActive    bool     `json:"is_active"`
	Permissions []string `json:"permissions"`
}

func snapshotOf(role *models.Role) *roleSnapshot {
	return &roleSnapshot{
		ID:          role.ID,
		TenantID:    role.TenantID,
		Name:        role.Name,
		IsActive:    role.IsActive,
		Permissions: []string(role.Permissions),
	}
}

// role 还原成模型，复用模型上的权限判断
func (s *roleSnapshot) role() *models.Role {
	return &models.Role{
		TenantID:    s.TenantID,
		Name:        s.Name,
		IsActive:    s.IsActive,
		Permissions: datatypes.JSONSlice[string](s.Permissions),
	}
}

// RoleCache 角色权限缓存。
// 每个角色有一个代数键，变更时自增；读库前记下代数，写缓存时代数变了就放弃，
// 这样读库和失效交错时不会把旧快照写回去，nil 或未配置 Redis 时所有操作都是空操作
type RoleCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRoleCache 创建角色缓存
func NewRoleCache(client *redis.Client, prefix string, ttl time.Duration) *RoleCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RoleCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RoleCache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *RoleCache) key(roleID uint) string {
	return fmt.Sprintf("%s:role:%d", c.prefix, roleID)
}

func (c *RoleCache) genKey(roleID uint) string {
	return fmt.Sprintf("%s:role:%d:gen", c.prefix, roleID)
}

// generation 当前代数，键不存在视为 0；读取失败时返回 false，本次不写缓存
func (c *RoleCache) generation(ctx context.Context, roleID uint) (int64, bool) {
	if !c.enabled() {
		return 0, false
	}
	gen, err := c.client.Get(ctx, c.genKey(roleID)).Int64()
	if err != nil && err != redis.Nil {
		logger.GetLogger().WithField("role_id", roleID).Warnf("Role cache generation read failed: %v", err)
		return 0, false
	}
	return gen, true
}

func (c *RoleCache) get(ctx context.Context, roleID uint) (*roleSnapshot, bool) {
	if !c.enabled() {
		return nil, false
	}
	data, err := c.client.Get(ctx, c.key(roleID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.GetLogger().WithField("role_id", roleID).Warnf("Role cache read failed: %v", err)
		}
		return nil, false
	}
	var snap roleSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false
	}
	return &snap, true
}

// set 代数仍为 gen 时写入快照
func (c *RoleCache) set(ctx context.Context, snap *roleSnapshot, gen int64) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}

	genKey := c.genKey(snap.ID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != gen {
			return errStaleSnapshot
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(snap.ID), data, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleSnapshot), errors.Is(err, redis.TxFailedErr):
		logger.GetLogger().WithField("role_id", snap.ID).Debug("Role changed while loading, snapshot not cached")
	default:
		logger.GetLogger().WithField("role_id", snap.ID).Warnf("Role cache write failed: %v", err)
	}
}

// Invalidate 角色每次变更提交后调用：代数自增并删除快照
func (c *RoleCache) Invalidate(ctx context.Context, roleIDs ...uint) {
	if !c.enabled() || len(roleIDs) == 0 {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range roleIDs {
			pipe.Incr(ctx, c.genKey(id))
			pipe.Del(ctx, c.key(id))
		}
		return nil
	})
	if err != nil {
		logger.GetLogger().WithField("role_ids", roleIDs).Errorf("Role cache invalidation failed: %v", err)
	}
}

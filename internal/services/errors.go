package services

import "errors"

// 业务错误。调用方用 errors.Is 判断，handler 按类别映射为响应码
var (
	ErrNotFound     = errors.New("记录不存在")
	ErrInvalidInput = errors.New("参数错误")
	ErrConflict     = errors.New("数据已存在")

	// 角色
	ErrDuplicateRole        = errors.New("角色名称已存在")
	ErrImmutableRole        = errors.New("系统角色不允许修改或删除")
	ErrReassignmentRequired = errors.New("该角色下仍有用户，需要指定接替角色")
	ErrInvalidReassignment  = errors.New("接替角色无效")
	ErrUnknownPermission    = errors.New("未知的权限")

	// 访问控制
	ErrCrossTenantAccess = errors.New("无权访问该资源")
	ErrPermissionDenied  = errors.New("权限不足")

	// 用户
	ErrLastAdmin          = errors.New("至少需要保留一个启用的管理员")
	ErrSelfAction         = errors.New("不能对自己执行该操作")
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrUserInactive       = errors.New("用户已被禁用")
	ErrTenantInactive     = errors.New("租户已停用")

	// 工单与保养
	ErrInvalidStatus     = errors.New("无效的工单状态")
	ErrInvalidTransition = errors.New("不允许的状态变更")
	ErrInvalidFrequency  = errors.New("无效的保养频率")
)

package models

// PermissionDef 权限定义，权限本身不落库，只是固定的字符串词表
type PermissionDef struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Module string `json:"module"`
}

// 权限代码
const (
	PermEquipmentView   = "equipment_view"
	PermEquipmentCreate = "equipment_create"
	PermEquipmentEdit   = "equipment_edit"
	PermEquipmentDelete = "equipment_delete"

	PermWorkOrderView   = "workorder_view"
	PermWorkOrderCreate = "workorder_create"
	PermWorkOrderEdit   = "workorder_edit"
	PermWorkOrderDelete = "workorder_delete"

	PermUserView   = "user_view"
	PermUserCreate = "user_create"
	PermUserEdit   = "user_edit"
	PermUserDelete = "user_delete"

	PermAdminDashboard = "admin_dashboard"
	PermRoleManage     = "role_manage"
	PermSystemSettings = "system_settings"
	PermReportsAccess  = "reports_access"

	PermTeamManage      = "team_manage"
	PermLocationManage  = "location_manage"
	PermInventoryManage = "inventory_manage"
	PermSOPManage       = "sop_manage"

	PermInventoryView = "inventory_view"
	PermLocationView  = "location_view"
	PermSOPView       = "sop_view"
	PermTeamView      = "team_view"
)

// PermissionCatalog 全部权限
var PermissionCatalog = []PermissionDef{
	{Code: PermEquipmentView, Name: "查看设备", Module: "equipment"},
	{Code: PermEquipmentCreate, Name: "创建设备", Module: "equipment"},
	{Code: PermEquipmentEdit, Name: "编辑设备", Module: "equipment"},
	{Code: PermEquipmentDelete, Name: "删除设备", Module: "equipment"},

	{Code: PermWorkOrderView, Name: "查看工单", Module: "workorder"},
	{Code: PermWorkOrderCreate, Name: "创建工单", Module: "workorder"},
	{Code: PermWorkOrderEdit, Name: "编辑工单", Module: "workorder"},
	{Code: PermWorkOrderDelete, Name: "删除工单", Module: "workorder"},

	{Code: PermUserView, Name: "查看用户", Module: "user"},
	{Code: PermUserCreate, Name: "创建用户", Module: "user"},
	{Code: PermUserEdit, Name: "编辑用户", Module: "user"},
	{Code: PermUserDelete, Name: "删除用户", Module: "user"},

	{Code: PermAdminDashboard, Name: "管理面板", Module: "admin"},
	{Code: PermRoleManage, Name: "角色管理", Module: "admin"},
	{Code: PermSystemSettings, Name: "系统设置", Module: "admin"},
	{Code: PermReportsAccess, Name: "报表", Module: "report"},

	{Code: PermTeamView, Name: "查看班组", Module: "team"},
	{Code: PermTeamManage, Name: "管理班组", Module: "team"},
	{Code: PermLocationView, Name: "查看位置", Module: "location"},
	{Code: PermLocationManage, Name: "管理位置", Module: "location"},
	{Code: PermInventoryView, Name: "查看库存", Module: "inventory"},
	{Code: PermInventoryManage, Name: "管理库存", Module: "inventory"},
	{Code: PermSOPView, Name: "查看SOP", Module: "sop"},
	{Code: PermSOPManage, Name: "管理SOP", Module: "sop"},
}

// IsKnownPermission 是否在权限词表中
func IsKnownPermission(code string) bool {
	for _, p := range PermissionCatalog {
		if p.Code == code {
			return true
		}
	}
	return false
}

var viewPermissions = []string{
	PermEquipmentView, PermWorkOrderView, PermUserView,
	PermInventoryView, PermLocationView, PermSOPView, PermTeamView,
}

// DefaultRole 系统角色模板
type DefaultRole struct {
	Name        string
	DisplayName string
	Description string
	Permissions []string
}

// DefaultRoles 每个租户开通时创建的系统角色
func DefaultRoles() []DefaultRole {
	admin := make([]string, 0, len(PermissionCatalog))
	for _, p := range PermissionCatalog {
		admin = append(admin, p.Code)
	}

	manager := append([]string{}, viewPermissions...)
	manager = append(manager,
		PermEquipmentCreate, PermEquipmentEdit,
		PermWorkOrderCreate, PermWorkOrderEdit,
		PermUserCreate, PermUserEdit,
		PermAdminDashboard, PermReportsAccess,
		PermTeamManage, PermLocationManage, PermInventoryManage, PermSOPManage,
	)

	technician := append([]string{}, viewPermissions...)
	technician = append(technician, PermWorkOrderEdit)

	return []DefaultRole{
		{Name: RoleAdmin, DisplayName: "Administrator", Description: "Full system access with all permissions", Permissions: admin},
		{Name: RoleManager, DisplayName: "Manager", Description: "Management access with team oversight capabilities", Permissions: manager},
		{Name: RoleTechnician, DisplayName: "Technician", Description: "Standard technician access for maintenance tasks", Permissions: technician},
		{Name: RoleViewer, DisplayName: "Viewer", Description: "Read-only access to view system data", Permissions: append([]string{}, viewPermissions...)},
	}
}

package handlers

import (
	"cmms/internal/middleware"
	"cmms/internal/models"
	"cmms/internal/services"
	"cmms/pkg/pagination"
	"cmms/pkg/response"
	"context"

	"github.com/gin-gonic/gin"
)

// lookupRequest 基础数据请求体，写入到模型
type lookupRequest[P any] interface {
	applyTo(rec P)
}

type LocationRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
	Address     string `json:"address" binding:"max=255"`
	ParentID    *uint  `json:"parent_id"`
}

func (r LocationRequest) applyTo(rec *models.Location) {
	rec.Name = r.Name
	rec.Description = r.Description
	rec.Address = r.Address
	rec.ParentID = r.ParentID
	if r.ParentID != nil && *r.ParentID == 0 {
		rec.ParentID = nil
	}
}

type DepartmentRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

func (r DepartmentRequest) applyTo(rec *models.Department) {
	rec.Name = r.Name
	rec.Description = r.Description
}

type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

func (r CategoryRequest) applyTo(rec *models.Category) {
	rec.Name = r.Name
	rec.Description = r.Description
}

type VendorRequest struct {
	Name          string `json:"name" binding:"required,max=100"`
	ContactPerson string `json:"contact_person" binding:"max=100"`
	Email         string `json:"email" binding:"omitempty,email"`
	Phone         string `json:"phone" binding:"max=20"`
	Address       string `json:"address"`
	Website       string `json:"website" binding:"max=200"`
}

func (r VendorRequest) applyTo(rec *models.Vendor) {
	rec.Name = r.Name
	rec.ContactPerson = r.ContactPerson
	rec.Email = r.Email
	rec.Phone = r.Phone
	rec.Address = r.Address
	rec.Website = r.Website
}

// LookupResource 单类基础数据的增删改查
type LookupResource[T any, P services.TenantRecord[T], R lookupRequest[P]] struct {
	store    *services.ScopedStore[T, P]
	validate func(ctx context.Context, actor *services.Actor, rec P) error
	remove   func(ctx context.Context, actor *services.Actor, id uint) error
}

func (h *LookupResource[T, P, R]) Create(c *gin.Context) {
	var req R
	if !bindJSON(c, &req) {
		return
	}

	actor := middleware.CurrentActor(c)
	rec := P(new(T))
	req.applyTo(rec)
	if h.validate != nil {
		if err := h.validate(c.Request.Context(), actor, rec); err != nil {
			handleError(c, err)
			return
		}
	}
	if err := h.store.Create(c.Request.Context(), actor, rec); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, rec)
}

func (h *LookupResource[T, P, R]) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	rec, err := h.store.Get(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, rec)
}

func (h *LookupResource[T, P, R]) List(c *gin.Context) {
	page := pagination.ParsePageParams(c)
	items, total, err := h.store.List(c.Request.Context(), middleware.CurrentActor(c), c.Query("search"), page)
	if err != nil {
		handleError(c, err)
		return
	}
	successPage(c, items, page, total)
}

func (h *LookupResource[T, P, R]) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req R
	if !bindJSON(c, &req) {
		return
	}

	actor := middleware.CurrentActor(c)
	rec, err := h.store.Get(c.Request.Context(), actor, id)
	if err != nil {
		handleError(c, err)
		return
	}
	req.applyTo(rec)
	if h.validate != nil {
		if err := h.validate(c.Request.Context(), actor, rec); err != nil {
			handleError(c, err)
			return
		}
	}
	if err := h.store.Save(c.Request.Context(), actor, rec); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, rec)
}

func (h *LookupResource[T, P, R]) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	remove := h.remove
	if remove == nil {
		remove = h.store.Delete
	}
	if err := remove(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}

// LookupHandler 位置、部门、分类、供应商
type LookupHandler struct {
	Locations   *LookupResource[models.Location, *models.Location, LocationRequest]
	Departments *LookupResource[models.Department, *models.Department, DepartmentRequest]
	Categories  *LookupResource[models.Category, *models.Category, CategoryRequest]
	Vendors     *LookupResource[models.Vendor, *models.Vendor, VendorRequest]
}

func NewLookupHandler(service *services.LookupService) *LookupHandler {
	return &LookupHandler{
		Locations: &LookupResource[models.Location, *models.Location, LocationRequest]{
			store: service.Locations,
			validate: func(ctx context.Context, actor *services.Actor, rec *models.Location) error {
				return service.ValidateLocationParent(ctx, actor, rec.ID, rec.ParentID)
			},
			remove: service.DeleteLocation,
		},
		Departments: &LookupResource[models.Department, *models.Department, DepartmentRequest]{
			store:  service.Departments,
			remove: service.DeleteDepartment,
		},
		Categories: &LookupResource[models.Category, *models.Category, CategoryRequest]{
			store: service.Categories,
		},
		Vendors: &LookupResource[models.Vendor, *models.Vendor, VendorRequest]{
			store:  service.Vendors,
			remove: service.DeleteVendor,
		},
	}
}

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cmms/internal/database"
	"cmms/internal/models"
	"cmms/internal/services"
	"cmms/pkg/config"
	"cmms/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type authFixture struct {
	db     *gorm.DB
	jwt    *jwt.Manager
	engine *gin.Engine
	tenant *models.Tenant
	admin  *models.User
	viewer *models.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	tenant, admin, err := services.NewTenantService(db, nil).Signup(context.Background(), services.SignupInput{
		TenantName: "Acme Inc",
		TenantCode: "acme",
		Username:   "acme-admin",
		Email:      "admin@acme.example",
		Password:   "password123",
		FirstName:  "Admin",
	})
	require.NoError(t, err)

	var viewerRole models.Role
	require.NoError(t, db.Where("tenant_id = ? AND name = ?", tenant.ID, models.RoleViewer).First(&viewerRole).Error)
	viewer := &models.User{
		TenantModel: models.TenantModel{TenantID: tenant.ID},
		Username:    "viewer",
		Email:       "viewer@acme.example",
		FirstName:   "View",
		IsActive:    true,
	}
	viewer.BindRole(&viewerRole)
	require.NoError(t, db.Create(viewer).Error)

	f := &authFixture{
		db:     db,
		jwt:    jwt.NewManager("test-secret", time.Hour),
		tenant: tenant,
		admin:  admin,
		viewer: viewer,
	}

	auth := NewAuthMiddleware(services.NewUserService(db), services.NewPermissionService(db, nil), f.jwt)
	r := gin.New()
	r.Use(RequestLogger(), Metrics(), ErrorHandler())
	r.GET("/me", auth.RequireLogin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": CurrentActor(c).UserID, "username": CurrentUser(c).Username})
	})
	r.POST("/users", append(auth.CombineMiddleware(models.PermUserCreate), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})...)
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	f.engine = r
	return f
}

func (f *authFixture) token(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := f.jwt.Issue(u.ID, u.TenantID, u.Username)
	require.NoError(t, err)
	return token.Value
}

func (f *authFixture) do(method, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Message
}

func TestRequireLogin(t *testing.T) {
	f := newAuthFixture(t)

	w := f.do(http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "请先登录", decodeMessage(t, w))

	w = f.do(http.MethodGet, "/me", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/me", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other, err := jwt.NewManager("other-secret", time.Hour).Issue(f.admin.ID, f.admin.TenantID, f.admin.Username)
	require.NoError(t, err)
	w = f.do(http.MethodGet, "/me", "Bearer "+other.Value)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/me", "Bearer "+f.token(t, f.admin))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"acme-admin"`)
}

func TestRequireLogin_TenantMismatchInToken(t *testing.T) {
	f := newAuthFixture(t)

	forged, err := f.jwt.Issue(f.admin.ID, f.admin.TenantID+100, f.admin.Username)
	require.NoError(t, err)

	w := f.do(http.MethodGet, "/me", "Bearer "+forged.Value)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireLogin_InactiveUserAndTenant(t *testing.T) {
	f := newAuthFixture(t)
	token := f.token(t, f.viewer)

	require.NoError(t, f.db.Model(f.viewer).Update("is_active", false).Error)
	w := f.do(http.MethodGet, "/me", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "用户已被禁用", decodeMessage(t, w))

	require.NoError(t, f.db.Model(f.tenant).Update("status", models.TenantStatusInactive).Error)
	w = f.do(http.MethodGet, "/me", "Bearer "+f.token(t, f.admin))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "租户已停用", decodeMessage(t, w))
}

func TestRequirePermission(t *testing.T) {
	f := newAuthFixture(t)

	w := f.do(http.MethodPost, "/users", "Bearer "+f.token(t, f.viewer))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "权限不足：需要 user_create 权限", decodeMessage(t, w))

	w = f.do(http.MethodPost, "/users", "Bearer "+f.token(t, f.admin))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestErrorHandlerAndMetrics(t *testing.T) {
	f := newAuthFixture(t)
	counter := httpRequests.WithLabelValues(http.MethodGet, "/panic", "500")
	before := testutil.ToFloat64(counter)

	w := f.do(http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "服务器内部错误", decodeMessage(t, w))
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestID_EchoesClientValue(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(RequestIDHeader, "trace-123")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "trace-123", w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 100))
	w = httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestSetupCORS(t *testing.T) {
	r := gin.New()
	r.Use(SetupCORS(config.CORSConfig{
		AllowOrigins: []string{"https://app.example.com"},
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       1,
	}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

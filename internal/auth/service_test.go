package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalilsuez/backend/internal/logger"
	"github.com/dalilsuez/backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	logger.InitializeForTesting()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	return NewService([]byte("test-secret"), db), db
}

func createTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		ID:          "user-1",
		Email:       "amina@example.com",
		DisplayName: "Amina",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc, db := setupTestService(t)
	user := createTestUser(t, db)

	resp, err := svc.GenerateToken(user)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, user.ID, resp.User.ID)

	validated, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, validated.ID)
	assert.Equal(t, user.Email, validated.Email)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)

	_, err = svc.ValidateToken("")
	assert.Error(t, err)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc, db := setupTestService(t)
	user := createTestUser(t, db)

	other := NewService([]byte("different-secret"), db)
	resp, err := other.GenerateToken(user)
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.Token)
	assert.Error(t, err)
}

func TestValidateTokenDeletedUser(t *testing.T) {
	svc, db := setupTestService(t)
	user := createTestUser(t, db)

	resp, err := svc.GenerateToken(user)
	require.NoError(t, err)

	require.NoError(t, db.Unscoped().Delete(user).Error)

	_, err = svc.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRequireAuthMiddleware(t *testing.T) {
	svc, db := setupTestService(t)
	user := createTestUser(t, db)
	resp, err := svc.GenerateToken(user)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/protected", RequireAuth(svc), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})

	// No token
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Bad token
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.ID)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	svc, db := setupTestService(t)
	user := createTestUser(t, db)
	resp, err := svc.GenerateToken(user)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/open", OptionalAuth(svc), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})

	// Anonymous passes with empty identity
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":""`)

	// Invalid token degrades to anonymous, not 401
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":""`)

	// Valid token resolves identity
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.ID)
}

package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalilsuez/backend/internal/auth"
	"github.com/dalilsuez/backend/internal/events"
	"github.com/dalilsuez/backend/internal/idempotency"
	"github.com/dalilsuez/backend/internal/kernel"
	"github.com/dalilsuez/backend/internal/logger"
	"github.com/dalilsuez/backend/internal/middleware"
	"github.com/dalilsuez/backend/internal/models"
	"github.com/dalilsuez/backend/internal/ratelimit"
	"github.com/dalilsuez/backend/internal/recommend"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// stubAuth resolves tokens from a fixed map, no JWT machinery
type stubAuth struct {
	users map[string]*models.User
}

func (s *stubAuth) GenerateToken(user *models.User) (*auth.AuthResponse, error) {
	token := "token-" + user.ID
	s.users[token] = user
	return &auth.AuthResponse{Token: token, User: *user, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *stubAuth) ValidateToken(tokenString string) (*models.User, error) {
	if user, ok := s.users[tokenString]; ok {
		return user, nil
	}
	return nil, auth.ErrInvalidToken
}

type testEnv struct {
	router  *gin.Engine
	kernel  *kernel.Kernel
	db      *gorm.DB
	auth    *stubAuth
	limiter *ratelimit.Limiter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.InitializeForTesting()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Place{},
		&models.Listing{},
		&models.Review{},
		&models.UserEvent{},
		&models.IdempotencyKey{},
	))

	stub := &stubAuth{users: make(map[string]*models.User)}
	limiter := ratelimit.NewLimiter(0)
	t.Cleanup(limiter.Stop)

	k := kernel.New().
		SetDB(db).
		SetAuthService(stub).
		SetLimiter(limiter).
		SetIdempotencyStore(idempotency.NewStore(db)).
		SetEventsService(events.NewService(db)).
		SetRecommender(recommend.NewResolver(db))
	require.NoError(t, k.Validate())

	h := NewHandlers(k)

	router := gin.New()
	router.GET("/health", h.Health)

	api := router.Group("/api/v1")
	api.POST("/events", auth.OptionalAuth(stub), h.RecordEvent)
	api.POST("/events/batch", auth.OptionalAuth(stub), h.RecordEventBatch)
	api.GET("/recommendations/for-you", auth.OptionalAuth(stub), h.GetForYou)
	api.GET("/places/:id", h.GetPlace)
	api.GET("/places/:id/reviews", h.ListPlaceReviews)
	api.POST("/places/:id/reviews",
		auth.RequireAuth(stub),
		middleware.RateLimitMiddleware(limiter, middleware.ReviewRateLimitConfig()),
		h.CreateReview,
	)

	return &testEnv{router: router, kernel: k, db: db, auth: stub, limiter: limiter}
}

// createUser registers a user and returns its bearer token
func (e *testEnv) createUser(t *testing.T, id string) string {
	t.Helper()
	user := &models.User{
		ID:          id,
		Email:       fmt.Sprintf("%s@example.com", id),
		DisplayName: id,
	}
	require.NoError(t, e.db.Create(user).Error)
	resp, err := e.auth.GenerateToken(user)
	require.NoError(t, err)
	return resp.Token
}

// request performs a JSON request against the test router
func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodGet, "/health", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", decodeBody(t, w)["status"])
}

package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"linklock-be/internal/entities"
	"linklock-be/internal/linkerr"
	"linklock-be/internal/models"
	"linklock-be/internal/repository"
	"linklock-be/internal/service"
	"linklock-be/internal/shortcode"
)

// stubRegistry is a map-backed repository.LinkRepository for handler tests.
type stubRegistry struct {
	mu    sync.Mutex
	links map[string]*entities.Link
}

var _ repository.LinkRepository = (*stubRegistry)(nil)

func newStubRegistry() *stubRegistry {
	return &stubRegistry{links: make(map[string]*entities.Link)}
}

func (s *stubRegistry) Create(ctx context.Context, link *entities.Link) (*entities.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range link.ResolvableKeys() {
		if s.takenLocked(key) {
			return nil, linkerr.ErrDuplicateKey
		}
	}
	stored := *link
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()
	s.links[stored.ID] = &stored
	created := stored
	return &created, nil
}

func (s *stubRegistry) takenLocked(key string) bool {
	for _, l := range s.links {
		for _, k := range l.ResolvableKeys() {
			if k == key {
				return true
			}
		}
	}
	return false
}

func (s *stubRegistry) FindByKey(ctx context.Context, key string) (*entities.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		for _, k := range l.ResolvableKeys() {
			if k == key {
				found := *l
				return &found, nil
			}
		}
	}
	return nil, linkerr.ErrNotFound
}

func (s *stubRegistry) FindByID(ctx context.Context, id, userID string) (*entities.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return nil, linkerr.ErrNotFound
	}
	if l.UserID != userID {
		return nil, linkerr.ErrForbidden
	}
	found := *l
	return &found, nil
}

func (s *stubRegistry) GetByUserID(ctx context.Context, userID string) ([]*entities.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entities.Link
	for _, l := range s.links {
		if l.UserID == userID {
			found := *l
			out = append(out, &found)
		}
	}
	return out, nil
}

func (s *stubRegistry) Delete(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return linkerr.ErrNotFound
	}
	if l.UserID != userID {
		return linkerr.ErrForbidden
	}
	delete(s.links, id)
	return nil
}

func (s *stubRegistry) UpdateProtection(ctx context.Context, id, userID string, isProtected bool, passwordHash *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return linkerr.ErrNotFound
	}
	if l.UserID != userID {
		return linkerr.ErrForbidden
	}
	if !isProtected {
		passwordHash = nil
	}
	l.IsProtected = isProtected
	l.PasswordHash = passwordHash
	return nil
}

func (s *stubRegistry) KeyExists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takenLocked(key), nil
}

// stubClicks counts recorded click events.
type stubClicks struct {
	mu     sync.Mutex
	events []*entities.Click
}

var _ repository.ClickRepository = (*stubClicks)(nil)

func (s *stubClicks) Insert(ctx context.Context, click *entities.Click) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, click)
	return nil
}

func (s *stubClicks) CountByLinkID(ctx context.Context, linkID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.events {
		if e.LinkID == linkID {
			n++
		}
	}
	return n, nil
}

func (s *stubClicks) GetAnalytics(ctx context.Context, linkID string, hours int) ([]models.ClickBucket, error) {
	return nil, nil
}

func (s *stubClicks) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// setupTest wires a router with in-memory backing for handler tests.
func setupTest(t *testing.T) (*gin.Engine, *stubRegistry, *stubClicks, *service.ClickRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := newStubRegistry()
	clicks := &stubClicks{}
	log := zap.NewNop().Sugar()

	recorder := service.NewClickRecorder(clicks, 16, log)
	recorder.Start()

	gate := service.NewProtectionGate()
	gen := shortcode.NewGenerator(registry)
	resolver := service.NewRedirectResolver(registry, gate, recorder, nil, time.Second, time.Second, log)
	linkService := service.NewLinkService(registry, clicks, gen, gate, nil, "https://lnk.example", log)

	resolveController := NewResolveController(resolver)
	linkController := NewLinkController(linkService)

	router := gin.New()
	router.GET("/:key", resolveController.Redirect)
	router.GET("/api/v1/resolve/:key", resolveController.Resolve)
	router.POST("/api/v1/resolve/:key/unlock", resolveController.Unlock)

	// Stand-in for the auth middleware.
	authed := router.Group("/api/v1", func(c *gin.Context) {
		c.Set("user_id", "owner")
	})
	authed.POST("/links", linkController.CreateLink)
	authed.GET("/links", linkController.GetUserLinks)
	authed.DELETE("/links/:id", linkController.DeleteLink)
	authed.PATCH("/links/:id/protection", linkController.UpdateProtection)

	return router, registry, clicks, recorder
}

func createLink(t *testing.T, router *gin.Engine, req models.CreateLinkRequest) models.LinkResponse {
	t.Helper()

	body, _ := json.Marshal(req)
	w := httptest.NewRecorder()
	httpReq, _ := http.NewRequest(http.MethodPost, "/api/v1/links", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, httpReq)

	require.Equal(t, http.StatusCreated, w.Code, "create failed: %s", w.Body.String())

	var resp models.LinkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRedirectFlowUnprotected(t *testing.T) {
	router, _, clicks, recorder := setupTest(t)

	resp := createLink(t, router, models.CreateLinkRequest{
		Title:   "x",
		LongURL: "https://example.com",
	})
	assert.Len(t, resp.ShortCode, 6)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/"+resp.ShortCode, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Location"))

	recorder.Stop()
	assert.Equal(t, 1, clicks.total())
}

func TestRedirectUnknownKey(t *testing.T) {
	router, _, clicks, recorder := setupTest(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/nosuch", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body models.ResolveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.StatusNotFound, body.Status)

	recorder.Stop()
	assert.Equal(t, 0, clicks.total())
}

func TestProtectedUnlockFlow(t *testing.T) {
	router, _, clicks, recorder := setupTest(t)

	resp := createLink(t, router, models.CreateLinkRequest{
		Title:       "secret",
		LongURL:     "https://example.com/secret",
		IsProtected: true,
		Password:    "ab12",
	})

	// Resolving yields locked, not the target.
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/"+resp.ShortCode, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var locked models.ResolveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &locked))
	assert.Equal(t, models.StatusLocked, locked.Status)
	assert.Empty(t, locked.Target)

	// A wrong password is a retryable outcome.
	w = httptest.NewRecorder()
	body, _ := json.Marshal(models.UnlockRequest{Password: "wrong-pass"})
	req, _ = http.NewRequest(http.MethodPost, "/api/v1/resolve/"+resp.ShortCode+"/unlock", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var wrong models.ResolveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wrong))
	assert.Equal(t, models.StatusWrongPassword, wrong.Status)

	// The correct password yields the redirect target.
	w = httptest.NewRecorder()
	body, _ = json.Marshal(models.UnlockRequest{Password: "ab12"})
	req, _ = http.NewRequest(http.MethodPost, "/api/v1/resolve/"+resp.ShortCode+"/unlock", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var unlocked models.ResolveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &unlocked))
	assert.Equal(t, models.StatusRedirect, unlocked.Status)
	assert.Equal(t, "https://example.com/secret", unlocked.Target)

	recorder.Stop()
	assert.Equal(t, 1, clicks.total(), "only the successful unlock records a click")
}

func TestCreateLinkRejectsInvalidInput(t *testing.T) {
	router, _, _, recorder := setupTest(t)
	defer recorder.Stop()

	body, _ := json.Marshal(models.CreateLinkRequest{Title: "", LongURL: "not-a-url"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/links", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateLinkCustomCodeConflictReturns409(t *testing.T) {
	router, _, _, recorder := setupTest(t)
	defer recorder.Stop()

	custom := "promo"
	createLink(t, router, models.CreateLinkRequest{
		Title:     "first",
		LongURL:   "https://example.com/1",
		CustomURL: &custom,
	})

	body, _ := json.Marshal(models.CreateLinkRequest{
		Title:     "second",
		LongURL:   "https://example.com/2",
		CustomURL: &custom,
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/links", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteThenResolveReturnsNotFound(t *testing.T) {
	router, _, _, recorder := setupTest(t)
	defer recorder.Stop()

	resp := createLink(t, router, models.CreateLinkRequest{
		Title:   "temp",
		LongURL: "https://example.com/temp",
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/api/v1/links/"+resp.ID, nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/"+resp.ShortCode, nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-ideas-backend/internal/domain"
	"github.com/tbourn/go-ideas-backend/internal/generation"
	"github.com/tbourn/go-ideas-backend/internal/http/middleware"
	"github.com/tbourn/go-ideas-backend/internal/quota"
	"github.com/tbourn/go-ideas-backend/internal/repo"
	"github.com/tbourn/go-ideas-backend/internal/services"
)

const ideaJSON = `{"title":"Five Tips","outline":["one","two","three"],"mid_mention":"m","end_mention":"e",` +
	`"thumbnail_idea":"t","interaction_question":"q?","category":"c","subcategory":"s","length_bucket":"30-60s"}`

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// newTestHandlers wires real services on db. The provider answers with
// ideaJSON unless providerErr is set.
func newTestHandlers(t *testing.T, db *gorm.DB, providerErr error) *Handlers {
	t.Helper()
	provider := generation.ProviderFunc(func(context.Context, generation.Request) (string, error) {
		if providerErr != nil {
			return "", providerErr
		}
		return ideaJSON, nil
	})
	client := generation.NewClient(provider, generation.Options{
		PrimaryModel:   "primary",
		SecondaryModel: "secondary",
		MaxRetries:     1,
		CallTimeout:    time.Second,
	})
	users := &services.UserDirectory{DB: db, Policy: quota.DefaultPolicy()}
	batches := services.NewBatchService(db, quota.NewGate(users, quota.DefaultPolicy()), client, 0)
	return New(batches, &services.IdeaService{DB: db}, &services.CalendarService{DB: db}, users)
}

func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Identity())
	r.POST("/batches", h.CreateBatch)
	r.GET("/ideas", h.ListIdeas)
	r.GET("/ideas/:slug", h.GetIdea)
	r.GET("/ideas/:slug/export", h.ExportIdea)
	r.DELETE("/ideas/:id", h.DeleteIdea)
	r.GET("/calendar", h.ListCalendar)
	r.PATCH("/calendar/:id", h.UpdateCalendarEntry)
	r.DELETE("/calendar/:id", h.DeleteCalendarEntry)
	r.GET("/quota", h.GetQuota)
	return r
}

func do(r http.Handler, method, path, owner, body string, hdr ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if owner != "" {
		req.Header.Set("X-User-ID", owner)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func setTier(t *testing.T, db *gorm.DB, owner, tier string) {
	t.Helper()
	if err := repo.SetUserTier(context.Background(), db, owner, tier); err != nil {
		t.Fatalf("set tier: %v", err)
	}
}

func seedIdea(t *testing.T, db *gorm.DB, owner, slug string, public bool) *domain.Idea {
	t.Helper()
	idea := &domain.Idea{OwnerID: owner, Title: slug, Slug: slug, Outline: []string{"a"}, IsPublic: public}
	if err := repo.CreateIdea(context.Background(), db, idea); err != nil {
		t.Fatalf("seed idea: %v", err)
	}
	return idea
}

// stubBatches returns a fixed result or error.
type stubBatches struct {
	res *services.BatchResult
	err error
	got services.BatchJob
}

func (s *stubBatches) Run(_ context.Context, _ string, job services.BatchJob, _ time.Time) (*services.BatchResult, error) {
	s.got = job
	return s.res, s.err
}

type stubQuota struct{ err error }

func (s stubQuota) QuotaStatus(context.Context, string, time.Time) (*services.QuotaStatus, error) {
	return nil, s.err
}

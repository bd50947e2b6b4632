package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"prepmate-backend/internal/interview"
	"prepmate-backend/internal/middleware"
	"prepmate-backend/internal/models"
)

type stubInterviewService struct {
	generated    *models.Interview
	generateErr  error
	lastGenerate interview.GenerateParams
	updateErr    error
	latest       []interview.Ranked
}

func (s *stubInterviewService) Generate(_ context.Context, p interview.GenerateParams) (*models.Interview, error) {
	s.lastGenerate = p
	return s.generated, s.generateErr
}

func (s *stubInterviewService) GetByID(context.Context, bson.ObjectID, bson.ObjectID) (*models.Interview, error) {
	return nil, interview.ErrNotFound
}

func (s *stubInterviewService) ListMine(context.Context, bson.ObjectID) ([]models.Interview, error) {
	return nil, nil
}

func (s *stubInterviewService) Update(context.Context, bson.ObjectID, bson.ObjectID, interview.UpdateParams) error {
	return s.updateErr
}

func (s *stubInterviewService) Latest(context.Context, bson.ObjectID, int) ([]interview.Ranked, error) {
	return s.latest, nil
}

type stubLeaderboard struct {
	entries []interview.Ranked
	fresh   bool
}

func (s *stubLeaderboard) Snapshot() ([]interview.Ranked, bool) {
	return s.entries, s.fresh
}

func newInterviewRouter(service InterviewService, board LeaderboardSource) http.Handler {
	if board == nil {
		board = &stubLeaderboard{}
	}
	h := NewInterviewHandler(service, board, 20, zap.NewNop())
	r := chi.NewRouter()
	r.Post("/interviews/generate", h.Generate)
	r.Get("/interviews/latest", h.Latest)
	r.Get("/interviews/{id}", h.Get)
	r.Patch("/interviews/{id}", h.Update)
	return r
}

func TestGenerateInterviewSplitsTechstack(t *testing.T) {
	service := &stubInterviewService{generated: &models.Interview{Role: "Backend Engineer"}}
	router := newInterviewRouter(service, nil)

	body := map[string]interface{}{
		"role":      "Backend Engineer",
		"level":     "Senior",
		"type":      "technical",
		"techstack": "go, mongodb , redis",
		"amount":    5,
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/interviews/generate", body))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"go", "mongodb", "redis"}, service.lastGenerate.Techstack)
}

func TestGenerateInterviewValidation(t *testing.T) {
	cases := []map[string]interface{}{
		{"level": "Senior", "type": "technical", "techstack": "go", "amount": 5},                               // no role
		{"role": "X", "level": "Senior", "type": "casual", "techstack": "go", "amount": 5},                     // bad type
		{"role": "X", "level": "Senior", "type": "mixed", "techstack": "go", "amount": 0},                      // bad amount
		{"role": "X", "level": "Senior", "type": "mixed", "techstack": "go", "amount": 50},                     // too many
	}
	service := &stubInterviewService{generated: &models.Interview{}}
	router := newInterviewRouter(service, nil)

	for _, body := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/interviews/generate", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestUpdateInterviewRoleImmutable(t *testing.T) {
	service := &stubInterviewService{updateErr: interview.ErrRoleImmutable}
	router := newInterviewRouter(service, nil)

	body := map[string]interface{}{"role": "New Role", "questions": []string{"Q1"}}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPatch, "/interviews/"+bson.NewObjectID().Hex(), body))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetInterviewNotFound(t *testing.T) {
	router := newInterviewRouter(&stubInterviewService{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/interviews/"+bson.NewObjectID().Hex(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestFiltersOwnFromSnapshot(t *testing.T) {
	me := bson.NewObjectID()
	board := &stubLeaderboard{
		fresh: true,
		entries: []interview.Ranked{
			{Interview: models.Interview{ID: bson.NewObjectID(), UserID: me}, AverageRating: 5},
			{Interview: models.Interview{ID: bson.NewObjectID(), UserID: bson.NewObjectID()}, AverageRating: 4},
		},
	}
	router := newInterviewRouter(&stubInterviewService{}, board)

	req := authedRequest(t, http.MethodGet, "/interviews/latest", nil)
	// Rebind to the known user id so the caller's own entry is filtered.
	req = req.WithContext(middleware.WithUserID(req.Context(), me.Hex()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Interviews []interview.Ranked `json:"interviews"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Interviews, 1)
	assert.Equal(t, 4.0, resp.Interviews[0].AverageRating)
}

func TestLatestFallsBackBeforeFirstRefresh(t *testing.T) {
	service := &stubInterviewService{
		latest: []interview.Ranked{
			{Interview: models.Interview{ID: bson.NewObjectID(), UserID: bson.NewObjectID()}, AverageRating: 3},
		},
	}
	router := newInterviewRouter(service, &stubLeaderboard{fresh: false})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/interviews/latest", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Interviews []interview.Ranked `json:"interviews"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Interviews, 1)
}

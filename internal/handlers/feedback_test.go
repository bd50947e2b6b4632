package handlers

import (
	"bytes"
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

	"prepmate-backend/internal/feedback"
	"prepmate-backend/internal/middleware"
	"prepmate-backend/internal/models"
	"prepmate-backend/internal/notify"
	"prepmate-backend/internal/oracle"
)

type stubFeedbackService struct {
	reconcileResult *feedback.Result
	reconcileErr    error
	attachID        bson.ObjectID
	attachErr       error
	attachCalls     int
	lastRating      int
	lastRef         feedback.RatingRef
	summary         feedback.RatingSummary
	byInterview     []models.Feedback
	byUser          []models.Feedback
}

func (s *stubFeedbackService) Reconcile(context.Context, bson.ObjectID, bson.ObjectID, []models.TranscriptEntry) (*feedback.Result, error) {
	return s.reconcileResult, s.reconcileErr
}

func (s *stubFeedbackService) Get(context.Context, bson.ObjectID, bson.ObjectID) (*models.Feedback, error) {
	return nil, feedback.ErrFeedbackNotFound
}

func (s *stubFeedbackService) AttachRating(_ context.Context, ref feedback.RatingRef, rating int) (bson.ObjectID, error) {
	s.attachCalls++
	s.lastRating = rating
	s.lastRef = ref
	return s.attachID, s.attachErr
}

func (s *stubFeedbackService) AverageRating(context.Context, bson.ObjectID) (feedback.RatingSummary, error) {
	return s.summary, nil
}

func (s *stubFeedbackService) ListByInterview(context.Context, bson.ObjectID) ([]models.Feedback, error) {
	return s.byInterview, nil
}

func (s *stubFeedbackService) ListByUser(context.Context, bson.ObjectID) ([]models.Feedback, error) {
	return s.byUser, nil
}

type stubInterviewSource struct {
	interviews map[bson.ObjectID]*models.Interview
}

func (s *stubInterviewSource) FindByID(_ context.Context, id bson.ObjectID) (*models.Interview, error) {
	return s.interviews[id], nil
}

type stubUserSource struct {
	users map[bson.ObjectID]*models.User
}

func (s *stubUserSource) FindByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	return s.users[id], nil
}

func newFeedbackRouter(service FeedbackService) http.Handler {
	return newFeedbackRouterWith(service, &stubInterviewSource{}, &stubUserSource{})
}

func newFeedbackRouterWith(service FeedbackService, interviews InterviewSource, users UserSource) http.Handler {
	h := NewFeedbackHandler(service, interviews, users, notify.NewLogNotifier(zap.NewNop()), zap.NewNop())
	r := chi.NewRouter()
	r.Post("/interviews/{id}/feedback", h.Reconcile)
	r.Get("/interviews/{id}/feedback", h.Get)
	r.Get("/interviews/{id}/analytics", h.Analytics)
	r.Get("/interviews/taken", h.TakenInterviews)
	r.Post("/interviews/{id}/rating", h.RateByInterview)
	r.Get("/interviews/{id}/rating", h.AverageRating)
	r.Post("/feedback/{id}/rating", h.RateByFeedbackID)
	return r
}

func authedRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(middleware.WithUserID(req.Context(), bson.NewObjectID().Hex()))
}

func reconcileBody() map[string]interface{} {
	return map[string]interface{}{
		"transcript": []map[string]string{
			{"role": "assistant", "content": "Why Go?"},
			{"role": "user", "content": "Static binaries and goroutines."},
		},
	}
}

func TestReconcileCreatedResponse(t *testing.T) {
	id := bson.NewObjectID()
	service := &stubFeedbackService{
		reconcileResult: &feedback.Result{Outcome: feedback.OutcomeCreated, FeedbackID: id},
	}
	router := newFeedbackRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/interviews/"+bson.NewObjectID().Hex()+"/feedback", reconcileBody()))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Message string          `json:"message"`
		Result  feedback.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "new best score recorded", resp.Message)
	assert.Equal(t, feedback.OutcomeCreated, resp.Result.Outcome)
}

func TestReconcileRetainedResponse(t *testing.T) {
	service := &stubFeedbackService{
		reconcileResult: &feedback.Result{
			Outcome:        feedback.OutcomeRetained,
			FeedbackID:     bson.NewObjectID(),
			DiscardedScore: 55,
		},
	}
	router := newFeedbackRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/interviews/"+bson.NewObjectID().Hex()+"/feedback", reconcileBody()))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Message string          `json:"message"`
		Result  feedback.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "previous score kept (new attempt scored lower)", resp.Message)
	assert.Equal(t, 55, resp.Result.DiscardedScore)
}

func TestReconcileOracleErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"malformed", &oracle.Error{Code: oracle.ErrCodeMalformed, Message: "bad shape"}, http.StatusBadGateway},
		{"unavailable", &oracle.Error{Code: oracle.ErrCodeUnavailable, Message: "down"}, http.StatusServiceUnavailable},
		{"timeout", &oracle.Error{Code: oracle.ErrCodeTimeout, Message: "slow"}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newFeedbackRouter(&stubFeedbackService{reconcileErr: tc.err})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/interviews/"+bson.NewObjectID().Hex()+"/feedback", reconcileBody()))

			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestReconcileEmptyTranscriptRejected(t *testing.T) {
	service := &stubFeedbackService{}
	router := newFeedbackRouter(service)

	rec := httptest.NewRecorder()
	body := map[string]interface{}{"transcript": []map[string]string{}}
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/interviews/"+bson.NewObjectID().Hex()+"/feedback", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateByInterviewOutOfRange(t *testing.T) {
	service := &stubFeedbackService{}
	router := newFeedbackRouter(service)

	for _, rating := range []int{0, 6} {
		rec := httptest.NewRecorder()
		body := map[string]int{"rating": rating}
		router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/interviews/"+bson.NewObjectID().Hex()+"/rating", body))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	assert.Equal(t, 0, service.attachCalls, "invalid ratings must not reach the engine")
}

func TestRateByFeedbackID(t *testing.T) {
	id := bson.NewObjectID()
	service := &stubFeedbackService{attachID: id}
	router := newFeedbackRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/feedback/"+id.Hex()+"/rating", map[string]int{"rating": 4}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, service.attachCalls)
	assert.Equal(t, 4, service.lastRating)
}

func TestRateFeedbackNotFound(t *testing.T) {
	service := &stubFeedbackService{attachErr: feedback.ErrFeedbackNotFound}
	router := newFeedbackRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/interviews/"+bson.NewObjectID().Hex()+"/rating", map[string]int{"rating": 4}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetFeedbackNotFound(t *testing.T) {
	router := newFeedbackRouter(&stubFeedbackService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/interviews/"+bson.NewObjectID().Hex()+"/feedback", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAverageRatingResponse(t *testing.T) {
	service := &stubFeedbackService{summary: feedback.RatingSummary{Average: 4, Count: 2}}
	router := newFeedbackRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/interviews/"+bson.NewObjectID().Hex()+"/rating", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var summary feedback.RatingSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 4.0, summary.Average)
	assert.Equal(t, 2, summary.Count)
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	router := newFeedbackRouter(&stubFeedbackService{})

	req := httptest.NewRequest(http.MethodGet, "/interviews/"+bson.NewObjectID().Hex()+"/rating", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func requestAs(t *testing.T, userID bson.ObjectID, method, target string, body interface{}) *http.Request {
	t.Helper()
	req := authedRequest(t, method, target, body)
	return req.WithContext(middleware.WithUserID(req.Context(), userID.Hex()))
}

func TestRateByFeedbackIDScopedToCaller(t *testing.T) {
	me := bson.NewObjectID()
	feedbackID := bson.NewObjectID()
	service := &stubFeedbackService{attachID: feedbackID}
	router := newFeedbackRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestAs(t, me, http.MethodPost, "/feedback/"+feedbackID.Hex()+"/rating", map[string]int{"rating": 4}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, feedbackID, service.lastRef.FeedbackID)
	assert.Equal(t, me, service.lastRef.UserID, "the rater's id must travel with the reference")
}

func TestAnalyticsOwnerOnly(t *testing.T) {
	me := bson.NewObjectID()
	interviewID := bson.NewObjectID()
	interviews := &stubInterviewSource{interviews: map[bson.ObjectID]*models.Interview{
		interviewID: {ID: interviewID, UserID: bson.NewObjectID()},
	}}
	router := newFeedbackRouterWith(&stubFeedbackService{}, interviews, &stubUserSource{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestAs(t, me, http.MethodGet, "/interviews/"+interviewID.Hex()+"/analytics", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, requestAs(t, me, http.MethodGet, "/interviews/"+bson.NewObjectID().Hex()+"/analytics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyticsResponse(t *testing.T) {
	me := bson.NewObjectID()
	interviewID := bson.NewObjectID()
	named, anonymous := bson.NewObjectID(), bson.NewObjectID()

	interviews := &stubInterviewSource{interviews: map[bson.ObjectID]*models.Interview{
		interviewID: {ID: interviewID, UserID: me},
	}}
	users := &stubUserSource{users: map[bson.ObjectID]*models.User{
		named: {ID: named, Name: "Ada"},
	}}
	service := &stubFeedbackService{byInterview: []models.Feedback{
		{ID: bson.NewObjectID(), InterviewID: interviewID, UserID: named, TotalScore: 90},
		{ID: bson.NewObjectID(), InterviewID: interviewID, UserID: anonymous, TotalScore: 71},
	}}
	router := newFeedbackRouterWith(service, interviews, users)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestAs(t, me, http.MethodGet, "/interviews/"+interviewID.Hex()+"/analytics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		TotalAttempts int              `json:"total_attempts"`
		AverageScore  int              `json:"average_score"`
		Attempts      []AnalyticsEntry `json:"attempts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalAttempts)
	assert.Equal(t, 81, resp.AverageScore)
	require.Len(t, resp.Attempts, 2)
	assert.Equal(t, "Ada", resp.Attempts[0].UserName)
	assert.Equal(t, "Unknown User", resp.Attempts[1].UserName)
}

func TestTakenInterviewsExcludesOwn(t *testing.T) {
	me := bson.NewObjectID()
	foreign := bson.NewObjectID()
	mine := bson.NewObjectID()
	deleted := bson.NewObjectID()

	interviews := &stubInterviewSource{interviews: map[bson.ObjectID]*models.Interview{
		foreign: {ID: foreign, UserID: bson.NewObjectID(), Role: "Backend Engineer"},
		mine:    {ID: mine, UserID: me, Role: "Frontend Engineer"},
	}}
	service := &stubFeedbackService{byUser: []models.Feedback{
		{InterviewID: foreign, UserID: me, TotalScore: 80},
		{InterviewID: mine, UserID: me, TotalScore: 70},
		{InterviewID: deleted, UserID: me, TotalScore: 60},
	}}
	router := newFeedbackRouterWith(service, interviews, &stubUserSource{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestAs(t, me, http.MethodGet, "/interviews/taken", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Interviews []models.Interview `json:"interviews"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Interviews, 1, "own and unresolvable interviews are excluded")
	assert.Equal(t, foreign, resp.Interviews[0].ID)
}

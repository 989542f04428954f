package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dansasser/mcg-agent/pkg/governance"
	"github.com/dansasser/mcg-agent/pkg/models"
	"github.com/dansasser/mcg-agent/pkg/pipeline"
	"github.com/dansasser/mcg-agent/pkg/provider"
)

const testSecret = "test-secret"

// stubComposer scripts service behavior for handler tests.
type stubComposer struct {
	result    *pipeline.Result
	err       error
	summaries map[string]governance.Summary
	lastUser  string
}

func (s *stubComposer) Compose(_ context.Context, userID, _ string) (*pipeline.Result, error) {
	s.lastUser = userID
	return s.result, s.err
}

func (s *stubComposer) GovernanceSummary(taskID string) (governance.Summary, bool) {
	summary, ok := s.summaries[taskID]
	return summary, ok
}

func (s *stubComposer) Stats() pipeline.StageStatsSnapshot {
	return pipeline.StageStatsSnapshot{}
}

func newTestRouter(svc Composer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(ServerDeps{Composer: svc, JWTSecret: testSecret})
}

func bearerFor(t *testing.T, subject string) string {
	t.Helper()
	token, err := IssueToken(testSecret, subject, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func postCompose(router *gin.Engine, auth, prompt string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(ComposeRequest{Prompt: prompt})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compose", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCompose_RequiresAuth(t *testing.T) {
	router := newTestRouter(&stubComposer{})

	rec := postCompose(router, "", "hello")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postCompose(router, "Bearer not-a-token", "hello")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCompose_HappyPath(t *testing.T) {
	svc := &stubComposer{result: &pipeline.Result{
		TaskID:     "task-1",
		FinalStage: models.StageSummarizer,
		Content:    "Hello world!",
	}}
	router := newTestRouter(svc)

	rec := postCompose(router, bearerFor(t, "user-42"), "Hello world!")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ComposeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "task-1", resp.TaskID)
	assert.Equal(t, "Hello world!", resp.Content)
	assert.Equal(t, models.StageSummarizer, resp.FinalStage)
	assert.Equal(t, "user-42", svc.lastUser)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCompose_MissingPrompt(t *testing.T) {
	router := newTestRouter(&stubComposer{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/compose", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerFor(t, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompose_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{
			name: "budget violation",
			err: &governance.APICallLimitError{
				ViolationError: governance.ViolationError{Kind: models.ViolationAPICallLimitExceeded, Stage: models.StageDrafter, TaskID: "task-1"},
				Max:            1, Attempted: 2,
			},
			wantStatus: http.StatusForbidden,
			wantKind:   models.ViolationAPICallLimitExceeded,
		},
		{
			name: "corpus violation",
			err: &governance.CorpusAccessError{
				ViolationError: governance.ViolationError{Kind: models.ViolationUnauthorizedCorpusAccess, Stage: models.StageDrafter, TaskID: "task-1"},
				Corpus:         models.CorpusPersonal,
			},
			wantStatus: http.StatusForbidden,
			wantKind:   models.ViolationUnauthorizedCorpusAccess,
		},
		{
			name:       "transformer required",
			err:        &governance.TransformerRequiredError{Stage: models.StageSummarizer, TaskID: "task-1", Reason: "unavailable"},
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   "transformer_required",
		},
		{
			name:       "provider error",
			err:        &provider.Error{Operation: provider.OpGenerate, Err: assert.AnError},
			wantStatus: http.StatusBadGateway,
			wantKind:   "provider_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubComposer{
				result: &pipeline.Result{TaskID: "task-1"},
				err:    tt.err,
			}
			router := newTestRouter(svc)

			rec := postCompose(router, bearerFor(t, "user-1"), "hello")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantKind, resp.Kind)
			// The task id is always surfaced for audit correlation.
			assert.Equal(t, "task-1", resp.TaskID)
		})
	}
}

func TestGovernanceLookup(t *testing.T) {
	svc := &stubComposer{summaries: map[string]governance.Summary{
		"task-1": {TaskID: "task-1", ViolationCount: 2},
	}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/task-1/governance", nil)
	req.Header.Set("Authorization", bearerFor(t, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var summary governance.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.ViolationCount)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks/absent/governance", nil)
	req.Header.Set("Authorization", bearerFor(t, "user-1"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth_NoAuthRequired(t *testing.T) {
	router := newTestRouter(&stubComposer{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIssueToken_RoundTrip(t *testing.T) {
	token, err := IssueToken(testSecret, "user-9", time.Hour)
	require.NoError(t, err)

	router := newTestRouter(&stubComposer{result: &pipeline.Result{TaskID: "t"}})
	rec := postCompose(router, "Bearer "+token, "hi")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := IssueToken(testSecret, "user-9", -time.Minute)
	require.NoError(t, err)

	router := newTestRouter(&stubComposer{})
	rec := postCompose(router, "Bearer "+token, "hi")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

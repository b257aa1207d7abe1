package http

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hrbooteh/internal/domain"
	"hrbooteh/internal/repository"
	"hrbooteh/internal/service"
)

type assessmentFixture struct {
	router *gin.Engine
	jwt    *service.JWTService
}

func setupAssessmentRouter(t *testing.T, analyzer service.Analyzer) assessmentFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if analyzer == nil {
		analyzer = service.NewHeuristicAnalyzer()
	}
	repo := repository.NewMemoryAssessmentRepository()
	responder := service.NewScriptedResponder(service.DefaultTurnThreshold, rand.New(rand.NewSource(3)))
	svc := service.NewAssessmentService(zap.NewNop(), repo, responder, analyzer)
	jwtSvc := service.NewJWTServiceWithStore("secret", 15*time.Minute, time.Hour, service.NewMemoryRefreshTokenStore())
	h := NewAssessmentHandler(zap.NewNop(), svc)

	r := gin.New()
	g := r.Group("/assessments", JWTAuthMiddleware(jwtSvc))
	g.POST("/start", h.Start)
	g.GET("/user", h.ListForUser)
	g.POST("/:id/message", h.SendMessage)
	g.GET("/:id/results", h.Results)
	g.GET("/:id", h.Details)
	return assessmentFixture{router: r, jwt: jwtSvc}
}

func (f assessmentFixture) tokenFor(t *testing.T, userID string) string {
	t.Helper()
	pair, err := f.jwt.GeneratePair(context.Background(), domain.User{ID: userID, Email: userID + "@example.com"})
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	return pair.AccessToken
}

type aiResponse struct {
	Message        string `json:"message"`
	ShouldContinue bool   `json:"should_continue"`
	AnalysisReady  bool   `json:"analysis_ready"`
}

func startAssessment(t *testing.T, f assessmentFixture, token string) string {
	t.Helper()
	rec := performAuthedRequest(f.router, http.MethodPost, "/assessments/start", token, map[string]string{
		"assessment_type": "independence",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		AssessmentID string     `json:"assessment_id"`
		AIResponse   aiResponse `json:"ai_response"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode start: %v", err)
	}
	if body.AssessmentID == "" || body.AIResponse.Message == "" || !body.AIResponse.ShouldContinue {
		t.Fatalf("unexpected start response %+v", body)
	}
	return body.AssessmentID
}

func sendMessage(f assessmentFixture, token, id, text string) (int, aiResponse, bool) {
	rec := performAuthedRequest(f.router, http.MethodPost, "/assessments/"+id+"/message", token, map[string]string{"message": text})
	var body struct {
		AIResponse    aiResponse `json:"ai_response"`
		AnalysisReady bool       `json:"analysis_ready"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec.Code, body.AIResponse, body.AnalysisReady
}

func TestAssessmentHandlerFullFlow(t *testing.T) {
	f := setupAssessmentRouter(t, nil)
	token := f.tokenFor(t, "u1")
	id := startAssessment(t, f, token)

	rec := performAuthedRequest(f.router, http.MethodGet, "/assessments/"+id+"/results", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for results on active assessment, got %d", rec.Code)
	}

	for i, text := range []string{"a", "b", "c", "d"} {
		code, ai, ready := sendMessage(f, token, id, text)
		if code != http.StatusOK || ready || ai.AnalysisReady {
			t.Fatalf("message %d: expected 200 without analysis, got %d ready=%v", i+1, code, ready)
		}
	}
	code, ai, ready := sendMessage(f, token, id, "e")
	if code != http.StatusOK || !ready || !ai.AnalysisReady || ai.ShouldContinue {
		t.Fatalf("expected closing response, got %d %+v ready=%v", code, ai, ready)
	}

	code, _, _ = sendMessage(f, token, id, "f")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 on completed assessment, got %d", code)
	}

	rec = performAuthedRequest(f.router, http.MethodGet, "/assessments/"+id+"/results", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for results, got %d", rec.Code)
	}
	var results struct {
		Assessment struct {
			Status string `json:"status"`
		} `json:"assessment"`
		Messages []struct {
			Sender  string `json:"sender"`
			Message string `json:"message"`
		} `json:"messages"`
		Analysis struct {
			AssessmentType  string   `json:"assessment_type"`
			Score           int      `json:"score"`
			Recommendations []string `json:"recommendations"`
		} `json:"analysis"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if results.Assessment.Status != "completed" || len(results.Messages) != 11 {
		t.Fatalf("unexpected results: status=%s messages=%d", results.Assessment.Status, len(results.Messages))
	}
	if results.Messages[0].Sender != "system" || results.Messages[1].Message != "a" {
		t.Fatalf("unexpected transcript order: %+v", results.Messages[:2])
	}
	if results.Analysis.AssessmentType != "independence" || len(results.Analysis.Recommendations) == 0 {
		t.Fatalf("unexpected analysis %+v", results.Analysis)
	}
}

func TestAssessmentHandlerDetailsAndList(t *testing.T) {
	f := setupAssessmentRouter(t, nil)
	token := f.tokenFor(t, "u1")
	id := startAssessment(t, f, token)
	sendMessage(f, token, id, "a")

	rec := performAuthedRequest(f.router, http.MethodGet, "/assessments/"+id, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var details struct {
		Assessment map[string]any   `json:"assessment"`
		Messages   []map[string]any `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &details); err != nil {
		t.Fatalf("decode details: %v", err)
	}
	if _, ok := details.Assessment["analysis"]; ok {
		t.Fatalf("details must not carry analysis")
	}
	if len(details.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(details.Messages))
	}

	rec = performAuthedRequest(f.router, http.MethodGet, "/assessments/user", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0]["id"] != id {
		t.Fatalf("unexpected list %+v", list)
	}

	other := f.tokenFor(t, "u2")
	rec = performAuthedRequest(f.router, http.MethodGet, "/assessments/user", other, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "[]" {
		t.Fatalf("expected empty list for other user, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestAssessmentHandlerErrorMapping(t *testing.T) {
	f := setupAssessmentRouter(t, failingAnalyzer{})
	token := f.tokenFor(t, "u1")
	id := startAssessment(t, f, token)

	if code, _, _ := sendMessage(f, token, id, "   "); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank message, got %d", code)
	}
	if code, _, _ := sendMessage(f, token, "missing", "hi"); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown assessment, got %d", code)
	}
	if code, _, _ := sendMessage(f, f.tokenFor(t, "u2"), id, "hi"); code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign assessment, got %d", code)
	}

	for _, text := range []string{"a", "b", "c", "d"} {
		if code, _, _ := sendMessage(f, token, id, text); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
	}
	if code, _, _ := sendMessage(f, token, id, "e"); code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when analyzer fails, got %d", code)
	}

	rec := performAuthedRequest(f.router, http.MethodPost, "/assessments/start", token, map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without assessment_type, got %d", rec.Code)
	}
	rec = performRequest(f.router, http.MethodPost, "/assessments/start", map[string]string{"assessment_type": "x"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(context.Context, string, []domain.Turn) (domain.Analysis, error) {
	return domain.Analysis{}, errors.New("analyzer unavailable")
}

package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hrbooteh/internal/domain"
	"hrbooteh/internal/service"
)

// AssessmentHandler expone la maquina de estados de evaluaciones. El dueno de
// cada evaluacion es siempre el usuario del access token.
type AssessmentHandler struct {
	logger      *zap.Logger
	assessments *service.AssessmentService
}

func NewAssessmentHandler(logger *zap.Logger, assessments *service.AssessmentService) *AssessmentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentHandler{logger: logger, assessments: assessments}
}

// Start maneja POST /api/v1/assessments/start.
func (h *AssessmentHandler) Start(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		AssessmentType string `json:"assessment_type" binding:"required"`
		UserContext    string `json:"user_context"`
	}
	if !bindJSON(c, h.logger, &req, "invalid start assessment request") {
		return
	}

	res, err := h.assessments.Start(c.Request.Context(), service.StartInput{
		OwnerID:        ownerID,
		AssessmentType: req.AssessmentType,
		UserContext:    req.UserContext,
	})
	if err != nil {
		h.writeError(c, "start assessment failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"assessment_id": res.AssessmentID,
		"ai_response":   res.Reply,
	})
}

// SendMessage maneja POST /api/v1/assessments/:id/message.
func (h *AssessmentHandler) SendMessage(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if !bindJSON(c, h.logger, &req, "invalid assessment message request") {
		return
	}

	reply, err := h.assessments.Advance(c.Request.Context(), service.AdvanceInput{
		AssessmentID: c.Param("id"),
		OwnerID:      ownerID,
		Text:         req.Message,
	})
	if err != nil {
		h.writeError(c, "advance assessment failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ai_response":    reply,
		"analysis_ready": reply.AnalysisReady,
	})
}

// Results maneja GET /api/v1/assessments/:id/results.
func (h *AssessmentHandler) Results(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}
	res, err := h.assessments.GetResults(c.Request.Context(), c.Param("id"), ownerID)
	if err != nil {
		h.writeError(c, "get assessment results failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"assessment": res.Assessment,
		"messages":   nonNilTurns(res.Turns),
		"analysis":   res.Analysis,
	})
}

// Details maneja GET /api/v1/assessments/:id.
func (h *AssessmentHandler) Details(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}
	res, err := h.assessments.GetDetails(c.Request.Context(), c.Param("id"), ownerID)
	if err != nil {
		h.writeError(c, "get assessment details failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"assessment": res.Assessment,
		"messages":   nonNilTurns(res.Turns),
	})
}

// ListForUser maneja GET /api/v1/assessments/user.
func (h *AssessmentHandler) ListForUser(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}
	list, err := h.assessments.ListForOwner(c.Request.Context(), ownerID)
	if err != nil {
		h.writeError(c, "list assessments failed", err)
		return
	}
	if list == nil {
		list = []domain.Assessment{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *AssessmentHandler) writeError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	case errors.Is(err, service.ErrAssessmentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "assessment not found"})
	case errors.Is(err, service.ErrAssessmentNotActive):
		c.JSON(http.StatusBadRequest, gin.H{"error": "assessment is not active"})
	case errors.Is(err, service.ErrAssessmentNotCompleted):
		c.JSON(http.StatusBadRequest, gin.H{"error": "assessment is not completed yet"})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment state"})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func nonNilTurns(turns []domain.Turn) []domain.Turn {
	if turns == nil {
		return []domain.Turn{}
	}
	return turns
}

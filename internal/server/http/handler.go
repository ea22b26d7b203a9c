package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"securequiz/internal/logging"
	"securequiz/internal/quiz/app"
	"securequiz/internal/quiz/domain"
)

// Handler serves the quiz and admin endpoints.
type Handler struct {
	svc    *app.Service
	logger logging.Logger
	now    func() time.Time
}

// NewHandler builds a Handler around the lifecycle service.
func NewHandler(svc *app.Service, logger logging.Logger) *Handler {
	if logging.IsNil(logger) {
		logger = logging.NewComponentLogger("QuizHTTP")
	}
	return &Handler{svc: svc, logger: logger, now: time.Now}
}

type submitRequest struct {
	Answers domain.AnswerSet `json:"answers"`
	Email   string           `json:"email"`
	Name    string           `json:"name"`
}

type sessionRequest struct {
	Email    string           `json:"email"`
	Progress int              `json:"progress"`
	Answers  domain.AnswerSet `json:"answers"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// bindJSON decodes the body into dst. An empty body leaves dst zeroed.
func bindJSON(c *gin.Context, dst any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			abortWithMessage(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		abortWithMessage(c, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}

// Health reports 200 when the store answers a ping.
func (h *Handler) Health(c *gin.Context) {
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		logging.FromContext(c.Request.Context(), h.logger).Warn("Health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": h.now().UTC().Format(app.ISOTimestamp)})
}

// Questions returns the question catalogue.
func (h *Handler) Questions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"questions": domain.Questions()})
}

// Submit scores and stores one quiz completion.
func (h *Handler) Submit(c *gin.Context) {
	var req submitRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.svc.Submit(c.Request.Context(), app.SubmitRequest{
		Answers:  req.Answers,
		Email:    req.Email,
		Name:     req.Name,
		ClientID: c.ClientIP(),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SaveSession stores in-progress answers.
func (h *Handler) SaveSession(c *gin.Context) {
	var req sessionRequest
	if !bindJSON(c, &req) {
		return
	}
	err := h.svc.SaveSession(c.Request.Context(), app.SaveSessionRequest{
		Email:    req.Email,
		Progress: req.Progress,
		Answers:  req.Answers,
		ClientID: c.ClientIP(),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse{Success: true})
}

// GetSession returns saved progress for ?email=.
func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.svc.GetSession(c.Request.Context(), c.Query("email"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			abortWithMessage(c, http.StatusNotFound, "Session not found")
			return
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(session))
}

// Login exchanges admin credentials for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	identifier := req.Username
	if strings.TrimSpace(identifier) == "" {
		identifier = req.Email
	}
	token, err := h.svc.Login(c.Request.Context(), identifier, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			abortWithMessage(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{Token: token.Value, ExpiresAt: token.ExpiresAt})
}

// Reset deletes the submission and session for an email.
func (h *Handler) Reset(c *gin.Context) {
	var req resetRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.ResetUser(c.Request.Context(), req.Email); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse{Success: true})
}

// Submissions lists every submission, most recent first.
func (h *Handler) Submissions(c *gin.Context) {
	subs, err := h.svc.ListSubmissions(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSubmissionViews(subs))
}

// Analytics returns the archetype distribution and recent submissions.
func (h *Handler) Analytics(c *gin.Context) {
	analytics, err := h.svc.Analytics(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAnalyticsView(analytics))
}

// Export downloads all submissions as CSV. ?format=legacy keeps unescaped quoting.
func (h *Handler) Export(c *gin.Context) {
	var buf bytes.Buffer
	format := app.ParseExportFormat(c.Query("format"))
	if err := h.svc.ExportCSV(c.Request.Context(), &buf, format); err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="quiz-submissions.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// Report downloads the PDF result report for one submission.
func (h *Handler) Report(c *gin.Context) {
	var buf bytes.Buffer
	sub, err := h.svc.RenderReport(c.Request.Context(), c.Param("email"), &buf)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			abortWithMessage(c, http.StatusNotFound, "Submission not found")
			return
		}
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, app.ReportFilename(sub.Name)))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// NotFound answers unknown routes.
func (h *Handler) NotFound(c *gin.Context) {
	abortWithMessage(c, http.StatusNotFound, msgNotFound)
}

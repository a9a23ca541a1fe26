package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/aman-churiwal/hackathon-portal/internal/middleware"
	"github.com/aman-churiwal/hackathon-portal/internal/models"
	"github.com/aman-churiwal/hackathon-portal/internal/objectstore"
	"github.com/aman-churiwal/hackathon-portal/internal/repository"
	"github.com/aman-churiwal/hackathon-portal/internal/service"
	"github.com/gin-gonic/gin"
)

// RegistrationService is implemented by *service.RegistrationService.
type RegistrationService interface {
	Create(ctx context.Context, params service.CreateRegistrationParams) (*models.Registration, error)
	Get(ctx context.Context, teamID string) (*models.Registration, error)
	List(ctx context.Context, filter repository.RegistrationFilter) (*service.ListResult, error)
	Approve(ctx context.Context, teamID, reviewer, note string) (*models.Registration, error)
	Reject(ctx context.Context, teamID, reviewer, note string) (*models.Registration, error)
	Delete(ctx context.Context, teamID string) error
	PaymentProofUploadURL(ctx context.Context, teamID, token, contentType string) (*service.PaymentProofUpload, error)
	PaymentProofViewURL(ctx context.Context, teamID string) (*objectstore.SignedURL, error)
}

type RegistrationHandler struct {
	service RegistrationService
}

func NewRegistrationHandler(service RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

type memberRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Email string `json:"email" binding:"required,email"`
}

type createRegistrationRequest struct {
	TeamName    string          `json:"team_name" binding:"required,max=60"`
	LeaderName  string          `json:"leader_name" binding:"required,max=100"`
	LeaderEmail string          `json:"leader_email" binding:"required,email"`
	Phone       string          `json:"phone" binding:"omitempty,max=20"`
	College     string          `json:"college" binding:"required,max=150"`
	Members     []memberRequest `json:"members" binding:"dive"`
}

type decisionRequest struct {
	Note string `json:"note" binding:"max=500"`
}

type paymentProofRequest struct {
	UploadToken string `json:"upload_token" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// createdRegistration is the only response that carries the upload token.
type createdRegistration struct {
	models.PublicRegistration
	UploadToken string `json:"upload_token"`
}

// Handles POST /api/registrations
func (h *RegistrationHandler) Create(c *gin.Context) {
	var req createRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	members := make([]models.Member, len(req.Members))
	for i, m := range req.Members {
		members[i] = models.Member{Name: m.Name, Email: m.Email}
	}

	ctx := c.Request.Context()
	reg, err := h.service.Create(ctx, service.CreateRegistrationParams{
		TeamName:    req.TeamName,
		LeaderName:  req.LeaderName,
		LeaderEmail: req.LeaderEmail,
		Phone:       req.Phone,
		College:     req.College,
		Members:     members,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	middleware.LogInfo(ctx, "team_id", reg.TeamID)
	c.JSON(http.StatusCreated, createdRegistration{
		PublicRegistration: reg.Public(),
		UploadToken:        reg.UploadToken,
	})
}

// Handles GET /api/registrations/:teamId
func (h *RegistrationHandler) Lookup(c *gin.Context) {
	reg, err := h.service.Get(c.Request.Context(), teamIDParam(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, reg.Public())
}

// Handles POST /api/registrations/:teamId/payment-proof
func (h *RegistrationHandler) PaymentProofUpload(c *gin.Context) {
	var req paymentProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	upload, err := h.service.PaymentProofUploadURL(c.Request.Context(), teamIDParam(c), req.UploadToken, req.ContentType)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, upload)
}

// Handles GET /admin/registrations
func (h *RegistrationHandler) List(c *gin.Context) {
	filter := repository.RegistrationFilter{
		Status: models.RegistrationStatus(c.Query("status")),
		Search: strings.TrimSpace(c.Query("q")),
	}
	if l, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = l
	}
	if o, err := strconv.Atoi(c.Query("offset")); err == nil {
		filter.Offset = o
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Handles GET /admin/registrations/:teamId
func (h *RegistrationHandler) Get(c *gin.Context) {
	reg, err := h.service.Get(c.Request.Context(), teamIDParam(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, reg)
}

// Handles POST /admin/registrations/:teamId/approve
func (h *RegistrationHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

// Handles POST /admin/registrations/:teamId/reject
func (h *RegistrationHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

func (h *RegistrationHandler) decide(c *gin.Context, fn func(ctx context.Context, teamID, reviewer, note string) (*models.Registration, error)) {
	var req decisionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	reg, err := fn(c.Request.Context(), teamIDParam(c), middleware.Reviewer(c), req.Note)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, reg)
}

// Handles DELETE /admin/registrations/:teamId
func (h *RegistrationHandler) Delete(c *gin.Context) {
	teamID := teamIDParam(c)
	if err := h.service.Delete(c.Request.Context(), teamID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Registration deleted",
		"team_id": teamID,
	})
}

// Handles GET /admin/registrations/:teamId/payment-proof
func (h *RegistrationHandler) PaymentProofView(c *gin.Context) {
	signed, err := h.service.PaymentProofViewURL(c.Request.Context(), teamIDParam(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, signed)
}

// Team ids are stored upper-case; accept in25-007 from a hand-typed URL.
func teamIDParam(c *gin.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("teamId")))
}

package handler

import (
	"errors"
	"net/http"

	"github.com/aman-churiwal/hackathon-portal/internal/repository"
	"github.com/aman-churiwal/hackathon-portal/internal/service"
	"github.com/aman-churiwal/hackathon-portal/internal/teamid"
	"github.com/gin-gonic/gin"
)

// writeError maps service errors to responses. Unexpected errors are attached
// to the gin context so the canonical log line records them.
func writeError(c *gin.Context, err error) {
	var verr *service.ValidationError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Registration not found"})
	case errors.Is(err, service.ErrAlreadyRegistered):
		c.JSON(http.StatusConflict, gin.H{"error": "This email has already registered a team"})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnsupportedContentType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidUploadToken):
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid upload token"})
	case errors.Is(err, service.ErrNoPaymentProof):
		c.JSON(http.StatusNotFound, gin.H{"error": "No payment proof uploaded"})
	case errors.Is(err, repository.ErrDuplicateTeamID), errors.Is(err, teamid.ErrAllocationExhausted):
		_ = c.Error(err)
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Registration is busy, please retry"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}
}

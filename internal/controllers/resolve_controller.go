package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"linklock-be/internal/linkerr"
	"linklock-be/internal/models"
	"linklock-be/internal/service"
)

// ResolveController turns resolvable keys into redirect decisions.
type ResolveController struct {
	resolver *service.RedirectResolver
}

func NewResolveController(resolver *service.RedirectResolver) *ResolveController {
	return &ResolveController{resolver: resolver}
}

func visitorFrom(c *gin.Context) service.Visitor {
	return service.Visitor{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
	}
}

// Redirect handles GET /:key - the browser-facing resolution entry.
// Unprotected links 302 straight to the target; protected links get a
// locked response so the frontend can prompt for the password.
func (rc *ResolveController) Redirect(c *gin.Context) {
	key := c.Param("key")

	res, err := rc.resolver.Resolve(c.Request.Context(), key, visitorFrom(c))
	if err != nil {
		respondResolveError(c, err)
		return
	}

	switch res.State() {
	case service.StateNotFound:
		c.JSON(http.StatusNotFound, models.ResolveResponse{Status: models.StatusNotFound})
	case service.StateAwaitingPassword:
		c.JSON(http.StatusOK, models.ResolveResponse{Status: models.StatusLocked})
	default:
		target, _ := res.Target()
		c.Redirect(http.StatusFound, target)
	}
}

// Resolve handles GET /api/v1/resolve/:key - JSON variant for the
// frontend; no HTTP redirect is issued.
func (rc *ResolveController) Resolve(c *gin.Context) {
	key := c.Param("key")

	res, err := rc.resolver.Resolve(c.Request.Context(), key, visitorFrom(c))
	if err != nil {
		respondResolveError(c, err)
		return
	}

	switch res.State() {
	case service.StateNotFound:
		c.JSON(http.StatusNotFound, models.ResolveResponse{Status: models.StatusNotFound})
	case service.StateAwaitingPassword:
		c.JSON(http.StatusOK, models.ResolveResponse{Status: models.StatusLocked})
	default:
		target, _ := res.Target()
		c.JSON(http.StatusOK, models.ResolveResponse{Status: models.StatusRedirect, Target: target})
	}
}

// Unlock handles POST /api/v1/resolve/:key/unlock - submits a password
// against a protected link. Wrong or malformed passwords are a normal
// retryable outcome, not an error status.
func (rc *ResolveController) Unlock(c *gin.Context) {
	key := c.Param("key")

	var req models.UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	res, err := rc.resolver.Resolve(c.Request.Context(), key, visitorFrom(c))
	if err != nil {
		respondResolveError(c, err)
		return
	}
	if res.State() == service.StateNotFound {
		c.JSON(http.StatusNotFound, models.ResolveResponse{Status: models.StatusNotFound})
		return
	}

	target, err := res.Submit(c.Request.Context(), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, linkerr.ErrWrongPassword):
			c.JSON(http.StatusOK, models.ResolveResponse{Status: models.StatusWrongPassword})
		case errors.Is(err, linkerr.ErrWeakPassword):
			c.JSON(http.StatusOK, models.ResolveResponse{
				Status: models.StatusWrongPassword,
				Error:  "password must be at least 4 characters",
			})
		default:
			respondResolveError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, models.ResolveResponse{Status: models.StatusRedirect, Target: target})
}

func respondResolveError(c *gin.Context, err error) {
	if errors.Is(err, linkerr.ErrTimeout) {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Resolution timed out, please retry"})
		return
	}
	// RegistryCorrupt and storage failures were already logged with
	// detail; the caller only sees a generic failure.
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
}

package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"linklock-be/internal/linkerr"
	"linklock-be/internal/models"
	"linklock-be/internal/service"
)

// LinkController exposes the owner-facing link management surface.
type LinkController struct {
	linkService service.LinkService
}

func NewLinkController(linkService service.LinkService) *LinkController {
	return &LinkController{linkService: linkService}
}

func currentUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		c.Abort()
		return "", false
	}
	return userID.(string), true
}

// CreateLink handles POST /api/v1/links
func (lc *LinkController) CreateLink(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	response, err := lc.linkService.CreateLink(c.Request.Context(), &req, userID)
	if err != nil {
		respondLinkError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// GetUserLinks handles GET /api/v1/links
func (lc *LinkController) GetUserLinks(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	links, err := lc.linkService.GetUserLinks(c.Request.Context(), userID)
	if err != nil {
		respondLinkError(c, err)
		return
	}

	c.JSON(http.StatusOK, links)
}

// DeleteLink handles DELETE /api/v1/links/:id
func (lc *LinkController) DeleteLink(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := lc.linkService.DeleteLink(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondLinkError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link deleted successfully"})
}

// UpdateProtection handles PATCH /api/v1/links/:id/protection
func (lc *LinkController) UpdateProtection(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.UpdateProtectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := lc.linkService.UpdateProtection(c.Request.Context(), c.Param("id"), userID, &req); err != nil {
		respondLinkError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Protection updated successfully"})
}

// GetAnalytics handles GET /api/v1/links/:id/analytics
func (lc *LinkController) GetAnalytics(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	hours := 24
	if hoursStr := c.Query("hours"); hoursStr != "" {
		if parsed, err := strconv.Atoi(hoursStr); err == nil && parsed > 0 {
			hours = parsed
		}
	}

	buckets, err := lc.linkService.GetAnalytics(c.Request.Context(), c.Param("id"), userID, hours)
	if err != nil {
		respondLinkError(c, err)
		return
	}

	c.JSON(http.StatusOK, buckets)
}

// respondLinkError maps the typed error set onto HTTP statuses.
// Validation and conflict errors carry detail; storage failures stay
// generic because the service already logged them.
func respondLinkError(c *gin.Context, err error) {
	if ve, ok := linkerr.AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message, "field": ve.Field})
		return
	}

	switch {
	case linkerr.IsDuplicateKey(err):
		c.JSON(http.StatusConflict, gin.H{"error": "Short key already taken"})
	case errors.Is(err, linkerr.ErrGenerationExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Could not generate a unique short code, please try again"})
	case linkerr.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
	case linkerr.IsForbidden(err):
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not own this link"})
	case errors.Is(err, linkerr.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Operation timed out, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}

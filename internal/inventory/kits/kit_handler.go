package kits

import (
	"errors"
	"net/http"
	"strconv"

	"toolroom/pkg/auditlog"
	custom_error "toolroom/pkg/errors"
	"toolroom/pkg/metadata"
	"toolroom/pkg/security"

	"github.com/gin-gonic/gin"
)

type KitHandler struct {
	r        KitRepository
	AuditLog *auditlog.Auditlog
}

func NewKitHandler(r KitRepository, a *auditlog.Auditlog) *KitHandler {
	return &KitHandler{
		r:        r,
		AuditLog: a,
	}
}

func (h *KitHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/kits", h.GetKitList)
	router.GET("/kits/:id", h.GetKit)

	protectedRoutes := router.Group("")
	protectedRoutes.Use(security.JWTMiddleware())
	{
		protectedRoutes.POST("/kits", security.Authorize("moderator"), h.CreateKit)
		protectedRoutes.PATCH("/kits/:id", security.Authorize("moderator"), h.UpdateKit)
		protectedRoutes.DELETE("/kits/:id", security.Authorize("admin"), h.RemoveKit)
	}
}

func (h *KitHandler) GetKit(c *gin.Context) {
	kitID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid kit ID parameter, must be an integer"})
		return
	}

	kit, err := h.r.GetKit(kitID)
	if err != nil {
		var notFound *custom_error.NotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unable to locate kit with given id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to get kit", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, kit)
}

func (h *KitHandler) GetKitList(c *gin.Context) {
	locationParam := c.Query("location")
	if locationParam == "" {
		kits, err := h.r.GetKitList()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to get kits", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, kits)
		return
	}

	location, err := metadata.NewLocation(locationParam)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid location", "details": err.Error()})
		return
	}

	kits, err := h.r.GetKitsByLocation(location)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to get kits", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, kits)
}

func (h *KitHandler) CreateKit(c *gin.Context) {
	var req KitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	createdBy, _ := security.GetUsernameFromToken(c)

	kit, err := h.r.PersistKit(req, createdBy)
	if err != nil {
		var validationErr *custom_error.ValidationError
		if errors.As(err, &validationErr) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
			return
		}
		var notFound *custom_error.NotFoundError
		if errors.As(err, &notFound) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": notFound.Error(), "path": "tool_ids"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to create kit", "details": err.Error()})
		return
	}

	go h.AuditLog.Log("create", map[string]interface{}{"kit_code": kit.KitCode, "msg": "Kit created"}, kit)

	c.JSON(http.StatusCreated, kit)
}

func (h *KitHandler) UpdateKit(c *gin.Context) {
	kitID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid kit ID parameter, must be an integer"})
		return
	}

	var req UpdateKitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	if err := h.r.UpdateKit(kitID, req); err != nil {
		var validationErr *custom_error.ValidationError
		if errors.As(err, &validationErr) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
			return
		}
		var notFound *custom_error.NotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unable to locate kit with given id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to update kit", "details": err.Error()})
		return
	}

	kit, err := h.r.GetKit(kitID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to get updated kit", "details": err.Error()})
		return
	}

	go h.AuditLog.Log("update", map[string]interface{}{"msg": "Kit updated"}, kit)

	c.JSON(http.StatusOK, kit)
}

func (h *KitHandler) RemoveKit(c *gin.Context) {
	kitID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid kit ID parameter, must be an integer"})
		return
	}

	if err := h.r.RemoveKit(kitID); err != nil {
		var notFound *custom_error.NotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unable to locate kit with given id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to remove kit", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Kit removed successfully", "kit_id": kitID})
}

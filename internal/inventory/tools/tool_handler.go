package tools

import (
	"errors"
	"net/http"
	"strconv"

	"toolroom/internal/repository"
	"toolroom/pkg/auditlog"
	custom_error "toolroom/pkg/errors"
	"toolroom/pkg/metadata"
	"toolroom/pkg/security"

	"github.com/gin-gonic/gin"
)

type ToolHandler struct {
	r        ToolRepository
	AuditLog *auditlog.Auditlog
}

func NewToolHandler(r ToolRepository, a *auditlog.Auditlog) *ToolHandler {
	return &ToolHandler{
		r:        r,
		AuditLog: a,
	}
}

func (h *ToolHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/tools", h.GetToolList)
	router.GET("/tools/:id", h.GetTool)

	protectedRoutes := router.Group("")
	protectedRoutes.Use(security.JWTMiddleware())
	{
		protectedRoutes.POST("/tools", security.Authorize("moderator"), h.CreateTool)
		protectedRoutes.PATCH("/tools/:id", security.Authorize("moderator"), h.UpdateTool)
		protectedRoutes.DELETE("/tools/:id", security.Authorize("admin"), h.RemoveTool)
	}
}

func (h *ToolHandler) GetTool(c *gin.Context) {
	toolID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tool ID parameter, must be an integer"})
		return
	}

	tool, err := h.r.GetTool(toolID)
	if err != nil {
		var notFound *custom_error.NotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unable to locate tool with given id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to get tool", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tool)
}

func (h *ToolHandler) GetToolList(c *gin.Context) {
	var query RetrieveToolListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	if query.Location == nil && query.Condition == nil {
		tools, err := h.r.GetToolList()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to get tools", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, tools)
		return
	}

	conditions := repository.NewQueryBuilder()
	if query.Location != nil {
		location, err := metadata.NewLocation(*query.Location)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid location", "details": err.Error()})
			return
		}
		conditions.AddCondition("location", location.String())
	}
	if query.Condition != nil {
		condition, err := metadata.NewCondition(*query.Condition)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid condition", "details": err.Error()})
			return
		}
		conditions.AddCondition("condition", string(condition))
	}

	tools, err := h.r.GetToolsBy(conditions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to get tools", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tools)
}

func (h *ToolHandler) CreateTool(c *gin.Context) {
	var req ToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	tool, err := h.r.PersistTool(req)
	if err != nil {
		var validationErr *custom_error.ValidationError
		if errors.As(err, &validationErr) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
			return
		}
		var uniqueViolation *custom_error.UniqueViolationError
		if errors.As(err, &uniqueViolation) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": uniqueViolation.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to create tool", "details": err.Error()})
		return
	}

	// Label code depends on the generated id, so it is stamped after insert.
	toolCode := metadata.NewToolCode(tool.Location, tool.ID)
	tool.ToolCode = toolCode.GenerateToolCode()
	if err := h.r.UpdateToolCode(tool.ID, tool.ToolCode); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to stamp tool code", "details": err.Error()})
		return
	}

	go h.AuditLog.Log("create", map[string]interface{}{"tool_no": tool.ToolNo, "msg": "Tool created"}, tool)

	c.JSON(http.StatusCreated, tool)
}

func (h *ToolHandler) UpdateTool(c *gin.Context) {
	toolID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tool ID parameter, must be an integer"})
		return
	}

	var req UpdateToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	if err := h.r.UpdateTool(toolID, req); err != nil {
		var validationErr *custom_error.ValidationError
		if errors.As(err, &validationErr) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
			return
		}
		var notFound *custom_error.NotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unable to locate tool with given id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to update tool", "details": err.Error()})
		return
	}

	tool, err := h.r.GetTool(toolID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to get updated tool", "details": err.Error()})
		return
	}

	go h.AuditLog.Log("update", map[string]interface{}{"msg": "Tool updated"}, tool)

	c.JSON(http.StatusOK, tool)
}

func (h *ToolHandler) RemoveTool(c *gin.Context) {
	toolID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tool ID parameter, must be an integer"})
		return
	}

	canRemove, err := h.r.CanRemoveTool(toolID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to verify tool issuances", "details": err.Error()})
		return
	}
	if !canRemove {
		c.JSON(http.StatusConflict, gin.H{"error": "Tool is part of a live issuance and cannot be removed"})
		return
	}

	if err := h.r.RemoveTool(toolID); err != nil {
		var notFound *custom_error.NotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unable to locate tool with given id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to remove tool", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tool removed successfully", "tool_id": toolID})
}

package issuance

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

type IssuanceHandler struct {
	service  *IssuanceService
	ledger   IssuanceRepository
	returns  ReturnRepository
	AuditLog *auditlog.Auditlog
}

func NewIssuanceHandler(service *IssuanceService, ledger IssuanceRepository, returns ReturnRepository, a *auditlog.Auditlog) *IssuanceHandler {
	return &IssuanceHandler{
		service:  service,
		ledger:   ledger,
		returns:  returns,
		AuditLog: a,
	}
}

func (h *IssuanceHandler) RegisterRoutes(router *gin.Engine) {
	protectedRoutes := router.Group("")
	protectedRoutes.Use(security.JWTMiddleware())
	{
		protectedRoutes.GET("/issuances", security.Authorize("user"), h.GetIssuanceList)
		protectedRoutes.GET("/issuances/:id", security.Authorize("user"), h.GetIssuance)
		protectedRoutes.GET("/issuances/:id/returns", security.Authorize("user"), h.GetIssuanceReturns)
		protectedRoutes.POST("/issuances", security.Authorize("user"), h.CreateIssuance)
		protectedRoutes.POST("/issuances/:id/approve", security.Authorize("moderator"), h.ApproveIssuance)
		protectedRoutes.POST("/issuances/:id/reject", security.Authorize("moderator"), h.RejectIssuance)
		protectedRoutes.PUT("/issuances/:id/return", security.Authorize("moderator"), h.ProcessReturn)
	}
}

func (h *IssuanceHandler) GetIssuance(c *gin.Context) {
	issuanceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issuance ID parameter, must be an integer"})
		return
	}

	issuance, err := h.ledger.GetIssuance(issuanceID)
	if err != nil {
		var notFound *custom_error.NotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unable to locate issuance with given id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to get issuance", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, issuance)
}

func (h *IssuanceHandler) GetIssuanceList(c *gin.Context) {
	var query RetrieveIssuanceListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	conditions := repository.NewQueryBuilder()
	if query.Status != nil {
		status, err := metadata.NewStatus(*query.Status)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid status", "details": err.Error()})
			return
		}
		conditions.AddCondition("status", string(status))
	}
	if query.Location != nil {
		location, err := metadata.NewLocation(*query.Location)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid location", "details": err.Error()})
			return
		}
		conditions.AddCondition("location", location.String())
	}
	if query.TrainerID != nil {
		conditions.AddCondition("trainer_id", *query.TrainerID)
	}

	issuances, err := h.ledger.GetIssuancesBy(conditions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to get issuances", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, issuances)
}

func (h *IssuanceHandler) GetIssuanceReturns(c *gin.Context) {
	issuanceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issuance ID parameter, must be an integer"})
		return
	}

	records, err := h.returns.GetReturnsForIssuance(issuanceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to get return records", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, records)
}

func (h *IssuanceHandler) CreateIssuance(c *gin.Context) {
	var req IssuanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	issuance, err := h.service.CreateIssuance(req)
	if err != nil {
		h.writeServiceError(c, err, "Unable to create issuance")
		return
	}

	go h.AuditLog.Log("request", map[string]interface{}{"trainer_name": issuance.TrainerName, "msg": "Issuance requested"}, issuance)

	c.JSON(http.StatusCreated, issuance)
}

func (h *IssuanceHandler) ApproveIssuance(c *gin.Context) {
	issuanceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issuance ID parameter, must be an integer"})
		return
	}

	var req ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	approvedBy, err := security.GetUsernameFromToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unable to resolve approver from token"})
		return
	}

	issuance, err := h.service.Approve(issuanceID, approvedBy, req.Remark)
	if err != nil {
		h.writeServiceError(c, err, "Unable to approve issuance")
		return
	}

	go h.AuditLog.Log("approve", map[string]interface{}{"approved_by": approvedBy, "msg": "Issuance approved"}, issuance)

	c.JSON(http.StatusOK, issuance)
}

func (h *IssuanceHandler) RejectIssuance(c *gin.Context) {
	issuanceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issuance ID parameter, must be an integer"})
		return
	}

	var req RejectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	rejectedBy, err := security.GetUsernameFromToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unable to resolve approver from token"})
		return
	}

	issuance, err := h.service.Reject(issuanceID, rejectedBy, req.Reason)
	if err != nil {
		h.writeServiceError(c, err, "Unable to reject issuance")
		return
	}

	go h.AuditLog.Log("reject", map[string]interface{}{"rejected_by": rejectedBy, "reason": req.Reason, "msg": "Issuance rejected"}, issuance)

	c.JSON(http.StatusOK, issuance)
}

func (h *IssuanceHandler) ProcessReturn(c *gin.Context) {
	issuanceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issuance ID parameter, must be an integer"})
		return
	}

	var req ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	processedBy, err := security.GetUsernameFromToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unable to resolve processor from token"})
		return
	}

	issuance, err := h.service.ProcessReturn(issuanceID, req, processedBy)
	if err != nil {
		h.writeServiceError(c, err, "Unable to process return")
		return
	}

	go h.AuditLog.Log("return", map[string]interface{}{"processed_by": processedBy, "status": string(issuance.Status), "msg": "Return processed"}, issuance)

	c.JSON(http.StatusOK, issuance)
}

func (h *IssuanceHandler) writeServiceError(c *gin.Context, err error, fallback string) {
	var validationErr *custom_error.ValidationError
	if errors.As(err, &validationErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
		return
	}
	var invalidState *custom_error.InvalidStateError
	if errors.As(err, &invalidState) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": invalidState.Error()})
		return
	}
	var capacity *custom_error.CapacityUnavailableError
	if errors.As(err, &capacity) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":         capacity.Error(),
			"resource_type": capacity.ResourceType,
			"resource_id":   capacity.ResourceID,
		})
		return
	}
	var notFound *custom_error.NotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback, "details": err.Error()})
}

package repairs

import (
	"net/http"
	"strconv"
	"time"
	"toolroom/internal/rate_limiter"
	"toolroom/pkg/security"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service     *Service
	rateLimiter *rate_limiter.RateLimiter
}

func NewHandler(service *Service) *Handler {
	// Anonymous ticket creation is throttled, authenticated users are not.
	rateLimiter := rate_limiter.NewRateLimiter(15, time.Minute)

	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
	}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	repairs := router.Group("/repairs")
	{
		repairs.GET("/tickets", security.Authorize("user"), h.getTickets)
		repairs.GET("/tickets/:id", security.Authorize("user"), h.getTicket)
		repairs.GET("/tickets/:id/comments", security.Authorize("user"), h.getComments)
		repairs.PUT("/tickets/:id/status", security.Authorize("moderator"), h.changeStatus)
		repairs.PUT("/tickets/:id/assign", security.Authorize("moderator"), h.assignTicket)
		repairs.POST("/tickets/:id/comments", security.Authorize("user"), h.addComment)
		repairs.GET("/ticket-types", security.Authorize("user"), h.getTicketTypes)
	}
}

func (h *Handler) RegisterPublicRoutes(router *gin.Engine) {
	repairs := router.Group("/repairs")
	{
		repairs.POST("/tickets", h.createTicket)
	}
}

func (h *Handler) getTickets(c *gin.Context) {
	status := c.Query("status")
	limitInt, offsetInt := h.getQueryPaginationParams(c)

	tickets, err := h.service.GetTickets(status, limitInt, offsetInt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tickets", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tickets)
}

func (h *Handler) getTicket(c *gin.Context) {
	idInt, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	ticket, err := h.service.GetTicket(idInt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func (h *Handler) createTicket(c *gin.Context) {
	userID, err := security.GetUserIDFromToken(c)

	// Anonymous callers go through the rate limiter.
	if err != nil || userID == "" {
		clientIP := c.ClientIP()
		if !h.rateLimiter.IsAllowed(clientIP) {
			remaining := h.rateLimiter.GetRemainingRequests(clientIP)
			c.Header("X-RateLimit-Limit", "15")
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
			c.Header("X-RateLimit-Reset", time.Now().Add(time.Minute).Format(time.RFC3339))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":     "Request limit exceeded. Try again later or log in.",
				"remaining": remaining,
				"reset_at":  time.Now().Add(time.Minute).Format(time.RFC3339),
			})
			return
		}
	}

	var ticket Ticket
	if err := c.ShouldBindJSON(&ticket); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if userID != "" {
		id, err := strconv.Atoi(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse user ID"})
			return
		}
		ticket.CreatedByID = &id
	}

	if err := h.service.CreateTicket(&ticket); err != nil {
		if err == ErrInvalidType {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ticket type"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create ticket", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, ticket)
}

func (h *Handler) getComments(c *gin.Context) {
	idInt, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	comments, err := h.service.GetComments(idInt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, comments)
}

func (h *Handler) changeStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.service.ChangeStatus(id, req.Status); err != nil {
		switch err {
		case ErrTicketNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		case ErrInvalidStatus:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ticket status"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change status", "details": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Status updated"})
}

func (h *Handler) assignTicket(c *gin.Context) {
	ticketID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var req struct {
		AssignedToID int `json:"assigned_to_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.service.AssignTicket(ticketID, req.AssignedToID); err != nil {
		if err == ErrTicketNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign ticket", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Ticket assigned"})
}

func (h *Handler) addComment(c *gin.Context) {
	ticketID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	userIDString, err := security.GetUserIDFromToken(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read user ID", "details": err.Error()})
		return
	}

	userID, err := strconv.Atoi(userIDString)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse user ID", "details": err.Error()})
		return
	}

	comment, err := h.service.AddComment(ticketID, req.Content, userID)
	if err != nil {
		if err == ErrTicketNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add comment", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, comment)
}

func (h *Handler) getTicketTypes(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.GetTicketTypes())
}

func (h *Handler) getQueryPaginationParams(c *gin.Context) (int, int) {
	limitInt, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limitInt = 20
	}

	offsetInt, err := strconv.Atoi(c.Query("offset"))
	if err != nil {
		offsetInt = 0
	}

	if limitInt < 1 || limitInt > 100 {
		limitInt = 20
	}

	if offsetInt < 0 {
		offsetInt = 0
	}

	return limitInt, offsetInt
}

package orders

import (
	"errors"
	"log/slog"
	"net/http"

	"caterly/internal/meals"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/merge", h.Merge)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.GET("/:id/grouped", h.Grouped)
	rg.POST("/:id/detach/session", h.DetachSession)
	rg.POST("/:id/detach/date", h.DetachDate)
}

func (h *Handler) Create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if in.SupervisorID == nil {
		if uid := c.GetString("userID"); uid != "" {
			in.SupervisorID = &uid
		}
	}
	o, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *Handler) Get(c *gin.Context) {
	o, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) List(c *gin.Context) {
	f := Filter{CustomerID: c.Query("customerId"), Status: c.Query("status")}
	list, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) Update(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	o, err := h.service.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	res, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}

	body := gin.H{"order": res.Order}
	if res.BillID != "" {
		body["billId"] = res.BillID
		body["billCreated"] = res.BillCreated
	}
	if res.BillError != nil {
		body["warning"] = "status updated, but bill creation failed"
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) Grouped(c *gin.Context) {
	groups, err := h.service.Grouped(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (h *Handler) DetachSession(c *gin.Context) {
	var req struct {
		SessionKey string `json:"sessionKey" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionKey is required"})
		return
	}
	res, err := h.service.DetachSession(c.Request.Context(), c.Param("id"), req.SessionKey)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) DetachDate(c *gin.Context) {
	var req struct {
		Date string `json:"date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
		return
	}
	res, err := h.service.DetachDate(c.Request.Context(), c.Param("id"), req.Date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Merge(c *gin.Context) {
	var req struct {
		OrderIDs []string `json:"orderIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	o, err := h.service.Merge(c.Request.Context(), req.OrderIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func writeError(c *gin.Context, err error) {
	switch {
	case IsClientError(err), errors.Is(err, meals.ErrWouldEmptyOrder):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotFound),
		errors.Is(err, meals.ErrSessionNotFound),
		errors.Is(err, meals.ErrDateNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrAlreadyBilled),
		errors.Is(err, ErrCustomerMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		slog.Error("order request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

package documents

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"caterly/internal/bills"
	"caterly/internal/customers"
	"caterly/internal/expenses"
	"caterly/internal/notify"
	"caterly/internal/orders"
	"caterly/internal/workforce"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the document routes under /documents.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/inventory", h.Inventory)
	rg.POST("/statement", h.Statement)
	rg.GET("/:kind/:id", h.Get)
}

// RegisterBillRoutes mounts POST /:id/send on the bills group.
func (h *Handler) RegisterBillRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/send", h.SendBill)
}

func (h *Handler) Get(c *gin.Context) {
	doc, err := h.service.Generate(c.Request.Context(), c.Param("kind"), c.Param("id"), c.Query("format"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeDocument(c, doc)
}

type statementRequest struct {
	BillIDs []string `json:"billIds"`
	Format  string   `json:"format"`
}

func (h *Handler) Statement(c *gin.Context) {
	var req statementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	doc, err := h.service.GenerateStatement(c.Request.Context(), req.BillIDs, req.Format)
	if err != nil {
		writeError(c, err)
		return
	}
	writeDocument(c, doc)
}

func (h *Handler) Inventory(c *gin.Context) {
	var in InventoryData
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	doc, err := h.service.GenerateInventory(c.Request.Context(), in, c.Query("format"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeDocument(c, doc)
}

func (h *Handler) SendBill(c *gin.Context) {
	var in SendInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	res, err := h.service.SendBill(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func writeDocument(c *gin.Context, doc *Document) {
	if doc.URL != "" {
		c.Header("X-Document-URL", doc.URL)
	}
	if doc.PDF == nil {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc.HTML))
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": doc.Name + ".pdf"}))
	c.Data(http.StatusOK, "application/pdf", doc.PDF)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnknownKind), errors.Is(err, ErrUnknownFormat),
		errors.Is(err, ErrNoItems), errors.Is(err, ErrItemNameMissing),
		errors.Is(err, ErrUnknownChannel), errors.Is(err, notify.ErrNoRecipient),
		bills.IsClientError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, bills.ErrNotFound), errors.Is(err, orders.ErrNotFound),
		errors.Is(err, expenses.ErrNotFound), errors.Is(err, workforce.ErrNotFound),
		errors.Is(err, customers.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrPDFUnavailable), errors.Is(err, ErrNoPublicURL), errors.Is(err, notify.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		slog.Error("document request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

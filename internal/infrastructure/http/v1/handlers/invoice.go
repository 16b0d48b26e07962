package handlers

import (
	"github.com/gin-gonic/gin"

	"invoicebook/internal/domain/invoice"
	"invoicebook/internal/infrastructure/http/v1/dto"
)

// InvoiceHandler handles HTTP requests for invoices.
type InvoiceHandler struct {
	*BaseHandler
	service *invoice.Service
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service) *InvoiceHandler {
	return &InvoiceHandler{BaseHandler: base, service: service}
}

// Create handles POST /invoices.
func (h *InvoiceHandler) Create(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}

	var req dto.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	headerID, err := h.service.Create(c.Request.Context(), userID, req.ToDraft())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, headerID)
}

// List handles GET /invoices: the caller's invoices, newest first.
func (h *InvoiceHandler) List(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}

	headers, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromInvoiceHeaders(headers))
}

// Get handles GET /invoices/:id.
// Reading someone else's invoice is refused here, at the edge.
func (h *InvoiceHandler) Get(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}

	inv, err := h.service.GetDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := invoice.Authorize(&inv.Header, userID); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromInvoice(inv))
}

// Delete handles DELETE /invoices/:id.
func (h *InvoiceHandler) Delete(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// RenameNumber handles PATCH /invoices/:id/number.
func (h *InvoiceHandler) RenameNumber(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}

	var req dto.RenameNumberRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.RenameNumber(c.Request.Context(), c.Param("id"), userID, req.InvoiceNumber); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "invoice number updated")
}

// NumberExists handles GET /invoices/number-exists?number=&excludeId=.
func (h *InvoiceHandler) NumberExists(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}

	var q dto.NumberExistsQuery
	if !h.BindQuery(c, &q) {
		return
	}

	h.OK(c, dto.NumberExistsResponse{
		Number: q.Number,
		Exists: h.service.NumberExists(c.Request.Context(), userID, q.Number, q.ExcludeID),
	})
}

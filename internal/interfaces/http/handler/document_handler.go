package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appdocument "github.com/propsign/backend/internal/application/document"
	"github.com/propsign/backend/internal/domain/shared"
	"github.com/propsign/backend/internal/interfaces/http/dto"
)

// DocumentHandler handles the document pipeline endpoints
type DocumentHandler struct {
	BaseHandler
	documents *appdocument.DocumentService
	reminders *appdocument.ReminderService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(
	documents *appdocument.DocumentService,
	reminders *appdocument.ReminderService,
) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		reminders: reminders,
	}
}

// RegisterRoutes registers document routes
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	documents := rg.Group("/documents")
	{
		documents.POST("", h.Upload)
		documents.GET("", h.List)
		documents.GET("/:id", h.Get)
		documents.POST("/:id/parse", h.Parse)
		documents.POST("/:id/send", h.SendForSignature)
	}

	signatures := rg.Group("/signatures")
	{
		signatures.GET("/pending", h.ListPendingSignatures)
		signatures.POST("/remind", h.SendReminders)
	}
}

// Upload receives a multipart document upload, gates it against the
// document quota and stores it
func (h *DocumentHandler) Upload(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "A 'file' form field is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "Could not read uploaded file")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.BadRequest(c, "Could not read uploaded file")
		return
	}

	name := c.PostForm("name")
	if name == "" {
		name = fileHeader.Filename
	}
	contentType := fileHeader.Header.Get("Content-Type")

	doc, err := h.documents.UploadDocument(c.Request.Context(), tenantID, appdocument.UploadDocumentRequest{
		Name:        name,
		ContentType: contentType,
		Content:     content,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, doc)
}

// List returns the tenant's documents
func (h *DocumentHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid list parameters")
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	docs, err := h.documents.ListDocuments(c.Request.Context(), tenantID, shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Search:   req.Search,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, docs)
}

// Get returns one document
func (h *DocumentHandler) Get(c *gin.Context) {
	tenantID, documentID, ok := h.tenantAndDocumentID(c)
	if !ok {
		return
	}

	doc, err := h.documents.GetDocument(c.Request.Context(), tenantID, documentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, doc)
}

// Parse runs AI extraction on a stored document
func (h *DocumentHandler) Parse(c *gin.Context) {
	tenantID, documentID, ok := h.tenantAndDocumentID(c)
	if !ok {
		return
	}

	doc, err := h.documents.ParseDocument(c.Request.Context(), tenantID, documentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, doc)
}

// SendForSignature routes a document to the e-signature provider
func (h *DocumentHandler) SendForSignature(c *gin.Context) {
	tenantID, documentID, ok := h.tenantAndDocumentID(c)
	if !ok {
		return
	}

	var req appdocument.SendEnvelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "At least one signer with a valid email is required")
		return
	}

	doc, err := h.documents.SendForSignature(c.Request.Context(), tenantID, documentID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, doc)
}

// ListPendingSignatures returns the tenant's open signature requests
func (h *DocumentHandler) ListPendingSignatures(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	sigs, err := h.documents.ListPendingSignatures(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sigs)
}

// SendReminders triggers a reminder sweep for the tenant's stale
// signature requests
func (h *DocumentHandler) SendReminders(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	result, err := h.reminders.SweepTenant(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

func (h *DocumentHandler) tenantAndDocumentID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return uuid.Nil, uuid.Nil, false
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid document ID")
		return uuid.Nil, uuid.Nil, false
	}
	documentID, err := uuid.Parse(idReq.ID)
	if err != nil {
		h.BadRequest(c, "Invalid document ID")
		return uuid.Nil, uuid.Nil, false
	}

	return tenantID, documentID, true
}

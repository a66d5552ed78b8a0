package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"actas/internal/audit"
	"actas/internal/document"
	"actas/internal/rbac"
	"actas/internal/session"
	"actas/internal/wizard"
)

// ListDocuments returns the documents visible to the caller, optionally
// filtered by status.
func (h *Handler) ListDocuments(c *gin.Context) {
	user, caps := h.actor(c)

	var statuses []document.Status
	if raw := c.Query("status"); raw != "" {
		status, err := document.ParseStatus(raw)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		statuses = append(statuses, status)
	}
	docs, err := h.store.ListDocuments(c.Request.Context(), statuses...)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, document.FilterVisible(docs, user, caps))
}

type createDocumentRequest struct {
	Title       string   `json:"title" binding:"required"`
	MeetingDate string   `json:"meeting_date"`
	SessionType string   `json:"session_type"`
	TemplateID  string   `json:"template_id"`
	Tags        []string `json:"tags"`
}

// CreateDocument creates a draft outside the wizard flow, e.g. for manual
// minutes.
func (h *Handler) CreateDocument(c *gin.Context) {
	user, ok := h.require(c, rbac.PermCreateDocuments)
	if !ok {
		return
	}
	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.store.CreateDocument(c.Request.Context(), &document.Document{
		Title:       req.Title,
		MeetingDate: req.MeetingDate,
		SessionType: req.SessionType,
		TemplateID:  req.TemplateID,
		Tags:        req.Tags,
		CreatedBy:   user.ID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.recorder.Record(c.Request.Context(), user, audit.ActionDocumentCreated, doc.ID, "created via api")
	c.JSON(http.StatusCreated, doc)
}

// GetDocument returns one document if the caller may see it.
func (h *Handler) GetDocument(c *gin.Context) {
	user, caps := h.actor(c)
	doc, err := h.store.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if doc == nil || !doc.VisibleTo(user, caps) {
		// Hidden documents are indistinguishable from missing ones.
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

type updateDocumentRequest struct {
	Title       string             `json:"title" binding:"required"`
	MeetingDate string             `json:"meeting_date"`
	SessionType string             `json:"session_type"`
	Sections    []document.Section `json:"sections"`
	Tags        []string           `json:"tags"`
}

// UpdateDocument saves draft content. Only drafts and rejected documents
// are editable; saving returns a rejected document to draft, clears the
// recorded rejection reason and never bumps the version.
func (h *Handler) UpdateDocument(c *gin.Context) {
	user, caps := h.actor(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "actor required"})
		return
	}
	var req updateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.store.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if doc.CreatedBy != user.ID && !caps.Has(rbac.PermEditDocuments) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to edit this document"})
		return
	}
	if doc.Status != document.StatusDraft && doc.Status != document.StatusRejected {
		c.JSON(http.StatusConflict, gin.H{"error": "only draft and rejected documents can be edited"})
		return
	}
	doc.Title = req.Title
	doc.MeetingDate = req.MeetingDate
	doc.SessionType = req.SessionType
	doc.Sections = req.Sections
	doc.Tags = req.Tags
	doc.Status = document.StatusDraft
	doc.RejectionReason = ""
	if err := h.store.UpdateDocument(c.Request.Context(), doc); err != nil {
		h.fail(c, err)
		return
	}
	h.recorder.Record(c.Request.Context(), user, audit.ActionDocumentUpdated, doc.ID, "draft saved")
	c.JSON(http.StatusOK, doc)
}

// DeleteDocument removes a document. Allowed for the creator and for
// editors.
func (h *Handler) DeleteDocument(c *gin.Context) {
	user, caps := h.actor(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "actor required"})
		return
	}
	doc, err := h.store.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if doc.CreatedBy != user.ID && !caps.Has(rbac.PermEditDocuments) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to delete this document"})
		return
	}
	if _, err := h.store.DeleteDocument(c.Request.Context(), doc.ID); err != nil {
		h.fail(c, err)
		return
	}
	h.recorder.Record(c.Request.Context(), user, audit.ActionDocumentDeleted, doc.ID, doc.Title)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type submitRequest struct {
	ApproverIDs []string `json:"approver_ids" binding:"required"`
}

// SubmitDocument sends a draft or rejected document into approval.
func (h *Handler) SubmitDocument(c *gin.Context) {
	user, caps := h.actor(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "actor required"})
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.store.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if doc.CreatedBy != user.ID && !caps.Has(rbac.PermEditDocuments) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to submit this document"})
		return
	}
	updated, err := h.lifecycle.Submit(c.Request.Context(), user, doc.ID, req.ApproverIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ApproveDocument records the caller's approval.
func (h *Handler) ApproveDocument(c *gin.Context) {
	user, ok := h.require(c, rbac.PermApproveDocuments)
	if !ok {
		return
	}
	result, err := h.lifecycle.Approve(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"document":         result.Document,
		"already_approved": result.AlreadyApproved,
		"fully_approved":   result.FullyApproved,
	})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// RejectDocument returns a pending document to its author.
func (h *Handler) RejectDocument(c *gin.Context) {
	user, ok := h.require(c, rbac.PermApproveDocuments)
	if !ok {
		return
	}
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.lifecycle.Reject(c.Request.Context(), user, c.Param("id"), req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

type publishRequest struct {
	Visibility     string   `json:"visibility" binding:"required"`
	AllowedUserIDs []string `json:"allowed_user_ids"`
}

// PublishDocument makes an approved document available to readers. Like
// submit, this is open to the creator and to editors.
func (h *Handler) PublishDocument(c *gin.Context) {
	user, caps := h.actor(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "actor required"})
		return
	}
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.store.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if doc.CreatedBy != user.ID && !caps.Has(rbac.PermEditDocuments) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to publish this document"})
		return
	}
	published, err := h.lifecycle.Publish(c.Request.Context(), user, doc.ID, document.Visibility(req.Visibility), req.AllowedUserIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, published)
}

// ResumeDocument prepares a draft or rejected document for editing. The
// response carries the state the wizard would open with; when autosaved
// progress newer than that exists, the progress is applied per the resume
// protocol (rewound to upload when a recording must be re-supplied) and the
// user-facing notice is included.
func (h *Handler) ResumeDocument(c *gin.Context) {
	user, caps := h.actor(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "actor required"})
		return
	}
	doc, err := h.store.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if doc == nil || !doc.VisibleTo(user, caps) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if doc.CreatedBy != user.ID && !caps.Has(rbac.PermEditDocuments) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to edit this document"})
		return
	}

	w, err := wizard.Open(c.Request.Context(), wizard.Deps{
		Store:    h.store,
		Sessions: h.sessions,
		Recorder: h.recorder,
	}, user, doc.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resume, err := w.CheckResume(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if !resume.Prompt {
		c.JSON(http.StatusOK, gin.H{"resumable": false, "state": w.State()})
		return
	}
	restored, notice := session.Apply(resume.Snapshot)
	restored.DocumentID = doc.ID
	c.JSON(http.StatusOK, gin.H{
		"resumable": true,
		"state":     restored,
		"notice":    notice,
	})
}

// PendingApprovals lists documents waiting for the caller's sign-off.
func (h *Handler) PendingApprovals(c *gin.Context) {
	user, ok := h.require(c, rbac.PermApproveDocuments)
	if !ok {
		return
	}
	docs, err := h.store.ListDocumentsPendingApprovalBy(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// DocumentAudit returns the audit trail of one document.
func (h *Handler) DocumentAudit(c *gin.Context) {
	if _, ok := h.require(c, rbac.PermViewAuditLog); !ok {
		return
	}
	entries, err := h.store.ListAuditEntriesForDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"actas/internal/rbac"
	"actas/internal/session"
)

// ListAudit returns the audit log, most recent first. The limit query
// parameter caps the result; zero means everything.
func (h *Handler) ListAudit(c *gin.Context) {
	if _, ok := h.require(c, rbac.PermViewAuditLog); !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}
	entries, err := h.store.ListAuditEntries(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Stats returns document counts grouped by status.
func (h *Handler) Stats(c *gin.Context) {
	if _, ok := h.require(c, rbac.PermViewMetrics); !ok {
		return
	}
	stats, err := h.store.DocumentStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListSessions returns every wizard snapshot the caller has stored, most
// recently saved first.
func (h *Handler) ListSessions(c *gin.Context) {
	user, _ := h.actor(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "actor required"})
		return
	}
	snaps, err := h.sessions.List(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snaps)
}

// GetSession returns the wizard progress the caller stored for one
// document, if any.
func (h *Handler) GetSession(c *gin.Context) {
	user, _ := h.actor(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "actor required"})
		return
	}
	snap, found, err := h.sessions.Load(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no stored session"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SaveSession stores the caller's wizard progress under the snapshot's
// document id, replacing any previous snapshot for that document.
func (h *Handler) SaveSession(c *gin.Context) {
	user, _ := h.actor(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "actor required"})
		return
	}
	var snap session.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.sessions.Save(c.Request.Context(), user.ID, snap); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// ClearSession discards the wizard progress the caller stored for one
// document.
func (h *Handler) ClearSession(c *gin.Context) {
	user, _ := h.actor(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "actor required"})
		return
	}
	if _, err := h.sessions.Clear(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

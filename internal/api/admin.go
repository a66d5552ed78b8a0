package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"actas/internal/audit"
	"actas/internal/rbac"
	"actas/internal/template"
)

// ListTemplates returns all document templates.
func (h *Handler) ListTemplates(c *gin.Context) {
	user, _ := h.actor(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "actor required"})
		return
	}
	templates, err := h.store.ListTemplates(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

// CreateTemplate stores a new custom template.
func (h *Handler) CreateTemplate(c *gin.Context) {
	user, ok := h.require(c, rbac.PermManageTemplates)
	if !ok {
		return
	}
	var tmpl template.Template
	if err := c.ShouldBindJSON(&tmpl); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tmpl.Builtin = false
	created, err := h.store.CreateTemplate(c.Request.Context(), &tmpl)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.recorder.Record(c.Request.Context(), user, audit.ActionTemplateCreated, "", created.ID)
	c.JSON(http.StatusCreated, created)
}

// UpdateTemplate replaces a template's content.
func (h *Handler) UpdateTemplate(c *gin.Context) {
	user, ok := h.require(c, rbac.PermManageTemplates)
	if !ok {
		return
	}
	var tmpl template.Template
	if err := c.ShouldBindJSON(&tmpl); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tmpl.ID = c.Param("id")
	if err := h.store.UpdateTemplate(c.Request.Context(), &tmpl); err != nil {
		h.fail(c, err)
		return
	}
	h.recorder.Record(c.Request.Context(), user, audit.ActionTemplateUpdated, "", tmpl.ID)
	c.JSON(http.StatusOK, tmpl)
}

// DeleteTemplate removes a custom template. Builtin templates are refused.
func (h *Handler) DeleteTemplate(c *gin.Context) {
	user, ok := h.require(c, rbac.PermManageTemplates)
	if !ok {
		return
	}
	removed, err := h.store.DeleteTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}
	h.recorder.Record(c.Request.Context(), user, audit.ActionTemplateDeleted, "", c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ListUsers returns all users.
func (h *Handler) ListUsers(c *gin.Context) {
	if _, ok := h.require(c, rbac.PermManageUsersAndRoles); !ok {
		return
	}
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

type userRequest struct {
	Name        string   `json:"name" binding:"required"`
	Email       string   `json:"email" binding:"required"`
	RoleIDs     []string `json:"role_ids"`
	NationalID  string   `json:"national_id"`
	Title       string   `json:"title"`
	Institution string   `json:"institution"`
}

// CreateUser registers a new user.
func (h *Handler) CreateUser(c *gin.Context) {
	actor, ok := h.require(c, rbac.PermManageUsersAndRoles)
	if !ok {
		return
	}
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.store.CreateUser(c.Request.Context(), &rbac.User{
		Name:        req.Name,
		Email:       req.Email,
		RoleIDs:     req.RoleIDs,
		NationalID:  req.NationalID,
		Title:       req.Title,
		Institution: req.Institution,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.recorder.Record(c.Request.Context(), actor, audit.ActionUserCreated, "", created.ID)
	c.JSON(http.StatusCreated, created)
}

// GetUser returns one user.
func (h *Handler) GetUser(c *gin.Context) {
	if _, ok := h.require(c, rbac.PermManageUsersAndRoles); !ok {
		return
	}
	user, err := h.store.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser replaces a user's profile and role assignments.
func (h *Handler) UpdateUser(c *gin.Context) {
	actor, ok := h.require(c, rbac.PermManageUsersAndRoles)
	if !ok {
		return
	}
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user := &rbac.User{
		ID:          c.Param("id"),
		Name:        req.Name,
		Email:       req.Email,
		RoleIDs:     req.RoleIDs,
		NationalID:  req.NationalID,
		Title:       req.Title,
		Institution: req.Institution,
	}
	if err := h.store.UpdateUser(c.Request.Context(), user); err != nil {
		h.fail(c, err)
		return
	}
	h.recorder.Record(c.Request.Context(), actor, audit.ActionUserUpdated, "", user.ID)
	c.JSON(http.StatusOK, user)
}

// DeleteUser removes a user.
func (h *Handler) DeleteUser(c *gin.Context) {
	actor, ok := h.require(c, rbac.PermManageUsersAndRoles)
	if !ok {
		return
	}
	removed, err := h.store.DeleteUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	h.recorder.Record(c.Request.Context(), actor, audit.ActionUserDeleted, "", c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ListRoles returns all roles with their permissions.
func (h *Handler) ListRoles(c *gin.Context) {
	if _, ok := h.require(c, rbac.PermManageUsersAndRoles); !ok {
		return
	}
	records, err := h.store.ListRoles(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]gin.H, len(records))
	for i, record := range records {
		out[i] = gin.H{
			"id":          record.ID,
			"name":        record.Name,
			"permissions": record.Permissions.Names(),
			"builtin":     record.Builtin,
		}
	}
	c.JSON(http.StatusOK, out)
}

type roleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Permissions []string `json:"permissions"`
}

func (r roleRequest) capabilities(c *gin.Context) (rbac.Capabilities, bool) {
	var caps rbac.Capabilities
	for _, name := range r.Permissions {
		perm, ok := rbac.ParsePermission(name)
		if !ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown permission " + name})
			return 0, false
		}
		caps |= rbac.Capabilities(perm)
	}
	return caps, true
}

// CreateRole stores a new role.
func (h *Handler) CreateRole(c *gin.Context) {
	actor, ok := h.require(c, rbac.PermManageUsersAndRoles)
	if !ok {
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	caps, ok := req.capabilities(c)
	if !ok {
		return
	}
	created, err := h.store.CreateRole(c.Request.Context(), &rbac.Role{Name: req.Name, Permissions: caps})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.recorder.Record(c.Request.Context(), actor, audit.ActionRoleCreated, "", created.ID)
	c.JSON(http.StatusCreated, gin.H{
		"id":          created.ID,
		"name":        created.Name,
		"permissions": created.Permissions.Names(),
	})
}

// UpdateRole replaces a role's name and permission set.
func (h *Handler) UpdateRole(c *gin.Context) {
	actor, ok := h.require(c, rbac.PermManageUsersAndRoles)
	if !ok {
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	caps, ok := req.capabilities(c)
	if !ok {
		return
	}
	role := &rbac.Role{ID: c.Param("id"), Name: req.Name, Permissions: caps}
	if err := h.store.UpdateRole(c.Request.Context(), role); err != nil {
		h.fail(c, err)
		return
	}
	h.recorder.Record(c.Request.Context(), actor, audit.ActionRoleUpdated, "", role.ID)
	c.JSON(http.StatusOK, gin.H{
		"id":          role.ID,
		"name":        role.Name,
		"permissions": role.Permissions.Names(),
	})
}

// DeleteRole removes a role. Refused while any user still holds it.
func (h *Handler) DeleteRole(c *gin.Context) {
	actor, ok := h.require(c, rbac.PermManageUsersAndRoles)
	if !ok {
		return
	}
	removed, err := h.store.DeleteRole(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "role not found"})
		return
	}
	h.recorder.Record(c.Request.Context(), actor, audit.ActionRoleDeleted, "", c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

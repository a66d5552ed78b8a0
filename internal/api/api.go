package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"actas/internal/audit"
	"actas/internal/config"
	"actas/internal/lifecycle"
	"actas/internal/logging"
	"actas/internal/rbac"
	"actas/internal/services"
	"actas/internal/session"
	"actas/internal/store"
)

// ActorHeader names the authenticated user for a request. Authentication
// itself happens at the reverse proxy; the API trusts this header plus the
// optional bearer token.
const ActorHeader = "X-Actas-User"

const (
	ctxActor        = "actas.actor"
	ctxCapabilities = "actas.capabilities"
)

// Handler serves the REST API.
type Handler struct {
	cfg       *config.Config
	store     *store.Store
	lifecycle *lifecycle.Manager
	sessions  *session.Manager
	recorder  *audit.Recorder
	logger    *slog.Logger
}

// NewHandler wires the API over its dependencies.
func NewHandler(cfg *config.Config, st *store.Store, lm *lifecycle.Manager, sessions *session.Manager, recorder *audit.Recorder, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		cfg:       cfg,
		store:     st,
		lifecycle: lm,
		sessions:  sessions,
		recorder:  recorder,
		logger:    logging.WithComponent(logger, "api"),
	}
}

// Router builds the gin engine with all routes registered.
func (h *Handler) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		// Correlation id for log lines emitted while handling this request.
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), uuid.NewString()))
		c.Next()
	})

	router.GET("/healthz", h.Health)

	v1 := router.Group("/api/v1")
	v1.Use(h.authenticate)
	{
		v1.GET("/me", h.Me)

		v1.GET("/documents", h.ListDocuments)
		v1.POST("/documents", h.CreateDocument)
		v1.GET("/documents/:id", h.GetDocument)
		v1.PUT("/documents/:id", h.UpdateDocument)
		v1.DELETE("/documents/:id", h.DeleteDocument)
		v1.POST("/documents/:id/submit", h.SubmitDocument)
		v1.POST("/documents/:id/approve", h.ApproveDocument)
		v1.POST("/documents/:id/reject", h.RejectDocument)
		v1.POST("/documents/:id/publish", h.PublishDocument)
		v1.GET("/documents/:id/resume", h.ResumeDocument)
		v1.GET("/documents/:id/audit", h.DocumentAudit)
		v1.GET("/approvals/pending", h.PendingApprovals)

		v1.GET("/templates", h.ListTemplates)
		v1.POST("/templates", h.CreateTemplate)
		v1.PUT("/templates/:id", h.UpdateTemplate)
		v1.DELETE("/templates/:id", h.DeleteTemplate)

		v1.GET("/users", h.ListUsers)
		v1.POST("/users", h.CreateUser)
		v1.GET("/users/:id", h.GetUser)
		v1.PUT("/users/:id", h.UpdateUser)
		v1.DELETE("/users/:id", h.DeleteUser)

		v1.GET("/roles", h.ListRoles)
		v1.POST("/roles", h.CreateRole)
		v1.PUT("/roles/:id", h.UpdateRole)
		v1.DELETE("/roles/:id", h.DeleteRole)

		v1.GET("/audit", h.ListAudit)
		v1.GET("/stats", h.Stats)

		v1.GET("/session", h.ListSessions)
		v1.PUT("/session", h.SaveSession)
		v1.GET("/session/:id", h.GetSession)
		v1.DELETE("/session/:id", h.ClearSession)
	}
	return router
}

// authenticate checks the optional bearer token and resolves the actor and
// its capabilities from the actor header. Requests without an actor proceed
// anonymously; handlers decide what anonymous callers may see.
func (h *Handler) authenticate(c *gin.Context) {
	if token := h.cfg.Paths.APIToken; token != "" {
		authz := c.GetHeader("Authorization")
		if authz != "Bearer "+token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
			return
		}
	}

	userID := strings.TrimSpace(c.GetHeader(ActorHeader))
	if userID == "" {
		c.Next()
		return
	}
	user, err := h.store.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		c.Abort()
		return
	}
	if user == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}
	roles, err := h.store.Roles(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		c.Abort()
		return
	}
	c.Set(ctxActor, user)
	c.Set(ctxCapabilities, rbac.Resolve(user, roles))
	c.Request = c.Request.WithContext(services.WithActorID(c.Request.Context(), user.ID))
	c.Next()
}

func (h *Handler) actor(c *gin.Context) (*rbac.User, rbac.Capabilities) {
	var (
		user *rbac.User
		caps rbac.Capabilities
	)
	if value, ok := c.Get(ctxActor); ok {
		user, _ = value.(*rbac.User)
	}
	if value, ok := c.Get(ctxCapabilities); ok {
		caps, _ = value.(rbac.Capabilities)
	}
	return user, caps
}

// require rejects the request unless the actor holds the permission. It
// reports whether the caller may proceed.
func (h *Handler) require(c *gin.Context, perm rbac.Permission) (*rbac.User, bool) {
	user, caps := h.actor(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "actor required"})
		return nil, false
	}
	if !caps.Has(perm) {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing permission " + perm.String()})
		return nil, false
	}
	return user, true
}

// fail maps service errors onto HTTP statuses.
func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrExternalService), errors.Is(err, services.ErrTransient):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		args := []any{
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()),
		}
		if id, ok := services.RequestIDFromContext(c.Request.Context()); ok {
			args = append(args, slog.String("request_id", id))
		}
		if actorID, ok := services.ActorIDFromContext(c.Request.Context()); ok {
			args = append(args, slog.String("actor_id", actorID))
		}
		h.logger.Error("request failed", args...)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// Health answers liveness probes and checks the database.
func (h *Handler) Health(c *gin.Context) {
	if err := h.store.CheckHealth(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Me describes the authenticated actor and its resolved capabilities.
func (h *Handler) Me(c *gin.Context) {
	user, caps := h.actor(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "actor required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":           user.ID,
		"name":         user.Name,
		"email":        user.Email,
		"role_ids":     user.RoleIDs,
		"capabilities": caps.Names(),
	})
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nicepick/backend/internal/admin"
	"github.com/nicepick/backend/internal/region"
	"go.uber.org/zap"
)

// ReleaseWriter mutates release records in one region's backend
type ReleaseWriter interface {
	Insert(ctx context.Context, row admin.ReleaseRow) error
	SetActive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// UserWriter patches user profiles in one region's backend
type UserWriter interface {
	UpdateProfile(ctx context.Context, id, tier, status string) error
}

// Reconcilers bundles the per-entity cross-region reconcilers
type Reconcilers struct {
	Users       *admin.Reconciler[admin.UserRow]
	Orders      *admin.Reconciler[admin.OrderRow]
	Payments    *admin.Reconciler[admin.PaymentRow]
	Releases    *admin.Reconciler[admin.ReleaseRow]
	DeviceStats *admin.Reconciler[admin.DeviceStatRow]
}

// AdminHandler serves the admin API: reconciled listings plus the
// region-targeted mutations.
type AdminHandler struct {
	BaseHandler
	reconcilers Reconcilers
	regions     func() region.Config
	releases    *ReleaseMutator
	users       *UserMutator
	logger      *zap.Logger
}

// AdminHandlerOption is a functional option for AdminHandler
type AdminHandlerOption func(*AdminHandler)

// WithAdminLogger sets a custom logger for the handler
func WithAdminLogger(logger *zap.Logger) AdminHandlerOption {
	return func(h *AdminHandler) {
		h.logger = logger
	}
}

// NewAdminHandler creates the admin handler. regions is called per
// request so availability changes are picked up without a restart.
func NewAdminHandler(rec Reconcilers, regions func() region.Config, releases *ReleaseMutator, users *UserMutator, opts ...AdminHandlerOption) *AdminHandler {
	h := &AdminHandler{
		reconcilers: rec,
		regions:     regions,
		releases:    releases,
		users:       users,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers the admin routes on the given group
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users", listEndpoint(&h.BaseHandler, h.reconcilers.Users, h.regions))
	rg.GET("/orders", listEndpoint(&h.BaseHandler, h.reconcilers.Orders, h.regions))
	rg.GET("/payments", listEndpoint(&h.BaseHandler, h.reconcilers.Payments, h.regions))
	rg.GET("/releases", listEndpoint(&h.BaseHandler, h.reconcilers.Releases, h.regions))
	rg.GET("/device-stats", listEndpoint(&h.BaseHandler, h.reconcilers.DeviceStats, h.regions))
	rg.GET("/analytics", h.Analytics)

	rg.POST("/releases/upload", h.UploadRelease)
	rg.POST("/releases/active", h.ActivateRelease)
	rg.GET("/releases/:id/download", h.DownloadRelease)
	rg.DELETE("/releases/:id", h.DeleteRelease)

	rg.PATCH("/users/:id", h.UpdateUser)
}

// HealthHandler serves liveness probes outside the authenticated group
type HealthHandler struct {
	BaseHandler
	startedAt time.Time
}

// NewHealthHandler creates a health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{startedAt: time.Now()}
}

// RegisterRoutes registers the health route
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}

// Health reports process liveness
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}

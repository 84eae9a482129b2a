package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/nicepick/backend/internal/domain/shared"
	"github.com/nicepick/backend/internal/region"
	"go.uber.org/zap"
)

// UserMutator routes user profile patches to the targeted region's
// backend. Mutations are never proxied.
type UserMutator struct {
	cn     UserWriter
	intl   UserWriter
	logger *zap.Logger
}

// NewUserMutator creates a user mutator
func NewUserMutator(cn UserWriter, intl UserWriter, logger *zap.Logger) *UserMutator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserMutator{cn: cn, intl: intl, logger: logger}
}

func (m *UserMutator) writer(r region.Region) UserWriter {
	if r == region.CN {
		return m.cn
	}
	return m.intl
}

type updateUserRequest struct {
	Region string `json:"region" binding:"required"`
	Tier   string `json:"tier"`
	Status string `json:"status"`
}

// UpdateUser patches tier and/or status on one user in one region
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "region is required")
		return
	}
	reg, err := parseMutationRegion(req.Region)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if req.Tier == "" && req.Status == "" {
		h.BadRequest(c, "at least one of tier or status is required")
		return
	}

	writer := h.users.writer(reg)
	if writer == nil {
		h.HandleError(c, shared.ErrRegionUnavailable)
		return
	}

	id := c.Param("id")
	if err := writer.UpdateProfile(c.Request.Context(), id, req.Tier, req.Status); err != nil {
		h.HandleError(c, err)
		return
	}

	h.users.logger.Info("user profile updated",
		zap.String("id", id),
		zap.String("region", string(reg)),
	)
	h.Success(c, gin.H{"id": id, "region": reg})
}

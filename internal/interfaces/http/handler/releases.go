package handler

import (
	"context"
	"io"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nicepick/backend/internal/admin"
	"github.com/nicepick/backend/internal/domain/shared"
	"github.com/nicepick/backend/internal/infrastructure/storage"
	"github.com/nicepick/backend/internal/region"
	"go.uber.org/zap"
)

// maxArtifactSize caps release artifact uploads
const maxArtifactSize = 200 << 20 // 200MB

// ReleaseFinder looks up a single release row, used to locate the
// stored artifact before deletion
type ReleaseFinder interface {
	FindByID(ctx context.Context, id string) (*admin.ReleaseRow, error)
}

// ReleaseMutator routes release mutations to the targeted region's
// backend. Writers are nil for regions this deployment has no direct
// credentials for; mutations are never proxied.
type ReleaseMutator struct {
	cn         ReleaseWriter
	intl       ReleaseWriter
	intlFinder ReleaseFinder
	artifacts  storage.ObjectStorage
	logger     *zap.Logger
}

// NewReleaseMutator creates a release mutator
func NewReleaseMutator(cn ReleaseWriter, intl ReleaseWriter, intlFinder ReleaseFinder, artifacts storage.ObjectStorage, logger *zap.Logger) *ReleaseMutator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if artifacts == nil {
		artifacts = storage.NewNoopObjectStorage()
	}
	return &ReleaseMutator{cn: cn, intl: intl, intlFinder: intlFinder, artifacts: artifacts, logger: logger}
}

func (m *ReleaseMutator) writer(r region.Region) ReleaseWriter {
	if r == region.CN {
		return m.cn
	}
	return m.intl
}

// parseMutationRegion parses a region value that must name exactly one
// region; "all" is not a mutation target.
func parseMutationRegion(raw string) (region.Region, error) {
	r := region.Region(raw)
	if !r.Valid() {
		return "", shared.NewDomainError("INVALID_INPUT", "region must be \"cn\" or \"intl\"")
	}
	return r, nil
}

// UploadRelease creates a release in one region. INTL uploads stream
// the artifact to object storage first; CN releases reference an
// externally-hosted artifact by key.
func (h *AdminHandler) UploadRelease(c *gin.Context) {
	reg, err := parseMutationRegion(c.PostForm("region"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	version := c.PostForm("version")
	platform := c.PostForm("platform")
	if version == "" || platform == "" {
		h.BadRequest(c, "version and platform are required")
		return
	}
	channel := c.PostForm("channel")
	if channel == "" {
		channel = "stable"
	}

	writer := h.releases.writer(reg)
	if writer == nil {
		h.HandleError(c, shared.ErrRegionUnavailable)
		return
	}

	id := uuid.New().String()
	fileKey := c.PostForm("fileKey")

	if reg == region.INTL {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			h.BadRequest(c, "artifact file is required for intl releases")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxArtifactSize+1))
		if err != nil {
			h.InternalError(c, "failed to read artifact")
			return
		}
		if len(data) > maxArtifactSize {
			h.BadRequest(c, "artifact exceeds maximum size")
			return
		}

		fileKey = "releases/" + id + "/" + path.Base(header.Filename)
		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if err := h.releases.artifacts.Upload(c.Request.Context(), fileKey, data, contentType); err != nil {
			h.releases.logger.Error("artifact upload failed",
				zap.String("file_key", fileKey),
				zap.Error(err),
			)
			h.HandleError(c, err)
			return
		}
	} else if fileKey == "" {
		h.BadRequest(c, "fileKey is required for cn releases")
		return
	}

	now := time.Now().UTC()
	row := admin.ReleaseRow{
		ID:        id,
		Region:    reg,
		CreatedAt: &now,
		Version:   version,
		Platform:  platform,
		Channel:   channel,
		Active:    false,
		FileKey:   fileKey,
		Notes:     c.PostForm("notes"),
	}
	if err := writer.Insert(c.Request.Context(), row); err != nil {
		h.HandleError(c, err)
		return
	}

	h.releases.logger.Info("release uploaded",
		zap.String("id", id),
		zap.String("region", string(reg)),
		zap.String("version", version),
		zap.String("platform", platform),
	)
	h.Created(c, row)
}

// DownloadRelease returns a presigned artifact URL. Only INTL artifacts
// live in the object store; CN fileKeys reference external hosting and
// are returned as-is for the dashboard to resolve.
func (h *AdminHandler) DownloadRelease(c *gin.Context) {
	reg, err := parseMutationRegion(c.Query("region"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if reg != region.INTL {
		h.BadRequest(c, "downloads are served from intl object storage only")
		return
	}
	if h.releases.intlFinder == nil {
		h.HandleError(c, shared.ErrRegionUnavailable)
		return
	}

	row, err := h.releases.intlFinder.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if row.FileKey == "" {
		h.NotFound(c, "release has no stored artifact")
		return
	}

	url, expiresAt, err := h.releases.artifacts.PresignDownloadURL(c.Request.Context(), row.FileKey, 0)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"id": row.ID, "url": url, "expiresAt": expiresAt})
}

type activateReleaseRequest struct {
	ID     string `json:"id" binding:"required"`
	Region string `json:"region" binding:"required"`
}

// ActivateRelease makes one release the active one for its platform
// and channel, deactivating its siblings in the same region.
func (h *AdminHandler) ActivateRelease(c *gin.Context) {
	var req activateReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "id and region are required")
		return
	}
	reg, err := parseMutationRegion(req.Region)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	writer := h.releases.writer(reg)
	if writer == nil {
		h.HandleError(c, shared.ErrRegionUnavailable)
		return
	}
	if err := writer.SetActive(c.Request.Context(), req.ID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"id": req.ID, "region": reg, "active": true})
}

// DeleteRelease removes a release. INTL deletions also remove the
// stored artifact; a storage failure is logged but does not block the
// row deletion.
func (h *AdminHandler) DeleteRelease(c *gin.Context) {
	reg, err := parseMutationRegion(c.Query("region"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	id := c.Param("id")

	writer := h.releases.writer(reg)
	if writer == nil {
		h.HandleError(c, shared.ErrRegionUnavailable)
		return
	}

	if reg == region.INTL && h.releases.intlFinder != nil {
		if row, err := h.releases.intlFinder.FindByID(c.Request.Context(), id); err == nil && row.FileKey != "" {
			if err := h.releases.artifacts.Delete(c.Request.Context(), row.FileKey); err != nil {
				h.releases.logger.Warn("artifact delete failed",
					zap.String("file_key", row.FileKey),
					zap.Error(err),
				)
			}
		}
	}

	if err := writer.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"id": id, "region": reg, "deleted": true})
}

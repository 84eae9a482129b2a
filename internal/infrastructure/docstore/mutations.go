package docstore

import (
	"context"
	"time"

	"github.com/nicepick/backend/internal/admin"
	"github.com/nicepick/backend/internal/domain/shared"
)

// ReleaseStore performs the CN-region release mutations
type ReleaseStore struct {
	c *Client
}

// NewReleaseStore creates a release store over the document client
func NewReleaseStore(c *Client) *ReleaseStore {
	return &ReleaseStore{c: c}
}

// Insert stores a new release document
func (s *ReleaseStore) Insert(ctx context.Context, row admin.ReleaseRow) error {
	createdAt := time.Now().UTC()
	if row.CreatedAt != nil {
		createdAt = *row.CreatedAt
	}
	d := doc{
		"id":        row.ID,
		"version":   row.Version,
		"platform":  row.Platform,
		"channel":   row.Channel,
		"active":    row.Active,
		"fileKey":   row.FileKey,
		"notes":     row.Notes,
		"createdAt": createdAt.Format(time.RFC3339),
	}
	return s.c.Collection(CollectionReleases).Insert(ctx, row.ID, d, createdAt)
}

// SetActive marks one release active and deactivates its siblings on
// the same platform and channel.
func (s *ReleaseStore) SetActive(ctx context.Context, id string) error {
	col := s.c.Collection(CollectionReleases)
	target, err := col.Get(ctx, id)
	if err != nil {
		return err
	}
	if target == nil {
		return shared.ErrNotFound
	}

	platform := docStr(target, "platform")
	channel := docStr(target, "channel")

	docs, err := col.Scan(ctx, ScanCap)
	if err != nil {
		return err
	}
	for _, d := range docs {
		did := docStr(d, "_id", "id")
		if did == "" || did == id {
			continue
		}
		if docStr(d, "platform") == platform && docStr(d, "channel") == channel && docBool(d, "active", "isActive") {
			if err := col.Update(ctx, did, map[string]any{"active": false}); err != nil {
				return err
			}
		}
	}
	return col.Update(ctx, id, map[string]any{"active": true})
}

// Delete removes a release document
func (s *ReleaseStore) Delete(ctx context.Context, id string) error {
	col := s.c.Collection(CollectionReleases)
	target, err := col.Get(ctx, id)
	if err != nil {
		return err
	}
	if target == nil {
		return shared.ErrNotFound
	}
	return col.Delete(ctx, id)
}

// UserStore performs the CN-region user mutations
type UserStore struct {
	c *Client
}

// NewUserStore creates a user store over the document client
func NewUserStore(c *Client) *UserStore {
	return &UserStore{c: c}
}

// UpdateProfile patches tier and/or status on one user document
func (s *UserStore) UpdateProfile(ctx context.Context, id, tier, status string) error {
	fields := map[string]any{}
	if tier != "" {
		fields["tier"] = tier
	}
	if status != "" {
		fields["status"] = status
	}
	if len(fields) == 0 {
		return nil
	}
	col := s.c.Collection(CollectionUsers)
	target, err := col.Get(ctx, id)
	if err != nil {
		return err
	}
	if target == nil {
		return shared.ErrNotFound
	}
	return col.Update(ctx, id, fields)
}

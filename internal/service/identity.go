package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"telemedia/internal/models"
)

// IdentityStore is the slice of the database the resolver needs.
type IdentityStore interface {
	GetMediaRecordByFileUniqueID(ctx context.Context, fileUniqueID string) (*models.MediaRecord, error)
	GetMediaRecordByContentHash(ctx context.Context, hash string) (*models.MediaRecord, error)
}

// ResolvedIdentity pairs the resolution outcome with the matched record, if
// any. Existing is nil exactly when Resolution is new.
type ResolvedIdentity struct {
	Resolution models.Resolution
	Existing   *models.MediaRecord
}

// Resolver decides whether an inbound asset is new or a duplicate. The
// platform file unique ID is the primary signal; the content hash catches
// re-uploads that arrive under a rotated identifier.
type Resolver struct {
	store IdentityStore
}

func NewResolver(store IdentityStore) *Resolver {
	return &Resolver{store: store}
}

// HashBytes computes the hex-encoded SHA-256 of the raw asset bytes.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Resolve checks the file unique ID first, then the content hash. The hash
// lookup only runs when the ID lookup misses, so the common resend case costs
// one indexed query.
func (r *Resolver) Resolve(ctx context.Context, fileUniqueID, contentHash string) (*ResolvedIdentity, error) {
	existing, err := r.store.GetMediaRecordByFileUniqueID(ctx, fileUniqueID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up by file unique ID: %w", err)
	}
	if existing != nil {
		return &ResolvedIdentity{
			Resolution: models.ResolutionDuplicateByID,
			Existing:   existing,
		}, nil
	}

	if contentHash != "" {
		existing, err = r.store.GetMediaRecordByContentHash(ctx, contentHash)
		if err != nil {
			return nil, fmt.Errorf("failed to look up by content hash: %w", err)
		}
		if existing != nil {
			return &ResolvedIdentity{
				Resolution: models.ResolutionDuplicateByHash,
				Existing:   existing,
			}, nil
		}
	}

	return &ResolvedIdentity{Resolution: models.ResolutionNew}, nil
}

package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"telemedia/internal/models"
)

// Buckets maps media kinds onto storage buckets.
type Buckets struct {
	Video   string
	Picture string
	Generic string
}

// Location identifies stored bytes and their derived public address.
type Location struct {
	Bucket    string
	Object    string
	PublicURL string
}

// Router places, moves, and removes objects in kind-appropriate buckets.
type Router interface {
	BucketFor(kind models.MediaKind) string
	Place(ctx context.Context, kind models.MediaKind, name string, data []byte, contentType string) (*Location, error)
	Remove(ctx context.Context, bucket, name string) error
	Move(ctx context.Context, kind models.MediaKind, fromBucket, fromName string) (*Location, error)
	Exists(ctx context.Context, bucket, name string) (bool, error)
}

type router struct {
	client  Client
	buckets Buckets
}

func NewRouter(client Client, buckets Buckets) Router {
	return &router{client: client, buckets: buckets}
}

// BucketFor is a pure function of the media kind: videos and photos get
// their own buckets, everything else, animations and stickers included,
// lands in the generic one.
func (r *router) BucketFor(kind models.MediaKind) string {
	switch kind {
	case models.MediaKindVideo:
		return r.buckets.Video
	case models.MediaKindPhoto:
		return r.buckets.Picture
	default:
		return r.buckets.Generic
	}
}

// Place uploads bytes into the kind-appropriate bucket. When the base name
// is already taken, a timestamp suffix disambiguates instead of overwriting.
func (r *router) Place(ctx context.Context, kind models.MediaKind, name string, data []byte, contentType string) (*Location, error) {
	bucket := r.BucketFor(kind)

	finalName, err := r.collisionFreeName(ctx, bucket, name)
	if err != nil {
		return nil, err
	}

	if err := r.client.Put(ctx, bucket, finalName, data, contentType); err != nil {
		return nil, fmt.Errorf("failed to place object: %w", err)
	}

	return &Location{
		Bucket:    bucket,
		Object:    finalName,
		PublicURL: r.client.ObjectURL(bucket, finalName),
	}, nil
}

func (r *router) Remove(ctx context.Context, bucket, name string) error {
	return r.client.Delete(ctx, bucket, name)
}

// Move relocates an object into the bucket its kind demands. The destination
// upload happens before the source delete; if the upload fails nothing has
// changed and the caller's location fields stay valid.
func (r *router) Move(ctx context.Context, kind models.MediaKind, fromBucket, fromName string) (*Location, error) {
	toBucket := r.BucketFor(kind)
	if toBucket == fromBucket {
		return &Location{
			Bucket:    fromBucket,
			Object:    fromName,
			PublicURL: r.client.ObjectURL(fromBucket, fromName),
		}, nil
	}

	data, err := r.client.Get(ctx, fromBucket, fromName)
	if err != nil {
		return nil, fmt.Errorf("failed to read source object: %w", err)
	}

	toName, err := r.collisionFreeName(ctx, toBucket, fromName)
	if err != nil {
		return nil, err
	}

	if err := r.client.Put(ctx, toBucket, toName, data, ""); err != nil {
		return nil, fmt.Errorf("failed to upload to destination bucket: %w", err)
	}

	// Source delete only after the upload confirmed. If the delete fails the
	// source object still exists, so the caller's unchanged record remains
	// valid.
	if err := r.client.Delete(ctx, fromBucket, fromName); err != nil {
		return nil, fmt.Errorf("uploaded copy but failed to delete source object: %w", err)
	}

	return &Location{
		Bucket:    toBucket,
		Object:    toName,
		PublicURL: r.client.ObjectURL(toBucket, toName),
	}, nil
}

func (r *router) Exists(ctx context.Context, bucket, name string) (bool, error) {
	return r.client.Stat(ctx, bucket, name)
}

// collisionFreeName suffixes the base name with a nanosecond timestamp when
// an object with the same name already exists in the bucket.
func (r *router) collisionFreeName(ctx context.Context, bucket, name string) (string, error) {
	exists, err := r.client.Stat(ctx, bucket, name)
	if err != nil {
		return "", fmt.Errorf("failed to check for name collision: %w", err)
	}
	if !exists {
		return name, nil
	}

	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%d%s", base, time.Now().UnixNano(), ext), nil
}

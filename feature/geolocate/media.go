package geolocate

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"geofuse/core/storage"
	"geofuse/feature/geolocate/models"

	"github.com/minio/minio-go/v7"
)

// Fetcher materializes record media that lives in object storage so the
// file-based resolvers (EXIF, ffprobe, frame sampling) can work on it.
// Paths of the form "minio://bucket/key" (or "s3://bucket/key") are
// downloaded to a temp file and the record path is rewritten; plain
// local paths pass through untouched.
type Fetcher struct {
	client storage.Client
	// bucket is the default bucket for "minio:///key" style paths
	// without an explicit bucket segment.
	bucket string
}

// NewFetcher creates a media fetcher over the platform object store.
func NewFetcher(client storage.Client, bucket string) *Fetcher {
	return &Fetcher{client: client, bucket: bucket}
}

// objectRef splits an object-storage URL into bucket and key. ok is
// false for paths that are not object references.
func (f *Fetcher) objectRef(p string) (bucket, key string, ok bool) {
	var rest string
	switch {
	case strings.HasPrefix(p, "minio://"):
		rest = strings.TrimPrefix(p, "minio://")
	case strings.HasPrefix(p, "s3://"):
		rest = strings.TrimPrefix(p, "s3://")
	default:
		return "", "", false
	}

	bucket, key, found := strings.Cut(rest, "/")
	if !found || key == "" {
		return "", "", false
	}
	if bucket == "" {
		bucket = f.bucket
	}
	return bucket, key, bucket != ""
}

// Materialize downloads any object-referenced media on the record and
// rewrites the paths to the local copies. Returns the temp files it
// created so the caller can clean them up after resolution.
func (f *Fetcher) Materialize(ctx context.Context, rec *models.Record) ([]string, error) {
	if f == nil || f.client == nil || rec == nil {
		return nil, nil
	}

	var temps []string
	fetch := func(p string) (string, error) {
		bucket, key, ok := f.objectRef(p)
		if !ok {
			return p, nil
		}

		tmp, err := os.CreateTemp("", "geofuse-media-*"+path.Ext(key))
		if err != nil {
			return "", fmt.Errorf("media temp file: %w", err)
		}
		tmp.Close()

		if err := f.client.FGetObject(ctx, bucket, key, tmp.Name(), minio.GetObjectOptions{}); err != nil {
			os.Remove(tmp.Name())
			return "", fmt.Errorf("fetch %s/%s: %w", bucket, key, err)
		}
		temps = append(temps, tmp.Name())
		return tmp.Name(), nil
	}

	if rec.ImagePath != "" && len(rec.ImageBytes) == 0 {
		local, err := fetch(rec.ImagePath)
		if err != nil {
			return temps, err
		}
		rec.ImagePath = local
	}
	if rec.VideoPath != "" {
		local, err := fetch(rec.VideoPath)
		if err != nil {
			return temps, err
		}
		rec.VideoPath = local
	}
	return temps, nil
}

// Cleanup removes the temp files Materialize created.
func Cleanup(temps []string) {
	for _, t := range temps {
		_ = os.Remove(t)
	}
}

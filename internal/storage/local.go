// Package storage keeps uploaded files in named buckets on local disk and
// serves them under /storage/.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Buckets accepted for uploads
const (
	BucketEvents        = "events"
	BucketProducts      = "products"
	BucketAgents        = "agents"
	BucketVerifications = "verifications"
)

var ErrInvalidPath = errors.New("invalid object path")

var knownBuckets = map[string]bool{
	BucketEvents:        true,
	BucketProducts:      true,
	BucketAgents:        true,
	BucketVerifications: true,
}

// IsBucket reports whether name is an upload bucket
func IsBucket(name string) bool {
	return knownBuckets[name]
}

// LocalStore writes objects below a root directory
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates the root directory if needed
func NewLocalStore(root, publicBaseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

// Root is the directory served under /storage/
func (s *LocalStore) Root() string {
	return s.root
}

// ObjectName builds a random object path inside folder keeping the file extension
func ObjectName(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	name := uuid.NewString() + ext
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

func (s *LocalStore) resolve(bucket, objectPath string) (string, error) {
	if !IsBucket(bucket) {
		return "", fmt.Errorf("%w: unknown bucket %q", ErrInvalidPath, bucket)
	}
	clean := path.Clean("/" + objectPath)
	if clean == "/" || strings.Contains(objectPath, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(clean)), nil
}

// Put stores the content of r at bucket/objectPath
func (s *LocalStore) Put(ctx context.Context, bucket, objectPath string, r io.Reader) error {
	target, err := s.resolve(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return os.Rename(tmp.Name(), target)
}

// PublicURL is the address the object is served from
func (s *LocalStore) PublicURL(bucket, objectPath string) string {
	return s.baseURL + "/storage/" + bucket + "/" + strings.TrimPrefix(objectPath, "/")
}

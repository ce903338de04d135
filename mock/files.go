package mock

import (
	"context"
	"io"

	"github.com/fwojciec/dave"
)

// Interface compliance checks.
var (
	_ dave.FileService   = (*FileService)(nil)
	_ dave.ImageStore    = (*ImageStore)(nil)
	_ dave.ArtifactStore = (*ArtifactStore)(nil)
	_ dave.AuditLog      = (*AuditLog)(nil)
)

// FileService is a test double for dave.FileService.
// Set the function fields for the methods you need.
type FileService struct {
	UploadFn  func(ctx context.Context, name string, r io.Reader) (string, error)
	ContentFn func(ctx context.Context, id string) (dave.File, error)
	DeleteFn  func(ctx context.Context, id string) error
}

// Upload delegates to UploadFn.
func (s *FileService) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	return s.UploadFn(ctx, name, r)
}

// Content delegates to ContentFn.
func (s *FileService) Content(ctx context.Context, id string) (dave.File, error) {
	return s.ContentFn(ctx, id)
}

// Delete delegates to DeleteFn.
func (s *FileService) Delete(ctx context.Context, id string) error {
	return s.DeleteFn(ctx, id)
}

// ImageStore is a test double for dave.ImageStore.
type ImageStore struct {
	SaveFn func(handle string, data []byte) (string, error)
	LoadFn func(handle string) ([]byte, error)
}

// Save delegates to SaveFn.
func (s *ImageStore) Save(handle string, data []byte) (string, error) {
	return s.SaveFn(handle, data)
}

// Load delegates to LoadFn.
func (s *ImageStore) Load(handle string) ([]byte, error) {
	return s.LoadFn(handle)
}

// MemoryImages returns an ImageStore backed by a map.
func MemoryImages() *ImageStore {
	m := make(map[string][]byte)
	return &ImageStore{
		SaveFn: func(handle string, data []byte) (string, error) {
			m[handle] = data
			return "images/" + handle + ".png", nil
		},
		LoadFn: func(handle string) ([]byte, error) {
			data, ok := m[handle]
			if !ok {
				return nil, io.ErrUnexpectedEOF
			}
			return data, nil
		},
	}
}

// ArtifactStore is a test double for dave.ArtifactStore.
type ArtifactStore struct {
	SaveArtifactFn func(name string, data []byte) (string, error)
}

// SaveArtifact delegates to SaveArtifactFn.
func (s *ArtifactStore) SaveArtifact(name string, data []byte) (string, error) {
	return s.SaveArtifactFn(name, data)
}

// AuditLog is a test double for dave.AuditLog.
type AuditLog struct {
	RecordFn func(rec dave.AuditRecord) error
}

// Record delegates to RecordFn.
func (a *AuditLog) Record(rec dave.AuditRecord) error {
	return a.RecordFn(rec)
}

package lifecycle

import (
	"context"
	"image"

	"github.com/google/uuid"
	"github.com/postarhq/postar/entity"
)

// ProjectStore is the document-store side of the system: project and target
// records with server-assigned timestamps. Implemented by the repository
// layer; faked in tests.
type ProjectStore interface {
	CreateProject(project *entity.Project) error
	GetProject(id uuid.UUID) (*entity.Project, error)
	UpdateProject(id uuid.UUID, fields map[string]interface{}) error
	ListProjects() ([]entity.Project, error)
	AddTarget(target *entity.Target) error
	ListTargets(projectID uuid.UUID) ([]entity.Target, error)
	UpdateTarget(projectID, targetID uuid.UUID, fields map[string]interface{}) error
	DeleteTarget(projectID, targetID uuid.UUID) error
}

// BlobStore stores project assets under deterministic project-scoped paths
// and returns a storage path plus a stable public URL per upload.
type BlobStore interface {
	UploadPoster(ctx context.Context, projectID uuid.UUID, index int, filename, contentType string, data []byte) (path, url string, err error)
	UploadVideo(ctx context.Context, projectID uuid.UUID, index int, filename, contentType string, data []byte) (path, url string, err error)
	UploadDataset(ctx context.Context, projectID uuid.UUID, data []byte) (path, url string, err error)
	DeleteByPath(ctx context.Context, path string) error
	DeleteAllUnderProject(ctx context.Context, projectID uuid.UUID) error
}

// Dataset is the opaque result of a compilation, exportable to the binary
// buffer the tracking library consumes.
type Dataset interface {
	ExportData(ctx context.Context) ([]byte, error)
}

// Compiler converts an ordered sequence of decoded poster images into a
// tracking dataset, reporting progress in [0,100]. The image order must match
// targetIndex order exactly: the dataset carries no index metadata, the
// viewer binds videos purely by position.
type Compiler interface {
	CompileImageTargets(ctx context.Context, images []image.Image, onProgress func(percent float64)) (Dataset, error)
}

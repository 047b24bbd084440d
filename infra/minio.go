package infra

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/postarhq/postar/config"
	"github.com/postarhq/postar/errs"
)

// MinioClient is the blob store adapter. All project assets live under
// deterministic keys in a single public-read bucket:
//
//	projects/{projectID}/posters/{index}.{ext}
//	projects/{projectID}/videos/{index}.{ext}
//	projects/{projectID}/targets.mind
//
// Deterministic keys make a re-upload at the same index overwrite instead of
// accumulating orphans. Because a changed file extension changes the key, the
// upload paths first delete everything under the stable "{index}." prefix.
type MinioClient struct {
	Admin     *madmin.AdminClient
	Client    *minio.Client
	Bucket    string
	publicURL string
}

func InitMinioClient(cfg *config.EnvConfig) *MinioClient {
	endpoint := cfg.Minio.Endpoint
	if endpoint == "" {
		panic("MinIO endpoint is not configured")
	}
	rootUser := cfg.Minio.RootUser
	if rootUser == "" {
		panic("MinIO root user is not configured")
	}
	rootPassword := cfg.Minio.RootPassword
	if rootPassword == "" {
		panic("MinIO root password is not configured")
	}

	madminClient, err := madmin.New(endpoint, rootUser, rootPassword, cfg.Minio.UseSSL)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO admin client: %v", err))
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(rootUser, rootPassword, ""),
		Secure: cfg.Minio.UseSSL,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO client: %v", err))
	}

	scheme := "http"
	if cfg.Minio.UseSSL {
		scheme = "https"
	}

	client := &MinioClient{
		Admin:     madminClient,
		Client:    minioClient,
		Bucket:    cfg.Minio.Bucket,
		publicURL: fmt.Sprintf("%s://%s/%s", scheme, cfg.Minio.PublicEndpoint, cfg.Minio.Bucket),
	}

	if err := client.ensureBucket(context.Background()); err != nil {
		panic(fmt.Sprintf("Failed to prepare MinIO bucket: %v", err))
	}

	return client
}

func (m *MinioClient) ensureBucket(ctx context.Context) error {
	exists, err := m.Client.BucketExists(ctx, m.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := m.Client.MakeBucket(ctx, m.Bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	// Viewer fetches posters, videos and the dataset straight from storage,
	// so the bucket carries an anonymous read policy.
	policy := fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [
			{
				"Effect": "Allow",
				"Principal": {"AWS": ["*"]},
				"Action": ["s3:GetObject"],
				"Resource": ["arn:aws:s3:::%s/*"]
			}
		]
	}`, m.Bucket)

	if err := m.Client.SetBucketPolicy(ctx, m.Bucket, policy); err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}
	return nil
}

// StorageHealth probes the storage backend for the health endpoint.
func (m *MinioClient) StorageHealth(ctx context.Context) (string, error) {
	info, err := m.Admin.ServerInfo(ctx)
	if err != nil {
		return "", errs.Connectivity("storage backend unreachable", err)
	}
	return info.Mode, nil
}

// PosterObjectKey builds the deterministic key for a poster blob. The
// extension is taken from the original filename; ".bin" when it has none.
func PosterObjectKey(projectID uuid.UUID, index int, filename string) string {
	return fmt.Sprintf("projects/%s/posters/%d%s", projectID, index, extensionOf(filename))
}

// VideoObjectKey builds the deterministic key for a video blob.
func VideoObjectKey(projectID uuid.UUID, index int, filename string) string {
	return fmt.Sprintf("projects/%s/videos/%d%s", projectID, index, extensionOf(filename))
}

// DatasetObjectKey builds the key of the compiled tracking dataset.
func DatasetObjectKey(projectID uuid.UUID) string {
	return fmt.Sprintf("projects/%s/targets.mind", projectID)
}

// PosterIndexPrefix is the extension-independent prefix shared by every
// poster variant ever uploaded at the given index.
func PosterIndexPrefix(projectID uuid.UUID, index int) string {
	return fmt.Sprintf("projects/%s/posters/%d.", projectID, index)
}

// VideoIndexPrefix is the extension-independent prefix for a video index.
func VideoIndexPrefix(projectID uuid.UUID, index int) string {
	return fmt.Sprintf("projects/%s/videos/%d.", projectID, index)
}

func extensionOf(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || ext == "." {
		return ".bin"
	}
	return ext
}

// UploadPoster stores a poster image and returns its storage path and public
// retrieval URL. Stale variants with a different extension are removed first
// so the deterministic key scheme cannot leak orphans.
func (m *MinioClient) UploadPoster(ctx context.Context, projectID uuid.UUID, index int, filename, contentType string, data []byte) (string, string, error) {
	if err := m.DeleteByPrefix(ctx, PosterIndexPrefix(projectID, index)); err != nil {
		return "", "", err
	}
	key := PosterObjectKey(projectID, index, filename)
	if err := m.putObject(ctx, key, contentType, data); err != nil {
		return "", "", errs.Connectivity("failed to upload poster", err)
	}
	return key, m.ObjectURL(key), nil
}

// UploadVideo stores a target's video, replacing any previous variant.
func (m *MinioClient) UploadVideo(ctx context.Context, projectID uuid.UUID, index int, filename, contentType string, data []byte) (string, string, error) {
	if err := m.DeleteByPrefix(ctx, VideoIndexPrefix(projectID, index)); err != nil {
		return "", "", err
	}
	key := VideoObjectKey(projectID, index, filename)
	if err := m.putObject(ctx, key, contentType, data); err != nil {
		return "", "", errs.Connectivity("failed to upload video", err)
	}
	return key, m.ObjectURL(key), nil
}

// UploadDataset publishes the compiled tracking dataset.
func (m *MinioClient) UploadDataset(ctx context.Context, projectID uuid.UUID, data []byte) (string, string, error) {
	key := DatasetObjectKey(projectID)
	if err := m.putObject(ctx, key, "application/octet-stream", data); err != nil {
		return "", "", errs.Connectivity("failed to upload dataset", err)
	}
	return key, m.ObjectURL(key), nil
}

func (m *MinioClient) putObject(ctx context.Context, key, contentType string, data []byte) error {
	_, err := m.Client.PutObject(ctx, m.Bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

// ObjectURL returns the stable public retrieval URL for a storage path.
func (m *MinioClient) ObjectURL(key string) string {
	return m.publicURL + "/" + key
}

// DeleteByPath removes one object. A missing object is not an error: removal
// during replace/teardown tolerates blobs that are already gone.
func (m *MinioClient) DeleteByPath(ctx context.Context, path string) error {
	err := m.Client.RemoveObject(ctx, m.Bucket, path, minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil
		}
		return errs.Connectivity("failed to delete object", err)
	}
	return nil
}

// DeleteByPrefix removes every object under the given key prefix.
func (m *MinioClient) DeleteByPrefix(ctx context.Context, prefix string) error {
	objectCh := m.Client.ListObjects(ctx, m.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var listErr error
	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for obj := range objectCh {
			if obj.Err != nil {
				listErr = obj.Err
				return
			}
			objectsCh <- obj
		}
	}()

	errorCh := m.Client.RemoveObjects(ctx, m.Bucket, objectsCh, minio.RemoveObjectsOptions{})
	for err := range errorCh {
		if err.Err != nil {
			return errs.Connectivity(fmt.Sprintf("failed to delete object %s", err.ObjectName), err.Err)
		}
	}
	// errorCh drains only once objectsCh is closed, so listErr is settled here.
	if listErr != nil {
		return errs.Connectivity(fmt.Sprintf("failed to list objects under %s", prefix), listErr)
	}
	return nil
}

// DeleteAllUnderProject removes every blob belonging to a project. Not
// reachable from the lifecycle controllers (projects are never deleted), but
// part of the adapter contract and used by the cleanup worker.
func (m *MinioClient) DeleteAllUnderProject(ctx context.Context, projectID uuid.UUID) error {
	return m.DeleteByPrefix(ctx, fmt.Sprintf("projects/%s/", projectID))
}

package lifecycle_test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/postarhq/postar/entity"
	"github.com/postarhq/postar/errs"
	"github.com/postarhq/postar/lifecycle"
)

// posterBytes returns a small valid PNG, distinguishable by color.
func posterBytes(c uint8) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = c
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

type fakeStore struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*entity.Project
	targets  map[uuid.UUID]*entity.Target

	failAddTarget     bool
	failUpdateProject bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects: make(map[uuid.UUID]*entity.Project),
		targets:  make(map[uuid.UUID]*entity.Target),
	}
}

func (s *fakeStore) CreateProject(project *entity.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *project
	s.projects[project.ID] = &copied
	return nil
}

func (s *fakeStore) GetProject(id uuid.UUID) (*entity.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return nil, errs.NotFound("project not found")
	}
	copied := *project
	return &copied, nil
}

func (s *fakeStore) UpdateProject(id uuid.UUID, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdateProject {
		return errs.Connectivity("store unavailable", nil)
	}
	project, ok := s.projects[id]
	if !ok {
		return errs.NotFound("project not found")
	}
	for key, value := range fields {
		switch key {
		case "name":
			project.Name = value.(string)
		case "portfolio_url":
			project.PortfolioURL = value.(string)
		case "linkedin_url":
			project.LinkedinURL = value.(string)
		case "instagram_url":
			project.InstagramURL = value.(string)
		case "compiled":
			project.Compiled = value.(bool)
		case "target_count":
			project.TargetCount = value.(int)
		case "mind_url":
			project.MindURL = value.(string)
		}
	}
	return nil
}

func (s *fakeStore) ListProjects() ([]entity.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, *p)
	}
	return out, nil
}

func (s *fakeStore) AddTarget(target *entity.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAddTarget {
		return errs.Connectivity("store unavailable", nil)
	}
	copied := *target
	s.targets[target.ID] = &copied
	return nil
}

func (s *fakeStore) ListTargets(projectID uuid.UUID) ([]entity.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Target
	for _, t := range s.targets {
		if t.ProjectID == projectID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetIndex < out[j].TargetIndex })
	return out, nil
}

func (s *fakeStore) UpdateTarget(projectID, targetID uuid.UUID, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.targets[targetID]
	if !ok || target.ProjectID != projectID {
		return errs.NotFound("target not found")
	}
	for key, value := range fields {
		switch key {
		case "target_index":
			target.TargetIndex = value.(int)
		case "video_url":
			v := value.(string)
			target.VideoURL = &v
		case "video_path":
			v := value.(string)
			target.VideoPath = &v
		case "video_filename":
			v := value.(string)
			target.VideoFilename = &v
		}
	}
	return nil
}

func (s *fakeStore) DeleteTarget(projectID, targetID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.targets[targetID]
	if !ok || target.ProjectID != projectID {
		return errs.NotFound("target not found")
	}
	delete(s.targets, targetID)
	return nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string

	failUploadPoster bool
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (b *fakeBlobs) put(path string, data []byte) (string, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = data
	return path, "https://blobs.test/" + path, nil
}

func (b *fakeBlobs) UploadPoster(_ context.Context, projectID uuid.UUID, index int, filename, _ string, data []byte) (string, string, error) {
	if b.failUploadPoster {
		return "", "", errs.Connectivity("blob store unavailable", nil)
	}
	return b.put(fmt.Sprintf("projects/%s/posters/%d.png", projectID, index), data)
}

func (b *fakeBlobs) UploadVideo(_ context.Context, projectID uuid.UUID, index int, filename, _ string, data []byte) (string, string, error) {
	return b.put(fmt.Sprintf("projects/%s/videos/%d.mp4", projectID, index), data)
}

func (b *fakeBlobs) UploadDataset(_ context.Context, projectID uuid.UUID, data []byte) (string, string, error) {
	return b.put(fmt.Sprintf("projects/%s/targets.mind", projectID), data)
}

func (b *fakeBlobs) DeleteByPath(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, path)
	b.deleted = append(b.deleted, path)
	return nil
}

func (b *fakeBlobs) DeleteAllUnderProject(_ context.Context, projectID uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	prefix := "projects/" + projectID.String() + "/"
	for path := range b.objects {
		if len(path) >= len(prefix) && path[:len(prefix)] == prefix {
			delete(b.objects, path)
		}
	}
	return nil
}

type fakeDataset struct {
	data []byte
}

func (d *fakeDataset) ExportData(context.Context) ([]byte, error) {
	return d.data, nil
}

type fakeCompiler struct {
	mu          sync.Mutex
	imageLen    int
	fail        bool
	started     chan struct{}
	startedOnce sync.Once
	release     chan struct{}
}

func (c *fakeCompiler) CompileImageTargets(ctx context.Context, images []image.Image, onProgress func(float64)) (lifecycle.Dataset, error) {
	c.mu.Lock()
	c.imageLen = len(images)
	c.mu.Unlock()

	if c.started != nil {
		c.startedOnce.Do(func() { close(c.started) })
	}
	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.fail {
		return nil, errs.Compilation("tracking features could not be extracted", nil)
	}
	if onProgress != nil {
		onProgress(50)
		onProgress(100)
	}
	return &fakeDataset{data: []byte("mind-dataset")}, nil
}

type fakeCleanup struct {
	mu    sync.Mutex
	paths []string
}

func (c *fakeCleanup) PublishBlobCleanup(_ context.Context, _ uuid.UUID, paths []string, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, paths...)
	return nil
}

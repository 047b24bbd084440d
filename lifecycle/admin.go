// Package lifecycle implements the admin and viewer controllers for
// poster-to-video experiences. The package is transport-agnostic: it talks to
// the project store, blob store and compiler through interfaces and is bound
// to HTTP by the controller layer.
package lifecycle

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/postarhq/postar/entity"
	"github.com/postarhq/postar/errs"
	"github.com/postarhq/postar/session"
)

// CleanupPublisher receives storage paths that a failed multi-step mutation
// left orphaned, so a background worker can delete them best-effort.
type CleanupPublisher interface {
	PublishBlobCleanup(ctx context.Context, projectID uuid.UUID, paths []string, reason string) error
}

// ProjectFields are the display fields an admin can edit directly.
type ProjectFields struct {
	Name         string
	PortfolioURL string
	LinkedinURL  string
	InstagramURL string
}

// CompileResult is what a successful end-to-end compile produced.
type CompileResult struct {
	DatasetPath string
	MindURL     string
	TargetCount int
}

// MissingPostersError reports which target indices lack local poster bytes,
// blocking compilation until they are re-uploaded.
type MissingPostersError struct {
	Missing []int
}

func (e *MissingPostersError) Error() string {
	return fmt.Sprintf("%d poster(s) must be re-uploaded before compiling", len(e.Missing))
}

// AdminSession is one editing session: the current project, its in-memory
// target list and the session-local poster byte cache. One AdminSession per
// page session, owned by the session manager; no package-level state.
type AdminSession struct {
	store    ProjectStore
	blobs    BlobStore
	compiler Compiler
	cleanup  CleanupPublisher
	cache    *session.PosterCache

	mu      sync.Mutex
	project *entity.Project
	targets []entity.Target

	compiling atomic.Bool
}

func NewAdminSession(store ProjectStore, blobs BlobStore, compiler Compiler, cleanup CleanupPublisher) *AdminSession {
	return &AdminSession{
		store:    store,
		blobs:    blobs,
		compiler: compiler,
		cleanup:  cleanup,
		cache:    session.NewPosterCache(),
	}
}

// Load resolves an existing project into the session. The poster byte cache
// is reset: bytes from a previous session cannot be recovered from the blob
// store, posters must be re-uploaded before the next compile.
func (s *AdminSession) Load(projectID uuid.UUID) error {
	project, err := s.store.GetProject(projectID)
	if err != nil {
		return err
	}
	targets, err := s.store.ListTargets(projectID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.project = project
	s.targets = targets
	s.cache.Clear()
	return nil
}

// Project returns the session's current project, or nil before the first
// save or poster upload.
func (s *AdminSession) Project() *entity.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return nil
	}
	copied := *s.project
	return &copied
}

// Targets returns the in-memory target list in targetIndex order.
func (s *AdminSession) Targets() []entity.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Target, len(s.targets))
	copy(out, s.targets)
	return out
}

// HasLocalPoster reports whether this session still holds the raw bytes for
// the given index, i.e. whether that poster can feed a compile without being
// re-uploaded.
func (s *AdminSession) HasLocalPoster(index int) bool {
	return s.cache.Has(index)
}

// Save upserts the display fields. The project is created on first save.
func (s *AdminSession) Save(fields ProjectFields) (*entity.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.project == nil {
		return s.createProjectLocked(fields)
	}

	err := s.store.UpdateProject(s.project.ID, map[string]interface{}{
		"name":          normalizeName(fields.Name),
		"portfolio_url": fields.PortfolioURL,
		"linkedin_url":  fields.LinkedinURL,
		"instagram_url": fields.InstagramURL,
	})
	if err != nil {
		return nil, err
	}

	s.project.Name = normalizeName(fields.Name)
	s.project.PortfolioURL = fields.PortfolioURL
	s.project.LinkedinURL = fields.LinkedinURL
	s.project.InstagramURL = fields.InstagramURL
	copied := *s.project
	return &copied, nil
}

func normalizeName(name string) string {
	if name == "" {
		return "Untitled Project"
	}
	return name
}

// createProjectLocked is the single implicit creation path: first poster
// upload or first save materializes the project from the pending form fields.
func (s *AdminSession) createProjectLocked(fields ProjectFields) (*entity.Project, error) {
	project := &entity.Project{
		ID:           uuid.New(),
		Name:         normalizeName(fields.Name),
		PortfolioURL: fields.PortfolioURL,
		LinkedinURL:  fields.LinkedinURL,
		InstagramURL: fields.InstagramURL,
	}
	if err := s.store.CreateProject(project); err != nil {
		return nil, err
	}
	s.project = project
	s.targets = nil
	copied := *project
	return &copied, nil
}

// AddPoster uploads a poster at the next free index and records the target.
// On any failure no partial target is left visible: the cache entry is rolled
// back, and a blob uploaded before a failed record creation is handed to the
// cleanup queue rather than kept.
func (s *AdminSession) AddPoster(ctx context.Context, filename, contentType string, data []byte, fields ProjectFields) (*entity.Target, error) {
	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		return nil, errs.Precondition("poster is not a decodable image")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A compile snapshots the target list and writes compiled=true when the
	// pipeline finishes. An edit landing in between would be silently undone,
	// so structural edits fail fast while a compile is in flight.
	if s.compiling.Load() {
		return nil, errs.Conflict("cannot modify posters while a compile is in progress")
	}

	if s.project == nil {
		if _, err := s.createProjectLocked(fields); err != nil {
			return nil, err
		}
	}

	index := len(s.targets)
	s.cache.Put(index, data)

	path, url, err := s.blobs.UploadPoster(ctx, s.project.ID, index, filename, contentType, data)
	if err != nil {
		s.cache.Delete(index)
		return nil, err
	}

	target := &entity.Target{
		ID:             uuid.New(),
		ProjectID:      s.project.ID,
		TargetIndex:    index,
		PosterURL:      url,
		PosterPath:     path,
		PosterFilename: filename,
	}
	if err := s.store.AddTarget(target); err != nil {
		s.cache.Delete(index)
		s.publishCleanup(ctx, []string{path}, "target record creation failed after poster upload")
		return nil, err
	}

	s.targets = append(s.targets, *target)
	if err := s.markUncompiledLocked(); err != nil {
		return nil, err
	}

	copied := *target
	return &copied, nil
}

// AttachVideo adds or replaces the video of the target at the given index.
func (s *AdminSession) AttachVideo(ctx context.Context, index int, filename, contentType string, data []byte) (*entity.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.targetAtLocked(index)
	if target == nil {
		return nil, errs.NotFound("target not found")
	}

	// Previous video first; DeleteByPath already tolerates already-gone.
	if target.VideoPath != nil && *target.VideoPath != "" {
		if err := s.blobs.DeleteByPath(ctx, *target.VideoPath); err != nil {
			return nil, err
		}
	}

	path, url, err := s.blobs.UploadVideo(ctx, s.project.ID, index, filename, contentType, data)
	if err != nil {
		return nil, err
	}

	err = s.store.UpdateTarget(s.project.ID, target.ID, map[string]interface{}{
		"video_url":      url,
		"video_path":     path,
		"video_filename": filename,
	})
	if err != nil {
		return nil, err
	}

	target.VideoURL = &url
	target.VideoPath = &path
	target.VideoFilename = &filename
	copied := *target
	return &copied, nil
}

// RemovePoster deletes the target at the given index together with its
// blobs, then renumbers the survivors to a dense 0..N-1 sequence and re-keys
// the poster byte cache in lockstep. Caller is responsible for having
// confirmed the destructive action with the user.
func (s *AdminSession) RemovePoster(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.compiling.Load() {
		return errs.Conflict("cannot modify posters while a compile is in progress")
	}

	target := s.targetAtLocked(index)
	if target == nil {
		return errs.NotFound("target not found")
	}

	// Blob deletions run concurrently and are joined before the record goes
	// away: a dangling record pointing at deleted blobs is worse than an
	// orphaned blob, so blob failures are queued for cleanup instead of
	// aborting the removal.
	var failed []string
	var failedMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, path := range []string{target.PosterPath, videoPathOf(target)} {
		if path == "" {
			continue
		}
		g.Go(func() error {
			if err := s.blobs.DeleteByPath(gctx, path); err != nil {
				failedMu.Lock()
				failed = append(failed, path)
				failedMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	if len(failed) > 0 {
		s.publishCleanup(ctx, failed, "blob deletion failed during poster removal")
	}

	if err := s.store.DeleteTarget(s.project.ID, target.ID); err != nil {
		return err
	}

	// Drop from the in-memory list, then renumber survivors by position.
	survivors := make([]entity.Target, 0, len(s.targets)-1)
	for _, t := range s.targets {
		if t.ID != target.ID {
			survivors = append(survivors, t)
		}
	}
	s.targets = survivors
	s.cache.Delete(index)

	rekey := make(map[int]int, len(s.targets))
	for position := range s.targets {
		t := &s.targets[position]
		rekey[t.TargetIndex] = position
		if t.TargetIndex != position {
			err := s.store.UpdateTarget(s.project.ID, t.ID, map[string]interface{}{
				"target_index": position,
			})
			if err != nil {
				return err
			}
			t.TargetIndex = position
		}
	}
	s.cache.Rekey(rekey)

	return s.markUncompiledLocked()
}

// IsRecompilable reports whether a compile can run right now, and if not,
// which target indices are missing from the session's poster byte cache.
func (s *AdminSession) IsRecompilable() (bool, []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.project == nil || len(s.targets) == 0 {
		return false, nil
	}
	var missing []int
	for _, t := range s.targets {
		if !s.cache.Has(t.TargetIndex) {
			missing = append(missing, t.TargetIndex)
		}
	}
	return len(missing) == 0, missing
}

// Compile runs the full pipeline: decode every cached poster in targetIndex
// order, hand the sequence to the compilation service, export the dataset,
// publish it and mark the project compiled. Exactly one compile may be in
// flight per session; a second trigger fails fast with a conflict.
func (s *AdminSession) Compile(ctx context.Context, onProgress func(percent float64)) (*CompileResult, error) {
	if !s.compiling.CompareAndSwap(false, true) {
		return nil, errs.Conflict("a compile is already in progress")
	}
	defer s.compiling.Store(false)

	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return nil, errs.Precondition("no project loaded")
	}
	if len(s.targets) == 0 {
		s.mu.Unlock()
		return nil, errs.Precondition("add at least one poster first")
	}

	var missing []int
	for _, t := range s.targets {
		if !s.cache.Has(t.TargetIndex) {
			missing = append(missing, t.TargetIndex)
		}
	}
	if len(missing) > 0 {
		s.mu.Unlock()
		return nil, &errs.Error{
			Kind:    errs.KindPrecondition,
			Message: fmt.Sprintf("%d poster(s) must be re-uploaded before compiling", len(missing)),
			Cause:   &MissingPostersError{Missing: missing},
		}
	}

	projectID := s.project.ID
	ordered := make([]entity.Target, len(s.targets))
	copy(ordered, s.targets)
	images := make([]image.Image, len(ordered))
	for i, t := range ordered {
		data, _ := s.cache.Get(t.TargetIndex)
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			s.mu.Unlock()
			return nil, errs.Compilation(fmt.Sprintf("failed to decode poster %d", t.TargetIndex), err)
		}
		images[i] = img
	}
	s.mu.Unlock()

	// The store is only mutated after the external pipeline succeeded; a
	// failed compile leaves the project untouched.
	dataset, err := s.compiler.CompileImageTargets(ctx, images, onProgress)
	if err != nil {
		return nil, err
	}
	exported, err := dataset.ExportData(ctx)
	if err != nil {
		return nil, err
	}
	path, url, err := s.blobs.UploadDataset(ctx, projectID, exported)
	if err != nil {
		return nil, err
	}

	err = s.store.UpdateProject(projectID, map[string]interface{}{
		"compiled":     true,
		"target_count": len(ordered),
		"mind_url":     url,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.project != nil && s.project.ID == projectID {
		s.project.Compiled = true
		s.project.TargetCount = len(ordered)
		s.project.MindURL = url
	}
	s.mu.Unlock()

	return &CompileResult{
		DatasetPath: path,
		MindURL:     url,
		TargetCount: len(ordered),
	}, nil
}

func (s *AdminSession) targetAtLocked(index int) *entity.Target {
	if s.project == nil {
		return nil
	}
	for i := range s.targets {
		if s.targets[i].TargetIndex == index {
			return &s.targets[i]
		}
	}
	return nil
}

// markUncompiledLocked flips the project to uncompiled after a structural
// edit. TargetCount keeps its last compiled value on purpose: the drift
// between it and the live target count is the staleness signal. A failed
// store write must surface: the edit already changed the target list, and a
// project left compiled=true would keep serving the stale dataset.
func (s *AdminSession) markUncompiledLocked() error {
	if s.project == nil {
		return nil
	}
	if err := s.store.UpdateProject(s.project.ID, map[string]interface{}{
		"compiled": false,
	}); err != nil {
		return err
	}
	s.project.Compiled = false
	return nil
}

func (s *AdminSession) publishCleanup(ctx context.Context, paths []string, reason string) {
	if s.cleanup == nil || s.project == nil {
		return
	}
	_ = s.cleanup.PublishBlobCleanup(ctx, s.project.ID, paths, reason)
}

func videoPathOf(target *entity.Target) string {
	if target.VideoPath == nil {
		return ""
	}
	return *target.VideoPath
}

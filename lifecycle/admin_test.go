package lifecycle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/postarhq/postar/errs"
	"github.com/postarhq/postar/lifecycle"
)

func newTestSession() (*lifecycle.AdminSession, *fakeStore, *fakeBlobs, *fakeCompiler, *fakeCleanup) {
	store := newFakeStore()
	blobs := newFakeBlobs()
	compiler := &fakeCompiler{}
	cleanup := &fakeCleanup{}
	return lifecycle.NewAdminSession(store, blobs, compiler, cleanup), store, blobs, compiler, cleanup
}

func TestAddPosterCreatesProjectImplicitly(t *testing.T) {
	session, store, _, _, _ := newTestSession()

	target, err := session.AddPoster(context.Background(), "front.png", "image/png", posterBytes(1), lifecycle.ProjectFields{Name: "Gallery"})
	if err != nil {
		t.Fatalf("AddPoster failed: %v", err)
	}
	if target.TargetIndex != 0 {
		t.Fatalf("first poster got index %d, want 0", target.TargetIndex)
	}

	project := session.Project()
	if project == nil {
		t.Fatal("project was not created")
	}
	if project.Name != "Gallery" {
		t.Fatalf("project name = %q, want Gallery", project.Name)
	}
	if _, err := store.GetProject(project.ID); err != nil {
		t.Fatalf("project not persisted: %v", err)
	}
}

func TestAddPosterAssignsDenseIndices(t *testing.T) {
	session, _, _, _, _ := newTestSession()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		target, err := session.AddPoster(ctx, "p.png", "image/png", posterBytes(uint8(i)), lifecycle.ProjectFields{})
		if err != nil {
			t.Fatalf("AddPoster %d failed: %v", i, err)
		}
		if target.TargetIndex != i {
			t.Fatalf("poster %d got index %d", i, target.TargetIndex)
		}
	}
}

func TestAddPosterRejectsNonImage(t *testing.T) {
	session, _, _, _, _ := newTestSession()

	_, err := session.AddPoster(context.Background(), "notes.txt", "text/plain", []byte("not an image"), lifecycle.ProjectFields{})
	if errs.KindOf(err) != errs.KindPrecondition {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if session.Project() != nil {
		t.Fatal("rejected poster must not create a project")
	}
}

func TestAddPosterRollsBackCacheOnStoreFailure(t *testing.T) {
	session, store, _, _, cleanup := newTestSession()
	ctx := context.Background()

	if _, err := session.AddPoster(ctx, "p.png", "image/png", posterBytes(0), lifecycle.ProjectFields{}); err != nil {
		t.Fatalf("AddPoster failed: %v", err)
	}

	store.failAddTarget = true
	if _, err := session.AddPoster(ctx, "q.png", "image/png", posterBytes(1), lifecycle.ProjectFields{}); err == nil {
		t.Fatal("expected AddPoster to fail")
	}
	if session.HasLocalPoster(1) {
		t.Fatal("failed append left bytes in the cache")
	}
	if len(session.Targets()) != 1 {
		t.Fatalf("target list has %d entries, want 1", len(session.Targets()))
	}
	cleanup.mu.Lock()
	queued := len(cleanup.paths)
	cleanup.mu.Unlock()
	if queued != 1 {
		t.Fatalf("expected 1 orphaned blob queued for cleanup, got %d", queued)
	}
}

func TestAttachVideoReplacesPrevious(t *testing.T) {
	session, _, blobs, _, _ := newTestSession()
	ctx := context.Background()

	if _, err := session.AddPoster(ctx, "p.png", "image/png", posterBytes(0), lifecycle.ProjectFields{}); err != nil {
		t.Fatalf("AddPoster failed: %v", err)
	}

	first, err := session.AttachVideo(ctx, 0, "a.mp4", "video/mp4", []byte("video-a"))
	if err != nil {
		t.Fatalf("AttachVideo failed: %v", err)
	}
	if first.VideoURL == nil || *first.VideoURL == "" {
		t.Fatal("video URL not recorded")
	}

	oldPath := *first.VideoPath
	if _, err := session.AttachVideo(ctx, 0, "b.mp4", "video/mp4", []byte("video-b")); err != nil {
		t.Fatalf("replacement AttachVideo failed: %v", err)
	}

	blobs.mu.Lock()
	defer blobs.mu.Unlock()
	found := false
	for _, deleted := range blobs.deleted {
		if deleted == oldPath {
			found = true
		}
	}
	if !found {
		t.Fatalf("previous video blob %s was not deleted", oldPath)
	}
}

func TestAttachVideoUnknownIndex(t *testing.T) {
	session, _, _, _, _ := newTestSession()
	ctx := context.Background()

	if _, err := session.AddPoster(ctx, "p.png", "image/png", posterBytes(0), lifecycle.ProjectFields{}); err != nil {
		t.Fatalf("AddPoster failed: %v", err)
	}

	_, err := session.AttachVideo(ctx, 5, "v.mp4", "video/mp4", []byte("video"))
	if !errs.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRemovePosterRenumbersSurvivors(t *testing.T) {
	session, store, _, _, _ := newTestSession()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := session.AddPoster(ctx, "p.png", "image/png", posterBytes(uint8(i)), lifecycle.ProjectFields{}); err != nil {
			t.Fatalf("AddPoster %d failed: %v", i, err)
		}
	}
	if _, err := session.AttachVideo(ctx, 2, "v.mp4", "video/mp4", []byte("video")); err != nil {
		t.Fatalf("AttachVideo failed: %v", err)
	}

	if err := session.RemovePoster(ctx, 1); err != nil {
		t.Fatalf("RemovePoster failed: %v", err)
	}

	targets := session.Targets()
	if len(targets) != 2 {
		t.Fatalf("got %d targets, want 2", len(targets))
	}
	for i, target := range targets {
		if target.TargetIndex != i {
			t.Fatalf("survivor %d has index %d", i, target.TargetIndex)
		}
	}
	// The last poster slid from index 2 to 1 and kept its video.
	if !targets[1].HasVideo() {
		t.Fatal("renumbered target lost its video")
	}
	if !session.HasLocalPoster(0) || !session.HasLocalPoster(1) {
		t.Fatal("cache was not re-keyed with the surviving indices")
	}
	if session.HasLocalPoster(2) {
		t.Fatal("stale cache entry left at old index")
	}

	persisted, err := store.ListTargets(session.Project().ID)
	if err != nil {
		t.Fatalf("ListTargets failed: %v", err)
	}
	for i, target := range persisted {
		if target.TargetIndex != i {
			t.Fatalf("persisted target %d has index %d", i, target.TargetIndex)
		}
	}
}

func TestStructuralEditsResetCompiledFlag(t *testing.T) {
	session, store, _, _, _ := newTestSession()
	ctx := context.Background()

	if _, err := session.AddPoster(ctx, "p.png", "image/png", posterBytes(0), lifecycle.ProjectFields{}); err != nil {
		t.Fatalf("AddPoster failed: %v", err)
	}
	if _, err := session.Compile(ctx, nil); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !session.Project().Compiled {
		t.Fatal("project not marked compiled")
	}

	if _, err := session.AddPoster(ctx, "q.png", "image/png", posterBytes(1), lifecycle.ProjectFields{}); err != nil {
		t.Fatalf("second AddPoster failed: %v", err)
	}

	project, err := store.GetProject(session.Project().ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if project.Compiled {
		t.Fatal("adding a poster must reset the compiled flag")
	}
	if project.TargetCount != 1 {
		t.Fatalf("target count = %d, want the last compiled value 1", project.TargetCount)
	}
	if project.MindURL == "" {
		t.Fatal("stale dataset URL must survive until the next compile")
	}
}

func TestCompileRequiresPosters(t *testing.T) {
	session, _, _, _, _ := newTestSession()

	if _, err := session.Save(lifecycle.ProjectFields{Name: "Empty"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	_, err := session.Compile(context.Background(), nil)
	if errs.KindOf(err) != errs.KindPrecondition {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestCompileReportsMissingPosterCount(t *testing.T) {
	session, _, _, _, _ := newTestSession()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := session.AddPoster(ctx, "p.png", "image/png", posterBytes(uint8(i)), lifecycle.ProjectFields{}); err != nil {
			t.Fatalf("AddPoster %d failed: %v", i, err)
		}
	}

	// A reload drops every cached poster byte.
	projectID := session.Project().ID
	if err := session.Load(projectID); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	recompilable, missing := session.IsRecompilable()
	if recompilable {
		t.Fatal("session without cached bytes must not be recompilable")
	}
	if len(missing) != 3 {
		t.Fatalf("missing = %v, want all 3 indices", missing)
	}

	_, err := session.Compile(ctx, nil)
	if errs.KindOf(err) != errs.KindPrecondition {
		t.Fatalf("expected precondition error, got %v", err)
	}
	var missingErr *lifecycle.MissingPostersError
	if !errors.As(err, &missingErr) {
		t.Fatalf("error does not carry the missing indices: %v", err)
	}
	if len(missingErr.Missing) != 3 {
		t.Fatalf("missing count = %d, want 3", len(missingErr.Missing))
	}
}

func TestCompilePublishesDatasetAndMarksProject(t *testing.T) {
	session, store, blobs, compiler, _ := newTestSession()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := session.AddPoster(ctx, "p.png", "image/png", posterBytes(uint8(i)), lifecycle.ProjectFields{Name: "Demo"}); err != nil {
			t.Fatalf("AddPoster %d failed: %v", i, err)
		}
	}

	var progress []float64
	result, err := session.Compile(ctx, func(percent float64) {
		progress = append(progress, percent)
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if result.TargetCount != 2 {
		t.Fatalf("result target count = %d, want 2", result.TargetCount)
	}
	if compiler.imageLen != 2 {
		t.Fatalf("compiler received %d images, want 2", compiler.imageLen)
	}
	if len(progress) == 0 {
		t.Fatal("progress was never reported")
	}

	project, err := store.GetProject(session.Project().ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if !project.Compiled || project.TargetCount != 2 || project.MindURL != result.MindURL {
		t.Fatalf("project not updated after compile: %+v", project)
	}

	blobs.mu.Lock()
	defer blobs.mu.Unlock()
	if _, ok := blobs.objects[result.DatasetPath]; !ok {
		t.Fatalf("dataset not stored at %s", result.DatasetPath)
	}
}

func TestCompileFailureLeavesProjectUntouched(t *testing.T) {
	session, store, _, compiler, _ := newTestSession()
	ctx := context.Background()

	if _, err := session.AddPoster(ctx, "p.png", "image/png", posterBytes(0), lifecycle.ProjectFields{}); err != nil {
		t.Fatalf("AddPoster failed: %v", err)
	}

	compiler.fail = true
	_, err := session.Compile(ctx, nil)
	if errs.KindOf(err) != errs.KindCompilation {
		t.Fatalf("expected compilation error, got %v", err)
	}

	project, err := store.GetProject(session.Project().ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if project.Compiled || project.MindURL != "" {
		t.Fatal("failed compile must not mark the project compiled")
	}
}

func TestCompileSingleFlight(t *testing.T) {
	session, _, _, compiler, _ := newTestSession()
	ctx := context.Background()

	if _, err := session.AddPoster(ctx, "p.png", "image/png", posterBytes(0), lifecycle.ProjectFields{}); err != nil {
		t.Fatalf("AddPoster failed: %v", err)
	}

	compiler.started = make(chan struct{})
	compiler.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := session.Compile(ctx, nil)
		done <- err
	}()
	<-compiler.started

	_, err := session.Compile(ctx, nil)
	if errs.KindOf(err) != errs.KindConflict {
		t.Fatalf("expected conflict for concurrent compile, got %v", err)
	}

	close(compiler.release)
	if err := <-done; err != nil {
		t.Fatalf("first compile failed: %v", err)
	}

	// The guard resets once the compile finishes.
	if _, err := session.Compile(ctx, nil); err != nil {
		t.Fatalf("recompile after completion failed: %v", err)
	}
}

func TestStructuralEditDuringCompileRejected(t *testing.T) {
	session, store, _, compiler, _ := newTestSession()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := session.AddPoster(ctx, "p.png", "image/png", posterBytes(uint8(i)), lifecycle.ProjectFields{}); err != nil {
			t.Fatalf("AddPoster failed: %v", err)
		}
	}

	compiler.started = make(chan struct{})
	compiler.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := session.Compile(ctx, nil)
		done <- err
	}()
	<-compiler.started

	// A removal landing mid-compile would renumber the targets and then be
	// overwritten by the compile's final compiled=true write.
	if err := session.RemovePoster(ctx, 0); errs.KindOf(err) != errs.KindConflict {
		t.Fatalf("expected conflict removing a poster mid-compile, got %v", err)
	}
	if _, err := session.AddPoster(ctx, "q.png", "image/png", posterBytes(9), lifecycle.ProjectFields{}); errs.KindOf(err) != errs.KindConflict {
		t.Fatalf("expected conflict adding a poster mid-compile, got %v", err)
	}

	close(compiler.release)
	if err := <-done; err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	persisted, err := store.GetProject(session.Project().ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if !persisted.Compiled || persisted.TargetCount != 2 {
		t.Fatalf("compiled state does not match the compiled snapshot: %+v", persisted)
	}

	// Edits are allowed again once the compile finishes.
	if err := session.RemovePoster(ctx, 0); err != nil {
		t.Fatalf("RemovePoster after compile failed: %v", err)
	}
}

func TestStructuralEditSurfacesCompiledResetFailure(t *testing.T) {
	session, store, _, _, _ := newTestSession()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := session.AddPoster(ctx, "p.png", "image/png", posterBytes(uint8(i)), lifecycle.ProjectFields{}); err != nil {
			t.Fatalf("AddPoster failed: %v", err)
		}
	}
	if _, err := session.Compile(ctx, nil); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	store.failUpdateProject = true

	if _, err := session.AddPoster(ctx, "q.png", "image/png", posterBytes(9), lifecycle.ProjectFields{}); err == nil {
		t.Fatal("expected AddPoster to fail when the compiled reset cannot be stored")
	}
	if err := session.RemovePoster(ctx, 0); err == nil {
		t.Fatal("expected RemovePoster to fail when the compiled reset cannot be stored")
	}

	// The session must not report the project uncompiled while the store
	// still says compiled=true.
	if !session.Project().Compiled {
		t.Fatal("in-memory compiled flag cleared despite failed store update")
	}
}

func TestSaveUpdatesDisplayFields(t *testing.T) {
	session, store, _, _, _ := newTestSession()

	project, err := session.Save(lifecycle.ProjectFields{Name: "First"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := session.Save(lifecycle.ProjectFields{
		Name:         "Renamed",
		PortfolioURL: "https://example.com",
	}); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	persisted, err := store.GetProject(project.ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if persisted.Name != "Renamed" || persisted.PortfolioURL != "https://example.com" {
		t.Fatalf("display fields not updated: %+v", persisted)
	}
}

func TestSaveDefaultsEmptyName(t *testing.T) {
	session, _, _, _, _ := newTestSession()

	project, err := session.Save(lifecycle.ProjectFields{})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if project.Name != "Untitled Project" {
		t.Fatalf("name = %q, want the untitled default", project.Name)
	}
}

func TestEndToEndDemoScenario(t *testing.T) {
	session, store, _, _, _ := newTestSession()
	ctx := context.Background()

	if _, err := session.Save(lifecycle.ProjectFields{Name: "Demo"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := session.AddPoster(ctx, "p.png", "image/png", posterBytes(uint8(i)), lifecycle.ProjectFields{}); err != nil {
			t.Fatalf("AddPoster %d failed: %v", i, err)
		}
	}
	if err := session.RemovePoster(ctx, 0); err != nil {
		t.Fatalf("RemovePoster failed: %v", err)
	}

	targets := session.Targets()
	if len(targets) != 1 || targets[0].TargetIndex != 0 {
		t.Fatalf("surviving target = %+v, want a single target at index 0", targets)
	}

	if _, err := session.Compile(ctx, nil); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	project, err := store.GetProject(session.Project().ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if !project.Compiled || project.TargetCount != 1 || project.MindURL == "" {
		t.Fatalf("final project state = %+v", project)
	}
	if project.Name != "Demo" {
		t.Fatalf("project name = %q, want Demo", project.Name)
	}
}

package lifecycle_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/postarhq/postar/entity"
	"github.com/postarhq/postar/errs"
	"github.com/postarhq/postar/lifecycle"
)

func TestResolveRequiresProjectID(t *testing.T) {
	viewer := lifecycle.NewViewerController(newFakeStore())

	_, err := viewer.Resolve("")
	if errs.KindOf(err) != errs.KindPrecondition {
		t.Fatalf("expected precondition error for missing id, got %v", err)
	}
}

func TestResolveUnknownProject(t *testing.T) {
	viewer := lifecycle.NewViewerController(newFakeStore())

	for _, raw := range []string{"not-a-uuid", uuid.NewString()} {
		_, err := viewer.Resolve(raw)
		if !errs.IsNotFound(err) {
			t.Fatalf("Resolve(%q): expected not found, got %v", raw, err)
		}
	}
}

func TestResolveUncompiledProject(t *testing.T) {
	store := newFakeStore()
	session := lifecycle.NewAdminSession(store, newFakeBlobs(), &fakeCompiler{}, nil)

	if _, err := session.AddPoster(context.Background(), "p.png", "image/png", posterBytes(0), lifecycle.ProjectFields{}); err != nil {
		t.Fatalf("AddPoster failed: %v", err)
	}

	viewer := lifecycle.NewViewerController(store)
	_, err := viewer.Resolve(session.Project().ID.String())
	if errs.KindOf(err) != errs.KindPrecondition {
		t.Fatalf("expected precondition error for uncompiled project, got %v", err)
	}
}

func TestResolveCompiledExperience(t *testing.T) {
	store := newFakeStore()
	session := lifecycle.NewAdminSession(store, newFakeBlobs(), &fakeCompiler{}, nil)
	ctx := context.Background()

	fields := lifecycle.ProjectFields{
		Name:         "Exhibition",
		PortfolioURL: "https://example.com",
	}
	for i := 0; i < 3; i++ {
		if _, err := session.AddPoster(ctx, "p.png", "image/png", posterBytes(uint8(i)), fields); err != nil {
			t.Fatalf("AddPoster %d failed: %v", i, err)
		}
	}
	// Only the middle poster gets a video.
	if _, err := session.AttachVideo(ctx, 1, "v.mp4", "video/mp4", []byte("video")); err != nil {
		t.Fatalf("AttachVideo failed: %v", err)
	}
	if _, err := session.Compile(ctx, nil); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	viewer := lifecycle.NewViewerController(store)
	experience, err := viewer.Resolve(session.Project().ID.String())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if experience.MindURL == "" {
		t.Fatal("experience has no dataset URL")
	}
	if experience.TargetCount != 3 {
		t.Fatalf("target count = %d, want 3", experience.TargetCount)
	}
	if len(experience.Bindings) != 1 {
		t.Fatalf("got %d video bindings, want 1", len(experience.Bindings))
	}
	if experience.Bindings[0].TargetIndex != 1 {
		t.Fatalf("binding at index %d, want 1", experience.Bindings[0].TargetIndex)
	}
	if experience.Links.PortfolioURL != "https://example.com" {
		t.Fatalf("portfolio link = %q", experience.Links.PortfolioURL)
	}
	if experience.Links.InstagramURL != "" {
		t.Fatal("empty links must stay empty")
	}
}

func TestResolveAfterRemovalKeepsPositionalBinding(t *testing.T) {
	store := newFakeStore()
	session := lifecycle.NewAdminSession(store, newFakeBlobs(), &fakeCompiler{}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := session.AddPoster(ctx, "p.png", "image/png", posterBytes(uint8(i)), lifecycle.ProjectFields{}); err != nil {
			t.Fatalf("AddPoster %d failed: %v", i, err)
		}
	}
	if _, err := session.AttachVideo(ctx, 2, "v.mp4", "video/mp4", []byte("video")); err != nil {
		t.Fatalf("AttachVideo failed: %v", err)
	}

	// Removing index 0 slides the video target from 2 to 1.
	if err := session.RemovePoster(ctx, 0); err != nil {
		t.Fatalf("RemovePoster failed: %v", err)
	}
	if _, err := session.Compile(ctx, nil); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	viewer := lifecycle.NewViewerController(store)
	experience, err := viewer.Resolve(session.Project().ID.String())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(experience.Bindings) != 1 || experience.Bindings[0].TargetIndex != 1 {
		t.Fatalf("bindings = %+v, want a single binding at index 1", experience.Bindings)
	}
}

func TestResolveCompiledProjectWithoutTargets(t *testing.T) {
	store := newFakeStore()
	projectID := uuid.New()
	err := store.CreateProject(&entity.Project{
		ID:       projectID,
		Name:     "Emptied",
		Compiled: true,
		MindURL:  "https://blobs.test/projects/x/targets.mind",
	})
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	viewer := lifecycle.NewViewerController(store)
	_, err = viewer.Resolve(projectID.String())
	if errs.KindOf(err) != errs.KindPrecondition {
		t.Fatalf("expected precondition error for target-less project, got %v", err)
	}
}

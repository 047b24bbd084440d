package lifecycle

import (
	"github.com/google/uuid"

	"github.com/postarhq/postar/entity"
	"github.com/postarhq/postar/errs"
)

// VideoBinding pairs a recognized target index with the video to play over it.
// Targets without a video are simply not bound; recognition still works, the
// overlay just shows nothing.
type VideoBinding struct {
	TargetIndex int    `json:"targetIndex"`
	VideoURL    string `json:"videoUrl"`
}

// SocialLinks carries only the links the admin actually filled in.
type SocialLinks struct {
	PortfolioURL string `json:"portfolioUrl,omitempty"`
	LinkedinURL  string `json:"linkedinUrl,omitempty"`
	InstagramURL string `json:"instagramUrl,omitempty"`
}

// Experience is everything a viewer client needs to start tracking: the
// compiled dataset location, the per-index video bindings and the project's
// display metadata.
type Experience struct {
	ProjectID   uuid.UUID      `json:"projectId"`
	ProjectName string         `json:"projectName"`
	MindURL     string         `json:"mindUrl"`
	TargetCount int            `json:"targetCount"`
	Bindings    []VideoBinding `json:"bindings"`
	Links       SocialLinks    `json:"links"`
}

// ViewerController resolves share links into ready-to-render experiences.
// It is read-only and stateless; one instance serves all requests.
type ViewerController struct {
	store ProjectStore
}

func NewViewerController(store ProjectStore) *ViewerController {
	return &ViewerController{store: store}
}

// Resolve walks the error ladder in order: missing id, unknown project,
// never-compiled project, project with no posters. Each failure carries a
// message the viewer page can show verbatim.
func (v *ViewerController) Resolve(rawProjectID string) (*Experience, error) {
	if rawProjectID == "" {
		return nil, errs.Precondition("no project specified")
	}

	projectID, err := uuid.Parse(rawProjectID)
	if err != nil {
		return nil, errs.NotFound("project not found")
	}

	project, err := v.store.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	if !project.Compiled || project.MindURL == "" {
		return nil, errs.Precondition("this project has not been set up yet")
	}

	targets, err := v.store.ListTargets(projectID)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, errs.Precondition("this project has no posters yet")
	}

	return &Experience{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		MindURL:     project.MindURL,
		TargetCount: project.TargetCount,
		Bindings:    bindVideos(targets),
		Links: SocialLinks{
			PortfolioURL: project.PortfolioURL,
			LinkedinURL:  project.LinkedinURL,
			InstagramURL: project.InstagramURL,
		},
	}, nil
}

func bindVideos(targets []entity.Target) []VideoBinding {
	bindings := make([]VideoBinding, 0, len(targets))
	for _, t := range targets {
		if !t.HasVideo() {
			continue
		}
		bindings = append(bindings, VideoBinding{
			TargetIndex: t.TargetIndex,
			VideoURL:    *t.VideoURL,
		})
	}
	return bindings
}

package controller

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/postarhq/postar/config"
	"github.com/postarhq/postar/entity"
	"github.com/postarhq/postar/errs"
	"github.com/postarhq/postar/http/controller/dto"
	"github.com/postarhq/postar/infra"
	"github.com/postarhq/postar/lifecycle"
	"github.com/postarhq/postar/repository"
	"github.com/postarhq/postar/utils"
)

type Controller struct {
	Config     *config.Config
	Infra      *infra.Infra
	Repository *repository.Repository
	Sessions   *lifecycle.SessionManager
	Viewer     *lifecycle.ViewerController
}

func NewController(cfg *config.Config, infra *infra.Infra, repo *repository.Repository) *Controller {
	sessionTTL := time.Duration(cfg.EnvConfig.Session.TTL) * time.Second
	sessions := lifecycle.NewSessionManager(repo, infra.Minio, infra.Compiler, infra.Produce.Cleanup, sessionTTL)

	return &Controller{
		Config:     cfg,
		Infra:      infra,
		Repository: repo,
		Sessions:   sessions,
		Viewer:     lifecycle.NewViewerController(repo),
	}
}

// session resolves the caller's editing session from the X-Session-ID header.
func (ctrl *Controller) session(c *gin.Context) (*lifecycle.AdminSession, bool) {
	key := c.GetHeader("X-Session-ID")
	if key == "" {
		utils.JSON400(c, "X-Session-ID header is required")
		return nil, false
	}
	return ctrl.Sessions.Session(key), true
}

// respondError translates the error taxonomy into HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		utils.JSON404(c, err.Error())
	case errs.KindPrecondition:
		utils.JSON400(c, err.Error())
	case errs.KindConflict:
		utils.JSON409(c, err.Error())
	default:
		utils.JSON500(c, err.Error())
	}
}

func projectDTO(project *entity.Project) *dto.ProjectResponseDTO {
	if project == nil {
		return nil
	}
	return &dto.ProjectResponseDTO{
		ID:           project.ID,
		Name:         project.Name,
		PortfolioURL: project.PortfolioURL,
		LinkedinURL:  project.LinkedinURL,
		InstagramURL: project.InstagramURL,
		Compiled:     project.Compiled,
		TargetCount:  project.TargetCount,
		MindURL:      project.MindURL,
	}
}

func targetDTO(target *entity.Target, hasLocalPoster bool) dto.TargetResponseDTO {
	return dto.TargetResponseDTO{
		ID:             target.ID,
		TargetIndex:    target.TargetIndex,
		PosterURL:      target.PosterURL,
		PosterFilename: target.PosterFilename,
		VideoURL:       target.VideoURL,
		VideoFilename:  target.VideoFilename,
		HasLocalPoster: hasLocalPoster,
	}
}

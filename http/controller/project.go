package controller

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/postarhq/postar/http/controller/dto"
	"github.com/postarhq/postar/lifecycle"
	"github.com/postarhq/postar/utils"
)

func projectFields(req dto.SaveProjectRequestDTO) lifecycle.ProjectFields {
	return lifecycle.ProjectFields{
		Name:         req.Name,
		PortfolioURL: req.PortfolioURL,
		LinkedinURL:  req.LinkedinURL,
		InstagramURL: req.InstagramURL,
	}
}

func (ctrl *Controller) ListProjects(c *gin.Context) {
	ctx := c.Request.Context()

	projects, err := ctrl.Repository.ListProjects()
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Project] Failed to list projects: %v", err)
		utils.JSON500(c, "Failed to list projects")
		return
	}

	out := make([]dto.ProjectResponseDTO, 0, len(projects))
	for i := range projects {
		out = append(out, *projectDTO(&projects[i]))
	}
	utils.JSON200(c, gin.H{"projects": out})
}

func (ctrl *Controller) GetShareLink(c *gin.Context) {
	ctx := c.Request.Context()

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid project id")
		return
	}

	project, err := ctrl.Repository.GetProject(projectID)
	if err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Project] Share link for unknown project %s", projectID)
		respondError(c, err)
		return
	}

	shareURL := fmt.Sprintf("%s/?p=%s", ctrl.Config.EnvConfig.PublicBaseURL, project.ID)
	utils.JSON200(c, gin.H{"share_url": shareURL})
}

// LoadProject resolves an existing project into the caller's editing session.
// Poster bytes from previous sessions are gone, so the response marks every
// target as needing a re-upload before compile.
func (ctrl *Controller) LoadProject(c *gin.Context) {
	ctx := c.Request.Context()

	session, ok := ctrl.session(c)
	if !ok {
		return
	}

	var req dto.LoadProjectRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		utils.JSON400(c, "Invalid project id")
		return
	}

	if err := session.Load(projectID); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Project] Failed to load project %s: %v", projectID, err)
		respondError(c, err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Project] Loaded project %s into session", projectID)
	utils.JSON200(c, ctrl.sessionState(session))
}

// GetSessionState returns the current project, its targets and whether a
// compile can run right now.
func (ctrl *Controller) GetSessionState(c *gin.Context) {
	session, ok := ctrl.session(c)
	if !ok {
		return
	}
	utils.JSON200(c, ctrl.sessionState(session))
}

func (ctrl *Controller) sessionState(session *lifecycle.AdminSession) dto.SessionStateResponseDTO {
	targets := session.Targets()
	out := make([]dto.TargetResponseDTO, 0, len(targets))
	for i := range targets {
		out = append(out, targetDTO(&targets[i], session.HasLocalPoster(targets[i].TargetIndex)))
	}
	recompilable, missing := session.IsRecompilable()
	return dto.SessionStateResponseDTO{
		Project:      projectDTO(session.Project()),
		Targets:      out,
		Recompilable: recompilable,
		MissingCount: len(missing),
	}
}

func (ctrl *Controller) SaveProject(c *gin.Context) {
	ctx := c.Request.Context()

	session, ok := ctrl.session(c)
	if !ok {
		return
	}

	var req dto.SaveProjectRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}

	project, err := session.Save(projectFields(req))
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Project] Failed to save project: %v", err)
		respondError(c, err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Project] Saved project %s", project.ID)
	utils.JSON200(c, gin.H{"project": projectDTO(project)})
}

func (ctrl *Controller) GetLastProject(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.JSON401(c, "Unauthorized: "+err.Error())
		return
	}

	var projectID string
	err = ctrl.Infra.Redis.Get(ctx, lastProjectKey(userID), &projectID)
	if err != nil {
		utils.JSON200(c, gin.H{"project_id": nil})
		return
	}
	utils.JSON200(c, gin.H{"project_id": projectID})
}

func (ctrl *Controller) SetLastProject(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.JSON401(c, "Unauthorized: "+err.Error())
		return
	}

	var req dto.LastProjectRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}
	if _, err := uuid.Parse(req.ProjectID); err != nil {
		utils.JSON400(c, "Invalid project id")
		return
	}

	if err := ctrl.Infra.Redis.Set(ctx, lastProjectKey(userID), req.ProjectID, 0); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Project] Failed to store last project preference: %v", err)
		utils.JSON500(c, "Failed to store preference")
		return
	}
	utils.JSON200(c, gin.H{"project_id": req.ProjectID})
}

func lastProjectKey(userID uuid.UUID) string {
	return "postar:lastproject:" + userID.String()
}

package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/postarhq/postar/entity"
	"github.com/postarhq/postar/http/controller/dto"
	"github.com/postarhq/postar/lifecycle"
	"github.com/postarhq/postar/utils"
)

const (
	compileLockTTL     = 15 * time.Minute
	compileProgressTTL = time.Hour
)

func compileLockKey(projectID uuid.UUID) string {
	return "postar:compile:lock:" + projectID.String()
}

func compileProgressKey(jobID uuid.UUID) string {
	return "postar:compile:progress:" + jobID.String()
}

// StartCompile dispatches an asynchronous compile for the session's project
// and returns the job id to poll. A Redis lock keyed by project rejects
// concurrent compiles across sessions; the session itself rejects a second
// trigger from the same editor.
func (ctrl *Controller) StartCompile(c *gin.Context) {
	ctx := c.Request.Context()

	session, ok := ctrl.session(c)
	if !ok {
		return
	}

	project := session.Project()
	if project == nil {
		utils.JSON400(c, "No project loaded in this session")
		return
	}

	if recompilable, missing := session.IsRecompilable(); !recompilable {
		if len(missing) > 0 {
			utils.JSON400(c, fmt.Sprintf("%d poster(s) must be re-uploaded before compiling", len(missing)))
		} else {
			utils.JSON400(c, "Add at least one poster first")
		}
		return
	}

	acquired, err := ctrl.Infra.Redis.SetNX(ctx, compileLockKey(project.ID), time.Now().Unix(), compileLockTTL)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Compile] Failed to acquire compile lock: %v", err)
		utils.JSON500(c, "Failed to acquire compile lock")
		return
	}
	if !acquired {
		utils.JSON409(c, "A compile is already in progress for this project")
		return
	}

	targets := session.Targets()
	payload, _ := json.Marshal(targets)
	job := &entity.CompileJob{
		ID:          uuid.New(),
		ProjectID:   project.ID,
		Status:      entity.CompileJobPending,
		TargetCount: len(targets),
		Payload:     payload,
		StartedAt:   time.Now(),
	}
	if err := ctrl.Repository.CompileJobRepo.Create(job); err != nil {
		_ = ctrl.Infra.Redis.Delete(ctx, compileLockKey(project.ID))
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Compile] Failed to create compile job: %v", err)
		utils.JSON500(c, "Failed to create compile job")
		return
	}

	go ctrl.runCompile(session, project.ID, job.ID)

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Compile] Dispatched compile job %s for project %s (%d targets)",
		job.ID, project.ID, len(targets))
	utils.JSON202(c, gin.H{"job_id": job.ID, "project_id": project.ID})
}

// runCompile executes the pipeline in the background. The request context is
// gone by the time this runs, so it works from a fresh one.
func (ctrl *Controller) runCompile(session *lifecycle.AdminSession, projectID, jobID uuid.UUID) {
	ctx, span := ctrl.Infra.Logger.Tracer.Start(context.Background(), "compile")
	defer span.End()
	defer func() {
		_ = ctrl.Infra.Redis.Delete(ctx, compileLockKey(projectID))
	}()

	_ = ctrl.Repository.CompileJobRepo.UpdateStatus(jobID, entity.CompileJobRunning, "")
	_ = ctrl.Infra.Redis.Set(ctx, compileProgressKey(jobID), 0.0, compileProgressTTL)

	onProgress := func(percent float64) {
		_ = ctrl.Infra.Redis.Set(ctx, compileProgressKey(jobID), percent, compileProgressTTL)
	}

	result, err := session.Compile(ctx, onProgress)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Compile] Job %s failed: %v", jobID, err)
		_ = ctrl.Repository.CompileJobRepo.UpdateStatus(jobID, entity.CompileJobFailed, err.Error())
		return
	}

	_ = ctrl.Infra.Redis.Set(ctx, compileProgressKey(jobID), 100.0, compileProgressTTL)
	_ = ctrl.Repository.CompileJobRepo.UpdateStatus(jobID, entity.CompileJobCompleted, result.MindURL)
	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Compile] Job %s completed: %d targets, dataset at %s",
		jobID, result.TargetCount, result.DatasetPath)
}

// GetCompileJob reports job status plus live progress from Redis.
func (ctrl *Controller) GetCompileJob(c *gin.Context) {
	ctx := c.Request.Context()

	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		utils.JSON400(c, "Invalid job id")
		return
	}

	job, err := ctrl.Repository.CompileJobRepo.FindByID(jobID)
	if err != nil {
		respondError(c, err)
		return
	}

	var progress float64
	if job.Status == entity.CompileJobCompleted {
		progress = 100
	} else {
		_ = ctrl.Infra.Redis.Get(ctx, compileProgressKey(jobID), &progress)
	}

	resp := dto.CompileJobResponseDTO{
		JobID:       job.ID,
		ProjectID:   job.ProjectID,
		Status:      string(job.Status),
		Progress:    progress,
		TargetCount: job.TargetCount,
	}
	switch job.Status {
	case entity.CompileJobCompleted:
		resp.MindURL = job.Message
	case entity.CompileJobFailed:
		resp.Message = job.Message
	}
	utils.JSON200(c, resp)
}

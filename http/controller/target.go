package controller

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/postarhq/postar/http/controller/dto"
	"github.com/postarhq/postar/utils"
)

// 25 MB posters, 200 MB videos. Matches what the blob store is sized for.
const (
	maxPosterBytes = 25 << 20
	maxVideoBytes  = 200 << 20
)

// UploadPoster accepts a multipart poster image plus the current display
// fields. When no project exists in the session yet, one is created from
// those fields before the poster is stored.
func (ctrl *Controller) UploadPoster(c *gin.Context) {
	ctx := c.Request.Context()

	session, ok := ctrl.session(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("poster")
	if err != nil {
		utils.JSON400(c, "poster file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPosterBytes+1))
	if err != nil {
		utils.JSON400(c, "Failed to read poster file")
		return
	}
	if len(data) > maxPosterBytes {
		utils.JSON400(c, "Poster file is too large")
		return
	}

	fields := projectFields(dto.SaveProjectRequestDTO{
		Name:         c.PostForm("name"),
		PortfolioURL: c.PostForm("portfolio_url"),
		LinkedinURL:  c.PostForm("linkedin_url"),
		InstagramURL: c.PostForm("instagram_url"),
	})

	target, err := session.AddPoster(ctx, header.Filename, header.Header.Get("Content-Type"), data, fields)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Target] Failed to add poster: %v", err)
		respondError(c, err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Target] Added poster %d to project %s", target.TargetIndex, target.ProjectID)
	utils.JSON201(c, gin.H{"target": targetDTO(target, true)})
}

// AttachVideo adds or replaces the video at the given target index.
func (ctrl *Controller) AttachVideo(c *gin.Context) {
	ctx := c.Request.Context()

	session, ok := ctrl.session(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		utils.JSON400(c, "Invalid target index")
		return
	}

	file, header, err := c.Request.FormFile("video")
	if err != nil {
		utils.JSON400(c, "video file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxVideoBytes+1))
	if err != nil {
		utils.JSON400(c, "Failed to read video file")
		return
	}
	if len(data) > maxVideoBytes {
		utils.JSON400(c, "Video file is too large")
		return
	}

	target, err := session.AttachVideo(ctx, index, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Target] Failed to attach video to index %d: %v", index, err)
		respondError(c, err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Target] Attached video to target %d of project %s", index, target.ProjectID)
	utils.JSON200(c, gin.H{"target": targetDTO(target, session.HasLocalPoster(index))})
}

// RemoveTarget deletes a poster together with its video. The client must
// pass confirm=true, removal renumbers every following target.
func (ctrl *Controller) RemoveTarget(c *gin.Context) {
	ctx := c.Request.Context()

	session, ok := ctrl.session(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		utils.JSON400(c, "Invalid target index")
		return
	}

	if c.Query("confirm") != "true" {
		utils.JSON400(c, "Removal must be confirmed with confirm=true")
		return
	}

	if err := session.RemovePoster(ctx, index); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Target] Failed to remove target %d: %v", index, err)
		respondError(c, err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Target] Removed target %d", index)
	utils.JSON200(c, ctrl.sessionState(session))
}

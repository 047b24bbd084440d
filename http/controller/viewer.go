package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/postarhq/postar/utils"
)

// GetExperience is the public viewer endpoint behind share links. The
// project id arrives as the p query parameter, mirroring the share URL.
func (ctrl *Controller) GetExperience(c *gin.Context) {
	ctx := c.Request.Context()

	rawProjectID := c.Query("p")
	experience, err := ctrl.Viewer.Resolve(rawProjectID)
	if err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Viewer] Failed to resolve %q: %v", rawProjectID, err)
		respondError(c, err)
		return
	}

	utils.JSON200(c, experience)
}

package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/postarhq/postar/utils"
)

// Healthz probes the storage backend and reports live session count.
func (ctrl *Controller) Healthz(c *gin.Context) {
	ctx := c.Request.Context()

	storage, err := ctrl.Infra.Minio.StorageHealth(ctx)
	if err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Health] Storage probe failed: %v", err)
		storage = "unavailable"
	}

	utils.JSON200(c, gin.H{
		"storage":  storage,
		"sessions": ctrl.Sessions.Len(),
	})
}

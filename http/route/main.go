package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/postarhq/postar/http/controller"
	middlewares "github.com/postarhq/postar/http/middleware"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	r := gin.Default()
	middles, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		panic(err)
	}

	r.Use(middles.CORSMiddleware)
	r.GET("/healthz", ctrl.Healthz)

	apiRoutes := r.Group("/api/v1/postar")
	{
		// Viewer surface is public; share links work without an account.
		viewerRoutes := apiRoutes.Group("/viewer")
		{
			viewerRoutes.GET("/experience", ctrl.GetExperience)
		}

		adminRoutes := apiRoutes.Group("/")
		{
			adminRoutes.Use(middles.AuthMiddleware)

			projectRoutes := adminRoutes.Group("/projects")
			{
				projectRoutes.GET("/", ctrl.ListProjects)
				projectRoutes.GET("/:id/share", ctrl.GetShareLink)
			}

			sessionRoutes := adminRoutes.Group("/session")
			{
				sessionRoutes.GET("/", ctrl.GetSessionState)
				sessionRoutes.POST("/load", ctrl.LoadProject)
				sessionRoutes.POST("/project", ctrl.SaveProject)
				sessionRoutes.POST("/posters", ctrl.UploadPoster)
				sessionRoutes.POST("/posters/:index/video", ctrl.AttachVideo)
				sessionRoutes.DELETE("/posters/:index", ctrl.RemoveTarget)
				sessionRoutes.POST("/compile", ctrl.StartCompile)
				sessionRoutes.GET("/compile/:job_id", ctrl.GetCompileJob)
			}

			preferenceRoutes := adminRoutes.Group("/preferences")
			{
				preferenceRoutes.GET("/last-project", ctrl.GetLastProject)
				preferenceRoutes.PUT("/last-project", ctrl.SetLastProject)
			}
		}
	}
	return r
}

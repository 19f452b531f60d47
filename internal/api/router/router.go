package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mytankugift/catalog-sync/internal/api/handler"
)

// SetupRouter configures the Gin router with all job routes.
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "catalog-sync-api",
		})
	})

	jobHandler := handler.NewJobHandler(deps)

	v1 := r.Group("/api/v1")
	{
		jobsGroup := v1.Group("/jobs")
		{
			jobsGroup.POST("", jobHandler.CreateJob)
			jobsGroup.GET("", jobHandler.ListJobs)
			jobsGroup.GET("/:job_id", jobHandler.GetJob)
			jobsGroup.POST("/:job_id/cancel", jobHandler.CancelJob)
		}
	}

	return r
}

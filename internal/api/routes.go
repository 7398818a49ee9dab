package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"resumehub/internal/api/middleware"
	"resumehub/internal/config"
	"resumehub/internal/store"
)

// RegisterRoutes registers the versioned API routes.
func RegisterRoutes(
	router *gin.Engine,
	resumeStore *store.ResumeStore,
	storageClient ObjectStorage,
	queue TaskEnqueuer,
	redisClient *redis.Client,
	logger *slog.Logger,
	cfg *config.Config,
) {
	resumeHandler := NewResumeHandler(resumeStore, storageClient, queue, redisClient, logger, cfg)
	eventsHandler := NewEventsHandler(redisClient, resumeStore, logger)
	internalOnly := middleware.InternalSecretMiddleware(cfg.API.InternalSecret)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", eventsHandler.HandleConnection)

		v1.POST("/extract-and-save-resume", resumeHandler.UploadResume)

		v1.GET("/resumes", resumeHandler.ListResumes)
		v1.DELETE("/resumes", resumeHandler.DeleteAllResumes)
		v1.GET("/resumes/search/:name", resumeHandler.SearchResumes)
		v1.GET("/resumes/:id", resumeHandler.GetResume)
		v1.DELETE("/resumes/:id", resumeHandler.DeleteResume)
		v1.GET("/resumes/:id/education", resumeHandler.GetResumeEducation)
		v1.GET("/resumes/:id/education/final", resumeHandler.GetFinalEducation)
		v1.GET("/resumes/:id/download-link", resumeHandler.GetDownloadLink)

		v1.PATCH("/resumes/:id", internalOnly, resumeHandler.UpdateResume)
	}
}

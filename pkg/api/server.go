package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dansasser/mcg-agent/pkg/database"
	"github.com/dansasser/mcg-agent/pkg/governance"
	"github.com/dansasser/mcg-agent/pkg/pipeline"
	"github.com/dansasser/mcg-agent/pkg/services"
)

// Composer is the service surface the handlers depend on.
type Composer interface {
	Compose(ctx context.Context, userID, prompt string) (*pipeline.Result, error)
	GovernanceSummary(taskID string) (governance.Summary, bool)
	Stats() pipeline.StageStatsSnapshot
}

// ServerDeps wires the router's collaborators. DB and Monitor are optional;
// the health endpoint degrades gracefully without them.
type ServerDeps struct {
	Composer  Composer
	DB        *database.Client
	Monitor   *services.MemoryMonitor
	JWTSecret string
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(deps ServerDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger())

	router.GET("/health", handleHealth(deps))

	v1 := router.Group("/api/v1", authRequired(deps.JWTSecret))
	v1.POST("/compose", handleCompose(deps.Composer))
	v1.GET("/tasks/:id/governance", handleGovernanceLookup(deps.Composer))
	v1.GET("/stats", handleStats(deps.Composer))

	return router
}

func handleCompose(svc Composer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ComposeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "prompt is required", Kind: "bad_request"})
			return
		}

		userID := c.GetString(ContextUserID)
		result, err := svc.Compose(c.Request.Context(), userID, req.Prompt)
		if err != nil {
			status, kind := statusForError(err)
			resp := ErrorResponse{Error: err.Error(), Kind: kind}
			if result != nil {
				resp.TaskID = result.TaskID
			}
			c.JSON(status, resp)
			return
		}

		c.JSON(http.StatusOK, ComposeResponse{
			TaskID:     result.TaskID,
			FinalStage: result.FinalStage,
			Content:    result.Content,
			Metadata:   result.Bundle,
			Governance: result.Governance,
		})
	}
}

func handleGovernanceLookup(svc Composer) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("id")
		summary, ok := svc.GovernanceSummary(taskID)
		if !ok {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown task", Kind: "not_found", TaskID: taskID})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func handleStats(svc Composer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Stats())
	}
}

func handleHealth(deps ServerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "healthy"}
		status := http.StatusOK

		if deps.DB != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			dbHealth, err := database.Health(ctx, deps.DB)
			body["database"] = dbHealth
			if err != nil {
				body["status"] = "unhealthy"
				status = http.StatusServiceUnavailable
			}
		}

		if deps.Monitor != nil {
			memory := deps.Monitor.Status()
			body["memory"] = memory
			if memory.State == services.MemoryStateCritical && status == http.StatusOK {
				body["status"] = "degraded"
			}
		}

		c.JSON(status, body)
	}
}

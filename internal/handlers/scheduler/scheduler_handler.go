// internal/handlers/scheduler/scheduler_handler.go
package scheduler

import (
	"net/http"

	"paysandbox-service/internal/pkg/response"
	service "paysandbox-service/internal/service/scheduler"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SchedulerHandler struct {
	scheduler *service.Scheduler
	logger    *zap.Logger
}

func NewSchedulerHandler(scheduler *service.Scheduler, logger *zap.Logger) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// RunTick runs one reminder and renewal pass now. Sandbox users call this
// instead of waiting for the next tick.
func (h *SchedulerHandler) RunTick(c *gin.Context) {
	report, err := h.scheduler.RunOnce(c.Request.Context())
	if err != nil {
		h.logger.Error("manual scheduler tick failed", zap.Error(err))
		response.FromError(c, "scheduler tick failed", err)
		return
	}

	message := "scheduler tick completed"
	if report.Skipped {
		message = "scheduler tick skipped, another instance holds the lock"
	}
	response.Success(c, http.StatusOK, message, report)
}

func (h *SchedulerHandler) Status(c *gin.Context) {
	response.Success(c, http.StatusOK, "scheduler status", gin.H{
		"running":   h.scheduler.Running(),
		"last_tick": h.scheduler.LastTick(),
	})
}

package app

import (
	"net/http"
	"time"

	"github.com/famedu/core/internal/modules/account"
	"github.com/famedu/core/internal/modules/agent"
	"github.com/famedu/core/internal/modules/chat"
	"github.com/famedu/core/internal/modules/gateway"
	"github.com/famedu/core/internal/modules/logic"
	"github.com/famedu/core/internal/modules/message"
	"github.com/famedu/core/internal/modules/profile"
	"github.com/famedu/core/internal/modules/responder"
	"github.com/famedu/core/internal/modules/verification"
	"github.com/famedu/core/internal/pkg/response"
	"github.com/famedu/core/internal/pkg/taskqueue"
	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(taskSvc *taskqueue.Service) *verification.Service {
	r := a.router
	db := a.db

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})

	appInfo := gin.H{
		"name":    "famedu-core",
		"version": "1.0.0",
	}

	// Shared services
	provider := a.cfg.AI.FirstEnabledProvider()
	if provider == nil {
		a.logger.Warn("no enabled AI provider configured, reply generation will fail")
	}
	agentSvc := agent.NewService(db, provider, a.logger.Named("agent"))
	profileSvc := profile.NewService(db, agentSvc, a.logger.Named("profile"))

	respStore := responder.NewGormStore(db)
	respSvc := responder.NewService(respStore, agentSvc, a.logger.Named("responder"),
		responder.WithTaskRecorder(responder.NewQueueRecorder(taskSvc, a.logger.Named("taskqueue"))),
		responder.WithSummarizer(profileSvc),
		responder.WithEvents(a.hub),
	)

	verifySvc := verification.NewService(db, a.cfg.SMS, a.logger.Named("verification"))
	accountSvc := account.NewService(db, verifySvc)
	chatSvc := chat.NewService(db, a.hub)
	msgSvc := message.NewService(db, respSvc, respStore, profileSvc, a.hub, a.logger.Named("message"))
	logicSvc := logic.NewService(db)

	// socket.io lives at the root so clients connect to /socket.io
	root := r.Group("")
	gateway.RegisterRoutes(root, a.hub)

	api := r.Group("/api/v1")

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		uptime := time.Since(processStart)
		c.JSON(http.StatusOK, gin.H{
			"timestamp": uptime.Milliseconds(),
			"humanize":  humanizeDuration(uptime),
		})
	})

	api.GET("/cron", func(c *gin.Context) {
		response.OK(c, a.sched.List())
	})
	api.POST("/cron/:name/run", func(c *gin.Context) {
		if err := a.sched.Run(c.Request.Context(), c.Param("name")); err != nil {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.OK(c, gin.H{"message": "triggered"})
	})

	verification.NewHandler(verifySvc).RegisterRoutes(api)
	account.NewHandler(accountSvc).RegisterRoutes(api)
	chat.NewHandler(chatSvc).RegisterRoutes(api)
	message.NewHandler(msgSvc).RegisterRoutes(api)
	logic.NewHandler(logicSvc).RegisterRoutes(api)
	responder.NewHandler(respSvc, taskSvc).RegisterRoutes(api)

	return verifySvc
}

var processStart = time.Now()

package responder

import (
	"github.com/famedu/core/internal/pkg/pagination"
	"github.com/famedu/core/internal/pkg/response"
	"github.com/famedu/core/internal/pkg/taskqueue"
	"github.com/gin-gonic/gin"
)

// Handler exposes the coordinator's observability surface: counters and the
// generation-task registry.
type Handler struct {
	svc   *Service
	queue *taskqueue.Service
}

func NewHandler(svc *Service, queue *taskqueue.Service) *Handler {
	return &Handler{svc: svc, queue: queue}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/responder")
	g.GET("/stats", h.stats)
	if h.queue != nil {
		g.GET("/tasks", h.tasks)
		g.GET("/tasks/:id", h.task)
	}
}

// GET /responder/stats
func (h *Handler) stats(c *gin.Context) {
	response.OK(c, h.svc.Stats())
}

// GET /responder/tasks?page=N&size=N&chat_id=X&status=S
func (h *Handler) tasks(c *gin.Context) {
	q := pagination.FromContext(c)

	var chatID *string
	if v := c.Query("chat_id"); v != "" {
		chatID = &v
	}
	var status *taskqueue.TaskStatus
	if v := c.Query("status"); v != "" {
		s := taskqueue.TaskStatus(v)
		status = &s
	}

	tasks, total, err := h.queue.List(c.Request.Context(), q.Page, q.Size, chatID, status)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	totalPage := int((total + int64(q.Size) - 1) / int64(q.Size))
	response.Paged(c, tasks, response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: q.Page < totalPage,
	})
}

// GET /responder/tasks/:id
func (h *Handler) task(c *gin.Context) {
	task, err := h.queue.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, task)
}

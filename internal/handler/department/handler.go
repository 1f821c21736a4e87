package department

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"github.com/meditriage/triage-api/internal/model"
	"github.com/meditriage/triage-api/internal/service/triage"
	"github.com/meditriage/triage-api/pkg/httputil"
)

const statusCacheKey = "department_status"

// statusCacheTTL bounds how stale a polled dashboard can read. Routing
// decisions read the capacity tracker directly and never see this cache.
const statusCacheTTL = 2 * time.Second

type Handler struct {
	service triage.TriageService
	cache   *cache.Cache
}

func NewHandler(service triage.TriageService) *Handler {
	return &Handler{
		service: service,
		cache:   cache.New(statusCacheTTL, time.Minute),
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/departments/status", h.GetDepartmentStatus)
}

// GetDepartmentStatus returns capacity for every department. Kiosk screens
// poll this aggressively, so the derived snapshot is cached briefly.
func (h *Handler) GetDepartmentStatus(c *gin.Context) {
	if v, ok := h.cache.Get(statusCacheKey); ok {
		httputil.RespondWithSuccess(c, v.([]model.DepartmentStatus))
		return
	}
	status := h.service.DepartmentStatus(c.Request.Context())
	h.cache.SetDefault(statusCacheKey, status)
	httputil.RespondWithSuccess(c, status)
}

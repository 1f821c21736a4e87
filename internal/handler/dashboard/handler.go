package dashboard

import (
	"github.com/gin-gonic/gin"

	"github.com/meditriage/triage-api/internal/model"
	"github.com/meditriage/triage-api/internal/service/triage"
	"github.com/meditriage/triage-api/pkg/httputil"
)

type Handler struct {
	service triage.TriageService
}

func NewHandler(service triage.TriageService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard", h.GetDashboard)
	r.GET("/symptoms", h.GetSymptoms)
}

func (h *Handler) GetDashboard(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.service.Dashboard(c.Request.Context()))
}

// GetSymptoms lists the accepted symptom codes so intake clients can
// render pickers instead of free-text fields.
func (h *Handler) GetSymptoms(c *gin.Context) {
	httputil.RespondWithSuccess(c, gin.H{"symptoms": model.SymptomOptions})
}

package simulation

import (
	"github.com/gin-gonic/gin"

	"github.com/meditriage/triage-api/internal/model"
	"github.com/meditriage/triage-api/internal/service/simulation"
	"github.com/meditriage/triage-api/internal/service/triage"
	"github.com/meditriage/triage-api/pkg/httputil"
)

type Handler struct {
	service   triage.TriageService
	generator *simulation.Generator
}

func NewHandler(service triage.TriageService, generator *simulation.Generator) *Handler {
	return &Handler{service: service, generator: generator}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/simulation/patients", h.GeneratePatients)
}

type generateRequest struct {
	Count          int  `json:"count" binding:"min=1,max=50"`
	EmergencySpike bool `json:"emergency_spike"`
}

// GeneratePatients admits a batch of synthetic patients through the full
// intake pipeline, for demoing queue and load behavior under a spike.
func (h *Handler) GeneratePatients(c *gin.Context) {
	req := generateRequest{Count: 1}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.RespondWithBadRequest(c, err.Error())
			return
		}
	}

	admitted := make([]*model.PatientResponse, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		payload := h.generator.RandomPatient(req.EmergencySpike)
		resp, err := h.service.Admit(c.Request.Context(), payload)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		admitted = append(admitted, resp)
	}
	httputil.RespondWithCreated(c, gin.H{
		"count":    len(admitted),
		"patients": admitted,
	})
}

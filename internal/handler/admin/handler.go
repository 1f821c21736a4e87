package admin

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/meditriage/triage-api/internal/middleware"
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
	admin := r.Group("/admin")
	{
		admin.GET("/patients", h.ListPatients)
		admin.GET("/patients/export", h.ExportPatients)
	}
}

// ListPatients returns the full history including discharged records,
// optionally filtered by risk tier.
func (h *Handler) ListPatients(c *gin.Context) {
	records, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if risk := c.Query("risk"); risk != "" {
		filtered := records[:0:0]
		for _, rec := range records {
			if string(rec.RiskLevel) == risk {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	httputil.RespondWithSuccess(c, records)
}

var exportColumns = []string{
	"patient_id", "age", "gender", "status", "risk_level", "confidence_score",
	"priority_score", "recommended_department", "routed_department",
	"routing_message", "severity_timeline", "heart_rate",
	"blood_pressure_systolic", "blood_pressure_diastolic", "temperature",
	"spo2", "chronic_disease_count", "respiratory_rate", "pain_score",
	"symptom_duration", "symptoms", "created_at",
}

// ExportPatients streams the triage history as CSV.
func (h *Handler) ExportPatients(c *gin.Context) {
	records, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	risk := c.Query("risk")

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=triage_export.csv")
	c.Status(http.StatusOK)

	if err := writeCSV(c.Writer, records, risk); err != nil {
		// Headers are already gone; a dropped kiosk connection is the
		// usual cause, so log rather than attempt an error response.
		log.Warn().Err(err).Str("request_id", middleware.GetRequestID(c)).
			Msg("csv export interrupted")
	}
}

func writeCSV(out io.Writer, records []*model.PatientRecord, risk string) error {
	w := csv.NewWriter(out)
	if err := w.Write(exportColumns); err != nil {
		return err
	}
	for _, rec := range records {
		if risk != "" && string(rec.RiskLevel) != risk {
			continue
		}
		if err := w.Write(exportRow(rec)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func exportRow(rec *model.PatientRecord) []string {
	return []string{
		rec.Code,
		fmt.Sprintf("%d", rec.Age),
		string(rec.Gender),
		string(rec.Status),
		string(rec.RiskLevel),
		fmt.Sprintf("%.1f", rec.ConfidenceScore),
		fmt.Sprintf("%.1f", rec.PriorityScore),
		rec.RecommendedDepartment,
		strValue(rec.RoutedDepartment),
		strValue(rec.RoutingMessage),
		strValue(rec.SeverityTimeline),
		fmt.Sprintf("%d", rec.HeartRate),
		fmt.Sprintf("%d", rec.SystolicBP),
		fmt.Sprintf("%d", rec.DiastolicBP),
		fmt.Sprintf("%.1f", rec.Temperature),
		fmt.Sprintf("%d", rec.SpO2),
		fmt.Sprintf("%d", rec.ChronicDiseaseCount),
		fmt.Sprintf("%d", rec.RespiratoryRate),
		fmt.Sprintf("%d", rec.PainScore),
		fmt.Sprintf("%.1f", rec.SymptomDurationHours),
		strings.Join(rec.Symptoms, ","),
		rec.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func strValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

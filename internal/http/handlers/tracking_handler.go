// Tracking HTTP handlers.
//
//   - POST /admin/update-tracking                 (admin; append an event)
//   - GET  /tracking/{trackingId}                 (public view)
//   - GET  /tracking/{trackingId}/report.pdf      (public view as PDF)
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/http/middleware"
	"github.com/tbourn/go-shipment-tracker/internal/observability"
	"github.com/tbourn/go-shipment-tracker/internal/report"
	"github.com/tbourn/go-shipment-tracker/internal/services"
)

// UpdateTrackingRequest is the JSON payload for a tracking update.
type UpdateTrackingRequest struct {
	TrackingID  string `json:"trackingId"  binding:"required" example:"LF123456789"`
	Status      string `json:"status"      binding:"required" example:"In Transit"`
	Description string `json:"description" binding:"required" example:"Departed sorting facility"`
	Location    string `json:"location"    binding:"required" example:"Chicago, IL"`
}

// UpdateTrackingResponse returns the appended event.
type UpdateTrackingResponse struct {
	Success bool                 `json:"success" example:"true"`
	Message string               `json:"message" example:"Tracking updated successfully"`
	Event   domain.TrackingEvent `json:"event"`
}

// labelChoices renders the accepted labels for error messages.
func labelChoices() string {
	q := make([]string, len(domain.UpdateLabels))
	for i, l := range domain.UpdateLabels {
		q[i] = strconv.Quote(string(l))
	}
	return strings.Join(q, ", ")
}

// UpdateTracking godoc
// @ID          updateTracking
// @Summary     Append a tracking event
// @Description Appends an event to the shipment and updates its status and current location. Delivered stamps the actual delivery time once.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false "Replays the first successful response"
// @Param       body             body    handlers.UpdateTrackingRequest  true  "Tracking update"
//
// @Success     200  {object}  handlers.UpdateTrackingResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Shipment not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Concurrent update"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/update-tracking [post]
func (h *Handlers) UpdateTracking(c *gin.Context) {
	var req UpdateTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "trackingId, status, description and location are required")
		return
	}
	label := domain.StatusLabel(strings.TrimSpace(req.Status))
	if !label.Known() {
		failFields(c, http.StatusBadRequest, ErrCodeValidation, "validation failed",
			map[string]string{"status": "must be one of " + labelChoices()})
		return
	}

	ev, err := h.trackSvc.UpdateTracking(c.Request.Context(), principal(c), services.UpdateTrackingInput{
		TrackingID:  req.TrackingID,
		Label:       label,
		Description: req.Description,
		Location:    req.Location,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, UpdateTrackingResponse{
		Success: true,
		Message: "Tracking updated successfully",
		Event:   *ev,
	})
}

// GetTracking godoc
// @ID          getTracking
// @Summary     Public tracking view
// @Description Returns the customer-facing view of a shipment, history newest first. No authentication.
// @Tags        Tracking
// @Produce     json
//
// @Param       trackingId  path  string  true  "Tracking ID"  example(LF123456789)
//
// @Success     200  {object} services.TrackingView
// @Failure     404  {object} handlers.ErrorResponse "Shipment not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /tracking/{trackingId} [get]
func (h *Handlers) GetTracking(c *gin.Context) {
	v, err := h.viewSvc.Get(c.Request.Context(), c.Param("trackingId"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}

// GetTrackingReport godoc
// @ID          getTrackingReport
// @Summary     Tracking report (PDF)
// @Description Renders the public tracking view as a downloadable PDF.
// @Tags        Tracking
// @Produce     application/pdf
//
// @Param       trackingId  path  string  true  "Tracking ID"  example(LF123456789)
//
// @Success     200  {file}   file
// @Failure     404  {object} handlers.ErrorResponse "Shipment not found"
// @Failure     500  {object} handlers.ErrorResponse "Render failed"
// @Router      /tracking/{trackingId}/report.pdf [get]
func (h *Handlers) GetTrackingReport(c *gin.Context) {
	v, err := h.viewSvc.Get(c.Request.Context(), c.Param("trackingId"))
	if err != nil {
		failErr(c, err)
		return
	}
	b, err := h.reports.RenderBytes(*v)
	observability.ReportsRendered.WithLabelValues(observability.Result(err)).Inc()
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Str("tracking_id", v.TrackingID).Msg("report render failed")
		fail(c, http.StatusInternalServerError, ErrCodeReportFailed, "failed to render report")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+report.Filename(v.TrackingID)+`"`)
	c.Data(http.StatusOK, "application/pdf", b)
}

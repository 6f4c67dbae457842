// Shipment HTTP handlers.
//
// This file exposes the admin REST endpoints for shipment resources:
//   - POST   /admin/shipments        (create)
//   - GET    /admin/shipments        (list, search, paginated, ETag support)
//   - DELETE /admin/shipments/{id}   (delete with its history)
//
// Handlers are transport-thin: they decode input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shipment-tracker/internal/auth"
	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/http/middleware"
	"github.com/tbourn/go-shipment-tracker/internal/services"
)

//
// Service contracts (context-aware)
//

// ShipmentService defines the admin shipment lifecycle consumed by handlers.
type ShipmentService interface {
	// Create registers a shipment with its sender and creation event.
	Create(ctx context.Context, p auth.Principal, in services.CreateShipmentInput) (*domain.Shipment, error)
	// ListPage returns a page of shipments matching search and the total count.
	ListPage(ctx context.Context, p auth.Principal, search string, page, pageSize int) ([]domain.Shipment, int64, error)
	// Stats returns the count and latest update time used to build list ETags.
	Stats(ctx context.Context, search string) (int64, *time.Time, error)
	// Delete removes a shipment and its tracking history.
	Delete(ctx context.Context, p auth.Principal, id string) error
}

// TrackingService applies tracking updates.
type TrackingService interface {
	UpdateTracking(ctx context.Context, p auth.Principal, in services.UpdateTrackingInput) (*domain.TrackingEvent, error)
}

// ViewService serves the public tracking view.
type ViewService interface {
	Get(ctx context.Context, trackingID string) (*services.TrackingView, error)
}

// ContactService relays website contact submissions.
type ContactService interface {
	Submit(ctx context.Context, in services.ContactInput) error
}

// ReportRenderer renders a tracking view as a PDF document.
type ReportRenderer interface {
	RenderBytes(v services.TrackingView) ([]byte, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	shipSvc    ShipmentService
	trackSvc   TrackingService
	viewSvc    ViewService
	contactSvc ContactService
	reports    ReportRenderer
}

// New constructs a Handlers instance bound to the given services.
func New(ship ShipmentService, track TrackingService, view ViewService, contact ContactService, reports ReportRenderer) *Handlers {
	return &Handlers{shipSvc: ship, trackSvc: track, viewSvc: view, contactSvc: contact, reports: reports}
}

// principal returns the caller resolved by the auth middleware.
func principal(c *gin.Context) auth.Principal {
	return middleware.PrincipalFrom(c)
}

//
// DTOs
//

// CreateShipmentRequest is the JSON payload for creating a shipment.
type CreateShipmentRequest struct {
	// TrackingID is optional; one is generated when empty.
	TrackingID  string `json:"trackingId"  example:"LF123456789"`
	Origin      string `json:"origin"      example:"New York, NY"`
	Destination string `json:"destination" example:"Chicago, IL"`
	// EstimatedDelivery accepts RFC 3339 or a plain YYYY-MM-DD date.
	EstimatedDelivery string `json:"estimatedDelivery" example:"2025-04-10"`
	Service           string `json:"service"           example:"Express"`
	Weight            string `json:"weight"            example:"2.5 kg"`
	Dimensions        string `json:"dimensions"        example:"30x20x10 cm"`
	NextUpdate        string `json:"nextUpdate"`

	RecipientName    string `json:"recipientName"`
	RecipientCompany string `json:"recipientCompany"`
	RecipientAddress string `json:"recipientAddress"`
	RecipientPhone   string `json:"recipientPhone"`

	SenderName    string `json:"senderName"`
	SenderCompany string `json:"senderCompany"`
	SenderPhone   string `json:"senderPhone"`
	SenderEmail   string `json:"senderEmail"`
}

// ShipmentRef identifies a newly created shipment.
type ShipmentRef struct {
	ID         string `json:"id"`
	TrackingID string `json:"trackingId"`
}

// CreateShipmentResponse acknowledges a create.
type CreateShipmentResponse struct {
	Success  bool        `json:"success"  example:"true"`
	Message  string      `json:"message"  example:"Shipment created successfully"`
	Shipment ShipmentRef `json:"shipment"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListShipmentsResponse wraps a page of shipments and pagination information.
// Each shipment carries its sender and at most its latest event.
type ListShipmentsResponse struct {
	Shipments  []domain.Shipment `json:"shipments"`
	Pagination Pagination        `json:"pagination"`
}

//
// Helpers
//

// maxPageSize bounds page_size on the admin list.
const maxPageSize = 100

// listQuery is the admin list query string. Pages start at 1; page_size is
// clamped to [1, maxPageSize].
type listQuery struct {
	Q        string `form:"q"`
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
}

// bindListQuery binds and bounds the list query. Non-numeric paging values
// are rejected rather than silently defaulted.
func bindListQuery(c *gin.Context) (listQuery, error) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return q, err
	}
	q.Q = strings.TrimSpace(q.Q)
	q.Page = max(q.Page, 1)
	q.PageSize = min(max(q.PageSize, 1), maxPageSize)
	return q, nil
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// parseDelivery accepts RFC 3339 timestamps and HTML date-input values.
func parseDelivery(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// listETag is weak and changes whenever a matching shipment is added,
// removed or updated. The page window is part of it so pages never share a tag.
func listETag(search string, count int64, maxTS *time.Time, page, pageSize int) string {
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(search))))
	return fmt.Sprintf(`W/"shipments:%08x:%d:%d:%d:%d"`, h.Sum32(), count, ts, page, pageSize)
}

//
// Handlers
//

// CreateShipment godoc
// @ID          createShipment
// @Summary     Create a shipment
// @Description Registers a shipment with its sender and an initial "Shipment Created" event. The tracking id is generated when omitted.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false "Replays the first successful response"  example(create-7f9c)
// @Param       body             body    handlers.CreateShipmentRequest  true  "Create shipment payload"
//
// @Success     201  {object}  handlers.CreateShipmentResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     409  {object}  handlers.ErrorResponse  "Duplicate tracking id"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/shipments [post]
func (h *Handlers) CreateShipment(c *gin.Context) {
	var req CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	eta, valid := parseDelivery(req.EstimatedDelivery)
	if !valid {
		failFields(c, http.StatusBadRequest, ErrCodeValidation, "validation failed",
			map[string]string{"estimatedDelivery": "must be a date (YYYY-MM-DD) or RFC 3339 timestamp"})
		return
	}

	sh, err := h.shipSvc.Create(c.Request.Context(), principal(c), services.CreateShipmentInput{
		TrackingID:        req.TrackingID,
		Origin:            req.Origin,
		Destination:       req.Destination,
		Service:           req.Service,
		Weight:            req.Weight,
		Dimensions:        req.Dimensions,
		NextUpdate:        req.NextUpdate,
		EstimatedDelivery: eta,
		RecipientName:     req.RecipientName,
		RecipientCompany:  req.RecipientCompany,
		RecipientAddress:  req.RecipientAddress,
		RecipientPhone:    req.RecipientPhone,
		SenderName:        req.SenderName,
		SenderCompany:     req.SenderCompany,
		SenderPhone:       req.SenderPhone,
		SenderEmail:       req.SenderEmail,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, CreateShipmentResponse{
		Success:  true,
		Message:  "Shipment created successfully",
		Shipment: ShipmentRef{ID: sh.ID, TrackingID: sh.TrackingID},
	})
}

// ListShipments godoc
// @ID          listShipments
// @Summary     List shipments (paginated)
// @Description Returns shipments newest first with their sender and latest event. Supports a case-insensitive search over tracking id, recipient name and destination, and a weak ETag via If-None-Match.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       q              query   string  false "Search text"                 example(chicago)
// @Param       page           query   int     false "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListShipmentsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/shipments [get]
func (h *Handlers) ListShipments(c *gin.Context) {
	ctx := c.Request.Context()
	p := principal(c)
	q, err := bindListQuery(c)
	if err != nil {
		failFields(c, http.StatusBadRequest, ErrCodeValidation, "validation failed",
			map[string]string{"page": "page and page_size must be integers"})
		return
	}
	search, page, pageSize := q.Q, q.Page, q.PageSize

	// ETag pre-check (best effort).
	if p.IsAdmin() {
		if count, maxTS, err := h.shipSvc.Stats(ctx, search); err == nil {
			etag := listETag(search, count, maxTS, page, pageSize)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.shipSvc.ListPage(ctx, p, search, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}

	ok(c, http.StatusOK, ListShipmentsResponse{
		Shipments:  items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// DeleteShipment godoc
// @ID          deleteShipment
// @Summary     Delete a shipment
// @Description Deletes a shipment and its tracking history. The sender record is kept.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Shipment ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.SuccessResponse
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     404  {object} handlers.ErrorResponse "Shipment not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/shipments/{id} [delete]
func (h *Handlers) DeleteShipment(c *gin.Context) {
	if err := h.shipSvc.Delete(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	succeed(c, http.StatusOK, "Shipment deleted")
}

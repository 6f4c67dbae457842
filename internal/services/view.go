// Package services – TrackingViewService
//
// The public tracking view is the customer-facing projection of a shipment:
// display-formatted status, sender and recipient blocks, and the full event
// history most-recent-first with date and time strings rendered in the
// configured display zone. Lookup by tracking id is intentionally public.
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/internal/config"
	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/observability"
	"github.com/tbourn/go-shipment-tracker/internal/repo"
)

// Display layouts for event date and time strings.
const (
	DateLayout = "Jan 2, 2006"
	TimeLayout = "03:04 PM"
)

const notAvailable = "N/A"

// ViewCache stores public views under the key built by ViewKey.
// Implementations must be safe for concurrent use; misses return (false, nil).
type ViewCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
}

// ViewKey is the cache key of the view of trackingID at version. Every
// tracking update bumps the version, so a view built before an update can
// only land under a key that readers no longer ask for.
func ViewKey(trackingID string, version int) string {
	return trackingID + "@" + strconv.Itoa(version)
}

type noCache struct{}

func (noCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (noCache) Set(context.Context, string, any) error         { return nil }
func (noCache) Delete(context.Context, string) error           { return nil }

func orNoCache(c ViewCache) ViewCache {
	if c == nil {
		return noCache{}
	}
	return c
}

// Party is the sender block of the public view.
type Party struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
}

// Recipient is the receiver block of the public view.
type Recipient struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// EventView is one history entry with display strings.
type EventView struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Timestamp   time.Time `json:"timestamp"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Completed   bool      `json:"completed"`
}

// TrackingView is the public tracking response.
type TrackingView struct {
	TrackingID        string      `json:"trackingId"`
	Status            string      `json:"status"`
	StatusText        string      `json:"statusText"`
	Origin            string      `json:"origin"`
	Destination       string      `json:"destination"`
	EstimatedDelivery time.Time   `json:"estimatedDelivery"`
	ActualDelivery    *time.Time  `json:"actualDelivery,omitempty"`
	Service           string      `json:"service"`
	Weight            string      `json:"weight"`
	Dimensions        string      `json:"dimensions"`
	CurrentLocation   string      `json:"currentLocation"`
	NextUpdate        string      `json:"nextUpdate"`
	Sender            Party       `json:"sender"`
	Recipient         Recipient   `json:"recipient"`
	Events            []EventView `json:"events"`
}

// StatusSlug renders a status for CSS-style use: IN_TRANSIT -> in-transit.
func StatusSlug(s domain.ShipmentStatus) string {
	return strings.ReplaceAll(strings.ToLower(string(s)), "_", "-")
}

// StatusText renders a status for display: IN_TRANSIT -> IN TRANSIT.
func StatusText(s domain.ShipmentStatus) string {
	return strings.ReplaceAll(string(s), "_", " ")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

// BuildView projects a shipment loaded with its sender and events (most
// recent first) into the public view. loc controls date/time strings.
func BuildView(sh *domain.Shipment, loc *time.Location, fallback config.SenderIdentity) TrackingView {
	if loc == nil {
		loc = time.UTC
	}
	v := TrackingView{
		TrackingID:        sh.TrackingID,
		Status:            StatusSlug(sh.Status),
		StatusText:        StatusText(sh.Status),
		Origin:            sh.Origin,
		Destination:       sh.Destination,
		EstimatedDelivery: sh.EstimatedDelivery.UTC(),
		Service:           sh.Service,
		Weight:            sh.Weight,
		Dimensions:        sh.Dimensions,
		CurrentLocation:   sh.CurrentLocation,
		NextUpdate:        sh.NextUpdate,
		Recipient: Recipient{
			Name:    sh.RecipientName,
			Company: orNA(sh.RecipientCompany),
			Address: sh.RecipientAddress,
			Phone:   sh.RecipientPhone,
		},
		Events: make([]EventView, 0, len(sh.Events)),
	}
	if sh.ActualDelivery != nil {
		ad := sh.ActualDelivery.UTC()
		v.ActualDelivery = &ad
	}
	if sh.Sender != nil {
		v.Sender = Party{Name: orNA(sh.Sender.Name), Company: orNA(sh.Sender.Company), Phone: orNA(sh.Sender.Phone)}
	} else {
		v.Sender = Party{Name: fallback.Name, Company: fallback.Company, Phone: fallback.Phone}
	}
	for _, ev := range sh.Events {
		ts := ev.Timestamp.UTC()
		local := ts.In(loc)
		v.Events = append(v.Events, EventView{
			ID:          ev.ID,
			Status:      ev.Status,
			Description: ev.Description,
			Location:    ev.Location,
			Timestamp:   ts,
			Date:        local.Format(DateLayout),
			Time:        local.Format(TimeLayout),
			Completed:   ev.Completed,
		})
	}
	return v
}

// TrackingViewService serves public views, optionally through a cache.
type TrackingViewService struct {
	DB       *gorm.DB
	Cache    ViewCache
	Location *time.Location
	Fallback config.SenderIdentity
}

// NewTrackingViewService constructs a TrackingViewService. cache may be nil.
func NewTrackingViewService(db *gorm.DB, cache ViewCache, loc *time.Location, fallback config.SenderIdentity) *TrackingViewService {
	return &TrackingViewService{DB: db, Cache: orNoCache(cache), Location: loc, Fallback: fallback}
}

// Get returns the public view for trackingID or ErrShipmentNotFound. The
// current version is read first so a cached view is only served while no
// later update has committed. Cache errors degrade to a datastore read.
func (s *TrackingViewService) Get(ctx context.Context, trackingID string) (*TrackingView, error) {
	ctx, span := observability.Tracer("services/TrackingViewService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("shipment.tracking_id", trackingID)),
	)
	defer span.End()

	trackingID = strings.ToUpper(strings.TrimSpace(trackingID))
	if trackingID == "" {
		return nil, ErrShipmentNotFound
	}

	version, err := repo.ShipmentVersion(ctx, s.DB, trackingID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrShipmentNotFound
	}
	if err != nil {
		return nil, err
	}

	var cached TrackingView
	hit, err := s.Cache.Get(ctx, ViewKey(trackingID, version), &cached)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("view cache read failed")
	}
	if hit {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return &cached, nil
	}

	sh, err := repo.GetShipmentWithHistory(ctx, s.DB, trackingID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrShipmentNotFound
	}
	if err != nil {
		return nil, err
	}
	v := BuildView(sh, s.Location, s.Fallback)

	if err := s.Cache.Set(ctx, ViewKey(sh.TrackingID, sh.Version), v); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("view cache write failed")
	}
	return &v, nil
}

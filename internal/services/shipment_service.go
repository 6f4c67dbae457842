// Package services – ShipmentService
//
// ShipmentService owns the shipment lifecycle used by the admin console:
// create (shipment, sender and the creation event in one transaction), the
// paginated listing, and delete (shipment plus its events, keeping the
// sender). Every mutation takes the authenticated principal explicitly.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/internal/auth"
	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/observability"
	"github.com/tbourn/go-shipment-tracker/internal/repo"
	"github.com/tbourn/go-shipment-tracker/internal/trackid"
)

// Defaults applied to optional create fields.
const (
	DefaultService    = "Ground Shipping"
	DefaultWeight     = "N/A"
	DefaultDimensions = "N/A"
	DefaultNextUpdate = "Awaiting pickup"
)

// CreateShipmentInput is the admin create request after transport decoding.
type CreateShipmentInput struct {
	TrackingID        string    `json:"trackingId"        validate:"omitempty,max=32"`
	Origin            string    `json:"origin"            validate:"required,max=255"`
	Destination       string    `json:"destination"       validate:"required,max=255"`
	Service           string    `json:"service"           validate:"max=128"`
	Weight            string    `json:"weight"            validate:"max=64"`
	Dimensions        string    `json:"dimensions"        validate:"max=128"`
	NextUpdate        string    `json:"nextUpdate"        validate:"max=255"`
	EstimatedDelivery time.Time `json:"estimatedDelivery" validate:"required"`

	RecipientName    string `json:"recipientName"    validate:"required,max=255"`
	RecipientCompany string `json:"recipientCompany" validate:"max=255"`
	RecipientAddress string `json:"recipientAddress" validate:"required"`
	RecipientPhone   string `json:"recipientPhone"   validate:"required,max=64"`

	SenderName    string `json:"senderName"    validate:"required,max=255"`
	SenderCompany string `json:"senderCompany" validate:"max=255"`
	SenderPhone   string `json:"senderPhone"   validate:"required,max=64"`
	SenderEmail   string `json:"senderEmail"   validate:"omitempty,email"`
}

func (in *CreateShipmentInput) normalize() {
	for _, f := range []*string{
		&in.TrackingID, &in.Origin, &in.Destination, &in.Service, &in.Weight,
		&in.Dimensions, &in.NextUpdate, &in.RecipientName, &in.RecipientCompany,
		&in.RecipientAddress, &in.RecipientPhone, &in.SenderName,
		&in.SenderCompany, &in.SenderPhone, &in.SenderEmail,
	} {
		*f = strings.TrimSpace(*f)
	}
	in.TrackingID = strings.ToUpper(in.TrackingID)
	if in.Service == "" {
		in.Service = DefaultService
	}
	if in.Weight == "" {
		in.Weight = DefaultWeight
	}
	if in.Dimensions == "" {
		in.Dimensions = DefaultDimensions
	}
	if in.NextUpdate == "" {
		in.NextUpdate = DefaultNextUpdate
	}
}

// ShipmentService coordinates shipment persistence for admin operations.
type ShipmentService struct {
	DB        *gorm.DB
	IDs       *trackid.Generator
	Cache     ViewCache
	validator *validator.Validate
	// exists reports whether a tracking id is already stored.
	exists trackid.ExistsFunc
}

// insertAttempts bounds how often a generated id is replaced after losing an
// insert race.
const insertAttempts = 3

// NewShipmentService constructs a ShipmentService. cache may be nil.
func NewShipmentService(db *gorm.DB, ids *trackid.Generator, cache ViewCache) *ShipmentService {
	if ids == nil {
		ids = trackid.New("LF")
	}
	s := &ShipmentService{DB: db, IDs: ids, Cache: orNoCache(cache), validator: newValidator()}
	s.exists = func(ctx context.Context, id string) (bool, error) {
		return repo.TrackingIDExists(ctx, s.DB, id)
	}
	return s
}

// Create validates in, assigns a tracking id when none was given, and writes
// the sender, the shipment and its "Shipment Created" event atomically.
func (s *ShipmentService) Create(ctx context.Context, p auth.Principal, in CreateShipmentInput) (*domain.Shipment, error) {
	ctx, span := observability.Tracer("services/ShipmentService").Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", p.UserID)),
	)
	defer span.End()

	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	in.normalize()
	if err := s.validator.StructCtx(ctx, in); err != nil {
		return nil, fromValidator(err)
	}

	out, err := s.insertWithID(ctx, in)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("shipment.tracking_id", out.TrackingID))

	observability.ShipmentsCreated.Inc()
	log.Ctx(ctx).Info().Str("tracking_id", out.TrackingID).Str("user_id", p.UserID).Msg("shipment created")
	return out, nil
}

// insertWithID writes in under the caller's tracking id, or under a generated
// one. A generated id that loses an insert race to a concurrent create is
// marked taken and replaced rather than reported as a duplicate.
func (s *ShipmentService) insertWithID(ctx context.Context, in CreateShipmentInput) (*domain.Shipment, error) {
	if in.TrackingID != "" {
		return s.insert(ctx, in)
	}
	lost := map[string]struct{}{}
	taken := func(ctx context.Context, id string) (bool, error) {
		if _, ok := lost[id]; ok {
			return true, nil
		}
		return s.exists(ctx, id)
	}
	for attempt := 1; ; attempt++ {
		id, err := s.IDs.Next(ctx, taken)
		if err != nil {
			return nil, err
		}
		in.TrackingID = id
		out, err := s.insert(ctx, in)
		if !errors.Is(err, ErrDuplicateTrackingID) || attempt == insertAttempts {
			return out, err
		}
		lost[id] = struct{}{}
		log.Ctx(ctx).Warn().Str("tracking_id", id).Int("attempt", attempt).Msg("generated tracking id taken at insert, regenerating")
	}
}

// insert writes the sender, the shipment and its creation event in one
// transaction.
func (s *ShipmentService) insert(ctx context.Context, in CreateShipmentInput) (*domain.Shipment, error) {
	var out *domain.Shipment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		snd := &domain.Sender{
			Name:    in.SenderName,
			Company: in.SenderCompany,
			Phone:   in.SenderPhone,
			Email:   in.SenderEmail,
		}
		if err := repo.CreateSender(ctx, tx, snd); err != nil {
			return err
		}

		sid := snd.ID
		sh := &domain.Shipment{
			TrackingID:        in.TrackingID,
			Status:            domain.StatusPending,
			Origin:            in.Origin,
			Destination:       in.Destination,
			CurrentLocation:   in.Origin,
			EstimatedDelivery: in.EstimatedDelivery.UTC(),
			Service:           in.Service,
			Weight:            in.Weight,
			Dimensions:        in.Dimensions,
			NextUpdate:        in.NextUpdate,
			RecipientName:     in.RecipientName,
			RecipientCompany:  in.RecipientCompany,
			RecipientAddress:  in.RecipientAddress,
			RecipientPhone:    in.RecipientPhone,
			SenderID:          &sid,
		}
		if err := repo.CreateShipment(ctx, tx, sh); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrDuplicateTrackingID
			}
			return err
		}

		ev := &domain.TrackingEvent{
			ShipmentID:  sh.ID,
			Status:      string(domain.LabelCreated),
			Description: "Shipment created and awaiting pickup from " + in.Origin,
			Location:    in.Origin,
			Completed:   true,
		}
		if err := repo.AppendEvent(ctx, tx, ev); err != nil {
			return err
		}

		sh.Sender = snd
		sh.Events = []domain.TrackingEvent{*ev}
		out = sh
		return nil
	})
	return out, err
}

// ListPage returns shipments newest first, each with its sender and latest
// event, plus the total number matching search.
func (s *ShipmentService) ListPage(ctx context.Context, p auth.Principal, search string, page, pageSize int) ([]domain.Shipment, int64, error) {
	ctx, span := observability.Tracer("services/ShipmentService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if err := requireAdmin(p); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountShipments(ctx, s.DB, search)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Shipment{}, 0, nil
	}
	items, err := repo.ListShipmentsPage(ctx, s.DB, search, offset, pageSize)
	return items, total, err
}

// Stats returns the aggregate used for list ETags.
func (s *ShipmentService) Stats(ctx context.Context, search string) (int64, *time.Time, error) {
	return repo.ShipmentsStats(ctx, s.DB, search)
}

// Delete removes the shipment with internal id and all of its events. The
// sender row is kept. The cached public view is dropped after commit.
func (s *ShipmentService) Delete(ctx context.Context, p auth.Principal, id string) error {
	ctx, span := observability.Tracer("services/ShipmentService").Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("shipment.id", id)),
	)
	defer span.End()

	if err := requireAdmin(p); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return invalid("id", "is required")
	}

	var (
		trackingID string
		version    int
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sh, err := repo.GetShipmentByID(ctx, tx, id)
		if err != nil {
			return err
		}
		trackingID, version = sh.TrackingID, sh.Version
		return repo.DeleteShipment(ctx, tx, id)
	})
	if errors.Is(err, repo.ErrNotFound) {
		return ErrShipmentNotFound
	}
	if err != nil {
		span.RecordError(err)
		return err
	}

	observability.ShipmentsDeleted.Inc()
	if cerr := s.Cache.Delete(ctx, ViewKey(trackingID, version)); cerr != nil {
		log.Ctx(ctx).Warn().Err(cerr).Str("tracking_id", trackingID).Msg("view cache invalidation failed")
	}
	log.Ctx(ctx).Info().Str("tracking_id", trackingID).Str("user_id", p.UserID).Msg("shipment deleted")
	return nil
}

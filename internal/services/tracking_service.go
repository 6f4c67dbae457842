// Package services – TrackingService
//
// TrackingService applies an operator's tracking update: it appends the event
// and moves the shipment's denormalized status and location in a single
// transaction guarded by the shipment version. After commit it drops the
// cached public view and, when enabled, emails the sender. Neither side
// effect can undo the committed update.
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/internal/auth"
	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/mailer"
	"github.com/tbourn/go-shipment-tracker/internal/observability"
	"github.com/tbourn/go-shipment-tracker/internal/repo"
)

// updateAttempts is the number of times the update transaction runs before
// giving up on version conflicts or transient datastore errors.
const updateAttempts = 2

// notifyTimeout bounds the post-commit notification email.
const notifyTimeout = 10 * time.Second

// UpdateTrackingInput is an operator tracking update.
type UpdateTrackingInput struct {
	TrackingID  string             `json:"trackingId"  validate:"required,max=32"`
	Label       domain.StatusLabel `json:"status"      validate:"required,max=64"`
	Description string             `json:"description" validate:"required"`
	Location    string             `json:"location"    validate:"required,max=255"`
}

// TrackingService applies tracking updates.
type TrackingService struct {
	DB       *gorm.DB
	Cache    ViewCache
	Mailer   mailer.Sender
	Notify   bool
	Location *time.Location
	// Tasks, when set, tracks post-commit notifications so shutdown can
	// wait for them before closing the datastore.
	Tasks *sync.WaitGroup

	validator *validator.Validate
	// async runs post-commit work; tests replace it to run inline.
	async func(func())
}

// NewTrackingService constructs a TrackingService. cache and m may be nil;
// notify enables the sender status email.
func NewTrackingService(db *gorm.DB, cache ViewCache, m mailer.Sender, notify bool, loc *time.Location) *TrackingService {
	if m == nil {
		m = mailer.Noop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &TrackingService{
		DB:        db,
		Cache:     orNoCache(cache),
		Mailer:    m,
		Notify:    notify,
		Location:  loc,
		validator: newValidator(),
	}
	s.async = s.spawn
	return s
}

func (s *TrackingService) spawn(f func()) {
	if s.Tasks == nil {
		go f()
		return
	}
	s.Tasks.Add(1)
	go func() {
		defer s.Tasks.Done()
		f()
	}()
}

// UpdateTracking appends an event for in.Label and updates the shipment's
// status and current location as one unit. actualDelivery is stamped with
// the event time on the first Delivered update only.
//
// Version conflicts and transient datastore errors rerun the whole
// transaction once; if it still fails the result is ErrConcurrentUpdate.
func (s *TrackingService) UpdateTracking(ctx context.Context, p auth.Principal, in UpdateTrackingInput) (*domain.TrackingEvent, error) {
	ctx, span := observability.Tracer("services/TrackingService").Start(ctx, "UpdateTracking",
		trace.WithAttributes(
			attribute.String("shipment.tracking_id", in.TrackingID),
			attribute.String("tracking.label", string(in.Label)),
			attribute.String("user.id", p.UserID),
		),
	)
	defer span.End()

	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	in.TrackingID = strings.ToUpper(strings.TrimSpace(in.TrackingID))
	in.Label = domain.StatusLabel(strings.TrimSpace(string(in.Label)))
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	if err := s.validator.StructCtx(ctx, in); err != nil {
		return nil, fromValidator(err)
	}

	var (
		sh  *domain.Shipment
		ev  *domain.TrackingEvent
		err error
	)
	for attempt := 1; attempt <= updateAttempts; attempt++ {
		sh, ev, err = s.apply(ctx, in)
		if err == nil || !retryable(err) {
			break
		}
		span.AddEvent("retry", trace.WithAttributes(attribute.Int("attempt", attempt)))
		log.Ctx(ctx).Warn().Err(err).Int("attempt", attempt).Str("tracking_id", in.TrackingID).Msg("tracking update retry")
	}
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrNotFound):
		return nil, ErrShipmentNotFound
	case retryable(err):
		span.RecordError(err)
		return nil, ErrConcurrentUpdate
	default:
		span.RecordError(err)
		return nil, err
	}

	status := MapLabel(in.Label)
	observability.TrackingUpdates.WithLabelValues(string(status)).Inc()
	// the new version already misses; drop the superseded entry
	if cerr := s.Cache.Delete(ctx, ViewKey(sh.TrackingID, sh.Version-1)); cerr != nil {
		log.Ctx(ctx).Warn().Err(cerr).Str("tracking_id", sh.TrackingID).Msg("view cache invalidation failed")
	}
	log.Ctx(ctx).Info().
		Str("tracking_id", sh.TrackingID).
		Str("label", string(in.Label)).
		Str("status", string(status)).
		Msg("tracking updated")

	if s.Notify && sh.SenderID != nil {
		s.notify(ctx, sh, *ev)
	}
	return ev, nil
}

// apply runs one attempt of the update transaction.
func (s *TrackingService) apply(ctx context.Context, in UpdateTrackingInput) (*domain.Shipment, *domain.TrackingEvent, error) {
	var (
		sh *domain.Shipment
		ev *domain.TrackingEvent
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := repo.GetShipmentByTrackingID(ctx, tx, in.TrackingID)
		if err != nil {
			return err
		}

		pr := project(cur, in.Label, in.Description, in.Location)
		e := pr.Event
		if err := repo.AppendEvent(ctx, tx, &e); err != nil {
			return err
		}

		var delivered *time.Time
		if pr.Delivered {
			ts := e.Timestamp
			delivered = &ts
		}
		if err := repo.UpdateShipmentTracking(ctx, tx, cur.ID, cur.Version, pr.Status, pr.Location, delivered); err != nil {
			return err
		}

		cur.Status = pr.Status
		cur.CurrentLocation = pr.Location
		cur.Version++
		if delivered != nil {
			cur.ActualDelivery = delivered
		}
		sh, ev = cur, &e
		return nil
	})
	return sh, ev, err
}

// notify emails the shipment's sender about ev. It never fails the update.
func (s *TrackingService) notify(ctx context.Context, sh *domain.Shipment, ev domain.TrackingEvent) {
	lg := log.Ctx(ctx).With().Str("tracking_id", sh.TrackingID).Logger()
	bg := context.WithoutCancel(ctx)
	senderID := *sh.SenderID

	s.async(func() {
		ctx, cancel := context.WithTimeout(bg, notifyTimeout)
		defer cancel()

		snd, err := repo.GetSenderByID(ctx, s.DB, senderID)
		if err != nil || strings.TrimSpace(snd.Email) == "" {
			return
		}
		local := ev.Timestamp.In(s.Location)
		msg, err := mailer.TrackingUpdateNotice(snd.Email, mailer.TrackingUpdate{
			TrackingID:  sh.TrackingID,
			Label:       ev.Status,
			Description: ev.Description,
			Location:    ev.Location,
			When:        local.Format(DateLayout) + " " + local.Format(TimeLayout),
			Recipient:   sh.RecipientName,
		})
		if err == nil {
			err = s.Mailer.Send(ctx, msg)
		}
		observability.EmailsSent.WithLabelValues("tracking_update", observability.Result(err)).Inc()
		if err != nil {
			lg.Warn().Err(err).Msg("tracking notification failed")
		}
	})
}

// retryable reports whether err warrants rerunning the update transaction.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, repo.ErrVersionConflict) {
		return true
	}
	return repo.IsTransient(err)
}

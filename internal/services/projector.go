package services

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-shipment-tracker/internal/auth"
	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

// MapLabel projects an operator label onto the canonical shipment status.
// Unrecognized labels fall back to IN_TRANSIT.
func MapLabel(label domain.StatusLabel) domain.ShipmentStatus {
	switch label {
	case domain.LabelCreated, domain.LabelReceived:
		return domain.StatusPending
	case domain.LabelInTransit, domain.LabelOutForDelivery:
		return domain.StatusInTransit
	case domain.LabelDelivered:
		return domain.StatusDelivered
	case domain.LabelDelayed:
		return domain.StatusDelayed
	case domain.LabelException:
		return domain.StatusException
	default:
		return domain.StatusInTransit
	}
}

// projection is what one tracking update writes.
type projection struct {
	Event    domain.TrackingEvent
	Status   domain.ShipmentStatus
	Location string
	// Delivered is true when this update should stamp actualDelivery.
	Delivered bool
}

// project builds the writes for applying label to sh. actualDelivery is set
// only on the first Delivered update and never changed afterwards.
func project(sh *domain.Shipment, label domain.StatusLabel, description, location string) projection {
	return projection{
		Event: domain.TrackingEvent{
			ShipmentID:  sh.ID,
			Status:      string(label),
			Description: description,
			Location:    location,
			Completed:   true,
		},
		Status:    MapLabel(label),
		Location:  location,
		Delivered: label == domain.LabelDelivered && sh.ActualDelivery == nil,
	}
}

// newValidator returns a validator that reports json field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// requireAdmin checks the principal before any mutation.
func requireAdmin(p auth.Principal) error {
	if p.UserID == "" {
		return ErrUnauthorized
	}
	if !p.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

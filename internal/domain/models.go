// Package domain defines the persistence models for shipments, their senders,
// and the append-only tracking event log. These types are mapped with GORM
// and form the core data layer of the tracking service.
package domain

import "time"

// ShipmentStatus is the canonical, denormalized state of a shipment.
type ShipmentStatus string

const (
	StatusPending   ShipmentStatus = "PENDING"
	StatusInTransit ShipmentStatus = "IN_TRANSIT"
	StatusDelivered ShipmentStatus = "DELIVERED"
	StatusDelayed   ShipmentStatus = "DELAYED"
	StatusException ShipmentStatus = "EXCEPTION"
)

// Valid reports whether s is one of the known statuses.
func (s ShipmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInTransit, StatusDelivered, StatusDelayed, StatusException:
		return true
	}
	return false
}

// Sender holds the originating party's contact details. A sender row is
// created together with the shipment that references it and is not shared.
type Sender struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	Company   string    `json:"company"    gorm:"type:varchar(255);not null;default:''"`
	Phone     string    `json:"phone"      gorm:"type:varchar(64);not null"`
	Email     string    `json:"email"      gorm:"type:varchar(255);not null;default:''"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName returns the database table name for Sender.
func (Sender) TableName() string { return "senders" }

// Shipment is the tracked parcel. Status and CurrentLocation mirror the most
// recently applied tracking update; the event log is the source of truth.
//
// Fields:
//   - ID: internal UUID primary key, never shown to customers.
//   - TrackingID: customer-facing identifier (unique index).
//   - Version: incremented on every tracking update for compare-and-swap.
//   - ActualDelivery: set once, on the first "Delivered" update.
//   - SenderID: owning sender; deleting a shipment keeps the sender row.
type Shipment struct {
	ID                string         `json:"id"                gorm:"type:char(36);primaryKey"`
	TrackingID        string         `json:"trackingId"        gorm:"type:varchar(32);not null;uniqueIndex:ux_shipments_tracking_id"`
	Status            ShipmentStatus `json:"status"            gorm:"type:varchar(16);not null;default:'PENDING';check:status IN ('PENDING','IN_TRANSIT','DELIVERED','DELAYED','EXCEPTION')"`
	Origin            string         `json:"origin"            gorm:"type:varchar(255);not null"`
	Destination       string         `json:"destination"       gorm:"type:varchar(255);not null"`
	CurrentLocation   string         `json:"currentLocation"   gorm:"type:varchar(255);not null"`
	EstimatedDelivery time.Time      `json:"estimatedDelivery" gorm:"not null"`
	ActualDelivery    *time.Time     `json:"actualDelivery"`
	Service           string         `json:"service"           gorm:"type:varchar(128);not null"`
	Weight            string         `json:"weight"            gorm:"type:varchar(64);not null"`
	Dimensions        string         `json:"dimensions"        gorm:"type:varchar(128);not null"`
	NextUpdate        string         `json:"nextUpdate"        gorm:"type:varchar(255);not null;default:''"`
	RecipientName     string         `json:"recipientName"     gorm:"type:varchar(255);not null"`
	RecipientCompany  string         `json:"recipientCompany"  gorm:"type:varchar(255);not null;default:''"`
	RecipientAddress  string         `json:"recipientAddress"  gorm:"type:text;not null"`
	RecipientPhone    string         `json:"recipientPhone"    gorm:"type:varchar(64);not null"`
	SenderID          *string        `json:"senderId"          gorm:"type:char(36);index"`
	Version           int            `json:"version"           gorm:"not null;default:1"`
	CreatedAt         time.Time      `json:"createdAt"         gorm:"index:idx_shipments_created"`
	UpdatedAt         time.Time      `json:"updatedAt"`

	// Sender is loaded for list and view projections. The sender outlives
	// the shipment, so the reference is nulled rather than cascaded.
	Sender *Sender `json:"sender,omitempty" gorm:"foreignKey:SenderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`

	// Events are ordered most-recent-first when preloaded by the repository
	// and are cascade-deleted with the shipment.
	Events []TrackingEvent `json:"events,omitempty" gorm:"foreignKey:ShipmentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Shipment.
func (Shipment) TableName() string { return "shipments" }

// TrackingEvent is one immutable entry in a shipment's history. Status is
// the free-text label the operator chose, not the canonical status.
type TrackingEvent struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	ShipmentID  string    `json:"shipmentId"  gorm:"type:char(36);not null;index:idx_events_shipment_ts,priority:1"`
	Status      string    `json:"status"      gorm:"type:varchar(64);not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Location    string    `json:"location"    gorm:"type:varchar(255);not null"`
	Timestamp   time.Time `json:"timestamp"   gorm:"not null;index:idx_events_shipment_ts,priority:2"`
	Completed   bool      `json:"completed"   gorm:"not null"`
}

// TableName returns the database table name for TrackingEvent.
func (TrackingEvent) TableName() string { return "tracking_events" }

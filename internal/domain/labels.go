package domain

// StatusLabel is the operator-facing label attached to a tracking update.
// It is stored verbatim on the TrackingEvent and mapped onto a
// ShipmentStatus when the update is applied.
type StatusLabel string

const (
	LabelCreated        StatusLabel = "Shipment Created"
	LabelReceived       StatusLabel = "Package Received"
	LabelInTransit      StatusLabel = "In Transit"
	LabelOutForDelivery StatusLabel = "Out for Delivery"
	LabelDelivered      StatusLabel = "Delivered"
	LabelDelayed        StatusLabel = "Delayed"
	LabelException      StatusLabel = "Exception"
)

// UpdateLabels lists the labels an operator may choose for a tracking update,
// in the order the admin console presents them.
var UpdateLabels = []StatusLabel{
	LabelReceived,
	LabelInTransit,
	LabelOutForDelivery,
	LabelDelivered,
	LabelDelayed,
	LabelException,
}

// Known reports whether l is one of UpdateLabels.
func (l StatusLabel) Known() bool {
	for _, k := range UpdateLabels {
		if l == k {
			return true
		}
	}
	return false
}

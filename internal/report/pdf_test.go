package report

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-shipment-tracker/internal/services"
)

func sampleView(events int) services.TrackingView {
	ts := time.Date(2025, 4, 2, 14, 30, 0, 0, time.UTC)
	v := services.TrackingView{
		TrackingID:        "LF123456789",
		Status:            "in-transit",
		StatusText:        "IN TRANSIT",
		Origin:            "New York, NY",
		Destination:       "São Paulo, BR",
		EstimatedDelivery: ts.Add(72 * time.Hour),
		Service:           "Ground Shipping",
		Weight:            "N/A",
		Dimensions:        "N/A",
		CurrentLocation:   "Chicago, IL",
		Sender:            services.Party{Name: "Sam", Company: "N/A", Phone: "555"},
		Recipient:         services.Recipient{Name: "Rita", Company: "N/A", Address: "1 Main St", Phone: "556"},
	}
	for i := 0; i < events; i++ {
		at := ts.Add(-time.Duration(i) * time.Hour)
		v.Events = append(v.Events, services.EventView{
			ID: fmt.Sprint(i), Status: "In Transit", Description: "Departed facility with a reasonably long description line",
			Location: "Hub " + fmt.Sprint(i), Timestamp: at, Date: at.Format(services.DateLayout), Time: at.Format(services.TimeLayout), Completed: true,
		})
	}
	return v
}

func TestRender_ProducesPDF(t *testing.T) {
	r := New(Options{Company: "Velox Logistics", Now: func() time.Time { return time.Date(2025, 4, 3, 9, 0, 0, 0, time.UTC) }})

	b, err := r.RenderBytes(sampleView(3))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")), "missing PDF header")
	assert.True(t, bytes.Contains(b[len(b)-64:], []byte("%%EOF")), "missing PDF trailer")
}

func TestRender_LongHistoryBreaksPages(t *testing.T) {
	r := New(Options{})
	short, err := r.RenderBytes(sampleView(1))
	require.NoError(t, err)
	long, err := r.RenderBytes(sampleView(60))
	require.NoError(t, err)

	assert.Equal(t, 1, bytes.Count(short, []byte("/Type /Page\n")))
	assert.Greater(t, bytes.Count(long, []byte("/Type /Page\n")), 1)
}

func TestRender_DeliveredAndUnknownStatus(t *testing.T) {
	v := sampleView(0)
	ad := time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
	v.ActualDelivery = &ad
	v.Status = "delivered"
	v.StatusText = "DELIVERED"
	_, err := New(Options{}).RenderBytes(v)
	require.NoError(t, err)

	v.Status = "mystery"
	_, err = New(Options{}).RenderBytes(v)
	require.NoError(t, err)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "tracking-LF1.pdf", Filename("LF1"))
}

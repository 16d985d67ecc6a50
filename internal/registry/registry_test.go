package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kfish-market/auction-service/internal/models"
)

func TestProductStore(t *testing.T) {
	s := NewProductStore()

	_, ok := s.Get("nope")
	require.False(t, ok)

	p := &models.Product{ID: "p1", Species: "mackerel", QualityStatus: models.QualityNotAssessed}
	s.Add(p)
	s.Add(&models.Product{ID: "p2", Species: "squid", QualityStatus: models.QualityNotAssessed})

	got, ok := s.Get("p1")
	require.True(t, ok)
	require.Equal(t, "mackerel", got.Species)

	// The store owns its records: mutating a returned copy changes nothing.
	got.Species = "tampered"
	fresh, _ := s.Get("p1")
	require.Equal(t, "mackerel", fresh.Species)

	list := s.List()
	require.Len(t, list, 2)
	require.Equal(t, "p1", list[0].ID)
	require.Equal(t, "p2", list[1].ID)
}

func TestProductStoreSetQuality(t *testing.T) {
	s := NewProductStore()
	s.Add(&models.Product{ID: "p1", QualityStatus: models.QualityPendingVerification})

	v := &models.QualityVerification{VerifiedBy: "4", Status: "verified", VerifiedAt: time.Now()}
	p, ok := s.SetQuality("p1", "verified", v)
	require.True(t, ok)
	require.Equal(t, "verified", p.QualityStatus)
	require.Equal(t, "4", p.QualityVerify.VerifiedBy)

	_, ok = s.SetQuality("nope", "verified", v)
	require.False(t, ok)
}

func TestBidLogOrder(t *testing.T) {
	l := NewBidLog()
	require.Empty(t, l.ForAuction("a1"))

	for i := 0; i < 5; i++ {
		l.Append(&models.Bid{
			ID:        string(rune('a' + i)),
			AuctionID: "a1",
			Amount:    float64(100 + i),
			Timestamp: time.Now(),
		})
	}
	l.Append(&models.Bid{ID: "other", AuctionID: "a2", Amount: 1})

	bids := l.ForAuction("a1")
	require.Len(t, bids, 5)
	for i := 1; i < len(bids); i++ {
		require.Less(t, bids[i-1].Amount, bids[i].Amount)
	}
	require.Len(t, l.ForAuction("a2"), 1)
}

func TestDeliveryStoreUpdate(t *testing.T) {
	s := NewDeliveryStore()

	_, ok := s.Update("nope", func(d *models.Delivery) {})
	require.False(t, ok)

	s.Add(&models.Delivery{
		ID:     "d1",
		Status: models.DeliveryPreparing,
		Timeline: []models.TimelineEntry{
			{Status: models.DeliveryPreparing, Timestamp: time.Now()},
		},
	})

	updated, ok := s.Update("d1", func(d *models.Delivery) {
		d.Status = models.DeliveryInTransit
		d.Timeline = append(d.Timeline, models.TimelineEntry{Status: models.DeliveryInTransit, Timestamp: time.Now()})
	})
	require.True(t, ok)
	require.Equal(t, models.DeliveryInTransit, updated.Status)
	require.Len(t, updated.Timeline, 2)

	// Returned copies do not alias the stored timeline.
	updated.Timeline[0].Status = models.DeliveryDelivered
	fresh, _ := s.Get("d1")
	require.Equal(t, models.DeliveryPreparing, fresh.Timeline[0].Status)

	require.Len(t, s.List(), 1)
}

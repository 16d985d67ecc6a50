package auction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/kfish-market/auction-service/internal/broker"
	"github.com/kfish-market/auction-service/internal/delivery"
	"github.com/kfish-market/auction-service/internal/models"
	"github.com/kfish-market/auction-service/internal/registry"
)

type directoryFixture struct {
	directory  *Directory
	broker     *broker.Broker
	clock      *clockwork.FakeClock
	deliveries *registry.DeliveryStore
}

func newDirectoryFixture(t *testing.T, countdown time.Duration) *directoryFixture {
	t.Helper()

	fc := clockwork.NewFakeClock()
	b := broker.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go b.Run(ctx)

	deliveries := registry.NewDeliveryStore()
	sim := delivery.NewSimulator(deliveries, b, fc, 5*time.Second, 10*time.Second)

	d := NewDirectory(DirectoryConfig{
		Bids:       registry.NewBidLog(),
		Deliveries: deliveries,
		Broker:     b,
		Simulator:  sim,
		Clock:      fc,
		Countdown:  countdown,
		Ctx:        ctx,
	})
	return &directoryFixture{directory: d, broker: b, clock: fc, deliveries: deliveries}
}

func nextEvent(t *testing.T, sub *broker.Subscription) models.Event {
	t.Helper()
	select {
	case env, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return env.Event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return models.Event{}
	}
}

func requireNoEvent(t *testing.T, sub *broker.Subscription) {
	t.Helper()
	select {
	case env := <-sub.Events():
		t.Fatalf("unexpected event %q", env.Event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDirectoryCreate(t *testing.T) {
	f := newDirectoryFixture(t, 0)

	a := f.directory.Create("product-1", 10000, "")
	require.Equal(t, models.AuctionPending, a.Status)
	require.Equal(t, float64(10000), a.StartPrice)
	require.Equal(t, float64(10000), a.CurrentPrice)
	require.Equal(t, "Busan", a.Location)
	require.Nil(t, a.HighestBidder)
	require.Nil(t, a.EndTime)

	got, err := f.directory.Get(a.ID)
	require.NoError(t, err)
	require.Equal(t, a, got)
}

func TestDirectoryUnknownAuction(t *testing.T) {
	f := newDirectoryFixture(t, 0)

	_, err := f.directory.Get("nope")
	require.ErrorIs(t, err, ErrAuctionNotFound)
	_, err = f.directory.Start("nope")
	require.ErrorIs(t, err, ErrAuctionNotFound)
	_, err = f.directory.End("nope")
	require.ErrorIs(t, err, ErrAuctionNotFound)
	_, err = f.directory.PlaceBid("nope", "b1", 100)
	require.ErrorIs(t, err, ErrAuctionNotFound)
	_, err = f.directory.Bids("nope")
	require.ErrorIs(t, err, ErrAuctionNotFound)
}

func TestDirectoryListLive(t *testing.T) {
	f := newDirectoryFixture(t, 0)

	a1 := f.directory.Create("p1", 100, "Busan")
	a2 := f.directory.Create("p2", 100, "Mokpo")
	f.directory.Create("p3", 100, "Incheon")

	_, err := f.directory.Start(a1.ID)
	require.NoError(t, err)
	_, err = f.directory.Start(a2.ID)
	require.NoError(t, err)
	_, err = f.directory.End(a2.ID)
	require.NoError(t, err)

	require.Len(t, f.directory.List(), 3)
	live := f.directory.ListLive()
	require.Len(t, live, 1)
	require.Equal(t, a1.ID, live[0].ID)
}

// The full flow of one auction: every state change reaches a room
// subscriber in publish order, and ending with a winner creates exactly
// one preparing delivery.
func TestDirectoryFullFlow(t *testing.T) {
	f := newDirectoryFixture(t, 0)

	a := f.directory.Create("product-1", 10000, "Busan")
	sub := f.broker.Join(a.ID)

	_, err := f.directory.Start(a.ID)
	require.NoError(t, err)

	_, err = f.directory.PlaceBid(a.ID, "b1", 10000)
	require.Error(t, err)
	bid, err := f.directory.PlaceBid(a.ID, "b1", 12000)
	require.NoError(t, err)
	_, err = f.directory.PlaceBid(a.ID, "b2", 11000)
	require.Error(t, err)

	endedAt := f.clock.Now()
	_, err = f.directory.End(a.ID)
	require.NoError(t, err)

	ev := nextEvent(t, sub)
	require.Equal(t, models.EventAuctionStarted, ev.Type)
	started := ev.Payload.(*models.Auction)
	require.Equal(t, models.AuctionLive, started.Status)

	ev = nextEvent(t, sub)
	require.Equal(t, models.EventBidPlaced, ev.Type)
	placed := ev.Payload.(models.BidPlacedPayload)
	require.Equal(t, bid.ID, placed.Bid.ID)
	require.Equal(t, float64(12000), placed.Bid.Amount)
	require.Equal(t, float64(12000), placed.Auction.CurrentPrice)
	require.Equal(t, "b1", *placed.Auction.HighestBidder)

	ev = nextEvent(t, sub)
	require.Equal(t, models.EventAuctionEnded, ev.Type)
	ended := ev.Payload.(*models.Auction)
	require.Equal(t, models.AuctionEnded, ended.Status)
	require.NotNil(t, ended.EndTime)

	requireNoEvent(t, sub)

	deliveries := f.deliveries.List()
	require.Len(t, deliveries, 1)
	dl := deliveries[0]
	require.Equal(t, models.DeliveryPreparing, dl.Status)
	require.Equal(t, a.ID, dl.AuctionID)
	require.Equal(t, "product-1", dl.ProductID)
	require.Equal(t, busanOrigin, dl.CurrentLocation)
	require.Equal(t, float64(initialTemp), dl.Temperature)
	require.Equal(t, endedAt.Add(arrivalEstimate), dl.EstimatedArrival)
	require.Len(t, dl.Timeline, 1)
	require.Equal(t, models.DeliveryPreparing, dl.Timeline[0].Status)

	bids, err := f.directory.Bids(a.ID)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	require.Equal(t, bid.ID, bids[0].ID)
}

func TestDirectoryEndWithoutWinner(t *testing.T) {
	f := newDirectoryFixture(t, 0)

	a := f.directory.Create("product-1", 10000, "Busan")
	_, err := f.directory.Start(a.ID)
	require.NoError(t, err)
	_, err = f.directory.End(a.ID)
	require.NoError(t, err)

	require.Empty(t, f.deliveries.List())
}

func TestDirectoryCountdownEndsAuction(t *testing.T) {
	f := newDirectoryFixture(t, 30*time.Second)

	a := f.directory.Create("product-1", 10000, "Busan")
	sub := f.broker.Join(a.ID)

	_, err := f.directory.Start(a.ID)
	require.NoError(t, err)
	require.Equal(t, models.EventAuctionStarted, nextEvent(t, sub).Type)

	f.clock.BlockUntil(1)
	f.clock.Advance(30 * time.Second)

	require.Equal(t, models.EventAuctionEnded, nextEvent(t, sub).Type)

	got, err := f.directory.Get(a.ID)
	require.NoError(t, err)
	require.Equal(t, models.AuctionEnded, got.Status)
}

// An administrative end racing the countdown timer: whichever loses sees
// InvalidPhaseError, and exactly one auction_ended event is published.
func TestDirectoryEndIsIdempotentUnderRace(t *testing.T) {
	f := newDirectoryFixture(t, 0)

	a := f.directory.Create("product-1", 10000, "Busan")
	sub := f.broker.Join(a.ID)
	_, err := f.directory.Start(a.ID)
	require.NoError(t, err)
	_, err = f.directory.PlaceBid(a.ID, "b1", 12000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.directory.End(a.ID)
		}()
	}
	// The timer path swallows the duplicate as a benign no-op.
	f.directory.endFromTimer(a.ID)
	wg.Wait()

	require.Equal(t, models.EventAuctionStarted, nextEvent(t, sub).Type)
	require.Equal(t, models.EventBidPlaced, nextEvent(t, sub).Type)
	require.Equal(t, models.EventAuctionEnded, nextEvent(t, sub).Type)
	requireNoEvent(t, sub)

	// Exactly one delivery despite five end attempts.
	require.Len(t, f.deliveries.List(), 1)
}

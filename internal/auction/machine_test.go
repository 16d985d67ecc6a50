package auction

import (
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kfish-market/auction-service/internal/models"
)

func pendingAuction(startPrice float64) models.Auction {
	return models.Auction{
		ID:           "auction-1",
		ProductID:    "product-1",
		StartPrice:   startPrice,
		CurrentPrice: startPrice,
		Status:       models.AuctionPending,
		Location:     "Busan",
		StartTime:    time.Now(),
	}
}

func TestMachineLifecycle(t *testing.T) {
	m := NewMachine(pendingAuction(10000))
	now := time.Now()

	a, err := m.Start(now)
	require.NoError(t, err)
	require.Equal(t, models.AuctionLive, a.Status)
	require.Equal(t, now, a.StartTime)
	require.Nil(t, a.EndTime)

	ended := now.Add(time.Minute)
	a, hasWinner, err := m.End(ended)
	require.NoError(t, err)
	require.Equal(t, models.AuctionEnded, a.Status)
	require.False(t, hasWinner)
	require.NotNil(t, a.EndTime)
	require.Equal(t, ended, *a.EndTime)
}

func TestMachineStartRequiresPending(t *testing.T) {
	m := NewMachine(pendingAuction(10000))
	_, err := m.Start(time.Now())
	require.NoError(t, err)

	_, err = m.Start(time.Now())
	var phaseErr *InvalidPhaseError
	require.ErrorAs(t, err, &phaseErr)
	require.Equal(t, models.AuctionLive, phaseErr.Status)
}

func TestMachineEndRequiresLive(t *testing.T) {
	m := NewMachine(pendingAuction(10000))

	_, _, err := m.End(time.Now())
	var phaseErr *InvalidPhaseError
	require.ErrorAs(t, err, &phaseErr)
	require.Equal(t, models.AuctionPending, phaseErr.Status)
}

func TestMachineEndIsFirstCallerOnly(t *testing.T) {
	m := NewMachine(pendingAuction(10000))
	_, err := m.Start(time.Now())
	require.NoError(t, err)

	var okCount, phaseCount int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := m.End(time.Now())
			mu.Lock()
			defer mu.Unlock()
			var phaseErr *InvalidPhaseError
			switch {
			case err == nil:
				okCount++
			case errors.As(err, &phaseErr):
				phaseCount++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, okCount)
	require.Equal(t, 7, phaseCount)
}

func TestMachineBidPhaseGating(t *testing.T) {
	m := NewMachine(pendingAuction(10000))

	_, _, err := m.PlaceBid("b1", 20000, time.Now())
	require.ErrorIs(t, err, ErrAuctionNotLive)

	_, err = m.Start(time.Now())
	require.NoError(t, err)
	_, _, err = m.End(time.Now())
	require.NoError(t, err)

	_, _, err = m.PlaceBid("b1", 20000, time.Now())
	require.ErrorIs(t, err, ErrAuctionNotLive)

	// A rejected bid never mutates state.
	a := m.Snapshot()
	require.Equal(t, float64(10000), a.CurrentPrice)
	require.Nil(t, a.HighestBidder)
}

// Worked end to end at the machine level: equal amounts are rejected,
// strictly higher amounts commit, lower amounts are rejected afterwards.
func TestMachineBidArbitration(t *testing.T) {
	m := NewMachine(pendingAuction(10000))
	_, err := m.Start(time.Now())
	require.NoError(t, err)

	_, _, err = m.PlaceBid("b1", 10000, time.Now())
	var lowErr *BidTooLowError
	require.ErrorAs(t, err, &lowErr)
	require.Equal(t, float64(10000), lowErr.CurrentPrice)

	a, bid, err := m.PlaceBid("b1", 12000, time.Now())
	require.NoError(t, err)
	require.Equal(t, float64(12000), a.CurrentPrice)
	require.NotNil(t, a.HighestBidder)
	require.Equal(t, "b1", *a.HighestBidder)
	require.Equal(t, float64(12000), bid.Amount)
	require.Equal(t, "auction-1", bid.AuctionID)

	_, _, err = m.PlaceBid("b2", 11000, time.Now())
	require.ErrorAs(t, err, &lowErr)
	require.Equal(t, float64(12000), lowErr.CurrentPrice)

	a, hasWinner, err := m.End(time.Now())
	require.NoError(t, err)
	require.True(t, hasWinner)
	require.Equal(t, "b1", *a.HighestBidder)
}

func TestMachineMonotonicPrice(t *testing.T) {
	m := NewMachine(pendingAuction(100))
	_, err := m.Start(time.Now())
	require.NoError(t, err)

	prev := float64(100)
	for _, amount := range []float64{150, 150, 120, 200, 199, 201} {
		a, _, err := m.PlaceBid("b", amount, time.Now())
		if amount > prev {
			require.NoError(t, err)
			require.Equal(t, amount, a.CurrentPrice)
			prev = amount
			continue
		}
		var lowErr *BidTooLowError
		require.ErrorAs(t, err, &lowErr)
		require.Equal(t, prev, m.Snapshot().CurrentPrice)
	}
}

// N concurrent bids with distinct amounts: the maximum always commits, the
// final price is the maximum, and the accepted amounts are unique.
func TestMachineSingleWinnerUnderRace(t *testing.T) {
	m := NewMachine(pendingAuction(100))
	_, err := m.Start(time.Now())
	require.NoError(t, err)

	const n = 64
	var mu sync.Mutex
	accepted := make([]float64, 0, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		amount := float64(101 + i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := m.PlaceBid("bidder", amount, time.Now()); err == nil {
				mu.Lock()
				accepted = append(accepted, amount)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	max := float64(100 + n)
	require.Equal(t, max, m.Snapshot().CurrentPrice)
	require.Contains(t, accepted, max)

	// Accepted amounts are all distinct: ties can never both win.
	sort.Float64s(accepted)
	for i := 1; i < len(accepted); i++ {
		require.Less(t, accepted[i-1], accepted[i])
	}
}

func TestMachineSnapshotDoesNotAlias(t *testing.T) {
	m := NewMachine(pendingAuction(100))
	_, err := m.Start(time.Now())
	require.NoError(t, err)
	_, _, err = m.PlaceBid("b1", 200, time.Now())
	require.NoError(t, err)

	snap := m.Snapshot()
	*snap.HighestBidder = "tampered"
	snap.CurrentPrice = 1

	fresh := m.Snapshot()
	require.Equal(t, "b1", *fresh.HighestBidder)
	require.Equal(t, float64(200), fresh.CurrentPrice)
}

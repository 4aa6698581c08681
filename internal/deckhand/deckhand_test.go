package deckhand

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/83ace42/fish-tycoon/internal/api"
	"github.com/83ace42/fish-tycoon/internal/auction"
	"github.com/83ace42/fish-tycoon/internal/ecology"
	"github.com/83ace42/fish-tycoon/internal/economy"
	"github.com/83ace42/fish-tycoon/internal/engine"
	"github.com/83ace42/fish-tycoon/internal/entropy"
	"github.com/83ace42/fish-tycoon/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func snapshot(phase engine.Phase, shore, deep float64) *engine.Snapshot {
	return &engine.Snapshot{
		Phase:     phase,
		Round:     1,
		ShipCost:  300,
		ShipValue: 400,
		Price:     5,
		Ecology: ecology.State{
			Shore: shore, Deep: deep,
			ShoreCapacity: 800, DeepCapacity: 1200,
		},
		Participants: []engine.Participant{
			{ID: "me", Name: "Me", Cash: 1000, Ships: 3, LastCatch: 40},
			{ID: "rival", Name: "Rival", Cash: 1000, Ships: 4},
		},
	}
}

func TestAssess(t *testing.T) {
	o := Assess(snapshot(engine.PhaseFishing, 400, 600), "me")
	assert.InDelta(t, 0.5, o.ShoreDensity, 1e-9)
	assert.InDelta(t, 0.5, o.StockDensity, 1e-9)
	assert.Equal(t, "HEALTHY", o.Condition)
	assert.Equal(t, 1, o.Rivals)
	assert.Equal(t, 4, o.RivalShips)

	assert.Equal(t, "STRAINED", Assess(snapshot(engine.PhaseFishing, 200, 400), "me").Condition)
	assert.Equal(t, "DEPLETED", Assess(snapshot(engine.PhaseFishing, 100, 100), "me").Condition)
}

func TestDecideShipyard(t *testing.T) {
	s := DefaultStrategy()
	var book Logbook

	d, _ := s.Decide(snapshot(engine.PhaseShipyard, 400, 600), "me", &book)
	assert.Equal(t, engine.ShipOrder{Quantity: 1}, d)

	d, _ = s.Decide(snapshot(engine.PhaseShipyard, 200, 400), "me", &book)
	assert.Equal(t, engine.ShipOrder{}, d)

	poor := snapshot(engine.PhaseShipyard, 400, 600)
	poor.Participants[0].Cash = 800
	d, _ = s.Decide(poor, "me", &book)
	assert.Equal(t, engine.ShipOrder{}, d, "keeps two ship prices in reserve")
}

func TestDecideDeployment(t *testing.T) {
	s := DefaultStrategy()
	var book Logbook

	d, _ := s.Decide(snapshot(engine.PhaseFishing, 400, 600), "me", &book)
	dep := d.(engine.Deployment)
	assert.Equal(t, 3, dep.Shore+dep.Deep+dep.Harbor)
	assert.Zero(t, dep.Harbor)

	d, _ = s.Decide(snapshot(engine.PhaseFishing, 100, 100), "me", &book)
	dep = d.(engine.Deployment)
	assert.Equal(t, 3, dep.Shore+dep.Deep+dep.Harbor)
	assert.Equal(t, 2, dep.Harbor, "a depleted ocean keeps most ships in port")

	d, _ = s.Decide(snapshot(engine.PhaseFishing, 0, 0), "me", &book)
	assert.Equal(t, engine.Deployment{Harbor: 3}, d)
}

func TestDecideContractFromLogbook(t *testing.T) {
	s := DefaultStrategy()
	snap := snapshot(engine.PhaseFishing, 400, 600)
	snap.Contract = &economy.Contract{Quantity: 35, UnitPrice: 6}

	var book Logbook
	d, _ := s.Decide(snap, "me", &book)
	assert.False(t, d.(engine.Deployment).AcceptContract, "no history yet")

	book.Add(RoundRecord{Round: 1, Catch: 40})
	book.Add(RoundRecord{Round: 2, Catch: 38})
	d, _ = s.Decide(snap, "me", &book)
	assert.True(t, d.(engine.Deployment).AcceptContract)
}

func TestDecideStorage(t *testing.T) {
	s := DefaultStrategy()
	var book Logbook

	snap := snapshot(engine.PhaseStorage, 400, 600)
	d, _ := s.Decide(snap, "me", &book)
	assert.Equal(t, engine.Storage{}, d)
	require.Len(t, book.Records, 1)
	assert.Equal(t, 40.0, book.Records[0].Catch)

	snap.Price = 2
	snap.Participants[0].Freezer = 5
	d, _ = s.Decide(snap, "me", &book)
	assert.Equal(t, engine.Storage{Freeze: 22}, d)
	assert.Len(t, book.Records, 1, "same round replaces")
}

func TestDecideAuction(t *testing.T) {
	s := DefaultStrategy()
	var book Logbook

	snap := snapshot(engine.PhaseAuctionBid, 400, 600)
	snap.Lots = []auction.Lot{
		{Seller: "rival", Quantity: 1, Reserve: 100},
		{Seller: "rival", Quantity: 1, Reserve: 900},
		{Seller: "me", Quantity: 1, Reserve: 0},
	}
	d, _ := s.Decide(snap, "me", &book)
	assert.Equal(t, engine.Bids{Amounts: map[int]float64{0: 360}}, d)

	snap = snapshot(engine.PhaseAuctionList, 100, 100)
	d, _ = s.Decide(snap, "me", &book)
	assert.Equal(t, engine.Listing{Quantity: 1, Reserve: 400}, d)

	snap = snapshot(engine.PhaseAuctionBid, 100, 100)
	d, _ = s.Decide(snap, "me", &book)
	assert.Equal(t, engine.Bids{Skip: true}, d)
}

func TestDecideIgnoresClosedPhases(t *testing.T) {
	s := DefaultStrategy()
	var book Logbook
	d, _ := s.Decide(snapshot(engine.PhaseLobby, 400, 600), "me", &book)
	assert.Nil(t, d)
	d, _ = s.Decide(snapshot(engine.PhaseFishing, 400, 600), "stranger", &book)
	assert.Nil(t, d)
}

func TestLogbookRing(t *testing.T) {
	var book Logbook
	for i := 1; i <= 15; i++ {
		book.Add(RoundRecord{Round: i, Catch: float64(i)})
	}
	assert.Len(t, book.Records, maxRecords)
	assert.Equal(t, 6, book.Records[0].Round)
	assert.InDelta(t, 14.0, book.AvgCatch(3), 1e-9)
	assert.Zero(t, (&Logbook{}).AvgCatch(3))
}

func TestAPIErrorDecoding(t *testing.T) {
	err := decodeAPIError(409, []byte(`{"accepted":false,"code":"E_PHASE_MISMATCH","error":"session is in FISHING"}`))
	assert.True(t, HasCode(err, "E_PHASE_MISMATCH"))
	assert.False(t, HasCode(err, "E_NOT_HOST"))
	assert.Contains(t, err.Error(), "409")

	err = decodeAPIError(502, []byte("bad gateway"))
	assert.Equal(t, "bad gateway", err.(*APIError).Message)
}

func TestCaptainsPlayFullGame(t *testing.T) {
	coord := session.New(
		session.WithSource(entropy.NewSeeded(7)),
		session.WithSeed(7),
		session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	srv := httptest.NewServer((&api.Server{Coord: coord}).Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	sid, err := NewActor(srv.URL).CreateSession(ctx, 3)
	require.NoError(t, err)

	const crew = 3
	finals := make([]*engine.Snapshot, crew)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < crew; i++ {
		c := NewCaptain(fmt.Sprintf("Bot %d", i+1), srv.URL)
		c.Poll = 5 * time.Millisecond
		c.StartAt = crew
		g.Go(func() error {
			snap, err := c.Run(gctx, sid)
			finals[i] = snap
			return err
		})
	}
	require.NoError(t, g.Wait())

	st, err := NewObserver(srv.URL).Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Active)
	assert.Equal(t, sid, st.SessionID)
	assert.Equal(t, "GAMEOVER", st.Phase)
	assert.Equal(t, crew, st.Captains)

	for _, snap := range finals {
		require.NotNil(t, snap)
		assert.Equal(t, engine.PhaseGameOver, snap.Phase)
		assert.Len(t, snap.Standings, crew)
		assert.Equal(t, 3, snap.Round)
	}
}

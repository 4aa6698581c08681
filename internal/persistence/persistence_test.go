package persistence

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/83ace42/fish-tycoon/internal/ecology"
	"github.com/83ace42/fish-tycoon/internal/economy"
	"github.com/83ace42/fish-tycoon/internal/engine"
)

func fishingResolution(round int) *engine.Resolution {
	price := 14.37
	return &engine.Resolution{
		Round:    round,
		Resolved: engine.PhaseFishing,
		Next:     engine.PhaseStorage,
		Log:      []string{"[Year 1] Fleet returned. Total catch: 48. New Price: $14.37"},
		Price:    &price,
		Catch:    &engine.CatchReport{Total: 48.8, Shares: map[string]engine.Share{"a": {Total: 48.8}}},
		Ecology:  ecology.State{Shore: 297.6, Deep: 453.6, Event: ecology.Calm},
		Ledger: []engine.Participant{
			{ID: "a", Name: "Alice", Cash: 850, Ships: 3, LastCatch: 48.8},
			{ID: "b", Name: "Bob", Cash: 985, Ships: 3},
		},
	}
}

func openDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "harbor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndHistory(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.SaveSession("s1", 1))

	require.NoError(t, db.RecordResolution("s1", fishingResolution(1)))
	require.NoError(t, db.RecordResolution("s1", &engine.Resolution{
		Round: 1, Resolved: engine.PhaseStorage, Next: engine.PhaseGameOver,
		Ecology: ecology.State{Event: ecology.Calm},
	}))

	hist, err := db.History(10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "STORAGE", hist[0].Phase, "newest first")
	assert.False(t, hist[0].Price.Valid)

	fishing := hist[1]
	assert.Equal(t, "FISHING", fishing.Phase)
	assert.True(t, fishing.Price.Valid)
	assert.Equal(t, 14.37, fishing.Price.Float64)
	assert.InDelta(t, 48.8, fishing.TotalCatch.Float64, 1e-9)
	assert.Equal(t, "Calm Seas", fishing.Event)

	ledger, err := db.Ledger(fishing.ID)
	require.NoError(t, err)
	require.Len(t, ledger, 2)
	assert.Equal(t, "Alice", ledger[0].Name)
	assert.Equal(t, 850.0, ledger[0].Cash)

	lines, err := db.LogLines(fishing.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"[Year 1] Fleet returned. Total catch: 48. New Price: $14.37"}, lines)

	finished, err := db.Finished("s1")
	require.NoError(t, err)
	assert.True(t, finished)

	limited, err := db.History(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestFinishedUnknownSession(t *testing.T) {
	db := openDB(t)
	finished, err := db.Finished("nope")
	require.NoError(t, err)
	assert.False(t, finished)
}

func TestHookStoresMeta(t *testing.T) {
	db := openDB(t)
	db.Hook("s9", fishingResolution(2))

	v, err := db.GetMeta("last_session")
	require.NoError(t, err)
	assert.Equal(t, "s9", v)
}

func TestJournalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir, "resolutions")

	require.NoError(t, j.Write("s1", fishingResolution(1)))
	require.NoError(t, j.Write("s1", fishingResolution(2)))
	// switching sessions closes the first file
	require.NoError(t, j.Write("s2", fishingResolution(1)))

	var rounds []int
	require.NoError(t, ReadJournal(j.Path("s1"), func(e Entry) error {
		rounds = append(rounds, e.Resolution.Round)
		return nil
	}))
	assert.Equal(t, []int{1, 2}, rounds)
	require.NoError(t, j.Close())

	files, err := j.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{j.Path("s1"), j.Path("s2")}, files)

	var got []Entry
	require.NoError(t, ReadJournal(j.Path("s2"), func(e Entry) error {
		got = append(got, e)
		return nil
	}))
	require.Len(t, got, 1)
	assert.Equal(t, "s2", got[0].SessionID)
	require.NotNil(t, got[0].Resolution.Price)
	assert.Equal(t, 14.37, *got[0].Resolution.Price)
	assert.Equal(t, "Alice", got[0].Resolution.Ledger[0].Name)
}

func TestJournalAppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir, "resolutions")
	require.NoError(t, j.Write("s1", fishingResolution(1)))
	require.NoError(t, j.Close())

	j = NewJournal(dir, "resolutions")
	require.NoError(t, j.Write("s1", fishingResolution(2)))
	require.NoError(t, j.Close())

	n := 0
	require.NoError(t, ReadJournal(j.Path("s1"), func(Entry) error {
		n++
		return nil
	}))
	assert.Equal(t, 2, n)
}

func storageResolution(round int, next engine.Phase, cash float64) *engine.Resolution {
	return &engine.Resolution{
		Round:    round,
		Resolved: engine.PhaseStorage,
		Next:     next,
		Ecology:  ecology.State{Event: ecology.Calm},
		Settlements: map[string]economy.Settlement{
			"a": {Accepted: true},
			"b": {},
		},
		Ledger: []engine.Participant{
			{ID: "a", Name: "Alice", Cash: cash, Ships: 3, LastCatch: 48.8, Freezer: 10, LastProfit: 551.25},
			{ID: "b", Name: "Bob", Cash: 985, Ships: 4},
		},
	}
}

func TestYearlyRecordsExport(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.SaveSession("s1", 2))
	require.NoError(t, db.SaveSession("s2", 1))

	require.NoError(t, db.RecordResolution("s1", fishingResolution(1)))
	require.NoError(t, db.RecordResolution("s1", storageResolution(1, engine.PhaseAuctionList, 1401.25)))
	require.NoError(t, db.RecordResolution("s2", storageResolution(1, engine.PhaseGameOver, 7)))
	require.NoError(t, db.RecordResolution("s1", storageResolution(2, engine.PhaseGameOver, 1900.5)))

	rows, err := db.YearlyRecords("s1")
	require.NoError(t, err)
	require.Len(t, rows, 4, "two captains, two closed years, fishing rows excluded")
	assert.Equal(t, YearRow{
		Year: 1, ParticipantID: "a", Player: "Alice", Ships: 3,
		Caught: 48.8, Frozen: 10, Accepted: true, Profit: 551.25, Cash: 1401.25,
	}, rows[0])
	assert.Equal(t, "Bob", rows[1].Player)
	assert.False(t, rows[1].Accepted)
	assert.Equal(t, 2, rows[2].Year)

	var buf bytes.Buffer
	require.NoError(t, WriteYearlyCSV(&buf, rows[:2]))
	assert.Equal(t,
		"Year,Player,Ships,Caught,Frozen,Accepted_Contract,Profit,Cash\n"+
			"1,Alice,3,48.80,10.00,true,551.25,1401.25\n"+
			"1,Bob,4,0.00,0.00,false,0.00,985.00\n",
		buf.String())

	hist, err := db.History(10)
	require.NoError(t, err)
	one, err := db.Resolution(hist[0].ID)
	require.NoError(t, err)
	assert.Equal(t, hist[0].ID, one.ID)
	assert.Equal(t, "s1", one.SessionID)
}

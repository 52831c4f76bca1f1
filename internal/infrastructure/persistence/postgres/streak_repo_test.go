package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/streak"
	"github.com/nivesh-labs/nivesh-progress/pkg/timeutil"
)

const testUserID = "2f0c9b1e-4a6d-4c1b-9e3f-8d2a5b7c0d1e"

// ─────────────────────────────────────────────────────────────────────────────
// Querier fake
// ─────────────────────────────────────────────────────────────────────────────

// fakeRow replays one scanned row, the way pgx hands DATE columns back:
// as UTC-midnight time.Time values.
type fakeRow struct {
	vals []interface{}
	err  error
}

func (r *fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch out := d.(type) {
		case *string:
			*out = r.vals[i].(string)
		case *int:
			*out = r.vals[i].(int)
		case *time.Time:
			*out = r.vals[i].(time.Time)
		case **time.Time:
			*out = r.vals[i].(*time.Time)
		default:
			panic("unexpected scan destination")
		}
	}
	return nil
}

type fakeQuerier struct {
	row *fakeRow

	execSQL  string
	execArgs []interface{}
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	q.execSQL = sql
	q.execArgs = args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (q *fakeQuerier) Query(_ context.Context, _ string, _ ...interface{}) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (q *fakeQuerier) QueryRow(_ context.Context, _ string, _ ...interface{}) pgx.Row {
	return q.row
}

// ─────────────────────────────────────────────────────────────────────────────
// Get
// ─────────────────────────────────────────────────────────────────────────────

func TestStreakRepositoryGet_ReanchorsDatesToIST(t *testing.T) {
	// DATE columns scan as UTC midnight regardless of the session zone.
	lastActive := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	brokenAt := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 6, 15, 0, 0, time.UTC)

	repo := &StreakRepository{db: &fakeQuerier{row: &fakeRow{
		vals: []interface{}{testUserID, 3, 9, lastActive, &brokenAt, now, now},
	}}}

	state, err := repo.Get(context.Background(), shared.UserID(testUserID))
	require.NoError(t, err)

	assert.Equal(t, shared.UserID(testUserID), state.UserID)
	assert.Equal(t, 3, state.CurrentStreak)
	assert.Equal(t, 9, state.LongestStreak)

	// The calendar day survives, anchored at IST midnight.
	assert.True(t, state.LastActiveDate.Equal(timeutil.Date(2026, 3, 10)))
	assert.True(t, state.LastActiveDate.Equal(timeutil.StartOfDay(state.LastActiveDate)),
		"stored day must already be day-normalized")
	require.NotNil(t, state.StreakBrokenAt)
	assert.True(t, state.StreakBrokenAt.Equal(timeutil.Date(2026, 3, 7)))

	// Day math over the re-anchored value stays whole-day exact.
	assert.Equal(t, 1, timeutil.DaysBetween(state.LastActiveDate, timeutil.Date(2026, 3, 11)))
}

func TestStreakRepositoryGet_NilBrokenAt(t *testing.T) {
	lastActive := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	now := lastActive.Add(8 * time.Hour)

	repo := &StreakRepository{db: &fakeQuerier{row: &fakeRow{
		vals: []interface{}{testUserID, 1, 1, lastActive, (*time.Time)(nil), now, now},
	}}}

	state, err := repo.Get(context.Background(), shared.UserID(testUserID))
	require.NoError(t, err)
	assert.Nil(t, state.StreakBrokenAt)
}

func TestStreakRepositoryGet_NoRowsMapsToNotFound(t *testing.T) {
	repo := &StreakRepository{db: &fakeQuerier{row: &fakeRow{err: pgx.ErrNoRows}}}

	_, err := repo.Get(context.Background(), shared.UserID(testUserID))
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

// ─────────────────────────────────────────────────────────────────────────────
// Save
// ─────────────────────────────────────────────────────────────────────────────

func TestStreakRepositorySave_WritesDayStrings(t *testing.T) {
	q := &fakeQuerier{}
	repo := &StreakRepository{db: q}

	broken := timeutil.Date(2026, 3, 7)
	state := &streak.State{
		UserID:         shared.UserID(testUserID),
		CurrentStreak:  3,
		LongestStreak:  9,
		LastActiveDate: timeutil.Date(2026, 3, 10),
		StreakBrokenAt: &broken,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	require.NoError(t, repo.Save(context.Background(), state))

	require.Len(t, q.execArgs, 7)
	assert.Equal(t, testUserID, q.execArgs[0])
	assert.Equal(t, 3, q.execArgs[1])
	assert.Equal(t, 9, q.execArgs[2])
	assert.Equal(t, "2026-03-10", q.execArgs[3])
	require.NotNil(t, q.execArgs[4])
	assert.Equal(t, "2026-03-07", *q.execArgs[4].(*string))
}

func TestStreakRepositorySave_NilBrokenAt(t *testing.T) {
	q := &fakeQuerier{}
	repo := &StreakRepository{db: q}

	state := &streak.State{
		UserID:         shared.UserID(testUserID),
		CurrentStreak:  1,
		LongestStreak:  1,
		LastActiveDate: timeutil.Date(2026, 3, 10),
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	require.NoError(t, repo.Save(context.Background(), state))

	require.Len(t, q.execArgs, 7)
	assert.Nil(t, q.execArgs[4])
}

// Round trip: what Save writes, Get must read back as the same IST day.
func TestStreakRepository_DayRoundTrip(t *testing.T) {
	day := timeutil.Date(2026, 3, 10)

	// Postgres returns the stored DATE as UTC midnight of that day.
	stored := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	repo := &StreakRepository{db: &fakeQuerier{row: &fakeRow{
		vals: []interface{}{testUserID, 3, 3, stored, (*time.Time)(nil),
			time.Now().UTC(), time.Now().UTC()},
	}}}

	state, err := repo.Get(context.Background(), shared.UserID(testUserID))
	require.NoError(t, err)
	assert.True(t, state.LastActiveDate.Equal(day))
	assert.Equal(t, "2026-03-10", timeutil.FormatDateStr(state.LastActiveDate))
}

package scheduler

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servertycoon/internal/catalog"
	"servertycoon/internal/clock"
	"servertycoon/internal/engine"
	"servertycoon/internal/store"
)

func testEngine(t *testing.T) (*engine.Engine, *clock.Fake) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return engine.New(store.NewMemory(), catalog.Default(), clk, log), clk
}

func TestSweepAccruesForOnlineFleets(t *testing.T) {
	eng, clk := testEngine(t)
	log := logrus.New()
	log.SetOutput(io.Discard)
	s := New(eng, log, time.Minute)

	ctx := context.Background()
	acct, err := eng.CreateAccount(ctx, "player", "hash")
	require.NoError(t, err)

	// Enough jobs to afford the cheapest server.
	_, err = eng.StartJob(ctx, acct.ID, "migration")
	require.NoError(t, err)
	_, err = eng.PurchaseServer(ctx, acct.ID, "basic-web")
	require.NoError(t, err)

	before, err := eng.Account(ctx, acct.ID)
	require.NoError(t, err)

	clk.Advance(10 * time.Minute)
	s.sweep()

	after, err := eng.Account(ctx, acct.ID)
	require.NoError(t, err)
	assert.Greater(t, after.Balance, before.Balance)
}

func TestStartStop(t *testing.T) {
	eng, _ := testEngine(t)
	log := logrus.New()
	log.SetOutput(io.Discard)

	s := New(eng, log, 10*time.Millisecond)
	require.NoError(t, s.Start())
	time.Sleep(30 * time.Millisecond)
	s.Stop()
}

func TestDefaultInterval(t *testing.T) {
	eng, _ := testEngine(t)
	s := New(eng, logrus.New(), 0)
	assert.Equal(t, time.Minute, s.interval)
}

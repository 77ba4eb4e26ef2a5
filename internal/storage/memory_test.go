package storage

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/essy16/FL-BOT/internal/models"
)

func TestMemoryStoreGetUnknown(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get("+100")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreWithSessionCreates(t *testing.T) {
	store := NewMemoryStore()

	err := store.WithSession("+100", func(s *models.Session) error {
		assert.Equal(t, models.StepIdle, s.Step)
		s.AuthToken = "tok"
		s.Step = models.StepCollateralCurrency
		return nil
	})
	require.NoError(t, err)

	sess, err := store.Get("+100")
	require.NoError(t, err)
	assert.Equal(t, "tok", sess.AuthToken)
	assert.Equal(t, models.StepCollateralCurrency, sess.Step)
}

func TestMemoryStoreErrorDiscardsMutations(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.WithSession("+100", func(s *models.Session) error {
		s.Step = models.StepLtvSelection
		s.DraftEstimate = &models.EstimateParams{FromCode: "BTC"}
		return nil
	}))

	boom := errors.New("estimate failed")
	err := store.WithSession("+100", func(s *models.Session) error {
		s.Step = models.StepEstimateReady
		s.LatestEstimate = s.DraftEstimate
		s.DraftEstimate = nil
		return boom
	})
	assert.ErrorIs(t, err, boom)

	sess, err := store.Get("+100")
	require.NoError(t, err)
	assert.Equal(t, models.StepLtvSelection, sess.Step, "failed update must not change the step")
	assert.Nil(t, sess.LatestEstimate)
	require.NotNil(t, sess.DraftEstimate)
	assert.Equal(t, "BTC", sess.DraftEstimate.FromCode)
}

func TestMemoryStoreGetReturnsSnapshot(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.WithSession("+100", func(s *models.Session) error {
		s.DraftEstimate = &models.EstimateParams{FromCode: "BTC"}
		return nil
	}))

	snap, err := store.Get("+100")
	require.NoError(t, err)
	snap.DraftEstimate.FromCode = "ETH"
	snap.Step = models.StepComplete

	again, err := store.Get("+100")
	require.NoError(t, err)
	assert.Equal(t, "BTC", again.DraftEstimate.FromCode)
	assert.Equal(t, models.StepIdle, again.Step)
}

func TestMemoryStoreSerializesPerUser(t *testing.T) {
	store := NewMemoryStore()

	// The counter is unguarded on purpose: only WithSession's per-user
	// lock keeps the increments from racing.
	counter := 0
	var wg sync.WaitGroup
	const workers, iterations = 10, 100

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				_ = store.WithSession("+100", func(s *models.Session) error {
					counter++
					return nil
				})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*iterations, counter)
}

func TestMemoryStoreResetIdempotent(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.WithSession("+100", func(s *models.Session) error {
		s.AuthToken = "tok"
		s.Step = models.StepWalletPending
		s.LatestEstimate = &models.EstimateParams{FromCode: "BTC"}
		s.CurrentLoanID = "L1"
		return nil
	}))

	require.NoError(t, store.Reset("+100"))
	require.NoError(t, store.Reset("+100"))

	sess, err := store.Get("+100")
	require.NoError(t, err)
	assert.Equal(t, models.StepIdle, sess.Step)
	assert.Nil(t, sess.DraftEstimate)
	assert.Nil(t, sess.LatestEstimate)
	assert.Empty(t, sess.CurrentLoanID)
	assert.Equal(t, "tok", sess.AuthToken, "reset keeps the auth token")
}

func TestMemoryStoreSessions(t *testing.T) {
	store := NewMemoryStore()
	for _, phone := range []string{"+1", "+2", "+3"} {
		require.NoError(t, store.WithSession(phone, func(s *models.Session) error { return nil }))
	}

	sessions, err := store.Sessions()
	require.NoError(t, err)
	assert.Len(t, sessions, 3)
}

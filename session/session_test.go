package session

import (
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wave-portal-tui/portal"
)

var (
	alice = common.HexToAddress("0xA11CE")
	bob   = common.HexToAddress("0xB0B")
)

func wave(msg string, ts int64) portal.Wave {
	return portal.NewWave(common.HexToAddress("0xABC"), big.NewInt(ts), msg, time.UTC)
}

func connected(t *testing.T) *State {
	t.Helper()
	s := &State{}
	s.Apply(AccountsFound{Accounts: []common.Address{alice}})
	require.Equal(t, Connected, s.Mode())
	return s
}

func TestZeroStateIsDisconnected(t *testing.T) {
	var s State
	assert.Equal(t, Disconnected, s.Mode())
	assert.False(t, s.CanSubmit())
	assert.Equal(t, "disconnected", s.Mode().String())
}

func TestAccountsFound(t *testing.T) {
	t.Run("no accounts stays disconnected", func(t *testing.T) {
		s := &State{}
		assert.Zero(t, s.Apply(AccountsFound{}))
		assert.Zero(t, s.Apply(AccountsFound{Accounts: []common.Address{}}))
		assert.Equal(t, Disconnected, s.Mode())
	})

	t.Run("one account connects and fetches once", func(t *testing.T) {
		s := &State{}
		eff := s.Apply(AccountsFound{Accounts: []common.Address{alice}})
		assert.Equal(t, FetchWaves|FetchCount|Subscribe, eff)
		assert.Equal(t, Connected, s.Mode())
		assert.Equal(t, alice, s.Account)

		// a second report of the same grant starts nothing new
		assert.Zero(t, s.Apply(AccountsFound{Accounts: []common.Address{alice}}))
	})

	t.Run("first account is used", func(t *testing.T) {
		s := &State{}
		s.Apply(AccountsFound{Accounts: []common.Address{bob, alice}})
		assert.Equal(t, bob, s.Account)
	})

	t.Run("new grant while connected refetches without resubscribing", func(t *testing.T) {
		s := connected(t)
		eff := s.Apply(AccountsFound{Accounts: []common.Address{bob}})
		assert.Equal(t, FetchWaves|FetchCount, eff)
		assert.False(t, eff.Has(Subscribe))
		assert.Equal(t, bob, s.Account)
	})
}

func TestAccountsChangedEmptyClearsSession(t *testing.T) {
	s := connected(t)
	s.Apply(WavesFetched{Waves: []portal.Wave{wave("a", 1), wave("b", 2)}})
	s.Apply(CountFetched{Count: 2})
	s.Apply(MessageTyped{Message: "draft"})

	eff := s.Apply(AccountsChanged{Accounts: nil})
	assert.Equal(t, Unsubscribe, eff)
	assert.Equal(t, Disconnected, s.Mode())
	assert.Equal(t, common.Address{}, s.Account)
	assert.Empty(t, s.Waves)

	snapshot := *s
	assert.Zero(t, s.Apply(AccountsChanged{Accounts: []common.Address{}}))
	assert.Equal(t, snapshot, *s, "repeating the empty notification is a no-op")
}

func TestAccountsChangedWhileDisconnected(t *testing.T) {
	s := &State{}
	assert.Zero(t, s.Apply(AccountsChanged{Accounts: []common.Address{alice}}))
	assert.Equal(t, Disconnected, s.Mode())
}

func TestAccountsChangedSwitchesAccount(t *testing.T) {
	s := connected(t)
	s.Apply(WavesFetched{Waves: []portal.Wave{wave("a", 1)}})

	assert.Zero(t, s.Apply(AccountsChanged{Accounts: []common.Address{bob}}))
	assert.Equal(t, bob, s.Account)
	assert.Len(t, s.Waves, 1)
}

func TestWavesFetchedReplacesList(t *testing.T) {
	for _, n := range []int{0, 1, 5, 40} {
		t.Run(fmt.Sprintf("%d waves", n), func(t *testing.T) {
			s := connected(t)
			s.Apply(WaveReceived{Wave: wave("stale", 1)})

			fetched := make([]portal.Wave, n)
			for i := range fetched {
				fetched[i] = wave(fmt.Sprintf("w%d", i), 1700000000+int64(i)*86400)
			}
			s.Apply(WavesFetched{Waves: fetched})

			require.Len(t, s.Waves, n)
			for i := range fetched {
				assert.Equal(t, fetched[i], s.Waves[i])
				assert.Equal(t, portal.FormatDate(fetched[i].Timestamp), s.Waves[i].Date)
			}
		})
	}
}

func TestWavesFetchedDoesNotAliasInput(t *testing.T) {
	s := connected(t)
	fetched := []portal.Wave{wave("a", 1)}
	s.Apply(WavesFetched{Waves: fetched})
	fetched[0].Message = "changed"
	assert.Equal(t, "a", s.Waves[0].Message)
}

func TestWavesFetchedIgnoredWhileDisconnected(t *testing.T) {
	s := &State{}
	s.Apply(WavesFetched{Waves: []portal.Wave{wave("late", 1)}})
	assert.Empty(t, s.Waves)
}

func TestWaveReceived(t *testing.T) {
	s := connected(t)
	s.Apply(WavesFetched{Waves: []portal.Wave{wave("first", 1)}})

	live := portal.NewWave(common.HexToAddress("0xABC"), big.NewInt(1700000000), "hi", time.UTC)
	assert.Zero(t, s.Apply(WaveReceived{Wave: live}))

	require.Len(t, s.Waves, 2)
	got := s.Waves[1]
	assert.Equal(t, common.HexToAddress("0xABC"), got.Address)
	assert.Equal(t, "hi", got.Message)
	assert.Equal(t, "Tuesday, November 14, 2023", got.Date)
}

func TestWaveReceivedIgnoredWhileDisconnected(t *testing.T) {
	s := &State{}
	s.Apply(WaveReceived{Wave: wave("x", 1)})
	assert.Empty(t, s.Waves)
}

func TestWaveReceivedIsNotDeduplicated(t *testing.T) {
	s := connected(t)
	w := wave("twice", 1700000000)
	s.Apply(WavesFetched{Waves: []portal.Wave{w}})
	s.Apply(WaveReceived{Wave: w})
	assert.Len(t, s.Waves, 2)
}

func TestCanSubmit(t *testing.T) {
	s := &State{}
	s.Apply(MessageTyped{Message: "hello"})
	assert.False(t, s.CanSubmit(), "disconnected")

	s = connected(t)
	assert.False(t, s.CanSubmit())
	s.Apply(MessageTyped{Message: "h"})
	assert.True(t, s.CanSubmit())
	s.Apply(MessageTyped{Message: ""})
	assert.False(t, s.CanSubmit())
}

func TestCountFetched(t *testing.T) {
	s := &State{}
	s.Apply(CountFetched{Count: 12})
	assert.Equal(t, uint64(12), s.TotalCount)
}

func TestApplyNil(t *testing.T) {
	s := connected(t)
	before := *s
	assert.Zero(t, s.Apply(nil))
	assert.Equal(t, before, *s)
}

func TestEffectHas(t *testing.T) {
	e := FetchWaves | Subscribe
	assert.True(t, e.Has(FetchWaves))
	assert.True(t, e.Has(FetchWaves|Subscribe))
	assert.False(t, e.Has(FetchCount))
	assert.False(t, e.Has(0))
}

// Package session holds the portal's view state and the single function that
// folds asynchronous results into it.
package session

import (
	"github.com/ethereum/go-ethereum/common"

	"wave-portal-tui/portal"
)

type Mode int

const (
	Disconnected Mode = iota
	Connected
)

func (m Mode) String() string {
	if m == Connected {
		return "connected"
	}
	return "disconnected"
}

// Effect is the set of follow-up work an event asks the caller to start.
type Effect uint8

const (
	FetchWaves Effect = 1 << iota
	FetchCount
	Subscribe
	Unsubscribe
)

// Has reports whether every bit of f is set in e.
func (e Effect) Has(f Effect) bool { return f != 0 && e&f == f }

// Event is a completed wallet, contract or input action.
type Event interface {
	apply(s *State) Effect
}

// AccountsFound carries the result of a silent authorization check or an
// explicit connection request.
type AccountsFound struct{ Accounts []common.Address }

// AccountsChanged is the wallet telling us its account set changed.
type AccountsChanged struct{ Accounts []common.Address }

// WavesFetched replaces the list with a bulk fetch result.
type WavesFetched struct{ Waves []portal.Wave }

type CountFetched struct{ Count uint64 }

// WaveReceived appends one live NewWave notification.
type WaveReceived struct{ Wave portal.Wave }

type MessageTyped struct{ Message string }

// State is the portal session. The zero value is disconnected.
type State struct {
	Account    common.Address
	TotalCount uint64
	Waves      []portal.Wave
	Message    string
}

func (s *State) Mode() Mode {
	if s.Account == (common.Address{}) {
		return Disconnected
	}
	return Connected
}

// CanSubmit reports whether the wave action is enabled.
func (s *State) CanSubmit() bool {
	return s.Mode() == Connected && len(s.Message) > 0
}

// Apply folds ev into the state and returns the work the caller must start.
func (s *State) Apply(ev Event) Effect {
	if ev == nil {
		return 0
	}
	return ev.apply(s)
}

func (e AccountsFound) apply(s *State) Effect {
	if len(e.Accounts) == 0 {
		return 0
	}
	account := e.Accounts[0]
	if s.Account == account {
		return 0
	}
	wasConnected := s.Mode() == Connected
	s.Account = account
	if wasConnected {
		return FetchWaves | FetchCount
	}
	return FetchWaves | FetchCount | Subscribe
}

func (e AccountsChanged) apply(s *State) Effect {
	if s.Mode() == Disconnected {
		return 0
	}
	if len(e.Accounts) == 0 {
		s.Account = common.Address{}
		s.Waves = nil
		return Unsubscribe
	}
	// switching accounts keeps the list, the contract's waves are global
	s.Account = e.Accounts[0]
	return 0
}

func (e WavesFetched) apply(s *State) Effect {
	if s.Mode() == Disconnected {
		return 0
	}
	s.Waves = append([]portal.Wave(nil), e.Waves...)
	return 0
}

func (e CountFetched) apply(s *State) Effect {
	s.TotalCount = e.Count
	return 0
}

func (e WaveReceived) apply(s *State) Effect {
	if s.Mode() == Disconnected {
		return 0
	}
	s.Waves = append(s.Waves, e.Wave)
	return 0
}

func (e MessageTyped) apply(s *State) Effect {
	s.Message = e.Message
	return 0
}

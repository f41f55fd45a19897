package main

import (
	"wave-portal-tui/portal"
	"wave-portal-tui/rpc"
	"wave-portal-tui/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// -------------------- TEA MESSAGES --------------------
// All custom message types for The Elm Architecture

// logInitMsg signals that log viewport should be initialized
type logInitMsg struct{}

// rpcConnectedMsg contains result of RPC connection attempt
type rpcConnectedMsg struct {
	url    string
	client *rpc.Client
	err    error
}

// walletDetectedMsg carries the configured wallet, if any
type walletDetectedMsg struct {
	provider wallet.Provider
	ok       bool
	skipped  []error
}

// authorizedAccountsMsg is the result of the silent account check on startup
type authorizedAccountsMsg struct {
	accounts []common.Address
	err      error
}

// accountsRequestedMsg is the result of an explicit connect
type accountsRequestedMsg struct {
	accounts []common.Address
	err      error
}

// accountsChangedMsg is emitted by the wallet when its account set changes
type accountsChangedMsg struct {
	accounts []common.Address
	sub      event.Subscription
}

// wavesFetchedMsg contains the full list of waves read from the contract
type wavesFetchedMsg struct {
	waves []portal.Wave
	err   error
}

// countFetchedMsg contains the total wave count
type countFetchedMsg struct {
	count uint64
	err   error
}

// waveSubscribedMsg hands the live NewWave subscription to the model
type waveSubscribedMsg struct {
	sub  event.Subscription
	sink chan portal.Wave
	err  error
}

// waveReceivedMsg is one live NewWave notification
type waveReceivedMsg struct {
	wave portal.Wave
	sub  event.Subscription
}

// waveSubEndedMsg reports that a wave subscription stopped
type waveSubEndedMsg struct {
	sub event.Subscription
	err error
}

// waveSentMsg is the first phase of a wave: the count read before sending
// and the transaction accepted into the pool
type waveSentMsg struct {
	preCount    uint64
	hasPreCount bool
	tx          *types.Transaction
	err         error
}

// waveMinedMsg is the second phase: the receipt and the refreshed count
type waveMinedMsg struct {
	tx       *types.Transaction
	receipt  *types.Receipt
	count    uint64
	countErr error
	err      error
}

// balanceLoadedMsg contains the ETH balance of the connected account
type balanceLoadedMsg struct {
	balance rpc.AccountBalance
	err     error
}

// clipboardCopiedMsg indicates clipboard copy completed
type clipboardCopiedMsg struct {
	what string
}

// clearClipboardMsg clears clipboard feedback after a delay
type clearClipboardMsg struct{}

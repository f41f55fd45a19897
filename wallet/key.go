package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
)

// KeyProvider signs with a raw hex private key (PRIVATE_KEY).
type KeyProvider struct {
	key     *ecdsa.PrivateKey
	address common.Address

	mu      sync.Mutex
	granted bool
	feed    event.Feed
}

// NewKeyProvider parses a hex private key, with or without 0x prefix.
func NewKeyProvider(hexKey string) (*KeyProvider, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &KeyProvider{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func (p *KeyProvider) Name() string          { return "private key" }
func (p *KeyProvider) NeedsPassphrase() bool { return false }

func (p *KeyProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.granted {
		return nil, nil
	}
	return []common.Address{p.address}, nil
}

func (p *KeyProvider) RequestAccounts(ctx context.Context, passphrase string) ([]common.Address, error) {
	p.mu.Lock()
	p.granted = true
	p.mu.Unlock()
	return []common.Address{p.address}, nil
}

func (p *KeyProvider) Revoke() error {
	p.mu.Lock()
	p.granted = false
	p.mu.Unlock()
	p.feed.Send([]common.Address{})
	return nil
}

func (p *KeyProvider) WatchAccounts(sink chan<- []common.Address) event.Subscription {
	return p.feed.Subscribe(sink)
}

func (p *KeyProvider) Transactor(ctx context.Context, account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	p.mu.Lock()
	granted := p.granted
	p.mu.Unlock()
	if !granted || account != p.address {
		return nil, fmt.Errorf("%w: %s", ErrLocked, account.Hex())
	}
	opts, err := bind.NewKeyedTransactorWithChainID(p.key, chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

func (p *KeyProvider) Close() error { return nil }

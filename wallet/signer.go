package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

const defaultSignerPoll = 4 * time.Second

// SignerProvider delegates account access and signing to an external
// JSON-RPC signer (clef, a dev node, a wallet bridge).
type SignerProvider struct {
	client   *gethrpc.Client
	interval time.Duration

	mu      sync.Mutex
	granted []common.Address
	feed    event.Feed

	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// DialSigner connects to the signer at url. HTTP endpoints are dialed lazily.
func DialSigner(url string, interval time.Duration) (*SignerProvider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial signer: %w", err)
	}
	return newSignerProvider(client, interval), nil
}

func newSignerProvider(client *gethrpc.Client, interval time.Duration) *SignerProvider {
	if interval <= 0 {
		interval = defaultSignerPoll
	}
	p := &SignerProvider{
		client:   client,
		interval: interval,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *SignerProvider) Name() string          { return "external signer" }
func (p *SignerProvider) NeedsPassphrase() bool { return false }

func (p *SignerProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]common.Address(nil), p.granted...), nil
}

// RequestAccounts calls eth_requestAccounts, falling back to eth_accounts
// for signers that do not implement it.
func (p *SignerProvider) RequestAccounts(ctx context.Context, passphrase string) ([]common.Address, error) {
	var accs []common.Address
	err := p.client.CallContext(ctx, &accs, "eth_requestAccounts")
	if err != nil {
		var rpcErr gethrpc.Error
		if !errors.As(err, &rpcErr) {
			return nil, err
		}
		if err := p.client.CallContext(ctx, &accs, "eth_accounts"); err != nil {
			return nil, err
		}
	}
	if len(accs) == 0 {
		return nil, ErrNoAccounts
	}
	p.mu.Lock()
	p.granted = accs
	p.mu.Unlock()
	return append([]common.Address(nil), accs...), nil
}

func (p *SignerProvider) Revoke() error {
	p.mu.Lock()
	p.granted = nil
	p.mu.Unlock()
	p.feed.Send([]common.Address{})
	return nil
}

func (p *SignerProvider) WatchAccounts(sink chan<- []common.Address) event.Subscription {
	return p.feed.Subscribe(sink)
}

func (p *SignerProvider) Transactor(ctx context.Context, account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	if !p.isGranted(account) {
		return nil, fmt.Errorf("%w: %s", ErrLocked, account.Hex())
	}
	return &bind.TransactOpts{
		From:    account,
		Context: ctx,
		Signer: func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if addr != account {
				return nil, bind.ErrNotAuthorized
			}
			return p.signTransaction(ctx, addr, tx, chainID)
		},
	}, nil
}

func (p *SignerProvider) Close() error {
	p.once.Do(func() { close(p.quit) })
	<-p.done
	p.client.Close()
	return nil
}

func (p *SignerProvider) isGranted(account common.Address) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range p.granted {
		if a == account {
			return true
		}
	}
	return false
}

// -------------------- SIGNING --------------------

type signTxArgs struct {
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to,omitempty"`
	Gas                  hexutil.Uint64  `json:"gas"`
	GasPrice             *hexutil.Big    `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
	Value                *hexutil.Big    `json:"value"`
	Nonce                hexutil.Uint64  `json:"nonce"`
	Data                 hexutil.Bytes   `json:"data"`
	ChainID              *hexutil.Big    `json:"chainId,omitempty"`
}

type signTxResult struct {
	Raw hexutil.Bytes `json:"raw"`
}

func newSignTxArgs(from common.Address, tx *types.Transaction, chainID *big.Int) signTxArgs {
	args := signTxArgs{
		From:  from,
		To:    tx.To(),
		Gas:   hexutil.Uint64(tx.Gas()),
		Value: (*hexutil.Big)(tx.Value()),
		Nonce: hexutil.Uint64(tx.Nonce()),
		Data:  tx.Data(),
	}
	if chainID != nil {
		args.ChainID = (*hexutil.Big)(chainID)
	}
	if tx.Type() == types.DynamicFeeTxType {
		args.MaxFeePerGas = (*hexutil.Big)(tx.GasFeeCap())
		args.MaxPriorityFeePerGas = (*hexutil.Big)(tx.GasTipCap())
	} else {
		args.GasPrice = (*hexutil.Big)(tx.GasPrice())
	}
	return args
}

func (p *SignerProvider) signTransaction(ctx context.Context, from common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	var raw json.RawMessage
	if err := p.client.CallContext(ctx, &raw, "eth_signTransaction", newSignTxArgs(from, tx, chainID)); err != nil {
		return nil, fmt.Errorf("eth_signTransaction: %w", err)
	}

	// signers answer either {"raw": "0x..", "tx": {..}} or the bare raw hex
	var enc hexutil.Bytes
	var res signTxResult
	if err := json.Unmarshal(raw, &res); err == nil && len(res.Raw) > 0 {
		enc = res.Raw
	} else if err := json.Unmarshal(raw, &enc); err != nil {
		return nil, fmt.Errorf("decode signed transaction: %w", err)
	}

	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(enc); err != nil {
		return nil, fmt.Errorf("decode signed transaction: %w", err)
	}
	return signed, nil
}

// -------------------- ACCOUNT POLLING --------------------

func (p *SignerProvider) loop() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.refresh()
		case <-p.quit:
			return
		}
	}
}

// refresh asks the signer which accounts it still exposes and notifies
// watchers when the granted set changed.
func (p *SignerProvider) refresh() {
	p.mu.Lock()
	connected := len(p.granted) > 0
	prev := p.granted
	p.mu.Unlock()
	if !connected {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()
	var accs []common.Address
	if err := p.client.CallContext(ctx, &accs, "eth_accounts"); err != nil {
		return
	}
	if sameAccounts(prev, accs) {
		return
	}

	p.mu.Lock()
	p.granted = accs
	p.mu.Unlock()
	if accs == nil {
		accs = []common.Address{}
	}
	p.feed.Send(accs)
}

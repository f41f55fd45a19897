package portal

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// WaveGasLimit is the gas limit hint sent with every wave.
const WaveGasLimit uint64 = 300000

// ErrWaveReverted is returned by WaitMined when the wave transaction was mined but failed.
var ErrWaveReverted = errors.New("wave transaction reverted")

// Backend is what the client needs from a node: calls, transactions, logs and receipts.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Client is bound to one WavePortal deployment.
type Client struct {
	address      common.Address
	abi          abi.ABI
	contract     *bind.BoundContract
	backend      Backend
	loc          *time.Location
	pollInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLocation sets the time zone used to render wave dates.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) { c.loc = loc }
}

// WithPollInterval sets how often logs are polled when the node cannot push them.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// NewClient binds to the WavePortal contract at address.
func NewClient(address common.Address, backend Backend, opts ...Option) (*Client, error) {
	parsed, err := abi.JSON(strings.NewReader(WavePortalABI))
	if err != nil {
		return nil, fmt.Errorf("parse WavePortal ABI: %w", err)
	}
	c := &Client{
		address:      address,
		abi:          parsed,
		contract:     bind.NewBoundContract(address, parsed, backend, backend, backend),
		backend:      backend,
		loc:          time.Local,
		pollInterval: 4 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Address returns the contract address the client is bound to.
func (c *Client) Address() common.Address {
	return c.address
}

// FetchAllWaves returns every wave stored on-chain, in contract order.
func (c *Client) FetchAllWaves(ctx context.Context) ([]Wave, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodGetAllWaves); err != nil {
		return nil, fmt.Errorf("getAllWaves: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("getAllWaves: empty result")
	}
	raw := *abi.ConvertType(out[0], new([]rawWave)).(*[]rawWave)

	waves := make([]Wave, 0, len(raw))
	for _, r := range raw {
		waves = append(waves, NewWave(r.Waver, r.Timestamp, r.Message, c.loc))
	}
	return waves, nil
}

// FetchTotalCount returns the number of waves ever submitted.
func (c *Client) FetchTotalCount(ctx context.Context) (uint64, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodGetTotalWaves); err != nil {
		return 0, fmt.Errorf("getTotalWaves: %w", err)
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("getTotalWaves: empty result")
	}
	count := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if count == nil || !count.IsUint64() {
		return 0, fmt.Errorf("getTotalWaves: count out of range: %v", count)
	}
	return count.Uint64(), nil
}

// SubmitWave sends a wave transaction signed by opts. It returns once the
// transaction is in the pending pool; use WaitMined to wait for inclusion.
func (c *Client) SubmitWave(ctx context.Context, opts *bind.TransactOpts, message string) (*types.Transaction, error) {
	if opts == nil {
		return nil, fmt.Errorf("wave: no transactor")
	}
	txOpts := *opts
	txOpts.Context = ctx
	txOpts.GasLimit = WaveGasLimit

	tx, err := c.contract.Transact(&txOpts, methodWave, message)
	if err != nil {
		return nil, fmt.Errorf("wave: %w", err)
	}
	return tx, nil
}

// WaitMined blocks until tx is included in a block or ctx is done.
func (c *Client) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("wait mined %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrWaveReverted, tx.Hash().Hex())
	}
	return receipt, nil
}

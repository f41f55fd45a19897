package portal

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers WavePortal calls from in-memory state.
type fakeBackend struct {
	t   *testing.T
	abi abi.ABI

	mu         sync.Mutex
	waves      []rawWave
	callErr    error
	head       uint64
	logs       []types.Log
	sent       []*types.Transaction
	receipt    *types.Receipt
	pushLogs   bool
	logFeed    event.Feed
	filterCall int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	parsed, err := abi.JSON(strings.NewReader(WavePortalABI))
	require.NoError(t, err)
	return &fakeBackend{t: t, abi: parsed, head: 100}
}

func (b *fakeBackend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (b *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.callErr != nil {
		return nil, b.callErr
	}
	switch {
	case bytes.HasPrefix(call.Data, b.abi.Methods[methodGetAllWaves].ID):
		return b.abi.Methods[methodGetAllWaves].Outputs.Pack(b.waves)
	case bytes.HasPrefix(call.Data, b.abi.Methods[methodGetTotalWaves].ID):
		return b.abi.Methods[methodGetTotalWaves].Outputs.Pack(big.NewInt(int64(len(b.waves))))
	}
	return nil, fmt.Errorf("unexpected call data %x", call.Data)
}

func (b *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &types.Header{Number: new(big.Int).SetUint64(b.head)}, nil
}

func (b *fakeBackend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (b *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 7, nil
}

func (b *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *fakeBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}

func (b *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.callErr != nil {
		return b.callErr
	}
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filterCall++
	var out []types.Log
	for _, l := range b.logs {
		if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (b *fakeBackend) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	if !b.pushLogs {
		return nil, gethrpc.ErrNotificationsUnsupported
	}
	return b.logFeed.Subscribe(ch), nil
}

func (b *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.receipt == nil {
		return nil, ethereum.NotFound
	}
	r := *b.receipt
	r.TxHash = txHash
	return &r, nil
}

// addLog records a NewWave log at block and advances the head to it.
func (b *fakeBackend) addLog(block uint64, from common.Address, ts int64, message string) types.Log {
	l := newWaveLog(b.t, b.abi, from, ts, message)
	l.BlockNumber = block
	b.mu.Lock()
	b.logs = append(b.logs, l)
	if block > b.head {
		b.head = block
	}
	b.mu.Unlock()
	return l
}

func newWaveLog(t *testing.T, parsed abi.ABI, from common.Address, ts int64, message string) types.Log {
	ev := parsed.Events[eventNewWave]
	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(ts), message)
	require.NoError(t, err)
	return types.Log{
		Topics: []common.Hash{ev.ID, common.BytesToHash(from.Bytes())},
		Data:   data,
	}
}

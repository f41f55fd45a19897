package portal

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// WatchWaves delivers every NewWave notification emitted after the call to sink,
// in the order the node reports them. Nodes that cannot push logs (plain HTTP)
// are polled instead. The subscription ends on Unsubscribe or on the first error,
// which is sent on Err().
func (c *Client) WatchWaves(ctx context.Context, sink chan<- Wave) (event.Subscription, error) {
	query := c.newWaveQuery()
	logs := make(chan types.Log, 16)

	sub, err := c.backend.SubscribeFilterLogs(ctx, query, logs)
	if errors.Is(err, gethrpc.ErrNotificationsUnsupported) {
		return c.pollWaves(ctx, query, sink)
	}
	if err != nil {
		return nil, fmt.Errorf("subscribe NewWave: %w", err)
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case l := <-logs:
				if l.Removed {
					continue
				}
				w, err := c.DecodeNewWave(l)
				if err != nil {
					return err
				}
				select {
				case sink <- w:
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

func (c *Client) pollWaves(ctx context.Context, query ethereum.FilterQuery, sink chan<- Wave) (event.Subscription, error) {
	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("poll NewWave: head: %w", err)
	}
	next := new(big.Int).Add(head.Number, common.Big1)
	interval := c.pollInterval

	return event.NewSubscription(func(quit <-chan struct{}) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-quit:
				return nil
			case <-ticker.C:
			}

			pollCtx, cancel := context.WithTimeout(context.Background(), interval*3)
			head, err := c.backend.HeaderByNumber(pollCtx, nil)
			if err != nil {
				cancel()
				return fmt.Errorf("poll NewWave: head: %w", err)
			}
			if head.Number.Cmp(next) < 0 {
				cancel()
				continue
			}

			q := query
			q.FromBlock = new(big.Int).Set(next)
			q.ToBlock = new(big.Int).Set(head.Number)
			logs, err := c.backend.FilterLogs(pollCtx, q)
			cancel()
			if err != nil {
				return fmt.Errorf("poll NewWave: logs: %w", err)
			}
			next = new(big.Int).Add(head.Number, common.Big1)

			for _, l := range logs {
				if l.Removed {
					continue
				}
				w, err := c.DecodeNewWave(l)
				if err != nil {
					return err
				}
				select {
				case sink <- w:
				case <-quit:
					return nil
				}
			}
		}
	}), nil
}

// DecodeNewWave converts a raw NewWave log into a Wave.
func (c *Client) DecodeNewWave(l types.Log) (Wave, error) {
	var ev newWaveEvent
	if err := c.contract.UnpackLog(&ev, eventNewWave, l); err != nil {
		return Wave{}, fmt.Errorf("decode NewWave: %w", err)
	}
	return NewWave(ev.From, ev.Timestamp, ev.Message, c.loc), nil
}

func (c *Client) newWaveQuery() ethereum.FilterQuery {
	return ethereum.FilterQuery{
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{c.abi.Events[eventNewWave].ID}},
	}
}

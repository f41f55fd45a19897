package rpc

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client wraps an Ethereum RPC client
type Client struct {
	*ethclient.Client
	URL     string
	ChainID *big.Int
}

// ConnectResult holds the result of an RPC connection attempt
type ConnectResult struct {
	Client *Client
	Error  error
}

// Connect attempts to connect to an Ethereum RPC endpoint
func Connect(url string) ConnectResult {
	return ConnectWithTimeout(url, 8*time.Second)
}

// ConnectWithTimeout attempts to connect with a custom timeout.
// The chain id is read once so that transactions can be signed for the right network.
func ConnectWithTimeout(url string, timeout time.Duration) ConnectResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return ConnectResult{Client: nil, Error: err}
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return ConnectResult{Client: nil, Error: fmt.Errorf("chain id: %w", err)}
	}

	return ConnectResult{
		Client: &Client{
			Client:  client,
			URL:     url,
			ChainID: chainID,
		},
		Error: nil,
	}
}

// AccountBalance holds the ETH balance shown next to the connected account
type AccountBalance struct {
	Address  string
	Wei      *big.Int
	LoadedAt time.Time
}

// LoadBalance fetches the ETH balance of addr
func LoadBalance(client *Client, addr common.Address) (AccountBalance, error) {
	return LoadBalanceWithTimeout(client, addr, 12*time.Second)
}

// LoadBalanceWithTimeout fetches the balance with a custom timeout
func LoadBalanceWithTimeout(client *Client, addr common.Address, timeout time.Duration) (AccountBalance, error) {
	b := AccountBalance{
		Address:  addr.Hex(),
		Wei:      big.NewInt(0),
		LoadedAt: time.Now(),
	}

	if client == nil || client.Client == nil {
		return b, fmt.Errorf("no RPC client (set ETH_RPC_URL)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	wei, err := client.BalanceAt(ctx, addr, nil)
	if err != nil {
		return b, fmt.Errorf("load ETH balance: %w", err)
	}
	b.Wei = wei
	return b, nil
}

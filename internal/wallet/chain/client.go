package chain

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// eip1559FeeMultiplier headroom on the base fee for max fee per gas.
const eip1559FeeMultiplier = 2

var ErrNoRPCClient = errors.New("all RPC clients are unavailable")

// dialFunc is swapped in tests.
type dialFunc func(ctx context.Context, url string) (*ethclient.Client, error)

// RPCClient wraps several RPC endpoints of the same chain and fails over to the next
// healthy one. Failover only picks the endpoint; a failed call is not retried.
type RPCClient struct {
	urls    []string
	clients []*ethclient.Client
	dial    dialFunc
	mu      sync.RWMutex
	current int
}

// NewRPCClient dials every url. Unreachable endpoints are kept and redialed on use.
func NewRPCClient(ctx context.Context, urls []string) (*RPCClient, error) {
	return newRPCClient(ctx, urls, ethclient.DialContext)
}

func newRPCClient(ctx context.Context, urls []string, dial dialFunc) (*RPCClient, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one RPC URL is required")
	}

	clients := make([]*ethclient.Client, len(urls))
	connected := 0

	for i, url := range urls {
		client, err := dial(ctx, url)
		if err != nil {
			log.Warn().
				Str("url", url).
				Err(err).
				Msg("Failed to connect to RPC node, will retry on use")
			continue
		}

		clients[i] = client
		connected++
	}

	if connected == 0 {
		return nil, errors.New("failed to connect to any RPC node")
	}

	return &RPCClient{
		urls:    urls,
		clients: clients,
		dial:    dial,
	}, nil
}

// Close closes all client connections
func (c *RPCClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, client := range c.clients {
		if client != nil {
			client.Close()
			c.clients[i] = nil
		}
	}
}

// CallContract executes an eth_call, satisfying ethereum.ContractCaller.
func (c *RPCClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get RPC client")
	}

	resp, err := client.CallContract(ctx, msg, blockNumber)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call contract")
	}

	return resp, nil
}

// ChainID returns the chain id reported by the node.
func (c *RPCClient) ChainID(ctx context.Context) (*big.Int, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get RPC client")
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get chain ID")
	}

	return chainID, nil
}

// BlockNumber returns the latest block number.
func (c *RPCClient) BlockNumber(ctx context.Context) (uint64, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get RPC client")
	}

	n, err := client.BlockNumber(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get latest block number")
	}

	return n, nil
}

// HeaderByNumber returns a block header, nil number means latest.
func (c *RPCClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get RPC client")
	}

	header, err := client.HeaderByNumber(ctx, number)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get block header")
	}

	return header, nil
}

// SuggestGasTipCap suggests a priority fee (EIP-1559)
func (c *RPCClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get RPC client")
	}

	tipCap, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to suggest gas tip cap")
	}

	return tipCap, nil
}

// SuggestFees returns EIP-1559 fee caps: tip and tip + 2 * base fee.
func (c *RPCClient) SuggestFees(ctx context.Context) (maxFee *big.Int, tip *big.Int, err error) {
	tip, err = c.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, err
	}

	header, err := c.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, err
	}

	if header.BaseFee == nil {
		return nil, nil, errors.New("chain does not report a base fee")
	}

	maxFee = new(big.Int).Add(
		tip,
		new(big.Int).Mul(header.BaseFee, big.NewInt(eip1559FeeMultiplier)),
	)

	return maxFee, tip, nil
}

// getClient returns the first healthy client starting at the current one and
// redials endpoints that were never reached.
func (c *RPCClient) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.mu.RLock()
	start := c.current
	n := len(c.clients)
	c.mu.RUnlock()

	for i := 0; i < n; i++ {
		idx := (start + i) % n

		c.mu.RLock()
		client := c.clients[idx]
		c.mu.RUnlock()

		if client == nil {
			dialed, err := c.dial(ctx, c.urls[idx])
			if err != nil {
				log.Warn().Str("url", c.urls[idx]).Err(err).Msg("RPC reconnect failed")
				continue
			}

			c.mu.Lock()
			if c.clients[idx] == nil {
				c.clients[idx] = dialed
			} else {
				dialed.Close()
			}
			client = c.clients[idx]
			c.mu.Unlock()
		}

		// health check: the node must answer eth_chainId
		if _, err := client.ChainID(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			log.Warn().
				Str("url", c.urls[idx]).
				Err(err).
				Msg("RPC client health check failed, trying next endpoint")
			continue
		}

		if idx != start {
			c.mu.Lock()
			c.current = idx
			c.mu.Unlock()
		}

		return client, nil
	}

	return nil, ErrNoRPCClient
}

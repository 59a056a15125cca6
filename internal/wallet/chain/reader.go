package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github/chapool/go-gasless/internal/metrics"
	"github/chapool/go-gasless/internal/util"
	"github/chapool/go-gasless/internal/wallet/token"
)

type reader struct {
	caller  ethereum.ContractCaller
	metrics *metrics.Service
}

// NewReader creates a Reader on top of any contract caller (ethclient, RPCClient, test chain).
// metrics may be nil.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewReader(caller ethereum.ContractCaller, m *metrics.Service) Reader {
	return &reader{caller: caller, metrics: m}
}

func (r *reader) ReadBalance(ctx context.Context, tokenAddr, owner common.Address) (*big.Int, error) {
	call, err := token.BalanceOf(tokenAddr, owner)
	if err != nil {
		return nil, err
	}

	return r.callUint256(ctx, token.MethodBalanceOf, call)
}

func (r *reader) ReadNonce(ctx context.Context, tokenAddr, owner common.Address) (*big.Int, error) {
	call, err := token.Nonces(tokenAddr, owner)
	if err != nil {
		return nil, err
	}

	return r.callUint256(ctx, token.MethodNonces, call)
}

func (r *reader) ReadDecimals(ctx context.Context, tokenAddr common.Address) (uint8, error) {
	call, err := token.Decimals(tokenAddr)
	if err != nil {
		return 0, err
	}

	value, err := r.callSingle(ctx, token.MethodDecimals, call)
	if err != nil {
		return 0, err
	}

	decimals, ok := value.(uint8)
	if !ok {
		return 0, &DecodeError{Op: token.MethodDecimals, Err: errors.Errorf("unexpected type %T", value)}
	}

	return decimals, nil
}

func (r *reader) ReadName(ctx context.Context, tokenAddr common.Address) (string, error) {
	call, err := token.Name(tokenAddr)
	if err != nil {
		return "", err
	}

	value, err := r.callSingle(ctx, token.MethodName, call)
	if err != nil {
		return "", err
	}

	name, ok := value.(string)
	if !ok {
		return "", &DecodeError{Op: token.MethodName, Err: errors.Errorf("unexpected type %T", value)}
	}

	return name, nil
}

func (r *reader) callUint256(ctx context.Context, method string, call token.EncodedCall) (*big.Int, error) {
	value, err := r.callSingle(ctx, method, call)
	if err != nil {
		return nil, err
	}

	n, ok := value.(*big.Int)
	if !ok {
		return nil, &DecodeError{Op: method, Err: errors.Errorf("unexpected type %T", value)}
	}

	return n, nil
}

func (r *reader) callSingle(ctx context.Context, method string, call token.EncodedCall) (interface{}, error) {
	log := util.LogFromContext(ctx)
	start := time.Now()

	to := call.To
	resp, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: call.Data}, nil)
	r.metrics.ObserveChainRead(method, time.Since(start), err)
	if err != nil {
		log.Debug().Err(err).Str("method", method).Str("token", to.Hex()).Msg("Chain read failed")
		return nil, &NetworkError{Op: method, Err: err}
	}

	values, err := token.Decode(method, resp)
	if err != nil {
		log.Debug().Err(err).Str("method", method).Int("bytes", len(resp)).Msg("Chain read returned undecodable data")
		return nil, &DecodeError{Op: method, Err: err}
	}

	log.Debug().Str("method", method).Str("token", to.Hex()).Interface("value", values[0]).Msg("Chain read")

	return values[0], nil
}

package balance

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github/chapool/go-gasless/internal/wallet/chain"
)

// Service reads token balances for display
type Service interface {
	// GetTokenBalance reads decimals and balanceOf(owner), one read each, never cached
	GetTokenBalance(ctx context.Context, token, owner common.Address) (*TokenBalance, error)
}

// TokenBalance is a raw balance with its display form
type TokenBalance struct {
	Token     common.Address `json:"token"`
	Owner     common.Address `json:"owner"`
	Raw       *big.Int       `json:"raw"`
	Decimals  uint8          `json:"decimals"`
	Formatted string         `json:"formatted"`
}

type service struct {
	reader chain.Reader
}

// NewService creates the balance service
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(reader chain.Reader) Service {
	return &service{
		reader: reader,
	}
}

func (s *service) GetTokenBalance(ctx context.Context, token, owner common.Address) (*TokenBalance, error) {
	decimals, err := s.reader.ReadDecimals(ctx, token)
	if err != nil {
		return nil, err
	}

	raw, err := s.reader.ReadBalance(ctx, token, owner)
	if err != nil {
		return nil, err
	}

	return &TokenBalance{
		Token:     token,
		Owner:     owner,
		Raw:       raw,
		Decimals:  decimals,
		Formatted: Format(raw, decimals),
	}, nil
}

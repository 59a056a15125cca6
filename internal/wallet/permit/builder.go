package permit

import (
	"context"
	"math/big"

	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github/chapool/go-gasless/internal/metrics"
	"github/chapool/go-gasless/internal/util"
	"github/chapool/go-gasless/internal/wallet/chain"
	"github/chapool/go-gasless/internal/wallet/signer"
	"github/chapool/go-gasless/internal/wallet/token"
	"golang.org/x/sync/errgroup"
)

type builder struct {
	reader  chain.Reader
	clock   time2.Clock
	cfg     Config
	metrics *metrics.Service
}

// NewBuilder creates the permit Service. metrics may be nil.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewBuilder(reader chain.Reader, clock time2.Clock, cfg Config, m *metrics.Service) Service {
	return &builder{
		reader:  reader,
		clock:   clock,
		cfg:     cfg,
		metrics: m,
	}
}

func (b *builder) BuildAndSignPermit(ctx context.Context, req Request, s signer.Signer) (*Permit, error) {
	log := util.LogFromContext(ctx).With().
		Str("owner", req.Owner.Hex()).
		Str("spender", req.Spender.Hex()).
		Str("token", req.Token.Hex()).
		Logger()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var (
		nonce   *big.Int
		balance *big.Int
		name    string
	)

	// nonce, balance and name are independent reads; signing waits for all three
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		nonce, err = b.reader.ReadNonce(gctx, req.Token, req.Owner)
		return err
	})
	g.Go(func() error {
		var err error
		balance, err = b.reader.ReadBalance(gctx, req.Token, req.Owner)
		return err
	})
	g.Go(func() error {
		var err error
		name, err = b.reader.ReadName(gctx, req.Token)
		return err
	})

	if err := g.Wait(); err != nil {
		log.Debug().Err(err).Msg("Failed to read permit inputs")
		return nil, err
	}

	value := balance
	if req.Amount != nil {
		value = req.Amount
		if value.Cmp(balance) > 0 {
			log.Warn().Str("amount", value.String()).Str("balance", balance.String()).Msg("Permit amount exceeds current balance")
		}
	}

	deadline := big.NewInt(b.clock.Now().Add(b.cfg.Validity).Unix())

	p := &Permit{
		Message: Message{
			Owner:    req.Owner,
			Spender:  req.Spender,
			Value:    new(big.Int).Set(value),
			Nonce:    nonce,
			Deadline: deadline,
		},
		Domain: Domain{
			Name:              name,
			Version:           b.cfg.Version,
			ChainID:           new(big.Int).Set(b.cfg.ChainID),
			VerifyingContract: req.Token,
		},
		Balance: balance,
	}

	sig, err := s.SignTypedData(ctx, req.Owner, p.TypedData())
	b.metrics.ObservePermitSigned(err)
	if err != nil {
		log.Info().Err(err).Msg("Permit signature not obtained")
		return nil, &SigningError{Account: req.Owner, Err: err}
	}

	v, r, ss, err := SplitSignature(sig)
	if err != nil {
		return nil, &SigningError{Account: req.Owner, Err: err}
	}

	p.Signature = JoinSignature(v, r, ss)
	p.V, p.R, p.S = v, r, ss

	log.Info().
		Str("value", p.Message.Value.String()).
		Str("nonce", nonce.String()).
		Str("deadline", deadline.String()).
		Msg("Permit signed")

	return p, nil
}

func validateRequest(req Request) error {
	zero := common.Address{}

	switch {
	case req.Owner == zero:
		return errors.Wrap(ErrInvalidRequest, "owner is the zero address")
	case req.Spender == zero:
		return errors.Wrap(ErrInvalidRequest, "spender is the zero address")
	case req.Token == zero:
		return errors.Wrap(ErrInvalidRequest, "token is the zero address")
	}

	if req.Amount != nil {
		if err := token.CheckUint256(req.Amount); err != nil {
			return &token.EncodingError{Method: token.MethodPermit, Reason: "value", Err: err}
		}
	}

	return nil
}

// CheckDeadline reports ErrExpired if the permit cannot be submitted anymore.
func CheckDeadline(p *Permit, clock time2.Clock) error {
	if p.Message.Deadline == nil || p.Message.Deadline.Cmp(big.NewInt(clock.Now().Unix())) <= 0 {
		return ErrExpired
	}

	return nil
}

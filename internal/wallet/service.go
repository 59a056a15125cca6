package wallet

import (
	"context"

	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/util"
	"github/chapool/go-gasless/internal/wallet/balance"
	"github/chapool/go-gasless/internal/wallet/batch"
	"github/chapool/go-gasless/internal/wallet/chain"
	"github/chapool/go-gasless/internal/wallet/lock"
	"github/chapool/go-gasless/internal/wallet/permit"
	"github/chapool/go-gasless/internal/wallet/signer"
	"github/chapool/go-gasless/internal/wallet/token"
)

type service struct {
	cfg       Config
	keyring   *signer.Keyring
	reader    chain.Reader
	builder   permit.Service
	submitter batch.Submitter
	balances  balance.Service
	locker    lock.Locker
	clock     time2.Clock
}

// NewService creates a new wallet Service
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(
	cfg Config,
	keyring *signer.Keyring,
	reader chain.Reader,
	builder permit.Service,
	submitter batch.Submitter,
	locker lock.Locker,
	clock time2.Clock,
) Service {
	return &service{
		cfg:       cfg,
		keyring:   keyring,
		reader:    reader,
		builder:   builder,
		submitter: submitter,
		balances:  balance.NewService(reader),
		locker:    locker,
		clock:     clock,
	}
}

func (s *service) Accounts(_ context.Context) []signer.Account {
	return s.keyring.Accounts()
}

func (s *service) SignPermit(ctx context.Context, req SignPermitRequest) (*permit.Permit, error) {
	preq, err := s.permitRequest(req)
	if err != nil {
		return nil, err
	}

	return s.signPermit(ctx, preq)
}

func (s *service) permitRequest(req SignPermitRequest) (permit.Request, error) {
	preq := permit.Request{
		Spender: s.cfg.SmartAccount,
		Token:   s.cfg.Token,
		Amount:  req.Amount,
	}

	if req.Owner != nil {
		preq.Owner = *req.Owner
	} else {
		acc, ok := s.keyring.FirstOf(signer.ConnectorEmbedded)
		if !ok {
			return permit.Request{}, ErrNoEmbeddedWallet
		}
		preq.Owner = acc.Address
	}

	if req.Spender != nil {
		preq.Spender = *req.Spender
	}

	if preq.Amount == nil && s.cfg.AmountPolicy == config.PermitAmountExplicit {
		return permit.Request{}, errors.Wrap(permit.ErrInvalidRequest, ErrAmountRequired.Error())
	}

	if preq.Amount != nil && preq.Amount.Sign() == 0 {
		return permit.Request{}, ErrNothingToPermit
	}

	return preq, nil
}

func (s *service) signPermit(ctx context.Context, preq permit.Request) (*permit.Permit, error) {
	ownerSigner, err := s.keyring.SignerFor(preq.Owner)
	if err != nil {
		return nil, &permit.SigningError{Account: preq.Owner, Err: err}
	}

	p, err := s.builder.BuildAndSignPermit(ctx, preq, ownerSigner)
	if err != nil {
		return nil, err
	}

	if p.Message.Value.Sign() == 0 {
		util.LogFromContext(ctx).Info().Str("owner", preq.Owner.Hex()).Msg("Owner has no balance to permit")
		return nil, ErrNothingToPermit
	}

	return p, nil
}

func (s *service) SubmitPermit(ctx context.Context, p *permit.Permit) (batch.TransactionID, error) {
	if err := s.checkPermit(p); err != nil {
		return "", err
	}

	unlock, err := s.locker.Lock(ctx, lock.PermitFlowKey(p.Token(), p.Message.Owner, p.Message.Spender))
	if err != nil {
		return "", err
	}
	defer unlock()

	return s.submitFrom(ctx, p.Message.Spender, func(ctx context.Context) (batch.TransactionID, error) {
		return batch.PermitAndTransfer(ctx, s.submitter, p)
	})
}

func (s *service) checkPermit(p *permit.Permit) error {
	if p == nil {
		return errors.Wrap(permit.ErrInvalidRequest, "missing permit")
	}

	if p.Token() != s.cfg.Token {
		return ErrTokenMismatch
	}

	if p.Message.Spender != s.cfg.SmartAccount {
		return ErrSpenderMismatch
	}

	if err := p.Verify(); err != nil {
		return err
	}

	return permit.CheckDeadline(p, s.clock)
}

func (s *service) PermitAndTransfer(ctx context.Context, req SignPermitRequest) (*TransferResult, error) {
	preq, err := s.permitRequest(req)
	if err != nil {
		return nil, err
	}

	if preq.Spender != s.cfg.SmartAccount {
		return nil, ErrSpenderMismatch
	}

	log := util.LogFromContext(ctx).With().Str("owner", preq.Owner.Hex()).Logger()

	// a concurrent flow would read the same nonce, the second permit could never be used
	unlock, err := s.locker.Lock(ctx, lock.PermitFlowKey(preq.Token, preq.Owner, preq.Spender))
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := s.signPermit(ctx, preq)
	if err != nil {
		return nil, err
	}

	id, err := s.submitFrom(ctx, preq.Spender, func(ctx context.Context) (batch.TransactionID, error) {
		return batch.PermitAndTransfer(ctx, s.submitter, p)
	})
	if err != nil {
		log.Warn().Err(err).Msg("Permit and transfer failed")
		return nil, err
	}

	log.Info().Str("transactionId", id.String()).Str("value", p.Message.Value.String()).Msg("Permit and transfer submitted")

	result := &TransferResult{TransactionID: id, Permit: p}

	result.Balance, err = s.balances.GetTokenBalance(ctx, preq.Token, preq.Owner)
	if err != nil {
		// the transfer went through, only the reconciliation read failed
		log.Warn().Err(err).Msg("Failed to refresh balance after transfer")
		return result, nil
	}

	return result, nil
}

func (s *service) Transfer(ctx context.Context, to common.Address, amount string) (batch.TransactionID, error) {
	if to == (common.Address{}) {
		return "", &token.EncodingError{Method: token.MethodTransfer, Reason: "recipient is the zero address"}
	}

	decimals, err := s.reader.ReadDecimals(ctx, s.cfg.Token)
	if err != nil {
		return "", err
	}

	raw, err := balance.ParseUnits(amount, decimals)
	if err != nil {
		return "", &token.EncodingError{Method: token.MethodTransfer, Reason: "amount", Err: err}
	}

	if raw.Sign() == 0 {
		return "", &token.EncodingError{Method: token.MethodTransfer, Reason: "amount is zero"}
	}

	call, err := token.Transfer(s.cfg.Token, to, raw)
	if err != nil {
		return "", err
	}

	id, err := s.submitFrom(ctx, s.cfg.SmartAccount, func(ctx context.Context) (batch.TransactionID, error) {
		return batch.SubmitOne(ctx, s.submitter, call)
	})
	if err != nil {
		return "", err
	}

	util.LogFromContext(ctx).Info().
		Str("to", to.Hex()).
		Str("amount", raw.String()).
		Str("transactionId", id.String()).
		Msg("Gasless transfer submitted")

	return id, nil
}

// submitFrom runs submit while holding the account's lock. User operations of one
// account share its EntryPoint nonce, so only one may be in flight.
// Permit flows take their flow key first, then the account key.
func (s *service) submitFrom(ctx context.Context, account common.Address, submit func(ctx context.Context) (batch.TransactionID, error)) (batch.TransactionID, error) {
	unlock, err := s.locker.Lock(ctx, lock.AccountKey(account))
	if err != nil {
		return "", err
	}
	defer unlock()

	return submit(ctx)
}

func (s *service) Balance(ctx context.Context, owner common.Address) (*balance.TokenBalance, error) {
	return s.balances.GetTokenBalance(ctx, s.cfg.Token, owner)
}

package batch

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github/chapool/go-gasless/internal/metrics"
	"github/chapool/go-gasless/internal/util"
	"github/chapool/go-gasless/internal/wallet/signer"
	"github/chapool/go-gasless/internal/wallet/token"
)

// dummySignature has the shape of a real ECDSA signature so that gas estimation
// of the not yet signed operation succeeds.
var dummySignature = hexutil.MustDecode(
	"0xffffffffffffffffffffffffffffffff000000000000000000000000000000007aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1c",
)

const defaultReceiptPollInterval = 2 * time.Second

// RPCCaller is the subset of *rpc.Client used to talk to bundler and paymaster.
type RPCCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// FeeSuggester returns EIP-1559 fee caps.
type FeeSuggester interface {
	SuggestFees(ctx context.Context) (maxFee *big.Int, tip *big.Int, err error)
}

// SponsoredConfig configures the sponsored execution.
type SponsoredConfig struct {
	EntryPoint common.Address
	// Account is the smart account executing the batch
	Account             common.Address
	ChainID             *big.Int
	Mode                string
	CalculateGasLimits  bool
	ExpiryDuration      time.Duration
	PolicyID            string
	WebhookData         string
	WaitForReceipt      bool
	ReceiptPollInterval time.Duration
}

// SponsoredClient submits batches as paymaster-sponsored ERC-4337 user operations.
type SponsoredClient struct {
	cfg       SponsoredConfig
	bundler   RPCCaller
	paymaster RPCCaller
	caller    ethereum.ContractCaller
	fees      FeeSuggester
	signer    signer.MessageSigner
	metrics   *metrics.Service
}

// NewSponsoredClient wires the sponsoring execution API. paymaster may be the
// same endpoint as bundler.
func NewSponsoredClient(
	cfg SponsoredConfig,
	bundler RPCCaller,
	paymaster RPCCaller,
	caller ethereum.ContractCaller,
	fees FeeSuggester,
	s signer.MessageSigner,
	m *metrics.Service,
) *SponsoredClient {
	if cfg.ReceiptPollInterval <= 0 {
		cfg.ReceiptPollInterval = defaultReceiptPollInterval
	}

	if paymaster == nil {
		paymaster = bundler
	}

	return &SponsoredClient{
		cfg:       cfg,
		bundler:   bundler,
		paymaster: paymaster,
		caller:    caller,
		fees:      fees,
		signer:    s,
		metrics:   m,
	}
}

// Ready reports whether the client can submit at all.
func (c *SponsoredClient) Ready() bool {
	return c != nil && c.bundler != nil && c.caller != nil && c.fees != nil && c.signer != nil
}

// SupportedEntryPoints asks the bundler which EntryPoints it serves.
func (c *SponsoredClient) SupportedEntryPoints(ctx context.Context) ([]common.Address, error) {
	if !c.Ready() {
		return nil, ErrNotReady
	}

	var entryPoints []common.Address
	if err := c.bundler.CallContext(ctx, &entryPoints, "eth_supportedEntryPoints"); err != nil {
		return nil, errors.Wrap(err, "failed to get supported entry points")
	}

	return entryPoints, nil
}

// CheckEntryPoint verifies the bundler serves the configured EntryPoint.
func (c *SponsoredClient) CheckEntryPoint(ctx context.Context) error {
	entryPoints, err := c.SupportedEntryPoints(ctx)
	if err != nil {
		return err
	}

	for _, ep := range entryPoints {
		if ep == c.cfg.EntryPoint {
			return nil
		}
	}

	return errors.Errorf("bundler does not support entry point %s", c.cfg.EntryPoint.Hex())
}

func (c *SponsoredClient) Submit(ctx context.Context, calls []token.EncodedCall) (TransactionID, error) {
	if !c.Ready() {
		return "", &SubmissionError{Stage: StagePrecheck, Err: ErrNotReady}
	}

	start := time.Now()
	id, err := c.submit(ctx, calls)
	c.metrics.ObserveSubmission(time.Since(start), err)

	return id, err
}

func (c *SponsoredClient) submit(ctx context.Context, calls []token.EncodedCall) (TransactionID, error) {
	log := util.LogFromContext(ctx).With().Str("account", c.cfg.Account.Hex()).Int("calls", len(calls)).Logger()

	callData, err := EncodeExecution(calls)
	if err != nil {
		return "", &SubmissionError{Stage: StageEncode, Err: err}
	}

	nonce, err := c.accountNonce(ctx)
	if err != nil {
		return "", &SubmissionError{Stage: StageNonce, Err: err}
	}

	maxFee, tip, err := c.fees.SuggestFees(ctx)
	if err != nil {
		return "", &SubmissionError{Stage: StageFees, Err: err}
	}

	op := &UserOperation{
		Sender:               c.cfg.Account,
		Nonce:                nonce,
		CallData:             callData,
		CallGasLimit:         new(big.Int),
		VerificationGasLimit: new(big.Int),
		PreVerificationGas:   new(big.Int),
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: tip,
		Signature:            dummySignature,
	}

	var sponsored SponsorResult
	if err := c.paymaster.CallContext(ctx, &sponsored, "pm_sponsorUserOperation", op, c.cfg.EntryPoint, c.sponsorContext()); err != nil {
		log.Warn().Err(err).Msg("Paymaster refused sponsorship")
		return "", &SubmissionError{Stage: StageSponsor, Err: err}
	}
	sponsored.apply(op)

	hash, err := op.Hash(c.cfg.EntryPoint, c.cfg.ChainID)
	if err != nil {
		return "", &SubmissionError{Stage: StageSign, Err: errors.Wrap(err, "failed to hash user operation")}
	}

	op.Signature, err = c.signer.SignMessage(ctx, c.cfg.Account, hash.Bytes())
	if err != nil {
		return "", &SubmissionError{Stage: StageSign, Err: err}
	}

	var opHash common.Hash
	if err := c.bundler.CallContext(ctx, &opHash, "eth_sendUserOperation", op, c.cfg.EntryPoint); err != nil {
		log.Warn().Err(err).Msg("Bundler rejected user operation")
		return "", &SubmissionError{Stage: StageSend, Err: err}
	}

	log.Info().Str("userOpHash", opHash.Hex()).Str("nonce", nonce.String()).Msg("User operation sent")

	if !c.cfg.WaitForReceipt {
		return TransactionID(opHash.Hex()), nil
	}

	receipt, err := c.waitForReceipt(ctx, opHash)
	if err != nil {
		return "", &SubmissionError{Stage: StageReceipt, Err: err}
	}

	if !receipt.Success {
		reason := receipt.Reason
		if reason == "" {
			reason = "no reason given"
		}

		log.Warn().Str("userOpHash", opHash.Hex()).Str("reason", reason).Msg("User operation reverted")

		return "", &SubmissionError{Stage: StageExecution, Err: errors.Wrap(ErrReverted, reason)}
	}

	txHash := receipt.Receipt.TransactionHash.Hex()
	log.Info().Str("userOpHash", opHash.Hex()).Str("txHash", txHash).Msg("User operation included")

	return TransactionID(txHash), nil
}

func (c *SponsoredClient) accountNonce(ctx context.Context) (*big.Int, error) {
	data, err := encodeGetNonce(c.cfg.Account)
	if err != nil {
		return nil, err
	}

	entryPoint := c.cfg.EntryPoint
	resp, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &entryPoint, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read account nonce")
	}

	return decodeGetNonce(resp)
}

func (c *SponsoredClient) sponsorContext() map[string]interface{} {
	ctx := map[string]interface{}{
		"mode":               strings.ToUpper(c.cfg.Mode),
		"calculateGasLimits": c.cfg.CalculateGasLimits,
		"expiryDuration":     int64(c.cfg.ExpiryDuration / time.Second),
	}

	if c.cfg.PolicyID != "" {
		ctx["policyId"] = c.cfg.PolicyID
	}

	if c.cfg.WebhookData != "" {
		ctx["webhookData"] = c.cfg.WebhookData
	}

	return ctx
}

// waitForReceipt polls until the operation is included or ctx is done.
func (c *SponsoredClient) waitForReceipt(ctx context.Context, opHash common.Hash) (*UserOperationReceipt, error) {
	ticker := time.NewTicker(c.cfg.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		var receipt *UserOperationReceipt
		if err := c.bundler.CallContext(ctx, &receipt, "eth_getUserOperationReceipt", opHash); err != nil {
			return nil, errors.Wrap(err, "failed to get user operation receipt")
		}

		if receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "stopped waiting for user operation receipt")
		case <-ticker.C:
		}
	}
}

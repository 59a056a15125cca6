package batch

import (
	"context"

	"github/chapool/go-gasless/internal/util"
	"github/chapool/go-gasless/internal/wallet/permit"
	"github/chapool/go-gasless/internal/wallet/token"
)

// SubmitOne submits a single call.
func SubmitOne(ctx context.Context, s Submitter, call token.EncodedCall) (TransactionID, error) {
	return submit(ctx, s, []token.EncodedCall{call})
}

// PermitAndTransferCalls returns [permit(...), transferFrom(owner, spender, value)].
func PermitAndTransferCalls(p *permit.Permit) ([]token.EncodedCall, error) {
	m := p.Message

	permitCall, err := token.Permit(p.Token(), m.Owner, m.Spender, m.Value, m.Deadline, p.V, p.R, p.S)
	if err != nil {
		return nil, err
	}

	transferCall, err := token.TransferFrom(p.Token(), m.Owner, m.Spender, m.Value)
	if err != nil {
		return nil, err
	}

	return []token.EncodedCall{permitCall, transferCall}, nil
}

// PermitAndTransfer submits the permit and the transferFrom it enables as one batch.
// The permit is consumed even if the submission fails.
func PermitAndTransfer(ctx context.Context, s Submitter, p *permit.Permit) (TransactionID, error) {
	if !p.MarkConsumed() {
		return "", &SubmissionError{Stage: StagePrecheck, Err: ErrPermitConsumed}
	}

	calls, err := PermitAndTransferCalls(p)
	if err != nil {
		return "", &SubmissionError{Stage: StageEncode, Err: err}
	}

	id, err := submit(ctx, s, calls)
	if err != nil {
		return "", err
	}

	util.LogFromContext(ctx).Info().
		Str("owner", p.Message.Owner.Hex()).
		Str("spender", p.Message.Spender.Hex()).
		Str("value", p.Message.Value.String()).
		Str("transactionId", id.String()).
		Msg("Permit and transfer submitted")

	return id, nil
}

func submit(ctx context.Context, s Submitter, calls []token.EncodedCall) (TransactionID, error) {
	if s == nil {
		return "", &SubmissionError{Stage: StagePrecheck, Err: ErrNotReady}
	}

	id, err := s.Submit(ctx, calls)
	if err != nil {
		return "", wrapSubmission(StageSend, err)
	}

	return id, nil
}

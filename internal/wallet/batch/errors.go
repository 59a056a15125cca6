package batch

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotReady means no sponsoring client is configured or connected.
	ErrNotReady       = errors.New("sponsored execution is not ready")
	ErrEmptyBatch     = errors.New("batch contains no calls")
	ErrPermitConsumed = errors.New("permit was already submitted")
	ErrReverted       = errors.New("execution reverted")
)

// Stages of a submission, reported in SubmissionError.
const (
	StageEncode    = "encode"
	StageNonce     = "nonce"
	StageFees      = "fees"
	StageSponsor   = "sponsor"
	StageSign      = "sign"
	StageSend      = "send"
	StageReceipt   = "receipt"
	StageExecution = "execution"
	StagePrecheck  = "precheck"
)

// SubmissionError reports a batch that was rejected, failed in transport or reverted.
type SubmissionError struct {
	Stage string
	Err   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed (%s): %v", e.Stage, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// wrapSubmission leaves existing SubmissionErrors untouched.
func wrapSubmission(stage string, err error) error {
	if err == nil {
		return nil
	}

	var subErr *SubmissionError
	if errors.As(err, &subErr) {
		return err
	}

	return &SubmissionError{Stage: stage, Err: err}
}

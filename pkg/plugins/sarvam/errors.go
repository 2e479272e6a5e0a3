package sarvam

import (
	"context"
	"errors"

	"github.com/moderatehq/voiceworker/internal/sarvam"
	"github.com/moderatehq/voiceworker/pkg/agent"
)

// translateError maps a client failure into the shared provider error
// taxonomy so callers can retry on the right conditions.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *sarvam.APIError
	if errors.As(err, &apiErr) {
		return agent.NewStatusError("sarvam api error", apiErr.StatusCode, "", apiErr.Body)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return agent.NewTimeoutError(true)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return agent.NewConnectionError(err, true)
}

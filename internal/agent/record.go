package agent

import (
	"errors"

	"aua/internal/ops"
	"aua/internal/store"
)

func interaction(sessionID, input, operation string, params map[string]string, response string, outcome store.Outcome) store.Interaction {
	return store.Interaction{
		SessionID:  sessionID,
		UserInput:  input,
		Operation:  operation,
		Parameters: params,
		Response:   response,
		Outcome:    outcome,
	}
}

func memoryOutcome(err error) store.Outcome {
	switch {
	case err == nil:
		return store.OutcomeSuccess
	case errors.Is(err, ops.ErrPartialResult):
		return store.OutcomePartial
	default:
		return store.OutcomeFailure
	}
}

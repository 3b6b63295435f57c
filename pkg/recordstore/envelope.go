package recordstore

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Envelope is the response to a fetch or get.
type Envelope struct {
	Success bool     `json:"success"`
	Data    []Record `json:"data"`
	Total   int      `json:"total,omitempty"`
	Message string   `json:"message,omitempty"`
}

// RecordResult is the per-record outcome of a create or update batch.
type RecordResult struct {
	Success bool   `json:"success"`
	Data    Record `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// MutationEnvelope is the response to a create or update batch.
type MutationEnvelope struct {
	Success bool           `json:"success"`
	Results []RecordResult `json:"results"`
	Message string         `json:"message,omitempty"`
}

var ErrUnsuccessful = errors.New("record store reported failure")

// Rows returns the envelope data when it is usable, or an error describing why not.
func (e *Envelope) Rows() ([]Record, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: empty response", ErrUnsuccessful)
	}
	if !e.Success {
		return nil, fmt.Errorf("%w: %s", ErrUnsuccessful, e.Message)
	}
	return e.Data, nil
}

// Results splits a mutation batch into the records that succeeded and a combined error
// for those that did not. Partial success returns both.
func Results(env *MutationEnvelope) ([]Record, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: empty response", ErrUnsuccessful)
	}
	if !env.Success && len(env.Results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsuccessful, env.Message)
	}

	var (
		succeeded []Record
		failures  error
	)
	for i, result := range env.Results {
		if result.Success {
			succeeded = append(succeeded, result.Data)
			continue
		}
		msg := result.Message
		if msg == "" {
			msg = "unknown error"
		}
		failures = multierr.Append(failures, fmt.Errorf("record %d: %s", i, msg))
	}
	if failures != nil {
		failures = fmt.Errorf("%w: %w", ErrUnsuccessful, failures)
	}
	return succeeded, failures
}

package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrInvalidJSON is returned when the model produced no usable JSON.
var ErrInvalidJSON = errors.New("llm: invalid JSON from model")

// Client is the minimal LLM surface the service needs: send a prompt plus
// a JSON input, get JSON back.
type Client interface {
	Name() string
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
	Close() error
}

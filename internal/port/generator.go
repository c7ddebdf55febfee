package port

import (
	"context"

	"github.com/mareevma/skladbot/internal/core/domain"
)

type CommandGenerator interface {
	// GenerateCommand turns a user utterance plus the current stock
	// snapshot into a candidate command payload. The context carries
	// the caller's timeout; an error means the payload is unusable.
	GenerateCommand(ctx context.Context, stockContext, utterance string) (*domain.CommandPayload, error)
}

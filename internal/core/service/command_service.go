package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mareevma/skladbot/internal/core/domain"
	"github.com/mareevma/skladbot/internal/port"
)

var (
	ErrGeneratorFailed = errors.New("command generator failed")
	ErrBadPayload      = errors.New("command payload has no usable sql or mode")
)

// BusinessError carries a structured refusal from the generator, e.g.
// subtracting more than is on the shelf. The attempt is audited as
// failed but the store is never touched.
type BusinessError struct {
	Reason string
}

func (e *BusinessError) Error() string {
	return e.Reason
}

// CommandService drives one utterance through context assembly,
// command generation, validation and execution. It owns the
// single-flight discipline: scripts from different utterances never
// interleave against the store.
type CommandService struct {
	store        port.WarehouseStore
	generator    port.CommandGenerator
	contextLimit int
	logger       *zap.Logger

	mu sync.Mutex
}

func NewCommandService(store port.WarehouseStore, generator port.CommandGenerator, contextLimit int, logger *zap.Logger) *CommandService {
	return &CommandService{
		store:        store,
		generator:    generator,
		contextLimit: contextLimit,
		logger:       logger,
	}
}

// Handle processes one operator utterance to completion. Error
// categories, dispatchable with errors.Is / errors.As:
//   - ErrGeneratorFailed, ErrBadPayload: format failure, no store contact
//   - *BusinessError: generator refusal, audited as a failed attempt
//   - ErrScriptRejected: safety gate, no store contact
//   - anything else: store failure, already audited and rolled back
func (s *CommandService) Handle(ctx context.Context, user, utterance string) (*domain.CommandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attemptID := uuid.New().String()
	log := s.logger.With(zap.String("attempt_id", attemptID), zap.String("user", user))

	stockContext, err := s.store.BuildStockContext(ctx, s.contextLimit)
	if err != nil {
		return nil, fmt.Errorf("build stock context: %w", err)
	}

	payload, err := s.generator.GenerateCommand(ctx, stockContext, utterance)
	if err != nil {
		log.Error("generator call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGeneratorFailed, err)
	}

	if payload.Error != "" {
		log.Info("generator refused command", zap.String("reason", payload.Error))
		rec := domain.AuditRecord{
			User:    user,
			SQLText: utterance,
			Summary: payload.Error,
			Success: false,
		}
		if auditErr := s.store.AppendAudit(ctx, rec); auditErr != nil {
			log.Error("audit append failed", zap.Error(auditErr))
		}
		return nil, &BusinessError{Reason: payload.Error}
	}

	if payload.SQL == "" || !payload.Mode.Valid() {
		log.Warn("unusable payload", zap.String("mode", string(payload.Mode)))
		return nil, ErrBadPayload
	}

	stmts, err := ValidateScript(payload.SQL)
	if err != nil {
		log.Warn("script rejected", zap.String("sql", payload.SQL), zap.Error(err))
		return nil, err
	}

	rows, err := s.store.ExecScript(ctx, stmts, payload.Mode, user, payload.Summary)
	if err != nil {
		log.Error("script execution failed", zap.Error(err))
		return nil, fmt.Errorf("execute script: %w", err)
	}

	log.Info("command executed",
		zap.String("mode", string(payload.Mode)),
		zap.Int("statements", len(stmts)),
		zap.String("summary", payload.Summary))

	return &domain.CommandResult{
		Mode:    payload.Mode,
		Summary: payload.Summary,
		Rows:    rows,
	}, nil
}

package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hobbyhunter/storefront/hobbyhunter/api"
	"github.com/hobbyhunter/storefront/hobbyhunter/flags"
	"github.com/hobbyhunter/storefront/hobbyhunter/logger"
	"github.com/hobbyhunter/storefront/hobbyhunter/mockdata"
)

// Data sources reported in repository logs.
const (
	SourceRemote   = "remote"
	SourceMock     = "mock"
	SourceFallback = "fallback"
)

// BaseRepository provides the remote-or-mock switch shared by every repository
type BaseRepository struct {
	client   *api.Client
	flags    *flags.Manager
	flag     flags.Name
	entity   string
	latency  *mockdata.Latency
	fallback bool
}

// NewBaseRepository creates a base repository for entity, switched by flag
func NewBaseRepository(client *api.Client, flagManager *flags.Manager, flag flags.Name, entity string, latency *mockdata.Latency) *BaseRepository {
	return &BaseRepository{
		client:   client,
		flags:    flagManager,
		flag:     flag,
		entity:   entity,
		latency:  latency,
		fallback: true,
	}
}

// WithoutFallback disables mock fallback for this repository regardless of
// the global flag.
func (br *BaseRepository) WithoutFallback() *BaseRepository {
	br.fallback = false
	return br
}

// RepositoryError represents a repository-level error
type RepositoryError struct {
	Operation string
	Entity    string
	Err       error
}

func (re *RepositoryError) Error() string {
	return fmt.Sprintf("repository error during %s for %s: %v", re.Operation, re.Entity, re.Err)
}

func (re *RepositoryError) Unwrap() error {
	return re.Err
}

// NotFoundError represents an entity not found error
type NotFoundError struct {
	Entity string
	ID     interface{}
	Err    error
}

func (nfe *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %v not found", nfe.Entity, nfe.ID)
}

func (nfe *NotFoundError) Unwrap() error {
	return nfe.Err
}

// ValidationError is returned when a request is rejected before anything is
// charged or written.
type ValidationError struct {
	Entity  string
	Reasons []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", ve.Entity, ve.Reasons)
}

// UsesRealAPI reports whether the repository flag routes calls to the remote API
func (br *BaseRepository) UsesRealAPI() bool {
	return br.flags == nil || br.flags.IsEnabled(br.flag)
}

// FallbackEnabled reports whether remote failures may be served from mock data
func (br *BaseRepository) FallbackEnabled() bool {
	if !br.fallback {
		return false
	}
	return br.flags == nil || br.flags.IsEnabled(flags.MockFallback)
}

// ShouldFallback reports whether err qualifies for mock fallback. Only
// transport-level failures do; a not_found or validation answer from the
// server is authoritative.
func (br *BaseRepository) ShouldFallback(err error) bool {
	return br.FallbackEnabled() && api.IsKind(err, api.KindNetwork, api.KindServer, api.KindTimeout)
}

// HandleErrorWithID standardizes error handling with specific ID
func (br *BaseRepository) HandleErrorWithID(operation string, id interface{}, err error) error {
	if err == nil {
		return nil
	}

	var nfe *NotFoundError
	if errors.As(err, &nfe) {
		return err
	}
	if errors.Is(err, mockdata.ErrNotFound) || api.IsKind(err, api.KindNotFound) {
		return &NotFoundError{Entity: br.entity, ID: id, Err: err}
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return err
	}

	return &RepositoryError{
		Operation: operation,
		Entity:    br.entity,
		Err:       err,
	}
}

func (br *BaseRepository) mock(ctx context.Context) error {
	return br.latency.Wait(ctx)
}

// run executes remote when the repository flag is on and mock otherwise,
// falling back to mock on transport failures when allowed.
func run[T any](ctx context.Context, br *BaseRepository, operation string, id interface{}, remote, mock func(context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()

	if !br.UsesRealAPI() {
		if err := br.mock(ctx); err != nil {
			return zero, br.HandleErrorWithID(operation, id, err)
		}
		result, err := mock(ctx)
		logger.LogRepository(br.entity, operation, SourceMock, time.Since(start), err)
		if err != nil {
			return zero, br.HandleErrorWithID(operation, id, err)
		}
		return result, nil
	}

	result, err := remote(ctx)
	if err == nil {
		logger.LogRepository(br.entity, operation, SourceRemote, time.Since(start), nil)
		return result, nil
	}

	if !br.ShouldFallback(err) {
		logger.LogRepository(br.entity, operation, SourceRemote, time.Since(start), err)
		return zero, br.HandleErrorWithID(operation, id, err)
	}

	slog.Warn("Remote call failed, serving mock data",
		slog.String("type", "repo"),
		slog.String("entity", br.entity),
		slog.String("operation", operation),
		slog.String("kind", string(api.KindOf(err))),
		slog.Any("error", err))

	if err := br.mock(ctx); err != nil {
		return zero, br.HandleErrorWithID(operation, id, err)
	}
	result, err = mock(ctx)
	logger.LogRepository(br.entity, operation, SourceFallback, time.Since(start), err)
	if err != nil {
		return zero, br.HandleErrorWithID(operation, id, err)
	}
	return result, nil
}

// exec is run for operations without a result.
func exec(ctx context.Context, br *BaseRepository, operation string, id interface{}, remote, mock func(context.Context) error) error {
	_, err := run(ctx, br, operation, id,
		func(ctx context.Context) (struct{}, error) { return struct{}{}, remote(ctx) },
		func(ctx context.Context) (struct{}, error) { return struct{}{}, mock(ctx) },
	)
	return err
}

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRepositoryError checks if an error is a RepositoryError
func IsRepositoryError(err error) bool {
	var re *RepositoryError
	return errors.As(err, &re)
}

// withLatency returns a copy of br that simulates a different delay.
func (br *BaseRepository) withLatency(latency *mockdata.Latency) *BaseRepository {
	cp := *br
	cp.latency = latency
	return &cp
}

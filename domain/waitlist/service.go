package waitlist

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/kennelworks/kennel-api/internal/log"
	apperrors "github.com/kennelworks/kennel-api/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/kennelworks/kennel-api/domain/waitlist"

// FlagReader reports whether public signups are currently accepted. The flag
// may flip between two calls; each create reads it once.
type FlagReader interface {
	IsWaitlistEnabled(ctx context.Context) (bool, error)
}

type WaitlistService interface {
	// ListEntries returns all entries in ascending position order.
	ListEntries(ctx context.Context) ([]WaitlistEntryResponse, error)

	// FindEntryByID retrieves a waitlist entry by its unique ID.
	FindEntryByID(ctx context.Context, id string) (*WaitlistEntryResponse, error)

	// CreateEntry appends a new entry at the end of the line while the waitlist is open.
	CreateEntry(ctx context.Context, req *CreateWaitlistEntryRequest) (*WaitlistEntryResponse, error)

	// UpdateEntry changes status and/or notes of an existing entry.
	UpdateEntry(ctx context.Context, id string, req *UpdateWaitlistEntryRequest) (*WaitlistEntryResponse, error)

	// DeleteEntry removes an entry and moves everyone behind it up one place.
	DeleteEntry(ctx context.Context, id string) (*WaitlistEntryResponse, error)
}

type waitlistService struct {
	logger     *log.Logger
	repository WaitlistRepository
	flags      FlagReader
	validate   *validator.Validate
	tracer     trace.Tracer
}

func NewWaitlistService(logger *log.Logger, repository WaitlistRepository, flags FlagReader) WaitlistService {
	return &waitlistService{
		logger:     logger,
		repository: repository,
		flags:      flags,
		validate:   newValidator(),
		tracer:     otel.Tracer(tracerName),
	}
}

func (s *waitlistService) ListEntries(ctx context.Context) ([]WaitlistEntryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "waitlist.ListEntries")
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	entries, err := s.repository.ListEntries(ctx)
	if err != nil {
		logger.Error("Failed to list waitlist entries", "error", err)
		return nil, recordError(span, err)
	}

	span.SetAttributes(attribute.Int("waitlist.size", len(entries)))
	return ToWaitlistEntryResponses(entries), nil
}

func (s *waitlistService) FindEntryByID(ctx context.Context, id string) (*WaitlistEntryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "waitlist.FindEntryByID", trace.WithAttributes(attribute.String("waitlist.entry_id", id)))
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if id == "" {
		logger.Error("FindEntryByID received empty ID")
		return nil, recordError(span, apperrors.NewInvalidRequestError("entry ID cannot be empty", nil))
	}

	entry, err := s.repository.FindEntryByID(ctx, id)
	if err != nil {
		logger.Error("Failed to find waitlist entry", "id", id, "error", err)
		return nil, recordError(span, err)
	}

	response := ToWaitlistEntryResponse(entry)
	return &response, nil
}

func (s *waitlistService) CreateEntry(ctx context.Context, req *CreateWaitlistEntryRequest) (*WaitlistEntryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "waitlist.CreateEntry")
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil {
		logger.Error("CreateEntry received empty request")
		return nil, recordError(span, apperrors.NewInvalidRequestError("request cannot be nil", nil))
	}

	open, err := s.flags.IsWaitlistEnabled(ctx)
	if err != nil {
		logger.Error("Failed to read waitlist flag", "error", err)
		return nil, recordError(span, apperrors.NewStorageError("unable to read waitlist settings", err))
	}
	if !open {
		logger.Info("Rejected waitlist signup while waitlist is closed")
		return nil, recordError(span, apperrors.NewWaitlistClosedError("The waitlist is currently closed"))
	}

	trimCreateRequest(req)
	if err := validationError(s.validate, req); err != nil {
		logger.Info("Rejected invalid waitlist signup", "error", err)
		return nil, recordError(span, err)
	}

	entry, err := s.repository.CreateEntry(ctx, ToWaitlistEntryModel(req))
	if err != nil {
		logger.Error("Failed to create waitlist entry", "error", err)
		return nil, recordError(span, err)
	}

	span.SetAttributes(
		attribute.String("waitlist.entry_id", entry.ID),
		attribute.Int("waitlist.position", entry.Position),
	)
	logger.Info("Waitlist entry created", "id", entry.ID, "position", entry.Position)

	response := ToWaitlistEntryResponse(entry)
	return &response, nil
}

func (s *waitlistService) UpdateEntry(ctx context.Context, id string, req *UpdateWaitlistEntryRequest) (*WaitlistEntryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "waitlist.UpdateEntry", trace.WithAttributes(attribute.String("waitlist.entry_id", id)))
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if id == "" {
		logger.Error("UpdateEntry received empty ID")
		return nil, recordError(span, apperrors.NewInvalidRequestError("entry ID cannot be empty", nil))
	}

	if req == nil || req.IsEmpty() {
		logger.Error("UpdateEntry received request with no fields to update")
		return nil, recordError(span, apperrors.NewValidationError("at least one of status or notes must be provided", nil))
	}

	trimUpdateRequest(req)
	if err := validationError(s.validate, req); err != nil {
		logger.Info("Rejected invalid waitlist update", "id", id, "error", err)
		return nil, recordError(span, err)
	}

	fieldsToUpdate := make(map[string]interface{}, 2)
	if req.Status != nil {
		status, _ := NormalizeStatus(*req.Status)
		fieldsToUpdate["status"] = status
	}
	if req.Notes != nil {
		fieldsToUpdate["notes"] = *req.Notes
	}

	entry, err := s.repository.UpdateEntry(ctx, id, fieldsToUpdate)
	if err != nil {
		logger.Error("Failed to update waitlist entry", "id", id, "error", err)
		return nil, recordError(span, err)
	}

	response := ToWaitlistEntryResponse(entry)
	return &response, nil
}

func (s *waitlistService) DeleteEntry(ctx context.Context, id string) (*WaitlistEntryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "waitlist.DeleteEntry", trace.WithAttributes(attribute.String("waitlist.entry_id", id)))
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if id == "" {
		logger.Error("DeleteEntry received empty ID")
		return nil, recordError(span, apperrors.NewInvalidRequestError("entry ID cannot be empty", nil))
	}

	entry, err := s.repository.DeleteEntry(ctx, id)
	if err != nil {
		logger.Error("Failed to delete waitlist entry", "id", id, "error", err)
		return nil, recordError(span, err)
	}

	span.SetAttributes(attribute.Int("waitlist.position", entry.Position))
	logger.Info("Waitlist entry deleted", "id", id, "position", entry.Position)

	response := ToWaitlistEntryResponse(entry)
	return &response, nil
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, apperrors.GetErrorType(err))
	return err
}

package party

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/templeparties/backend/internal/domain/party"
	"github.com/templeparties/backend/internal/domain/shared"
	"github.com/templeparties/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ModerationService handles the admin review queue
type ModerationService struct {
	partyRepo party.Repository
	publisher shared.EventPublisher
	logger    *zap.Logger
	metrics   *telemetry.BusinessMetrics
}

// NewModerationService creates a new moderation service
func NewModerationService(
	partyRepo party.Repository,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *ModerationService {
	return &ModerationService{
		partyRepo: partyRepo,
		publisher: publisher,
		logger:    logger,
	}
}

// WithMetrics attaches business metrics recording to the service
func (s *ModerationService) WithMetrics(metrics *telemetry.BusinessMetrics) *ModerationService {
	s.metrics = metrics
	return s
}

// Pending returns the review queue, oldest submissions first
func (s *ModerationService) Pending(ctx context.Context) ([]*PartyView, error) {
	parties, err := s.partyRepo.FindPending(ctx)
	if err != nil {
		s.logger.Error("Failed to load pending parties", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load pending parties")
	}

	views := make([]*PartyView, 0, len(parties))
	for _, p := range parties {
		views = append(views, toPartyView(p))
	}
	return views, nil
}

// Approve moves a pending party into the public feed
func (s *ModerationService) Approve(ctx context.Context, id uuid.UUID) (*PartyView, error) {
	return s.moderate(ctx, id, telemetry.ModerationApproved, (*party.Party).Approve)
}

// Reject takes a pending party out of review without publishing it
func (s *ModerationService) Reject(ctx context.Context, id uuid.UUID) (*PartyView, error) {
	return s.moderate(ctx, id, telemetry.ModerationRejected, (*party.Party).Reject)
}

func (s *ModerationService) moderate(
	ctx context.Context,
	id uuid.UUID,
	decision telemetry.ModerationDecision,
	transition func(*party.Party) error,
) (*PartyView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "moderation", string(decision),
		telemetry.WithAttribute(telemetry.SpanAttrPartyID, id.String()))
	defer span.End()

	p, err := s.partyRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		s.logger.Error("Failed to load party", zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load party")
	}

	if err := transition(p); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.partyRepo.Update(ctx, p); err != nil {
		s.logger.Error("Failed to update party", zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update party")
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, p.GetDomainEvents()...); err != nil {
			s.logger.Error("Failed to publish moderation events", zap.Error(err))
		}
		p.ClearDomainEvents()
	}

	if s.metrics != nil {
		s.metrics.RecordModeration(ctx, decision)
	}

	s.logger.Info("Party moderated",
		zap.String("party_id", p.ID.String()),
		zap.String("decision", string(decision)))

	return toPartyView(p), nil
}

// GetPendingPartyCount reports the review queue depth.
// Implements telemetry.ModerationMetricsProvider for the pending gauge.
func (s *ModerationService) GetPendingPartyCount(ctx context.Context) (int64, error) {
	parties, err := s.partyRepo.FindPending(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(parties)), nil
}

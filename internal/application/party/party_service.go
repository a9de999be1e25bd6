package party

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/templeparties/backend/internal/domain/party"
	"github.com/templeparties/backend/internal/domain/shared"
	"github.com/templeparties/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PartyService handles party listing operations
type PartyService struct {
	partyRepo party.Repository
	goingRepo party.GoingRepository
	publisher shared.EventPublisher
	logger    *zap.Logger
	metrics   *telemetry.BusinessMetrics
	now       func() time.Time
}

// NewPartyService creates a new party service
func NewPartyService(
	partyRepo party.Repository,
	goingRepo party.GoingRepository,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *PartyService {
	return &PartyService{
		partyRepo: partyRepo,
		goingRepo: goingRepo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithMetrics attaches business metrics recording to the service
func (s *PartyService) WithMetrics(metrics *telemetry.BusinessMetrics) *PartyService {
	s.metrics = metrics
	return s
}

// WithClock overrides the clock, for tests
func (s *PartyService) WithClock(now func() time.Time) *PartyService {
	s.now = now
	return s
}

// Create submits a new party listing for review. The listing lands in the
// weekend containing now and stays out of the public feed until approved.
func (s *PartyService) Create(ctx context.Context, input CreatePartyInput, userID uuid.UUID) (*PartyView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "party", "create")
	defer span.End()

	p, err := party.NewParty(party.NewPartyInput{
		Title:       input.Title,
		Host:        input.Host,
		Category:    input.Category,
		Location:    input.Location,
		Description: input.Description,
		Day:         input.Day,
		DoorsOpen:   input.DoorsOpen,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
	}, userID, s.now())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.partyRepo.Save(ctx, p); err != nil {
		s.logger.Error("Failed to save party", zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to submit party")
	}

	s.publishEvents(ctx, p)

	if s.metrics != nil {
		s.metrics.RecordPartySubmitted(ctx, string(p.Day))
	}

	s.logger.Info("Party submitted",
		zap.String("party_id", p.ID.String()),
		zap.String("title", p.Title),
		zap.String("day", string(p.Day)))

	return toPartyView(p), nil
}

// Feed returns the approved parties for the current weekend, hottest first.
// The hyped flag marks the single approved party with the strictly highest
// going count on its day; ties and all-zero days have no hyped party. When
// the viewer is signed in, each item carries their attendance flag.
func (s *PartyService) Feed(ctx context.Context, input FeedInput) ([]*PartyView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "party", "feed")
	defer span.End()

	var dayFilter *party.Day
	if input.Day != "" {
		day, err := party.ParseDay(input.Day)
		if err != nil {
			return nil, err
		}
		dayFilter = &day
	}

	weekend := party.WeekendOf(s.now())
	parties, err := s.partyRepo.FindApprovedByWeekend(ctx, weekend, dayFilter)
	if err != nil {
		s.logger.Error("Failed to load weekend feed", zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load parties")
	}

	views := make([]*PartyView, 0, len(parties))
	for _, p := range parties {
		views = append(views, toPartyView(p))
	}
	markHyped(views)

	if input.ViewerID != uuid.Nil && len(views) > 0 {
		ids := make([]uuid.UUID, 0, len(views))
		for _, v := range views {
			ids = append(ids, v.ID)
		}
		going, err := s.goingRepo.UserIsGoing(ctx, input.ViewerID, ids)
		if err != nil {
			s.logger.Error("Failed to load attendance flags", zap.Error(err))
			telemetry.RecordError(span, err)
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load parties")
		}
		for _, v := range views {
			v.IsGoing = going[v.ID]
		}
	}

	return views, nil
}

// markHyped flags the unique going-count leader per day.
// A day with a tie at the top, or with no attendance at all, has no leader.
func markHyped(views []*PartyView) {
	type leader struct {
		view  *PartyView
		count int
		tied  bool
	}
	leaders := make(map[string]*leader, 2)

	for _, v := range views {
		if v.GoingCount == 0 {
			continue
		}
		l, ok := leaders[v.Day]
		switch {
		case !ok || v.GoingCount > l.count:
			leaders[v.Day] = &leader{view: v, count: v.GoingCount}
		case v.GoingCount == l.count:
			l.tied = true
		}
	}

	for _, l := range leaders {
		if !l.tied {
			l.view.Hyped = true
		}
	}
}

// Get returns a single party. Pending and rejected listings are only
// visible to their submitter and to admins; everyone else gets not-found
// so the listing's existence is not leaked.
func (s *PartyService) Get(ctx context.Context, id, viewerID uuid.UUID, isAdmin bool) (*PartyView, error) {
	p, err := s.partyRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		s.logger.Error("Failed to load party", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load party")
	}

	if !p.VisibleTo(viewerID, isAdmin) {
		return nil, shared.ErrNotFound
	}

	view := toPartyView(p)
	if viewerID != uuid.Nil {
		going, err := s.goingRepo.Exists(ctx, p.ID, viewerID)
		if err != nil {
			s.logger.Error("Failed to load attendance flag", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load party")
		}
		view.IsGoing = going
	}

	return view, nil
}

// Delete removes a listing. Only the submitter or an admin may delete;
// attendance markers go with it.
func (s *PartyService) Delete(ctx context.Context, id, userID uuid.UUID, isAdmin bool) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "party", "delete")
	defer span.End()

	p, err := s.partyRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrNotFound
		}
		s.logger.Error("Failed to load party", zap.Error(err))
		telemetry.RecordError(span, err)
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete party")
	}

	if !p.DeletableBy(userID, isAdmin) {
		return shared.ErrForbidden
	}

	if err := s.partyRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrNotFound
		}
		s.logger.Error("Failed to delete party", zap.Error(err))
		telemetry.RecordError(span, err)
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete party")
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, party.NewPartyDeletedEvent(p)); err != nil {
			s.logger.Error("Failed to publish deletion event", zap.Error(err))
		}
	}

	s.logger.Info("Party deleted",
		zap.String("party_id", id.String()),
		zap.String("deleted_by", userID.String()),
		zap.Bool("by_admin", isAdmin && userID != p.CreatedBy))

	return nil
}

// ToggleGoing flips the caller's attendance on an approved party and
// returns the resulting membership flag and count. Toggling twice returns
// to the original state.
func (s *PartyService) ToggleGoing(ctx context.Context, partyID, userID uuid.UUID) (*ToggleGoingResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "party", "toggle_going",
		telemetry.WithAttribute(telemetry.SpanAttrPartyID, partyID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrUserID, userID.String()))
	defer span.End()

	p, err := s.partyRepo.FindByID(ctx, partyID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		s.logger.Error("Failed to load party", zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update attendance")
	}

	if !p.IsApproved() {
		return nil, shared.ErrInvalidState
	}

	going, count, err := s.goingRepo.Toggle(ctx, partyID, userID)
	if err != nil {
		s.logger.Error("Failed to toggle attendance", zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update attendance")
	}

	if s.metrics != nil {
		s.metrics.RecordGoingToggle(ctx, going)
	}

	if s.publisher != nil {
		p.GoingCount = count
		if err := s.publisher.Publish(ctx, party.NewGoingChangedEvent(p)); err != nil {
			s.logger.Error("Failed to publish going change event", zap.Error(err))
		}
	}

	return &ToggleGoingResult{Going: going, GoingCount: count}, nil
}

// GoingPartyIDs returns the parties the caller is currently going to
func (s *PartyService) GoingPartyIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.goingRepo.PartyIDsForUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load attendance list", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load attendance")
	}
	return ids, nil
}

// publishEvents drains the aggregate's pending events onto the bus.
// Publish failures are logged, not surfaced: the write already committed.
func (s *PartyService) publishEvents(ctx context.Context, p *party.Party) {
	if s.publisher == nil {
		return
	}
	events := p.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish domain events",
			zap.String("party_id", p.ID.String()),
			zap.Error(err))
	}
	p.ClearDomainEvents()
}

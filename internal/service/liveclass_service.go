package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/vedhaiygl/smart-attendance-api/internal/models"
	"github.com/vedhaiygl/smart-attendance-api/internal/store"
)

// LiveClassService coordinates the live class lifecycle.
type LiveClassService struct {
	store   store.Store
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewLiveClassService constructs the live class service.
func NewLiveClassService(st store.Store, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *LiveClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveClassService{store: st, cache: cache, metrics: metrics, logger: logger}
}

// Start opens a live class; any previous live class in the course is ended
// first so at most one is live per course.
func (s *LiveClassService) Start(ctx context.Context, courseID string) (*models.LiveClass, error) {
	lc, err := s.store.StartLiveClass(ctx, courseID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLiveClassEvent("start")
	s.invalidate(ctx)
	s.logger.Info("live class started", zap.String("course_id", courseID), zap.String("live_class_id", lc.ID))
	return lc, nil
}

// End transitions live to ended and finalizes open attendee entries.
func (s *LiveClassService) End(ctx context.Context, courseID, liveClassID string) (*models.LiveClass, error) {
	lc, err := s.store.EndLiveClass(ctx, courseID, liveClassID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLiveClassEvent("end")
	s.invalidate(ctx)
	s.logger.Info("live class ended", zap.String("live_class_id", liveClassID))
	return lc, nil
}

// Join records a student entering the live class.
func (s *LiveClassService) Join(ctx context.Context, courseID, liveClassID, studentID string) (*models.LiveClass, error) {
	lc, err := s.store.JoinLiveClass(ctx, courseID, liveClassID, studentID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLiveClassEvent("join")
	s.invalidate(ctx)
	return lc, nil
}

// Leave closes the student's open entry and computes the stay duration.
func (s *LiveClassService) Leave(ctx context.Context, courseID, liveClassID, studentID string) (*models.LiveClassAttendee, error) {
	attendee, err := s.store.LeaveLiveClass(ctx, courseID, liveClassID, studentID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLiveClassEvent("leave")
	s.invalidate(ctx)
	return attendee, nil
}

func (s *LiveClassService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateReadModel(ctx); err != nil {
		s.logger.Warn("read model invalidation failed", zap.Error(err))
	}
}

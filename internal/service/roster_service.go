package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vedhaiygl/smart-attendance-api/internal/directory"
	"github.com/vedhaiygl/smart-attendance-api/internal/models"
	"github.com/vedhaiygl/smart-attendance-api/internal/store"
	appErrors "github.com/vedhaiygl/smart-attendance-api/pkg/errors"
)

// RosterService owns the course catalogue and enrollment surface, with a
// cached read model for course listings.
type RosterService struct {
	store     store.Store
	directory directory.Directory
	cache     *CacheService
	sessions  *SessionService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRosterService constructs the roster service.
func NewRosterService(st store.Store, dir directory.Directory, cache *CacheService, sessions *SessionService, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{store: st, directory: dir, cache: cache, sessions: sessions, validator: validate, logger: logger}
}

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
	Code string `json:"code" validate:"required,min=1,max=32"`
}

// ListCourses returns every course, served from the read model cache when warm.
func (s *RosterService) ListCourses(ctx context.Context) ([]models.Course, error) {
	var cached []models.Course
	if hit, err := s.cache.Get(ctx, cacheKeyCourseList, &cached); err == nil && hit {
		return cached, nil
	}
	courses, err := s.store.Courses(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cacheKeyCourseList, courses, 0); err != nil {
		s.logger.Warn("course list cache write failed", zap.Error(err))
	}
	return courses, nil
}

// GetCourse returns one course with its full attendance state.
func (s *RosterService) GetCourse(ctx context.Context, courseID string) (*models.Course, error) {
	var cached models.Course
	if hit, err := s.cache.Get(ctx, cacheKeyCoursePrefix+courseID, &cached); err == nil && hit {
		return &cached, nil
	}
	course, err := s.store.CourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cacheKeyCoursePrefix+courseID, course, 0); err != nil {
		s.logger.Warn("course cache write failed", zap.Error(err))
	}
	return course, nil
}

// CreateCourse adds an empty course to the catalogue.
func (s *RosterService) CreateCourse(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.store.CreateCourse(ctx, req.Name, req.Code)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// DeleteCourse removes the course and everything it owns. Rotation loops
// for its sessions are stopped first.
func (s *RosterService) DeleteCourse(ctx context.Context, courseID string) error {
	course, err := s.store.CourseByID(ctx, courseID)
	if err != nil {
		return err
	}
	if s.sessions != nil {
		for i := range course.Sessions {
			s.sessions.stopRotation(course.Sessions[i].ID)
		}
	}
	if err := s.store.DeleteCourse(ctx, courseID); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info("course deleted", zap.String("course_id", courseID))
	return nil
}

// UpdateBanner sets the cosmetic banner image URL.
func (s *RosterService) UpdateBanner(ctx context.Context, courseID, bannerURL string) error {
	if err := s.store.UpdateCourseBanner(ctx, courseID, bannerURL); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// EnrollStudent links a directory student into the course and backfills
// Absent records for existing sessions. Enrolling twice is a no-op.
func (s *RosterService) EnrollStudent(ctx context.Context, courseID, studentID string) error {
	if _, ok := s.directory.Find(studentID); !ok {
		return appErrors.ErrStudentNotFound
	}
	if err := s.store.EnrollStudent(ctx, courseID, studentID); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info("student enrolled", zap.String("course_id", courseID), zap.String("student_id", studentID))
	return nil
}

// Students returns the directory roster.
func (s *RosterService) Students(ctx context.Context) []models.Student {
	return s.directory.List()
}

// Reset clears all attendance state. Used on faculty logout.
func (s *RosterService) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info("attendance state reset")
	return nil
}

func (s *RosterService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateReadModel(ctx); err != nil {
		s.logger.Warn("read model invalidation failed", zap.Error(err))
	}
}

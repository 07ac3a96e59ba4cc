package service

import (
	"context"
	"encoding/base64"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vedhaiygl/smart-attendance-api/internal/models"
	"github.com/vedhaiygl/smart-attendance-api/internal/store"
	appErrors "github.com/vedhaiygl/smart-attendance-api/pkg/errors"
)

// AttendanceService runs the scan pipeline and the faculty override paths.
type AttendanceService struct {
	store     store.Store
	cache     *CacheService
	metrics   *MetricsService
	selfies   *SelfieService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(st store.Store, cache *CacheService, metrics *MetricsService, selfies *SelfieService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{store: st, cache: cache, metrics: metrics, selfies: selfies, validator: validate, logger: logger}
}

// MarkRequest is a scan or short-code entry from a student device.
type MarkRequest struct {
	Code      string `json:"code" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
	// Selfie is the optional base64 liveness payload, with or without a
	// data URL prefix.
	Selfie string `json:"selfie,omitempty"`
}

// Mark validates one attempt and returns the business outcome. Outcomes
// other than success are not errors; the handler maps each to its own
// response shape.
func (s *AttendanceService) Mark(ctx context.Context, req MarkRequest) (*models.MarkResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}
	selfieData, err := decodeSelfie(req.Selfie)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid selfie payload")
	}

	result, err := s.store.MarkAttendance(ctx, store.MarkRequest{
		Code:       strings.TrimSpace(req.Code),
		StudentID:  req.StudentID,
		SelfieData: selfieData,
	})
	if err != nil {
		s.metrics.RecordScan(models.MarkError)
		return nil, err
	}
	s.metrics.RecordScan(result.Outcome)

	if result.Outcome == models.MarkSuccess {
		s.invalidate(ctx)
		if len(selfieData) > 0 && result.Record != nil && result.Record.SelfieRef != nil {
			if err := s.selfies.EnqueueSave(*result.Record.SelfieRef, selfieData); err != nil {
				s.logger.Warn("selfie enqueue failed",
					zap.String("session_id", result.Session.ID),
					zap.String("student_id", req.StudentID),
					zap.Error(err))
			}
		}
		s.logger.Info("attendance marked",
			zap.String("session_id", result.Session.ID),
			zap.String("student_id", req.StudentID),
			zap.Int("scanned_count", result.Session.ScannedCount))
	}
	return result, nil
}

// Toggle flips one record's status without any token validation.
func (s *AttendanceService) Toggle(ctx context.Context, courseID, sessionID, studentID string) (*models.AttendanceRecord, error) {
	record, err := s.store.ToggleAttendance(ctx, courseID, sessionID, studentID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.logger.Info("attendance toggled",
		zap.String("course_id", courseID),
		zap.String("session_id", sessionID),
		zap.String("student_id", studentID),
		zap.String("status", string(record.Status)))
	return record, nil
}

// Summary aggregates one student's presence across a course's sessions.
func (s *AttendanceService) Summary(ctx context.Context, courseID, studentID string) (*models.AttendanceSummary, error) {
	course, err := s.store.CourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.Enrolled(studentID) {
		return nil, appErrors.ErrStudentNotFound
	}
	summary := &models.AttendanceSummary{StudentID: studentID}
	for i := range course.AttendanceRecords {
		r := &course.AttendanceRecords[i]
		if r.StudentID != studentID {
			continue
		}
		summary.Total++
		if r.Status == models.AttendanceStatusPresent {
			summary.Present++
		} else {
			summary.Absent++
		}
	}
	if summary.Total > 0 {
		summary.Percent = math.Round(float64(summary.Present)/float64(summary.Total)*10000) / 100
	}
	return summary, nil
}

// CourseSummary aggregates presence for every enrolled student.
func (s *AttendanceService) CourseSummary(ctx context.Context, courseID string) ([]models.AttendanceSummary, error) {
	course, err := s.store.CourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	byStudent := make(map[string]*models.AttendanceSummary, len(course.Students))
	order := make([]string, 0, len(course.Students))
	for i := range course.Students {
		id := course.Students[i].ID
		byStudent[id] = &models.AttendanceSummary{StudentID: id}
		order = append(order, id)
	}
	for i := range course.AttendanceRecords {
		r := &course.AttendanceRecords[i]
		summary, ok := byStudent[r.StudentID]
		if !ok {
			continue
		}
		summary.Total++
		if r.Status == models.AttendanceStatusPresent {
			summary.Present++
		} else {
			summary.Absent++
		}
	}
	out := make([]models.AttendanceSummary, 0, len(order))
	for _, id := range order {
		summary := byStudent[id]
		if summary.Total > 0 {
			summary.Percent = math.Round(float64(summary.Present)/float64(summary.Total)*10000) / 100
		}
		out = append(out, *summary)
	}
	return out, nil
}

func (s *AttendanceService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateReadModel(ctx); err != nil {
		s.logger.Warn("read model invalidation failed", zap.Error(err))
	}
}

// decodeSelfie accepts a raw base64 string or a data URL and returns the
// decoded bytes. Empty input yields nil.
func decodeSelfie(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if idx := strings.Index(raw, ","); idx >= 0 && strings.HasPrefix(raw, "data:") {
		raw = raw[idx+1:]
	}
	return base64.StdEncoding.DecodeString(raw)
}

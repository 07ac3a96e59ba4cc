package service

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vedhaiygl/smart-attendance-api/internal/models"
	"github.com/vedhaiygl/smart-attendance-api/internal/store"
	"github.com/vedhaiygl/smart-attendance-api/internal/token"
	appErrors "github.com/vedhaiygl/smart-attendance-api/pkg/errors"
)

// SessionService owns the session lifecycle: creation with unique short
// codes, periodic QR rotation, the faculty regenerate override, and the
// token countdown read model.
type SessionService struct {
	store     store.Store
	generator *token.Generator
	clock     token.Clock
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger

	qrValidity        time.Duration
	rotationInterval  time.Duration
	shortCodeAttempts int

	mu         sync.Mutex
	rotations  map[string]context.CancelFunc
	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// SessionServiceConfig tunes token timing.
type SessionServiceConfig struct {
	QRValidity        time.Duration
	RotationInterval  time.Duration
	ShortCodeAttempts int
}

// NewSessionService constructs the session service and starts its rotation root.
func NewSessionService(st store.Store, generator *token.Generator, clock token.Clock, cache *CacheService, metrics *MetricsService, cfg SessionServiceConfig, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = token.SystemClock{}
	}
	if cfg.QRValidity <= 0 {
		cfg.QRValidity = 60 * time.Second
	}
	if cfg.RotationInterval <= 0 {
		cfg.RotationInterval = 30 * time.Second
	}
	if cfg.ShortCodeAttempts <= 0 {
		cfg.ShortCodeAttempts = 10
	}
	rootCtx, rootCancel := context.WithCancel(context.Background())
	svc := &SessionService{
		store:             st,
		generator:         generator,
		clock:             clock,
		cache:             cache,
		metrics:           metrics,
		validator:         validate,
		logger:            logger,
		qrValidity:        cfg.QRValidity,
		rotationInterval:  cfg.RotationInterval,
		shortCodeAttempts: cfg.ShortCodeAttempts,
		rotations:         make(map[string]context.CancelFunc),
		rootCtx:           rootCtx,
		rootCancel:        rootCancel,
	}
	svc.validator.RegisterValidation("session_type", func(fl validator.FieldLevel) bool {
		return models.SessionType(fl.Field().String()).Valid()
	})
	return svc
}

// CreateSessionRequest is the faculty payload for opening a session.
type CreateSessionRequest struct {
	Type          string `json:"type" validate:"required,session_type"`
	Limit         *int   `json:"limit" validate:"omitempty,min=1"`
	LivenessCheck bool   `json:"liveness_check"`
}

// CreateSession opens a session with a fresh QR token and, for online
// sessions, a short code guaranteed unique across all sessions.
func (s *SessionService) CreateSession(ctx context.Context, courseID string, req CreateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	sessionType := models.SessionType(req.Type)

	params := store.CreateSessionParams{
		Type:          sessionType,
		Limit:         req.Limit,
		LivenessCheck: sessionType == models.SessionTypeOnline && req.LivenessCheck,
		QRToken:       s.generator.SessionToken(),
	}
	if sessionType == models.SessionTypeOnline {
		code, err := s.uniqueShortCode(ctx)
		if err != nil {
			return nil, err
		}
		params.ShortCode = code
	}

	sess, err := s.store.CreateSession(ctx, courseID, params)
	if err != nil {
		return nil, err
	}
	s.trackRotation(sess.ID)
	s.invalidate(ctx)
	s.logger.Info("session created",
		zap.String("course_id", courseID),
		zap.String("session_id", sess.ID),
		zap.String("type", string(sess.Type)),
		zap.Bool("liveness_check", sess.LivenessCheck))
	return sess, nil
}

// DeleteSession stops the rotation loop before removing the session.
func (s *SessionService) DeleteSession(ctx context.Context, courseID, sessionID string) error {
	s.stopRotation(sessionID)
	if err := s.store.DeleteSession(ctx, courseID, sessionID); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// RegenerateQRCode force-issues a fresh token past expiry or the capacity
// sentinel, and makes sure the session is being rotated again.
func (s *SessionService) RegenerateQRCode(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := s.store.RegenerateQRCode(ctx, sessionID, s.generator.SessionToken())
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRotation()
	s.trackRotation(sessionID)
	s.invalidate(ctx)
	s.logger.Info("qr code regenerated", zap.String("session_id", sessionID))
	return sess, nil
}

// TokenState reports the countdown view for a session's current token.
func (s *SessionService) TokenState(ctx context.Context, sessionID string) (*models.TokenState, error) {
	sess, err := s.store.SessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state := &models.TokenState{SessionID: sess.ID}
	if sess.QRCodeValue == models.QRLimitReached {
		state.Phase = models.TokenPhaseLimitReached
		return state, nil
	}
	issued, ok := token.Timestamp(sess.QRCodeValue)
	if !ok {
		state.Phase = models.TokenPhaseGenerating
		return state, nil
	}
	remaining := s.qrValidity.Milliseconds() - (s.clock.Now().UnixMilli() - issued)
	if remaining <= 0 {
		state.Phase = models.TokenPhaseExpired
		return state, nil
	}
	state.Phase = models.TokenPhaseActive
	state.SecondsRemaining = int((remaining + 999) / 1000)
	return state, nil
}

// Close stops every rotation loop. Called on shutdown.
func (s *SessionService) Close() {
	s.rootCancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cancel := range s.rotations {
		cancel()
		delete(s.rotations, id)
	}
}

func (s *SessionService) uniqueShortCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < s.shortCodeAttempts; attempt++ {
		code := s.generator.ShortCode()
		used, err := s.store.ShortCodeInUse(ctx, token.Normalize(code))
		if err != nil {
			return "", err
		}
		if !used {
			return code, nil
		}
	}
	return "", appErrors.ErrShortCodeSpace
}

// trackRotation starts (or restarts) the per-session rotation goroutine.
func (s *SessionService) trackRotation(sessionID string) {
	s.mu.Lock()
	if cancel, ok := s.rotations[sessionID]; ok {
		cancel()
	}
	ctx, cancel := context.WithCancel(s.rootCtx)
	s.rotations[sessionID] = cancel
	s.mu.Unlock()

	go s.rotateLoop(ctx, sessionID)
}

func (s *SessionService) stopRotation(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.rotations[sessionID]; ok {
		cancel()
		delete(s.rotations, sessionID)
	}
}

func (s *SessionService) rotateLoop(ctx context.Context, sessionID string) {
	ticker := time.NewTicker(s.rotationInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rotated, err := s.store.RotateQRToken(ctx, sessionID, s.generator.SessionToken())
			if err != nil {
				s.logger.Warn("qr rotation failed", zap.String("session_id", sessionID), zap.Error(err))
				continue
			}
			if !rotated {
				// Sentinel in place or session gone. The loop must die
				// here so the closed token can never be overwritten.
				s.stopRotation(sessionID)
				return
			}
			s.metrics.RecordRotation()
			s.invalidate(ctx)
		}
	}
}

func (s *SessionService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateReadModel(ctx); err != nil {
		s.logger.Warn("read model invalidation failed", zap.Error(err))
	}
}

package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vedhaiygl/smart-attendance-api/pkg/jobs"
	"github.com/vedhaiygl/smart-attendance-api/pkg/storage"
)

const selfieJobType = "selfie.persist"

type selfiePayload struct {
	Key  string
	Data []byte
}

// SelfieService persists liveness payloads asynchronously so the scan path
// never blocks on disk, and signs short-lived URLs for faculty review.
type SelfieService struct {
	store  *storage.LocalStorage
	signer *storage.SignedURLSigner
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewSelfieService wires the background persistence queue.
func NewSelfieService(store *storage.LocalStorage, signer *storage.SignedURLSigner, workers, retries int, logger *zap.Logger) *SelfieService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &SelfieService{store: store, signer: signer, logger: logger}
	svc.queue = jobs.NewQueue("selfies", svc.persist, jobs.QueueConfig{
		Workers:    workers,
		MaxRetries: retries,
		Logger:     logger,
	})
	return svc
}

// Start launches the persistence workers.
func (s *SelfieService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *SelfieService) Stop() {
	s.queue.Stop()
}

// EnqueueSave schedules the payload for persistence under the given key.
func (s *SelfieService) EnqueueSave(key string, data []byte) error {
	if s == nil || s.store == nil || len(data) == 0 {
		return nil
	}
	return s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    selfieJobType,
		Payload: selfiePayload{Key: key, Data: data},
	})
}

// SignedURL returns a time-limited review link for a stored selfie.
func (s *SelfieService) SignedURL(recordKey, selfieKey string) (string, time.Time, error) {
	if s == nil || s.signer == nil {
		return "", time.Time{}, fmt.Errorf("selfie signing not configured")
	}
	return s.signer.Generate(recordKey, selfieKey)
}

// OpenSigned validates the signed token and opens the underlying file.
func (s *SelfieService) OpenSigned(token string) (*os.File, error) {
	if s == nil || s.signer == nil || s.store == nil {
		return nil, fmt.Errorf("selfie storage not configured")
	}
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, err
	}
	return s.store.Open(relPath)
}

func (s *SelfieService) persist(_ context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(selfiePayload)
	if !ok {
		return fmt.Errorf("unexpected payload type for job %s", job.ID)
	}
	if _, err := s.store.Save(payload.Key, payload.Data); err != nil {
		return err
	}
	s.logger.Debug("selfie persisted", zap.String("key", payload.Key), zap.Int("bytes", len(payload.Data)))
	return nil
}

package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"ziwuxx-intake/models"
	"ziwuxx-intake/monitoring"
)

const (
	defaultStorageTimeout = 5 * time.Second
	defaultListAttempts   = 3
	defaultRetryBackoff   = 100 * time.Millisecond
	publishTimeout        = 5 * time.Second
)

// EventPublisher announces stored inquiries to downstream consumers.
type EventPublisher interface {
	PublishSubmitted(ctx context.Context, inquiry models.Inquiry) error
}

type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// IntakeService validates and stores enrollment inquiries. It holds no
// per-request state and is safe for concurrent use.
type IntakeService struct {
	repo      models.Repository
	publisher EventPublisher
	logger    *zap.Logger
	validate  *validator.Validate
	now       func() time.Time
	publishes sync.WaitGroup

	storageTimeout time.Duration
	listAttempts   int
	retryBackoff   time.Duration
}

type Option func(*IntakeService)

func WithClock(now func() time.Time) Option {
	return func(s *IntakeService) { s.now = now }
}

func WithStorageTimeout(d time.Duration) Option {
	return func(s *IntakeService) {
		if d > 0 {
			s.storageTimeout = d
		}
	}
}

// WithListRetry sets how many times List tries an unavailable store and
// the initial backoff, which doubles after each attempt.
func WithListRetry(attempts int, backoff time.Duration) Option {
	return func(s *IntakeService) {
		if attempts > 0 {
			s.listAttempts = attempts
		}
		if backoff >= 0 {
			s.retryBackoff = backoff
		}
	}
}

// NewIntakeService wires the service. publisher may be nil.
func NewIntakeService(repo models.Repository, publisher EventPublisher, logger *zap.Logger, opts ...Option) *IntakeService {
	s := &IntakeService{
		repo:           repo,
		publisher:      publisher,
		logger:         logger,
		validate:       newValidator(),
		now:            time.Now,
		storageTimeout: defaultStorageTimeout,
		listAttempts:   defaultListAttempts,
		retryBackoff:   defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates req and stores exactly one inquiry. Validation
// failures come back as *ValidationError, storage failures as
// *models.PersistenceError.
func (s *IntakeService) Submit(ctx context.Context, req SubmitRequest) (*models.Inquiry, error) {
	if err := s.validate.Struct(req); err != nil {
		verr := classifyValidation(err)
		monitoring.InquirySubmissions.WithLabelValues("rejected").Inc()
		s.logger.Info("inquiry rejected", zap.Error(verr))
		return nil, verr
	}

	inquiry := &models.Inquiry{
		Phone:       trimWhitespace(req.Phone),
		Email:       strings.ToLower(trimWhitespace(req.Email)),
		GradeLevel:  req.GradeLevel,
		Project:     req.Project,
		Message:     req.Message,
		SubmittedAt: s.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	if err := s.repo.Create(ctx, inquiry); err != nil {
		monitoring.InquirySubmissions.WithLabelValues("failed").Inc()
		monitoring.StorageOperations.WithLabelValues("create", "error").Inc()
		s.logger.Error("failed to store inquiry", zap.Error(err))
		return nil, err
	}
	monitoring.InquirySubmissions.WithLabelValues("created").Inc()
	monitoring.StorageOperations.WithLabelValues("create", "ok").Inc()

	s.logger.Info("inquiry stored",
		zap.Uint("id", inquiry.ID),
		zap.String("grade_level", inquiry.GradeLevel),
		zap.String("project", inquiry.Project),
	)

	if s.publisher != nil {
		s.publishes.Add(1)
		go s.publish(*inquiry)
	}
	return inquiry, nil
}

// List returns every inquiry, newest first. Unavailable errors are
// retried with exponential backoff; create is never retried because it
// is not idempotent.
func (s *IntakeService) List(ctx context.Context) ([]models.Inquiry, error) {
	backoff := s.retryBackoff
	var lastErr error
	for attempt := 1; attempt <= s.listAttempts; attempt++ {
		inquiries, err := s.findAll(ctx)
		if err == nil {
			monitoring.StorageOperations.WithLabelValues("list", "ok").Inc()
			return inquiries, nil
		}
		monitoring.StorageOperations.WithLabelValues("list", "error").Inc()
		lastErr = err
		if !models.IsUnavailable(err) || attempt == s.listAttempts {
			break
		}

		s.logger.Warn("listing inquiries failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, &models.PersistenceError{Kind: models.Unavailable, Op: "list inquiries", Err: ctx.Err()}
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	s.logger.Error("failed to list inquiries", zap.Error(lastErr))
	return nil, lastErr
}

func (s *IntakeService) Health() HealthStatus {
	return HealthStatus{Status: "ok", Timestamp: s.now()}
}

func (s *IntakeService) findAll(ctx context.Context) ([]models.Inquiry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()
	return s.repo.FindAll(ctx)
}

// Close waits for in-flight event publishes. Call it after the HTTP
// server has stopped and before the producer is closed.
func (s *IntakeService) Close() {
	s.publishes.Wait()
}

func (s *IntakeService) publish(inquiry models.Inquiry) {
	defer s.publishes.Done()
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.publisher.PublishSubmitted(ctx, inquiry); err != nil {
		s.logger.Warn("failed to publish inquiry event", zap.Uint("id", inquiry.ID), zap.Error(err))
	}
}

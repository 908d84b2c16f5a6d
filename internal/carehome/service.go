// Package carehome runs bed and shift operations against the durable store:
// it authorizes the caller, serializes work per room or staff/day, refreshes
// the in-memory engines and records an audit entry for every change.
package carehome

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/carehome-allocation/internal/beds"
	"github.com/hackgods/carehome-allocation/internal/care"
	"github.com/hackgods/carehome-allocation/internal/metrics"
	redisclient "github.com/hackgods/carehome-allocation/internal/redis"
	"github.com/hackgods/carehome-allocation/internal/shifts"
)

// ErrNoSuitableBed means no vacant bed satisfies the placement rules.
var ErrNoSuitableBed = fmt.Errorf("no suitable bed: %w", care.ErrCompliance)

// Authorizer resolves the acting staff member and their permissions.
type Authorizer interface {
	CurrentActor(ctx context.Context) (care.Staff, error)
	IsAuthorized(actor care.Staff, action care.Action) bool
}

// AuditRecorder is fire-and-forget; implementations log their own failures.
type AuditRecorder interface {
	Record(ctx context.Context, actorID string, action care.Action, targetID, detail string)
}

type Service struct {
	repo      Repository
	allocator *beds.Allocator
	scheduler *shifts.Scheduler
	locker    redisclient.Locker
	authz     Authorizer
	audit     AuditRecorder

	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

func NewService(
	repo Repository,
	allocator *beds.Allocator,
	scheduler *shifts.Scheduler,
	locker redisclient.Locker,
	authz Authorizer,
	audit AuditRecorder,
	opts ...Option,
) *Service {
	s := &Service{
		repo:      repo,
		allocator: allocator,
		scheduler: scheduler,
		locker:    locker,
		authz:     authz,
		audit:     audit,
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Allocator() *beds.Allocator { return s.allocator }

// authorize runs before any lookup or mutation.
func (s *Service) authorize(ctx context.Context, action care.Action) (care.Staff, error) {
	actor, err := s.authz.CurrentActor(ctx)
	if err != nil {
		return care.Staff{}, fmt.Errorf("%s: %w", action, err)
	}
	if !s.authz.IsAuthorized(actor, action) {
		return care.Staff{}, fmt.Errorf("%w: %s %s may not %s", care.ErrAuthorization, actor.Role, actor.ID, action)
	}
	return actor, nil
}

func (s *Service) record(ctx context.Context, actor care.Staff, action care.Action, targetID, detail string) {
	s.audit.Record(ctx, actor.ID, action, targetID, detail)
}

// withLocks holds every key for the duration of fn. Keys are sorted and
// deduplicated here so callers can pass them in any order.
func (s *Service) withLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	uniq := sorted[:0]
	for i, k := range sorted {
		if i == 0 || k != sorted[i-1] {
			uniq = append(uniq, k)
		}
	}

	err := redisclient.WithLocks(ctx, s.locker, uniq, fn)
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return fmt.Errorf("%w: %w, retry", care.ErrConflict, err)
	}
	return err
}

func roomLockKey(roomID string) string {
	return "lock:room:" + roomID
}

func staffLockKey(staffID string, day time.Weekday) string {
	return fmt.Sprintf("lock:staff:%s:%s", staffID, shifts.DayName(day))
}

// observe is deferred by every operation with a pointer to its named error.
func (s *Service) observe(op string, start time.Time, err *error) {
	s.metrics.ObserveOperation(op, *err, s.now().Sub(start))
	if *err != nil {
		s.log.Debug("operation rejected",
			zap.String("operation", op),
			zap.String("kind", care.KindOf(*err)),
			zap.Error(*err),
		)
	}
}

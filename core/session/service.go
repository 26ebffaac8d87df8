package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/idview/core/application"
)

var ErrNotFound = errors.New("wizard session not found")

type (
	// Session is a wizard held in memory on behalf of an authenticated student.
	Session struct {
		ID        string
		Owner     string
		Wizard    *application.Wizard
		CreatedAt time.Time
		LastSeen  time.Time
	}

	Repository interface {
		CreateSession(s Session) (Session, error)
		GetSession(id string) (Session, error)
		TouchSession(id string, at time.Time) error
		DeleteSession(id string) error
		// DeleteIdleSessions removes the sessions not seen since `before` and returns how many were removed.
		DeleteIdleSessions(before time.Time) (int, error)
		CountSessions() (int, error)
	}

	Service struct {
		repo        Repository
		submitter   application.Submitter
		ttl         time.Duration
		maxFileSize int64
		now         func() time.Time
	}
)

// NewService returns a session service whose wizards submit through `submitter`.
// Sessions idle for longer than ttl are dropped by Evict; ttl <= 0 keeps them forever.
func NewService(repo Repository, submitter application.Submitter, ttl time.Duration, maxFileSize int64) *Service {
	return &Service{
		repo:        repo,
		submitter:   submitter,
		ttl:         ttl,
		maxFileSize: maxFileSize,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create starts a new wizard for `owner`.
func (svc *Service) Create(owner string) (Session, error) {
	now := svc.now()
	return svc.repo.CreateSession(Session{
		ID:        uuid.New().String(),
		Owner:     owner,
		Wizard:    application.NewWizard(svc.submitter, svc.maxFileSize),
		CreatedAt: now,
		LastSeen:  now,
	})
}

// Get returns the session `id` when it belongs to `owner`, and marks it as seen.
// Sessions of other owners and expired ones are reported as ErrNotFound.
func (svc *Service) Get(id, owner string) (Session, error) {
	s, err := svc.repo.GetSession(id)
	if err != nil {
		return Session{}, err
	}
	now := svc.now()
	if s.Owner != owner {
		return Session{}, ErrNotFound
	}
	if svc.expired(s, now) && !s.Wizard.Submitting() {
		_ = svc.repo.DeleteSession(id)
		return Session{}, ErrNotFound
	}
	if err = svc.repo.TouchSession(id, now); err != nil {
		return Session{}, err
	}
	s.LastSeen = now
	return s, nil
}

// Delete discards the session `id` of `owner`, along with its draft.
func (svc *Service) Delete(id, owner string) error {
	if _, err := svc.Get(id, owner); err != nil {
		return err
	}
	return svc.repo.DeleteSession(id)
}

func (svc *Service) Count() (int, error) {
	return svc.repo.CountSessions()
}

// Evict drops every session idle for longer than the TTL.
func (svc *Service) Evict() (int, error) {
	if svc.ttl <= 0 {
		return 0, nil
	}
	return svc.repo.DeleteIdleSessions(svc.now().Add(-svc.ttl))
}

// Run evicts idle sessions every `interval` until ctx is done.
// onEvict, if not nil, is called after each pass.
func (svc *Service) Run(ctx context.Context, interval time.Duration, onEvict func(evicted int, err error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.Evict()
			if onEvict != nil {
				onEvict(n, err)
			}
		}
	}
}

func (svc *Service) expired(s Session, now time.Time) bool {
	return svc.ttl > 0 && s.LastSeen.Before(now.Add(-svc.ttl))
}

package security

import (
	"context"
	"sync"
	"time"

	"finwatch/internal/models"
	"finwatch/internal/repository"

	"github.com/google/uuid"
)

// fakeUserRepo is an in-memory UserRepository with the same serialization
// guarantees as the real one: the failure counter increments under a lock.
type fakeUserRepo struct {
	repository.BaseRepository
	mu     sync.Mutex
	users  map[int64]*models.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*models.User), nextID: 1}
}

func (r *fakeUserRepo) add(user *models.User) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == 0 {
		user.ID = r.nextID
		r.nextID++
	}
	if user.UUID == uuid.Nil {
		user.UUID = uuid.New()
	}
	clone := *user
	r.users[user.ID] = &clone
	return user
}

func (r *fakeUserRepo) get(id int64) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		clone := *u
		return &clone
	}
	return nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.add(user)
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) SoftDelete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	now := time.Now()
	u.DeletedAt = &now
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if u := r.get(id); u != nil && u.DeletedAt == nil {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) GetByUUID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.UUID == id && u.DeletedAt == nil {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var emailMatch *models.User
	for _, u := range r.users {
		if u.DeletedAt != nil {
			continue
		}
		if u.Username == identifier {
			clone := *u
			return &clone, nil
		}
		if u.Email == identifier {
			emailMatch = u
		}
	}
	if emailMatch != nil {
		clone := *emailMatch
		return &clone, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) List(ctx context.Context, filter repository.UserFilter) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		if u.DeletedAt == nil {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) IncrementFailedAttempts(ctx context.Context, id int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	u.FailedLoginAttempts++
	return u.FailedLoginAttempts, nil
}

func (r *fakeUserRepo) ApplyStatus(ctx context.Context, id int64, upd repository.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.AccountStatus = upd.Status
	u.IsActive = upd.IsActive
	u.IsLocked = upd.IsLocked
	u.LockedAt = upd.LockedAt
	u.LockedBy = upd.LockedBy
	u.LockedReason = upd.LockedReason
	u.BlockedBy = upd.BlockedBy
	u.BlockedUntil = upd.BlockedUntil
	return nil
}

func (r *fakeUserRepo) ResetSecurityState(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.AccountStatus = models.StatusActive
	u.FailedLoginAttempts = 0
	u.LockedAt = nil
	u.LockedBy = nil
	u.LockedReason = nil
	u.BlockedBy = nil
	u.BlockedUntil = nil
	return nil
}

func (r *fakeUserRepo) RecordLogin(ctx context.Context, id int64, at time.Time, client models.ClientContext) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if u.FirstLoginAt == nil {
		u.FirstLoginAt = &at
	}
	u.LastLoginAt = &at
	u.LastLogin = client
	u.CurrentSession = client
	u.TotalLoginCount++
	return nil
}

func (r *fakeUserRepo) UpdateCurrentSession(ctx context.Context, id int64, client models.ClientContext) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.CurrentSession = client
	return nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id int64, hashedPassword, changedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Password = hashedPassword
	now := time.Now()
	u.PasswordChangedAt = &now
	u.PasswordChangedBy = &changedBy
	u.PasswordChangeCount++
	return nil
}

// fakeActivityLog records audit entries in memory
type fakeActivityLog struct {
	repository.BaseRepository
	mu      sync.Mutex
	entries []models.CreateActivityLogRequest
	err     error
}

func (l *fakeActivityLog) Create(ctx context.Context, entry *models.CreateActivityLogRequest) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.entries = append(l.entries, *entry)
	return nil
}

func (l *fakeActivityLog) byType(activityType models.ActivityType) []models.CreateActivityLogRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.CreateActivityLogRequest
	for _, e := range l.entries {
		if e.ActivityType == activityType {
			out = append(out, e)
		}
	}
	return out
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"hrbooteh/internal/domain"
	"hrbooteh/internal/repository"
)

type mockUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	createErr    error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.usersByEmail[user.Email]; exists {
		return repository.ErrDuplicateEmail
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

type denyAllLimiter struct{ calls int }

func (l *denyAllLimiter) Allow(context.Context, string) bool {
	l.calls++
	return false
}

func (l *denyAllLimiter) Reset(context.Context, string) {}

func TestUserServiceRegister(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(zap.NewNop(), repo, nil)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "  Test@Example.com ",
		FullName: " Test User ",
		Password: "testpassword123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "test@example.com" || user.FullName != "Test User" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if !user.IsActive || user.ID == "" || user.CreatedAt.IsZero() {
		t.Fatalf("expected active user with id and timestamp: %+v", user)
	}
	if user.PasswordHash == "" || user.PasswordHash == "testpassword123" {
		t.Fatalf("expected hashed password")
	}
	if _, ok := repo.usersByID[user.ID]; !ok {
		t.Fatalf("expected user persisted")
	}
}

func TestUserServiceRegister_Validation(t *testing.T) {
	svc := NewUserService(zap.NewNop(), newMockUserRepo(), nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "not-an-email", Password: "testpassword123"}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Email: "a@b.c", Password: "short"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestUserServiceRegister_DuplicateEmail(t *testing.T) {
	svc := NewUserService(zap.NewNop(), newMockUserRepo(), nil)
	ctx := context.Background()
	in := RegisterInput{Email: "test@example.com", FullName: "Test", Password: "testpassword123"}

	if _, err := svc.Register(ctx, in); err != nil {
		t.Fatalf("first register: %v", err)
	}
	in.Email = "TEST@example.com"
	if _, err := svc.Register(ctx, in); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserServiceAuthenticate(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(zap.NewNop(), repo, nil)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Email: "test@example.com", FullName: "Test", Password: "testpassword123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := svc.Authenticate(ctx, " TEST@example.com", "testpassword123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("expected same user, got %s", user.ID)
	}

	if _, err := svc.Authenticate(ctx, "test@example.com", "wrongpassword"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nonexistent@example.com", "wrongpassword"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}

	inactive := repo.usersByID[registered.ID]
	inactive.IsActive = false
	repo.usersByID[registered.ID] = inactive
	if _, err := svc.Authenticate(ctx, "test@example.com", "testpassword123"); !errors.Is(err, ErrUserInactive) {
		t.Fatalf("expected ErrUserInactive, got %v", err)
	}
}

func TestUserServiceAuthenticate_RateLimited(t *testing.T) {
	limiter := &denyAllLimiter{}
	svc := NewUserService(zap.NewNop(), newMockUserRepo(), limiter)

	if _, err := svc.Authenticate(context.Background(), "test@example.com", "whatever"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if limiter.calls != 1 {
		t.Fatalf("expected limiter to be consulted once, got %d", limiter.calls)
	}
}

func TestUserServiceGetActiveUser(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(zap.NewNop(), repo, nil)
	ctx := context.Background()

	if _, err := svc.GetActiveUser(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	repo.usersByID["u1"] = domain.User{ID: "u1", Email: "a@b.c", IsActive: false}
	if _, err := svc.GetActiveUser(ctx, "u1"); !errors.Is(err, ErrUserInactive) {
		t.Fatalf("expected ErrUserInactive, got %v", err)
	}

	repo.usersByID["u2"] = domain.User{ID: "u2", Email: "d@e.f", IsActive: true}
	user, err := svc.GetActiveUser(ctx, "u2")
	if err != nil || user.ID != "u2" {
		t.Fatalf("expected active user u2, got %+v, %v", user, err)
	}
}

func TestUserServiceAuthenticate_SuccessResetsLimiter(t *testing.T) {
	limiter := NewMemoryLoginRateLimiter(time.Hour, 2)
	svc := NewUserService(zap.NewNop(), newMockUserRepo(), limiter)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "sara@example.com", FullName: "Sara", Password: "testpassword123"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "sara@example.com", "wrongpassword"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "sara@example.com", "testpassword123"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	// sin el reset, el tercer intento quedaria bloqueado
	if _, err := svc.Authenticate(ctx, "sara@example.com", "testpassword123"); err != nil {
		t.Fatalf("expected limiter reset after success, got %v", err)
	}
}

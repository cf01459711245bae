package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"backoffice/internal/auth"
	"backoffice/internal/entity/db"
	"backoffice/internal/entity/dto"
	"backoffice/internal/model"
	"backoffice/internal/rbac"
	"backoffice/internal/session"
)

// fakeRepo implements the slice of model.Repository the auth service touches.
// Unimplemented methods panic via the embedded nil interface.
type fakeRepo struct {
	model.Repository

	users       map[string]*db.User
	byEmail     map[string]*db.User
	byPhone     map[string]*db.User
	roles       map[uint][]db.Role
	codes       []*db.VerificationCode
	created     []*db.User
	userUpdates map[uint]db.UserUpdates
	nextCodeID  uint
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:       make(map[string]*db.User),
		byEmail:     make(map[string]*db.User),
		byPhone:     make(map[string]*db.User),
		roles:       make(map[uint][]db.Role),
		userUpdates: make(map[uint]db.UserUpdates),
	}
}

func (f *fakeRepo) addUser(user *db.User) {
	f.users[user.Username] = user
	if user.Email != nil {
		f.byEmail[*user.Email] = user
	}
	if user.Phone != nil {
		f.byPhone[*user.Phone] = user
	}
}

func (f *fakeRepo) GetUserByUsername(_ context.Context, username string) (*db.User, error) {
	if user, ok := f.users[username]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	if user, ok := f.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetUserByPhone(_ context.Context, phone string) (*db.User, error) {
	if user, ok := f.byPhone[phone]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetUserByID(_ context.Context, id uint) (*db.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) CreateUser(_ context.Context, user *db.User) error {
	user.ID = uint(len(f.users) + 100)
	f.addUser(user)
	f.created = append(f.created, user)
	return nil
}

func (f *fakeRepo) UpdateUser(_ context.Context, id uint, updates db.UserUpdates) error {
	f.userUpdates[id] = updates
	return nil
}

func (f *fakeRepo) GetRoleByName(_ context.Context, name string) (*db.Role, error) {
	if name == db.RoleNameDefault {
		return &db.Role{ID: 2, Name: db.RoleNameDefault}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) AddUserRole(_ context.Context, userID, roleID uint) error {
	f.roles[userID] = append(f.roles[userID], db.Role{ID: roleID, Name: db.RoleNameDefault})
	return nil
}

func (f *fakeRepo) FindRolesByUserID(_ context.Context, userID uint) ([]db.Role, error) {
	return f.roles[userID], nil
}

func (f *fakeRepo) FindMenusByRoleIDs(_ context.Context, _ []uint) ([]db.Menu, error) {
	return []db.Menu{}, nil
}

func (f *fakeRepo) GetRoleByID(_ context.Context, id uint) (*db.Role, error) {
	return &db.Role{ID: id}, nil
}

func (f *fakeRepo) FindPermissionsByRoleIDs(_ context.Context, roleIDs []uint) ([]db.Permission, error) {
	perms := make([]db.Permission, 0, len(roleIDs))
	for _, id := range roleIDs {
		perms = append(perms, db.Permission{ID: id, Code: "dashboard:index:view"})
	}
	return perms, nil
}

func (f *fakeRepo) CreateVerificationCode(_ context.Context, code *db.VerificationCode) error {
	f.nextCodeID++
	code.ID = f.nextCodeID
	code.CreatedAt = time.Now()
	f.codes = append(f.codes, code)
	return nil
}

func (f *fakeRepo) GetLatestCode(_ context.Context, codeType, target string) (*db.VerificationCode, error) {
	for i := len(f.codes) - 1; i >= 0; i-- {
		if f.codes[i].Type == codeType && f.codes[i].Target == target {
			return f.codes[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetLatestUsableCode(_ context.Context, codeType, target, value string) (*db.VerificationCode, error) {
	now := time.Now()
	for i := len(f.codes) - 1; i >= 0; i-- {
		code := f.codes[i]
		if code.Type == codeType && code.Target == target && code.Code == value && code.Usable(now) {
			return code, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) MarkCodeUsed(_ context.Context, id uint) error {
	for _, code := range f.codes {
		if code.ID == id {
			if code.Used {
				return model.ErrCodeConsumed
			}
			code.Used = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func setupAuthService(t *testing.T, repo *fakeRepo) (*AuthService, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tokens, err := auth.NewManager("test-secret", "test", time.Hour)
	if err != nil {
		mr.Close()
		t.Fatalf("failed to create token manager: %v", err)
	}
	sessions := session.NewManager(rdb, tokens, 24*time.Hour)
	resolver := rbac.NewResolver(repo)
	svc := NewAuthService(repo, sessions, resolver, LogNotifier{}, 10*time.Minute, time.Minute)

	cleanup := func() {
		rdb.Close()
		mr.Close()
	}
	return svc, cleanup
}

func activeUser(t *testing.T, username, password string) *db.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return &db.User{ID: 1, Username: username, PasswordHash: hash, Status: db.UserStatusActive}
}

func TestLoginWrongUserAndWrongPasswordIndistinguishable(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(activeUser(t, "alice", "correct-horse"))
	svc, cleanup := setupAuthService(t, repo)
	defer cleanup()

	_, errNoUser := svc.Login(context.Background(), dto.LoginRequest{Username: "nobody", Password: "x"}, "127.0.0.1")
	_, errBadPass := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "wrong"}, "127.0.0.1")

	if !errors.Is(errNoUser, ErrInvalidCredentials) || !errors.Is(errBadPass, ErrInvalidCredentials) {
		t.Fatalf("expected identical credential errors, got %v and %v", errNoUser, errBadPass)
	}
}

func TestLoginSuccessIssuesTokens(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(activeUser(t, "alice", "correct-horse"))
	repo.roles[1] = []db.Role{{ID: 2, Name: "user"}}
	svc, cleanup := setupAuthService(t, repo)
	defer cleanup()

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "correct-horse"}, "10.0.0.5")
	if err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected access and refresh tokens")
	}
	if len(resp.Permissions) == 0 {
		t.Fatal("expected effective permissions in response")
	}
	if updates, ok := repo.userUpdates[1]; !ok || updates.LastLoginIP == nil || *updates.LastLoginIP != "10.0.0.5" {
		t.Fatalf("expected last login IP to be recorded, got %+v", repo.userUpdates[1])
	}
}

func TestLoginInactiveAccountRejected(t *testing.T) {
	repo := newFakeRepo()
	user := activeUser(t, "bob", "pw-123456789")
	user.Status = db.UserStatusLocked
	repo.addUser(user)
	svc, cleanup := setupAuthService(t, repo)
	defer cleanup()

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "bob", Password: "pw-123456789"}, "")
	if !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(activeUser(t, "alice", "whatever-pw"))
	svc, cleanup := setupAuthService(t, repo)
	defer cleanup()

	_, err := svc.Register(context.Background(), dto.RegisterRequest{Username: "alice", Password: "long-enough-pw"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterGrantsDefaultRole(t *testing.T) {
	repo := newFakeRepo()
	svc, cleanup := setupAuthService(t, repo)
	defer cleanup()

	resp, err := svc.Register(context.Background(), dto.RegisterRequest{Username: "carol", Password: "long-enough-pw"})
	if err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one created user, got %d", len(repo.created))
	}
	if len(repo.roles[repo.created[0].ID]) != 1 {
		t.Fatal("expected default role to be granted")
	}
	if resp.AccessToken == "" {
		t.Fatal("expected an access token after registration")
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(activeUser(t, "alice", "correct-horse"))
	svc, cleanup := setupAuthService(t, repo)
	defer cleanup()

	first, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "correct-horse"}, "")
	if err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}
	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("unexpected refresh error: %v", err)
	}
	if second.RefreshToken == "" || second.RefreshToken == first.RefreshToken {
		t.Fatal("expected a rotated refresh token")
	}

	// The consumed token must not work twice.
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, session.ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken on reuse, got %v", err)
	}
}

func TestResetCodeCooldown(t *testing.T) {
	repo := newFakeRepo()
	email := "alice@example.com"
	user := activeUser(t, "alice", "old-password-1")
	user.Email = &email
	repo.addUser(user)
	svc, cleanup := setupAuthService(t, repo)
	defer cleanup()

	req := dto.ResetCodeRequest{Channel: "email", Target: email}
	if err := svc.RequestPasswordResetCode(context.Background(), req); err != nil {
		t.Fatalf("unexpected error requesting first code: %v", err)
	}
	if err := svc.RequestPasswordResetCode(context.Background(), req); !errors.Is(err, ErrCodeCooldown) {
		t.Fatalf("expected ErrCodeCooldown, got %v", err)
	}
}

func TestResetCodeUnknownTarget(t *testing.T) {
	repo := newFakeRepo()
	svc, cleanup := setupAuthService(t, repo)
	defer cleanup()

	err := svc.RequestPasswordResetCode(context.Background(), dto.ResetCodeRequest{Channel: "email", Target: "ghost@example.com"})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestResetPasswordConsumesCodeOnce(t *testing.T) {
	repo := newFakeRepo()
	email := "alice@example.com"
	user := activeUser(t, "alice", "old-password-1")
	user.Email = &email
	repo.addUser(user)
	svc, cleanup := setupAuthService(t, repo)
	defer cleanup()

	if err := svc.RequestPasswordResetCode(context.Background(), dto.ResetCodeRequest{Channel: "email", Target: email}); err != nil {
		t.Fatalf("unexpected error requesting code: %v", err)
	}
	value := repo.codes[len(repo.codes)-1].Code

	req := dto.ResetPasswordRequest{Channel: "email", Target: email, Code: value, NewPassword: "brand-new-pw-1"}
	if err := svc.ResetPassword(context.Background(), req); err != nil {
		t.Fatalf("unexpected reset error: %v", err)
	}
	if updates, ok := repo.userUpdates[user.ID]; !ok || updates.PasswordHash == nil {
		t.Fatal("expected password hash to be updated")
	}

	if err := svc.ResetPassword(context.Background(), req); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid on reuse, got %v", err)
	}
}

func TestResetPasswordWrongCode(t *testing.T) {
	repo := newFakeRepo()
	email := "alice@example.com"
	user := activeUser(t, "alice", "old-password-1")
	user.Email = &email
	repo.addUser(user)
	svc, cleanup := setupAuthService(t, repo)
	defer cleanup()

	err := svc.ResetPassword(context.Background(), dto.ResetPasswordRequest{
		Channel: "email", Target: email, Code: "000000", NewPassword: "brand-new-pw-1",
	})
	if !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid, got %v", err)
	}
}

package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"backoffice/internal/auth"
	"backoffice/internal/entity/converter"
	"backoffice/internal/entity/db"
	"backoffice/internal/entity/dto"
	"backoffice/internal/model"
	"backoffice/internal/rbac"
	"backoffice/internal/session"
)

var (
	// ErrInvalidCredentials 对"用户不存在"和"密码错误"给出同一个答案，
	// 避免泄露账号是否存在。
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountInactive    = errors.New("account is disabled or locked")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrPhoneTaken         = errors.New("phone is already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrCodeCooldown       = errors.New("a code was sent recently, try again later")
	ErrCodeInvalid        = errors.New("verification code is invalid or expired")
)

// AuthService 封装登录、注册、会话刷新与密码重置的业务流程。
type AuthService struct {
	repo         model.Repository
	sessions     *session.Manager
	resolver     *rbac.Resolver
	notifier     Notifier
	codeTTL      time.Duration
	codeCooldown time.Duration
}

// NewAuthService wires an auth service from its collaborators.
func NewAuthService(repo model.Repository, sessions *session.Manager, resolver *rbac.Resolver, notifier Notifier, codeTTL, codeCooldown time.Duration) *AuthService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if codeTTL <= 0 {
		codeTTL = 10 * time.Minute
	}
	if codeCooldown <= 0 {
		codeCooldown = time.Minute
	}
	return &AuthService{
		repo:         repo,
		sessions:     sessions,
		resolver:     resolver,
		notifier:     notifier,
		codeTTL:      codeTTL,
		codeCooldown: codeCooldown,
	}
}

// userAccess 是一次访问面解算的结果：角色、可见菜单树和生效权限码。
type userAccess struct {
	roles     []db.Role
	roleNames []string
	menus     []dto.MenuNode
	codes     []string
}

func (s *AuthService) loadAccess(ctx context.Context, userID uint) (*userAccess, error) {
	roles, err := s.repo.FindRolesByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	roleIDs := converter.RoleIDs(roles)

	menus, err := s.repo.FindMenusByRoleIDs(ctx, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("load menus: %w", err)
	}
	codes, err := s.resolver.EffectiveCodes(ctx, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: %w", err)
	}
	return &userAccess{
		roles:     roles,
		roleNames: converter.RoleNames(roles),
		menus:     converter.MenusToTree(menus),
		codes:     codes,
	}, nil
}

func assembleAuthResponse(user *db.User, access *userAccess, pair session.TokenPair) *dto.AuthResponse {
	return &dto.AuthResponse{
		User:        converter.UserToSummary(user),
		Roles:       converter.RolesToSummaries(access.roles),
		Menus:       access.menus,
		Permissions: access.codes,
		TokenPayload: dto.TokenPayload{
			AccessToken:     pair.AccessToken,
			AccessExpiresAt: pair.AccessExpiresAt,
			RefreshToken:    pair.RefreshToken,
		},
	}
}

// Login verifies credentials and issues a fresh session. Any prior session for
// the same user is superseded.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest, clientIP string) (*dto.AuthResponse, error) {
	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, ErrAccountInactive
	}

	access, err := s.loadAccess(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	pair, err := s.sessions.Issue(ctx, user, access.roleNames)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	// 登录痕迹是尽力而为的，更新失败不阻断登录。
	now := time.Now()
	updates := db.UserUpdates{LastLoginAt: now, LastLoginIP: &clientIP}
	if err := s.repo.UpdateUser(ctx, user.ID, updates); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("failed to record last login")
	}
	user.LastLoginAt = &now
	user.LastLoginIP = clientIP

	return assembleAuthResponse(user, access, pair), nil
}

// Register creates an account, grants the default role, and logs the new user
// straight in.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	user := db.User{
		Username: username,
		Nickname: strings.TrimSpace(req.Nickname),
		Status:   db.UserStatusActive,
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
			return nil, ErrEmailTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("check email: %w", err)
		}
		user.Email = &email
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		if _, err := s.repo.GetUserByPhone(ctx, phone); err == nil {
			return nil, ErrPhoneTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("check phone: %w", err)
		}
		user.Phone = &phone
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash

	if err := s.repo.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if role, err := s.repo.GetRoleByName(ctx, db.RoleNameDefault); err != nil {
		logrus.WithError(err).Warn("default role missing, new user has no role")
	} else if err := s.repo.AddUserRole(ctx, user.ID, role.ID); err != nil {
		return nil, fmt.Errorf("grant default role: %w", err)
	}

	access, err := s.loadAccess(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	pair, err := s.sessions.Issue(ctx, &user, access.roleNames)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return assembleAuthResponse(&user, access, pair), nil
}

// Refresh rotates a refresh token for a new token pair. A presented token is
// consumed whether or not rotation succeeds downstream.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	userID, err := s.sessions.Peek(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 账号已被删除，顺手清掉残留会话。
			_ = s.sessions.Revoke(ctx, userID)
			return nil, session.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive() {
		_ = s.sessions.Revoke(ctx, userID)
		return nil, ErrAccountInactive
	}

	access, err := s.loadAccess(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	pair, err := s.sessions.Rotate(ctx, refreshToken, user, access.roleNames)
	if err != nil {
		return nil, err
	}
	return assembleAuthResponse(user, access, pair), nil
}

// Logout revokes the user's session. Revoking an absent session succeeds.
func (s *AuthService) Logout(ctx context.Context, userID uint) error {
	return s.sessions.Revoke(ctx, userID)
}

// RequestPasswordResetCode issues a one-time reset code to the account behind
// the given email or phone.
func (s *AuthService) RequestPasswordResetCode(ctx context.Context, req dto.ResetCodeRequest) error {
	codeType, target, _, err := s.resolveResetPrincipal(ctx, req.Channel, req.Target)
	if err != nil {
		return err
	}

	latest, err := s.repo.GetLatestCode(ctx, codeType, target)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load latest code: %w", err)
	}
	if latest != nil && time.Since(latest.CreatedAt) < s.codeCooldown {
		return ErrCodeCooldown
	}

	value, err := randomDigits(6)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	code := db.VerificationCode{
		Type:      codeType,
		Target:    target,
		Code:      value,
		ExpiresAt: time.Now().Add(s.codeTTL),
	}
	if err := s.repo.CreateVerificationCode(ctx, &code); err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	if err := s.notifier.SendVerificationCode(ctx, req.Channel, target, value); err != nil {
		// 投递失败不回滚验证码，用户可以等冷却后重试。
		logrus.WithError(err).WithField("target", target).Warn("failed to deliver verification code")
	}
	return nil
}

// ResetPassword consumes a valid reset code and replaces the account password.
// All existing sessions for the account are revoked.
func (s *AuthService) ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error {
	codeType, target, user, err := s.resolveResetPrincipal(ctx, req.Channel, req.Target)
	if err != nil {
		return err
	}

	code, err := s.repo.GetLatestUsableCode(ctx, codeType, target, req.Code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCodeInvalid
		}
		return fmt.Errorf("load code: %w", err)
	}
	if err := s.repo.MarkCodeUsed(ctx, code.ID); err != nil {
		if errors.Is(err, model.ErrCodeConsumed) {
			return ErrCodeInvalid
		}
		return fmt.Errorf("consume code: %w", err)
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdateUser(ctx, user.ID, db.UserUpdates{PasswordHash: &hash}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.sessions.Revoke(ctx, user.ID); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("failed to revoke sessions after password reset")
	}
	return nil
}

// resolveResetPrincipal maps a reset channel to its code type and looks up the
// account owning the target address.
func (s *AuthService) resolveResetPrincipal(ctx context.Context, channel, target string) (string, string, *db.User, error) {
	target = strings.TrimSpace(target)
	var (
		codeType string
		user     *db.User
		err      error
	)
	switch channel {
	case "email":
		codeType = db.CodeTypeResetPasswordEmail
		user, err = s.repo.GetUserByEmail(ctx, target)
	case "phone":
		codeType = db.CodeTypeResetPasswordPhone
		user, err = s.repo.GetUserByPhone(ctx, target)
	default:
		return "", "", nil, fmt.Errorf("unsupported reset channel %q", channel)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", nil, ErrUserNotFound
		}
		return "", "", nil, fmt.Errorf("load user: %w", err)
	}
	return codeType, target, user, nil
}

func randomDigits(n int) (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < n; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	value, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", n, value), nil
}

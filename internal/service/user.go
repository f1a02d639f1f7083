// Package service contains the business logic layer.
//
// Services orchestrate interactions between repositories, storage and domain
// logic. They validate input, enforce the marketplace rules and translate
// database errors into domain errors.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/metrics"
	"github.com/DukeRupert/loadshare/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sqlc-dev/pqtype"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	// Not configurable at runtime so it cannot be weakened by accident.
	BcryptCost = 12

	// SessionTokenBytes is the number of random bytes for session tokens.
	// The token is hex-encoded to 64 characters.
	SessionTokenBytes = 32

	DefaultSessionDuration = 7 * 24 * time.Hour
	MinSessionDuration     = 15 * time.Minute
	MaxSessionDuration     = 30 * 24 * time.Hour
)

// dummyHash is a bcrypt hash compared against when no user matches, so that
// unknown emails take as long as wrong passwords.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

const (
	msgEmailTaken         = "Email already registered"
	msgInvalidCredentials = "Invalid email or password"
	msgInvalidSession     = "Invalid or expired session"
)

// UserService defines the account and session operations.
type UserService interface {
	// Register creates an account and signs the new user in.
	// Returns domain.ECONFLICT if the email is already registered and a
	// *domain.ValidationError for invalid input.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.LoginResult, error)

	// Login authenticates a user and creates a new session.
	// Returns domain.EUNAUTHORIZED for invalid credentials.
	Login(ctx context.Context, params domain.LoginParams) (*domain.LoginResult, error)

	// Logout invalidates a session by its raw token. It is idempotent.
	Logout(ctx context.Context, token string) error

	// GetByID returns domain.ENOTFOUND if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetBySessionToken returns the user owning a live session.
	// Returns domain.EUNAUTHORIZED if the token is invalid or expired.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// DeleteExpiredSessions removes expired sessions and reports how many.
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// UserServiceConfig holds tunables for the user service.
type UserServiceConfig struct {
	SessionDuration time.Duration
}

type userService struct {
	queries         *repository.Queries
	logger          *slog.Logger
	sessionDuration time.Duration
	now             func() time.Time
}

// NewUserService creates a new UserService instance.
func NewUserService(queries *repository.Queries, logger *slog.Logger, cfg UserServiceConfig) UserService {
	return &userService{
		queries:         queries,
		logger:          logger,
		sessionDuration: normalizeSessionDuration(cfg.SessionDuration),
		now:             time.Now,
	}
}

// normalizeSessionDuration clamps d into [MinSessionDuration, MaxSessionDuration].
// Zero selects DefaultSessionDuration.
func normalizeSessionDuration(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultSessionDuration
	case d < MinSessionDuration:
		return MinSessionDuration
	case d > MaxSessionDuration:
		return MaxSessionDuration
	}
	return d
}

// Register creates a new user account with the role-specific profile carried
// by params, then opens a session for it.
//
// The password is hashed even when the email is taken so both paths cost
// the same.
func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.LoginResult, error) {
	const op = "UserService.Register"

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Name = strings.TrimSpace(params.Name)
	params.Phone = strings.TrimSpace(params.Phone)

	if params.Profile == nil {
		return nil, domain.NewValidationError(op, "user_type", "Invalid user type. Must be 'load_owner' or 'driver'")
	}
	if err := checkParams(op, params, params.Profile); err != nil {
		return nil, err
	}

	exists, err := s.queries.EmailExists(ctx, params.Email)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to check email availability")
	}
	if exists {
		_, _ = bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
		return nil, domain.Conflict(op, msgEmailTaken)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to hash password")
	}

	create := repository.CreateUserParams{
		Name:         params.Name,
		Email:        params.Email,
		Phone:        params.Phone,
		UserType:     params.Role().String(),
		PasswordHash: string(passwordHash),
	}
	if err := applyProfile(&create, params.Profile); err != nil {
		return nil, domain.Internal(err, op, "Failed to encode profile")
	}

	repoUser, err := s.queries.CreateUser(ctx, create)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict(op, msgEmailTaken)
		}
		return nil, domain.Internal(err, op, "Failed to create user")
	}

	user := repoUserToDomain(repoUser)
	token, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create session")
	}

	metrics.UsersRegistered.WithLabelValues(user.Role.String()).Inc()
	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)

	return &domain.LoginResult{User: user, Token: token}, nil
}

// Login authenticates a user and creates a new session. Unknown emails and
// wrong passwords produce the same error.
func (s *userService) Login(ctx context.Context, params domain.LoginParams) (*domain.LoginResult, error) {
	const op = "UserService.Login"

	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" || params.Password == "" {
		return nil, domain.Unauthorized(op, msgInvalidCredentials)
	}

	repoUser, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(params.Password))
			return nil, domain.Unauthorized(op, msgInvalidCredentials)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(repoUser.PasswordHash), []byte(params.Password)); err != nil {
		return nil, domain.Unauthorized(op, msgInvalidCredentials)
	}

	user := repoUserToDomain(repoUser)
	token, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create session")
	}

	s.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)

	return &domain.LoginResult{User: user, Token: token}, nil
}

// Logout invalidates a session. Unknown or malformed tokens are ignored.
func (s *userService) Logout(ctx context.Context, token string) error {
	if len(token) != SessionTokenBytes*2 {
		return nil
	}

	if err := s.queries.DeleteSessionByTokenHash(ctx, hashSessionToken(token)); err != nil {
		s.logger.Warn("failed to delete session", "error", err)
	}

	s.logger.Debug("session invalidated")
	return nil
}

// GetByID retrieves a user by their ID.
func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "UserService.GetByID"

	repoUser, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", id.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}
	return repoUserToDomain(repoUser), nil
}

// GetBySessionToken retrieves the user owning a live session. Expired
// sessions are filtered by the query.
func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "UserService.GetBySessionToken"

	if len(token) != SessionTokenBytes*2 {
		return nil, domain.Unauthorized(op, msgInvalidSession)
	}

	repoUser, err := s.queries.GetUserBySessionTokenHash(ctx, hashSessionToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Unauthorized(op, msgInvalidSession)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve session")
	}
	return repoUserToDomain(repoUser), nil
}

// DeleteExpiredSessions removes all expired sessions from the database.
func (s *userService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	const op = "UserService.DeleteExpiredSessions"

	n, err := s.queries.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, domain.Internal(err, op, "Failed to delete expired sessions")
	}
	if n > 0 {
		s.logger.Info("expired sessions deleted", "count", n)
	}
	return n, nil
}

func (s *userService) createSession(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", err
	}
	_, err = s.queries.CreateSession(ctx, repository.CreateSessionParams{
		UserID:    userID,
		TokenHash: hashSessionToken(token),
		ExpiresAt: s.now().Add(s.sessionDuration),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// generateSessionToken returns 32 random bytes as a 64-character hex string.
func generateSessionToken() (string, error) {
	b := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashSessionToken creates a SHA-256 hash of a session token. Tokens are
// high-entropy random values, so a fast hash is sufficient.
func hashSessionToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// applyProfile copies the role-specific columns of p into params.
func applyProfile(params *repository.CreateUserParams, p domain.Profile) error {
	switch p := p.(type) {
	case domain.LoadOwnerProfile:
		params.Location = domain.ToNullString(p.Location)
	case domain.DriverProfile:
		params.LicenseInfo = domain.ToNullString(p.LicenseInfo)
		params.ServiceArea = domain.ToNullString(p.ServiceArea)
		raw, err := json.Marshal(p.Vehicle)
		if err != nil {
			return err
		}
		params.VehicleInfo = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}
	return nil
}

// repoUserToDomain converts a repository.User to domain.User. The password
// hash is never copied.
func repoUserToDomain(u repository.User) *domain.User {
	user := &domain.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      domain.Role(u.UserType),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}

	switch user.Role {
	case domain.RoleDriver:
		profile := domain.DriverProfile{
			LicenseInfo: domain.NullStringValue(u.LicenseInfo),
			ServiceArea: domain.NullStringValue(u.ServiceArea),
		}
		if u.VehicleInfo.Valid {
			// A malformed document leaves the vehicle empty rather than
			// failing the whole lookup.
			_ = json.Unmarshal(u.VehicleInfo.RawMessage, &profile.Vehicle)
		}
		user.Profile = profile
	default:
		user.Profile = domain.LoadOwnerProfile{Location: domain.NullStringValue(u.Location)}
	}
	return user
}

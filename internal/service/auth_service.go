package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"authsvc/internal/domain"
	"authsvc/internal/email"
	"authsvc/internal/metrics"
	"authsvc/internal/repository"
)

// ErrEmailInUse es el conflicto de un cambio de email en el perfil.
var ErrEmailInUse = fmt.Errorf("%w: email already in use", ErrConflict)

// SessionCodec emite y verifica tokens de sesion.
type SessionCodec interface {
	Issue(claims domain.SessionClaims) (string, error)
	Verify(token string) (domain.SessionClaims, error)
}

// AuthResult es lo que devuelven register y login: vista publica y token de sesion.
type AuthResult struct {
	User  domain.PublicUser
	Token string
}

// VerifyOutcome distingue una verificacion nueva de una repetida.
type VerifyOutcome int

const (
	VerifyOutcomeVerified VerifyOutcome = iota
	VerifyOutcomeAlreadyVerified
)

// ProfileUpdate lleva los campos opcionales del perfil; Name "" borra el nombre.
type ProfileUpdate struct {
	Name  *string
	Email *string
}

// ProfileResult incluye un token nuevo solo si cambio el email.
type ProfileResult struct {
	User  domain.PublicUser
	Token string
}

// AuthService coordina los casos de uso de autenticacion.
type AuthService struct {
	logger    *zap.Logger
	users     repository.UserRepository
	tokens    *TokenStore
	hasher    PasswordHasher
	sessions  SessionCodec
	validator *CredentialValidator
	mailer    email.Sender
	limiter   RateLimiter
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewAuthService(
	logger *zap.Logger,
	users repository.UserRepository,
	tokens *TokenStore,
	hasher PasswordHasher,
	sessions SessionCodec,
	mailer email.Sender,
	limiter RateLimiter,
	m *metrics.Metrics,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mailer == nil {
		mailer = email.NewDisabledSender("email sender not configured")
	}
	if limiter == nil {
		limiter = NewMemoryRateLimiter(10*time.Minute, 3)
	}
	return &AuthService{
		logger:    logger,
		users:     users,
		tokens:    tokens,
		hasher:    hasher,
		sessions:  sessions,
		validator: NewCredentialValidator(),
		mailer:    mailer,
		limiter:   limiter,
		metrics:   m,
		now:       time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegistrationInput) (res AuthResult, err error) {
	defer func() { s.record("register", err) }()

	in.Email = normalizeEmail(in.Email)
	if err := s.validator.ValidateRegistration(in); err != nil {
		return AuthResult{}, err
	}

	_, err = s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return AuthResult{}, ErrConflict
	case !errors.Is(err, repository.ErrNotFound):
		return AuthResult{}, internal("register: lookup user", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return AuthResult{}, internal("register: hash password", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: hash,
		Name:         trimmedName(in.Name),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return AuthResult{}, ErrConflict
		}
		return AuthResult{}, internal("register: create user", err)
	}

	// El usuario ya existe: si falla el token o el correo, puede pedir reenvio.
	s.sendVerification(ctx, user)

	token, err := s.issueSession(user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user.Public(), Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (res AuthResult, err error) {
	defer func() { s.record("login", err) }()

	in.Email = normalizeEmail(in.Email)
	if err := s.validator.ValidateLogin(in); err != nil {
		return AuthResult{}, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, repository.ErrNotFound) {
		s.hasher.BurnCompare(in.Password)
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, internal("login: lookup user", err)
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return AuthResult{}, ErrInvalidCredentials
	}

	token, err := s.issueSession(user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user.Public(), Token: token}, nil
}

// Logout no invalida nada del lado servidor: el token vive hasta su expiracion natural
// y el transporte solo borra la credencial del cliente.
func (s *AuthService) Logout(_ context.Context) {
	s.record("logout", nil)
}

// Authenticate resuelve el token de sesion presentado por el cliente.
func (s *AuthService) Authenticate(token string) (domain.SessionClaims, error) {
	claims, err := s.sessions.Verify(token)
	if err != nil {
		return domain.SessionClaims{}, ErrUnauthorized
	}
	return claims, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) (outcome VerifyOutcome, err error) {
	defer func() { s.record("verify_email", err) }()

	token = strings.TrimSpace(token)
	if token == "" {
		return 0, newValidationError(msgTokenRequired)
	}
	userID, err := s.tokens.Redeem(ctx, token, domain.PurposeEmailVerification)
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			return 0, err
		}
		return 0, internal("verify email: redeem token", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrTokenInvalid
	}
	if err != nil {
		return 0, internal("verify email: lookup user", err)
	}
	if user.EmailVerified {
		return VerifyOutcomeAlreadyVerified, nil
	}

	verified := true
	if _, err := s.users.Update(ctx, userID, domain.UserUpdate{EmailVerified: &verified}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrTokenInvalid
		}
		return 0, internal("verify email: update user", err)
	}
	s.consume(ctx, token, domain.PurposeEmailVerification)
	return VerifyOutcomeVerified, nil
}

func (s *AuthService) ResendVerification(ctx context.Context, userID string) (err error) {
	defer func() { s.record("resend_verification", err) }()

	user, err := s.currentUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}
	if !s.limiter.Allow(ctx, limiterKey("resend-verification", user.Email)) {
		return ErrRateLimited
	}

	token, err := s.issueToken(ctx, user.ID, domain.PurposeEmailVerification)
	if err != nil {
		return internal("resend verification: issue token", err)
	}
	if err := s.mailer.SendVerificationEmail(ctx, user.Email, token); err != nil {
		s.logger.Warn("send verification email failed", zap.Error(err), zap.String("user_id", user.ID))
		return ErrEmailSendFailure
	}
	return nil
}

// ForgotPassword responde igual exista o no la cuenta.
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr string) (err error) {
	defer func() { s.record("forgot_password", err) }()

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return newValidationError(msgEmailRequired)
	}
	if !s.limiter.Allow(ctx, limiterKey("forgot-password", emailAddr)) {
		return ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return internal("forgot password: lookup user", err)
	}

	token, err := s.issueToken(ctx, user.ID, domain.PurposePasswordReset)
	if err != nil {
		return internal("forgot password: issue token", err)
	}
	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, token); err != nil {
		s.logger.Warn("send password reset email failed", zap.Error(err), zap.String("user_id", user.ID))
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	defer func() { s.record("reset_password", err) }()

	token = strings.TrimSpace(token)
	if token == "" {
		return newValidationError(msgTokenRequired)
	}
	if err := s.validator.ValidateNewPassword(newPassword); err != nil {
		return err
	}

	userID, err := s.tokens.Redeem(ctx, token, domain.PurposePasswordReset)
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			return err
		}
		return internal("reset password: redeem token", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return internal("reset password: hash password", err)
	}

	// El token se borra antes de tocar la contrasena: si el borrado falla no queda
	// un secreto reutilizable, y si otro request lo consumio primero este pierde.
	deleted, err := s.tokens.Consume(ctx, token, domain.PurposePasswordReset)
	if err != nil {
		return internal("reset password: consume token", err)
	}
	if !deleted {
		return ErrTokenInvalid
	}

	if _, err := s.users.Update(ctx, userID, domain.UserUpdate{PasswordHash: &hash}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTokenInvalid
		}
		return internal("reset password: update user", err)
	}
	return nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) (err error) {
	defer func() { s.record("change_password", err) }()

	if currentPassword == "" || newPassword == "" {
		return newValidationError(msgPasswordsRequired)
	}
	user, err := s.currentUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return ErrIncorrectPassword
	}
	if err := s.validator.ValidateNewPassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return internal("change password: hash password", err)
	}
	if _, err := s.users.Update(ctx, user.ID, domain.UserUpdate{PasswordHash: &hash}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return internal("change password: update user", err)
	}
	return nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID string) (domain.PublicUser, error) {
	user, err := s.currentUser(ctx, userID)
	if err != nil {
		return domain.PublicUser{}, err
	}
	return user.Public(), nil
}

// UpdateProfile cambia nombre y/o email. Un email nuevo vuelve a quedar sin verificar,
// recibe un token de verificacion y obliga a reemitir la sesion.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (res ProfileResult, err error) {
	defer func() { s.record("update_profile", err) }()

	var problems []string
	if in.Email != nil {
		normalized := normalizeEmail(*in.Email)
		in.Email = &normalized
		if !ValidateEmail(normalized) {
			problems = append(problems, msgInvalidEmail)
		}
	}
	if in.Name != nil && *in.Name != "" && !ValidateName(in.Name) {
		problems = append(problems, msgInvalidName)
	}
	if len(problems) > 0 {
		return ProfileResult{}, newValidationError(problems...)
	}

	user, err := s.currentUser(ctx, userID)
	if err != nil {
		return ProfileResult{}, err
	}

	var upd domain.UserUpdate
	emailChanged := in.Email != nil && *in.Email != user.Email
	if emailChanged {
		if _, err := s.users.GetByEmail(ctx, *in.Email); err == nil {
			return ProfileResult{}, ErrEmailInUse
		} else if !errors.Is(err, repository.ErrNotFound) {
			return ProfileResult{}, internal("update profile: lookup email", err)
		}
		// El token pendiente apuntaba a la direccion anterior; no debe verificar la nueva.
		if err := s.tokens.Revoke(ctx, user.ID, domain.PurposeEmailVerification); err != nil {
			return ProfileResult{}, internal("update profile: revoke verification token", err)
		}
		unverified := false
		upd.Email = in.Email
		upd.EmailVerified = &unverified
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		upd.Name = &name
	}

	updated, err := s.users.Update(ctx, user.ID, upd)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			return ProfileResult{}, ErrEmailInUse
		case errors.Is(err, repository.ErrNotFound):
			return ProfileResult{}, ErrUserNotFound
		}
		return ProfileResult{}, internal("update profile: update user", err)
	}

	res = ProfileResult{User: updated.Public()}
	if emailChanged {
		s.sendVerification(ctx, updated)
		token, err := s.issueSession(updated)
		if err != nil {
			return ProfileResult{}, err
		}
		res.Token = token
	}
	return res, nil
}

// DeleteAccount borra los tokens pendientes y el registro del usuario.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) (err error) {
	defer func() { s.record("delete_account", err) }()

	if strings.TrimSpace(userID) == "" {
		return ErrUnauthorized
	}
	for _, p := range []domain.TokenPurpose{domain.PurposeEmailVerification, domain.PurposePasswordReset} {
		if err := s.tokens.Revoke(ctx, userID, p); err != nil {
			return internal("delete account: revoke tokens", err)
		}
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return internal("delete account: delete user", err)
	}
	return nil
}

func (s *AuthService) currentUser(ctx context.Context, userID string) (domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.User{}, ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, internal("lookup user", err)
	}
	return user, nil
}

func (s *AuthService) issueSession(user domain.User) (string, error) {
	token, err := s.sessions.Issue(domain.SessionClaims{UserID: user.ID, Email: user.Email})
	if err != nil {
		return "", internal("issue session", err)
	}
	return token, nil
}

func (s *AuthService) issueToken(ctx context.Context, userID string, purpose domain.TokenPurpose) (string, error) {
	token, err := s.tokens.Issue(ctx, userID, purpose)
	if err != nil {
		return "", err
	}
	s.metrics.RecordTokenIssued(string(purpose))
	return token, nil
}

// sendVerification emite token y envia el correo; ninguna falla se propaga.
func (s *AuthService) sendVerification(ctx context.Context, user domain.User) {
	token, err := s.issueToken(ctx, user.ID, domain.PurposeEmailVerification)
	if err != nil {
		s.logger.Error("issue verification token failed", zap.Error(err), zap.String("user_id", user.ID))
		return
	}
	if err := s.mailer.SendVerificationEmail(ctx, user.Email, token); err != nil {
		s.logger.Warn("send verification email failed", zap.Error(err), zap.String("user_id", user.ID))
	}
}

// consume borra el token ya aplicado. Si otro request lo borro antes, el efecto
// era idempotente y no hay nada que reportar.
func (s *AuthService) consume(ctx context.Context, token string, purpose domain.TokenPurpose) {
	deleted, err := s.tokens.Consume(ctx, token, purpose)
	if err != nil {
		s.logger.Error("delete single-use token failed", zap.Error(err), zap.String("purpose", string(purpose)))
		return
	}
	if !deleted {
		s.logger.Debug("single-use token already consumed", zap.String("purpose", string(purpose)))
	}
}

func (s *AuthService) record(event string, err error) {
	outcome := metrics.OutcomeSuccess
	var internalErr *InternalError
	switch {
	case errors.As(err, &internalErr):
		outcome = metrics.OutcomeError
	case err != nil:
		outcome = metrics.OutcomeFailure
	}
	s.metrics.RecordAuthEvent(event, outcome)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimmedName(name *string) *string {
	if name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*name)
	return &trimmed
}

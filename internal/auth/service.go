package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dukerupert/terrazzo/internal/domain"
)

// Store is the slice of the persistence layer the auth service needs.
type Store interface {
	GetStaffByEmail(ctx context.Context, email string) (*domain.StaffUser, error)
	GetStaff(ctx context.Context, id uuid.UUID) (*domain.StaffUser, error)
	GetSalesRepByEmail(ctx context.Context, email string) (*domain.SalesRep, error)
	GetSalesRep(ctx context.Context, id uuid.UUID) (*domain.SalesRep, error)
	GetTradeCustomerByEmail(ctx context.Context, email string) (*domain.TradeCustomer, error)
	GetTradeCustomer(ctx context.Context, id uuid.UUID) (*domain.TradeCustomer, error)
	GetCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error)

	CreateSession(ctx context.Context, sess *domain.Session) error
	GetSessionByToken(ctx context.Context, kind domain.PrincipalKind, token string) (*domain.Session, error)
	DeleteSession(ctx context.Context, kind domain.PrincipalKind, token string) error

	CreateDeviceTrust(ctx context.Context, t *domain.DeviceTrust) error
	HasDeviceTrust(ctx context.Context, staffID uuid.UUID, fingerprintHash string) (bool, error)
	CreateTwoFactorCode(ctx context.Context, c *domain.TwoFactorCode) error
	ConsumeTwoFactorCode(ctx context.Context, staffID uuid.UUID, code string, now time.Time) error
}

// CodeSender delivers 2FA codes. A nil sender puts the service in dev mode:
// 2FA is skipped entirely.
type CodeSender interface {
	SendTwoFactorCode(ctx context.Context, email, code string) error
}

// Service implements login, verification, and token resolution for the
// five principals.
type Service struct {
	store   Store
	limiter *LoginLimiter
	codes   CodeSender
	logger  zerolog.Logger
}

// NewService creates the auth service. codes may be nil (dev mode).
func NewService(store Store, codes CodeSender, logger zerolog.Logger) *Service {
	return &Service{
		store:   store,
		limiter: NewLoginLimiter(5, 15*time.Minute),
		codes:   codes,
		logger:  logger.With().Str("component", "auth").Logger(),
	}
}

// StaffLoginResult is either an issued session or a pending 2FA challenge.
type StaffLoginResult struct {
	Token         string
	ExpiresAt     time.Time
	Requires2FA   bool
	StaffID       uuid.UUID
	Role          string
	TwoFactorSkip string // "device_trusted" or "dev_mode" when 2FA was bypassed
}

// StaffLogin authenticates a staff member. Device-trusted logins and dev
// mode (no code sender configured) skip 2FA; everyone else gets a 6-digit
// code and must call VerifyStaffCode before a session is issued.
func (s *Service) StaffLogin(ctx context.Context, email, password, deviceFingerprint string, rememberMe bool) (*StaffLoginResult, error) {
	const op = "auth.staff.login"
	now := time.Now()
	if !s.limiter.Allow(email, now) {
		return nil, domain.Errorf(domain.ERATELIMIT, op, "too many login attempts, try again later")
	}

	staff, err := s.store.GetStaffByEmail(ctx, email)
	if err != nil || !staff.Active {
		return nil, domain.Unauthenticated(op, "invalid email or password")
	}
	if err := VerifyPassword(password, staff.PasswordHash); err != nil {
		return nil, domain.Unauthenticated(op, "invalid email or password")
	}

	skip := ""
	if deviceFingerprint != "" {
		trusted, err := s.store.HasDeviceTrust(ctx, staff.ID, FingerprintHash(deviceFingerprint))
		if err != nil {
			return nil, err
		}
		if trusted {
			skip = "device_trusted"
		}
	}
	if skip == "" && s.codes == nil {
		skip = "dev_mode"
		s.logger.Warn().Str("email", email).Msg("2FA skipped: no email transport configured")
	}

	if skip == "" {
		code, err := GenerateCode()
		if err != nil {
			return nil, domain.Internal(err, op, "failed to generate code")
		}
		err = s.store.CreateTwoFactorCode(ctx, &domain.TwoFactorCode{
			StaffID:   staff.ID,
			Code:      code,
			ExpiresAt: now.Add(domain.TwoFactorCodeTTL),
		})
		if err != nil {
			return nil, err
		}
		if err := s.codes.SendTwoFactorCode(ctx, staff.Email, code); err != nil {
			return nil, domain.Upstream(err, op, "failed to send verification code")
		}
		return &StaffLoginResult{Requires2FA: true, StaffID: staff.ID, Role: staff.Role}, nil
	}

	s.limiter.Reset(email)
	return s.issueStaffSession(ctx, staff, rememberMe, skip)
}

// VerifyStaffCode completes a 2FA challenge, optionally trusting the
// device for 30 days, and issues the session.
func (s *Service) VerifyStaffCode(ctx context.Context, staffID uuid.UUID, code, deviceFingerprint string, rememberMe, trustDevice bool) (*StaffLoginResult, error) {
	const op = "auth.staff.verify"
	staff, err := s.store.GetStaff(ctx, staffID)
	if err != nil || !staff.Active {
		return nil, domain.Unauthenticated(op, "invalid verification attempt")
	}
	if err := s.store.ConsumeTwoFactorCode(ctx, staffID, code, time.Now()); err != nil {
		return nil, err
	}
	if trustDevice && deviceFingerprint != "" {
		err := s.store.CreateDeviceTrust(ctx, &domain.DeviceTrust{
			StaffID:         staffID,
			FingerprintHash: FingerprintHash(deviceFingerprint),
			ExpiresAt:       time.Now().Add(domain.DeviceTrustTTL),
		})
		if err != nil {
			return nil, err
		}
	}
	s.limiter.Reset(staff.Email)
	return s.issueStaffSession(ctx, staff, rememberMe, "")
}

func (s *Service) issueStaffSession(ctx context.Context, staff *domain.StaffUser, rememberMe bool, skip string) (*StaffLoginResult, error) {
	const op = "auth.staff.session"
	token, err := GenerateToken()
	if err != nil {
		return nil, domain.Internal(err, op, "failed to generate token")
	}
	ttl := domain.SessionTTL
	if rememberMe {
		ttl = domain.SessionTTLRemembered
	}
	expires := time.Now().Add(ttl)
	err = s.store.CreateSession(ctx, &domain.Session{
		Kind:      domain.PrincipalStaff,
		SubjectID: staff.ID,
		Token:     token,
		ExpiresAt: expires,
	})
	if err != nil {
		return nil, err
	}
	return &StaffLoginResult{
		Token:         token,
		ExpiresAt:     expires,
		StaffID:       staff.ID,
		Role:          staff.Role,
		TwoFactorSkip: skip,
	}, nil
}

// LoginResult is an issued session for the non-staff principals.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	SubjectID uuid.UUID
}

// RepLogin authenticates a sales rep.
func (s *Service) RepLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	const op = "auth.rep.login"
	now := time.Now()
	if !s.limiter.Allow(email, now) {
		return nil, domain.Errorf(domain.ERATELIMIT, op, "too many login attempts, try again later")
	}
	rep, err := s.store.GetSalesRepByEmail(ctx, email)
	if err != nil || !rep.Active {
		return nil, domain.Unauthenticated(op, "invalid email or password")
	}
	if err := VerifyPassword(password, rep.PasswordHash); err != nil {
		return nil, domain.Unauthenticated(op, "invalid email or password")
	}
	s.limiter.Reset(email)
	return s.issueSession(ctx, domain.PrincipalRep, rep.ID)
}

// TradeLogin authenticates a trade customer. Suspended accounts may not
// log in.
func (s *Service) TradeLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	const op = "auth.trade.login"
	now := time.Now()
	if !s.limiter.Allow(email, now) {
		return nil, domain.Errorf(domain.ERATELIMIT, op, "too many login attempts, try again later")
	}
	tc, err := s.store.GetTradeCustomerByEmail(ctx, email)
	if err != nil {
		return nil, domain.Unauthenticated(op, "invalid email or password")
	}
	if tc.Status == "suspended" || tc.Status == "cancelled" {
		return nil, domain.Forbidden(op, "trade account is not active")
	}
	if err := VerifyPassword(password, tc.PasswordHash); err != nil {
		return nil, domain.Unauthenticated(op, "invalid email or password")
	}
	s.limiter.Reset(email)
	return s.issueSession(ctx, domain.PrincipalTrade, tc.ID)
}

// CustomerLogin authenticates a retail customer.
func (s *Service) CustomerLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	const op = "auth.customer.login"
	now := time.Now()
	if !s.limiter.Allow(email, now) {
		return nil, domain.Errorf(domain.ERATELIMIT, op, "too many login attempts, try again later")
	}
	c, err := s.store.GetCustomerByEmail(ctx, email)
	if err != nil {
		return nil, domain.Unauthenticated(op, "invalid email or password")
	}
	if err := VerifyPassword(password, c.PasswordHash); err != nil {
		return nil, domain.Unauthenticated(op, "invalid email or password")
	}
	s.limiter.Reset(email)
	return s.issueSession(ctx, domain.PrincipalCustomer, c.ID)
}

func (s *Service) issueSession(ctx context.Context, kind domain.PrincipalKind, subjectID uuid.UUID) (*LoginResult, error) {
	const op = "auth.session.issue"
	token, err := GenerateToken()
	if err != nil {
		return nil, domain.Internal(err, op, "failed to generate token")
	}
	expires := time.Now().Add(domain.SessionTTL)
	err = s.store.CreateSession(ctx, &domain.Session{
		Kind:      kind,
		SubjectID: subjectID,
		Token:     token,
		ExpiresAt: expires,
	})
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expires, SubjectID: subjectID}, nil
}

// Logout revokes a session token.
func (s *Service) Logout(ctx context.Context, kind domain.PrincipalKind, token string) error {
	return s.store.DeleteSession(ctx, kind, token)
}

// Resolve turns a presented token into a Principal.
func (s *Service) Resolve(ctx context.Context, kind domain.PrincipalKind, token string) (*domain.Principal, error) {
	const op = "auth.resolve"
	sess, err := s.store.GetSessionByToken(ctx, kind, token)
	if err != nil {
		return nil, domain.Unauthenticated(op, "invalid or expired session")
	}
	p := &domain.Principal{Kind: kind, ID: sess.SubjectID}
	switch kind {
	case domain.PrincipalStaff:
		staff, err := s.store.GetStaff(ctx, sess.SubjectID)
		if err != nil || !staff.Active {
			return nil, domain.Unauthenticated(op, "invalid or expired session")
		}
		p.Email, p.Role = staff.Email, staff.Role
	case domain.PrincipalRep:
		rep, err := s.store.GetSalesRep(ctx, sess.SubjectID)
		if err != nil || !rep.Active {
			return nil, domain.Unauthenticated(op, "invalid or expired session")
		}
		p.Email = rep.Email
	case domain.PrincipalTrade:
		tc, err := s.store.GetTradeCustomer(ctx, sess.SubjectID)
		if err != nil {
			return nil, domain.Unauthenticated(op, "invalid or expired session")
		}
		p.Email = tc.Email
	case domain.PrincipalCustomer:
		c, err := s.store.GetCustomer(ctx, sess.SubjectID)
		if err != nil {
			return nil, domain.Unauthenticated(op, "invalid or expired session")
		}
		p.Email = c.Email
	}
	return p, nil
}

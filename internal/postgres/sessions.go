package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/terrazzo/internal/domain"
)

// sessionTable maps a principal kind to its session table. Each kind has
// its own table so TTLs and metadata can diverge.
func sessionTable(kind domain.PrincipalKind) (string, error) {
	switch kind {
	case domain.PrincipalStaff:
		return "staff_sessions", nil
	case domain.PrincipalRep:
		return "rep_sessions", nil
	case domain.PrincipalTrade:
		return "trade_sessions", nil
	case domain.PrincipalCustomer:
		return "customer_sessions", nil
	default:
		return "", fmt.Errorf("no session table for principal kind %q", kind)
	}
}

// CreateSession inserts a session row for the given principal kind.
func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	const op = "store.session.create"
	table, err := sessionTable(sess.Kind)
	if err != nil {
		return domain.Internal(err, op, "invalid session kind")
	}
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO `+table+` (id, subject_id, token, expires_at) VALUES ($1,$2,$3,$4)`,
		sess.ID, sess.SubjectID, sess.Token, sess.ExpiresAt,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to create session")
	}
	return nil
}

// GetSessionByToken resolves an unexpired session token for a kind.
func (s *Store) GetSessionByToken(ctx context.Context, kind domain.PrincipalKind, token string) (*domain.Session, error) {
	const op = "store.session.get"
	table, err := sessionTable(kind)
	if err != nil {
		return nil, domain.Internal(err, op, "invalid session kind")
	}
	var sess domain.Session
	sess.Kind = kind
	err = s.db.QueryRow(ctx,
		`SELECT id, subject_id, token, expires_at, created_at FROM `+table+
			` WHERE token = $1 AND expires_at > now()`, token,
	).Scan(&sess.ID, &sess.SubjectID, &sess.Token, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		return nil, notFound(err, op, "session")
	}
	return &sess, nil
}

// DeleteSession revokes one session token.
func (s *Store) DeleteSession(ctx context.Context, kind domain.PrincipalKind, token string) error {
	const op = "store.session.delete"
	table, err := sessionTable(kind)
	if err != nil {
		return domain.Internal(err, op, "invalid session kind")
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM `+table+` WHERE token = $1`, token); err != nil {
		return domain.Internal(err, op, "failed to delete session")
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions and 2FA codes across all
// session tables. Run by the daily timer.
func (s *Store) CleanupExpiredSessions(ctx context.Context) error {
	const op = "store.session.cleanup"
	for _, table := range []string{"staff_sessions", "rep_sessions", "trade_sessions", "customer_sessions", "staff_device_trust"} {
		if _, err := s.db.Exec(ctx, `DELETE FROM `+table+` WHERE expires_at < now()`); err != nil {
			return domain.Internal(err, op, "failed to clean "+table)
		}
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM staff_2fa_codes WHERE expires_at < now() OR used`); err != nil {
		return domain.Internal(err, op, "failed to clean staff_2fa_codes")
	}
	return nil
}

// CreateDeviceTrust grants 2FA bypass for a (staff, fingerprint) pair.
func (s *Store) CreateDeviceTrust(ctx context.Context, t *domain.DeviceTrust) error {
	const op = "store.device_trust.create"
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO staff_device_trust (id, staff_id, fingerprint_hash, expires_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (staff_id, fingerprint_hash)
		DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		t.ID, t.StaffID, t.FingerprintHash, t.ExpiresAt,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to create device trust")
	}
	return nil
}

// HasDeviceTrust reports whether an unexpired trust record exists.
func (s *Store) HasDeviceTrust(ctx context.Context, staffID uuid.UUID, fingerprintHash string) (bool, error) {
	const op = "store.device_trust.check"
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM staff_device_trust
			WHERE staff_id = $1 AND fingerprint_hash = $2 AND expires_at > now())`,
		staffID, fingerprintHash).Scan(&exists)
	if err != nil {
		return false, domain.Internal(err, op, "failed to check device trust")
	}
	return exists, nil
}

// CreateTwoFactorCode stores a single-use 6-digit staff login code.
func (s *Store) CreateTwoFactorCode(ctx context.Context, c *domain.TwoFactorCode) error {
	const op = "store.2fa.create"
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO staff_2fa_codes (id, staff_id, code, used, expires_at) VALUES ($1,$2,$3,false,$4)`,
		c.ID, c.StaffID, c.Code, c.ExpiresAt,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to create 2fa code")
	}
	return nil
}

// ConsumeTwoFactorCode atomically marks a valid code used. Returns a
// conflict when the code is wrong, expired, or already used.
func (s *Store) ConsumeTwoFactorCode(ctx context.Context, staffID uuid.UUID, code string, now time.Time) error {
	const op = "store.2fa.consume"
	tag, err := s.db.Exec(ctx, `
		UPDATE staff_2fa_codes SET used = true
		WHERE staff_id = $1 AND code = $2 AND NOT used AND expires_at > $3`,
		staffID, code, now,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to consume 2fa code")
	}
	if tag.RowsAffected() == 0 {
		return domain.Unauthenticated(op, "invalid or expired verification code")
	}
	return nil
}

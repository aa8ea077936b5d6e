package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/dukerupert/terrazzo/internal/domain"
)

// GetStaffByEmail fetches an active staff account for login.
func (s *Store) GetStaffByEmail(ctx context.Context, email string) (*domain.StaffUser, error) {
	var u domain.StaffUser
	err := s.db.QueryRow(ctx, `
		SELECT id, email, name, password_hash, role, active, created_at
		FROM staff_users WHERE lower(email) = lower($1)`, email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err, "store.staff.get_by_email", "staff user")
	}
	return &u, nil
}

// GetStaff fetches a staff account by id.
func (s *Store) GetStaff(ctx context.Context, id uuid.UUID) (*domain.StaffUser, error) {
	var u domain.StaffUser
	err := s.db.QueryRow(ctx, `
		SELECT id, email, name, password_hash, role, active, created_at
		FROM staff_users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err, "store.staff.get", "staff user")
	}
	return &u, nil
}

// CreateStaff inserts a staff console account.
func (s *Store) CreateStaff(ctx context.Context, u *domain.StaffUser) error {
	const op = "store.staff.create"
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO staff_users (id, email, name, password_hash, role, active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict(op, "a staff account with this email already exists")
		}
		return domain.Internal(err, op, "failed to create staff user")
	}
	return nil
}

// ListStaff returns every staff account, newest first.
func (s *Store) ListStaff(ctx context.Context) ([]domain.StaffUser, error) {
	const op = "store.staff.list"
	rows, err := s.db.Query(ctx, `
		SELECT id, email, name, password_hash, role, active, created_at
		FROM staff_users ORDER BY created_at DESC`)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list staff users")
	}
	defer rows.Close()
	var out []domain.StaffUser
	for rows.Next() {
		var u domain.StaffUser
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, domain.Internal(err, op, "failed to scan staff user")
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateStaff rewrites the mutable fields of a staff account.
func (s *Store) UpdateStaff(ctx context.Context, u *domain.StaffUser) error {
	const op = "store.staff.update"
	tag, err := s.db.Exec(ctx, `
		UPDATE staff_users SET
			name = $2, password_hash = $3, role = $4, active = $5
		WHERE id = $1`,
		u.ID, u.Name, u.PasswordHash, u.Role, u.Active,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to update staff user")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound(op, "staff user")
	}
	return nil
}

// GetSalesRepByEmail fetches a rep for login.
func (s *Store) GetSalesRepByEmail(ctx context.Context, email string) (*domain.SalesRep, error) {
	var r domain.SalesRep
	err := s.db.QueryRow(ctx, `
		SELECT id, email, name, password_hash, commission_rate, active, created_at
		FROM sales_reps WHERE lower(email) = lower($1)`, email,
	).Scan(&r.ID, &r.Email, &r.Name, &r.PasswordHash, &r.CommissionRate, &r.Active, &r.CreatedAt)
	if err != nil {
		return nil, notFound(err, "store.rep.get_by_email", "sales rep")
	}
	return &r, nil
}

// GetSalesRep fetches a rep by id.
func (s *Store) GetSalesRep(ctx context.Context, id uuid.UUID) (*domain.SalesRep, error) {
	var r domain.SalesRep
	err := s.db.QueryRow(ctx, `
		SELECT id, email, name, password_hash, commission_rate, active, created_at
		FROM sales_reps WHERE id = $1`, id,
	).Scan(&r.ID, &r.Email, &r.Name, &r.PasswordHash, &r.CommissionRate, &r.Active, &r.CreatedAt)
	if err != nil {
		return nil, notFound(err, "store.rep.get", "sales rep")
	}
	return &r, nil
}

// GetCustomerByEmail fetches a retail account for login or checkout linking.
func (s *Store) GetCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRow(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM customers WHERE lower(email) = lower($1)`, email,
	).Scan(&c.ID, &c.Email, &c.Name, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err, "store.customer.get_by_email", "customer")
	}
	return &c, nil
}

// GetCustomer fetches a retail account by id.
func (s *Store) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRow(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM customers WHERE id = $1`, id,
	).Scan(&c.ID, &c.Email, &c.Name, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err, "store.customer.get", "customer")
	}
	return &c, nil
}

// CreateCustomer inserts a retail account, e.g. the optional account
// created during checkout.
func (s *Store) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	const op = "store.customer.create"
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO customers (id, email, name, password_hash)
		VALUES ($1,$2,$3,$4)`,
		c.ID, c.Email, c.Name, c.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict(op, "an account with this email already exists")
		}
		return domain.Internal(err, op, "failed to create customer")
	}
	return nil
}

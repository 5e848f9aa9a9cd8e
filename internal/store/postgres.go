// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"bto-allocation/internal/models"
)

// Postgres persists allocation records in PostgreSQL. Flat inventory, officer
// sets and enquiry replies are stored as jsonb; everything else is flat
// columns.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the tables when they do not exist yet. Intended for
// the seed loader and local development; production schemas are managed
// out of band.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			nric TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			age INT NOT NULL,
			marital_status TEXT NOT NULL,
			role TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS projects (
			name TEXT PRIMARY KEY,
			neighborhood TEXT NOT NULL,
			open_date TIMESTAMPTZ NOT NULL,
			close_date TIMESTAMPTZ NOT NULL,
			visible BOOLEAN NOT NULL,
			manager_nric TEXT NOT NULL,
			officer_slots INT NOT NULL,
			officer_nrics JSONB NOT NULL DEFAULT '[]',
			flats JSONB NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS applications (
			id TEXT PRIMARY KEY,
			applicant_nric TEXT NOT NULL,
			project_name TEXT NOT NULL,
			flat_type TEXT NOT NULL,
			status TEXT NOT NULL,
			booked_by TEXT NOT NULL DEFAULT '',
			withdrawal_requested BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS officer_assignments (
			id TEXT PRIMARY KEY,
			officer_nric TEXT NOT NULL,
			project_name TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS enquiries (
			id TEXT PRIMARY KEY,
			applicant_nric TEXT NOT NULL,
			project_name TEXT NOT NULL,
			content TEXT NOT NULL,
			reply JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Postgres) LoadUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT nric, name, age, marital_status, role, email, phone, password_hash
		FROM users ORDER BY nric`)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.NRIC, &u.Name, &u.Age, &u.MaritalStatus, &u.Role,
			&u.Email, &u.Phone, &u.PasswordHash); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (s *Postgres) SaveUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (nric, name, age, marital_status, role, email, phone, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (nric) DO UPDATE SET
			name = EXCLUDED.name,
			age = EXCLUDED.age,
			marital_status = EXCLUDED.marital_status,
			role = EXCLUDED.role,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			password_hash = EXCLUDED.password_hash`,
		u.NRIC, u.Name, u.Age, u.MaritalStatus, u.Role, u.Email, u.Phone, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("save user %s: %w", u.NRIC, err)
	}
	return nil
}

func (s *Postgres) LoadProjects(ctx context.Context) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, neighborhood, open_date, close_date, visible, manager_nric,
		       officer_slots, officer_nrics, flats
		FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var p models.Project
		var officers, flats []byte
		if err := rows.Scan(&p.Name, &p.Neighborhood, &p.OpenDate, &p.CloseDate,
			&p.Visible, &p.ManagerNRIC, &p.OfficerSlots, &officers, &flats); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		if err := json.Unmarshal(officers, &p.OfficerNRICs); err != nil {
			return nil, fmt.Errorf("decode officer set for %s: %w", p.Name, err)
		}
		if err := json.Unmarshal(flats, &p.Flats); err != nil {
			return nil, fmt.Errorf("decode flat inventory for %s: %w", p.Name, err)
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

func (s *Postgres) SaveProject(ctx context.Context, p *models.Project) error {
	officers, err := json.Marshal(p.OfficerNRICs)
	if err != nil {
		return fmt.Errorf("encode officer set: %w", err)
	}
	if p.OfficerNRICs == nil {
		officers = []byte("[]")
	}
	flats, err := json.Marshal(p.Flats)
	if err != nil {
		return fmt.Errorf("encode flat inventory: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (name, neighborhood, open_date, close_date, visible,
		                      manager_nric, officer_slots, officer_nrics, flats)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (name) DO UPDATE SET
			neighborhood = EXCLUDED.neighborhood,
			open_date = EXCLUDED.open_date,
			close_date = EXCLUDED.close_date,
			visible = EXCLUDED.visible,
			manager_nric = EXCLUDED.manager_nric,
			officer_slots = EXCLUDED.officer_slots,
			officer_nrics = EXCLUDED.officer_nrics,
			flats = EXCLUDED.flats`,
		p.Name, p.Neighborhood, p.OpenDate, p.CloseDate, p.Visible,
		p.ManagerNRIC, p.OfficerSlots, officers, flats)
	if err != nil {
		return fmt.Errorf("save project %s: %w", p.Name, err)
	}
	return nil
}

func (s *Postgres) DeleteProject(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", name, err)
	}
	return nil
}

func (s *Postgres) LoadApplications(ctx context.Context) ([]*models.Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, applicant_nric, project_name, flat_type, status,
		       booked_by, withdrawal_requested, created_at, updated_at
		FROM applications ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load applications: %w", err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		var a models.Application
		if err := rows.Scan(&a.ID, &a.ApplicantNRIC, &a.ProjectName, &a.FlatType,
			&a.Status, &a.BookedBy, &a.WithdrawalRequested, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, &a)
	}
	return apps, rows.Err()
}

func (s *Postgres) SaveApplication(ctx context.Context, a *models.Application) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (id, applicant_nric, project_name, flat_type,
		                          status, booked_by, withdrawal_requested, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			booked_by = EXCLUDED.booked_by,
			withdrawal_requested = EXCLUDED.withdrawal_requested,
			updated_at = EXCLUDED.updated_at`,
		a.ID, a.ApplicantNRIC, a.ProjectName, a.FlatType,
		a.Status, a.BookedBy, a.WithdrawalRequested, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save application %s: %w", a.ID, err)
	}
	return nil
}

func (s *Postgres) LoadAssignments(ctx context.Context) ([]*models.OfficerAssignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, officer_nric, project_name, status, created_at, updated_at
		FROM officer_assignments ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	defer rows.Close()

	var asgs []*models.OfficerAssignment
	for rows.Next() {
		var a models.OfficerAssignment
		if err := rows.Scan(&a.ID, &a.OfficerNRIC, &a.ProjectName, &a.Status,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		asgs = append(asgs, &a)
	}
	return asgs, rows.Err()
}

func (s *Postgres) SaveAssignment(ctx context.Context, a *models.OfficerAssignment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO officer_assignments (id, officer_nric, project_name, status,
		                                 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		a.ID, a.OfficerNRIC, a.ProjectName, a.Status, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save assignment %s: %w", a.ID, err)
	}
	return nil
}

func (s *Postgres) LoadEnquiries(ctx context.Context) ([]*models.Enquiry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, applicant_nric, project_name, content, reply, created_at, updated_at
		FROM enquiries ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load enquiries: %w", err)
	}
	defer rows.Close()

	var enqs []*models.Enquiry
	for rows.Next() {
		var e models.Enquiry
		var reply []byte
		if err := rows.Scan(&e.ID, &e.ApplicantNRIC, &e.ProjectName, &e.Content,
			&reply, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan enquiry: %w", err)
		}
		if len(reply) > 0 {
			var r models.EnquiryReply
			if err := json.Unmarshal(reply, &r); err != nil {
				return nil, fmt.Errorf("decode reply for %s: %w", e.ID, err)
			}
			e.Reply = &r
		}
		enqs = append(enqs, &e)
	}
	return enqs, rows.Err()
}

func (s *Postgres) SaveEnquiry(ctx context.Context, e *models.Enquiry) error {
	var reply interface{}
	if e.Reply != nil {
		data, err := json.Marshal(e.Reply)
		if err != nil {
			return fmt.Errorf("encode reply: %w", err)
		}
		reply = data
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enquiries (id, applicant_nric, project_name, content, reply,
		                       created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			reply = EXCLUDED.reply,
			updated_at = EXCLUDED.updated_at`,
		e.ID, e.ApplicantNRIC, e.ProjectName, e.Content, reply, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save enquiry %s: %w", e.ID, err)
	}
	return nil
}

func (s *Postgres) DeleteEnquiry(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM enquiries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enquiry %s: %w", id, err)
	}
	return nil
}

package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/benariet/SemScan-Project-sub001/internal/models"
)

// ErrNotFound is returned when no presenter matches.
var ErrNotFound = errors.New("auth: presenter not found")

// Repository handles presenter account persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const presenterColumns = `username, first_name, last_name, email, degree, role,
	supervisor_name, supervisor_email, password_hash`

// GetByUsername returns a presenter account by username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.Presenter, error) {
	q := `SELECT ` + presenterColumns + ` FROM presenters WHERE username = $1`
	var p models.Presenter
	err := r.pool.QueryRow(ctx, q, username).Scan(&p.Username, &p.FirstName, &p.LastName,
		&p.Email, &p.Degree, &p.Role, &p.SupervisorName, &p.SupervisorEmail, &p.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a new presenter account.
func (r *Repository) Create(ctx context.Context, p *models.Presenter) error {
	const q = `INSERT INTO presenters (username, first_name, last_name, email, degree, role,
		supervisor_name, supervisor_email, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7,''), NULLIF($8,''), $9)`
	supName, supEmail := "", ""
	if p.SupervisorName != nil {
		supName = *p.SupervisorName
	}
	if p.SupervisorEmail != nil {
		supEmail = *p.SupervisorEmail
	}
	_, err := r.pool.Exec(ctx, q, p.Username, p.FirstName, p.LastName, p.Email,
		p.Degree, p.Role, supName, supEmail, p.PasswordHash)
	return err
}

// List returns all presenter accounts ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Presenter, error) {
	q := `SELECT ` + presenterColumns + ` FROM presenters ORDER BY last_name, first_name, username`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Presenter
	for rows.Next() {
		var p models.Presenter
		if err := rows.Scan(&p.Username, &p.FirstName, &p.LastName, &p.Email, &p.Degree,
			&p.Role, &p.SupervisorName, &p.SupervisorEmail, &p.PasswordHash); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

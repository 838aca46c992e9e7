// Package presenters resolves caller handles to presenter records. The
// lifecycle services treat it as a read-only lookup.
package presenters

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/benariet/SemScan-Project-sub001/internal/domain"
	"github.com/benariet/SemScan-Project-sub001/internal/models"
)

// Resolver maps an opaque caller handle to a presenter record.
type Resolver interface {
	Resolve(ctx context.Context, handle string) (*models.Presenter, error)
}

// Normalize canonicalizes a university handle: trimmed, lowercased, and with
// any mail domain stripped, so "Dana@post.example.ac.il" and "dana" match.
func Normalize(handle string) string {
	h := strings.ToLower(strings.TrimSpace(handle))
	if at := strings.IndexByte(h, '@'); at >= 0 {
		h = h[:at]
	}
	return h
}

// Repository resolves presenters from Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a presenter repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const presenterColumns = `username, first_name, last_name, email, degree, role, supervisor_name, supervisor_email, password_hash`

// Resolve looks the presenter up by normalized handle. An empty handle or a
// missing row is a MissingIdentity domain error.
func (r *Repository) Resolve(ctx context.Context, handle string) (*models.Presenter, error) {
	username := Normalize(handle)
	if username == "" {
		return nil, domain.E(domain.KindMissingIdentity, uuid.Nil, handle, "presenter handle is empty")
	}
	const q = `SELECT ` + presenterColumns + ` FROM presenters WHERE username = $1`
	var p models.Presenter
	err := r.pool.QueryRow(ctx, q, username).Scan(&p.Username, &p.FirstName, &p.LastName,
		&p.Email, &p.Degree, &p.Role, &p.SupervisorName, &p.SupervisorEmail, &p.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.E(domain.KindMissingIdentity, uuid.Nil, username, "unknown presenter "+username)
		}
		return nil, err
	}
	p.Degree = models.NormalizeDegree(p.Degree)
	return &p, nil
}

// MapResolver serves presenters from a map. Test helper.
type MapResolver map[string]models.Presenter

func (m MapResolver) Resolve(_ context.Context, handle string) (*models.Presenter, error) {
	username := Normalize(handle)
	if username == "" {
		return nil, domain.E(domain.KindMissingIdentity, uuid.Nil, handle, "presenter handle is empty")
	}
	p, ok := m[username]
	if !ok {
		return nil, domain.E(domain.KindMissingIdentity, uuid.Nil, username, "unknown presenter "+username)
	}
	p.Degree = models.NormalizeDegree(p.Degree)
	return &p, nil
}

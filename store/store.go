package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/awakeconnect/awake/apperr"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Roles a user can hold.
const (
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleSubAdmin   = "SUB_ADMIN"
	RoleStudent    = "STUDENT"
	RoleDonor      = "DONOR"
)

var roles = map[string]bool{
	RoleAdmin:      true,
	RoleSuperAdmin: true,
	RoleSubAdmin:   true,
	RoleStudent:    true,
	RoleDonor:      true,
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return roles[role]
}

type User struct {
	ID        string         `db:"id" json:"id"`
	Email     string         `db:"email" json:"email"`
	Name      string         `db:"name" json:"name"`
	Role      string         `db:"role" json:"role"`
	StudentID sql.NullString `db:"student_id" json:"-"`
	DonorID   sql.NullString `db:"donor_id" json:"-"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

type Application struct {
	ID        string         `db:"id" json:"id"`
	StudentID sql.NullString `db:"student_id" json:"-"`
	Term      string         `db:"term" json:"term"`
	Amount    float64        `db:"amount" json:"amount"`
	Currency  string         `db:"currency" json:"currency"`
	Status    string         `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// UserLinks are the profile ids attached to a user account.
type UserLinks struct {
	StudentID string `db:"student_id"`
	DonorID   string `db:"donor_id"`
}

// Stats holds one count per collection.
type Stats struct {
	Students     int64 `json:"students"`
	Donors       int64 `json:"donors"`
	Universities int64 `json:"universities"`
	Applications int64 `json:"applications"`
	Users        int64 `json:"users"`
}

// Get returns the count recorded for c.
func (s Stats) Get(c Collection) int64 {
	switch c {
	case Students:
		return s.Students
	case Donors:
		return s.Donors
	case Universities:
		return s.Universities
	case Applications:
		return s.Applications
	case Users:
		return s.Users
	}
	return 0
}

func (s *Stats) set(c Collection, n int64) {
	switch c {
	case Students:
		s.Students = n
	case Donors:
		s.Donors = n
	case Universities:
		s.Universities = n
	case Applications:
		s.Applications = n
	case Users:
		s.Users = n
	}
}

// Store provides manual-SQL data access.
type Store struct {
	DB    *DB
	now   func() time.Time
	newID func() string
}

func New(db *DB, opts ...Option) *Store {
	options := StoreOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Now == nil {
		options.Now = func() time.Time { return time.Now().UTC() }
	}
	if options.NewID == nil {
		options.NewID = uuid.NewString
	}
	return &Store{DB: db, now: options.Now, newID: options.NewID}
}

func (s *Store) ensureDB() (*sqlx.DB, error) {
	if s == nil || s.DB == nil || s.DB.DB == nil {
		return nil, apperr.Wrap(errors.New("nil db"), apperr.ErrDatabase, "")
	}
	return s.DB.DB, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.DB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return apperr.Wrap(err, apperr.ErrUnavailable, "database unreachable: "+err.Error())
	}
	return nil
}

// Count returns the number of rows in c.
func (s *Store) Count(ctx context.Context, c Collection) (int64, error) {
	if !c.Valid() {
		return 0, apperr.Wrap(fmt.Errorf("unknown collection %q", c), apperr.ErrBadRequest, "")
	}
	db, err := s.ensureDB()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+string(c)); err != nil {
		return 0, apperr.Wrap(err, apperr.ErrDatabase, fmt.Sprintf("count %s: %v", c, err))
	}
	return n, nil
}

// Stats counts every collection. The first failing count aborts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	for _, c := range AllCollections {
		n, err := s.Count(ctx, c)
		if err != nil {
			return Stats{}, err
		}
		st.set(c, n)
	}
	return st, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	users := []User{}
	if err := db.SelectContext(ctx, &users, "SELECT * FROM users ORDER BY created_at, email"); err != nil {
		return nil, apperr.Wrap(err, apperr.ErrDatabase, fmt.Sprintf("list users: %v", err))
	}
	return users, nil
}

// UserLinks returns the student and donor ids linked to a user.
func (s *Store) UserLinks(ctx context.Context, userID string) (UserLinks, error) {
	db, err := s.ensureDB()
	if err != nil {
		return UserLinks{}, err
	}
	stmt := s.DB.Rebind("SELECT COALESCE(student_id, '') AS student_id, COALESCE(donor_id, '') AS donor_id FROM users WHERE id = ?")
	var links UserLinks
	if err := db.GetContext(ctx, &links, stmt, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserLinks{}, apperr.Wrap(err, apperr.ErrNotFound, "user not found")
		}
		return UserLinks{}, apperr.Wrap(err, apperr.ErrDatabase, "")
	}
	return links, nil
}

func (s *Store) CreateUser(ctx context.Context, user *User) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	if user.Role == "" {
		user.Role = RoleStudent
	}
	if !ValidRole(user.Role) {
		return apperr.WithFields(apperr.ErrBadRequest, map[string]any{"role": user.Role})
	}
	if user.ID == "" {
		user.ID = s.newID()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	now := s.now()
	stmt := s.DB.Rebind(`INSERT INTO users(id, email, name, role, student_id, donor_id, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := db.ExecContext(ctx, stmt,
		user.ID, user.Email, user.Name, user.Role, user.StudentID, user.DonorID, now, now,
	); err != nil {
		return apperr.Wrap(err, apperr.ErrDatabase, fmt.Sprintf("create user: %v", err))
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (s *Store) CreateApplication(ctx context.Context, app *Application) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	if app.ID == "" {
		app.ID = s.newID()
	}
	if app.Currency == "" {
		app.Currency = "USD"
	}
	if app.Status == "" {
		app.Status = "PENDING"
	}
	now := s.now()
	stmt := s.DB.Rebind(`INSERT INTO applications(id, student_id, term, amount, currency, status, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := db.ExecContext(ctx, stmt,
		app.ID, app.StudentID, app.Term, app.Amount, app.Currency, app.Status, now, now,
	); err != nil {
		return apperr.Wrap(err, apperr.ErrDatabase, fmt.Sprintf("create application: %v", err))
	}
	app.CreatedAt = now
	app.UpdatedAt = now
	return nil
}

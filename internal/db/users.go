package db

import (
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

const userColumns = `id, email, hashed_password, name, role, created_at, updated_at`

// inserts new user into table, returns new user ID.
func (s *pgStore) CreateUser(email, hashedPassword string, name *string, role string) (int, error) {
	var newID int
	err := s.db.QueryRow(`
	INSERT INTO users (email, hashed_password, name, role, created_at, updated_at)
	VALUES ($1, $2, $3, $4, now(), now())
	RETURNING id;`, email, hashedPassword, name, role).Scan(&newID)
	if err != nil {
		log.Error().Err(err).Str("email", email).Msg("failed to create user")
		return 0, translate(err)
	}
	return newID, nil
}

// fetches user by email. returns nil, sql.ErrNoRows if not found.
func (s *pgStore) GetUserByEmail(email string) (*model.User, error) {
	var u model.User
	err := s.db.Get(&u, `SELECT `+userColumns+` FROM users WHERE email = $1;`, email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error().Err(err).Msg("failed to get user by email")
		}
		return nil, err
	}
	return &u, nil
}

// fetches a user by ID. Returns nil, sql.ErrNoRows if not found.
func (s *pgStore) GetUserByID(id int) (*model.User, error) {
	var u model.User
	err := s.db.Get(&u, `SELECT `+userColumns+` FROM users WHERE id = $1;`, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error().Err(err).Int("user_id", id).Msg("failed to get user by id")
		}
		return nil, err
	}
	return &u, nil
}

// updates a user's email and name, and bumps updated_at.
func (s *pgStore) UpdateUserProfile(id int, email string, name *string) error {
	res, err := s.db.Exec(`
	UPDATE users
	SET email = $2,
	name = $3,
	updated_at = now()
	WHERE id = $1;`, id, email, name)
	if err != nil {
		log.Error().Err(err).Int("user_id", id).Msg("failed to update user profile")
		return err
	}
	return expectRow(res)
}

func (s *pgStore) ListUsers() ([]model.User, error) {
	users := []model.User{}
	if err := s.db.Select(&users, `SELECT `+userColumns+` FROM users ORDER BY id;`); err != nil {
		log.Error().Err(err).Msg("failed to list users")
		return nil, err
	}
	return users, nil
}

func (s *pgStore) UpdateUserRole(id int, role string) error {
	res, err := s.db.Exec(`UPDATE users SET role = $2, updated_at = now() WHERE id = $1;`, id, role)
	if err != nil {
		log.Error().Err(err).Int("user_id", id).Str("role", role).Msg("failed to update user role")
		return err
	}
	return expectRow(res)
}

// expectRow turns a zero-row update or delete into sql.ErrNoRows.
func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

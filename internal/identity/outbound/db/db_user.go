package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/minibank/internal/identity/entity"
	"github.com/shandysiswandi/minibank/internal/pkg/goerror"
)

const userColumns = "id, username, email, full_name, password_hash, role, created_at, updated_at"

func scanUser(row pgx.Row) (*entity.User, error) {
	var (
		u    entity.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = entity.Role(role)
	return &u, nil
}

func (s *DB) GetUserByUsername(ctx context.Context, username string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByUsername")
	defer func() { s.endSpan(span, err) }()

	user, err := scanUser(s.q(ctx).QueryRow(ctx,
		"select "+userColumns+" from identity_users where username = $1", username))
	if err != nil {
		return nil, s.mapError(err)
	}

	return user, nil
}

func (s *DB) GetUserByEmail(ctx context.Context, email string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByEmail")
	defer func() { s.endSpan(span, err) }()

	user, err := scanUser(s.q(ctx).QueryRow(ctx,
		"select "+userColumns+" from identity_users where email = $1", email))
	if err != nil {
		return nil, s.mapError(err)
	}

	return user, nil
}

func (s *DB) CreateUser(ctx context.Context, user entity.User) (err error) {
	ctx, span := s.startSpan(ctx, "CreateUser")
	defer func() { s.endSpan(span, err) }()

	_, err = s.q(ctx).Exec(ctx, `insert into identity_users
		(id, username, email, full_name, password_hash, role, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Username, user.Email, user.FullName, user.PasswordHash, user.Role.String(),
		user.CreatedAt, user.UpdatedAt,
	)
	err = s.mapError(err)
	return err
}

func (s *DB) UpdateUserPassword(ctx context.Context, username, passwordHash string) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateUserPassword")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.q(ctx).Exec(ctx,
		"update identity_users set password_hash = $2, updated_at = now() where username = $1",
		username, passwordHash)
	if err != nil {
		return s.mapError(err)
	}

	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

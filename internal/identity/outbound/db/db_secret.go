package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shandysiswandi/minibank/internal/identity/entity"
	"github.com/shandysiswandi/minibank/internal/identity/usecase"
)

const (
	pendingColumns = "username, full_name, email, password_hash, otp_hash, expires_at, attempts, resend_count, window_start_at, locked_until"
	resetColumns   = "id, email, username, new_password_hash, otp_hash, expires_at, attempts, resend_count, window_start_at, locked_until, last_sent_at"
)

// UpdatePendingRegistration runs fn with the record for username locked by
// SELECT ... FOR UPDATE and applies the returned mutation in the same
// transaction, whether or not fn failed.
func (s *DB) UpdatePendingRegistration(ctx context.Context, username string, fn usecase.PendingRegistrationFunc) (err error) {
	ctx, span := s.startSpan(ctx, "UpdatePendingRegistration")
	defer func() { s.endSpan(span, err) }()

	var fnErr error
	err = s.retryOnRace(ctx, []string{"identity_pending_registrations_pkey"}, func(ctx context.Context) error {
		return s.inTx(ctx, func(tx pgx.Tx) error {
			rec, exists, err := selectPendingForUpdate(ctx, tx, username)
			if err != nil {
				return err
			}

			mut, ferr, err := runCallback(ctx, tx, func(ctx context.Context) (entity.Mutation, error) {
				return fn(ctx, &rec, exists)
			})
			if err != nil {
				return err
			}
			fnErr = ferr

			return applyPending(ctx, tx, username, mut, rec, exists)
		})
	})
	if err != nil {
		return s.mapError(err)
	}

	return fnErr
}

// UpdatePasswordResetByEmail is UpdatePasswordReset keyed by email, so a
// second start for the same email resumes the request in flight.
func (s *DB) UpdatePasswordResetByEmail(ctx context.Context, email string, fn usecase.PasswordResetFunc) (err error) {
	ctx, span := s.startSpan(ctx, "UpdatePasswordResetByEmail")
	defer func() { s.endSpan(span, err) }()

	return s.updatePasswordReset(ctx, "email", email, fn)
}

func (s *DB) UpdatePasswordReset(ctx context.Context, id string, fn usecase.PasswordResetFunc) (err error) {
	ctx, span := s.startSpan(ctx, "UpdatePasswordReset")
	defer func() { s.endSpan(span, err) }()

	return s.updatePasswordReset(ctx, "id", id, fn)
}

func (s *DB) updatePasswordReset(ctx context.Context, column, value string, fn usecase.PasswordResetFunc) error {
	var fnErr error
	err := s.retryOnRace(ctx, []string{"identity_password_resets_pkey", "identity_password_resets_email_key"}, func(ctx context.Context) error {
		return s.inTx(ctx, func(tx pgx.Tx) error {
			rec, exists, err := selectResetForUpdate(ctx, tx, column, value)
			if err != nil {
				return err
			}

			mut, ferr, err := runCallback(ctx, tx, func(ctx context.Context) (entity.Mutation, error) {
				return fn(ctx, &rec, exists)
			})
			if err != nil {
				return err
			}
			fnErr = ferr

			return applyReset(ctx, tx, mut, rec, exists)
		})
	})
	if err != nil {
		return s.mapError(err)
	}

	return fnErr
}

// runCallback runs fn inside a savepoint of tx with tx bound to its context.
// User writes made by fn are released only when fn succeeds; the record
// mutation is applied by the caller either way.
func runCallback(ctx context.Context, tx pgx.Tx, fn func(ctx context.Context) (entity.Mutation, error)) (mut entity.Mutation, fnErr, err error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return entity.MutationNone, nil, err
	}

	mut, fnErr = fn(withTx(ctx, sp))
	if fnErr != nil {
		return mut, fnErr, sp.Rollback(ctx)
	}

	return mut, nil, sp.Commit(ctx)
}

func selectPendingForUpdate(ctx context.Context, tx pgx.Tx, username string) (entity.PendingRegistration, bool, error) {
	var rec entity.PendingRegistration
	var expiresAt, windowStartAt, lockedUntil pgtype.Timestamptz

	err := tx.QueryRow(ctx,
		"select "+pendingColumns+" from identity_pending_registrations where username = $1 for update",
		username,
	).Scan(&rec.Username, &rec.FullName, &rec.Email, &rec.PasswordHash, &rec.OTPHash,
		&expiresAt, &rec.Attempts, &rec.ResendCount, &windowStartAt, &lockedUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.PendingRegistration{}, false, nil
	}
	if err != nil {
		return entity.PendingRegistration{}, false, err
	}

	rec.ExpiresAt = fromTimestamptz(expiresAt)
	rec.WindowStartAt = fromTimestamptz(windowStartAt)
	rec.LockedUntil = fromTimestamptz(lockedUntil)

	return rec, true, nil
}

func applyPending(ctx context.Context, tx pgx.Tx, key string, mut entity.Mutation, rec entity.PendingRegistration, exists bool) error {
	var err error
	switch {
	case mut == entity.MutationSave && !exists:
		_, err = tx.Exec(ctx, "insert into identity_pending_registrations ("+pendingColumns+`)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			rec.Username, rec.FullName, rec.Email, rec.PasswordHash, rec.OTPHash,
			toTimestamptz(rec.ExpiresAt), rec.Attempts, rec.ResendCount,
			toTimestamptz(rec.WindowStartAt), toTimestamptz(rec.LockedUntil),
		)

	case mut == entity.MutationSave:
		_, err = tx.Exec(ctx, `update identity_pending_registrations set
			full_name = $2, email = $3, password_hash = $4, otp_hash = $5, expires_at = $6,
			attempts = $7, resend_count = $8, window_start_at = $9, locked_until = $10, updated_at = now()
			where username = $1`,
			key, rec.FullName, rec.Email, rec.PasswordHash, rec.OTPHash,
			toTimestamptz(rec.ExpiresAt), rec.Attempts, rec.ResendCount,
			toTimestamptz(rec.WindowStartAt), toTimestamptz(rec.LockedUntil),
		)

	case mut == entity.MutationDelete && exists:
		_, err = tx.Exec(ctx, "delete from identity_pending_registrations where username = $1", key)
	}

	return err
}

func selectResetForUpdate(ctx context.Context, tx pgx.Tx, column, value string) (entity.PasswordReset, bool, error) {
	var rec entity.PasswordReset
	var expiresAt, windowStartAt, lockedUntil, lastSentAt pgtype.Timestamptz

	// column is one of two constants chosen by the caller
	err := tx.QueryRow(ctx,
		"select "+resetColumns+" from identity_password_resets where "+column+" = $1 for update",
		value,
	).Scan(&rec.ID, &rec.Email, &rec.Username, &rec.NewPasswordHash, &rec.OTPHash,
		&expiresAt, &rec.Attempts, &rec.ResendCount, &windowStartAt, &lockedUntil, &lastSentAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.PasswordReset{}, false, nil
	}
	if err != nil {
		return entity.PasswordReset{}, false, err
	}

	rec.ExpiresAt = fromTimestamptz(expiresAt)
	rec.WindowStartAt = fromTimestamptz(windowStartAt)
	rec.LockedUntil = fromTimestamptz(lockedUntil)
	rec.LastSentAt = fromTimestamptz(lastSentAt)

	return rec, true, nil
}

func applyReset(ctx context.Context, tx pgx.Tx, mut entity.Mutation, rec entity.PasswordReset, exists bool) error {
	var err error
	switch {
	case mut == entity.MutationSave && !exists:
		_, err = tx.Exec(ctx, "insert into identity_password_resets ("+resetColumns+`)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			rec.ID, rec.Email, rec.Username, rec.NewPasswordHash, rec.OTPHash,
			toTimestamptz(rec.ExpiresAt), rec.Attempts, rec.ResendCount,
			toTimestamptz(rec.WindowStartAt), toTimestamptz(rec.LockedUntil), toTimestamptz(rec.LastSentAt),
		)

	case mut == entity.MutationSave:
		_, err = tx.Exec(ctx, `update identity_password_resets set
			username = $2, new_password_hash = $3, otp_hash = $4, expires_at = $5, attempts = $6,
			resend_count = $7, window_start_at = $8, locked_until = $9, last_sent_at = $10, updated_at = now()
			where id = $1`,
			rec.ID, rec.Username, rec.NewPasswordHash, rec.OTPHash,
			toTimestamptz(rec.ExpiresAt), rec.Attempts, rec.ResendCount,
			toTimestamptz(rec.WindowStartAt), toTimestamptz(rec.LockedUntil), toTimestamptz(rec.LastSentAt),
		)

	case mut == entity.MutationDelete && exists:
		_, err = tx.Exec(ctx, "delete from identity_password_resets where id = $1", rec.ID)
	}

	return err
}

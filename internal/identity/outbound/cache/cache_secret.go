package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/minibank/internal/identity/entity"
	"github.com/shandysiswandi/minibank/internal/identity/usecase"
)

func pendingKey(username string) string { return keyPrefix + "pending:" + username }
func pendingEmailKey(email string) string { return keyPrefix + "pending_email:" + email }
func resetKey(id string) string { return keyPrefix + "reset:" + id }
func resetEmailKey(email string) string { return keyPrefix + "reset_email:" + email }

// UpdatePendingRegistration runs fn with the record for username and applies
// the returned mutation, whether or not fn failed. A save that would move the
// email onto an address another pending registration holds fails with
// goerror.ErrConflict and nothing is written.
func (s *Store) UpdatePendingRegistration(ctx context.Context, username string, fn usecase.PendingRegistrationFunc) (err error) {
	ctx, span := s.startSpan(ctx, "UpdatePendingRegistration")
	defer func() { s.endSpan(span, err) }()

	key := pendingKey(username)
	unlock, err := s.lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	var rec entity.PendingRegistration
	exists, err := getJSON(ctx, s.client, key, &rec)
	if err != nil {
		return err
	}
	oldEmail := rec.Email

	mut, fnErr := fn(ctx, &rec, exists)

	switch {
	case mut == entity.MutationSave:
		err = s.savePending(ctx, username, rec, exists, oldEmail)
	case mut == entity.MutationDelete && exists:
		err = s.client.Del(ctx, key, pendingEmailKey(oldEmail)).Err()
	}
	if err != nil {
		return err
	}

	return fnErr
}

func (s *Store) savePending(ctx context.Context, username string, rec entity.PendingRegistration, exists bool, oldEmail string) error {
	key := pendingKey(username)
	idx := pendingEmailKey(rec.Email)

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return s.watch(ctx, func(tx *redis.Tx) error {
		if err := claimIndex(ctx, tx, idx, username); err != nil {
			return err
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.cfg.Retention)
			pipe.Set(ctx, idx, username, s.cfg.Retention)
			if exists && oldEmail != rec.Email {
				pipe.Del(ctx, pendingEmailKey(oldEmail))
			}
			return nil
		})
		return err
	}, key)
}

// UpdatePasswordResetByEmail is UpdatePasswordReset keyed by email, so a
// second start for the same email resumes the request in flight.
func (s *Store) UpdatePasswordResetByEmail(ctx context.Context, email string, fn usecase.PasswordResetFunc) (err error) {
	ctx, span := s.startSpan(ctx, "UpdatePasswordResetByEmail")
	defer func() { s.endSpan(span, err) }()

	return s.updatePasswordReset(ctx, email, "", fn)
}

func (s *Store) UpdatePasswordReset(ctx context.Context, id string, fn usecase.PasswordResetFunc) (err error) {
	ctx, span := s.startSpan(ctx, "UpdatePasswordReset")
	defer func() { s.endSpan(span, err) }()

	// a request never changes its email, so the email names the lock
	var rec entity.PasswordReset
	exists, err := getJSON(ctx, s.client, resetKey(id), &rec)
	if err != nil {
		return err
	}
	if !exists {
		_, fnErr := fn(ctx, &entity.PasswordReset{}, false)
		return fnErr
	}

	return s.updatePasswordReset(ctx, rec.Email, id, fn)
}

// updatePasswordReset locks the reset for email. When wantID is set, a record
// under another id is treated as missing.
func (s *Store) updatePasswordReset(ctx context.Context, email, wantID string, fn usecase.PasswordResetFunc) error {
	idx := resetEmailKey(email)
	unlock, err := s.lock(ctx, idx)
	if err != nil {
		return err
	}
	defer unlock()

	rec, exists, err := s.loadReset(ctx, idx)
	if err != nil {
		return err
	}
	if wantID != "" && (!exists || rec.ID != wantID) {
		rec, exists = entity.PasswordReset{}, false
	}

	mut, fnErr := fn(ctx, &rec, exists)

	switch {
	case mut == entity.MutationSave && (exists || wantID == ""):
		data, mErr := json.Marshal(rec)
		if mErr != nil {
			return mErr
		}
		err = s.watch(ctx, func(tx *redis.Tx) error {
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, resetKey(rec.ID), data, s.cfg.Retention)
				pipe.Set(ctx, idx, rec.ID, s.cfg.Retention)
				return nil
			})
			return err
		}, idx)
	case mut == entity.MutationDelete && exists:
		err = s.client.Del(ctx, resetKey(rec.ID), idx).Err()
	}
	if err != nil {
		return err
	}

	return fnErr
}

func (s *Store) loadReset(ctx context.Context, idx string) (entity.PasswordReset, bool, error) {
	var rec entity.PasswordReset

	id, err := s.client.Get(ctx, idx).Result()
	if errors.Is(err, redis.Nil) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, err
	}

	exists, err := getJSON(ctx, s.client, resetKey(id), &rec)
	return rec, exists, err
}

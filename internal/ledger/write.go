package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Quantumplation/daml-trace/internal/record"
)

// Append inserts a new record version and returns its fresh handle.
// Fails with an AUTHORIZATION error if the caller is not a member of
// the record's authorizers. The write is a single atomic step.
//
// rec.Handle and rec.Seq are assigned by the store; any values supplied
// by the caller are ignored.
func (s *Store) Append(ctx context.Context, caller record.Party, rec Record) (record.Handle, error) {
	if !rec.Authorizers.Contains(caller) {
		return "", NewAuthorizationError("", caller, "caller is not an authorizer of the new record")
	}

	handle := s.handles.Generate()
	seq := s.clock.Next()

	if err := s.insertRecord(ctx, s.db, handle, seq, rec); err != nil {
		return "", err
	}
	return handle, nil
}

// Consume tombstones a record version, invalidating its handle.
// Fails with STALE_HANDLE if the handle is unknown or was already
// consumed by a concurrent transition, and with AUTHORIZATION if the
// caller is neither an actor nor an authorizer of the record.
func (s *Store) Consume(ctx context.Context, handle record.Handle, caller record.Party) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("consume: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := s.consumeInTx(ctx, tx, handle, caller); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("consume: commit: %w", err)
	}
	return nil
}

// Replace atomically consumes oldHandle and appends newRec in a single
// transaction, returning the fresh handle. Either both effects land or
// neither does - a losing racer observes STALE_HANDLE and no partial
// update.
func (s *Store) Replace(ctx context.Context, caller record.Party, oldHandle record.Handle, newRec Record) (record.Handle, error) {
	if !newRec.Authorizers.Contains(caller) {
		return "", NewAuthorizationError("", caller, "caller is not an authorizer of the new record")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("replace: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.consumeInTx(ctx, tx, oldHandle, caller); err != nil {
		return "", err
	}

	handle := s.handles.Generate()
	seq := s.clock.Next()
	if err := s.insertRecord(ctx, tx, handle, seq, newRec); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("replace: commit: %w", err)
	}
	return handle, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertRecord writes one record row.
func (s *Store) insertRecord(ctx context.Context, db execer, handle record.Handle, seq int64, rec Record) error {
	bodyJSON, err := marshalBody(rec.Body)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	authJSON, err := marshalParties(rec.Authorizers)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	viewJSON, err := marshalParties(rec.Viewers)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	actorJSON, err := marshalParties(rec.Actors)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO records
		(handle, kind, body, authorizers, viewers, actors, seq, consumed)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)
	`,
		string(handle),
		rec.Kind,
		bodyJSON,
		authJSON,
		viewJSON,
		actorJSON,
		seq,
	)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// consumeInTx performs the authorization check and the compare-and-swap
// tombstone inside an open transaction.
//
// The UPDATE's "consumed = 0" predicate is the optimistic-concurrency
// check: zero rows affected means another transition consumed the
// handle first.
func (s *Store) consumeInTx(ctx context.Context, tx *sql.Tx, handle record.Handle, caller record.Party) error {
	var actorJSON, authJSON string
	err := tx.QueryRowContext(ctx, `
		SELECT actors, authorizers FROM records WHERE handle = ?
	`, string(handle)).Scan(&actorJSON, &authJSON)
	if err == sql.ErrNoRows {
		return NewStaleHandleError(handle)
	}
	if err != nil {
		return fmt.Errorf("consume: read record: %w", err)
	}

	actors, err := unmarshalParties(actorJSON)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	authorizers, err := unmarshalParties(authJSON)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	if !actors.Contains(caller) && !authorizers.Contains(caller) {
		return NewAuthorizationError(handle, caller, "caller may not consume this record")
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE records SET consumed = 1, consumed_seq = ?
		WHERE handle = ? AND consumed = 0
	`, s.clock.Next(), string(handle))
	if err != nil {
		return fmt.Errorf("consume: tombstone: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume: rows affected: %w", err)
	}
	if affected == 0 {
		// Another transition raced ahead; caller must refetch and retry.
		return NewStaleHandleError(handle)
	}
	return nil
}

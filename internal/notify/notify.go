// Package notify implements the idempotent, identity-keyed
// notification token store and the broadcast action over finished
// contacts.
//
// Tokens are keyed by owner with a UNIQUE constraint; creation is an
// idempotent upsert (insert-or-fetch in one transaction), so any number
// of broadcasts naming the same owner yield the same token handle.
// A token is owned and readable only by its owner: lookups by anyone
// else fail with NOT_VISIBLE whether or not the token exists, so
// existence never leaks.
package notify

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Quantumplation/daml-trace/internal/ledger"
	"github.com/Quantumplation/daml-trace/internal/record"
)

// Store persists notification tokens in the ledger's database.
type Store struct {
	ledger *ledger.Store
}

// New creates a token store over the given ledger.
func New(led *ledger.Store) *Store {
	return &Store{ledger: led}
}

// Broadcast fans a health-risk signal out to every party of a finished
// contact, the informant included, performing an idempotent
// lookup-or-create per party. Returns the token handles in party
// insertion order.
//
// Fails with an AUTHORIZATION error unless the informant is a listed
// party of the contact. The token handles reveal nothing about who
// triggered the broadcast or who else received one: each recipient can
// only ever read their own token.
func (s *Store) Broadcast(ctx context.Context, contactHandle record.Handle, informant record.Party) ([]record.Handle, error) {
	rec, err := s.ledger.Resolve(ctx, contactHandle)
	if err != nil {
		return nil, fmt.Errorf("broadcast: %w", err)
	}
	if rec.Kind != record.KindContact {
		return nil, fmt.Errorf("broadcast: record %s is not a contact", contactHandle)
	}

	contact, err := record.DecodeContact(rec.Body)
	if err != nil {
		return nil, fmt.Errorf("broadcast: %w", err)
	}
	if !contact.Parties.Contains(informant) {
		return nil, ledger.NewAuthorizationError(contactHandle, informant, "informant is not a party of the contact")
	}

	handles := make([]record.Handle, 0, contact.Parties.Len())
	for _, owner := range contact.Parties.Members() {
		h, created, err := s.LookupOrCreate(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("broadcast: notify %s: %w", owner, err)
		}
		handles = append(handles, h)
		slog.Debug("token ensured",
			"owner", owner,
			"handle", h,
			"created", created,
		)
	}

	slog.Info("broadcast delivered",
		"contact", contactHandle,
		"recipients", contact.Parties.Len(),
	)
	return handles, nil
}

// LookupOrCreate ensures a token exists for owner and returns its
// handle plus whether a new token was created.
//
// Uses INSERT ... ON CONFLICT(owner) DO NOTHING followed by a select of
// the surviving row, in a single transaction: at most one live token
// per owner regardless of how many times or by whom this is triggered.
// The created token's authorizers and viewers are exactly {owner}.
func (s *Store) LookupOrCreate(ctx context.Context, owner record.Party) (record.Handle, bool, error) {
	db := s.ledger.DB()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("lookup or create token: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	candidate := s.ledger.HandleGen().Generate()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO tokens (owner, handle, seq)
		VALUES (?, ?, ?)
		ON CONFLICT(owner) DO NOTHING
	`, string(owner), string(candidate), s.ledger.Clock().Next())
	if err != nil {
		return "", false, fmt.Errorf("lookup or create token: insert: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("lookup or create token: rows affected: %w", err)
	}

	handle := candidate
	created := affected > 0
	if !created {
		// Conflict - token already exists, fetch the surviving handle.
		var existing string
		err = tx.QueryRowContext(ctx, `
			SELECT handle FROM tokens WHERE owner = ?
		`, string(owner)).Scan(&existing)
		if err != nil {
			return "", false, fmt.Errorf("lookup or create token: select existing: %w", err)
		}
		handle = record.Handle(existing)
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("lookup or create token: commit: %w", err)
	}
	return handle, created, nil
}

// Lookup returns the caller's own token handle, if any.
//
// Fails with NOT_VISIBLE whenever caller != owner - existence of
// another party's token must not leak, so this is an authorization
// failure rather than "not found". For the owner, a missing token is
// reported as ok == false, not an error.
func (s *Store) Lookup(ctx context.Context, owner, caller record.Party) (record.Handle, bool, error) {
	if caller != owner {
		return "", false, ledger.NewNotVisibleError("", caller)
	}

	var handle string
	err := s.ledger.DB().QueryRowContext(ctx, `
		SELECT handle FROM tokens WHERE owner = ?
	`, string(owner)).Scan(&handle)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup token: %w", err)
	}
	return record.Handle(handle), true, nil
}

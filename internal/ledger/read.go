package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Quantumplation/daml-trace/internal/record"
)

// Fetch retrieves the live record a handle refers to, on behalf of a
// caller. Fails with NOT_VISIBLE unless the caller is an authorizer or
// viewer of that record. Unknown and consumed handles also fail with
// NOT_VISIBLE: non-viewers must not be able to distinguish "hidden"
// from "absent".
func (s *Store) Fetch(ctx context.Context, handle record.Handle, caller record.Party) (Record, error) {
	rec, err := s.Resolve(ctx, handle)
	if IsStale(err) {
		// Unknown or consumed handle reads the same as a hidden record.
		return Record{}, NewNotVisibleError(handle, caller)
	}
	if err != nil {
		return Record{}, err
	}
	if rec.Consumed || !rec.readableBy(caller) {
		return Record{}, NewNotVisibleError(handle, caller)
	}
	return rec, nil
}

// Resolve retrieves a record version without a caller credential,
// including consumed versions. It exists for transition machinery (the
// agreement engine validates preconditions against the record before
// the authorization-checked consume) and for the audit surface; it is
// not part of the caller-facing read API.
func (s *Store) Resolve(ctx context.Context, handle record.Handle) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT handle, kind, body, authorizers, viewers, actors, seq, consumed
		FROM records
		WHERE handle = ?
	`, string(handle))

	rec, err := scanRecordRow(row)
	if err == sql.ErrNoRows {
		return Record{}, NewStaleHandleError(handle)
	}
	if err != nil {
		return Record{}, fmt.Errorf("resolve record: %w", err)
	}
	return rec, nil
}

// VisibleRecords returns the live records of a kind the caller may
// read, in deterministic order: ORDER BY seq ASC, handle ASC COLLATE
// BINARY. This is how a party discovers pending proposals naming it.
//
// Returns an empty slice (not nil) if nothing is visible.
func (s *Store) VisibleRecords(ctx context.Context, caller record.Party, kind string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT handle, kind, body, authorizers, viewers, actors, seq, consumed
		FROM records
		WHERE kind = ? AND consumed = 0
		ORDER BY seq ASC, handle COLLATE BINARY ASC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("query visible records: %w", err)
	}
	defer rows.Close()

	visible := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if rec.readableBy(caller) {
			visible = append(visible, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visible records: %w", err)
	}
	return visible, nil
}

// AllRecords returns every record version, consumed ones included, in
// deterministic order. Used by the audit log surface; callers are
// trusted operators, not parties.
func (s *Store) AllRecords(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT handle, kind, body, authorizers, viewers, actors, seq, consumed
		FROM records
		ORDER BY seq ASC, handle COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query all records: %w", err)
	}
	defer rows.Close()

	all := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate all records: %w", err)
	}
	return all, nil
}

// scanRecord reads a record from a rows cursor.
func scanRecord(rows *sql.Rows) (Record, error) {
	var handle, kind, body, auth, view, actor string
	var seq int64
	var consumed int
	if err := rows.Scan(&handle, &kind, &body, &auth, &view, &actor, &seq, &consumed); err != nil {
		return Record{}, fmt.Errorf("scan record: %w", err)
	}
	return buildRecord(handle, kind, body, auth, view, actor, seq, consumed)
}

// scanRecordRow reads a record from a single-row query.
// Passes through sql.ErrNoRows for the caller to map.
func scanRecordRow(row *sql.Row) (Record, error) {
	var handle, kind, body, auth, view, actor string
	var seq int64
	var consumed int
	if err := row.Scan(&handle, &kind, &body, &auth, &view, &actor, &seq, &consumed); err != nil {
		return Record{}, err
	}
	return buildRecord(handle, kind, body, auth, view, actor, seq, consumed)
}

func buildRecord(handle, kind, body, auth, view, actor string, seq int64, consumed int) (Record, error) {
	bodyMap, err := unmarshalBody(body)
	if err != nil {
		return Record{}, fmt.Errorf("record %s: %w", handle, err)
	}
	authorizers, err := unmarshalParties(auth)
	if err != nil {
		return Record{}, fmt.Errorf("record %s: authorizers: %w", handle, err)
	}
	viewers, err := unmarshalParties(view)
	if err != nil {
		return Record{}, fmt.Errorf("record %s: viewers: %w", handle, err)
	}
	actors, err := unmarshalParties(actor)
	if err != nil {
		return Record{}, fmt.Errorf("record %s: actors: %w", handle, err)
	}
	return Record{
		Handle:      record.Handle(handle),
		Kind:        kind,
		Body:        bodyMap,
		Authorizers: authorizers,
		Viewers:     viewers,
		Actors:      actors,
		Seq:         seq,
		Consumed:    consumed != 0,
	}, nil
}

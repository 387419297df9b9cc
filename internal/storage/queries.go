package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL used by SQLiteRepository
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const getTransactionDoc = `
SELECT doc FROM transactions
WHERE username = ? AND id = ?`

func (q *Queries) GetTransactionDoc(ctx context.Context, username, id string) (string, error) {
	var doc string
	err := q.db.QueryRowContext(ctx, getTransactionDoc, username, id).Scan(&doc)
	return doc, err
}

const listTransactionDocs = `
SELECT doc FROM transactions
WHERE username = ?1 AND (?2 = 0 OR ignored = 0)
ORDER BY
    CASE WHEN ?3 = 1 THEN date END DESC,
    CASE WHEN ?3 = 0 THEN date END ASC,
    id ASC
LIMIT ?4`

type ListTransactionDocsParams struct {
	Username       string
	ExcludeIgnored bool
	DateDesc       bool
	Limit          int64
}

func (q *Queries) ListTransactionDocs(ctx context.Context, arg ListTransactionDocsParams) ([]string, error) {
	return q.docs(ctx, listTransactionDocs, arg.Username, arg.ExcludeIgnored, arg.DateDesc, arg.Limit)
}

const listEffectiveTransactionDocs = `
SELECT doc FROM transactions
WHERE username = ?1
  AND (
    (one_off = 1 AND date >= ?2 AND date <= ?3)
    OR (one_off = 0 AND eco_start_date <= ?3 AND eco_end_date >= ?2)
  )
ORDER BY date DESC, id ASC`

type ListEffectiveTransactionDocsParams struct {
	Username  string
	StartDate string
	EndDate   string
}

func (q *Queries) ListEffectiveTransactionDocs(ctx context.Context, arg ListEffectiveTransactionDocsParams) ([]string, error) {
	return q.docs(ctx, listEffectiveTransactionDocs, arg.Username, arg.StartDate, arg.EndDate)
}

func (q *Queries) docs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		items = append(items, doc)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertTransaction = `
INSERT INTO transactions (username, id, doc)
VALUES (?, ?, json(?))
ON CONFLICT (username, id) DO NOTHING`

func (q *Queries) InsertTransaction(ctx context.Context, username, id, doc string) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertTransaction, username, id, doc)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const mergeTransactionSource = `
UPDATE transactions
SET doc = json_set(doc, '$.tinkData', json(?), '$.description', json(?)),
    updated_at = CURRENT_TIMESTAMP
WHERE username = ? AND id = ?`

type MergeTransactionSourceParams struct {
	TinkData    string
	Description string
	Username    string
	ID          string
}

func (q *Queries) MergeTransactionSource(ctx context.Context, arg MergeTransactionSourceParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, mergeTransactionSource, arg.TinkData, arg.Description, arg.Username, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const replaceTransaction = `
UPDATE transactions
SET doc = json(?), updated_at = CURRENT_TIMESTAMP
WHERE username = ? AND id = ?`

func (q *Queries) ReplaceTransaction(ctx context.Context, username, id, doc string) (int64, error) {
	res, err := q.db.ExecContext(ctx, replaceTransaction, doc, username, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getUser = `
SELECT username, email, password_hash, tink_user_id, credentials
FROM users WHERE username = ?`

type UserRow struct {
	Username     string
	Email        string
	PasswordHash string
	TinkUserID   string
	Credentials  string
}

func (q *Queries) GetUser(ctx context.Context, username string) (UserRow, error) {
	var u UserRow
	err := q.db.QueryRowContext(ctx, getUser, username).
		Scan(&u.Username, &u.Email, &u.PasswordHash, &u.TinkUserID, &u.Credentials)
	return u, err
}

const createUser = `
INSERT INTO users (username, email, password_hash, tink_user_id, credentials)
VALUES (?, ?, ?, ?, json(?))
ON CONFLICT (username) DO NOTHING`

func (q *Queries) CreateUser(ctx context.Context, u UserRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, createUser, u.Username, u.Email, u.PasswordHash, u.TinkUserID, u.Credentials)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const addUserCredential = `
UPDATE users
SET credentials = json_insert(credentials, '$[#]', ?)
WHERE username = ?`

func (q *Queries) AddUserCredential(ctx context.Context, username, credentialID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, addUserCredential, credentialID, username)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

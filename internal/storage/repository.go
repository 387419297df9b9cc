package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ecobud/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) FindByID(ctx context.Context, username, id string) (core.Transaction, error) {
	doc, err := r.queries.GetTransactionDoc(ctx, username, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, &core.NotFoundError{Username: username, ID: id}
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return core.DecodeStored([]byte(doc))
}

func (r *SQLiteRepository) FindMany(ctx context.Context, username string, opts ListOptions) ([]core.Transaction, error) {
	docs, err := r.queries.ListTransactionDocs(ctx, ListTransactionDocsParams{
		Username:       username,
		ExcludeIgnored: opts.ExcludeIgnored,
		DateDesc:       opts.SortByDateDesc,
		Limit:          int64(opts.EffectiveLimit()),
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return decodeDocs(docs)
}

func (r *SQLiteRepository) FindEffective(ctx context.Context, username string, start, end core.Date) ([]core.Transaction, error) {
	docs, err := r.queries.ListEffectiveTransactionDocs(ctx, ListEffectiveTransactionDocsParams{
		Username:  username,
		StartDate: start.String(),
		EndDate:   end.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("list effective transactions: %w", err)
	}
	return decodeDocs(docs)
}

func decodeDocs(docs []string) ([]core.Transaction, error) {
	txs := make([]core.Transaction, 0, len(docs))
	for _, doc := range docs {
		t, err := core.DecodeStored([]byte(doc))
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, t core.Transaction) error {
	doc, err := t.Encode()
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	n, err := r.queries.InsertTransaction(ctx, t.Username, t.ID, string(doc))
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", t.ID, err)
	}
	if n == 0 {
		return ErrAlreadyExists
	}

	slog.DebugContext(ctx, "Transaction inserted into SQLite",
		"username", t.Username,
		"transaction_id", t.ID,
		"date", t.Date.String())
	return nil
}

func (r *SQLiteRepository) UpsertMerged(ctx context.Context, username, id string, tink core.TinkData, desc core.Description) error {
	tinkJSON, err := json.Marshal(tink)
	if err != nil {
		return fmt.Errorf("encode tink data: %w", err)
	}
	descJSON, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("encode description: %w", err)
	}

	n, err := r.queries.MergeTransactionSource(ctx, MergeTransactionSourceParams{
		TinkData:    string(tinkJSON),
		Description: string(descJSON),
		Username:    username,
		ID:          id,
	})
	if err != nil {
		return fmt.Errorf("merge transaction %s: %w", id, err)
	}
	if n == 0 {
		return &core.NotFoundError{Username: username, ID: id}
	}
	return nil
}

func (r *SQLiteRepository) Replace(ctx context.Context, username, id string, t core.Transaction) error {
	doc, err := t.Encode()
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	n, err := r.queries.ReplaceTransaction(ctx, username, id, string(doc))
	if err != nil {
		return fmt.Errorf("replace transaction %s: %w", id, err)
	}
	if n == 0 {
		return &core.NotFoundError{Username: username, ID: id}
	}
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, username string) (core.User, error) {
	row, err := r.queries.GetUser(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %s: %w", username, err)
	}

	u := core.User{
		Username:     row.Username,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		TinkUserID:   row.TinkUserID,
	}
	if err := json.Unmarshal([]byte(row.Credentials), &u.Credentials); err != nil {
		return core.User{}, fmt.Errorf("decode credentials of %s: %w", username, err)
	}
	if u.Credentials == nil {
		u.Credentials = []string{}
	}
	return u, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	creds := u.Credentials
	if creds == nil {
		creds = []string{}
	}
	credsJSON, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	n, err := r.queries.CreateUser(ctx, UserRow{
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		TinkUserID:   u.TinkUserID,
		Credentials:  string(credsJSON),
	})
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.Username, err)
	}
	if n == 0 {
		return ErrUserAlreadyExists
	}
	return nil
}

func (r *SQLiteRepository) AddCredential(ctx context.Context, username, credentialID string) error {
	n, err := r.queries.AddUserCredential(ctx, username, credentialID)
	if err != nil {
		return fmt.Errorf("add credential for %s: %w", username, err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

var _ Store = (*SQLiteRepository)(nil)

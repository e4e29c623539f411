package infra

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/lib/pq"

	"apikey-gateway/middleware/apikey/domain"
)

const DefaultPostgresTable = "api_keys"

var tableNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresStorage guarda o registro como JSONB, com a chave como primary key.
//
// Timestamps ficam em colunas próprias e sobrescrevem os do documento na leitura.
type PostgresStorage struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

// OpenPostgres abre a conexão com o driver lib/pq e valida com ping.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}

func NewPostgresStorage(db *sql.DB, table string) (*PostgresStorage, error) {
	if table == "" {
		table = DefaultPostgresTable
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("postgres: invalid table name %q", table)
	}
	return &PostgresStorage{db: db, table: table, now: time.Now}, nil
}

func (s *PostgresStorage) EnsureSchema(ctx context.Context) error {
	q := `CREATE TABLE IF NOT EXISTS ` + s.table + ` (
	key TEXT PRIMARY KEY,
	document JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("postgres create table: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Store(ctx context.Context, key string, record *domain.APIKey) (string, error) {
	if record == nil {
		return "", domain.NewSerializationError(errNilRecord)
	}
	rec := record.Clone()
	rec.Key = key
	now := s.now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	doc, err := json.Marshal(rec)
	if err != nil {
		return "", domain.NewSerializationError(err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO `+s.table+` (key, document, created_at, updated_at) VALUES ($1, $2, $3, $4) ON CONFLICT (key) DO NOTHING`,
		key, doc, now, now,
	)
	if err != nil {
		return "", domain.NewStorageFailure(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", domain.NewStorageFailure(err)
	}
	if n == 0 {
		return "", domain.ErrKeyAlreadyExists
	}
	return key, nil
}

func (s *PostgresStorage) Retrieve(ctx context.Context, key string) (*domain.APIKey, error) {
	var (
		doc       []byte
		createdAt time.Time
		updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT document, created_at, updated_at FROM `+s.table+` WHERE key = $1`,
		key,
	).Scan(&doc, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, domain.NewStorageFailure(err)
	}

	var rec domain.APIKey
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, domain.NewSerializationError(err)
	}
	rec.Key = key
	rec.CreatedAt = createdAt
	rec.UpdatedAt = updatedAt
	return &rec, nil
}

func (s *PostgresStorage) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+s.table+` WHERE key = $1`, key)
	if err != nil {
		return false, domain.NewStorageFailure(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.NewStorageFailure(err)
	}
	return n > 0, nil
}

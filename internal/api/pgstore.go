package api

import (
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"
	_ "github.com/lib/pq"
)

// PostgresStore persists history in a summaries table so records survive
// restarts. The record body is stored as JSON; only the columns the list
// view sorts on are broken out.
type PostgresStore struct {
	conn *sql.DB
}

// NewPostgresStore connects with a lib/pq DSN and creates the schema when
// missing.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("history db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history db: ping: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS summaries (
		id VARCHAR(64) PRIMARY KEY,
		created_at BIGINT NOT NULL,
		body JSONB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS summaries_created_at ON summaries (created_at DESC);`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history db: init schema: %w", err)
	}
	return &PostgresStore{conn: conn}, nil
}

func (s *PostgresStore) Save(rec SummaryResponse) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(
		`INSERT INTO summaries (id, created_at, body) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body`,
		rec.ID, rec.CreatedAt, body,
	)
	if err != nil {
		return fmt.Errorf("history db: save: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(id string) (SummaryResponse, bool) {
	var body []byte
	err := s.conn.QueryRow(`SELECT body FROM summaries WHERE id = $1`, id).Scan(&body)
	if err != nil {
		return SummaryResponse{}, false
	}
	var rec SummaryResponse
	if err := json.Unmarshal(body, &rec); err != nil {
		return SummaryResponse{}, false
	}
	return rec, true
}

func (s *PostgresStore) List(limit int) []SummaryResponse {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.conn.Query(
		`SELECT body FROM summaries ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []SummaryResponse
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			continue
		}
		var rec SummaryResponse
		if err := json.Unmarshal(body, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (s *PostgresStore) Delete(id string) bool {
	res, err := s.conn.Exec(`DELETE FROM summaries WHERE id = $1`, id)
	if err != nil {
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *PostgresStore) Close() error {
	return s.conn.Close()
}

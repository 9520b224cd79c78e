package registry

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	id   INTEGER PRIMARY KEY,
	path TEXT NOT NULL
)`

// PostgresSink mirrors the registry into a documents table. Each Save
// replaces the table contents in one transaction.
type PostgresSink struct {
	client *postgres.Client
}

func NewPostgresSink(client *postgres.Client) *PostgresSink {
	return &PostgresSink{client: client}
}

func (s *PostgresSink) Save(ctx context.Context, reg *Registry) error {
	if _, err := s.client.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
			return fmt.Errorf("clearing documents: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (id, path) VALUES ($1, $2)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		for _, doc := range reg.docs {
			if _, err := stmt.ExecContext(ctx, doc.ID, doc.Path); err != nil {
				return fmt.Errorf("inserting document %d: %w", doc.ID, err)
			}
		}
		return nil
	})
}

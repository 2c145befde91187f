package queue

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS product_folders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    folder_path TEXT NOT NULL,
    folder_name TEXT NOT NULL,
    category_id TEXT,
    sku TEXT,
    status TEXT NOT NULL,
    images_json TEXT,
    processed_json TEXT,
    uploaded_json TEXT,
    ai_result_json TEXT,
    payload_json TEXT,
    error_message TEXT,
    final_path TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_product_folders_status ON product_folders(status);
CREATE INDEX IF NOT EXISTS idx_product_folders_sku ON product_folders(sku);
`

func (s *Store) applySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

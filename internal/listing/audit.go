package listing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const auditSuffix = "_product.json"

// AuditPath returns the audit file location for a SKU inside folder. Folders
// that never reached SKU assignment fall back to a fixed name.
func AuditPath(folder, sku string) string {
	if sku == "" {
		return filepath.Join(folder, "unassigned"+auditSuffix)
	}
	return filepath.Join(folder, sku+auditSuffix)
}

// WriteAudit persists the record as <SKU>_product.json inside the folder.
func WriteAudit(folder string, record *AuditRecord) (string, error) {
	if record == nil {
		return "", fmt.Errorf("nil audit record")
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode audit record: %w", err)
	}
	path := AuditPath(folder, record.SKU)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write audit record: %w", err)
	}
	return path, nil
}

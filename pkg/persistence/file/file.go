// Package file provides file-based persistence for local development and
// tests. Each entity is one JSON document on disk. Transition writes are
// serialized by an in-process lock instead of a database transaction, which
// is enough for the single-process scenarios this backend serves.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/easeworks/propgen/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root         string
	mu           sync.Mutex
	workflowRepo *WorkflowRepository
	webhookRepo  *WebhookRepository
	auditRepo    *AuditRepository
	approvalRepo *ApprovalRepository
	outboxRepo   *OutboxRepository
}

// NewPersistence creates a new file persistence layer rooted at the given
// directory. A "file://" prefix is stripped.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.workflowRepo = &WorkflowRepository{p: p}
	p.webhookRepo = &WebhookRepository{p: p}
	p.auditRepo = &AuditRepository{p: p}
	p.approvalRepo = &ApprovalRepository{p: p}
	p.outboxRepo = &OutboxRepository{p: p}

	return p
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) WebhookRepository() persistence.WebhookRepository {
	return p.webhookRepo
}

func (p *Persistence) AuditRepository() persistence.AuditRepository {
	return p.auditRepo
}

func (p *Persistence) ApprovalRepository() persistence.ApprovalRepository {
	return p.approvalRepo
}

func (p *Persistence) OutboxRepository() persistence.OutboxRepository {
	return p.outboxRepo
}

func (p *Persistence) dir(kind string) (string, error) {
	dir := filepath.Join(p.root, kind)

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", kind, err)
	}

	return dir, nil
}

func (p *Persistence) writeDocument(kind, id string, value any) error {
	dir, err := p.dir(kind)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s document: %w", kind, err)
	}

	err = os.WriteFile(filepath.Join(dir, id+".json"), data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write %s document: %w", kind, err)
	}

	return nil
}

// readDocument loads one document; it reports found=false for missing files.
func (p *Persistence) readDocument(kind, id string, value any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(p.root, kind, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s document: %w", kind, err)
	}

	err = json.Unmarshal(data, value)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal %s document: %w", kind, err)
	}

	return true, nil
}

func (p *Persistence) listIDs(kind string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(p.root, kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s documents: %w", kind, err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	return ids, nil
}

func (p *Persistence) deleteDocument(kind, id string) (bool, error) {
	err := os.Remove(filepath.Join(p.root, kind, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to delete %s document: %w", kind, err)
	}

	return true, nil
}

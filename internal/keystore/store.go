package keystore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radixdlt/ledger-core/internal/apdu"
	"github.com/radixdlt/ledger-core/internal/rerr"
)

// Keystore is the decrypted bootstrap material a CredentialStore.Load
// call yields: the recovered mnemonic plus the default account path
// convention callers should sign with unless told otherwise.
type Keystore struct {
	Mnemonic    string
	DefaultPath apdu.HDPath
}

// DefaultPath turns an (account, change, index) triple into the
// apdu.HDPath value C1 encodes, the one place those indices are
// assembled so every caller — the demo CLI included — derives paths
// identically.
func DefaultPath(account, change, index uint32) apdu.HDPath {
	return apdu.NewRadixPath(account, change, index)
}

// CredentialStore loads an encrypted mnemonic from disk, invoked only
// during login, outside the transaction pipeline's hot path.
type CredentialStore struct {
	path  string
	audit *AuditLogger
}

// NewCredentialStore builds a store reading the encrypted keystore
// file at path and appending audit entries to auditLogPath.
func NewCredentialStore(path, auditLogPath string) (*CredentialStore, error) {
	audit, err := NewAuditLogger(auditLogPath)
	if err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}
	return &CredentialStore{path: path, audit: audit}, nil
}

// Load reads, decrypts, and returns the keystore at the configured
// path, auditing both success and failure.
func (s *CredentialStore) Load(ctx context.Context, passphrase string) (*Keystore, error) {
	entry := AuditLogEntry{
		ID:        uuid.NewString(),
		Operation: "KEYSTORE_LOAD",
		Timestamp: time.Now(),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		entry.Status, entry.FailureReason = "FAILURE", err.Error()
		s.audit.LogOperation(entry)
		return nil, rerr.Wrap(rerr.KindLoadKeystore, fmt.Errorf("read keystore file: %w", err))
	}

	enc, err := Deserialize(data)
	if err != nil {
		entry.Status, entry.FailureReason = "FAILURE", err.Error()
		s.audit.LogOperation(entry)
		return nil, rerr.Wrap(rerr.KindLoadKeystore, err)
	}

	mnemonic, err := DecryptMnemonic(enc, passphrase)
	if err != nil {
		entry.Status, entry.FailureReason = "FAILURE", err.Error()
		s.audit.LogOperation(entry)
		return nil, rerr.Wrap(rerr.KindLoadKeystore, err)
	}

	entry.Status = "SUCCESS"
	s.audit.LogOperation(entry)

	return &Keystore{
		Mnemonic:    mnemonic,
		DefaultPath: DefaultPath(0, 0, 0),
	}, nil
}

// Save encrypts mnemonic under passphrase and writes it to the
// configured path with owner-only permissions.
func (s *CredentialStore) Save(mnemonic, passphrase string) error {
	enc, err := EncryptMnemonic(mnemonic, passphrase)
	if err != nil {
		return fmt.Errorf("keystore: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("keystore: create directory: %w", err)
	}
	return os.WriteFile(s.path, Serialize(enc), 0o600)
}

// AuditLogEntry is one append-only record of a keystore operation,
// adapted from the teacher's audit.AuditLogEntry.
type AuditLogEntry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Operation     string    `json:"operation"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failureReason,omitempty"`
}

// AuditLogger is an append-only NDJSON sink for AuditLogEntry records,
// adapted from the teacher's services/audit/logger.go.
type AuditLogger struct {
	path string
	mu   sync.Mutex
}

// NewAuditLogger creates the parent directory for path if needed and
// returns a logger that appends to it.
func NewAuditLogger(path string) (*AuditLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("keystore: create audit log directory: %w", err)
	}
	return &AuditLogger{path: path}, nil
}

// LogOperation appends entry as one NDJSON line, fsyncing before
// returning since audit records must survive a crash.
func (l *AuditLogger) LogOperation(entry AuditLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("keystore: open audit log: %w", err)
	}
	defer file.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("keystore: marshal audit entry: %w", err)
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("keystore: write audit entry: %w", err)
	}
	return file.Sync()
}

// ReadLog returns every entry recorded so far, skipping malformed
// lines rather than failing the whole read.
func (l *AuditLogger) ReadLog() ([]AuditLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("keystore: read audit log: %w", err)
	}

	var entries []AuditLogEntry
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var e AuditLogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

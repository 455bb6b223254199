package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amorize/checkout-backend/pkg/db/models"
)

// ComputeLogHash returns a SHA-256 digest over the entry's semantic fields,
// metadata included. The entry's Metadata must hold the caller-supplied blob
// without the _log_hash key; the stored copy of the hash inside the persisted
// blob can then never influence its own value. Identical fields with an
// identical timestamp always produce the same digest.
func ComputeLogHash(entry *models.AuditLogEntry) string {
	parts := []string{
		string(entry.Level),
		entry.Context,
		entry.Message,
		entry.CorrelationID,
		derefUUID(entry.UserID),
		derefUUID(entry.OrderID),
		deref(entry.PaymentID),
		deref(entry.CustomerEmail),
		deref(entry.IPAddress),
		deref(entry.UserAgent),
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(entry.Metadata),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefUUID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

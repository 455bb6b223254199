package enums

// AuditLevel grades the severity of an audit log entry. Critical entries are
// persisted synchronously; the rest are written best-effort.
type AuditLevel string

const (
	AuditLevelInfo     AuditLevel = "info"
	AuditLevelWarning  AuditLevel = "warning"
	AuditLevelError    AuditLevel = "error"
	AuditLevelCritical AuditLevel = "critical"
)

// String implements fmt.Stringer.
func (a AuditLevel) String() string {
	return string(a)
}

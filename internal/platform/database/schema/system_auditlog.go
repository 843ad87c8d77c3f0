package schema

// SystemAuditLogTable represents the 'system.auditlog' table
type SystemAuditLogTable struct {
	Table       string
	ID          string
	UserID      string
	EventType   string
	Description string
	IPAddress   string
	UserAgent   string
	Metadata    string
	CreatedAt   string
}

// SystemAuditLog is the schema definition for system.auditlog
var SystemAuditLog = SystemAuditLogTable{
	Table:       "system.auditlog",
	ID:          "id",
	UserID:      "userid",
	EventType:   "eventtype",
	Description: "description",
	IPAddress:   "ipaddress",
	UserAgent:   "useragent",
	Metadata:    "metadata",
	CreatedAt:   "createdat",
}

// Columns returns all column names in insertion order.
func (t SystemAuditLogTable) Columns() []string {
	return []string{t.ID, t.UserID, t.EventType, t.Description, t.IPAddress, t.UserAgent, t.Metadata, t.CreatedAt}
}

package schema

// UserSessionTable represents the 'users.session' table
type UserSessionTable struct {
	Table          string
	ID             string
	UserID         string
	TokenHash      string
	IPAddress      string
	UserAgent      string
	ExpiresAt      string
	IsActive       string
	LastActivityAt string
	CreatedAt      string
}

// UserSession is the schema definition for users.session
var UserSession = UserSessionTable{
	Table:          "users.session",
	ID:             "id",
	UserID:         "userid",
	TokenHash:      "tokenhash",
	IPAddress:      "ipaddress",
	UserAgent:      "useragent",
	ExpiresAt:      "expiresat",
	IsActive:       "isactive",
	LastActivityAt: "lastactivityat",
	CreatedAt:      "createdat",
}

// PublicColumns returns every column except the token hash.
func (t UserSessionTable) PublicColumns() []string {
	return []string{
		t.ID, t.UserID, t.IPAddress, t.UserAgent, t.ExpiresAt, t.IsActive, t.LastActivityAt, t.CreatedAt,
	}
}

package domain

// Session is the authenticated identity supplied by the session gateway.
// Identifier is the provider subject, Token the bearer credential and UserID
// the remote record id once the account has been created.
type Session struct {
	Identifier string `json:"identifier"`
	Token      string `json:"token"`
	UserID     string `json:"user_id,omitempty"`
}

func (s *Session) IsValid() bool {
	return s != nil && s.Identifier != "" && s.Token != ""
}

// Linked reports whether the session has been bound to a remote record.
func (s *Session) Linked() bool {
	return s.IsValid() && s.UserID != ""
}

package security

// Authorizer gates inbound messages by sender id. An empty allowlist
// admits everyone; this is the single-user default.
type Authorizer struct {
	allow map[string]bool
}

func NewAuthorizer(senderIDs []string) *Authorizer {
	allow := make(map[string]bool, len(senderIDs))
	for _, id := range senderIDs {
		allow[id] = true
	}
	return &Authorizer{allow: allow}
}

// IsAllowed reports whether the sender may use the assistant.
func (a *Authorizer) IsAllowed(senderID string) bool {
	return len(a.allow) == 0 || a.allow[senderID]
}

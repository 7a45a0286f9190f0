package session

import "gatehouse/cmd/identity"

// State is the per-request session flag.
//
// The HTTP layer creates one State per request cycle and passes it
// explicitly; the broker keeps no ambient per-user state. Once the broker
// has checked the cookie for a cycle, further Restore calls short-circuit
// without touching the store.
type State struct {
	Authenticated bool
	UserID        string
	Username      string
	DisplayName   string

	// checked records that cookie revalidation already ran this cycle.
	checked bool
}

func (s *State) set(u identity.User) {
	s.Authenticated = true
	s.UserID = u.ID
	s.Username = u.Username
	s.DisplayName = u.DisplayName
}

func (s *State) clear() {
	s.Authenticated = false
	s.UserID = ""
	s.Username = ""
	s.DisplayName = ""
}

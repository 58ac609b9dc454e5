package model

// GroupKey is the unread-counter key of the group conversation.
const GroupKey = "group"

// Scope is the conversation currently on screen: the group broadcast,
// or a one-on-one conversation with Peer.
type Scope struct {
	Peer string `json:"peer,omitempty"`
}

func Group() Scope { return Scope{} }

func Direct(peer string) Scope { return Scope{Peer: peer} }

func (s Scope) IsGroup() bool { return s.Peer == "" }

// Key is the scope's unread-counter key: GroupKey or the peer's user id.
func (s Scope) Key() string {
	if s.Peer == "" {
		return GroupKey
	}
	return s.Peer
}

func (s Scope) String() string {
	if s.Peer == "" {
		return "group"
	}
	return "direct:" + s.Peer
}

// ScopeOf returns the conversation m belongs to as seen by self.
// Messages without a recipient are group messages. A direct message belongs to the
// conversation with the other party; a message to oneself belongs to Direct(self).
func ScopeOf(m *Message, self string) Scope {
	if m.RecipientID == "" {
		return Group()
	}
	if self != "" && m.Sender.ID == self {
		return Direct(m.RecipientID)
	}
	return Direct(m.Sender.ID)
}

// Contains reports whether m belongs to s: a group scope holds exactly the messages
// without a recipient, a direct scope with peer P holds direct messages sent by or to P.
func (s Scope) Contains(m *Message) bool {
	if s.Peer == "" {
		return m.RecipientID == ""
	}
	if m.RecipientID == "" {
		return false
	}
	return m.Sender.ID == s.Peer || m.RecipientID == s.Peer
}

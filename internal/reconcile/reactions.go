package reconcile

import (
	"slices"

	"github.com/moses-Dera/TaskFlow-sub000/internal/model"
)

// addReaction returns rs with user present exactly once under emoji.
// A new emoji is appended after the existing ones.
func addReaction(rs []model.Reaction, emoji, user string) []model.Reaction {
	for i := range rs {
		if rs[i].Emoji != emoji {
			continue
		}
		if !slices.Contains(rs[i].Users, user) {
			rs[i].Users = append(rs[i].Users, user)
		}
		return rs
	}
	return append(rs, model.Reaction{Emoji: emoji, Users: []string{user}})
}

// removeReaction returns rs without user under emoji, dropping the emoji once empty.
func removeReaction(rs []model.Reaction, emoji, user string) []model.Reaction {
	for i := range rs {
		if rs[i].Emoji != emoji {
			continue
		}
		rs[i].Users = slices.DeleteFunc(rs[i].Users, func(u string) bool { return u == user })
		if len(rs[i].Users) == 0 {
			rs = slices.Delete(rs, i, i+1)
		}
		if len(rs) == 0 {
			return nil
		}
		return rs
	}
	return rs
}

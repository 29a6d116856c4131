package domain

import "fmt"

// Group is a Telegram group or supergroup the user can target. The cached
// snapshot is never authoritative; it is replaced wholesale on every refresh.
type Group struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	MemberCount int    `json:"memberCount"`
}

func (g Group) DisplayTitle() string {
	return fmt.Sprintf("%s (%d members)", g.Title, g.MemberCount)
}

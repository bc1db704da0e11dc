package model

// Chat participants.
const (
	UserSelf = "You"
	UserBot  = "TradeBot"
)

// ChatMessage is one line of the chat log.
type ChatMessage struct {
	ID   int    `json:"id"`
	User string `json:"user"`
	Text string `json:"text"`
	Time string `json:"time"` // HH:MM
}

// internal/infra/telegram/client.go
package telegram

import (
	"gopkg.in/telebot.v3"
)

// sender is the part of *telebot.Bot the adapter needs.
type sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelebotAdapter implements the domain Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot sender
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a plain-text message to a private chat. Link previews are off unless options say otherwise.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{DisableWebPagePreview: true}
	}

	recipient := &telebot.User{ID: recipientChatID} // The operator is always a direct user chat
	_, err := tba.bot.Send(recipient, text, options)
	return err
}

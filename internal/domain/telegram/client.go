package telegram

import "gopkg.in/telebot.v3"

// Client sends operator messages over Telegram.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}

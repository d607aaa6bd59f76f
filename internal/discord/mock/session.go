// Package mock provides test doubles for the Discord layer.
package mock

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// InteractionResponder records interaction responses for test assertions.
type InteractionResponder struct {
	mu sync.Mutex

	// Responses records all InteractionRespond calls.
	Responses []*discordgo.InteractionResponse

	// Err is returned by InteractionRespond when non-nil.
	Err error
}

// InteractionRespond records the response and returns the configured error.
func (m *InteractionResponder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, resp)
	return m.Err
}

// LastResponse returns the most recently recorded response, or nil.
func (m *InteractionResponder) LastResponse() *discordgo.InteractionResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Responses) == 0 {
		return nil
	}
	return m.Responses[len(m.Responses)-1]
}

// LastContent returns the text of the most recent response, or "".
func (m *InteractionResponder) LastContent() string {
	r := m.LastResponse()
	if r == nil || r.Data == nil {
		return ""
	}
	return r.Data.Content
}

// Message is one recorded ChannelMessageSend call.
type Message struct {
	ChannelID string
	Content   string
}

// MessageSender records channel messages.
type MessageSender struct {
	mu sync.Mutex

	// Messages records all ChannelMessageSend calls.
	Messages []Message

	// Err is returned by ChannelMessageSend when non-nil.
	Err error
}

// ChannelMessageSend records the message and returns a stub.
func (m *MessageSender) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, Message{ChannelID: channelID, Content: content})
	if m.Err != nil {
		return nil, m.Err
	}
	return &discordgo.Message{ID: "mock-message", ChannelID: channelID, Content: content}, nil
}

// Sent returns a copy of the recorded messages.
func (m *MessageSender) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.Messages...)
}

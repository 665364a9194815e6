package bot

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Responder answers a single Discord interaction. Command handlers and
// autocomplete handlers both respond through it, so they can be exercised
// without a gateway connection.
//
// Handlers that may take longer than Discord's three second window call
// Defer first and then deliver their result with Edit.
type Responder interface {
	Respond(response *discordgo.InteractionResponse) error
	Defer() error
	Edit(edit *discordgo.WebhookEdit) error
}

// DiscordResponder implements Responder using a live Discord session.
type DiscordResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

// NewDiscordResponder creates a new DiscordResponder.
func NewDiscordResponder(s *discordgo.Session, i *discordgo.Interaction) *DiscordResponder {
	return &DiscordResponder{
		session:     s,
		interaction: i,
	}
}

// Respond sends a response to the interaction via Discord API.
func (r *DiscordResponder) Respond(response *discordgo.InteractionResponse) error {
	return r.session.InteractionRespond(r.interaction, response)
}

// Defer acknowledges the interaction and shows a loading state to the user.
func (r *DiscordResponder) Defer() error {
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

// Edit replaces the deferred response.
func (r *DiscordResponder) Edit(edit *discordgo.WebhookEdit) error {
	_, err := r.session.InteractionResponseEdit(r.interaction, edit)
	return err
}

// MockResponder records responses instead of sending them.
type MockResponder struct {
	mu sync.Mutex

	// LastResponse is the most recent response passed to Respond.
	LastResponse *discordgo.InteractionResponse
	// Responses holds every response in the order received.
	Responses []*discordgo.InteractionResponse
	// Deferred is set once Defer was called.
	Deferred bool
	// LastEdit is the most recent edit passed to Edit.
	LastEdit *discordgo.WebhookEdit
	// Edits holds every edit in the order received.
	Edits []*discordgo.WebhookEdit
	// Err is returned from every Respond, Defer and Edit call.
	Err error
}

// Respond records the response and returns m.Err.
func (m *MockResponder) Respond(response *discordgo.InteractionResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastResponse = response
	m.Responses = append(m.Responses, response)
	return m.Err
}

// Defer records the acknowledgement and returns m.Err.
func (m *MockResponder) Defer() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Deferred = true
	return m.Err
}

// Edit records the edit and returns m.Err.
func (m *MockResponder) Edit(edit *discordgo.WebhookEdit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastEdit = edit
	m.Edits = append(m.Edits, edit)
	return m.Err
}

// Count returns how many responses were recorded.
func (m *MockResponder) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Responses)
}

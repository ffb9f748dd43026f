package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/pangaea/pkg/actor"
	"github.com/jwebster45206/pangaea/pkg/chat"
	"github.com/jwebster45206/pangaea/pkg/state"
	"github.com/jwebster45206/pangaea/pkg/textfilter"
)

// Builder assembles the messages for a conversation with one NPC.
type Builder struct {
	gs          *state.GameState
	npc         *actor.NPC
	userMessage string
	messages    []chat.ChatMessage
}

// New creates an empty dialogue builder.
func New() *Builder {
	return &Builder{
		messages: make([]chat.ChatMessage, 0),
	}
}

// WithGameState sets the state the NPC reacts to.
func (b *Builder) WithGameState(gs *state.GameState) *Builder {
	b.gs = gs
	return b
}

// WithNPC sets the persona.
func (b *Builder) WithNPC(npc actor.NPC) *Builder {
	b.npc = &npc
	return b
}

// WithUserMessage sets what the player said. It is sanitised on Build.
func (b *Builder) WithUserMessage(message string) *Builder {
	b.userMessage = message
	return b
}

// Build returns the system persona followed by the player's line.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.gs == nil {
		return nil, fmt.Errorf("gamestate is required")
	}
	if b.npc == nil {
		return nil, fmt.Errorf("npc is required")
	}

	message := textfilter.Sanitize(textfilter.TrimRunes(b.userMessage, chat.MaxMessageLength))
	if message == "" {
		return nil, fmt.Errorf("message is empty after sanitising")
	}

	b.messages = make([]chat.ChatMessage, 0, 2)
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: b.systemPrompt(),
	})
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleUser,
		Content: message,
	})
	return b.messages, nil
}

func (b *Builder) systemPrompt() string {
	role := b.npc.Role
	if role == "" {
		role = "sobrevivente"
	}

	var context strings.Builder
	context.WriteString(SituationSummary(b.gs))
	if rel, ok := b.gs.Relationship(b.npc.ID); ok {
		fmt.Fprintf(&context, " Sua afinidade com o jogador: %d/100 (%s). Última interação: %s.",
			rel.Affinity, rel.Status, rel.LastInteraction)
	}
	if pc := actor.BuildPrompt(&b.gs.PlayerCharacter); pc != "" {
		context.WriteString(" " + pc)
	}

	return fmt.Sprintf(NPCSystemPrompt, b.npc.Name, strings.ToLower(role), b.npc.Personality, b.npc.Backstory, context.String())
}

// BuildNPCMessages is a shortcut for New().WithGameState(gs).WithNPC(npc).WithUserMessage(message).Build().
func BuildNPCMessages(gs *state.GameState, npc actor.NPC, message string) ([]chat.ChatMessage, error) {
	return New().
		WithGameState(gs).
		WithNPC(npc).
		WithUserMessage(message).
		Build()
}

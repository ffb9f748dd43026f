package chat

import (
	"fmt"
	"strings"
)

const (
	ChatRoleUser   = "user"      // Player or engine-built context
	ChatRoleAgent  = "assistant" // Narrator or NPC
	ChatRoleSystem = "system"    // Instructions
)

// ChatMessage represents a single role-tagged turn sent to the narration service.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// NPCChatRequest is a message the player sends to one NPC.
type NPCChatRequest struct {
	Message string `json:"message"`
}

// NPCChatResponse carries the NPC's reply back to the client.
type NPCChatResponse struct {
	NPCID   string `json:"npcId"`
	NPCName string `json:"npcName"`
	Reply   string `json:"reply"`
}

// MaxMessageLength caps player-typed text before it reaches a prompt.
const MaxMessageLength = 1000

func (r *NPCChatRequest) Validate() error {
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		return fmt.Errorf("message cannot be empty")
	}
	if len([]rune(msg)) > MaxMessageLength {
		return fmt.Errorf("message exceeds %d characters", MaxMessageLength)
	}
	return nil
}

// SplitSystem separates system turns from the rest, joining system content
// with blank lines. Providers without a system role in the message list use it.
func SplitSystem(messages []ChatMessage) (string, []ChatMessage) {
	var systemParts []string
	var rest []ChatMessage
	for _, msg := range messages {
		if msg.Role == ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}
		rest = append(rest, msg)
	}
	return strings.Join(systemParts, "\n\n"), rest
}

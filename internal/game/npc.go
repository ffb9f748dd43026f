package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jwebster45206/pangaea/internal/services"
	"github.com/jwebster45206/pangaea/pkg/chat"
	"github.com/jwebster45206/pangaea/pkg/prompts"
)

// Replies shown in place of the NPC's line when narration fails.
const (
	ReplyMissingCredential = "Por favor, configure sua chave de API do narrador."
	ReplyInvalidCredential = "Chave API inválida. Verifique suas credenciais."
	ReplyNarrationFailed   = "Erro na comunicação com IA"
)

// TalkToNPC sends the player's message to one NPC and returns the reply.
// It does not change the game state. Narration failures become in-character
// placeholder replies, not errors.
func (e *Engine) TalkToNPC(ctx context.Context, sessionID uuid.UUID, npcID, message string) (*chat.NPCChatResponse, error) {
	req := chat.NPCChatRequest{Message: message}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	gs, err := e.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	npc, ok := e.roster.Find(npcID)
	if !ok || !gs.HasRelationship(npcID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNPC, npcID)
	}

	messages, err := prompts.BuildNPCMessages(gs, npc, message)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	callCtx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	reply, err := e.narrator.Complete(callCtx, services.NarrationRequest{
		Messages:    messages,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		e.logger.Warn("NPC narration failed", "game_id", sessionID.String(), "npc_id", npcID, "error", err)
		reply = replyForError(err)
	}

	return &chat.NPCChatResponse{
		NPCID:   npc.ID,
		NPCName: npc.Name,
		Reply:   reply,
	}, nil
}

func replyForError(err error) string {
	switch {
	case errors.Is(err, services.ErrMissingCredential):
		return ReplyMissingCredential
	case errors.Is(err, services.ErrInvalidCredential):
		return ReplyInvalidCredential
	case errors.Is(err, services.ErrEmptyReply):
		return services.NoReplyText
	default:
		return ReplyNarrationFailed
	}
}

package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwebster45206/pangaea/pkg/chat"
	"github.com/jwebster45206/pangaea/pkg/state"
	"github.com/jwebster45206/pangaea/pkg/textfilter"
)

// DailyEventSystemPrompt asks for a short survival event for the new day.
const DailyEventSystemPrompt = `Você é o narrador de um RPG de sobrevivência na Ilha Perdida. Gere um evento diário baseado no estado atual do jogo e nos relacionamentos.
O evento deve ser realista, considerando recursos, moral do grupo e relacionamentos.
Mantenha o evento em 2-3 frases, focando em sobrevivência e drama humano.
Responda apenas com o texto do evento, sem títulos ou listas.`

// MissionSystemPrompt asks for a JSON mission outcome.
const MissionSystemPrompt = `Você é o narrador de um RPG de sobrevivência na Ilha Perdida.
Gere o resultado de uma missão baseado na descrição, nos stats do jogador e na dificuldade.
Responda APENAS com um objeto JSON válido com os campos:
- success (boolean)
- description (string, 2-3 frases)
- rewards (objeto opcional com números inteiros: water, food, medicine, materials)
- consequences (string opcional)`

// NPCSystemPrompt is filled with the NPC persona and the situation.
const NPCSystemPrompt = `Você é %s, %s, um sobrevivente na Ilha Perdida. Personalidade: %s.
História: %s
Contexto da situação: %s
Responda como esse personagem responderia, mantendo a personalidade e considerando o contexto de sobrevivência.
Mantenha respostas concisas (máximo 3 frases) e realistas para a situação.
Nunca mencione que é uma IA.`

// DailyEventMessages builds the request for the event of the day after gs.Day.
func DailyEventMessages(gs *state.GameState) []chat.ChatMessage {
	user := fmt.Sprintf("Estado do jogo: %s\nRelacionamentos: %s\nHoje é o dia %d. Gere um evento interessante para hoje.",
		gs.GetStateForPrompt(), gs.GetRelationshipsForPrompt(), gs.Day+1)
	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: DailyEventSystemPrompt},
		{Role: chat.ChatRoleUser, Content: user},
	}
}

// MissionOutcomeMessages builds the request for a mission result.
func MissionOutcomeMessages(missionContext string, playerStats map[string]any, difficulty string) ([]chat.ChatMessage, error) {
	stats, err := json.Marshal(playerStats)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal player stats: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Missão: " + textfilter.Sanitize(missionContext) + "\n")
	sb.WriteString("Stats do jogador: " + string(stats) + "\n")
	sb.WriteString("Dificuldade: " + difficulty + "\n\n")
	sb.WriteString("Gere um resultado realista considerando as chances de sucesso.")

	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: MissionSystemPrompt},
		{Role: chat.ChatRoleUser, Content: sb.String()},
	}, nil
}

// SituationSummary describes the bunker for NPC dialogue.
//
// Example output:
// Dia 3. Recursos: água 10, comida 9, medicina 2, materiais 8. Moral do grupo: normal.
func SituationSummary(gs *state.GameState) string {
	r := gs.Resources
	return fmt.Sprintf("Dia %d. Recursos: água %d, comida %d, medicina %d, materiais %d. Moral do grupo: %s.",
		gs.Day, r.Water, r.Food, r.Medicine, r.Materials, gs.MoraleStatus)
}

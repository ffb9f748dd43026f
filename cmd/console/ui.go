package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/pangaea/internal/game"
	"github.com/jwebster45206/pangaea/pkg/chat"
	"github.com/jwebster45206/pangaea/pkg/mission"
	"github.com/jwebster45206/pangaea/pkg/state"
	"github.com/muesli/reflow/wordwrap"
)

const (
	NarratorName    = "Narrador"
	PlaceHolderText = "Digite um comando (/ajuda)..."
)

type entryKind int

const (
	entryInfo entryKind = iota
	entryPlayer
	entryNarration
	entryEvent
	entryError
)

// logEntry is kept unrendered so the log can be rewrapped on resize.
type logEntry struct {
	kind    entryKind
	speaker string
	text    string
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *apiClient
	gameState    *state.GameState
	missions     mission.Catalog
	logViewport  viewport.Model
	metaViewport viewport.Model
	input        textinput.Model
	spinner      spinner.Model
	entries      []logEntry
	lastText     string // most recent narration, for /copiar
	ready        bool
	width        int
	height       int
	loading      bool
	loadingLabel string

	showQuitModal bool
}

type gameStateMsg struct {
	gameState *state.GameState
	err       error
}

type dayAdvancedMsg struct {
	gameState *state.GameState
	err       error
}

type missionResultMsg struct {
	result *game.MissionResult
	err    error
}

type npcReplyMsg struct {
	response *chat.NPCChatResponse
	err      error
}

type serverEventMsg SSEEvent

var (
	logPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(1).
			PaddingRight(2).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("240"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")). // amber
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	playerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("180")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true).
			Align(lipgloss.Center)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

var moraleStyles = map[state.MoraleStatus]lipgloss.Style{
	state.MoraleHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
	state.MoraleNormal:   lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
	state.MoraleLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	state.MoraleCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
}

var moraleLabels = map[state.MoraleStatus]string{
	state.MoraleHigh:     "Alta",
	state.MoraleNormal:   "Normal",
	state.MoraleLow:      "Baixa",
	state.MoraleCritical: "Crítica",
}

func NewConsoleUI(cfg *ConsoleConfig, client *apiClient, gs *state.GameState, missions mission.Catalog) ConsoleUI {
	ti := textinput.New()
	ti.Placeholder = PlaceHolderText
	ti.Focus()
	ti.Prompt = promptStyle.Render(":: ")
	ti.CharLimit = chat.MaxMessageLength + 64
	ti.Width = 50

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = loadingStyle

	logVp := viewport.New(50, 20)
	logVp.MouseWheelEnabled = true

	m := ConsoleUI{
		config:       cfg,
		client:       client,
		gameState:    gs,
		missions:     missions,
		logViewport:  logVp,
		metaViewport: viewport.New(20, 20),
		input:        ti,
		spinner:      sp,
	}

	m.entries = append(m.entries, logEntry{
		kind: entryInfo,
		text: fmt.Sprintf("Bem-vindo ao bunker, %s. Dia %d.", gs.PlayerCharacter.Name, gs.Day),
	})
	// Replay the log of a resumed game.
	for _, ev := range gs.Events {
		m.entries = append(m.entries, eventEntry(ev))
	}
	m.entries = append(m.entries, logEntry{kind: entryInfo, text: "Digite /ajuda para ver os comandos."})
	return m
}

func eventEntry(ev state.GameEvent) logEntry {
	return logEntry{
		kind:    entryEvent,
		speaker: fmt.Sprintf("Dia %d", ev.Day),
		text:    ev.Description,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.logViewport, vpCmd = m.logViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		logWidth, metaWidth := m.panelWidths()
		m.logViewport.Width = logWidth - 3
		m.logViewport.Height = m.height - 6
		m.metaViewport.Width = metaWidth - 3
		m.metaViewport.Height = m.height - 2
		m.input.Width = logWidth - 8

		m.ready = true
		m.writeLog()
		m.metaViewport.SetContent(writeMetadata(m.gameState, m.metaViewport.Width))

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.input.Value())
			if input == "" {
				return m, nil
			}
			m.input.Reset()
			return m.handleInput(input)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.loading {
			m.writeLog()
		}
		return m, cmd

	case dayAdvancedMsg:
		m.stopLoading()
		if msg.err != nil {
			m.appendError(msg.err)
			break
		}
		prev := m.gameState
		m.setGameState(msg.gameState)
		m.appendInfo(fmt.Sprintf("Começa o dia %d.", msg.gameState.Day))
		m.appendNewEvents(prev, msg.gameState)

	case missionResultMsg:
		m.stopLoading()
		if msg.err != nil {
			m.appendError(msg.err)
			break
		}
		m.appendMissionResult(msg.result)
		m.setGameState(msg.result.State)

	case npcReplyMsg:
		m.stopLoading()
		if msg.err != nil {
			m.appendError(msg.err)
			break
		}
		m.entries = append(m.entries, logEntry{kind: entryNarration, speaker: msg.response.NPCName, text: msg.response.Reply})
		m.lastText = msg.response.Reply
		m.writeLog()

	case gameStateMsg:
		if msg.err != nil {
			m.appendError(msg.err)
			break
		}
		m.setGameState(msg.gameState)

	case serverEventMsg:
		// Another client changed this game; pull the fresh state unless a
		// request of ours is in flight and will return it anyway.
		if !m.loading {
			return m, m.refreshGameState()
		}
	}

	m.input, tiCmd = m.input.Update(msg)
	m.logViewport, vpCmd = m.logViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m ConsoleUI) panelWidths() (int, int) {
	logWidth := int(float64(m.width)*0.7) - 2
	return logWidth, m.width - logWidth - 2
}

func (m *ConsoleUI) setGameState(gs *state.GameState) {
	if gs == nil {
		return
	}
	m.gameState = gs
	m.metaViewport.SetContent(writeMetadata(gs, m.metaViewport.Width))
}

func (m *ConsoleUI) startLoading(label string) {
	m.loading = true
	m.loadingLabel = label
	m.writeLog()
}

func (m *ConsoleUI) stopLoading() {
	m.loading = false
	m.loadingLabel = ""
}

func (m *ConsoleUI) appendInfo(text string) {
	m.entries = append(m.entries, logEntry{kind: entryInfo, text: text})
	m.writeLog()
}

func (m *ConsoleUI) appendError(err error) {
	m.entries = append(m.entries, logEntry{kind: entryError, text: "Erro: " + err.Error()})
	m.writeLog()
}

func (m *ConsoleUI) appendNewEvents(prev, next *state.GameState) {
	start := 0
	if prev != nil && len(prev.Events) <= len(next.Events) {
		start = len(prev.Events)
	}
	for _, ev := range next.Events[start:] {
		m.entries = append(m.entries, eventEntry(ev))
		m.lastText = ev.Description
	}
	m.writeLog()
}

func (m *ConsoleUI) appendMissionResult(result *game.MissionResult) {
	title := result.MissionID
	if ms, ok := m.missions.Find(result.MissionID); ok {
		title = ms.Title
	}

	verdict := "Fracasso"
	if result.Outcome.Success {
		verdict = "Sucesso"
	}
	m.entries = append(m.entries, logEntry{kind: entryNarration, speaker: title + " - " + verdict, text: result.Outcome.Description})
	m.lastText = result.Outcome.Description

	if result.Outcome.Consequences != "" {
		m.entries = append(m.entries, logEntry{kind: entryEvent, speaker: "Consequência", text: result.Outcome.Consequences})
	}
	if r := result.Outcome.Rewards; r != nil && !r.IsZero() {
		m.entries = append(m.entries, logEntry{kind: entryInfo, text: "Recompensas: " + formatGains(*r)})
	}
	m.writeLog()
}

func formatGains(g state.Gains) string {
	var parts []string
	for _, p := range []struct {
		label string
		n     int
	}{{"água", g.Water}, {"comida", g.Food}, {"remédios", g.Medicine}, {"materiais", g.Materials}} {
		if p.n != 0 {
			parts = append(parts, fmt.Sprintf("%+d %s", p.n, p.label))
		}
	}
	return strings.Join(parts, ", ")
}

// writeLog renders all entries for the current viewport width.
func (m *ConsoleUI) writeLog() {
	width := m.logViewport.Width - 2
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("PANGAEA - ILHA PERDIDA") + "\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	for _, e := range m.entries {
		content.WriteString(formatEntry(e, width) + "\n\n")
	}

	if m.loading {
		content.WriteString(m.spinner.View() + " " + loadingStyle.Render(m.loadingLabel) + "\n")
	}

	m.logViewport.SetContent(content.String())
	m.logViewport.GotoBottom()
}

func formatEntry(e logEntry, width int) string {
	switch e.kind {
	case entryPlayer:
		return playerStyle.Render("Você: ") + wordwrap.String(e.text, width-6)
	case entryNarration:
		speaker := e.speaker
		if speaker == "" {
			speaker = NarratorName
		}
		return speakerStyle.Render(speaker+":") + "\n" + narratorStyle.Render(wordwrap.String(e.text, width))
	case entryEvent:
		return eventStyle.Render(wordwrap.String("["+e.speaker+"] "+e.text, width))
	case entryError:
		return errorStyle.Render(wordwrap.String(e.text, width))
	default:
		return promptStyle.Render(wordwrap.String(e.text, width))
	}
}

func writeMetadata(gs *state.GameState, width int) string {
	if gs == nil {
		return ""
	}
	if width < 10 {
		width = 10
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("BUNKER") + "\n\n")

	content.WriteString(fmt.Sprintf("Dia %d\n", gs.Day))
	style := moraleStyles[gs.MoraleStatus]
	content.WriteString("Moral: " + style.Render(moraleLabels[gs.MoraleStatus]) + "\n\n")

	content.WriteString("Recursos:\n")
	content.WriteString(fmt.Sprintf("• Água: %d\n", gs.Resources.Water))
	content.WriteString(fmt.Sprintf("• Comida: %d\n", gs.Resources.Food))
	content.WriteString(fmt.Sprintf("• Remédios: %d\n", gs.Resources.Medicine))
	content.WriteString(fmt.Sprintf("• Materiais: %d\n\n", gs.Resources.Materials))

	content.WriteString("Sobreviventes:\n")
	for _, rel := range gs.Relationships {
		line := fmt.Sprintf("• [%s] %s: %d (%s)", rel.NPCID, rel.NPCName, rel.Affinity, rel.Status)
		content.WriteString(wordwrap.String(line, width) + "\n")
	}

	content.WriteString("\nMissões concluídas:\n")
	if len(gs.CompletedMissions) == 0 {
		content.WriteString("Nenhuma\n")
	}
	for _, id := range gs.CompletedMissions {
		content.WriteString("• " + id + "\n")
	}

	content.WriteString("\n" + promptStyle.Render("Sessão: "+gs.ID.String()[:8]+"...") + "\n")
	return content.String()
}

func (m ConsoleUI) handleInput(input string) (tea.Model, tea.Cmd) {
	cmd, err := parseCommand(input)
	if err != nil {
		m.appendError(err)
		return m, nil
	}

	switch cmd.kind {
	case cmdHelp:
		m.appendInfo(helpText)

	case cmdQuit:
		m.showQuitModal = true

	case cmdState:
		return m, m.refreshGameState()

	case cmdCopy:
		if m.lastText == "" {
			m.appendInfo("Nada para copiar ainda.")
			break
		}
		if err := clipboard.WriteAll(m.lastText); err != nil {
			m.appendError(fmt.Errorf("falha ao copiar: %w", err))
			break
		}
		m.appendInfo("Último texto copiado.")

	case cmdMissions:
		m.appendInfo(missionList(m.missions))

	case cmdDay:
		m.startLoading("O dia passa...")
		return m, m.advanceDay()

	case cmdMission:
		ms, ok := findMission(m.missions, cmd.arg)
		if !ok {
			m.appendError(fmt.Errorf("missão desconhecida: %s", cmd.arg))
			break
		}
		m.appendInfo("Enviando expedição: " + ms.Title)
		m.startLoading("Aguardando o retorno da expedição...")
		return m, m.executeMission(ms.ID)

	case cmdTalk:
		rel, ok := m.gameState.Relationship(cmd.arg)
		if !ok {
			m.appendError(fmt.Errorf("sobrevivente desconhecido: %s", cmd.arg))
			break
		}
		m.entries = append(m.entries, logEntry{kind: entryPlayer, text: "(para " + rel.NPCName + ") " + cmd.message})
		m.startLoading(rel.NPCName + " está pensando...")
		return m, m.talkToNPC(rel.NPCID, cmd.message)
	}

	return m, nil
}

const helpText = `Comandos:
• /dia - Avançar para o próximo dia
• /missoes - Listar missões
• /missao N - Executar a missão N (número ou id)
• /falar ID mensagem - Conversar com um sobrevivente
• /estado - Atualizar o estado do jogo
• /copiar - Copiar o último texto narrado
• /sair - Sair (também Ctrl+C)`

func missionList(catalog mission.Catalog) string {
	var sb strings.Builder
	sb.WriteString("Missões disponíveis:")
	for i, ms := range catalog {
		sb.WriteString(fmt.Sprintf("\n%d. %s [%s, %s] %s", i+1, ms.Title, ms.Difficulty, ms.Duration, ms.Region))
	}
	return sb.String()
}

// findMission accepts a 1-based position in the catalog or a mission ID.
func findMission(catalog mission.Catalog, arg string) (mission.Mission, bool) {
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(catalog) {
		return catalog[n-1], true
	}
	return catalog.Find(arg)
}

type commandKind int

const (
	cmdHelp commandKind = iota
	cmdQuit
	cmdState
	cmdCopy
	cmdMissions
	cmdDay
	cmdMission
	cmdTalk
)

type command struct {
	kind    commandKind
	arg     string
	message string
}

var commandNames = map[string]commandKind{
	"/ajuda":   cmdHelp,
	"/help":    cmdHelp,
	"/sair":    cmdQuit,
	"/quit":    cmdQuit,
	"/estado":  cmdState,
	"/copiar":  cmdCopy,
	"/missoes": cmdMissions,
	"/missões": cmdMissions,
	"/dia":     cmdDay,
	"/missao":  cmdMission,
	"/missão":  cmdMission,
	"/falar":   cmdTalk,
}

func parseCommand(input string) (command, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return command{}, fmt.Errorf("use um comando, por exemplo /falar 1 Olá (digite /ajuda)")
	}

	kind, ok := commandNames[strings.ToLower(fields[0])]
	if !ok {
		return command{}, fmt.Errorf("comando desconhecido: %s", fields[0])
	}

	cmd := command{kind: kind}
	switch kind {
	case cmdMission:
		if len(fields) != 2 {
			return command{}, fmt.Errorf("uso: /missao N")
		}
		cmd.arg = fields[1]
	case cmdTalk:
		if len(fields) < 3 {
			return command{}, fmt.Errorf("uso: /falar ID mensagem")
		}
		cmd.arg = fields[1]
		cmd.message = strings.Join(fields[2:], " ")
	}
	return cmd, nil
}

func (m ConsoleUI) advanceDay() tea.Cmd {
	id := m.gameState.ID
	return func() tea.Msg {
		gs, err := m.client.advanceDay(id)
		return dayAdvancedMsg{gs, err}
	}
}

func (m ConsoleUI) executeMission(missionID string) tea.Cmd {
	id := m.gameState.ID
	return func() tea.Msg {
		result, err := m.client.executeMission(id, missionID)
		return missionResultMsg{result, err}
	}
}

func (m ConsoleUI) talkToNPC(npcID, message string) tea.Cmd {
	id := m.gameState.ID
	return func() tea.Msg {
		resp, err := m.client.talkToNPC(id, npcID, message)
		return npcReplyMsg{resp, err}
	}
}

func (m ConsoleUI) refreshGameState() tea.Cmd {
	id := m.gameState.ID
	return func() tea.Msg {
		gs, err := m.client.getGameState(id)
		return gameStateMsg{gs, err}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "s", "S", "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.input.Focus()
				return m, textinput.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Sair do jogo?"))
	content.WriteString("\n\n")
	content.WriteString("O progresso fica salvo no servidor.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("S para sair, N para continuar"))

	modal := modalStyle.Width(46).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if !m.ready {
		return "\n  Inicializando..."
	}

	if m.showQuitModal {
		return m.renderQuitModal()
	}

	logWidth, metaWidth := m.panelWidths()

	logPanel := logPanelStyle.Width(logWidth).Height(m.height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.logViewport.View(),
			separatorStyle.Render(strings.Repeat("─", max(logWidth-4, 1))),
			m.input.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, logPanel, metaPanel)
}

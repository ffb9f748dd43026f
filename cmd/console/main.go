package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/pangaea/pkg/actor"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
	SessionID  string
	Character  actor.PlayerCharacter
	APIKey     string
}

func main() {
	cfg := &ConsoleConfig{}
	var traits string

	flag.StringVar(&cfg.APIBaseURL, "api", getEnv("API_BASE_URL", "http://localhost:8080"), "Pangaea API base URL")
	flag.StringVar(&cfg.SessionID, "session", getEnv("PANGAEA_SESSION", ""), "session ID to resume (new session when empty)")
	flag.StringVar(&cfg.Character.Name, "name", "", "character name (required)")
	flag.StringVar(&cfg.Character.Backstory, "backstory", "", "character backstory")
	flag.StringVar(&traits, "traits", "", "comma-separated traits, e.g. \"Médico,Otimista\"")
	flag.StringVar(&cfg.APIKey, "key", os.Getenv("NARRATION_API_KEY"), "narration API key to store on the server")
	flag.DurationVar(&cfg.Timeout, "timeout", 60*time.Second, "HTTP request timeout")
	flag.Parse()

	if strings.TrimSpace(cfg.Character.Name) == "" {
		fmt.Fprintln(os.Stderr, "A character name is required: --name \"Ana\"")
		os.Exit(2)
	}
	cfg.Character.Traits = splitTraits(traits)

	client := newAPIClient(cfg.APIBaseURL, cfg.Timeout)

	if !client.testConnection() {
		fmt.Fprintf(os.Stderr, "Could not connect to API at %s. Please ensure the API is running.\nTry: docker-compose up -d\n", cfg.APIBaseURL)
		os.Exit(1)
	}

	if cfg.APIKey != "" {
		if err := client.setCredential(cfg.APIKey); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to store narration key: %v\n", err)
			os.Exit(1)
		}
	}

	gs, err := client.startGame(cfg.SessionID, cfg.Character)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start game: %v\n", err)
		os.Exit(1)
	}

	missions, err := client.listMissions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list missions: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, client, gs, missions), tea.WithAltScreen(), tea.WithMouseCellMotion())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		// Servers without Redis have no event stream; the UI works without it.
		_ = client.listenEvents(ctx, gs.ID, func(ev SSEEvent) {
			p.Send(serverEventMsg(ev))
		})
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running console: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Session %s saved. Resume with --session %s --name %q\n", gs.ID, gs.ID, gs.PlayerCharacter.Name)
}

func splitTraits(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

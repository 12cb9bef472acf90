package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"rentezy-chat/client"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL        string        `envconfig:"CHAT_SERVER_URL" default:"http://localhost:8080"`
	WebsocketURL     string        `envconfig:"CHAT_WS_URL" default:"ws://localhost:8080"`
	Username         string        `envconfig:"CHAT_USERNAME" required:"true"`
	Password         string        `envconfig:"CHAT_PASSWORD" required:"true"`
	HandshakeTimeout time.Duration `envconfig:"CHAT_HANDSHAKE_TIMEOUT" default:"5s"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"warn"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Authenticate and assemble the messaging core.
	self, err := login(ctx, config.ServerURL, config.Username, config.Password)
	if err != nil {
		return exitRuntime, err
	}
	color.Green.Printf("Logged in as %s (%s)\n", config.Username, self)

	store := client.NewRESTStore(config.ServerURL, log)
	manager := client.NewChannelManager(log, config.WebsocketURL, config.HandshakeTimeout)
	defer manager.Close()
	roster := client.NewRosterService(log, store, store)

	conversation := client.NewConversation(log, self, store, manager)
	defer conversation.Close()
	conversation.OnNewCounterpart(func(counterpart string) {
		color.Yellow.Printf("\nNew conversation started by %s\n", counterpart)
	})

	if err := renderRoster(ctx, roster, self); err != nil {
		return exitRuntime, err
	}
	color.Gray.Println("Commands: /open <user-id>, /roster, /refresh, /quit. Anything else sends.")

	// 4. Interactive loop.
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return exitOK, scanner.Err()
		}
		if ctx.Err() != nil {
			return exitOK, nil
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit":
			return exitOK, nil
		case line == "/roster":
			if err := renderRoster(ctx, roster, self); err != nil {
				color.Red.Println(err)
			}
		case line == "/refresh":
			renderConversation(conversation)
		case strings.HasPrefix(line, "/open "):
			counterpart := strings.TrimSpace(strings.TrimPrefix(line, "/open "))
			if err := conversation.Switch(ctx, counterpart); err != nil {
				color.Red.Println(err)
				continue
			}
			color.Green.Printf("Conversation with %s\n", counterpart)
			renderConversation(conversation)
		default:
			if err := conversation.Send(ctx, line); err != nil {
				color.Red.Println(err)
				continue
			}
			renderConversation(conversation)
		}
	}
}

func login(ctx context.Context, serverURL, username, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL+"/auth/login/", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not reach server at %s: %w", serverURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}
	var payload struct {
		ID    string `json:"id"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	return payload.ID, nil
}

func renderRoster(ctx context.Context, roster *client.RosterService, self string) error {
	entries, err := roster.List(ctx, self)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		color.Gray.Println("No conversations yet.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"User ID", "Name"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, entry := range entries {
		table.Append([]string{entry.ID, entry.Label})
	}
	table.Render()
	return nil
}

func renderConversation(conversation *client.Conversation) {
	for _, entry := range conversation.Messages() {
		stamp := entry.CreatedAt.Local().Format(time.TimeOnly)
		line := fmt.Sprintf("[%s] %s: %s", stamp, entry.Sender, entry.Content)
		switch entry.State {
		case client.DeliveryPending:
			color.Gray.Println(line + " (sending...)")
		case client.DeliveryFailed:
			color.Red.Println(line + " (failed)")
		default:
			fmt.Println(line)
		}
	}
}

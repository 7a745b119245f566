// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// parley-run starts one interactive agent session and connects it to
// the terminal: stdin lines become user messages, session events are
// rendered to stdout, and the session log accumulates under the
// configured data directory.
//
// Control lines:
//
//	/stop    stop the session and exit
//	/pause   suspend the backend (adapters with pause support)
//	/resume  continue a paused backend
//
// Ctrl-C stops the session gracefully before exiting.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/parleyhq/parley/lib/adapter"
	"github.com/parleyhq/parley/lib/adapter/adaptertest"
	"github.com/parleyhq/parley/lib/adapter/claudecode"
	"github.com/parleyhq/parley/lib/config"
	"github.com/parleyhq/parley/lib/event"
	"github.com/parleyhq/parley/lib/session"
	"github.com/parleyhq/parley/lib/sessionlog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		adapterID    string
		workingDir   string
		systemPrompt string
		allowedTools []string
		profileName  string
		configPath   string
		namespace    string
	)

	flagSet := pflag.NewFlagSet("parley-run", pflag.ContinueOnError)
	flagSet.StringVar(&adapterID, "adapter", "", "adapter id (default from config)")
	flagSet.StringVar(&workingDir, "cwd", "", "working directory for the backend")
	flagSet.StringVar(&systemPrompt, "system-prompt", "", "system prompt for the session")
	flagSet.StringSliceVar(&allowedTools, "allowed-tools", nil, "tools the backend may use")
	flagSet.StringVar(&profileName, "profile", "", "prompt profile name from the profiles file")
	flagSet.StringVar(&configPath, "config", "", "config file path (default: PARLEY_CONFIG)")
	flagSet.StringVar(&namespace, "namespace", "", "session namespace (default from config)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if adapterID == "" {
		adapterID = cfg.DefaultAdapter
	}
	if namespace == "" {
		namespace = cfg.Namespace
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	// A profile supplies prompt and tools; explicit flags win over it.
	if profileName != "" {
		if cfg.ProfilesFile == "" {
			return fmt.Errorf("--profile given but no profiles_file configured")
		}
		profiles, err := config.LoadProfiles(cfg.ProfilesFile)
		if err != nil {
			return err
		}
		profile, err := profiles.Get(profileName)
		if err != nil {
			return err
		}
		if systemPrompt == "" {
			systemPrompt = profile.SystemPrompt
		}
		if len(allowedTools) == 0 {
			allowedTools = profile.AllowedTools
		}
	}

	registry := adapter.NewRegistry()
	if err := registry.Register(adapter.Registration{
		ID:   claudecode.AdapterID,
		Name: "Claude Code",
		New: func() adapter.Adapter {
			return claudecode.New(claudecode.Options{Binary: cfg.ClaudeBinary, Logger: logger})
		},
	}); err != nil {
		return err
	}
	if err := registry.Register(adapter.Registration{
		ID:   adaptertest.AdapterID,
		Name: "Stub",
		New: func() adapter.Adapter {
			return adaptertest.New(adaptertest.Options{AutoResolve: true})
		},
	}); err != nil {
		return err
	}

	store, err := sessionlog.NewStore(sessionlog.Options{Root: cfg.DataDir, Logger: logger})
	if err != nil {
		return err
	}
	manager, err := session.NewManager(session.Options{
		Registry:  registry,
		Store:     store,
		Namespace: namespace,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer manager.Close(context.Background())

	sessionID, err := manager.CreateSession(ctx, session.CreateSessionOptions{
		Adapter:          adapterID,
		WorkingDirectory: workingDir,
		SystemPrompt:     systemPrompt,
		AllowedTools:     allowedTools,
	})
	if err != nil {
		return err
	}
	fmt.Printf("session %s (%s, namespace %s)\n", sessionID, adapterID, namespace)

	events, unsubscribe, err := manager.Subscribe(sessionID)
	if err != nil {
		return err
	}
	defer unsubscribe()

	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		for incoming := range events {
			render(incoming)
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nstopping session")
			return manager.StopSession(context.Background(), sessionID)

		case <-rendered:
			// Session stopped on its own (fatal backend error or
			// /stop processed elsewhere).
			return nil

		case line, open := <-lines:
			if !open {
				// stdin closed: end the session.
				return manager.StopSession(context.Background(), sessionID)
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "":
			case line == "/stop":
				return manager.StopSession(context.Background(), sessionID)
			case line == "/pause":
				if err := manager.PauseSession(ctx, sessionID); err != nil {
					fmt.Fprintf(os.Stderr, "pause: %v\n", err)
				}
			case line == "/resume":
				if err := manager.ResumeSession(ctx, sessionID); err != nil {
					fmt.Fprintf(os.Stderr, "resume: %v\n", err)
				}
			default:
				if err := manager.SendMessage(ctx, sessionID, line, nil); err != nil {
					fmt.Fprintf(os.Stderr, "send: %v\n", err)
				}
			}
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// render prints one session event in a terminal-friendly form.
func render(incoming event.Event) {
	switch incoming.Type {
	case event.TypeMessage:
		if incoming.Message != nil && !incoming.Message.Partial {
			fmt.Printf("agent> %s\n", incoming.Message.Text)
		}
	case event.TypeThinking:
		if incoming.Thinking != nil {
			fmt.Printf("think> %s\n", incoming.Thinking.Text)
		}
	case event.TypeToolUse:
		if incoming.ToolUse != nil {
			fmt.Printf("tool > %s %s\n", incoming.ToolUse.Tool, incoming.ToolUse.Input)
		}
	case event.TypeToolResult:
		if incoming.ToolResult != nil && incoming.ToolResult.IsError {
			fmt.Printf("tool ! %s\n", incoming.ToolResult.Error)
		}
	case event.TypeError:
		if incoming.Error != nil {
			fmt.Printf("error! %s\n", incoming.Error.Message)
		}
	case event.TypeStatus:
		if incoming.Status != nil {
			fmt.Printf("state: %s\n", incoming.Status.State)
		}
	case event.TypeResult:
		if incoming.Result != nil && incoming.Result.Usage != nil {
			usage := incoming.Result.Usage
			fmt.Printf("turn : %d in / %d out tokens\n", usage.InputTokens, usage.OutputTokens)
		}
	case event.TypeInterrupted:
		fmt.Println("turn : interrupted")
	}
}

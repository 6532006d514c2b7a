// Command taskforge is an agentic task-orchestration shell: it routes
// natural-language requests to specialized sub-agents backed by an LLM
// and a catalog of tools, and can expose or consume those tools over a
// JSON-RPC stdio/HTTP protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"taskforge/internal/agent"
	"taskforge/internal/app"
	"taskforge/internal/channel"
	"taskforge/internal/config"
	"taskforge/internal/contextmgr"
	"taskforge/internal/eventbus"
	"taskforge/internal/llm"
	"taskforge/internal/memory"
	"taskforge/internal/orchestrator"
	"taskforge/internal/rpc"
	"taskforge/internal/security"
	"taskforge/internal/skill"
	"taskforge/internal/subagent"
	"taskforge/internal/tool"
)

const version = "1.0.0"

const (
	keyringPlaceholder      = "[keyring]"
	secretNameLLMKey        = "llm_api_key"
	secretNameTelegramToken = "telegram_token"
)

func main() {
	message := flag.String("m", "", "process one message and exit")
	serve := flag.Bool("serve", false, "run as a JSON-RPC tool server on stdio")
	agents := flag.Bool("agents", false, "list the sub-agent catalog and exit")
	flag.Parse()

	if *serve {
		// Protocol traffic owns stdout; logs must go elsewhere.
		log.SetOutput(os.Stderr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *message, *serve, *agents); err != nil {
		log.Fatalf("taskforge: %v", err)
	}
}

func run(ctx context.Context, message string, serve, agents bool) error {
	loader, err := config.NewLoader()
	if err != nil {
		return fmt.Errorf("config loader: %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	keyStore, err := security.NewKeyStore(vaultKey(loader.DataDir()))
	if err != nil {
		log.Printf("warning: key store unavailable: %v (secrets stay in config file)", err)
	}
	if keyStore != nil {
		resolveSecrets(cfg, keyStore, loader)
	}

	bus := eventbus.New()
	registry := tool.NewRegistry()
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	if err := registerBuiltinTools(registry, cfg, loader.DataDir(), keyStore, &closers); err != nil {
		return err
	}

	rpcMgr := rpc.NewManager(registry, bus)
	if n := rpcMgr.ConnectAll(ctx, cfg.ToolServers); n > 0 {
		log.Printf("[main] imported %d tools from %d configured providers", n, len(cfg.ToolServers))
	}
	closers = append(closers, rpcMgr.DisconnectAll)

	if serve {
		server := rpc.NewServer(registry, os.Stdin, os.Stdout, "taskforge", version)
		return server.Run(ctx)
	}

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return fmt.Errorf("LLM provider: %w", err)
	}
	if cfg.FallbackLLM != nil && cfg.FallbackLLM.APIKey != "" {
		if fallback, err := llm.NewProvider(*cfg.FallbackLLM); err == nil {
			provider = llm.NewFallbackProvider(provider, fallback)
		}
	}

	engine := agent.NewEngine(provider, registry, bus, cfg.Agent.MaxTokens)
	contexts := contextmgr.NewManager(engine)
	catalog := subagent.Builtins(contexts, cfg.Agent)
	orch := orchestrator.New(provider, catalog, bus, cfg.Agent)

	if agents {
		printCatalog(catalog)
		return nil
	}

	store, err := openMemory(cfg, loader.DataDir())
	if err != nil {
		return fmt.Errorf("memory store: %w", err)
	}
	closers = append(closers, func() { store.Close() })

	chanMgr := channel.NewManager()
	auth := security.NewAuthorizer(cfg.Security.AllowedSenders)
	application := app.New(cfg.Agent, orch, store, bus, chanMgr, auth)

	if message != "" {
		answer, err := application.Process(ctx, "cli", message)
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	}

	// Interactive mode: console always, telegram when configured.
	chanMgr.Register(channel.NewConsoleChannel())
	if tg := cfg.Channels.Telegram; tg != nil && tg.Token != "" {
		chanMgr.Register(channel.NewTelegramChannel(channel.TelegramConfig{
			Token:      tg.Token,
			AllowedIDs: tg.AllowedIDs,
		}))
	}
	if err := chanMgr.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	closers = append(closers, func() { chanMgr.StopAll(context.Background()) })

	application.Start(ctx)

	<-ctx.Done()
	log.Println("[main] shutting down")
	return nil
}

func registerBuiltinTools(registry *tool.Registry, cfg *config.Config, dataDir string, keyStore *security.KeyStore, closers *[]func()) error {
	workspaceDir := cfg.Tools.WorkspaceDir
	if workspaceDir == "" {
		workspaceDir = filepath.Join(dataDir, "workspace")
	}
	if err := os.MkdirAll(workspaceDir, 0755); err != nil {
		return fmt.Errorf("workspace dir: %w", err)
	}

	registry.Register(tool.NewFilesystemTool(workspaceDir))
	registry.Register(tool.NewGitTool(workspaceDir, 60))
	registry.Register(tool.NewWebSearchTool())

	if cfg.Tools.Browser.Enabled {
		browser := tool.NewBrowserTool(cfg.Tools.Browser)
		registry.Register(browser)
		*closers = append(*closers, func() { browser.Close() })
	}

	tokens := tokenSource(keyStore)
	if cfg.Tools.Tracker.Enabled {
		registry.Register(tool.NewTrackerTool(cfg.Tools.Tracker, tokens))
	}
	if cfg.Tools.Wiki.Enabled {
		registry.Register(tool.NewWikiTool(cfg.Tools.Wiki, tokens))
	}
	if cfg.Tools.CodeHost.Enabled {
		registry.Register(tool.NewCodeHostTool(cfg.Tools.CodeHost, tokens))
	}

	skillsPath := cfg.Storage.SkillsDBPath
	if skillsPath == "" {
		skillsPath = filepath.Join(dataDir, "skills.db")
	}
	skills, err := skill.NewStore(skillsPath)
	if err != nil {
		return fmt.Errorf("skill store: %w", err)
	}
	*closers = append(*closers, func() { skills.Close() })
	for _, t := range skill.Tools(skills) {
		registry.Register(t)
	}

	return nil
}

func openMemory(cfg *config.Config, dataDir string) (memory.Store, error) {
	dbPath := cfg.Storage.HistoryDBPath
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "memory.db")
	}
	return memory.NewSQLiteStore(dbPath)
}

// tokenSource resolves service tokens from the key store.
func tokenSource(keyStore *security.KeyStore) tool.TokenSource {
	return func(name string) (string, error) {
		if keyStore == nil {
			return "", fmt.Errorf("key store unavailable, cannot resolve %s", name)
		}
		return keyStore.Get(name)
	}
}

// vaultKey derives the encrypted-vault key when a master password is
// supplied via the environment. Without one the key store is
// keyring-only.
func vaultKey(dataDir string) []byte {
	password := os.Getenv("TASKFORGE_MASTER_PASSWORD")
	if password == "" {
		return nil
	}
	salt, err := security.LoadOrCreateSalt(dataDir)
	if err != nil {
		log.Printf("warning: vault salt unavailable: %v (encrypted vault disabled)", err)
		return nil
	}
	return security.DeriveKey(password, salt)
}

// secretStore is the slice of security.KeyStore resolveSecrets needs.
type secretStore interface {
	Get(name string) (string, error)
	Set(name, value string) error
}

// resolveSecrets moves plaintext secrets from config.json into the key
// store and loads placeholder-marked secrets back into memory. After a
// migration the config file is rewritten with placeholders so plaintext
// keys do not stay on disk.
func resolveSecrets(cfg *config.Config, secrets secretStore, loader *config.Loader) {
	migrated := false
	migrate := func(name string, value *string) {
		if *value == "" || *value == keyringPlaceholder {
			return
		}
		if err := secrets.Set(name, *value); err != nil {
			log.Printf("warning: could not migrate %s to secure storage: %v", name, err)
			return
		}
		*value = keyringPlaceholder
		migrated = true
		log.Printf("[main] migrated %s to secure storage", name)
	}
	resolve := func(name string, value *string) {
		if *value != keyringPlaceholder {
			return
		}
		if val, err := secrets.Get(name); err == nil {
			*value = val
		} else {
			log.Printf("warning: could not read %s from secure storage: %v", name, err)
		}
	}

	migrate(secretNameLLMKey, &cfg.LLM.APIKey)
	if tg := cfg.Channels.Telegram; tg != nil {
		migrate(secretNameTelegramToken, &tg.Token)
	}
	if migrated {
		if err := loader.Save(cfg); err != nil {
			log.Printf("warning: could not rewrite config after secret migration: %v", err)
		}
	}

	resolve(secretNameLLMKey, &cfg.LLM.APIKey)
	if tg := cfg.Channels.Telegram; tg != nil {
		resolve(secretNameTelegramToken, &tg.Token)
	}
}

func printCatalog(catalog *subagent.Catalog) {
	fmt.Printf("sub-agents (%d):\n\n", catalog.Len())
	for _, def := range catalog.All() {
		fmt.Printf("  %-10s %s\n", def.Key, def.Description)
		if len(def.Triggers) > 0 {
			fmt.Printf("  %-10s triggers: %s\n", "", strings.Join(def.Triggers, ", "))
		}
		fmt.Println()
	}
}

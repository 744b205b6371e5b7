package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/Harshh1705/GitHub-Obsidian-MCP/internal/config"
	"github.com/Harshh1705/GitHub-Obsidian-MCP/internal/githubtool"
	"github.com/Harshh1705/GitHub-Obsidian-MCP/internal/registry"
	"github.com/Harshh1705/GitHub-Obsidian-MCP/internal/vault"
)

const version = "0.1.0"

// ServeOptions allows tests to inject configuration and a transport instead
// of the process environment and stdio.
type ServeOptions struct {
	Config    *config.Config
	Transport mcp.Transport
}

var rootCmd = &cobra.Command{
	Use:   "github-obsidian-mcp",
	Short: "MCP adapters for the GitHub API and an Obsidian vault",
}

var githubCmd = &cobra.Command{
	Use:   "github",
	Short: "Serve the GitHub adapter over stdio",
	RunE:  runGitHub,
}

var obsidianCmd = &cobra.Command{
	Use:   "obsidian",
	Short: "Serve the Obsidian vault adapter over stdio",
	RunE:  runObsidian,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(githubCmd, obsidianCmd, initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGitHub(cmd *cobra.Command, args []string) error {
	return serveGitHub(ServeOptions{})
}

func runObsidian(cmd *cobra.Command, args []string) error {
	return serveObsidian(ServeOptions{})
}

func serveGitHub(opts ServeOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	reg, err := buildGitHubRegistry(cfg)
	if err != nil {
		return err
	}
	log.Printf("[github] serving %d tools over stdio", len(reg.Names()))
	return reg.Server().Run(context.Background(), transport(opts))
}

func serveObsidian(opts ServeOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	reg, err := buildObsidianRegistry(cfg)
	if err != nil {
		return err
	}
	log.Printf("[obsidian] serving %d tools over stdio", len(reg.Names()))
	return reg.Server().Run(context.Background(), transport(opts))
}

func loadConfig(opts ServeOptions) (*config.Config, error) {
	if opts.Config != nil {
		return opts.Config, nil
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func transport(opts ServeOptions) mcp.Transport {
	if opts.Transport != nil {
		return opts.Transport
	}
	return &mcp.StdioTransport{}
}

// buildGitHubRegistry assembles the GitHub adapter. Configuration problems
// surface here, before the transport starts.
func buildGitHubRegistry(cfg *config.Config) (*registry.Registry, error) {
	if err := cfg.ValidateGitHub(); err != nil {
		return nil, err
	}
	srv, err := githubtool.New(cfg.GitHub)
	if err != nil {
		return nil, fmt.Errorf("create github client: %w", err)
	}
	reg := registry.New("github-mcp", version)
	if err := srv.Attach(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// buildObsidianRegistry assembles the vault adapter. The vault root must
// exist at startup; a missing root fails here rather than on the first call.
func buildObsidianRegistry(cfg *config.Config) (*registry.Registry, error) {
	if err := cfg.ValidateObsidian(); err != nil {
		return nil, err
	}
	v, err := vault.Open(cfg.Obsidian.VaultPath)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	reg := registry.New("obsidian-mcp", version)
	if err := vault.NewServer(v).Attach(reg); err != nil {
		return nil, err
	}
	log.Printf("[obsidian] vault root: %s", v.Root())
	return reg, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		data, _ := json.MarshalIndent(config.DefaultConfig(), "", "  ")
		if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}
	return nil
}

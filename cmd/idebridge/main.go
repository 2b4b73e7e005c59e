package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"idebridge/internal/config"
	"idebridge/internal/mcp"
	"idebridge/internal/version"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (JSON)")
	workspace := flag.String("workspace", "", "Workspace root the host serves")
	mode := flag.String("mode", "", "Capability mode: 'readonly' or 'full'")
	showVersion := flag.Bool("version", false, "Show version and exit")
	help := flag.Bool("help", false, "Show help and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("idebridge version %s\n", version.Version)
		ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
		defer cancel()
		if msg := version.NewChecker().CheckForUpdates(ctx).UpdateMessage(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(0)
	}

	if *help {
		printHelp()
		os.Exit(0)
	}

	// Stdout carries the MCP stdio transport; every diagnostic goes to
	// stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *workspace != "" {
		cfg.Workspace = *workspace
	}
	switch *mode {
	case "":
	case "readonly":
		cfg.Mode = config.ModeReadOnly
	case "full":
		cfg.Mode = config.ModeFull
	default:
		log.Fatalf("Unknown mode %q: use 'readonly' or 'full'", *mode)
	}

	go func() {
		if msg := version.NewChecker().CheckForUpdates(context.Background()).UpdateMessage(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
	}()

	server := mcp.NewServer(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server.StartEventListener(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
		server.Close()
		os.Exit(0)
	}()

	log.Printf("idebridge %s serving on stdio (mode: %s, host: %s)", version.Version, cfg.Mode, cfg.Host.BaseURL())
	if err := server.ServeStdio(); err != nil {
		server.Close()
		log.Fatalf("Server error: %v", err)
	}
	server.Close()
}

func printHelp() {
	fmt.Println(`idebridge: IDE intelligence for coding agents over MCP

A Model Context Protocol (MCP) server that fronts a running IDE host,
giving LLM agents symbol-aware code navigation, diagnostics, breakpoints
and interactive debugging through one stdio endpoint.

USAGE:
    idebridge [OPTIONS]

OPTIONS:
    -config <path>      Path to configuration file (JSON)
    -workspace <path>   Workspace root the host serves (default: .)
    -mode <mode>        Capability mode: 'readonly' or 'full' (default: full)
    -version            Show version and exit
    -help               Show this help message

CONFIGURATION:
    Settings are resolved from built-in defaults, then the JSON
    configuration file, then the environment (a .env file is honored),
    with later layers winning. Recognized environment variables:

        IDEBRIDGE_HOST_ADDR         Host address (default: 127.0.0.1)
        IDEBRIDGE_HOST_PORT         Host port (default: 8991)
        IDEBRIDGE_MODE              'readonly' or 'full'
        IDEBRIDGE_WORKSPACE         Workspace root
        IDEBRIDGE_TIMEOUT_SECONDS   Host request timeout

    Example configuration file:

    {
        "mode": "full",
        "workspace": "/home/dev/project",
        "host": {
            "addr": "127.0.0.1",
            "port": 8991,
            "timeoutSeconds": 10
        }
    }

MCP INTEGRATION:
    Add to your MCP client configuration:

    {
        "mcpServers": {
            "idebridge": {
                "command": "idebridge",
                "args": ["--mode", "full"]
            }
        }
    }

TOOLS:
    Language Intelligence:
        hover               Documentation and type info for a symbol or position
        definition          Where a symbol is defined
        references          Everywhere a symbol is used
        callHierarchy       Incoming or outgoing calls of a function
        symbolSearch        Resolve a name to workspace symbols
        workspaceSymbols    Symbol overview of the workspace
        diagnostics         Errors and warnings, per file or workspace-wide
        refactor_rename     Rename a symbol across the workspace (full mode)

    Session Inspection:
        listConfigurations  Launch configurations known to the workspace
        sessionStatus       Current debug session state
        listBreakpoints     All breakpoints with verification state
        getCallStack        Stack frames of a paused thread
        inspectVariables    Scopes and variables of a frame

    Breakpoints (full mode):
        setBreakpoint       Add a breakpoint by symbol or file:line
        toggleBreakpoint    Add or remove a breakpoint
        clearBreakpoints    Remove breakpoints, one file or all

    Session Control (full mode):
        startSession        Launch a debug session
        stopSession         Terminate the session
        restartSession      Stop and relaunch with the same configuration

    Execution Control (full mode):
        continueExecution   Resume a paused thread
        pauseExecution      Suspend a running thread
        stepOver            Step to the next line
        stepInto            Step into a call
        stepOut             Step out of the current function
        evaluateExpression  Evaluate an expression in a paused frame

Every tool takes an optional 'format' argument: 'compact' (default,
positional arrays) or 'detailed' (named objects with full ranges).`)
}

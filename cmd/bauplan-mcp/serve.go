package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/bauplan"
	"github.com/BauplanLabs/bauplan-mcp-server/internal/config"
	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
	"github.com/BauplanLabs/bauplan-mcp-server/internal/tools"
)

const (
	serverName      = "bauplan-mcp"
	protocolVersion = "2024-11-05"
)

// serverInstructions is returned to clients on initialize.
const serverInstructions = "The Bauplan MCP Server exposes operations for interacting with a Bauplan" +
	" data lakehouse. The main use cases supported fall into five major types: 1) descriptive data tasks," +
	" 2) data ingestion from S3 using the Write-Audit-Publish (WAP) pattern," +
	" 3) writing a data transformation pipeline as a Bauplan project, and running it," +
	" 4) repairing broken pipelines," +
	" 5) creating and managing data expectations and quality tests." +
	" On top of these major scenarios, you can use the full set of tools to accomplish any task you need," +
	" in some cases by combining multiple tool calls." +
	"\nIMPORTANT: if you (the model) have been configured to provide a custom header 'Bauplan', add the" +
	" header with the content in every call to the tools; otherwise, you can assume the Bauplan API token" +
	" is already set, so no need to use it." +
	" Once the nature of the task is understood, specific instructions and guidelines for each use case" +
	" can be obtained by calling the get_instructions tool with the appropriate use_case argument:" +
	" 'data' for descriptive data tasks, 'ingest' for data ingestion from S3," +
	" 'pipeline' for writing and running a data transformation pipeline," +
	" 'repair' for repairing broken pipelines," +
	" 'test' for creating and managing data expectations and quality tests," +
	" and 'sdk' for Bauplan SDK syntax reference." +
	" get_instructions will return a detailed prompt that you SHOULD consider as you plan next steps:" +
	" note that you can call get_instructions multiple times if needed." +
	"\nIMPORTANT: most operations require user's information, which can be retrieved at the beginning of" +
	" reasoning by calling the get_user_info tool."

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Bauplan MCP server",
	Long: `Run the Bauplan MCP server on the selected transport.

stdio (default) is the mode MCP clients spawn. Configure in an MCP
client's server list:

  {
    "bauplan": {
      "command": "bauplan-mcp",
      "args": ["serve", "--profile", "default"]
    }
  }

With --transport http the server listens for streamable HTTP MCP
requests on --host/--port, accepts a per-request 'Bauplan' credential
header, and answers GET /healthz with "ok".`,
	RunE: runServe,
}

func init() {
	addServeFlags(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
}

func addServeFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", config.TransportStdio, "Transport to serve on (stdio, http)")
	flags.String("host", "0.0.0.0", "Bind host for the http transport")
	flags.IntP("port", "p", 8000, "Bind port for the http transport")
	flags.String("profile", "", "Bauplan profile from ~/.bauplan/config.yml (default: active profile)")
	flags.StringP("log-level", "l", "info", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	// In stdio mode all output must go to stderr except MCP protocol
	switch cfg.LogLevel {
	case "debug":
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	case "info", "warn", "error":
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
	default:
		log.SetOutput(io.Discard)
	}

	log.Printf("bauplan-mcp starting (version=%s transport=%s)", version, cfg.Transport)

	// The provisioner reads the profile from the environment; a flag
	// value wins over whatever the process inherited.
	if cfg.Profile != "" {
		if err := os.Setenv(bauplan.EnvProfile, cfg.Profile); err != nil {
			return err
		}
	}

	reg := mcp.NewRegistry()
	if err := tools.RegisterAll(reg, tools.DefaultDeps()); err != nil {
		return err
	}
	log.Printf("Registered %d tools", len(reg.Names()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down", sig)
		cancel()
	}()

	switch cfg.Transport {
	case config.TransportHTTP:
		srv, err := mcp.NewHTTPServer(mcp.HTTPOptions{
			Addr:            cfg.Addr(),
			Registry:        reg,
			ServerName:      serverName,
			ServerVersion:   version,
			ProtocolVersion: protocolVersion,
			Instructions:    serverInstructions,
		})
		if err != nil {
			return err
		}
		log.Printf("Listening on http://%s/mcp", cfg.Addr())
		if err := srv.Serve(ctx); err != nil && err != context.Canceled {
			return err
		}
	default:
		srv, err := mcp.New(mcp.Options{
			Registry:        reg,
			Stdin:           os.Stdin,
			Stdout:          os.Stdout,
			ServerName:      serverName,
			ServerVersion:   version,
			ProtocolVersion: protocolVersion,
			Instructions:    serverInstructions,
		})
		if err != nil {
			return err
		}
		if err := srv.Run(ctx); err != nil && err != context.Canceled {
			return err
		}
	}

	log.Println("bauplan-mcp exiting")
	return nil
}

package tools

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
)

//go:embed instructions/*.md
var instructionsFS embed.FS

// useCases maps each supported use case to its embedded instruction file.
var useCases = map[string]string{
	"data":     "instructions/data.md",
	"ingest":   "instructions/ingest.md",
	"pipeline": "instructions/pipeline.md",
	"repair":   "instructions/repair.md",
	"test":     "instructions/test.md",
	"sdk":      "instructions/sdk.md",
}

// Prompt is the get_instructions response.
type Prompt struct {
	Prompt string `json:"prompt"`
}

func supportedUseCases() []string {
	names := make([]string, 0, len(useCases))
	for name := range useCases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func getInstructionsTool(deps Deps) mcp.Tool {
	_ = deps // instructions are served locally, no client needed
	return mcp.Tool{
		Name: "get_instructions",
		Description: "Get detailed instructions for a Bauplan use case, to plan further tool usage. " +
			"use_case must be one of: data (reading data and metadata, lineage), ingest (Write-Audit-Publish ingestion), " +
			"pipeline (creating and running pipelines), repair (debugging failed pipelines), " +
			"test (data expectations and quality checks), sdk (Bauplan SDK syntax reference).",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"use_case": {"type": "string", "description": "One of: data, ingest, pipeline, repair, test, sdk"}
		}, "required": ["use_case"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				UseCase string `json:"use_case"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("get instructions", err)
			}

			key := strings.ToLower(strings.TrimSpace(args.UseCase))
			path, ok := useCases[key]
			if !ok {
				return nil, failf("get instructions", fmt.Errorf(
					"invalid use_case %q, must be one of %s",
					args.UseCase, strings.Join(supportedUseCases(), ", ")))
			}

			call.Info("Serving instructions for use case %q", key)

			text, err := instructionsFS.ReadFile(path)
			if err != nil {
				return nil, failf("get instructions", err)
			}
			return Prompt{Prompt: string(text)}, nil
		},
	}
}

// Copyright 2026 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cloudwego/boardroom/council"
	"github.com/cloudwego/boardroom/internal/config"
	"github.com/cloudwego/boardroom/internal/export"
	"github.com/cloudwego/boardroom/internal/telemetry"
	"github.com/cloudwego/boardroom/internal/utils"
	"github.com/cloudwego/boardroom/llm"
	"github.com/cloudwego/boardroom/llm/log"
	"github.com/cloudwego/boardroom/llm/mcp"
	"github.com/cloudwego/boardroom/llm/tool"
	"github.com/cloudwego/boardroom/pipeline"
	"github.com/cloudwego/boardroom/server"
	"github.com/cloudwego/boardroom/store"
	"github.com/cloudwego/boardroom/version"
)

const Usage = `boardroom <Action> [Flags]
Action:
   run          execute one executive-decision debate and print the terminal report
   serve        expose the council as an HTTP service
   mcp          run as a MCP server exposing the retail read tools on stdio
   version      print the version of boardroom
`

func main() {
	flags := flag.NewFlagSet("boardroom", flag.ExitOnError)

	flagHelp := flags.Bool("h", false, "Show help message.")
	flagVerbose := flags.Bool("verbose", false, "Verbose mode.")
	flagConfig := flags.String("config", "", "Path of the YAML config file.")
	flagOutput := flags.String("o", "", "Write the full run record JSON to the specific file (run only).")
	flagInitial := flags.String("initial-state", "", "Seed the pipeline state from a JSON object (run only).")
	flagInitSchema := flags.Bool("init-schema", false, "Create missing database tables before starting.")
	flagSeedDemo := flags.Bool("seed-demo", false, "Seed demo products and market signals, implies -init-schema.")

	flags.Usage = func() {
		fmt.Fprint(os.Stderr, Usage)
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flags.PrintDefaults()
	}

	if len(os.Args) < 2 {
		flags.Usage()
		os.Exit(1)
	}
	action := strings.ToLower(os.Args[1])

	switch action {
	case "version":
		fmt.Fprintf(os.Stdout, "%s\n", version.Version)

	case "run":
		parseFlags(flags, flagHelp, flagVerbose)

		var initial map[string]any
		if *flagInitial != "" {
			if err := json.Unmarshal([]byte(*flagInitial), &initial); err != nil {
				log.Error("Failed to parse -initial-state: %v\n", err)
				os.Exit(1)
			}
		}

		ctx := context.Background()
		app := mustSetup(ctx, *flagConfig, *flagInitSchema, *flagSeedDemo)
		defer app.close()

		res, err := app.runner.Run(ctx, initial)
		if res != nil {
			if xerr := app.exporter.Export(ctx, res.Record); xerr != nil {
				log.Error("Failed to export run record: %v\n", xerr)
			}
			if *flagOutput != "" {
				writeRecord(*flagOutput, res.Record)
			}
		}
		if err != nil {
			log.Error("Run failed: %v\n", err)
			app.close()
			os.Exit(1)
		}
		fmt.Fprintln(os.Stdout, res.Output)

	case "serve":
		parseFlags(flags, flagHelp, flagVerbose)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app := mustSetup(ctx, *flagConfig, *flagInitSchema, *flagSeedDemo)
		defer app.close()

		srvCfg, err := server.ConfigFromEnv()
		if err != nil {
			log.Error("Invalid server config: %v\n", err)
			app.close()
			os.Exit(1)
		}
		if err := server.New(srvCfg, app.runner, app.exporter).Run(ctx); err != nil {
			log.Error("Server failed: %v\n", err)
			app.close()
			os.Exit(1)
		}

	case "mcp":
		parseFlags(flags, flagHelp, flagVerbose)

		ctx := context.Background()
		cfg, err := config.Load(*flagConfig)
		if err != nil {
			log.Error("Failed to load config: %v\n", err)
			os.Exit(1)
		}
		st := mustOpenStore(ctx, *flagInitSchema, *flagSeedDemo)

		svr := mcp.NewServer(mcp.ServerOptions{
			ServerName:    "boardroom",
			ServerVersion: version.Version,
			RetailReadToolsOptions: tool.RetailReadToolsOptions{
				Capability: store.Bind(st, store.ReadOnly),
				Rule:       mustRule(cfg.Council.Rule),
				RuleFile:   cfg.Council.RuleFile,
				Window:     time.Duration(cfg.Council.WindowHours) * time.Hour,
			},
		})
		if err := svr.ServeStdio(); err != nil {
			log.Error("Failed to run MCP server: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown action: %s\n", os.Args[1])
		flags.Usage()
		os.Exit(1)
	}
}

func parseFlags(flags *flag.FlagSet, flagHelp *bool, flagVerbose *bool) {
	flags.Parse(os.Args[2:])

	if flagHelp != nil && *flagHelp {
		flags.Usage()
		os.Exit(0)
	}

	if flagVerbose != nil && *flagVerbose {
		log.SetLogLevel(log.DebugLevel)
	}
}

// app bundles everything a run or serve action needs. close is safe to
// call more than once so explicit exit paths and the deferred cleanup
// can both use it.
type app struct {
	store    *store.Postgres
	runner   server.Runner
	exporter export.Exporter

	closeOnce sync.Once
}

func (a *app) close() {
	a.closeOnce.Do(func() {
		if a.store != nil {
			if err := a.store.Close(); err != nil {
				log.Error("Failed to close store: %v\n", err)
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.Shutdown(ctx)
	})
}

func mustSetup(ctx context.Context, configPath string, initSchema, seedDemo bool) *app {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Error("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid config: %v\n", err)
		os.Exit(1)
	}

	if err := telemetry.Init(ctx, "boardroom", version.Version); err != nil {
		log.Error("Failed to init telemetry: %v\n", err)
		os.Exit(1)
	}

	st := mustOpenStore(ctx, initSchema, seedDemo)

	c, err := council.New(ctx, council.Options{
		Models:         map[string]llm.ChatModel{"default": llm.NewChatModel(cfg.ModelConfig("default"))},
		WithModel:      "default",
		MaxSteps:       cfg.Council.MaxSteps,
		Store:          st,
		Rule:           mustRule(cfg.Council.Rule),
		RuleFile:       cfg.Council.RuleFile,
		Window:         time.Duration(cfg.Council.WindowHours) * time.Hour,
		EnableThinking: cfg.Council.EnableThinking,
		PromptDir:      cfg.Council.PromptDir,
	})
	if err != nil {
		log.Error("Failed to assemble council: %v\n", err)
		os.Exit(1)
	}

	return &app{
		store:    st,
		runner:   telemetry.ObserveRunner(c),
		exporter: mustExporter(ctx),
	}
}

func mustOpenStore(ctx context.Context, initSchema, seedDemo bool) *store.Postgres {
	cfg, err := store.ConfigFromEnv()
	if err != nil {
		log.Error("Invalid store config: %v\n", err)
		os.Exit(1)
	}
	st, err := store.Open(ctx, cfg)
	if err != nil {
		log.Error("Failed to connect to postgres: %v\n", err)
		os.Exit(1)
	}
	if initSchema || seedDemo {
		if err := store.EnsureSchema(ctx, st); err != nil {
			log.Error("Failed to init schema: %v\n", err)
			os.Exit(1)
		}
	}
	if seedDemo {
		if err := store.SeedDemo(ctx, st); err != nil {
			log.Error("Failed to seed demo data: %v\n", err)
			os.Exit(1)
		}
	}
	return st
}

func mustRule(text string) *store.SignalRule {
	if text == "" {
		return nil
	}
	rule, err := store.CompileSignalRule(text)
	if err != nil {
		log.Error("Invalid signal rule: %v\n", err)
		os.Exit(1)
	}
	return rule
}

func mustExporter(ctx context.Context) export.Exporter {
	cfg, err := export.ConfigFromEnv()
	if err != nil {
		log.Error("Invalid export config: %v\n", err)
		os.Exit(1)
	}
	exp, err := export.New(cfg)
	if err != nil {
		log.Error("Failed to build exporter: %v\n", err)
		os.Exit(1)
	}
	if m, ok := exp.(*export.MinIOExporter); ok {
		if err := m.EnsureBucket(ctx); err != nil {
			log.Error("Failed to ensure export bucket: %v\n", err)
			os.Exit(1)
		}
	}
	return exp
}

func writeRecord(path string, rec *pipeline.Record) {
	out, err := utils.MarshalJSONIndent(rec)
	if err != nil {
		log.Error("Failed to marshal run record: %v\n", err)
		return
	}
	if err := utils.MustWriteFile(path, []byte(out)); err != nil {
		log.Error("Failed to write run record to %s: %v\n", path, err)
	}
}

package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nugget/whatnext/internal/agent"
	"github.com/nugget/whatnext/internal/config"
	"github.com/nugget/whatnext/internal/llm"
	"github.com/nugget/whatnext/internal/mcp"
	"github.com/nugget/whatnext/internal/usage"
)

// stack holds the long-lived pieces shared by every agent a command
// creates: the model client and the usage ledger.
type stack struct {
	cfg    *config.Config
	logger *slog.Logger
	llm    llm.Client
	usage  agent.UsageRecorder
	closer io.Closer
}

// newStack builds the model client and, when enabled, opens the usage
// ledger. Close releases the ledger.
func newStack(cfg *config.Config, logger *slog.Logger) (*stack, error) {
	client, err := createLLMClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	s := &stack{cfg: cfg, logger: logger, llm: client}
	if cfg.Usage.Enabled {
		store, err := usage.NewStore(cfg.Usage.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open usage store: %w", err)
		}
		s.usage = usage.NewRecorder(store, cfg.Usage.Pricing, logger)
		s.closer = store
		logger.Debug("usage ledger enabled", "path", cfg.Usage.DBPath)
	}
	return s, nil
}

// Close releases the usage ledger, if open.
func (s *stack) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// newAgent wires a fresh agent with its own tool provider subprocess.
// The subprocess is started on the first tool call.
func (s *stack) newAgent() (*agent.Agent, error) {
	cfg := s.cfg
	gateway := mcp.NewGateway(mcp.GatewayConfig{
		Command: cfg.Tools.Command,
		Args:    cfg.Tools.Args,
		Env:     cfg.Tools.Env,
		Logger:  s.logger,
	})

	var synth agent.Synthesizer
	if cfg.Agent.Synthesizer == "llm" {
		synth = agent.NewLLMSynthesizer(s.llm, cfg.LLM.ModelFor(usage.StageResponse), s.usage, s.logger)
	} else {
		synth = agent.TemplateSynthesizer{}
	}

	a, err := agent.New(agent.Config{
		Intent:      agent.NewLLMIntentExtractor(s.llm, cfg.LLM.ModelFor(usage.StageIntent), s.usage, s.logger),
		Decider:     agent.NewLLMDecider(s.llm, cfg.LLM.ModelFor(usage.StageDecision), cfg.Agent.MaxLoops, s.usage, s.logger),
		Synthesizer: synth,
		Tools:       gateway,
		MaxLoops:    cfg.Agent.MaxLoops,
		Timeout:     time.Duration(cfg.Agent.TimeoutSec) * time.Second,
		Logger:      s.logger,
	})
	if err != nil {
		gateway.Close()
		return nil, err
	}
	return a, nil
}

// createLLMClient builds a multi-provider client. The configured
// provider serves the default model and anything unrecognized; a stage
// model override that looks like another configured provider's model
// is routed there.
func createLLMClient(cfg *config.Config, logger *slog.Logger) (llm.Client, error) {
	providers := map[string]llm.Client{
		"ollama": llm.NewOllamaClient(cfg.LLM.OllamaURL, logger),
	}
	if cfg.LLM.OpenAI.APIKey != "" || cfg.LLM.OpenAI.BaseURL != "" {
		providers["openai"] = llm.NewOpenAIClient(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.BaseURL, logger)
	}
	if cfg.LLM.Anthropic.APIKey != "" {
		providers["anthropic"] = llm.NewAnthropicClient(cfg.LLM.Anthropic.APIKey, logger)
	}

	primary, ok := providers[cfg.LLM.Provider]
	if !ok {
		return nil, fmt.Errorf("llm provider %q has no api key configured", cfg.LLM.Provider)
	}

	multi := llm.NewMultiClient(primary)
	for name, c := range providers {
		multi.AddProvider(name, c)
	}
	for _, stage := range []string{usage.StageIntent, usage.StageDecision, usage.StageResponse} {
		model := cfg.LLM.ModelFor(stage)
		if model == cfg.LLM.Model {
			continue
		}
		if p := llm.GuessProvider(model); p != "" {
			multi.AddModel(model, p)
		}
	}

	logger.Debug("LLM client initialized", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	return multi, nil
}

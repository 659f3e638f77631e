package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/agent"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/capability"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/config"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/escalation"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/history"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/hooks"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/llm"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/logging"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/store"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/tools"
)

// newModelClient builds the model client the agent talks to. It returns nil
// when no provider is usable, which makes every step answer with the
// placeholder. Tests replace it with a scripted client.
var newModelClient = func(c config.LLMConfig, log *logging.Logger) llm.Client {
	reg := llm.NewRegistryFromConfig(c, log)
	if reg.Len() == 0 {
		log.Warn().Str("provider", c.Provider).Msg("no LLM provider available, answers will be placeholders")
		return nil
	}
	return agent.NewFailoverClient(reg, c.Provider, c.Fallbacks, log)
}

// toolRuntime is the store and capability registry shared by every command
// that runs tools.
type toolRuntime struct {
	db       *store.DB
	records  *store.Records
	registry *capability.Registry
}

func openTools(c config.Config, log *logging.Logger) (*toolRuntime, error) {
	dbPath := paths.DatabasePath(c)
	db, err := store.Open(dbPath, log)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	records := store.NewRecords(db)

	reg, err := tools.NewRegistry(tools.Options{
		Config:  c.Integrations,
		Records: records,
		Log:     log,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("building tool registry: %w", err)
	}
	log.Debug().Str("db", dbPath).Int("tools", reg.Len()).Msg("tools ready")
	return &toolRuntime{db: db, records: records, registry: reg}, nil
}

func (t *toolRuntime) Close() error {
	return t.db.Close()
}

// agentRuntime adds the agent loop, hooks and escalation on top of the tools.
type agentRuntime struct {
	*toolRuntime
	hooks     *hooks.Manager
	runner    *agent.Runner
	publisher *escalation.MQTTPublisher
	log       *logging.Logger
}

func openAgent(ctx context.Context, c config.Config, log *logging.Logger) (*agentRuntime, error) {
	tr, err := openTools(c, log)
	if err != nil {
		return nil, err
	}
	rt := &agentRuntime{toolRuntime: tr, hooks: hooks.NewManager(log), log: log}

	if c.Integrations.Emergency.AutoEscalate {
		opts := escalation.Options{
			Recorder:    tr.records,
			TopicPrefix: c.Integrations.MQTT.TopicPrefix,
			Log:         log,
		}
		if c.Integrations.MQTT.Broker != "" {
			pub := escalation.NewMQTTPublisher(c.Integrations.MQTT, log)
			if err := pub.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("mqtt publisher unavailable, escalations are recorded only")
			} else {
				rt.publisher = pub
				opts.Publisher = pub
			}
		}
		escalation.New(opts).Attach(rt.hooks)
	}

	ac := c.Agent
	window := history.DefaultWindow()
	if ac.MaxWindowSize > 0 {
		window.MaxWindowSize = ac.MaxWindowSize
	}
	if ac.PreserveRecent > 0 {
		window.PreserveRecent = ac.PreserveRecent
	}
	if ac.MaxRetainedSystem > 0 {
		window.MaxRetainedSystem = ac.MaxRetainedSystem
	}
	if len(ac.RetentionKeywords) > 0 {
		window.Keywords = ac.RetentionKeywords
	}

	completer := agent.NewModelCompleter(newModelClient(c.LLM, log), c.LLM.Temperature, log)
	reasoner := agent.NewReasoner(agent.ReasonerConfig{
		AssistantName: ac.AssistantName,
		BaseTokens:    ac.BaseTokens,
		ToolTokens:    ac.ToolTokens,
	}, completer, tr.registry, log)

	loop := agent.NewLoop(agent.LoopConfig{
		MaxIterations: ac.MaxIterations,
		Registry:      tr.registry,
		Reasoner:      reasoner,
		Compactor:     history.NewCompactor(window, log),
		Hooks:         rt.hooks,
	}, log)

	rt.runner = agent.NewRunner(agent.RunnerConfig{
		DefaultUserID: ac.DefaultUserID,
		TurnTimeout:   time.Duration(ac.TurnTimeoutSeconds) * time.Second,
	}, loop, store.NewCheckpointStore(tr.db), tr.records, log)

	return rt, nil
}

func (rt *agentRuntime) Close() error {
	// In-flight escalations still need the database and the broker.
	wctx, wcancel := context.WithTimeout(context.Background(), escalation.DefaultTimeout)
	defer wcancel()
	if err := rt.hooks.Wait(wctx); err != nil {
		rt.log.Warn().Err(err).Msg("abandoning in-flight escalations")
	}

	if rt.publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.publisher.Stop(ctx); err != nil {
			rt.log.Warn().Err(err).Msg("stopping mqtt publisher")
		}
	}
	return rt.toolRuntime.Close()
}

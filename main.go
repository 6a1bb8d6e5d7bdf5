package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	bookingx "github.com/looktown/booking-assistant/agent/agents/booking"
	"github.com/looktown/booking-assistant/agent/agents/stages"
	analyzerx "github.com/looktown/booking-assistant/agent/analyzer"
	contractx "github.com/looktown/booking-assistant/agent/contract"
	llmx "github.com/looktown/booking-assistant/agent/llm"
	promptx "github.com/looktown/booking-assistant/agent/prompt"
	statex "github.com/looktown/booking-assistant/agent/state"
	toolx "github.com/looktown/booking-assistant/agent/tool"
	configx "github.com/looktown/booking-assistant/pkg/config"
	_ "github.com/looktown/booking-assistant/pkg/logger/autoload"
	openrouterx "github.com/looktown/booking-assistant/pkg/openrouter"
	qstashx "github.com/looktown/booking-assistant/pkg/qstash"
)

type AppConfig struct {
	StoreBackend  string `envconfig:"STORE_BACKEND" default:"upstash"` // upstash | postgres
	AlertsEnabled bool   `envconfig:"ALERTS_ENABLED" default:"false"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("")

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid llm config")
	}

	analyzerCfg := llmCfg.OpenRouterFor(contractx.StageTypeAnalyzer)
	sdkClient := openrouterx.NewClient(analyzerCfg)
	extractor := analyzerx.NewExtractor(llmx.NewSDKCompleter(
		sdkClient, analyzerCfg.Model, analyzerCfg.Temperature, *analyzerCfg.MaxCompletionToken,
	))

	serviceCompleter := mustStageCompleter(ctx, *llmCfg, contractx.StageTypeServiceManager)
	slotCompleter := mustStageCompleter(ctx, *llmCfg, contractx.StageTypeSlotManager)

	crmCfg := configx.MustNew[toolx.Config]("")
	tools := toolx.NewCRMClient(*crmCfg)

	registry, err := stages.NewRegistry(stages.Deps{
		ServiceCompleter: serviceCompleter,
		SlotCompleter:    slotCompleter,
		Tools:            tools,
		Prompts:          promptx.LoadPromptSet(),
		Now:              time.Now,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build stage registry")
	}

	store := mustStore(ctx, appCfg.StoreBackend)

	engine, err := bookingx.New(store, extractor, registry)
	if err != nil {
		log.Fatal().Err(err).Msg("build booking engine")
	}

	var alerts *qstashx.Client
	if appCfg.AlertsEnabled {
		alerts = qstashx.MustNew(*configx.MustNew[qstashx.Config]("QSTASH"))
	}

	runREPL(ctx, engine, alerts)
}

func mustStageCompleter(ctx context.Context, cfg llmx.Config, stage contractx.StageType) contractx.Completer {
	stageCfg := cfg.OpenRouterFor(stage)
	chatModel, err := stageCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("stage", string(stage)).Msg("create stage model")
	}
	return llmx.NewCompleter(chatModel)
}

func mustStore(ctx context.Context, backend string) statex.Store {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "postgres":
		store, err := statex.NewPostgresStore(*configx.MustNew[statex.PostgresConfig]("POSTGRES"))
		if err != nil {
			log.Fatal().Err(err).Msg("open postgres session store")
		}
		if err := store.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("migrate postgres session store")
		}
		return store
	default:
		store, err := statex.NewUpstashRedisStore(*configx.MustNew[statex.UpstashRedisConfig]("UPSTASH"))
		if err != nil {
			log.Fatal().Err(err).Msg("open upstash session store")
		}
		return store
	}
}

func runREPL(ctx context.Context, engine *bookingx.Engine, alerts *qstashx.Client) {
	sessionID := uuid.NewString()
	fmt.Println("LookTown booking assistant. Пустая строка или exit для выхода.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" || text == "exit" {
			return
		}

		result, err := engine.HandleMessage(ctx, sessionID, sessionID, text)
		if err != nil {
			log.Error().Err(err).Msg("handle message")
			continue
		}
		fmt.Println(result.Reply)

		if result.ManagerAlert != "" && alerts != nil {
			if err := alerts.PublishAlert(ctx, qstashx.Alert{
				ChatID:  sessionID,
				Message: result.ManagerAlert,
			}); err != nil {
				log.Warn().Err(err).Msg("publish manager alert")
			}
		}
	}
}

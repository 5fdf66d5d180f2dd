package bootstrap

import (
	"context"
	"fmt"

	"github.com/Shiroi-Max/koala-route/internal/config"
	"github.com/Shiroi-Max/koala-route/internal/core/ports"
	"github.com/Shiroi-Max/koala-route/internal/core/usecase"
	openaiclient "github.com/Shiroi-Max/koala-route/internal/infrastructure/llm/openai"
	"github.com/Shiroi-Max/koala-route/internal/infrastructure/queue/nats"
	"github.com/Shiroi-Max/koala-route/internal/infrastructure/repository/postgres"
	"github.com/Shiroi-Max/koala-route/internal/infrastructure/resilience"
	"github.com/Shiroi-Max/koala-route/internal/infrastructure/scenario"
	"github.com/Shiroi-Max/koala-route/internal/infrastructure/search/azsearch"
	"github.com/Shiroi-Max/koala-route/internal/infrastructure/storage/localfs"
	"github.com/Shiroi-Max/koala-route/internal/prompt"
)

// App wires the configured collaborators and use cases for both binaries.
type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Registry  ports.GuideRegistry
	Prompts   ports.PromptCatalog
	Scenarios ports.ScenarioSource

	Flow      *usecase.Flow
	IngestUC  *usecase.IngestGuideUseCase
	IndexUC   *usecase.IndexGuideUseCase
	DeleteUC  *usecase.DeleteSectionsUseCase
	Evaluator *usecase.Evaluator

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	registry := postgres.NewGuideRepository(db)
	if err := registry.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	llm := openaiclient.New(openaiclient.Config{
		APIKey:       cfg.OpenAIAPIKey,
		BaseURL:      cfg.OpenAIBaseURL,
		APIType:      cfg.OpenAIAPIType,
		GenModel:     cfg.OpenAIDeployment,
		EmbedModel:   cfg.OpenAIEmbedDeployment,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxCompletionTokens,
		LLMRateRPS:   cfg.LLMRateLimitRPS,
		EmbedRateRPS: cfg.EmbedRateLimitRPS,
	}, executor)

	searcher := azsearch.NewWithOptions(
		cfg.SearchEndpoint,
		cfg.SearchIndex,
		cfg.SearchAPIKey,
		llm,
		azsearch.Options{ResilienceExecutor: executor},
	)

	prompts, err := prompt.LoadCatalog(cfg.PromptsPath)
	if err != nil {
		return nil, fmt.Errorf("load prompt catalog: %w", err)
	}

	scenarios, err := scenario.Load(cfg.ScenariosPath)
	if err != nil {
		return nil, fmt.Errorf("load scenario catalog: %w", err)
	}

	categories, err := cfg.SectionCategories()
	if err != nil {
		return nil, fmt.Errorf("load section categories: %w", err)
	}

	extractor, err := newExtractor(cfg)
	if err != nil {
		return nil, err
	}

	filter := usecase.NewRelevanceFilter(llm, usecase.MatchPolicy(cfg.InterestMatchPolicy))
	retriever := usecase.NewRetrieveUseCase(
		searcher,
		filter,
		extractor,
		prompts,
		cfg.BasePromptName,
		cfg.RetrieverK,
		cfg.SimilarityThreshold,
	)
	controller := usecase.NewController(prompts, cfg.FallbackPromptName, cfg.ResponseLanguage, cfg.MaxPromptTokens)
	generator := usecase.NewGenerateUseCase(llm)
	flow := usecase.NewFlow(controller, retriever, generator)

	evaluator := usecase.NewEvaluator(llm, cfg.KEvalThreshold, usecase.CoherenceMode(cfg.CoherenceMode))

	ingestUC := usecase.NewIngestGuideUseCase(registry, storage, queue)
	indexUC := usecase.NewIndexGuideUseCase(registry, storage, llm, searcher, categories)
	deleteUC := usecase.NewDeleteSectionsUseCase(searcher)

	return &App{
		Config: cfg,

		Queue:     queue,
		Registry:  registry,
		Prompts:   prompts,
		Scenarios: scenarios,

		Flow:      flow,
		IngestUC:  ingestUC,
		IndexUC:   indexUC,
		DeleteUC:  deleteUC,
		Evaluator: evaluator,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func newExtractor(cfg config.Config) (usecase.InterestExtractor, error) {
	switch cfg.InterestExtractionMode {
	case "labeled":
		extractor, err := usecase.NewLabeledExtractor(cfg.InterestLabel)
		if err != nil {
			return nil, fmt.Errorf("init labeled extractor: %w", err)
		}
		return extractor, nil
	default:
		return usecase.NewTemplateExtractor(cfg.InterestPlaceholder), nil
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	assistantx "github.com/tanpawarit/Product-Shopping-Assistant/agent/agents/assistant"
	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
	llmx "github.com/tanpawarit/Product-Shopping-Assistant/agent/llm"
	memoryx "github.com/tanpawarit/Product-Shopping-Assistant/agent/memory"
	productx "github.com/tanpawarit/Product-Shopping-Assistant/agent/product"
	promptx "github.com/tanpawarit/Product-Shopping-Assistant/agent/prompt"
	toolx "github.com/tanpawarit/Product-Shopping-Assistant/agent/tool"
	configx "github.com/tanpawarit/Product-Shopping-Assistant/pkg/config"
	databasex "github.com/tanpawarit/Product-Shopping-Assistant/pkg/database"
	_ "github.com/tanpawarit/Product-Shopping-Assistant/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/Product-Shopping-Assistant/pkg/openrouter"
	scraperx "github.com/tanpawarit/Product-Shopping-Assistant/pkg/scraper"
	upstashx "github.com/tanpawarit/Product-Shopping-Assistant/pkg/upstash"
)

const (
	sourceLocal  = "local"
	sourceRemote = "remote"
)

type AppConfig struct {
	ProductSource string `envconfig:"PRODUCT_SOURCE" default:"local"`
}

func main() {
	userID := flag.String("user", "local-user", "user id the conversation belongs to")
	conversationID := flag.String("conversation", "", "conversation id to resume")
	seedPath := flag.String("seed", "", "JSON file of products to load into the local store")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	if err := run(ctx, *userID, *conversationID, *seedPath); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("shopping assistant stopped")
	}
}

func run(ctx context.Context, userID string, conversationID string, seedPath string) error {
	appCfg := configx.MustNew[AppConfig]("")
	agentCfg := configx.MustNew[assistantx.Config]("AGENT")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	dbCfg := configx.MustNew[databasex.Config]("DB")
	cacheCfg := configx.MustNew[productx.CacheConfig]("CACHE")

	if err := llmCfg.Validate(); err != nil {
		return err
	}

	db, err := databasex.Open(ctx, *dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	store := memoryx.NewStore(db)
	if err := store.InitSchema(ctx); err != nil {
		return err
	}

	source, err := buildProductSource(ctx, db, appCfg.ProductSource, *cacheCfg, seedPath)
	if err != nil {
		return err
	}

	prompts := promptx.LoadPromptSet()
	analyzer, err := buildAnalyzer(*llmCfg, prompts.Analysis)
	if err != nil {
		return err
	}

	registry, err := toolx.NewRegistry(agentCfg.RegistryConfig(),
		toolx.NewSearchProducts(source),
		toolx.NewGetProductDetails(source),
		toolx.NewCompareProducts(source, analyzer, toolx.WithAnalyzerTimeout(agentCfg.AnalyzerTimeout)),
		toolx.NewGetUserProducts(source),
	)
	if err != nil {
		return err
	}

	chatModel, err := openrouterx.NewChatModel(ctx, llmCfg.OpenRouterFor(llmx.RoleAssistant))
	if err != nil {
		return fmt.Errorf("%w: create chat model: %v", contractx.ErrModelInvoke, err)
	}
	gateway, err := llmx.NewGateway(chatModel)
	if err != nil {
		return err
	}

	agent, err := assistantx.New(store, gateway, registry, *agentCfg)
	if err != nil {
		return err
	}

	log.Info().
		Str("product_source", appCfg.ProductSource).
		Bool("cache", cacheCfg.Enabled).
		Str("db_driver", dbCfg.Driver).
		Msg("shopping assistant ready")

	return chat(ctx, os.Stdin, os.Stdout, agent, store, userID, conversationID)
}

func buildProductSource(
	ctx context.Context,
	db *bun.DB,
	kind string,
	cacheCfg productx.CacheConfig,
	seedPath string,
) (contractx.ProductSource, error) {
	var (
		source contractx.ProductSource
		seeded []int64
	)

	switch strings.ToLower(strings.TrimSpace(kind)) {
	case sourceLocal, "":
		repo := productx.NewRepository(db)
		if err := repo.InitSchema(ctx); err != nil {
			return nil, err
		}
		if seedPath != "" {
			ids, err := seedProducts(ctx, repo, seedPath)
			if err != nil {
				return nil, err
			}
			seeded = ids
		}
		source = repo
	case sourceRemote:
		scraperCfg := configx.MustNew[scraperx.Config]("SCRAPER")
		source = productx.NewRemoteSource(scraperx.MustNew(*scraperCfg))
	default:
		return nil, fmt.Errorf("%w: unknown PRODUCT_SOURCE=%q", contractx.ErrValidation, kind)
	}

	if !cacheCfg.Enabled {
		return source, nil
	}
	upstashCfg := configx.MustNew[upstashx.Config]("UPSTASH_REDIS")
	kv, err := upstashx.NewClient(*upstashCfg)
	if err != nil {
		return nil, err
	}
	cache := productx.NewUpstashCache(kv, cacheCfg)
	if err := cache.Invalidate(ctx, seeded...); err != nil {
		log.Warn().Err(err).Msg("could not invalidate seeded products")
	}
	return productx.NewCachedSource(source, cache), nil
}

func buildAnalyzer(cfg llmx.Config, prompt string) (toolx.Analyzer, error) {
	orCfg := cfg.OpenRouterFor(llmx.RoleAnalyzer)
	client, err := openrouterx.NewClient(orCfg)
	if err != nil {
		return nil, err
	}
	analyzer, err := productx.NewLLMAnalyzer(client, productx.AnalyzerConfig{
		Model:       orCfg.Model,
		Prompt:      prompt,
		Temperature: float64(orCfg.Temperature),
	})
	if err != nil {
		return nil, err
	}
	return analyzer, nil
}

func seedProducts(ctx context.Context, repo *productx.Repository, path string) ([]int64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var items []contractx.Product
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		saved, err := repo.Save(ctx, item)
		if err != nil {
			return nil, err
		}
		ids = append(ids, saved.ID)
	}
	log.Info().Int("count", len(ids)).Str("path", path).Msg("seeded products")
	return ids, nil
}

func chat(
	ctx context.Context,
	in io.Reader,
	out io.Writer,
	agent *assistantx.Agent,
	store *memoryx.Store,
	userID string,
	conversationID string,
) error {
	fmt.Fprintln(out, "Ask about products. Commands: /new, /conversations, /delete, /quit")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit":
			return nil
		case "/new":
			conversationID = ""
			fmt.Fprintln(out, "started a new conversation")
			continue
		case "/delete":
			if conversationID == "" {
				fmt.Fprintln(out, "no active conversation")
				continue
			}
			if err := store.DeleteConversation(ctx, conversationID); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "deleted conversation %s\n", conversationID)
			conversationID = ""
			continue
		case "/conversations":
			convs, err := store.ListConversations(ctx, userID)
			if err != nil {
				return err
			}
			for _, c := range convs {
				fmt.Fprintf(out, "%s  %s  %s\n", c.ID, c.UpdatedAt.Format("2006-01-02 15:04"), c.Title)
			}
			continue
		}

		resp, err := agent.Respond(ctx, assistantx.Request{
			ConversationID: conversationID,
			UserID:         userID,
			Message:        line,
		})
		if errors.Is(err, contractx.ErrCancelled) {
			return context.Canceled
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}

		conversationID = resp.ConversationID
		fmt.Fprintln(out, resp.Answer)
		for _, p := range resp.Products {
			fmt.Fprintf(out, "  [%d] %s  %s  %s\n", p.ID, p.Name, p.FormattedPrice(), p.StoreName)
		}
	}
}

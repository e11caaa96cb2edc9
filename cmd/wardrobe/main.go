package main

import (
	"log"
	"log/slog"

	"github.com/vbonduro/wardrobe/internal/artstore/local"
	"github.com/vbonduro/wardrobe/internal/config"
	"github.com/vbonduro/wardrobe/internal/db"
	"github.com/vbonduro/wardrobe/internal/logging"
	"github.com/vbonduro/wardrobe/internal/render"
	"github.com/vbonduro/wardrobe/internal/review"
	claudereview "github.com/vbonduro/wardrobe/internal/review/claude"
	ollamareview "github.com/vbonduro/wardrobe/internal/review/ollama"
	"github.com/vbonduro/wardrobe/internal/service"
	"github.com/vbonduro/wardrobe/internal/store"
	"github.com/vbonduro/wardrobe/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	itemStore := store.NewItemStore(database)
	avatarStore := store.NewAvatarStore(database)

	artStg, err := local.NewArtworkStore(cfg.ArtworkPath)
	if err != nil {
		logger.Error("failed to initialize artwork store", "error", err)
		return
	}

	renderer, err := render.NewRenderer(artStg, cfg.RenderCacheSize, logger)
	if err != nil {
		logger.Error("failed to initialize renderer", "error", err)
		return
	}

	avatarService := service.NewAvatarService(itemStore, avatarStore, newReviewer(cfg, logger), artStg, renderer, logger)
	server := web.NewServer(avatarService, artStg, logger)

	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

// newReviewer returns nil for the manual backend: uploads then wait for an
// explicit approval.
func newReviewer(cfg *config.Config, logger *slog.Logger) review.Reviewer {
	switch cfg.ReviewBackend {
	case config.ReviewClaude:
		logger.Info("using Claude review backend", "model", cfg.ClaudeModel)
		return claudereview.NewReviewer(cfg.ClaudeAPIKey, cfg.ClaudeModel)
	case config.ReviewOllama:
		logger.Info("using Ollama review backend", "model", cfg.OllamaModel)
		return ollamareview.NewReviewer(cfg.OllamaHost, cfg.OllamaModel)
	default:
		logger.Info("using manual review, uploads stay pending until approved")
		return nil
	}
}

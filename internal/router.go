package router

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"IFCompiler/internal/controllers"
	"IFCompiler/internal/models/configs"
	"IFCompiler/internal/repository"
	"IFCompiler/internal/services"
	"IFCompiler/pkg/artifact"
	"IFCompiler/pkg/config"
	"IFCompiler/pkg/parsetree"
	"IFCompiler/pkg/workspace"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// maxImages bounds the rendered parse trees kept for /tree-image.
const maxImages = 200

type App struct {
	Router          http.Handler
	CompilerService *services.CompilerService
	db              *sql.DB
}

func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// StartRoutes wires every service from cfg and returns the HTTP handler.
func StartRoutes(cfg *config.Config, logger *log.Logger) (*App, error) {
	names := artifact.Names{
		artifact.Tokens:    cfg.TokensFile,
		artifact.Symbols:   cfg.SymbolsFile,
		artifact.Constants: cfg.ConstantsFile,
		artifact.Tree:      cfg.TreeFile,
	}

	db, err := repository.OpenDatabase(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	outcomes, err := repository.StartOutcomeRepository(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	workspaces, err := workspace.NewManager(workspace.Config{
		ToolchainDirectory:   cfg.ToolchainDirectory,
		ArtifactSubdirectory: cfg.ArtifactSubdirectory,
		InputFileName:        cfg.InputFileName,
		ArtifactNames:        names,
		Isolate:              cfg.IsolateWorkspaces,
		Root:                 cfg.WorkspaceRoot,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("workspace: %w", err)
	}

	format, err := parsetree.ParseFormat(cfg.TreeImageFormat)
	if err != nil {
		db.Close()
		return nil, err
	}

	treeService, err := services.StartTreeService(configs.TreeImageConfig{
		Enabled:   cfg.RenderTreeImages,
		Directory: cfg.TreeImageDirectory,
		Format:    format,
		MaxImages: maxImages,
	}, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	var images services.TreeImageRenderer
	if treeService.Enabled() {
		images = treeService
	}

	compilerService, err := services.StartCompilerService(configs.CompilerServiceConfig{
		ToolchainArgs:     cfg.ToolchainArgs(),
		JobTimeout:        cfg.JobTimeout,
		KillGrace:         cfg.KillGrace,
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
		MaxOutputBytes:    cfg.MaxOutputBytes,
		ArtifactNames:     names,
		Tree:              parsetree.Options{IndentUnit: cfg.IndentUnit},
	}, workspaces, images, outcomes, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	compilerController, err := controllers.StartCompilerController(compilerService, treeService, outcomes, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		Router:          NewRouter(compilerController, logger),
		CompilerService: compilerService,
		db:              db,
	}, nil
}

// NewRouter registers the routes both at the root and under /api, the prefix
// the web client uses.
func NewRouter(c *controllers.CompilerController, logger *log.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	routes := func(r chi.Router) {
		r.Post("/compile", c.HandleCompile)
		r.Post("/terminate", c.HandleTerminate)
		r.Post("/input", c.HandleInput)
		r.Post("/tree/convert", c.HandleConvertTree)
		r.Get("/tree-image/{name}", c.HandleTreeImage)
		r.Get("/parsetree-image/{name}", c.HandleTreeImage)
		r.Get("/jobs", c.HandleLiveJobs)
		r.Get("/outcomes/{jobID}", c.HandleOutcome)
		r.Get("/stats", c.HandleStats)
		r.Get("/health", c.HandleHealth)
	}

	routes(r)
	r.Route("/api", routes)

	return r
}

func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("[HTTP] Request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"elapsed", time.Since(start).Round(time.Millisecond),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

package app

import (
	"os"

	"github.com/rs/zerolog/log"

	"shelfscan/internal/backend"
	"shelfscan/internal/explain"
	"shelfscan/internal/history"
	"shelfscan/internal/navctx"
	"shelfscan/internal/storage"
)

// Services holds all application services
type Services struct {
	KV           storage.Store
	Backend      *backend.Client
	NavContext   *navctx.Context
	Explanations *explain.Controller
	Cache        *explain.Cache
	History      *history.Store
}

// NewServices creates a new services container
func NewServices() *Services {
	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		backendURL = "http://localhost:8000"
	}
	client := backend.NewClient(backendURL)

	kv := openStore()
	cache := explain.NewCache(kv)

	return &Services{
		KV:           kv,
		Backend:      client,
		NavContext:   navctx.New(),
		Explanations: explain.NewController(client, cache),
		Cache:        cache,
		History:      history.NewStore(kv),
	}
}

// openStore opens the client-local database. Persistence is best-effort:
// when the database cannot be opened the app runs with an in-memory store
// and history/cache simply do not survive restarts.
func openStore() storage.Store {
	path := os.Getenv("DATA_PATH")
	if path == "" {
		path = "shelfscan.db"
	}

	kv, err := storage.OpenSQLite(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to open local store, falling back to in-memory")
		return storage.NewMemoryStore()
	}
	log.Info().Str("path", path).Msg("Local store opened")
	return kv
}

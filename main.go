package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/yourorg/editor-api/crm"
	"github.com/yourorg/editor-api/internal/cep"
	"github.com/yourorg/editor-api/internal/directory"
	"github.com/yourorg/editor-api/internal/env"
	"github.com/yourorg/editor-api/internal/geo"
	"github.com/yourorg/editor-api/internal/journal"
	"github.com/yourorg/editor-api/internal/notify"
	"github.com/yourorg/editor-api/internal/redisx"
	"github.com/yourorg/editor-api/internal/session"
	"github.com/yourorg/editor-api/internal/staging"
)

func main() {
	port := env.GetInt("PORT", 4010)
	crmBase := env.Must("CRM_BASE_URL")
	crmKey := env.Get("CRM_API_KEY", "")

	crmClient := crm.NewClient(crmBase, crmKey)
	cepClient := cep.NewClient(env.Get("VIACEP_BASE_URL", ""))
	geoClient := geo.NewClient(env.Get("GEOCODE_BASE_URL", ""))

	blobs := buildBlobStore()

	var rdb *redisx.Client
	if addr := env.Get("REDIS_ADDR", ""); addr != "" {
		rdb = redisx.New(addr, env.Get("REDIS_PASSWORD", ""), env.GetInt("REDIS_DB", 0))
	} else {
		log.Printf("[WARN] REDIS_ADDR not set; directory lists are fetched on every request")
	}
	dirCache := directory.NewCache(rdb, directory.NewClient(crmBase, crmKey),
		env.GetDuration("DIRECTORY_CACHE_TTL", time.Hour),
		env.GetDuration("DIRECTORY_STALE_AFTER", 5*time.Minute))

	var jrnl *journal.Journal
	if dsn := env.Get("PG_DSN", ""); dsn != "" {
		j, err := journal.Open(dsn)
		if err != nil {
			log.Fatalf("journal open error: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := j.Ping(ctx); err != nil {
			cancel()
			log.Fatalf("postgres ping error: %v", err)
		}
		if err := j.Migrate(ctx); err != nil {
			cancel()
			log.Fatalf("postgres migrate error: %v", err)
		}
		cancel()
		jrnl = j
	} else {
		log.Printf("[WARN] PG_DSN not set; submission journal disabled")
	}

	sessions := session.NewManager(blobs, crmClient, env.GetDuration("SESSION_IDLE_TTL", 2*time.Hour))
	go sweepLoop(sessions)

	pub := notify.NewInMemory(64)

	router := BuildRouter(routerDeps{
		Sessions:  sessions,
		Notify:    pub,
		CRM:       crmClient,
		CEP:       cepClient,
		Geocoder:  geoClient,
		Directory: dirCache,
		Journal:   jrnl,
	})

	log.Printf("[INFO] editor-api listening on :%d", port)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), router); err != nil {
		log.Fatal(err)
	}
}

func buildBlobStore() staging.BlobStore {
	endpoint := env.Get("MINIO_ENDPOINT", "")
	if endpoint == "" {
		log.Printf("[WARN] MINIO_ENDPOINT not set; staging attachments in memory")
		return staging.NewMemoryStore()
	}
	cfg := staging.ObjectStoreConfig{
		Endpoint:  endpoint,
		AccessKey: env.Must("MINIO_ACCESS_KEY"),
		SecretKey: env.Must("MINIO_SECRET_KEY"),
		Region:    env.Get("MINIO_REGION", ""),
		UseSSL:    env.GetBool("MINIO_USE_SSL", false),
		Bucket:    env.Get("MINIO_BUCKET", "editor-staging"),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	store, err := staging.NewObjectStore(ctx, cfg)
	if err != nil {
		log.Fatalf("objectstore init error: %v", err)
	}
	return store
}

func sweepLoop(m *session.Manager) {
	t := time.NewTicker(10 * time.Minute)
	defer t.Stop()
	for range t.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if n := m.Sweep(ctx); n > 0 {
			log.Printf("[INFO] evicted %d idle session(s)", n)
		}
		cancel()
	}
}

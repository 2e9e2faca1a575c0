package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"blobcraft.ai/internal/metrics"
	persistlog "blobcraft.ai/internal/persistence/log"
	"blobcraft.ai/internal/sim/bus"
	"blobcraft.ai/internal/sim/catalogs"
	"blobcraft.ai/internal/sim/inproc"
	"blobcraft.ai/internal/sim/tuning"
	"blobcraft.ai/internal/sim/world"
	"blobcraft.ai/internal/transport/presentation"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		worldID     = flag.String("world", "blob-1", "world id")
		configDir   = flag.String("configs", "./configs", "config directory")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB   = flag.Bool("disable_db", false, "disable the event index")
		remoteFeed  = flag.Bool("remote_feed", false, "accept presentation feed clients from non-loopback addresses")
		spawnRegion = flag.String("spawn_region", "", "spawn one organism at 0,0 in this region on start (empty to skip)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional read-model index (does not affect the engine).
	idx, err := openRuntimeIndex(ctx, worldDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(ctx, cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	mirror, err := buildS3Mirror(ctx, *dataDir, log.New(os.Stdout, "[mirror] ", log.LstdFlags|log.Lmicroseconds))
	if err != nil {
		logger.Fatalf("init s3 mirror: %v", err)
	}
	defer mirror.Close()

	minds := inproc.NewMinds()
	round := inproc.NewRound()
	hub := presentation.NewHub(minds, presentation.Info{
		WorldID:     *worldID,
		TickRateHz:  tune.TickRateHz,
		ChemsDigest: cats.Chems.Digest,
		TilesDigest: cats.Tiles.Digest,
		ResourceMax: tune.Alerts.ResourceMax,
		HealthMax:   tune.Alerts.HealthMax,
	}, presentation.Options{AllowRemote: *remoteFeed}, log.New(os.Stdout, "[feed] ", log.LstdFlags|log.Lmicroseconds))

	w, err := world.New(world.WorldConfig{ID: *worldID, Tuning: tune}, cats, world.Collaborators{
		Spatial:      inproc.NewGrid(),
		Minds:        minds,
		Presentation: hub,
		Round:        round,
		Defense:      inproc.NewDefense(),
	})
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	eventLog := persistlog.NewEventLogger(worldDir)
	if mirror != nil {
		eventLog.OnSegmentClosed(mirror.SegmentClosed)
		if n := mirror.Backfill(filepath.Join(worldDir, "events"), "events-*.jsonl.zst"); n > 0 {
			logger.Printf("s3 mirror: backfilling %d closed segments", n)
		}
	}
	// Closed before the mirror so the final segment is still uploaded.
	defer eventLog.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mc := metrics.New(reg, w.Metrics)
	if idx != nil {
		mc.Queue("index",
			func() float64 { return float64(idx.Stats().QueueDepth) },
			func() float64 { return float64(idx.Stats().DroppedTotal) })
	}
	if mirror != nil {
		mc.Queue("s3_mirror",
			func() float64 { return float64(mirror.Stats().Pending) },
			func() float64 { return float64(mirror.Stats().Dropped) })
	}

	w.AddEventSink(eventLog)
	if idx != nil {
		w.AddEventSink(idx)
	}
	w.AddEventSink(mc)
	w.AddEventSink(hub)
	logLifecycle(w.Bus(), logger)

	if r := strings.TrimSpace(*spawnRegion); r != "" {
		if id, ok := w.SpawnOrganism(world.Vec2i{}, r); ok {
			logger.Printf("spawned organism=%d region=%s", id, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/v1/feed", hub.WSHandler())

	if envBool("BC_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		adminAPI{w: w, round: round}.register(mux)
	} else {
		logger.Printf("admin endpoints disabled (BC_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("BC_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := w.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		logger.Printf("listening on %s world=%s tick_rate=%dHz", *addr, *worldID, tune.TickRateHz)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
		w.Stop()
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Printf("server stopped: %v", err)
		return
	}
	logger.Printf("shutdown complete tick=%d", w.CurrentTick())
}

// logLifecycle prints organism lifecycle lines. Must be called before the world runs.
func logLifecycle(b *bus.Bus, logger *log.Logger) {
	bus.On(b, world.EventObserverCreated, func(_ *bus.Envelope, ev world.ObserverCreated) {
		logger.Printf("observer created organism=%d observer=%d", ev.Organism, ev.Observer)
	})
	bus.On(b, world.EventOrganismDestroyed, func(_ *bus.Envelope, ev world.OrganismDestroyed) {
		logger.Printf("organism destroyed organism=%d region=%s rollback=%v", ev.Organism, ev.Region, ev.Rollback)
	})
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

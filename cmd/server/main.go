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

	"gridsight.dev/internal/persistence/flagdb"
	persistlog "gridsight.dev/internal/persistence/log"
	"gridsight.dev/internal/sim/catalogs"
	"gridsight.dev/internal/sim/tuning"
	"gridsight.dev/internal/sim/vision"
	"gridsight.dev/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "keep invisibility records and overrides in memory only")
		noAudit    = flag.Bool("disable_audit", false, "disable the compressed recalc audit log")
		pprofOn    = flag.Bool("pprof", false, "expose net/http/pprof handlers")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[gridsight] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Printf("catalogs not found in %s; using built-in defaults", *configDir)
			cats = catalogs.Default()
		} else {
			logger.Fatalf("load catalogs: %v", err)
		}
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Tuning{Enabled: true}
			tune.ApplyDefaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	var flags vision.FlagStore
	if *disableDB {
		flags = vision.NewMemoryFlagStore()
	} else {
		db, err := flagdb.Open(filepath.Join(*dataDir, "flags.db"))
		if err != nil {
			logger.Fatalf("open flag store: %v", err)
		}
		defer db.Close()
		flags = db
	}

	var audit vision.AuditLog
	if !*noAudit {
		rl := persistlog.NewRecalcLogger(*dataDir)
		defer rl.Close()
		audit = rl
	}

	debugf := func(string, ...any) {}
	if tune.DebugLog {
		debugf = logger.Printf
	}

	engine := vision.NewEngine(tune, cats, flags, audit, debugf)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go engine.Run(ctx)

	mux := http.NewServeMux()
	srv := ws.NewServer(engine, tune, cats, logger)
	mux.HandleFunc("/v1/ws", srv.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if *pprofOn {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Printf("listening on %s (tick=%dHz debounce=%d max_visibility=%.0f)",
		*addr, tune.TickRateHz, tune.DebounceTicks, tune.MaxVisibility)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("listen: %v", err)
	}
}

// drone-hil runs the HIL flight dynamics simulator: it loads an airframe
// config, opens a MAVLink relay to an external autopilot, and advances the
// equations of motion in lockstep with it over a fixed-step loop, exposing
// an admin HTTP surface and a diagnostics telemetry tap alongside.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arobi/drone-hil-sim/internal/auth"
	"github.com/arobi/drone-hil-sim/internal/clock"
	"github.com/arobi/drone-hil-sim/internal/config"
	"github.com/arobi/drone-hil-sim/internal/drone"
	"github.com/arobi/drone-hil-sim/internal/environment"
	"github.com/arobi/drone-hil-sim/internal/mavlink"
	"github.com/arobi/drone-hil-sim/internal/metrics"
	"github.com/arobi/drone-hil-sim/internal/telemetry"
	"github.com/arobi/drone-hil-sim/pkg/logging"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
	gitCommit = "unknown"

	httpPort   = flag.Int("http-port", 8096, "admin HTTP API port")
	configFile = flag.String("config", "configs/airframe.cfg", "airframe configuration file path")

	serialPort = flag.String("serial-port", "", "MAVLink serial port (empty uses an in-memory loopback relay)")
	serialBaud = flag.Int("serial-baud", 921600, "MAVLink serial baud rate")

	tickMs  = flag.Int("tick-ms", 10, "fixed simulation step, milliseconds")
	windN   = flag.Float64("wind-n", 0, "constant wind, north component, m/s")
	windE   = flag.Float64("wind-e", 0, "constant wind, east component, m/s")
	windD   = flag.Float64("wind-d", 0, "constant wind, down component, m/s")
	tempC   = flag.Float64("temperature-c", 15, "constant ambient temperature, celsius")
	logLvl  = flag.String("log-level", "info", "debug, info, warn, error")
	logFile = flag.String("log-output", "stdout", "stdout or a file path")
)

// app is the composition root for the running binary: the drone, its
// relay, the diagnostics tap and the admin HTTP server, wired once at
// startup and torn down together on shutdown.
type app struct {
	d         *drone.Drone
	relay     mavlink.Relay
	streamer  *telemetry.Streamer
	validator *auth.Validator
	registry  *prometheus.Registry
	server    *http.Server

	mu      sync.RWMutex
	running bool

	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	flag.Parse()
	printBanner()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	a := &app{ctx: ctx, cancel: cancel}
	if err := a.initialize(); err != nil {
		log.Fatalf("failed to initialize drone-hil: %v", err)
	}
	a.start()

	log.Println("drone-hil is running, press Ctrl+C to stop")
	<-sigChan
	log.Println("shutdown signal received, stopping gracefully...")

	a.shutdown()
	log.Println("drone-hil shutdown complete")
}

func (a *app) initialize() error {
	logger := logging.New(*logLvl, *logFile)

	log.Printf("loading airframe config from %s", *configFile)
	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if *serialPort != "" {
		log.Printf("opening MAVLink relay on %s @ %d baud", *serialPort, *serialBaud)
		relay, err := mavlink.NewSerialRelay(*serialPort, *serialBaud, logger)
		if err != nil {
			return fmt.Errorf("open serial relay: %w", err)
		}
		a.relay = relay
	} else {
		log.Println("no serial port configured, using in-memory loopback relay")
		a.relay = mavlink.NewMemoryRelay()
	}

	env := environment.NewFixed([3]float64{*windN, *windE, *windD}, *tempC)
	clk := clock.NewRealTime()
	wallTimeUs := func() uint64 { return uint64(time.Now().UnixMicro()) }

	a.registry = prometheus.NewRegistry()
	met := metrics.New(a.registry)

	a.d = drone.New(cfg, a.relay, clk, env, wallTimeUs, logger, met)
	a.streamer = telemetry.NewStreamer(logger)
	a.validator = auth.New()

	return nil
}

func (a *app) start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	go a.runTickLoop()
	go func() {
		if err := a.streamer.Run(a.ctx); err != nil && err != context.Canceled {
			log.Printf("telemetry streamer stopped: %v", err)
		}
	}()
	a.startHTTPServer()

	a.running = true
}

func (a *app) runTickLoop() {
	dtUs := uint64(*tickMs) * 1000
	ticker := time.NewTicker(time.Duration(*tickMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.d.Update(dtUs)
			a.streamer.Publish(a.d.State(), a.d.SimTimeUs(), a.d.Airborne(), a.d.Armed())
		}
	}
}

func (a *app) shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown error: %v", err)
		}
	}

	if closer, ok := a.relay.(*mavlink.SerialRelay); ok {
		if err := closer.Close(); err != nil {
			log.Printf("relay close error: %v", err)
		}
	}

	a.running = false
}

func (a *app) startHTTPServer() {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/api/v1/state", a.stateHandler)
	mux.HandleFunc("/api/v1/version", a.versionHandler)
	mux.HandleFunc("/api/v1/pause", a.validator.RequireAuth(a.pauseHandler))
	mux.HandleFunc("/api/v1/resume", a.validator.RequireAuth(a.resumeHandler))
	mux.HandleFunc("/ws/telemetry", a.streamer.HandleWebSocket)

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", *httpPort),
		Handler: mux,
	}

	go func() {
		log.Printf("admin HTTP API listening on :%d", *httpPort)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()
}

func (a *app) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"armed":  a.d.Armed(),
	})
}

func (a *app) stateHandler(w http.ResponseWriter, r *http.Request) {
	x := a.d.State()
	n, e, d := x.Position()
	u, v, wv := x.Velocity()
	phi, theta, psi := x.Euler()
	p, q, r2 := x.AngularRate()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"sim_time_us":   a.d.SimTimeUs(),
		"position_ned":  [3]float64{n, e, d},
		"velocity_body": [3]float64{u, v, wv},
		"euler_rpy":     [3]float64{phi, theta, psi},
		"angular_rate":  [3]float64{p, q, r2},
		"armed":         a.d.Armed(),
		"airborne":      a.d.Airborne(),
		"paused":        a.d.Paused(),
	})
}

func (a *app) versionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"version":    version,
		"build_time": buildTime,
		"git_commit": gitCommit,
	})
}

func (a *app) pauseHandler(w http.ResponseWriter, r *http.Request) {
	a.d.Pause()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"paused": true})
}

func (a *app) resumeHandler(w http.ResponseWriter, r *http.Request) {
	a.d.Resume()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"paused": false})
}

func printBanner() {
	log.Println("========================================")
	log.Println(" drone-hil - HIL flight dynamics simulator")
	log.Printf(" version %s (%s, %s)", version, gitCommit, buildTime)
	log.Println("========================================")
}

// Command pulsed is the sound server daemon: it wires internal/conf,
// internal/logging, internal/sndcore, internal/mainloop, internal/protocol,
// internal/httpapi, internal/health, and internal/mqttbridge into one
// running process behind a single cobra root command.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pulsed/pulsed/internal/conf"
	"github.com/pulsed/pulsed/internal/errors"
	"github.com/pulsed/pulsed/internal/health"
	"github.com/pulsed/pulsed/internal/httpapi"
	"github.com/pulsed/pulsed/internal/logging"
	"github.com/pulsed/pulsed/internal/mainloop"
	"github.com/pulsed/pulsed/internal/memblock"
	"github.com/pulsed/pulsed/internal/modules"
	"github.com/pulsed/pulsed/internal/mqttbridge"
	"github.com/pulsed/pulsed/internal/observability/metrics"
	"github.com/pulsed/pulsed/internal/protocol"
	"github.com/pulsed/pulsed/internal/resampler"
	"github.com/pulsed/pulsed/internal/sample"
	"github.com/pulsed/pulsed/internal/sndcore"
	"github.com/pulsed/pulsed/internal/store"
)

func main() {
	var configDir string

	root := &cobra.Command{
 Use: "pulsed",
 Short: "pulsed is a user-space sound server",
 RunE: func(cmd *cobra.Command, args []string) error {
 return run(configDir)
 },
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory holding config.yaml (default: ., then ~/.config/pulsed, then /etc/pulsed)")

	configCmd := &cobra.Command{
 Use: "config",
 Short: "Inspect pulsed's configuration",
	}
	configCmd.AddCommand(&cobra.Command{
 Use: "show",
 Short: "Print the fully-resolved configuration (file, env overrides, defaults) as YAML",
 RunE: func(cmd *cobra.Command, args []string) error {
 settings, err := conf.Load(configDir)
 if err != nil {
 return fmt.Errorf("loading config: %w", err)
 }
 out, err := settings.Dump()
 if err != nil {
 return fmt.Errorf("rendering config: %w", err)
 }
 _, err = cmd.OutOrStdout().Write(out)
 return err
 },
	})
	root.AddCommand(configCmd)

	if err := root.Execute(); err != nil {
 fmt.Fprintln(os.Stderr, err)
 os.Exit(1)
	}
}

func run(configDir string) error {
	settings, err := conf.Load(configDir)
	if err != nil {
 return fmt.Errorf("loading config: %w", err)
	}

	logging.Init(logging.Config{
 LogDir: settings.Logging.Dir,
 MaxSizeMB: settings.Logging.MaxSizeMB,
 MaxBackups: settings.Logging.MaxBackups,
 MaxAgeDays: settings.Logging.MaxAgeDays,
 Level: parseLevel(settings.Logging.Level),
	})
	log := logging.ForService("pulsed")

	registry := prometheus.NewRegistry()
	coreMetrics, err := metrics.NewCoreMetrics(registry)
	if err != nil {
 return fmt.Errorf("registering core metrics: %w", err)
	}
	moduleMetrics, err := metrics.NewModuleMetrics(registry)
	if err != nil {
 return fmt.Errorf("registering module metrics: %w", err)
	}
	subMetrics, err := metrics.NewSubscriptionMetrics(registry)
	if err != nil {
 return fmt.Errorf("registering subscription metrics: %w", err)
	}

	loop, err := mainloop.NewThreaded(logging.ForService("mainloop"))
	if err != nil {
 return fmt.Errorf("starting mainloop: %w", err)
	}

	db, err := store.Open(dbPath(configDir), logging.ForService("store"))
	if err != nil {
 return fmt.Errorf("opening sample-cache store: %w", err)
	}
	defer db.Close()

	defaultSpec := settings.Core.DefaultSpec()

	var core *sndcore.Core
	loader := rawPCMLoader(defaultSpec, func() *memblock.Stat { return core.Stat })
	loop.WithLock(func() {
 core = sndcore.NewCore(loop.Loop, sndcore.Config{
 DefaultSinkName: settings.Core.DefaultSinkName,
 DefaultSourceName: settings.Core.DefaultSourceName,
 ExitIdleTime: time.Duration(settings.Daemon.ExitIdleTimeSec) * time.Second,
 ModuleIdleTime: time.Duration(settings.Daemon.ModuleIdleTimeSec) * time.Second,
 UnloadPollInterval: 10 * time.Second,
 SampleCacheIdle: time.Duration(settings.Daemon.SampleCacheIdleSec) * time.Second,
 }, logging.ForService("sndcore"), coreMetrics, moduleMetrics, subMetrics, loader)

 core.RegisterModuleFactory("module-null-sink", modules.NullSinkFactory())
 core.RegisterModuleFactory("module-null-source", modules.NullSourceFactory())
 core.RegisterModuleFactory("module-loopback", modules.LoopbackFactory())
	})

	mirror := store.NewMirror(db, core.Cache, logging.ForService("store"))
	mirrorHandle := mirror.Start(core.Bus)
	defer func() {
 loop.WithLock(func() { core.Bus.Unsubscribe(mirrorHandle) })
	}()

	replayLazySamples(core, db, log)

	var sinkLoadErr, sourceLoadErr error
	loop.WithLock(func() {
 _, sinkLoadErr = core.LoadModuleByName("module-null-sink", fmt.Sprintf("sink_name=%s,rate=%d,channels=%d",
 settings.Core.DefaultSinkName, defaultSpec.Rate, defaultSpec.Channels))
 _, sourceLoadErr = core.LoadModuleByName("module-null-source", fmt.Sprintf("source_name=%s,rate=%d,channels=%d",
 settings.Core.DefaultSourceName, defaultSpec.Rate, defaultSpec.Channels))
	})
	if sinkLoadErr != nil {
 return fmt.Errorf("loading default sink: %w", sinkLoadErr)
	}
	if sourceLoadErr != nil {
 return fmt.Errorf("loading default source: %w", sourceLoadErr)
	}

	if _, err := resampler.ParseMethod(settings.Core.ResamplerMethod); err != nil {
 log.Warn("unrecognized resampler method in config, sink-inputs fall back to their own default", "method", settings.Core.ResamplerMethod)
	}

	dispatcher := protocol.NewDispatcher(core, protocol.StreamDefaults{
 MaxLengthMsec: settings.Core.DefaultMaxLengthMsec,
 TLengthMsec: settings.Core.DefaultTargetMsec,
 PrebufMsec: settings.Core.DefaultPrebufMsec,
 MinreqMsec: settings.Core.DefaultMinreqMsec,
	})

	httpServer := httpapi.New(httpapi.Config{
 ListenAddr: settings.Server.HTTPListenAddr,
 SessionSecret: settings.Server.SessionSecret,
 AuthUsername: settings.Server.AuthUsername,
 AuthPassword: settings.Server.AuthPassword,
 DefaultSpec: defaultSpec,
	}, dispatcher, registry, loop, logging.ForService("httpapi"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bridge := mqttbridge.New(mqttbridge.Config{
 BrokerURL: settings.Server.MQTTBrokerURL,
 ClientID: "pulsed",
 Topic: settings.Server.MQTTTopic,
	}, logging.ForService("mqttbridge"))
	bridgeHandle, err := bridge.Start(ctx, core.Bus)
	if err != nil {
 log.Warn("mqtt bridge disabled", "error", err)
	}
	defer func() {
 bridge.Stop()
 if bridgeHandle != (sndcore.Handle{}) {
 loop.WithLock(func() { core.Bus.Unsubscribe(bridgeHandle) })
 }
	}()

	g, gctx := errgroup.WithContext(ctx)

	if settings.Health.Enabled {
 monitor := health.New(health.Config{
 PollInterval: time.Duration(settings.Health.PollIntervalSec) * time.Second,
 CPUHighPercent: settings.Health.CPUHighPercent,
 MemHighPercent: settings.Health.MemHighPercent,
 }, core, logging.ForService("health"))
 g.Go(func() error {
 monitor.Run(gctx)
 return nil
 })
	}

	loop.Start()
	defer loop.Stop()

	g.Go(httpServer.Start)

	log.Info("pulsed started", "http_addr", settings.Server.HTTPListenAddr)

	<-ctx.Done()
	log.Info("shutting down")

	if err := httpServer.Shutdown(5 * time.Second); err != nil {
 log.Warn("http shutdown error", "error", err)
	}
	if err := g.Wait(); err != nil {
 log.Error("http server exited", "error", err)
	}
	return nil
}

func dbPath(configDir string) string {
	if configDir == "" {
 return "pulsed.db"
	}
	return configDir + string(os.PathSeparator) + "pulsed.db"
}

// replayLazySamples reloads every lazy sample-cache entry the store
// remembers from a previous run, so a restarted daemon doesn't forget
// named clips registered before it last stopped.
func replayLazySamples(core *sndcore.Core, db *store.Store, log *slog.Logger) {
	recs, err := db.LazyEntries()
	if err != nil {
 log.Warn("loading persisted sample-cache entries", "error", err)
 return
	}
	for _, rec := range recs {
 core.Cache.AddFileLazy(rec.Name, rec.Filename)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
 return slog.LevelDebug
	case "warn", "warning":
 return slog.LevelWarn
	case "error":
 return slog.LevelError
	default:
 return slog.LevelInfo
	}
}

// rawPCMLoader loads a lazily-registered sample-cache entry's bytes
// straight off disk as headerless PCM at the cache's configured format:
// sound-file parsing is out of scope here, so the loader exists only so
// the cache has something to call, not to decode any container format.
// The stat accessor is resolved lazily because the Stat it must charge
// against belongs to the Core this loader is itself a constructor
// argument for — by the time a lazy entry is actually played, statFn's
// Core is long since built.
func rawPCMLoader(spec sample.Spec, statFn func() *memblock.Stat) sndcore.SampleLoader {
	return func(filename string) (memblock.Chunk, sample.Spec, error) {
 data, err := os.ReadFile(filename)
 if err != nil {
 return memblock.Chunk{}, sample.Spec{}, errors.New(err).
 Component("samplecache").Category(errors.CategoryNotFound).
 Context("filename", filename).Build()
 }
 blk := memblock.NewDynamic(data, statFn())
 return memblock.Chunk{Block: blk, Index: 0, Length: len(data)}, spec, nil
	}
}

// Package main demonstrates wiring backgroundsvc into a runnable
// program: platform backend registration, reporter setup, and the
// façade's option builder, the way the teacher's cmd/resourceagent/main.go
// demonstrates internal/service.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"backgroundsvc"
	"backgroundsvc/internal/obslog"
	"backgroundsvc/platform/console"
	"backgroundsvc/platform/loopctl"
	"backgroundsvc/platform/servicesystemd"
	"backgroundsvc/platform/servicewindows"
	"backgroundsvc/reporters/kafka"
	"backgroundsvc/reporters/redisstate"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to demo configuration file (optional)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("bgsvcdemo %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg, err := loadDemoConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, closeLog, err := backgroundsvc.NewObsLogSink(obslog.Config{
		Level:      cfg.LogLevel,
		Console:    cfg.LogConsole,
		FilePath:   cfg.LogFile,
		FixedWidth: cfg.LogFixedWidth,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	registry := backgroundsvc.NewRegistry()
	servicesystemd.Register(registry, 0)
	servicewindows.Register(registry, cfg.ServiceName, 0)
	console.Register(registry, 100)

	ctl := loopctl.New()
	loopctl.Register(registry, ctl, 0)

	svc := backgroundsvc.New(cfg.ServiceName, registry, log)

	work := newWorkLoop()

	svc.OnStart(func(runningAsService bool) {
		log.Info("starting demo workload", backgroundsvc.F("running_as_service", runningAsService))
		work.Start()
		svc.SetStarted()
	})

	svc.OnStop(func() {
		log.Info("stopping demo workload")
		work.Stop()
		svc.SetStopped()
	})

	svc.OnStateChanged(func(state backgroundsvc.ServingState) {
		log.Info("state changed", backgroundsvc.F("state", state.String()))
	})

	svc.OnFailed(func(err *backgroundsvc.ServiceError, recoverable bool) {
		log.Error("lifecycle error", err, backgroundsvc.F("recoverable", recoverable))
		if recoverable {
			svc.IgnoreError()
		}
	})

	svc.WithRunningAsConsoleApplication()

	if cfg.EnableKafkaReporter {
		reporter, err := kafka.New(kafka.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			Compression:  cfg.Kafka.Compression,
			RequiredAcks: cfg.Kafka.RequiredAcks,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			log.Error("failed to create kafka reporter", err)
		} else {
			svc.WithReporter(reporter)
		}
	}

	if cfg.EnableRedisReporter {
		svc.WithReporter(redisstate.New(redisstate.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
	}

	svc.Run()

	exitCode := ctl.Wait()

	if err := svc.Close(); err != nil {
		log.Error("error closing service", err)
	}

	os.Exit(exitCode)
}

// workLoop is the demo's stand-in payload: something with an obvious
// start/stop boundary so the lifecycle handlers have something real to
// bracket.
type workLoop struct {
	stop chan struct{}
	done chan struct{}
}

func newWorkLoop() *workLoop { return &workLoop{} }

func (w *workLoop) Start() {
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
			case <-w.stop:
				return
			}
		}
	}()
}

func (w *workLoop) Stop() {
	if w.stop == nil {
		return
	}
	close(w.stop)
	<-w.done
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bpmastats/internal/config"
	"bpmastats/internal/metrics"
	"bpmastats/internal/metrics/datadog"
	"bpmastats/internal/metrics/prompush"

	// register all backends with the storage factory.
	_ "bpmastats/internal/storage/all"
)

// Exit codes: 1 for configuration and fatal run errors, 2 when the run
// completed but some natural keys failed to load.
const (
	exitFatal       = 1
	exitWriteErrors = 2
)

func main() {
	var (
		cfgPath           string
		envFile           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/pipelines/bpma.json", "pipeline config JSON path")
	flag.StringVar(&envFile, "env-file", ".env", "optional .env file with SUPABASE_* credentials")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (overrides env METRICS_BACKEND)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	if err := config.LoadEnv(envFile); err != nil {
		fatalf("%v", err)
	}
	p, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	p.ApplyEnv()

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(exitFatal)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	flush := setupMetrics(p.Job, metricsBackendFlg, pushGatewayURLFlg, *verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	start := time.Now()

	if *verbose {
		log.Printf("pipeline: job=%s source=%s targets=%s resolver=%s",
			p.Job, p.Source.File.Path, strings.Join(p.Output.Targets, ","), p.ResolverKind())
	}

	_, err = run(ctx, p, *verbose)
	stop()
	flush()

	switch {
	case errors.Is(err, errWriteFailures):
		log.Printf("%v", err)
		os.Exit(exitWriteErrors)
	case err != nil:
		fatalf("%v", err)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// setupMetrics installs the backend chosen by flag, then env, then none. The
// returned func flushes it.
func setupMetrics(job, backendFlg, gwFlg string, verbose bool) func() {
	backendName := backendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	if job == "" {
		job = "bpma"
	}

	var (
		b   metrics.Backend
		err error
	)
	switch backendName {
	case "pushgateway":
		gwURL := gwFlg
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err = prompush.NewBackend(job, gwURL)
		if err == nil {
			log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, job)
		}

	case "datadog":
		host := os.Getenv("DD_AGENT_HOST")
		if host == "" {
			host = "127.0.0.1"
		}
		addr := host
		if !strings.HasPrefix(host, "unix://") && !strings.Contains(host, ":") {
			addr = host + ":" + datadog.DefaultPort
		}
		b, err = datadog.NewBackend(datadog.Config{Addr: addr, GlobalTags: []string{"job:" + job}})
		if err == nil {
			log.Printf("metrics: addr=%v, backend=%v, job_name=%v", addr, backendName, job)
		}

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}
		return func() {}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
		return func() {}
	}

	if err != nil {
		log.Printf("metrics: failed to init %s backend: %v; using nop", backendName, err)
		return func() {}
	}
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(exitFatal)
}

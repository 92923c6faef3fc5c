/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	mlog "mosn.io/pkg/log"

	"mosn.io/ballast"
	"mosn.io/ballast/internal/config"
	"mosn.io/ballast/reporters/http_reporter"
	"mosn.io/ballast/server"
)

const shutdownTimeout = 10 * time.Second

type flags struct {
	cfg         config.Config
	reportToken string
	noCGroup    bool
}

// newRootCmd builds the command. runFn replaces the server loop when set.
func newRootCmd(runFn func(f *flags) error) *cobra.Command {
	f := &flags{cfg: config.FromEnv(ballast.NewStdLogger())}
	if runFn == nil {
		runFn = run
	}

	cmd := &cobra.Command{
		Use:   "ballast",
		Short: "Starts an HTTP server which occupies memory and cpu on demand",
		Long: `Starts an HTTP server on the given "--port" (default: 8080), which allocates memory and
burns cpu on request, so the memory and cpu limits of the container can be tested.

Endpoints:
- "/allocate", "/allocate/<mb>": replace the memory buffer with one of "mb" megabytes.
- "/release": drop the memory buffer.
- "/cpu/stress", "/cpu/stress/<threads>": parameters "threads", "duration", "intensity".
- "/cpu/stop": stop the cpu stress session.
- "/memory", "/cpu", "/resources", "/health", "/ready", "/metrics": statistics and probes.

Example:
./ballast --port 8080 &
curl "http://localhost:8080/cpu/stress?threads=2&duration=60&intensity=0.5"
`,
		Args:         cobra.MaximumNArgs(0),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFn(f)
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&f.cfg.Port, "port", f.cfg.Port, "Port number, env PORT.")
	fs.StringVar(&f.cfg.LogLevel, "log-level", f.cfg.LogLevel, "One of trace, debug, info, warn, error, env LOG_LEVEL.")
	fs.IntVar(&f.cfg.DefaultMB, "default-mb", f.cfg.DefaultMB, "Allocation target when a request gives none, env DEFAULT_ALLOCATION_MB.")
	fs.BoolVar(&f.cfg.MemoryOnly, "memory-only", f.cfg.MemoryOnly, "Serve the memory routes only, env MEMORY_ONLY.")
	fs.StringVar(&f.cfg.ReportURL, "report-url", f.cfg.ReportURL, "URL lifecycle events are posted to, env REPORT_URL.")
	fs.StringVar(&f.reportToken, "report-token", "", "Token sent along with every event.")
	fs.DurationVar(&f.cfg.CollectInterval, "collect-interval", f.cfg.CollectInterval, "Period of the monitor loop, env COLLECT_INTERVAL.")
	fs.BoolVar(&f.noCGroup, "no-cgroup", false, "Do not read the container limits.")
	return cmd
}

func buildOptions(f *flags, logger mlog.ErrorLogger) []ballast.Option {
	opts := []ballast.Option{
		ballast.WithLogger(logger),
		ballast.WithDefaultTargetMB(f.cfg.DefaultMB),
		ballast.WithCollectInterval(f.cfg.CollectInterval.String()),
		ballast.WithCGroup(!f.noCGroup),
	}
	if f.cfg.ReportURL != "" {
		opts = append(opts, ballast.WithReporter(http_reporter.NewReporter(f.reportToken, f.cfg.ReportURL)))
	}
	return opts
}

func variant(f *flags) server.Variant {
	if f.cfg.MemoryOnly {
		return server.MemoryOnly
	}
	return server.Resource
}

func run(f *flags) error {
	level, err := ballast.ParseLevel(f.cfg.LogLevel)
	if err != nil {
		return err
	}
	logger, err := ballast.NewFileLog("stdout", level)
	if err != nil {
		return err
	}

	b, err := ballast.New(buildOptions(f, logger)...)
	if err != nil {
		return fmt.Errorf("create ballast: %w", err)
	}
	b.Start()
	defer b.Stop()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    net.JoinHostPort("0.0.0.0", strconv.Itoa(f.cfg.Port)),
		Handler: server.New(b, variant(f), logger).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errC := make(chan error, 1)
	go func() {
		logger.Infof("[ballast] listening on %s, memory only: %t", srv.Addr, f.cfg.MemoryOnly)
		errC <- srv.ListenAndServe()
	}()

	select {
	case err := <-errC:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Infof("[ballast] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

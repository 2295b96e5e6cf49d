// Command webmetrics-demo runs a small instrumented service: a chi
// server wrapped in the timing middleware, an instrumented client
// periodically calling it, and a prometheus exposition endpoint to see
// the recorded timers.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/joeshaw/envdecode"
	"github.com/oklog/run"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/heroku/webmetrics"
	promprovider "github.com/heroku/webmetrics/metrics/provider/prometheus"
)

type config struct {
	Port         int           `env:"PORT,default=8080"`
	PollInterval time.Duration `env:"POLL_INTERVAL,default=5s"`

	Metrics webmetrics.Config
}

func main() {
	var cfg config
	envdecode.MustStrictDecode(&cfg)
	if err := cfg.Metrics.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid metrics config")
	}

	logger := logrus.WithField("app", "webmetrics-demo")

	registry := prom.NewRegistry()
	provider := promprovider.New(registry, promprovider.WithNamespace("demo"))
	defer provider.Stop()

	r := chi.NewRouter()
	r.Use(webmetrics.NewServer(provider, cfg.Metrics, logger))
	r.Get("/hello/{name}", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprintf(w, "hello, %s\n", chi.URLParam(req, "name"))
	})
	r.Method("GET", "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	client := &http.Client{
		Transport: webmetrics.NewRoundTripper(provider, cfg.Metrics, nil, logger),
		Timeout:   10 * time.Second,
	}

	var g run.Group

	g.Add(func() error {
		logger.WithField("port", cfg.Port).Info("serving")
		return srv.ListenAndServe()
	}, func(error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx) //nolint:errcheck
	})

	pollCtx, cancelPoll := context.WithCancel(context.Background())
	g.Add(func() error {
		return poll(pollCtx, client, cfg)
	}, func(error) {
		cancelPoll()
	})

	sigs := make(chan os.Signal, 1)
	g.Add(func() error {
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigs
		return fmt.Errorf("signal %v", sig)
	}, func(error) {
		close(sigs)
	})

	if err := g.Run(); err != nil {
		logger.WithError(err).Info("shutting down")
	}
}

// poll exercises the instrumented client against our own server until
// ctx is canceled.
func poll(ctx context.Context, client *http.Client, cfg config) error {
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	url := fmt.Sprintf("http://127.0.0.1:%d/hello/world", cfg.Port)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			req, err := http.NewRequest("GET", url, nil)
			if err != nil {
				return err
			}
			req = webmetrics.WithRoute(req.WithContext(ctx), "/hello/{name}")

			resp, err := client.Do(req)
			if err != nil {
				continue
			}
			resp.Body.Close()
		}
	}
}

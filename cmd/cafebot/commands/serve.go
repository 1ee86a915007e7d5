package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/54b3r/cafebot-go/internal/logging"
	"github.com/54b3r/cafebot-go/internal/server"
)

// NewServeCmd constructs the `cafebot serve` command, which starts the HTTP
// API backed by the knowledge base and the live cafe data.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the cafebot HTTP API",
		Long: `Start the cafebot HTTP API.

The server answers chat queries, manages the QA knowledge base, serves
read-only cafe data and exposes /api/health, /api/ready and /metrics.
The cafe data file (CAFE_DATA_FILE) is reloaded when it changes on disk.

Examples:
  cafebot serve
  cafebot serve --port 8080
  VECTOR_BACKEND=qdrant QDRANT_HOST=localhost cafebot serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			metrics := server.NewMetrics(prometheus.DefaultRegisterer)

			rt, err := newRuntime(ctx, log, runtimeOptions{observer: metrics})
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer rt.Close()

			go func() {
				if err := rt.cafe.Watch(ctx); err != nil {
					log.Warn("cafe: hot reload disabled", slog.Any("error", err))
				}
			}()

			rateLimit, err := getEnvFloat("CAFEBOT_RATE_LIMIT", 0)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			rateBurst, err := getEnvInt("CAFEBOT_RATE_BURST", 0)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			routeLimits, err := routeLimitsFromEnv()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("CAFEBOT_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				if port, err = getEnvInt("CAFEBOT_PORT", port); err != nil {
					return fmt.Errorf("serve: %w", err)
				}
			}

			srv, err := server.New(rt.chat, rt.cafe, &server.Config{
				Host:          host,
				Port:          port,
				Logger:        log,
				Pingers:       buildPingers(rt),
				RateLimit:     rateLimit,
				RateBurst:     rateBurst,
				RouteLimits:   routeLimits,
				TrustProxy:    getEnvBool("CAFEBOT_TRUST_PROXY", false),
				APIKey:        os.Getenv("CAFEBOT_API_KEY"),
				Collection:    rt.chat.Collection(),
				VectorBackend: rt.vectors.Name(),
				Embedder:      rt.backend + "/" + rt.upstream.Model(),
				Metrics:       metrics,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			log.Info("serve starting",
				slog.String("collection", rt.chat.Collection()),
				slog.String("vector_store", rt.vectors.Name()),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 3000, "TCP port to listen on")

	return cmd
}

// buildPingers returns the readiness checks in the order /api/ready reports
// them after cafe-data: vector store, the default collection, local
// database, embedding provider.
func buildPingers(rt *runtime) []server.Pinger {
	return []server.Pinger{
		rt.vectors,
		server.NewCollectionPinger(rt.vectors, rt.chat.Collection()),
		server.PingerFunc{Label: "store", Fn: rt.db.Ping},
		server.NewEmbedderPinger(rt.upstream, "embedder:"+rt.backend),
	}
}

// routeLimitsFromEnv reads the per-route overrides. Unset variables leave
// the route on CAFEBOT_RATE_LIMIT and CAFEBOT_RATE_BURST.
func routeLimitsFromEnv() (map[string]server.RateLimit, error) {
	out := map[string]server.RateLimit{}
	for route, prefix := range map[string]string{
		server.RouteChatQuery:      "CAFEBOT_CHAT",
		server.RouteEmbeddingQuery: "CAFEBOT_RETRIEVE",
	} {
		rps, err := getEnvFloat(prefix+"_RATE_LIMIT", 0)
		if err != nil {
			return nil, err
		}
		burst, err := getEnvInt(prefix+"_RATE_BURST", 0)
		if err != nil {
			return nil, err
		}
		if rps > 0 || burst > 0 {
			out[route] = server.RateLimit{RPS: rps, Burst: burst}
		}
	}
	return out, nil
}

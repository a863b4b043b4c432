// Package httpadmin exposes a small, read-only HTTP surface alongside the
// IRC listener: liveness, a JSON stats snapshot, and Prometheus metrics.
// Nothing reachable here can join, part, kick, or otherwise act on the wire
// protocol — it is purely observability.
package httpadmin

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsSource supplies the counters shown on /stats. A separate interface
// from ircd.Server keeps this package free of a direct dependency on the
// dispatch core.
type StatsSource interface {
	ClientCount() int
	ChannelCount() int
	Uptime() time.Duration
	Name() string
}

// Metrics collects the Prometheus counters/gauges the admin surface and the
// dispatch core both write to over the lifetime of the process.
type Metrics struct {
	ConnectionsTotal *prometheus.CounterVec
	CommandsTotal    *prometheus.CounterVec
	DisconnectsTotal *prometheus.CounterVec
	ConnectedClients prometheus.Gauge
	OpenChannels     prometheus.Gauge
}

// NewMetrics registers every counter/gauge against a fresh registry and
// returns both, so callers can serve /metrics from the same registry the
// dispatch core writes into.
func NewMetrics() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		ConnectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wifiplazad_connections_total",
			Help: "Total accepted TCP connections.",
		}, nil),
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wifiplazad_commands_total",
			Help: "Total dispatched commands by name.",
		}, []string{"command"}),
		DisconnectsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wifiplazad_disconnects_total",
			Help: "Total client disconnects by reason.",
		}, []string{"reason"}),
		ConnectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wifiplazad_connected_clients",
			Help: "Currently connected clients.",
		}),
		OpenChannels: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wifiplazad_open_channels",
			Help: "Currently open channels.",
		}),
	}, reg
}

// statsResponse is the JSON body served at /stats.
type statsResponse struct {
	ServerName string `json:"server_name"`
	Clients    int    `json:"clients"`
	Channels   int    `json:"channels"`
	UptimeSecs int64  `json:"uptime_seconds"`
}

// New builds the Echo instance serving /healthz, /stats, and /metrics.
func New(src StatsSource, reg *prometheus.Registry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/stats", func(c echo.Context) error {
		return c.JSON(http.StatusOK, statsResponse{
			ServerName: src.Name(),
			Clients:    src.ClientCount(),
			Channels:   src.ChannelCount(),
			UptimeSecs: int64(src.Uptime().Seconds()),
		})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return e
}

package routing

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/golobby/container/v3"
	"github.com/gorilla/mux"

	"github.com/osuguard/osuguard/cmd/rest-api/controllers"
	"github.com/osuguard/osuguard/pkg/app/guard"
	"github.com/osuguard/osuguard/pkg/infra/metrics"
)

const (
	Health  string = "/health"
	Metrics string = "/metrics"

	Similarity string = "/analysis/similarity"
	Frametime  string = "/analysis/frametime"
	Snaps      string = "/analysis/snaps"
)

func NewRouter(ctx context.Context, c container.Container) http.Handler {
	healthController := controllers.NewHealthController()

	var cg *guard.Circleguard
	if err := c.Resolve(&cg); err != nil {
		slog.ErrorContext(ctx, "Failed to resolve Circleguard", "error", err)
		panic(err)
	}
	analysisController := controllers.NewAnalysisController(cg)

	r := mux.NewRouter()
	r.Use(metrics.Middleware)

	r.HandleFunc(Health, healthController.Health).Methods(http.MethodGet)
	r.Handle(Metrics, metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc(Similarity, analysisController.Similarity).Methods(http.MethodPost)
	r.HandleFunc(Frametime, analysisController.Frametime).Methods(http.MethodPost)
	r.HandleFunc(Snaps, analysisController.Snaps).Methods(http.MethodPost)

	return r
}

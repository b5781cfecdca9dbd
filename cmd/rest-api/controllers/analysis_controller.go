package controllers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/osuguard/osuguard/pkg/app/guard"
	common "github.com/osuguard/osuguard/pkg/domain"
	"github.com/osuguard/osuguard/pkg/domain/analysis"
	replay_entity "github.com/osuguard/osuguard/pkg/domain/replay/entities"
)

// maxReplayUpload bounds uploaded osr files. Real replays are well under a
// megabyte even on marathon maps.
const maxReplayUpload = 16 << 20

// AnalysisController serves the analysis methods that need nothing beyond
// replay files: similarity, frametime and snaps. Beatmap-dependent analysis
// (ur, judgments) is a library-level concern, since beatmaps are supplied by
// the embedding application.
type AnalysisController struct {
	guard *guard.Circleguard
}

func NewAnalysisController(g *guard.Circleguard) *AnalysisController {
	return &AnalysisController{guard: g}
}

type similarityResponse struct {
	Similarity float64  `json:"similarity"`
	Flipped    *float64 `json:"flipped,omitempty"`
	Method     string   `json:"method"`
	Limit      float64  `json:"limit"`
}

// Similarity compares two uploaded replays: multipart fields "replay1" and
// "replay2", optional query params "method" and "num_chunks".
func (c *AnalysisController) Similarity(w http.ResponseWriter, r *http.Request) {
	replay1, ok := c.formReplay(w, r, "replay1")
	if !ok {
		return
	}
	replay2, ok := c.formReplay(w, r, "replay2")
	if !ok {
		return
	}

	method := analysis.SimilarityMethod(r.URL.Query().Get("method"))
	if method == "" {
		method = analysis.MethodSimilarity
	}
	numChunks := analysis.DefaultNumChunks
	if raw := r.URL.Query().Get("num_chunks"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, common.NewErrInvalidArgumentf("malformed num_chunks %q", raw))
			return
		}
		numChunks = parsed
	}

	result, err := c.guard.Similarity(r.Context(), replay1, replay2, method, numChunks, analysis.ModsUnknownBest)
	if err != nil {
		writeError(w, err)
		return
	}

	limit := float64(guard.SimLimit)
	if method == analysis.MethodCorrelation {
		limit = guard.CorrLimit
	}
	writeJSON(w, similarityResponse{
		Similarity: result.Value,
		Flipped:    result.Flipped,
		Method:     string(method),
		Limit:      limit,
	})
}

type frametimeResponse struct {
	Frametime float64 `json:"frametime"`
	Limit     float64 `json:"limit"`
}

// Frametime reports the median frametime of an uploaded replay: multipart
// field "replay".
func (c *AnalysisController) Frametime(w http.ResponseWriter, r *http.Request) {
	replay, ok := c.formReplay(w, r, "replay")
	if !ok {
		return
	}
	frametime, err := c.guard.Frametime(r.Context(), replay)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, frametimeResponse{Frametime: frametime, Limit: guard.FrametimeLimit})
}

type snapResponse struct {
	Snaps []analysis.Snap `json:"snaps"`
}

// Snaps reports the aim corrections of an uploaded replay: multipart field
// "replay", optional query params "max_angle" and "min_distance".
func (c *AnalysisController) Snaps(w http.ResponseWriter, r *http.Request) {
	replay, ok := c.formReplay(w, r, "replay")
	if !ok {
		return
	}
	maxAngle := analysis.DefaultSnapMaxAngle
	minDistance := analysis.DefaultSnapMinDistance
	if raw := r.URL.Query().Get("max_angle"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, common.NewErrInvalidArgumentf("malformed max_angle %q", raw))
			return
		}
		maxAngle = parsed
	}
	if raw := r.URL.Query().Get("min_distance"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, common.NewErrInvalidArgumentf("malformed min_distance %q", raw))
			return
		}
		minDistance = parsed
	}

	snaps, err := c.guard.Snaps(r.Context(), replay, maxAngle, minDistance, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	if snaps == nil {
		snaps = []analysis.Snap{}
	}
	writeJSON(w, snapResponse{Snaps: snaps})
}

func (c *AnalysisController) formReplay(w http.ResponseWriter, r *http.Request, field string) (*replay_entity.ReplayString, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxReplayUpload)
	if err := r.ParseMultipartForm(maxReplayUpload); err != nil {
		writeError(w, common.NewErrInvalidArgument("expected a multipart form upload"))
		return nil, false
	}
	file, _, err := r.FormFile(field)
	if err != nil {
		writeError(w, common.NewErrInvalidArgumentf("missing replay file %q", field))
		return nil, false
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return replay_entity.NewReplayString(raw, nil), true
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case common.IsInvalidArgumentError(err), common.IsNoReplayDataError(err):
		status = http.StatusBadRequest
	case common.IsNoInfoAvailableError(err):
		status = http.StatusNotFound
	case common.IsNoLoaderError(err):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		slog.Error("analysis request failed", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

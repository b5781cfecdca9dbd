package osuapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	common "github.com/osuguard/osuguard/pkg/domain"
	replay_out "github.com/osuguard/osuguard/pkg/domain/replay/ports/out"
	"github.com/osuguard/osuguard/pkg/infra/metrics"
)

const defaultBaseURL = "https://osu.ppy.sh/api"

// gameModeStd is the m= parameter for the standard ruleset.
const gameModeStd = "0"

const (
	// maxJSONRetries bounds how often a malformed response is refetched.
	maxJSONRetries = 3
	// transportBackoff is how long to wait before retrying after a
	// transport-level failure.
	transportBackoff = 10 * time.Second
)

// Client is the osu! api v1 client. It maps api error bodies onto the
// common.ApiError taxonomy and recovers what can be recovered: ratelimits
// are waited out, malformed json is retried up to maxJSONRetries times,
// transport failures are retried after transportBackoff for as long as the
// context lives, an invalid key is fatal and an unavailable replay is
// reported as such. Heavy calls go through the ratelimit window first.
type Client struct {
	HttpClient *http.Client

	key     string
	baseURL string
	limiter *RateLimiter

	// sleep is swapped out by tests
	sleep func(ctx context.Context, d time.Duration) error
}

var _ replay_out.ApiClient = (*Client)(nil)

func NewClient(key string) *Client {
	return &Client{
		HttpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: time.Second * 30,
			},
			Timeout: time.Second * 30,
		},
		key:     key,
		baseURL: defaultBaseURL,
		limiter: NewRateLimiter(DefaultHeavyBudget),
		sleep:   sleepContext,
	}
}

func (c *Client) GetScoresAll(ctx context.Context, beatmapID, limit int) ([]replay_out.ScoreRow, error) {
	if limit < 2 || limit > 100 {
		return nil, common.NewErrInvalidArgumentf("the number of scores to fetch must be between 2 and 100 inclusive, got %d", limit)
	}
	params := url.Values{}
	params.Set("m", gameModeStd)
	params.Set("b", strconv.Itoa(beatmapID))
	params.Set("limit", strconv.Itoa(limit))

	var rows []replay_out.ScoreRow
	if err := c.getJSON(ctx, "get_scores", params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) GetScoresUser(ctx context.Context, beatmapID, userID int, mods int) ([]replay_out.ScoreRow, error) {
	params := url.Values{}
	params.Set("m", gameModeStd)
	params.Set("b", strconv.Itoa(beatmapID))
	params.Set("u", strconv.Itoa(userID))
	params.Set("type", "id")
	if mods >= 0 {
		params.Set("mods", strconv.Itoa(mods))
	}

	var rows []replay_out.ScoreRow
	if err := c.getJSON(ctx, "get_scores", params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) GetUserBest(ctx context.Context, userID, limit int) ([]replay_out.ScoreRow, error) {
	if limit < 2 || limit > 100 {
		return nil, common.NewErrInvalidArgumentf("the number of scores to fetch must be between 2 and 100 inclusive, got %d", limit)
	}
	params := url.Values{}
	params.Set("m", gameModeStd)
	params.Set("u", strconv.Itoa(userID))
	params.Set("type", "id")
	params.Set("limit", strconv.Itoa(limit))

	var rows []replay_out.ScoreRow
	if err := c.getJSON(ctx, "get_user_best", params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// replayResponse is the envelope of get_replay: base64 of the raw lzma
// stream.
type replayResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func (c *Client) GetReplay(ctx context.Context, beatmapID, userID int, mods int) ([]byte, error) {
	params := url.Values{}
	params.Set("m", gameModeStd)
	params.Set("b", strconv.Itoa(beatmapID))
	params.Set("u", strconv.Itoa(userID))
	params.Set("type", "id")
	if mods >= 0 {
		params.Set("mods", strconv.Itoa(mods))
	}
	return c.getReplayContent(ctx, params)
}

func (c *Client) GetReplayByID(ctx context.Context, replayID int64) ([]byte, error) {
	params := url.Values{}
	params.Set("m", gameModeStd)
	params.Set("s", strconv.FormatInt(replayID, 10))
	return c.getReplayContent(ctx, params)
}

func (c *Client) getReplayContent(ctx context.Context, params url.Values) ([]byte, error) {
	// get_replay calls are the expensive ones; gate them on the window
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	var resp replayResponse
	if err := c.getJSON(ctx, "get_replay", params, &resp); err != nil {
		return nil, err
	}
	lzmaBytes, err := base64.StdEncoding.DecodeString(resp.Content)
	if err != nil {
		return nil, common.NewApiError(common.ApiErrorUnknown, "", fmt.Errorf("malformed replay content: %w", err))
	}
	return lzmaBytes, nil
}

type userRow struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

func (c *Client) GetUsername(ctx context.Context, userID int) (string, error) {
	row, err := c.getUser(ctx, strconv.Itoa(userID), "id")
	if err != nil {
		return "", err
	}
	return row.Username, nil
}

func (c *Client) GetUserID(ctx context.Context, username string) (int, error) {
	row, err := c.getUser(ctx, username, "string")
	if err != nil {
		return 0, err
	}
	userID, err := strconv.Atoi(row.UserID)
	if err != nil {
		return 0, common.NewApiError(common.ApiErrorUnknown, "", fmt.Errorf("malformed user id %q", row.UserID))
	}
	return userID, nil
}

func (c *Client) getUser(ctx context.Context, user, userType string) (userRow, error) {
	params := url.Values{}
	params.Set("u", user)
	params.Set("type", userType)

	var rows []userRow
	if err := c.getJSON(ctx, "get_user", params, &rows); err != nil {
		return userRow{}, err
	}
	if len(rows) == 0 {
		return userRow{}, common.NewErrNoInfoAvailable("user", "u", user)
	}
	return rows[0], nil
}

type beatmapRow struct {
	BeatmapID string `json:"beatmap_id"`
}

func (c *Client) GetBeatmapID(ctx context.Context, beatmapHash string) (int, error) {
	params := url.Values{}
	params.Set("h", beatmapHash)

	var rows []beatmapRow
	if err := c.getJSON(ctx, "get_beatmaps", params, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, common.NewErrNoInfoAvailable("beatmap", "hash", beatmapHash)
	}
	beatmapID, err := strconv.Atoi(rows[0].BeatmapID)
	if err != nil {
		return 0, common.NewApiError(common.ApiErrorUnknown, "", fmt.Errorf("malformed beatmap id %q", rows[0].BeatmapID))
	}
	return beatmapID, nil
}

// getJSON fetches an endpoint and decodes its payload, applying the recovery
// policy per error kind.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	jsonRetries := 0
	for {
		err := c.fetchJSON(ctx, endpoint, params, out)
		if err == nil {
			metrics.OsuApiRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
			return nil
		}
		kind := common.ApiErrorKindOf(err)
		metrics.OsuApiRequestsTotal.WithLabelValues(endpoint, string(kind)).Inc()

		switch kind {
		case common.ApiErrorRatelimited:
			slog.InfoContext(ctx, "api ratelimited us, waiting out the window", "endpoint", endpoint)
			if sleepErr := c.limiter.SleepUntilReset(ctx); sleepErr != nil {
				return sleepErr
			}
		case common.ApiErrorInvalidJSON:
			jsonRetries++
			if jsonRetries > maxJSONRetries {
				return err
			}
			slog.WarnContext(ctx, "api returned malformed json, retrying", "endpoint", endpoint, "attempt", jsonRetries)
		case common.ApiErrorTransport:
			slog.WarnContext(ctx, "transport error, backing off and retrying", "endpoint", endpoint, "error", err)
			if sleepErr := c.sleep(ctx, transportBackoff); sleepErr != nil {
				return sleepErr
			}
		default:
			// InvalidKey, ReplayUnavailable, Unknown: not recoverable here
			return err
		}
	}
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	query := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	query.Set("k", c.key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, query.Encode()), nil)
	if err != nil {
		return common.NewApiError(common.ApiErrorUnknown, "", err)
	}

	res, err := c.HttpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return common.NewApiError(common.ApiErrorTransport, "", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return common.NewApiError(common.ApiErrorTransport, "", err)
	}

	if apiErr := errorFromBody(body); apiErr != nil {
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return common.NewApiError(common.ApiErrorInvalidJSON, string(body), err)
	}
	return nil
}

// errorBody is the shape of an api error response.
type errorBody struct {
	Error string `json:"error"`
}

// errorFromBody maps the api's error strings onto the error taxonomy.
func errorFromBody(body []byte) error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || eb.Error == "" {
		// not an error envelope; let the payload decode decide
		return nil
	}
	switch {
	case strings.HasPrefix(eb.Error, "Requesting too fast!"):
		return common.NewApiError(common.ApiErrorRatelimited, eb.Error, nil)
	case eb.Error == "Replay not available." || eb.Error == "Replay retrieval failed.":
		return common.NewApiError(common.ApiErrorReplayUnavailable, eb.Error, nil)
	case eb.Error == "Please provide a valid API key.":
		return common.NewApiError(common.ApiErrorInvalidKey, eb.Error, nil)
	default:
		return common.NewApiError(common.ApiErrorUnknown, eb.Error, nil)
	}
}

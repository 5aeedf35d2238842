package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	errs "vodarchiver/pkg/errors"
	"vodarchiver/pkg/logger"
	"vodarchiver/pkg/models"
	"vodarchiver/pkg/ratelimit"
)

const (
	// DefaultAuthURL is the Twitch OAuth token endpoint.
	DefaultAuthURL = "https://id.twitch.tv/oauth2/token"
	// DefaultAPIBase is the Helix API root.
	DefaultAPIBase = "https://api.twitch.tv/helix"
)

// Client talks to the Twitch Helix API using the client-credentials flow.
// The app token is fetched lazily on first use and reused until the API
// rejects it.
type Client struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	authURL      string
	apiBase      string
	limiter      ratelimit.Limiter
	logger       logger.Logger

	mu          sync.Mutex
	accessToken string
	userIDs     map[string]string
}

// NewClient creates a Helix client. No network traffic happens until the
// first listing call.
func NewClient(clientID, clientSecret string, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		authURL:      DefaultAuthURL,
		apiBase:      DefaultAPIBase,
		limiter:      ratelimit.NewTokenBucket(60, time.Minute),
		logger:       log,
		userIDs:      make(map[string]string),
	}
}

// SetEndpoints overrides the auth and API URLs. Used by tests.
func (c *Client) SetEndpoints(authURL, apiBase string) {
	c.authURL = authURL
	c.apiBase = apiBase
}

// authenticate fetches an app access token via the client credentials grant.
func (c *Client) authenticate(ctx context.Context) error {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"client_credentials"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return errs.Wrap(errs.ErrorTypeUnknown, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.limiter.Wait()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &errs.Error{
			Type:    errs.ErrorTypeAuth,
			Message: "token request rejected",
			Code:    resp.StatusCode,
		}
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return errs.Wrap(errs.ErrorTypeUnknown, err)
	}

	c.mu.Lock()
	c.accessToken = token.AccessToken
	c.mu.Unlock()

	c.logger.Info("authenticated with Twitch")
	return nil
}

// ensureToken fetches the app token if none is cached.
func (c *Client) ensureToken(ctx context.Context) error {
	c.mu.Lock()
	have := c.accessToken != ""
	c.mu.Unlock()
	if have {
		return nil
	}
	return c.authenticate(ctx)
}

// getJSON performs an authenticated GET and decodes the response. A 401
// invalidates the cached token and the request is retried once with a fresh
// one.
func (c *Client) getJSON(ctx context.Context, rawURL string, target interface{}) error {
	if err := c.ensureToken(ctx); err != nil {
		return err
	}

	for attempt := 0; attempt < 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return errs.Wrap(errs.ErrorTypeUnknown, err)
		}
		c.mu.Lock()
		token := c.accessToken
		c.mu.Unlock()
		req.Header.Set("Client-ID", c.clientID)
		req.Header.Set("Authorization", "Bearer "+token)

		c.limiter.Wait()
		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.ErrorWithFields("helix request failed", map[string]interface{}{
				"url":   rawURL,
				"error": err.Error(),
			})
			return errs.Wrap(errs.ErrorTypeNetwork, err)
		}

		c.logger.DebugWithFields("helix request completed", map[string]interface{}{
			"url":      rawURL,
			"status":   resp.StatusCode,
			"duration": time.Since(start),
		})

		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			c.mu.Lock()
			c.accessToken = ""
			c.mu.Unlock()
			if attempt == 0 {
				if err := c.authenticate(ctx); err != nil {
					return err
				}
				continue
			}
			return &errs.Error{Type: errs.ErrorTypeAuth, Message: "token rejected", Code: resp.StatusCode}
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			t := errs.ErrorTypeServerError
			if resp.StatusCode == http.StatusTooManyRequests {
				t = errs.ErrorTypeRateLimit
			} else if resp.StatusCode == http.StatusNotFound {
				t = errs.ErrorTypeNotFound
			}
			return &errs.Error{
				Type:    t,
				Message: fmt.Sprintf("helix returned status %d", resp.StatusCode),
				Code:    resp.StatusCode,
			}
		}

		err = json.NewDecoder(resp.Body).Decode(target)
		resp.Body.Close()
		if err != nil {
			return errs.Wrap(errs.ErrorTypeUnknown, err)
		}
		return nil
	}

	return errs.New(errs.ErrorTypeUnknown, "unreachable")
}

// UserID resolves a channel login to its user ID, caching the answer.
func (c *Client) UserID(ctx context.Context, login string) (string, error) {
	c.mu.Lock()
	if id, ok := c.userIDs[login]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	var users usersResponse
	u := fmt.Sprintf("%s/users?login=%s", c.apiBase, url.QueryEscape(login))
	if err := c.getJSON(ctx, u, &users); err != nil {
		return "", err
	}
	if len(users.Data) == 0 {
		return "", errs.New(errs.ErrorTypeNotFound, fmt.Sprintf("user %q not found", login))
	}

	id := users.Data[0].ID
	c.mu.Lock()
	c.userIDs[login] = id
	c.mu.Unlock()
	return id, nil
}

// ListRecent returns the channel's most recent past broadcasts, newest
// first. It fails closed: any transport or auth error yields an empty slice
// so the poll loop treats the cycle as "no new items" instead of crashing.
func (c *Client) ListRecent(ctx context.Context, channel string, limit int) []models.VOD {
	userID, err := c.UserID(ctx, channel)
	if err != nil {
		c.logger.WarnWithFields("failed to resolve channel, skipping cycle", map[string]interface{}{
			"channel": channel,
			"error":   err.Error(),
		})
		return nil
	}

	var videos videosResponse
	u := fmt.Sprintf("%s/videos?user_id=%s&type=archive&first=%s",
		c.apiBase, url.QueryEscape(userID), strconv.Itoa(limit))
	if err := c.getJSON(ctx, u, &videos); err != nil {
		c.logger.WarnWithFields("failed to list videos, skipping cycle", map[string]interface{}{
			"channel": channel,
			"error":   err.Error(),
		})
		return nil
	}

	vods := make([]models.VOD, 0, len(videos.Data))
	for _, v := range videos.Data {
		createdAt, err := time.Parse(time.RFC3339, v.CreatedAt)
		if err != nil {
			c.logger.WarnWithFields("skipping video with bad timestamp", map[string]interface{}{
				"vod_id":     v.ID,
				"created_at": v.CreatedAt,
			})
			continue
		}
		vods = append(vods, models.VOD{
			ID:           v.ID,
			Title:        v.Title,
			CreatedAt:    createdAt,
			Duration:     v.Duration,
			URL:          v.URL,
			ThumbnailURL: v.ThumbnailURL,
			Description:  v.Description,
		})
	}

	c.logger.InfoWithFields("listed recent broadcasts", map[string]interface{}{
		"channel": channel,
		"count":   len(vods),
	})

	return vods
}

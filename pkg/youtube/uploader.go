package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	errs "vodarchiver/pkg/errors"
	"vodarchiver/pkg/logger"
	"vodarchiver/pkg/models"
)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 5000
	uploadChunkSize   = 5 << 20
)

// ProgressFunc receives transfer snapshots during an upload.
type ProgressFunc func(models.Progress)

// Uploader publishes videos through the YouTube Data API using stored OAuth
// credentials. A missing token is an auth error, never an interactive
// prompt; the daemon runs headless and token bootstrap is a separate
// subcommand.
type Uploader struct {
	clientSecretsFile string
	tokenFile         string
	logger            logger.Logger
	onProgress        ProgressFunc

	service *yt.Service
}

// NewUploader creates an Uploader. No credentials are touched until
// Authenticate.
func NewUploader(clientSecretsFile, tokenFile string, log logger.Logger) *Uploader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Uploader{
		clientSecretsFile: clientSecretsFile,
		tokenFile:         tokenFile,
		logger:            log,
	}
}

// OnProgress registers a callback for upload progress.
func (u *Uploader) OnProgress(fn ProgressFunc) {
	u.onProgress = fn
}

// Authenticated reports whether a usable API client exists.
func (u *Uploader) Authenticated() bool {
	return u.service != nil
}

// Authenticate builds the API client from the stored token, refreshing it
// if expired. It fails with an auth error when the token file is absent.
func (u *Uploader) Authenticate(ctx context.Context) error {
	if u.service != nil {
		return nil
	}

	cfg, err := u.oauthConfig()
	if err != nil {
		return err
	}

	token, err := loadToken(u.tokenFile)
	if err != nil {
		return errs.New(errs.ErrorTypeAuth,
			fmt.Sprintf("no stored YouTube token (%v); run 'vodarchiver auth youtube' first", err))
	}

	source := cfg.TokenSource(ctx, token)
	service, err := yt.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, err)
	}

	// Persist a refreshed token so the next start skips the refresh round
	// trip.
	if fresh, err := source.Token(); err == nil && fresh.AccessToken != token.AccessToken {
		if err := saveToken(u.tokenFile, fresh); err != nil {
			u.logger.WithError(err).Warn("failed to persist refreshed YouTube token")
		}
	}

	u.service = service
	u.logger.Info("authenticated with YouTube")
	return nil
}

func (u *Uploader) oauthConfig() (*oauth2.Config, error) {
	data, err := os.ReadFile(u.clientSecretsFile)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeConfig,
			fmt.Sprintf("client secrets file not found: %s (download it from the Google Cloud Console)", u.clientSecretsFile))
	}

	cfg, err := google.ConfigFromJSON(data, yt.YoutubeUploadScope, yt.YoutubeScope)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, err)
	}
	return cfg, nil
}

// Upload publishes a local file and returns the new video ID. The upload is
// resumable and chunked; progress is reported through OnProgress.
func (u *Uploader) Upload(ctx context.Context, req models.UploadRequest) (string, error) {
	if err := u.Authenticate(ctx); err != nil {
		return "", err
	}

	file, err := os.Open(req.Path)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeFile, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeFile, err)
	}

	title := truncate(req.Title, maxTitleLen)
	description := truncate(req.Description, maxDescriptionLen)

	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       title,
			Description: description,
			Tags:        req.Tags,
			CategoryId:  req.CategoryID,
		},
		Status: &yt.VideoStatus{
			PrivacyStatus:           req.PrivacyStatus,
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	u.logger.InfoWithFields("starting upload", map[string]interface{}{
		"title":   title,
		"path":    req.Path,
		"size":    info.Size(),
		"privacy": req.PrivacyStatus,
	})

	call := u.service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(file, googleapi.ChunkSize(uploadChunkSize)).
		ProgressUpdater(func(current, total int64) {
			if u.onProgress == nil {
				return
			}
			if total == 0 {
				total = info.Size()
			}
			u.onProgress(models.Progress{Done: current, Total: total})
		}).
		Context(ctx)

	resp, err := call.Do()
	if err != nil {
		return "", classifyUploadError(err)
	}

	u.logger.InfoWithFields("upload complete", map[string]interface{}{
		"video_id": resp.Id,
		"url":      "https://www.youtube.com/watch?v=" + resp.Id,
	})

	return resp.Id, nil
}

// classifyUploadError maps Google API errors onto the archiver's taxonomy,
// surfacing the quota reasons the operator actually cares about.
func classifyUploadError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		reason := ""
		if len(apiErr.Errors) > 0 {
			reason = apiErr.Errors[0].Reason
		}
		switch reason {
		case "quotaExceeded":
			return &errs.Error{Type: errs.ErrorTypeRateLimit, Message: "daily upload quota exceeded", Code: apiErr.Code}
		case "uploadLimitExceeded":
			return &errs.Error{Type: errs.ErrorTypeRateLimit, Message: "upload limit exceeded", Code: apiErr.Code}
		}
		if apiErr.Code == 401 || apiErr.Code == 403 {
			return &errs.Error{Type: errs.ErrorTypeAuth, Message: apiErr.Message, Code: apiErr.Code}
		}
		if apiErr.Code >= 500 {
			return &errs.Error{Type: errs.ErrorTypeServerError, Message: apiErr.Message, Code: apiErr.Code}
		}
		return &errs.Error{Type: errs.ErrorTypeUnknown, Message: apiErr.Message, Code: apiErr.Code}
	}
	return errs.Wrap(errs.ErrorTypeNetwork, err)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token file: %w", err)
	}
	return &token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// TokenExpiry returns when the stored token expires, for status reporting.
// The zero time means no token is stored.
func (u *Uploader) TokenExpiry() time.Time {
	token, err := loadToken(u.tokenFile)
	if err != nil {
		return time.Time{}
	}
	return token.Expiry
}

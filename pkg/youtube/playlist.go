package youtube

import (
	"context"

	yt "google.golang.org/api/youtube/v3"
)

// EnsurePlaylist returns the ID of the named playlist on the authenticated
// channel, creating it (unlisted) when absent.
func (u *Uploader) EnsurePlaylist(ctx context.Context, name string) (string, error) {
	if err := u.Authenticate(ctx); err != nil {
		return "", err
	}

	pageToken := ""
	for {
		call := u.service.Playlists.List([]string{"snippet"}).Mine(true).MaxResults(50).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return "", classifyUploadError(err)
		}

		for _, pl := range resp.Items {
			if pl.Snippet != nil && pl.Snippet.Title == name {
				return pl.Id, nil
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	created, err := u.service.Playlists.Insert([]string{"snippet", "status"}, &yt.Playlist{
		Snippet: &yt.PlaylistSnippet{Title: name},
		Status:  &yt.PlaylistStatus{PrivacyStatus: "unlisted"},
	}).Context(ctx).Do()
	if err != nil {
		return "", classifyUploadError(err)
	}

	u.logger.InfoWithFields("created playlist", map[string]interface{}{
		"playlist_id": created.Id,
		"name":        name,
	})

	return created.Id, nil
}

// AddToPlaylist appends a video to a playlist.
func (u *Uploader) AddToPlaylist(ctx context.Context, playlistID, videoID string) error {
	if err := u.Authenticate(ctx); err != nil {
		return err
	}

	_, err := u.service.PlaylistItems.Insert([]string{"snippet"}, &yt.PlaylistItem{
		Snippet: &yt.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &yt.ResourceId{
				Kind:    "youtube#video",
				VideoId: videoID,
			},
		},
	}).Context(ctx).Do()
	if err != nil {
		return classifyUploadError(err)
	}

	return nil
}

package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Production endpoints; overridable for tests.
const (
	defaultDataBaseURL      = "https://www.googleapis.com/youtube/v3"
	defaultAnalyticsBaseURL = "https://youtubeanalytics.googleapis.com/v2"
	defaultUploadBaseURL    = "https://www.googleapis.com/upload/youtube/v3"
	defaultUserinfoURL      = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// ErrUnauthorized marks a bearer token Google refused. Callers fold this
// into a per-account expired flag rather than failing the batch.
var ErrUnauthorized = errors.New("google api: unauthorized")

// Client calls the YouTube Data and Analytics APIs with bearer tokens.
type Client struct {
	HTTP             *http.Client
	DataBaseURL      string
	AnalyticsBaseURL string
	UploadBaseURL    string
	UserinfoURL      string
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		HTTP:             &http.Client{Timeout: timeout},
		DataBaseURL:      defaultDataBaseURL,
		AnalyticsBaseURL: defaultAnalyticsBaseURL,
		UploadBaseURL:    defaultUploadBaseURL,
		UserinfoURL:      defaultUserinfoURL,
	}
}

// Channel is the normalized snippet+statistics snapshot of a channel.
type Channel struct {
	ID          string
	Title       string
	Thumbnail   string
	Subscribers int64
	Views       int64
}

// UserEmail returns the email of the account behind the access token.
func (c *Client) UserEmail(ctx context.Context, accessToken string) (string, error) {
	var out struct {
		Email string `json:"email"`
	}
	if err := c.getJSON(ctx, c.UserinfoURL, accessToken, &out); err != nil {
		return "", err
	}
	if out.Email == "" {
		return "", errors.New("userinfo response missing email")
	}
	return out.Email, nil
}

// OwnChannel fetches snippet and statistics for the channel owned by the
// token's account (channels.list with mine=true).
func (c *Client) OwnChannel(ctx context.Context, accessToken string) (*Channel, error) {
	endpoint := c.DataBaseURL + "/channels?part=snippet%2Cstatistics&mine=true"

	var out struct {
		Items []struct {
			ID      string `json:"id"`
			Snippet struct {
				Title      string `json:"title"`
				Thumbnails struct {
					Default struct {
						URL string `json:"url"`
					} `json:"default"`
				} `json:"thumbnails"`
			} `json:"snippet"`
			Statistics struct {
				SubscriberCount string `json:"subscriberCount"`
				ViewCount       string `json:"viewCount"`
			} `json:"statistics"`
		} `json:"items"`
	}
	if err := c.getJSON(ctx, endpoint, accessToken, &out); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, errors.New("no channel found for this account")
	}

	item := out.Items[0]
	subs, _ := strconv.ParseInt(item.Statistics.SubscriberCount, 10, 64)
	views, _ := strconv.ParseInt(item.Statistics.ViewCount, 10, 64)
	return &Channel{
		ID:          item.ID,
		Title:       item.Snippet.Title,
		Thumbnail:   item.Snippet.Thumbnails.Default.URL,
		Subscribers: subs,
		Views:       views,
	}, nil
}

// RecentViews queries the Analytics API for views over a trailing window,
// split by liveOrOnDemand and summed. Used as the realtime proxy metric.
func (c *Client) RecentViews(ctx context.Context, accessToken string, window time.Duration) (int64, error) {
	end := time.Now().UTC()
	start := end.Add(-window)

	q := url.Values{}
	q.Set("ids", "channel==MINE")
	q.Set("startDate", start.Format("2006-01-02"))
	q.Set("endDate", end.Format("2006-01-02"))
	q.Set("metrics", "views")
	q.Set("dimensions", "liveOrOnDemand")
	endpoint := c.AnalyticsBaseURL + "/reports?" + q.Encode()

	var out struct {
		Rows [][]json.RawMessage `json:"rows"`
	}
	if err := c.getJSON(ctx, endpoint, accessToken, &out); err != nil {
		return 0, err
	}

	var total int64
	for _, row := range out.Rows {
		if len(row) < 2 {
			continue
		}
		var v float64
		if err := json.Unmarshal(row[1], &v); err == nil {
			total += int64(v)
		}
	}
	return total, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, accessToken string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("google api returned %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

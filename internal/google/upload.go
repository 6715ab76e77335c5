package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// VideoMeta is the snippet/status payload for videos.insert.
type VideoMeta struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	CategoryID  string   `json:"category_id,omitempty"`
	Privacy     string   `json:"privacy"` // private, unlisted, public
}

const chunkRetries = 3

// StartResumableUpload opens a resumable upload session
// (videos.insert?uploadType=resumable) and returns the session URL.
func (c *Client) StartResumableUpload(ctx context.Context, accessToken string, meta VideoMeta, size int64, mimeType string) (string, error) {
	privacy := meta.Privacy
	if privacy == "" {
		privacy = "private"
	}
	body := map[string]interface{}{
		"snippet": map[string]interface{}{
			"title":       meta.Title,
			"description": meta.Description,
			"tags":        meta.Tags,
			"categoryId":  meta.CategoryID,
		},
		"status": map[string]interface{}{
			"privacyStatus": privacy,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	endpoint := c.UploadBaseURL + "/videos?uploadType=resumable&part=snippet%2Cstatus"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(size, 10))
	req.Header.Set("X-Upload-Content-Type", mimeType)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("resumable session init returned %d: %s", resp.StatusCode, string(b))
	}

	session := resp.Header.Get("Location")
	if session == "" {
		return "", errors.New("resumable session init returned no Location header")
	}
	return session, nil
}

// UploadChunks streams the video to the session URL in fixed-size chunks
// with Content-Range headers, re-sending the uncommitted tail of a chunk
// after a 5xx or transport error. Returns the created video ID.
func (c *Client) UploadChunks(ctx context.Context, accessToken, sessionURL string, r io.Reader, size, chunkSize int64) (string, error) {
	if chunkSize <= 0 {
		return "", errors.New("chunk size must be positive")
	}

	buf := make([]byte, chunkSize)
	var offset int64

	for offset < size {
		n, err := io.ReadFull(r, buf[:min64(chunkSize, size-offset)])
		if err != nil && err != io.ErrUnexpectedEOF {
			return "", fmt.Errorf("read upload source at offset %d: %w", offset, err)
		}
		chunk := buf[:n]

		videoID, next, err := c.putChunk(ctx, accessToken, sessionURL, chunk, offset, size)
		if err != nil {
			return "", err
		}
		if videoID != "" {
			return videoID, nil
		}
		offset = next
	}

	return "", fmt.Errorf("upload ended at offset %d without a completed response", offset)
}

// putChunk sends one chunk, retrying its uncommitted tail. Returns the
// video ID when the upload completed, else the next offset to send from.
func (c *Client) putChunk(ctx context.Context, accessToken, sessionURL string, chunk []byte, offset, total int64) (string, int64, error) {
	start := offset
	end := offset + int64(len(chunk))

	for attempt := 0; attempt <= chunkRetries; attempt++ {
		part := chunk[start-offset:]
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, bytes.NewReader(part))
		if err != nil {
			return "", 0, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Content-Length", strconv.Itoa(len(part)))
		req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end-1, total))

		resp, err := c.HTTP.Do(req)
		if err != nil {
			committed, perr := c.probeOffset(ctx, accessToken, sessionURL, total)
			if perr != nil {
				return "", 0, fmt.Errorf("chunk upload at %d: %w", start, err)
			}
			start = committed
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
			var out struct {
				ID string `json:"id"`
			}
			err := json.NewDecoder(resp.Body).Decode(&out)
			resp.Body.Close()
			if err != nil {
				return "", 0, fmt.Errorf("decode completed upload response: %w", err)
			}
			return out.ID, end, nil

		case resp.StatusCode == http.StatusPermanentRedirect: // 308: chunk accepted
			committed := parseRangeEnd(resp.Header.Get("Range"))
			resp.Body.Close()
			if committed > start {
				start = committed
			}
			if start >= end {
				return "", end, nil
			}
			// A missing Range header means nothing was committed;
			// a short one means a partial commit. Resend the tail.

		case resp.StatusCode >= 500:
			resp.Body.Close()
			committed, perr := c.probeOffset(ctx, accessToken, sessionURL, total)
			if perr == nil && committed > start {
				start = committed
			}
			if start >= end {
				return "", end, nil
			}

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return "", 0, fmt.Errorf("chunk upload returned %d: %s", resp.StatusCode, string(b))
		}
	}

	return "", 0, fmt.Errorf("chunk at offset %d failed after %d retries", offset, chunkRetries)
}

// probeOffset asks the session how many bytes it has committed
// (PUT with Content-Range: bytes */total).
func (c *Client) probeOffset(ctx context.Context, accessToken, sessionURL string, total int64) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Length", "0")
	req.Header.Set("Content-Range", fmt.Sprintf("bytes */%d", total))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPermanentRedirect {
		return 0, fmt.Errorf("status probe returned %d", resp.StatusCode)
	}
	return parseRangeEnd(resp.Header.Get("Range")), nil
}

// parseRangeEnd extracts the next offset from a "Range: bytes=0-N" header.
// Returns 0 when the header is missing or malformed (nothing committed).
func parseRangeEnd(header string) int64 {
	header = strings.TrimPrefix(header, "bytes=")
	idx := strings.LastIndex(header, "-")
	if idx < 0 {
		return 0
	}
	last, err := strconv.ParseInt(header[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return last + 1
}

// SetThumbnail uploads a custom thumbnail for a video (thumbnails.set).
func (c *Client) SetThumbnail(ctx context.Context, accessToken, videoID string, image io.Reader, mimeType string) error {
	endpoint := c.UploadBaseURL + "/thumbnails/set?videoId=" + videoID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, image)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", mimeType)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("thumbnails.set returned %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

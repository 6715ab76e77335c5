package google

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resumableServer fakes the upload session protocol: PUT chunks with
// Content-Range, 308 until complete, JSON body with the id at the end.
type resumableServer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	total     int64
	failPuts  int // respond 503 to this many data PUTs first
	dropAcks  int // 308 with no Range (bytes discarded) for this many data PUTs
	sessionID string
}

func (s *resumableServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if r.Method == http.MethodPost {
			// Session init.
			require.Equal(t, "resumable", r.URL.Query().Get("uploadType"))
			w.Header().Set("Location", "http://"+r.Host+"/session/"+s.sessionID)
			w.WriteHeader(http.StatusOK)
			return
		}

		require.Equal(t, http.MethodPut, r.Method)
		cr := r.Header.Get("Content-Range")

		if strings.HasPrefix(cr, "bytes */") {
			// Status probe.
			if s.buf.Len() > 0 {
				w.Header().Set("Range", fmt.Sprintf("bytes=0-%d", s.buf.Len()-1))
			}
			w.WriteHeader(http.StatusPermanentRedirect)
			return
		}

		if s.failPuts > 0 {
			s.failPuts--
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		if s.dropAcks > 0 {
			s.dropAcks--
			w.WriteHeader(http.StatusPermanentRedirect)
			return
		}

		var start, end, total int64
		_, err := fmt.Sscanf(cr, "bytes %d-%d/%d", &start, &end, &total)
		require.NoError(t, err)
		require.EqualValues(t, s.buf.Len(), start, "chunk must start at the committed offset")

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.EqualValues(t, end-start+1, len(body))
		s.buf.Write(body)

		if int64(s.buf.Len()) < total {
			w.Header().Set("Range", fmt.Sprintf("bytes=0-%d", s.buf.Len()-1))
			w.WriteHeader(http.StatusPermanentRedirect)
			return
		}
		s.total = total
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":%q}`, "vid-"+s.sessionID)
	}
}

func newUploadClient(t *testing.T, s *resumableServer) *Client {
	t.Helper()
	srv := httptest.NewServer(s.handler(t))
	t.Cleanup(srv.Close)
	c := NewClient(0)
	c.UploadBaseURL = srv.URL
	return c
}

func TestStartResumableUpload(t *testing.T) {
	s := &resumableServer{sessionID: "abc"}
	c := newUploadClient(t, s)

	url, err := c.StartResumableUpload(context.Background(), "tok", VideoMeta{Title: "clip"}, 1024, "video/mp4")
	require.NoError(t, err)
	assert.Contains(t, url, "/session/abc")
}

func TestUploadChunksAssemblesVideo(t *testing.T) {
	s := &resumableServer{sessionID: "chunked"}
	c := newUploadClient(t, s)

	payload := bytes.Repeat([]byte("abcdefgh"), 100) // 800 bytes, 3 chunks of 300
	session, err := c.StartResumableUpload(context.Background(), "tok", VideoMeta{Title: "clip"}, int64(len(payload)), "video/mp4")
	require.NoError(t, err)

	id, err := c.UploadChunks(context.Background(), "tok", session, bytes.NewReader(payload), int64(len(payload)), 300)
	require.NoError(t, err)
	assert.Equal(t, "vid-chunked", id)
	assert.Equal(t, payload, s.buf.Bytes())
}

func TestUploadChunksSingleChunk(t *testing.T) {
	s := &resumableServer{sessionID: "one"}
	c := newUploadClient(t, s)

	payload := []byte("tiny video")
	session, err := c.StartResumableUpload(context.Background(), "tok", VideoMeta{Title: "clip"}, int64(len(payload)), "video/mp4")
	require.NoError(t, err)

	id, err := c.UploadChunks(context.Background(), "tok", session, bytes.NewReader(payload), int64(len(payload)), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "vid-one", id)
}

func TestUploadChunksResendsAfterEmptyAck(t *testing.T) {
	// A 308 with no Range header means the session committed nothing;
	// the chunk must be resent, not skipped.
	s := &resumableServer{sessionID: "empty-ack", dropAcks: 1}
	c := newUploadClient(t, s)

	payload := bytes.Repeat([]byte("y"), 600)
	session, err := c.StartResumableUpload(context.Background(), "tok", VideoMeta{Title: "clip"}, int64(len(payload)), "video/mp4")
	require.NoError(t, err)

	id, err := c.UploadChunks(context.Background(), "tok", session, bytes.NewReader(payload), int64(len(payload)), 300)
	require.NoError(t, err)
	assert.Equal(t, "vid-empty-ack", id)
	assert.Equal(t, payload, s.buf.Bytes())
}

func TestUploadChunksRetriesAfterServerError(t *testing.T) {
	s := &resumableServer{sessionID: "retry", failPuts: 2}
	c := newUploadClient(t, s)

	payload := bytes.Repeat([]byte("x"), 500)
	session, err := c.StartResumableUpload(context.Background(), "tok", VideoMeta{Title: "clip"}, int64(len(payload)), "video/mp4")
	require.NoError(t, err)

	id, err := c.UploadChunks(context.Background(), "tok", session, bytes.NewReader(payload), int64(len(payload)), 200)
	require.NoError(t, err)
	assert.Equal(t, "vid-retry", id)
	assert.Equal(t, payload, s.buf.Bytes())
}

func TestParseRangeEnd(t *testing.T) {
	assert.EqualValues(t, 0, parseRangeEnd(""))
	assert.EqualValues(t, 0, parseRangeEnd("bytes=garbage"))
	assert.EqualValues(t, 1, parseRangeEnd("bytes=0-0"))
	assert.EqualValues(t, 300, parseRangeEnd("bytes=0-299"))
}

func TestSetThumbnail(t *testing.T) {
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/thumbnails/set", r.URL.Path)
		assert.Equal(t, "vid-1", r.URL.Query().Get("videoId"))
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(0)
	c.UploadBaseURL = srv.URL

	err := c.SetThumbnail(context.Background(), "tok", "vid-1", strings.NewReader("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", gotType)

	err = c.SetThumbnail(context.Background(), "bad-token", "vid-1", strings.NewReader("png-bytes"), "image/png")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/aslammaulana/yt-manager-backend/internal/google"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

func newRefresher(db *gorm.DB, fg *fakeGoogle) *google.Refresher {
	return google.NewRefresher(db, fg.oauthConfig())
}

// fakeChannel is what the fake data API reports for one account.
type fakeChannel struct {
	ID          string
	Title       string
	Subscribers int64
	Views       int64
	Realtime    int64
}

// fakeGoogle stands in for the OAuth token endpoint plus the Data,
// Analytics and userinfo APIs. Tokens map lets tests control which
// bearer tokens resolve to which channel.
type fakeGoogle struct {
	srv *httptest.Server

	mu            sync.Mutex
	refreshCalls  map[string]int // by refresh token
	channelCalls  int
	tokens        map[string]fakeChannel // by access token
	emails        map[string]string      // by access token
	rejectRefresh map[string]string      // refresh token -> oauth error code
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{
		refreshCalls:  map[string]int{},
		tokens:        map[string]fakeChannel{},
		emails:        map[string]string{},
		rejectRefresh: map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", f.handleToken)
	mux.HandleFunc("/userinfo", f.handleUserinfo)
	mux.HandleFunc("/channels", f.handleChannels)
	mux.HandleFunc("/analytics/reports", f.handleReports)

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

// grant registers an account: the given refresh token mints access tokens
// that resolve to email and ch.
func (f *fakeGoogle) grant(refreshToken, email string, ch fakeChannel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails["issued-by-"+refreshToken] = email
	f.tokens["issued-by-"+refreshToken] = ch
}

// accept registers an access token directly, without a refresh round-trip.
func (f *fakeGoogle) accept(accessToken, email string, ch fakeChannel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails[accessToken] = email
	f.tokens[accessToken] = ch
}

func (f *fakeGoogle) channelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channelCalls
}

func (f *fakeGoogle) refreshCount(refreshToken string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls[refreshToken]
}

func (f *fakeGoogle) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:   f.srv.URL + "/auth",
			TokenURL:  f.srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (f *fakeGoogle) client() *google.Client {
	c := google.NewClient(0)
	c.DataBaseURL = f.srv.URL
	c.AnalyticsBaseURL = f.srv.URL + "/analytics"
	c.UserinfoURL = f.srv.URL + "/userinfo"
	c.UploadBaseURL = f.srv.URL + "/upload"
	return c
}

func (f *fakeGoogle) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	rt := r.Form.Get("refresh_token")
	grantType := r.Form.Get("grant_type")

	if grantType == "authorization_code" {
		// Code exchange: the code doubles as the refresh token handle.
		code := r.Form.Get("code")
		f.writeToken(w, "issued-by-"+code, code)
		return
	}

	f.refreshCalls[rt]++
	if code, rejected := f.rejectRefresh[rt]; rejected {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, `{"error":%q}`, code)
		return
	}
	if _, ok := f.emails["issued-by-"+rt]; !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
		return
	}
	f.writeToken(w, "issued-by-"+rt, rt)
}

// writeToken responds with a one-hour token pair; callers hold f.mu.
func (f *fakeGoogle) writeToken(w http.ResponseWriter, accessToken, refreshToken string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    3600,
	})
}

func bearer(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) {
		return h[len(prefix):]
	}
	return ""
}

func (f *fakeGoogle) handleUserinfo(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	email, ok := f.emails[bearer(r)]
	f.mu.Unlock()
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"email": email})
}

func (f *fakeGoogle) handleChannels(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	ch, ok := f.tokens[bearer(r)]
	f.channelCalls++
	f.mu.Unlock()
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": []map[string]interface{}{{
			"id": ch.ID,
			"snippet": map[string]interface{}{
				"title": ch.Title,
				"thumbnails": map[string]interface{}{
					"default": map[string]string{"url": "https://example.com/" + ch.ID + ".png"},
				},
			},
			"statistics": map[string]string{
				"subscriberCount": strconv.FormatInt(ch.Subscribers, 10),
				"viewCount":       strconv.FormatInt(ch.Views, 10),
			},
		}},
	})
}

func (f *fakeGoogle) handleReports(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	ch, ok := f.tokens[bearer(r)]
	f.mu.Unlock()
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"rows": [][]interface{}{
			{"onDemand", ch.Realtime},
		},
	})
}

package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"content-marketplace/internal/domain/model"
)

const (
	stateCookie    = "oauth_state"
	returnToCookie = "oauth_return_to"
	githubUserURL  = "https://api.github.com/user"
)

// GitHubOAuth runs the authorization code flow against GitHub and turns the
// GitHub account into an Identity.
type GitHubOAuth struct {
	conf    *oauth2.Config
	userURL string
	secure  bool
}

func NewGitHubOAuth(clientID, clientSecret, baseURL string, secure bool) *GitHubOAuth {
	return &GitHubOAuth{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     github.Endpoint,
			RedirectURL:  baseURL + "/api/auth/callback/github",
			Scopes:       []string{"read:user", "user:email"},
		},
		userURL: githubUserURL,
		secure:  secure,
	}
}

// Enabled reports whether client credentials are configured.
func (o *GitHubOAuth) Enabled() bool {
	return o != nil && o.conf.ClientID != "" && o.conf.ClientSecret != ""
}

// Begin stores a fresh state (and where to return) in short-lived cookies and
// returns the provider URL to redirect to.
func (o *GitHubOAuth) Begin(w http.ResponseWriter, returnTo string) string {
	state := uuid.NewString()
	o.setTemp(w, stateCookie, state)
	if safeReturn(returnTo) {
		o.setTemp(w, returnToCookie, url.QueryEscape(returnTo))
	}
	return o.conf.AuthCodeURL(state)
}

// Complete validates state, exchanges the code and fetches the GitHub user.
// It returns the identity and the path to send the user back to.
func (o *GitHubOAuth) Complete(ctx context.Context, w http.ResponseWriter, r *http.Request) (*model.Identity, string, error) {
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || c.Value != r.URL.Query().Get("state") {
		return nil, "", errors.New("oauth state mismatch")
	}
	o.clearTemp(w, stateCookie)

	returnTo := "/"
	if rc, err := r.Cookie(returnToCookie); err == nil {
		if v, err := url.QueryUnescape(rc.Value); err == nil && safeReturn(v) {
			returnTo = v
		}
		o.clearTemp(w, returnToCookie)
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		return nil, "", errors.New("oauth code missing")
	}
	tok, err := o.conf.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("oauth exchange: %w", err)
	}
	id, err := o.fetchUser(ctx, o.conf.Client(ctx, tok))
	if err != nil {
		return nil, "", err
	}
	return id, returnTo, nil
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

func (o *GitHubOAuth) fetchUser(ctx context.Context, client *http.Client) (*model.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.userURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github user: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github user: status %d", resp.StatusCode)
	}

	var u githubUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("github user: %w", err)
	}
	if u.ID == 0 {
		return nil, errors.New("github user: missing id")
	}
	name := u.Name
	if name == "" {
		name = u.Login
	}
	return &model.Identity{
		UserIdentifier: strconv.FormatInt(u.ID, 10),
		DisplayName:    name,
		Email:          u.Email,
		AvatarURL:      u.AvatarURL,
	}, nil
}

func (o *GitHubOAuth) setTemp(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/api/auth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   o.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (o *GitHubOAuth) clearTemp(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{Name: name, Path: "/api/auth", MaxAge: -1, HttpOnly: true, Secure: o.secure})
}

// safeReturn only allows same-site absolute paths.
func safeReturn(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, "\\")
}

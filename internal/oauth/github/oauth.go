// Package github implements OAuth 2.0 authentication with GitHub.
// Unlike Google OIDC, GitHub uses OAuth 2.0 without ID tokens,
// requiring a separate API call to fetch user information.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
	"github.com/dropDatabas3/iridium/internal/oauth"
)

const (
	tokenEndpoint = "https://github.com/login/oauth/access_token"
	userEndpoint  = "https://api.github.com/user"
	emailEndpoint = "https://api.github.com/user/emails"
)

// Client is the GitHub OAuth 2.0 client.
type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	http *http.Client
}

// New creates a new GitHub OAuth client.
func New(clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

// FromProvider builds a Client from a configured external provider.
func FromProvider(p *repository.ExternalProvider) (*Client, error) {
	if err := oauth.RequireProps(p, oauth.PropClientID, oauth.PropClientSecret); err != nil {
		return nil, err
	}
	return New(
		p.Property(oauth.PropClientID),
		p.Property(oauth.PropClientSecret),
		p.Property(oauth.PropRedirectURL),
	), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

type userInfo struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type emailInfo struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Exchange exchanges an authorization code and returns the user profile.
// Any failure talking to GitHub is wrapped in repository.ErrClientCall so
// callers can map it to a 502 uniformly.
func (g *Client) Exchange(ctx context.Context, code string) (*oauth.Profile, error) {
	tok, err := g.exchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: github: %v", repository.ErrClientCall, err)
	}
	info, err := g.getUserWithEmail(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: github: %v", repository.ErrClientCall, err)
	}

	props := map[string]string{"login": info.Login}
	if info.AvatarURL != "" {
		props["avatar_url"] = info.AvatarURL
	}
	if info.Name != "" {
		props["name"] = info.Name
	}
	return &oauth.Profile{
		ExternalID: strconv.FormatInt(info.ID, 10),
		Email:      info.Email,
		// GitHub solo expone emails verificados por la API de emails.
		EmailVerified: true,
		Name:          info.Name,
		Properties:    props,
	}, nil
}

func (g *Client) exchangeCode(ctx context.Context, code string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("client_id", g.ClientID)
	form.Set("client_secret", g.ClientSecret)
	form.Set("code", code)
	if g.RedirectURL != "" {
		form.Set("redirect_uri", g.RedirectURL)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.Error != "" {
		return nil, fmt.Errorf("github oauth error: %s - %s", tr.Error, tr.ErrorDesc)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("no access_token in response")
	}
	return &tr, nil
}

func (g *Client) getUserWithEmail(ctx context.Context, accessToken string) (*userInfo, error) {
	info, err := g.getUserInfo(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	// GitHub sometimes returns empty email in user info, so we fetch
	// from /user/emails.
	if info.Email == "" {
		email, err := g.getPrimaryEmail(ctx, accessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to get email: %w", err)
		}
		info.Email = email.Email
	}
	return info, nil
}

func (g *Client) getUserInfo(ctx context.Context, accessToken string) (*userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", userEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github api error: status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

// getPrimaryEmail fetches the user's primary verified email.
// This is needed because some GitHub users have private emails.
func (g *Client) getPrimaryEmail(ctx context.Context, accessToken string) (*emailInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", emailEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github api error: status %d", resp.StatusCode)
	}

	var emails []emailInfo
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return nil, fmt.Errorf("failed to decode emails: %w", err)
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return &e, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return &e, nil
		}
	}
	if len(emails) > 0 {
		return &emails[0], nil
	}
	return nil, fmt.Errorf("no email found")
}

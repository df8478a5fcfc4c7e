// Package google implementa login con Google via OIDC: el id_token
// firmado reemplaza el fetch de perfil que GitHub resuelve por API.
package google

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
	"github.com/dropDatabas3/iridium/internal/oauth"
)

const discoveryURL = "https://accounts.google.com/.well-known/openid-configuration"

type discoveryDoc struct {
	Issuer        string `json:"issuer"`
	AuthEndpoint  string `json:"authorization_endpoint"`
	TokenEndpoint string `json:"token_endpoint"`
	JWKSURI       string `json:"jwks_uri"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"` // base64url
	E   string `json:"e"` // base64url
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// Client es el cliente OIDC de Google.
type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	http  *http.Client
	mu    sync.RWMutex
	disc  *discoveryDoc
	discU time.Time

	jwks   *jwks
	jwksAt time.Time
}

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

// Exchange canjea el code, verifica el id_token y retorna el perfil.
func (g *Client) Exchange(ctx context.Context, code string) (*oauth.Profile, error) {
	idToken, err := g.exchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: google: %v", repository.ErrClientCall, err)
	}
	claims, err := g.verifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: google: %v", repository.ErrClientCall, err)
	}

	props := map[string]string{}
	if claims.Picture != "" {
		props["picture"] = claims.Picture
	}
	if claims.Locale != "" {
		props["locale"] = claims.Locale
	}
	if claims.Name != "" {
		props["name"] = claims.Name
	}
	return &oauth.Profile{
		ExternalID:    claims.Sub,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Properties:    props,
	}, nil
}

func (g *Client) discovery(ctx context.Context) (*discoveryDoc, error) {
	g.mu.RLock()
	disc := g.disc
	stale := time.Since(g.discU) > 24*time.Hour
	g.mu.RUnlock()
	if disc != nil && !stale {
		return disc, nil
	}
	req, _ := http.NewRequestWithContext(ctx, "GET", discoveryURL, nil)
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var dd discoveryDoc
	if err := json.NewDecoder(resp.Body).Decode(&dd); err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.disc = &dd
	g.discU = time.Now()
	g.mu.Unlock()
	return &dd, nil
}

func (g *Client) getJWKS(ctx context.Context, uri string) (*jwks, error) {
	g.mu.RLock()
	j := g.jwks
	age := time.Since(g.jwksAt)
	g.mu.RUnlock()
	if j != nil && age < time.Hour {
		return j, nil
	}

	req, _ := http.NewRequestWithContext(ctx, "GET", uri, nil)
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("jwks http %d", resp.StatusCode)
	}
	var jj jwks
	if err := json.NewDecoder(resp.Body).Decode(&jj); err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.jwks = &jj
	g.jwksAt = time.Now()
	g.mu.Unlock()
	return &jj, nil
}

func (g *Client) rsaKeyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	disc, err := g.discovery(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := g.getJWKS(ctx, disc.JWKSURI)
	if err != nil {
		return nil, err
	}
	for _, k := range keys.Keys {
		if k.Kid == kid && strings.EqualFold(k.Kty, "RSA") {
			nb, err := base64.RawURLEncoding.DecodeString(k.N)
			if err != nil {
				return nil, err
			}
			eb, err := base64.RawURLEncoding.DecodeString(k.E)
			if err != nil {
				return nil, err
			}
			n := new(big.Int).SetBytes(nb)
			e := 0
			for _, b := range eb {
				e = (e << 8) | int(b)
			}
			if e == 0 {
				e = 65537
			}
			return &rsa.PublicKey{N: n, E: e}, nil
		}
	}
	return nil, errors.New("kid not found")
}

func (g *Client) exchangeCode(ctx context.Context, code string) (string, error) {
	disc, err := g.discovery(ctx)
	if err != nil {
		return "", err
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", g.ClientID)
	form.Set("client_secret", g.ClientSecret)
	form.Set("redirect_uri", g.RedirectURL)

	req, _ := http.NewRequestWithContext(ctx, "POST", disc.TokenEndpoint, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var b struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&b)
		return "", fmt.Errorf("token http %d: %s %s", resp.StatusCode, b.Error, b.ErrorDescription)
	}
	var tr struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", err
	}
	if tr.IDToken == "" {
		return "", errors.New("no id_token in response")
	}
	return tr.IDToken, nil
}

type idClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
	jwtv5.RegisteredClaims
}

// verifyIDToken valida firma, iss y aud del id_token.
func (g *Client) verifyIDToken(ctx context.Context, idToken string) (*idClaims, error) {
	disc, err := g.discovery(ctx)
	if err != nil {
		return nil, err
	}

	claims := &idClaims{}
	_, err = jwtv5.ParseWithClaims(idToken, claims, func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("id_token without kid")
		}
		return g.rsaKeyForKid(ctx, kid)
	},
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithIssuer(disc.Issuer),
		jwtv5.WithAudience(g.ClientID),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}
	if claims.Sub == "" {
		return nil, errors.New("id_token without sub")
	}
	return claims, nil
}

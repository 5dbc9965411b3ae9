package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GoogleProvider implementa Provider contra los endpoints OAuth2 de Google.
type GoogleProvider struct {
	clientID     string
	clientSecret string
	redirectURL  string
	tokenBaseURL string
	apiBaseURL   string
	client       *http.Client
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		tokenBaseURL: "https://oauth2.googleapis.com",
		apiBaseURL:   "https://www.googleapis.com",
		client:       &http.Client{Timeout: 15 * time.Second},
	}
}

// NewGoogleProviderWithBaseURLs permite apuntar a servidores de prueba.
func NewGoogleProviderWithBaseURLs(clientID, clientSecret, redirectURL, tokenBaseURL, apiBaseURL string) *GoogleProvider {
	p := NewGoogleProvider(clientID, clientSecret, redirectURL)
	p.tokenBaseURL = strings.TrimRight(tokenBaseURL, "/")
	p.apiBaseURL = strings.TrimRight(apiBaseURL, "/")
	return p
}

func (p *GoogleProvider) AuthURL() string {
	q := url.Values{}
	q.Set("client_id", p.clientID)
	q.Set("redirect_uri", p.redirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("access_type", "offline")
	return "https://accounts.google.com/o/oauth2/v2/auth?" + q.Encode()
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (Profile, error) {
	accessToken, err := p.exchangeCode(ctx, code)
	if err != nil {
		return Profile{}, err
	}
	return p.fetchProfile(ctx, accessToken)
}

func (p *GoogleProvider) exchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	form.Set("redirect_uri", p.redirectURL)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenBaseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("google token exchange: status=%d", resp.StatusCode)
	}

	var tr struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("google token exchange: empty access token")
	}
	return tr.AccessToken, nil
}

func (p *GoogleProvider) fetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBaseURL+"/oauth2/v2/userinfo", nil)
	if err != nil {
		return Profile{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Profile{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return Profile{}, fmt.Errorf("google profile fetch: status=%d", resp.StatusCode)
	}

	var user struct {
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(respBody, &user); err != nil {
		return Profile{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if user.Email == "" {
		return Profile{}, fmt.Errorf("google profile fetch: empty email")
	}

	emailAddr := strings.ToLower(user.Email)
	username := emailAddr
	if at := strings.Index(emailAddr, "@"); at > 0 {
		username = emailAddr[:at]
	}
	return Profile{
		Username: username,
		Email:    emailAddr,
		Picture:  user.Picture,
	}, nil
}

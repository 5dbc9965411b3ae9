package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GithubProvider implementa Provider contra la API de GitHub. El email es
// sintético (login@github.com) porque GitHub no garantiza exponer el real.
type GithubProvider struct {
	clientID     string
	clientSecret string
	authBaseURL  string
	apiBaseURL   string
	client       *http.Client
}

func NewGithubProvider(clientID, clientSecret string) *GithubProvider {
	return &GithubProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		authBaseURL:  "https://github.com",
		apiBaseURL:   "https://api.github.com",
		client:       &http.Client{Timeout: 15 * time.Second},
	}
}

// NewGithubProviderWithBaseURLs permite apuntar a servidores de prueba.
func NewGithubProviderWithBaseURLs(clientID, clientSecret, authBaseURL, apiBaseURL string) *GithubProvider {
	p := NewGithubProvider(clientID, clientSecret)
	p.authBaseURL = strings.TrimRight(authBaseURL, "/")
	p.apiBaseURL = strings.TrimRight(apiBaseURL, "/")
	return p
}

func (p *GithubProvider) AuthURL() string {
	return fmt.Sprintf("%s/login/oauth/authorize?client_id=%s", p.authBaseURL, p.clientID)
}

func (p *GithubProvider) Exchange(ctx context.Context, code string) (Profile, error) {
	accessToken, err := p.exchangeCode(ctx, code)
	if err != nil {
		return Profile{}, err
	}
	return p.fetchProfile(ctx, accessToken)
}

func (p *GithubProvider) exchangeCode(ctx context.Context, code string) (string, error) {
	reqBody, err := json.Marshal(map[string]string{
		"client_id":     p.clientID,
		"client_secret": p.clientSecret,
		"code":          code,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.authBaseURL+"/login/oauth/access_token", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

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
		return "", fmt.Errorf("github token exchange: status=%d", resp.StatusCode)
	}

	var tr struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("github token exchange: empty access token")
	}
	return tr.AccessToken, nil
}

func (p *GithubProvider) fetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBaseURL+"/user", nil)
	if err != nil {
		return Profile{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

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
		return Profile{}, fmt.Errorf("github profile fetch: status=%d", resp.StatusCode)
	}

	var user struct {
		Login     string `json:"login"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.Unmarshal(respBody, &user); err != nil {
		return Profile{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if user.Login == "" {
		return Profile{}, fmt.Errorf("github profile fetch: empty login")
	}

	login := strings.ToLower(user.Login)
	return Profile{
		Username: login,
		Email:    login + "@github.com",
		Picture:  user.AvatarURL,
	}, nil
}

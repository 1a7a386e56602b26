package oci

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/devctl/devctl/internal/features"
)

// registryToken obtains a bearer token for ref's repository, following
// the Docker Registry v2 token-auth flow: an unauthenticated ping,
// parsing its WWW-Authenticate challenge, then a token request against
// the challenge's realm/service with a pull scope. Returns an empty
// token (no error) for registries that don't challenge.
func (c *Client) registryToken(ctx context.Context, ref features.FeatureRef) (string, error) {
	pingURL := fmt.Sprintf("https://%s/v2/", ref.Registry)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pingURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return "", nil
	}

	challenge := resp.Header.Get("WWW-Authenticate")
	if challenge == "" {
		return "", fmt.Errorf("no WWW-Authenticate challenge from %s", ref.Registry)
	}
	realm, service := parseAuthChallenge(challenge)
	if realm == "" {
		return "", fmt.Errorf("unparseable WWW-Authenticate challenge: %s", challenge)
	}

	scope := fmt.Sprintf("repository:%s/%s:pull", ref.Repository, ref.Resource)
	tokenURL := fmt.Sprintf("%s?service=%s&scope=%s", realm, service, scope)
	tokenReq, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL, nil)
	if err != nil {
		return "", err
	}
	tokenResp, err := c.http.Do(tokenReq)
	if err != nil {
		return "", err
	}
	defer tokenResp.Body.Close()

	if tokenResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(tokenResp.Body)
		return "", fmt.Errorf("token request to %s failed with %d: %s", realm, tokenResp.StatusCode, string(body))
	}

	var payload struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(tokenResp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.Token != "" {
		return payload.Token, nil
	}
	return payload.AccessToken, nil
}

// parseAuthChallenge extracts realm and service from a Bearer
// WWW-Authenticate header: `Bearer realm="...",service="...",scope="..."`.
func parseAuthChallenge(header string) (realm, service string) {
	header = strings.TrimPrefix(header, "Bearer ")
	for _, pair := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		value := strings.Trim(strings.TrimSpace(kv[1]), `"`)
		switch key {
		case "realm":
			realm = value
		case "service":
			service = value
		}
	}
	return realm, service
}

// Package login signs an account in and syncs its plan and usage details.
package login

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wam-go/internal/config"
	"wam-go/internal/wam"
)

// ErrMissingCredential means the account has no email or stored credential.
var ErrMissingCredential = errors.New("account has no stored credential")

const (
	signInPath    = "/v1/accounts:signInWithPassword"
	authTokenPath = "/exa.seat_management.v1.SeatManagementService/GetOneTimeAuthToken"
	userPath      = "/exa.seat_management.v1.SeatManagementService/GetCurrentUser"
)

// Client performs the three-step sign-in: identity provider token, one-time
// auth token, then the current user record. Each step is tried once.
type Client struct {
	http        *http.Client
	apiKey      string
	identityURL string
	baseURL     string
	clock       wam.Clock
	logger      wam.Logger
}

// NewClient creates a Client from the login config.
func NewClient(cfg config.LoginConfig, clock wam.Clock, logger wam.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:        &http.Client{Timeout: timeout},
		apiKey:      cfg.FirebaseAPIKey,
		identityURL: strings.TrimRight(cfg.IdentityURL, "/"),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		clock:       clock,
		logger:      logger,
	}
}

type signInResponse struct {
	IDToken string `json:"idToken"`
}

type authTokenResponse struct {
	AuthToken      string `json:"auth_token"`
	AuthTokenCamel string `json:"authToken"`
}

type currentUserResponse struct {
	User *struct {
		APIKey *string `json:"api_key"`
	} `json:"user"`
	PlanInfo *struct {
		PlanName *string `json:"plan_name"`
		PlanTier *string `json:"plan_tier"`
	} `json:"plan_info"`
	PlanStatus *struct {
		PlanEnd           *string `json:"plan_end"`
		UsedPromptCredits *int    `json:"used_prompt_credits"`
		UsedFlowCredits   *int    `json:"used_flow_credits"`
	} `json:"plan_status"`
}

// Login signs acct in and returns a copy updated with the API key, plan
// and usage details, and the sync time. Fields the service omits keep
// their previous values.
func (c *Client) Login(ctx context.Context, acct wam.Account) (wam.Account, error) {
	if acct.Email == "" || acct.Credential == "" {
		return acct, fmt.Errorf("%s: %w", acct.Email, ErrMissingCredential)
	}
	if c.apiKey == "" {
		return acct, errors.New("login.firebase_api_key is not configured")
	}

	var signIn signInResponse
	signInURL := c.identityURL + signInPath + "?key=" + url.QueryEscape(c.apiKey)
	err := c.postJSON(ctx, signInURL, map[string]any{
		"email":             acct.Email,
		"password":          acct.Credential,
		"returnSecureToken": true,
	}, nil, &signIn)
	if err != nil {
		return acct, fmt.Errorf("signing in: %w", err)
	}
	if signIn.IDToken == "" {
		return acct, errors.New("signing in: response has no id token")
	}

	var auth authTokenResponse
	err = c.postJSON(ctx, c.baseURL+authTokenPath, map[string]any{
		"firebase_id_token": signIn.IDToken,
	}, nil, &auth)
	if err != nil {
		return acct, fmt.Errorf("getting auth token: %w", err)
	}
	token := auth.AuthToken
	if token == "" {
		token = auth.AuthTokenCamel
	}
	if token == "" {
		return acct, errors.New("getting auth token: response has no token")
	}

	var user currentUserResponse
	err = c.postJSON(ctx, c.baseURL+userPath, map[string]any{
		"auth_token":                token,
		"generateProfilePictureUrl": true,
		"createIfNotExist":          true,
		"includeSubscription":       true,
	}, map[string]string{"X-Auth-Token": token}, &user)
	if err != nil {
		return acct, fmt.Errorf("getting current user: %w", err)
	}

	if user.User != nil && user.User.APIKey != nil {
		acct.APIKey = user.User.APIKey
	}
	if p := user.PlanInfo; p != nil {
		if p.PlanName != nil {
			acct.PlanName = p.PlanName
		}
		if p.PlanTier != nil {
			acct.PlanTier = p.PlanTier
		}
	}
	if s := user.PlanStatus; s != nil {
		if s.PlanEnd != nil {
			acct.PlanEnd = s.PlanEnd
		}
		if s.UsedPromptCredits != nil {
			acct.UsedPromptCredits = s.UsedPromptCredits
		}
		if s.UsedFlowCredits != nil {
			acct.UsedFlowCredits = s.UsedFlowCredits
		}
	}
	now := c.clock.Now()
	acct.LastSyncTime = &now

	c.logger.Info("account synced", "account", acct.ID, "email", acct.Email)
	return acct, nil
}

func (c *Client) postJSON(ctx context.Context, target string, body any, headers map[string]string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

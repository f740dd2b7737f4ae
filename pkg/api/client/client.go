package client

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
)

// Client provides typed access to the Nebula console API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:4000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// BaseURL returns the normalised API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg := extractError(resp.Body)
		return APIError{Status: resp.StatusCode, Message: msg}
	}

	if v == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Error)
}

func itemPath(collection, id string, rest ...string) string {
	parts := []string{collection, url.PathEscape(id)}
	parts = append(parts, rest...)
	return strings.Join(parts, "/")
}

// LoginResponse captures the token payload emitted by the API.
type LoginResponse struct {
	User   User      `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

// User reflects API user payloads.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// TokenPair includes access and refresh tokens.
type TokenPair struct {
	AccessToken  string        `json:"AccessToken"`
	RefreshToken string        `json:"RefreshToken"`
	ExpiresIn    time.Duration `json:"ExpiresIn"`
}

// Signup creates an account and returns its first token pair.
func (c *Client) Signup(ctx context.Context, email, password string) (LoginResponse, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signup", body, "", &resp); err != nil {
		return LoginResponse{}, err
	}
	return resp, nil
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, "", &resp); err != nil {
		return LoginResponse{}, err
	}
	return resp, nil
}

// Session resolves the user behind token.
func (c *Client) Session(ctx context.Context, token string) (User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/session", nil, token, &resp); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

// Catalog returns the public sizing and pricing tables.
func (c *Client) Catalog(ctx context.Context) (Catalog, error) {
	var snapshot Catalog
	if err := c.do(ctx, http.MethodGet, "/catalog", nil, "", &snapshot); err != nil {
		return Catalog{}, err
	}
	return snapshot, nil
}

// ListVPS returns the caller's virtual servers.
func (c *Client) ListVPS(ctx context.Context, token string) ([]VPS, error) {
	var items []VPS
	if err := c.do(ctx, http.MethodGet, "/vps", nil, token, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateVPS records a new virtual server.
func (c *Client) CreateVPS(ctx context.Context, token string, input CreateVPSInput) (VPS, error) {
	var created VPS
	if err := c.do(ctx, http.MethodPost, "/vps", input, token, &created); err != nil {
		return VPS{}, err
	}
	return created, nil
}

// SetVPSStatus changes the status label of a server.
func (c *Client) SetVPSStatus(ctx context.Context, token, id, status string) (VPS, error) {
	var updated VPS
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPatch, itemPath("/vps", id), body, token, &updated); err != nil {
		return VPS{}, err
	}
	return updated, nil
}

// DeleteVPS removes a server record.
func (c *Client) DeleteVPS(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath("/vps", id), nil, token, nil)
}

// ListDatabases returns the caller's managed databases.
func (c *Client) ListDatabases(ctx context.Context, token string) ([]Database, error) {
	var items []Database
	if err := c.do(ctx, http.MethodGet, "/databases", nil, token, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateDatabase records a new managed database.
func (c *Client) CreateDatabase(ctx context.Context, token string, input CreateDatabaseInput) (Database, error) {
	var created Database
	if err := c.do(ctx, http.MethodPost, "/databases", input, token, &created); err != nil {
		return Database{}, err
	}
	return created, nil
}

// SetDatabaseStatus changes the status label of a database.
func (c *Client) SetDatabaseStatus(ctx context.Context, token, id, status string) (Database, error) {
	var updated Database
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPatch, itemPath("/databases", id), body, token, &updated); err != nil {
		return Database{}, err
	}
	return updated, nil
}

// DeleteDatabase removes a database record.
func (c *Client) DeleteDatabase(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath("/databases", id), nil, token, nil)
}

// ListBuckets returns the caller's storage buckets.
func (c *Client) ListBuckets(ctx context.Context, token string) ([]Bucket, error) {
	var items []Bucket
	if err := c.do(ctx, http.MethodGet, "/buckets", nil, token, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateBucket records a new bucket.
func (c *Client) CreateBucket(ctx context.Context, token string, input CreateBucketInput) (Bucket, error) {
	var created Bucket
	if err := c.do(ctx, http.MethodPost, "/buckets", input, token, &created); err != nil {
		return Bucket{}, err
	}
	return created, nil
}

// DeleteBucket removes a bucket record.
func (c *Client) DeleteBucket(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath("/buckets", id), nil, token, nil)
}

// BucketFiles lists the objects held by a bucket.
func (c *Client) BucketFiles(ctx context.Context, token, id string) ([]StoredFile, error) {
	var files []StoredFile
	if err := c.do(ctx, http.MethodGet, itemPath("/buckets", id, "files"), nil, token, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// ListSecurityGroups returns the caller's security groups.
func (c *Client) ListSecurityGroups(ctx context.Context, token string) ([]SecurityGroup, error) {
	var items []SecurityGroup
	if err := c.do(ctx, http.MethodGet, "/security-groups", nil, token, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateSecurityGroup records an empty group.
func (c *Client) CreateSecurityGroup(ctx context.Context, token string, input CreateSecurityGroupInput) (SecurityGroup, error) {
	var created SecurityGroup
	if err := c.do(ctx, http.MethodPost, "/security-groups", input, token, &created); err != nil {
		return SecurityGroup{}, err
	}
	return created, nil
}

// DeleteSecurityGroup removes a group together with its rules.
func (c *Client) DeleteSecurityGroup(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath("/security-groups", id), nil, token, nil)
}

// ListSecurityRules returns every rule the caller owns.
func (c *Client) ListSecurityRules(ctx context.Context, token string) ([]SecurityRule, error) {
	var items []SecurityRule
	if err := c.do(ctx, http.MethodGet, "/security-rules", nil, token, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateSecurityRule adds a rule to a group.
func (c *Client) CreateSecurityRule(ctx context.Context, token, groupID string, input CreateSecurityRuleInput) (SecurityRule, error) {
	var created SecurityRule
	if err := c.do(ctx, http.MethodPost, itemPath("/security-groups", groupID, "rules"), input, token, &created); err != nil {
		return SecurityRule{}, err
	}
	return created, nil
}

// DeleteSecurityRule removes a single rule.
func (c *Client) DeleteSecurityRule(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath("/security-rules", id), nil, token, nil)
}

// ListCredits returns the caller's credit ledger, newest first.
func (c *Client) ListCredits(ctx context.Context, token string) ([]CreditEntry, error) {
	var items []CreditEntry
	if err := c.do(ctx, http.MethodGet, "/credits", nil, token, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// PurchaseCredits records a purchase. amount is a dollar string such as "25" or "$10.50".
func (c *Client) PurchaseCredits(ctx context.Context, token, amount string) (CreditEntry, error) {
	var created CreditEntry
	body := map[string]string{"amount": amount}
	if err := c.do(ctx, http.MethodPost, "/credits", body, token, &created); err != nil {
		return CreditEntry{}, err
	}
	return created, nil
}

// ListNotifications returns the caller's notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context, token string) ([]Notification, error) {
	var items []Notification
	if err := c.do(ctx, http.MethodGet, "/notifications", nil, token, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// MarkNotificationRead flags one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodPost, itemPath("/notifications", id, "read"), nil, token, nil)
}

// MarkAllNotificationsRead flags every unread notification and returns how many changed.
func (c *Client) MarkAllNotificationsRead(ctx context.Context, token string) (int64, error) {
	var resp struct {
		Updated int64 `json:"updated"`
	}
	if err := c.do(ctx, http.MethodPost, "/notifications/read-all", nil, token, &resp); err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

// DeleteNotification removes a notification.
func (c *Client) DeleteNotification(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath("/notifications", id), nil, token, nil)
}

// ListPipelines returns the caller's pipelines.
func (c *Client) ListPipelines(ctx context.Context, token string) ([]Pipeline, error) {
	var items []Pipeline
	if err := c.do(ctx, http.MethodGet, "/pipelines", nil, token, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreatePipeline records a new idle pipeline.
func (c *Client) CreatePipeline(ctx context.Context, token string, input CreatePipelineInput) (Pipeline, error) {
	var created Pipeline
	if err := c.do(ctx, http.MethodPost, "/pipelines", input, token, &created); err != nil {
		return Pipeline{}, err
	}
	return created, nil
}

// RunPipeline marks a pipeline running.
func (c *Client) RunPipeline(ctx context.Context, token, id string) (Pipeline, error) {
	var updated Pipeline
	if err := c.do(ctx, http.MethodPost, itemPath("/pipelines", id, "run"), nil, token, &updated); err != nil {
		return Pipeline{}, err
	}
	return updated, nil
}

// StopPipeline marks a pipeline cancelled.
func (c *Client) StopPipeline(ctx context.Context, token, id string) (Pipeline, error) {
	var updated Pipeline
	if err := c.do(ctx, http.MethodPost, itemPath("/pipelines", id, "stop"), nil, token, &updated); err != nil {
		return Pipeline{}, err
	}
	return updated, nil
}

// DeletePipeline removes a pipeline.
func (c *Client) DeletePipeline(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath("/pipelines", id), nil, token, nil)
}

// PipelineBuilds returns the build history of a pipeline.
func (c *Client) PipelineBuilds(ctx context.Context, token, id string) ([]Build, error) {
	var builds []Build
	if err := c.do(ctx, http.MethodGet, itemPath("/pipelines", id, "builds"), nil, token, &builds); err != nil {
		return nil, err
	}
	return builds, nil
}

// Profile returns the caller's profile.
func (c *Client) Profile(ctx context.Context, token string) (Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/profile", nil, token, &p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// UpdateProfile replaces the editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, token string, update ProfileUpdate) (Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodPut, "/profile", update, token, &p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// SetupTwoFactor starts TOTP enrollment.
func (c *Client) SetupTwoFactor(ctx context.Context, token string) (TwoFactorEnrollment, error) {
	var enrollment TwoFactorEnrollment
	if err := c.do(ctx, http.MethodPost, "/profile/2fa/setup", nil, token, &enrollment); err != nil {
		return TwoFactorEnrollment{}, err
	}
	return enrollment, nil
}

// VerifyTwoFactor confirms enrollment with a code from the authenticator.
func (c *Client) VerifyTwoFactor(ctx context.Context, token, code string) (Profile, error) {
	var p Profile
	body := map[string]string{"code": code}
	if err := c.do(ctx, http.MethodPost, "/profile/2fa/verify", body, token, &p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// TeamMembers returns the IAM directory.
func (c *Client) TeamMembers(ctx context.Context, token string) ([]TeamMember, error) {
	var members []TeamMember
	if err := c.do(ctx, http.MethodGet, "/iam/members", nil, token, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// APIKeys returns the masked API key list.
func (c *Client) APIKeys(ctx context.Context, token string) ([]APIKey, error) {
	var keys []APIKey
	if err := c.do(ctx, http.MethodGet, "/iam/api-keys", nil, token, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// Package e2e drives a running vatgate server (pointed at the vies-mock
// upstream) through the Gherkin scenarios under features/.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const devSigningKey = "dev-secret-key-change-in-production"

// TestContext holds per-scenario state: the authenticated account and the
// last response.
type TestContext struct {
	BaseURL    string
	SigningKey string
	AdminToken string
	Issuer     string
	Audience   string

	client     *http.Client
	accountID  string
	token      string
	lastStatus int
	lastBody   []byte
	lastHeader http.Header
}

// NewTestContext reads the target from the environment.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(env("VATGATE_E2E_URL", "http://localhost:8080"), "/"),
		SigningKey: env("JWT_SIGNING_KEY", devSigningKey),
		AdminToken: os.Getenv("ADMIN_API_TOKEN"),
		Issuer:     env("JWT_ISSUER", "vatgate"),
		Audience:   env("JWT_AUDIENCE", "vatgate-api"),
		client:     &http.Client{Timeout: 2 * time.Minute},
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Reset clears scenario state. Called before each scenario.
func (tc *TestContext) Reset() {
	tc.accountID = ""
	tc.token = ""
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastHeader = nil
}

// Authenticate mints a token for accountID signed like the server's own.
func (tc *TestContext) Authenticate(accountID string) error {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		Issuer:    tc.Issuer,
		Audience:  jwt.ClaimStrings{tc.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		ID:        fmt.Sprintf("e2e-%d", now.UnixNano()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tc.SigningKey))
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	tc.accountID = accountID
	tc.token = signed
	return nil
}

func (tc *TestContext) GetAccountID() string {
	return tc.accountID
}

func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.do(http.MethodPost, path, body, nil)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

// POSTWithHeaders sends body with extra headers, for NDJSON and admin calls.
func (tc *TestContext) POSTWithHeaders(path string, body interface{}, headers map[string]string) error {
	return tc.do(http.MethodPost, path, body, headers)
}

func (tc *TestContext) do(method, path string, body interface{}, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastStatus = resp.StatusCode
	tc.lastHeader = resp.Header
	return nil
}

func (tc *TestContext) GetLastResponseStatus() int {
	return tc.lastStatus
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.lastBody
}

func (tc *TestContext) GetLastResponseHeader(name string) string {
	if tc.lastHeader == nil {
		return ""
	}
	return tc.lastHeader.Get(name)
}

func (tc *TestContext) GetAdminToken() string {
	return tc.AdminToken
}

// GetResponseField resolves a dotted path ("results.0.status") in the last
// JSON body.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var doc interface{}
	if err := json.Unmarshal(tc.lastBody, &doc); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	cur := doc
	for _, part := range strings.Split(field, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field %q not found", field)
			}
			cur = v
		case []interface{}:
			var i int
			if _, err := fmt.Sscanf(part, "%d", &i); err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range in %q", part, field)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("cannot descend into %q", field)
		}
	}
	return cur, nil
}

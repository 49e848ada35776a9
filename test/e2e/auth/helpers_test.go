package auth_test

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/habitauth/pkg/authsdk"
)

/*
 * Common constants and helper functions for auth service end-to-end tests.
 * This includes container setup, account creation and assertions.
 */

const (
	testImageName = "habitauth-test:latest"
	testIssuer    = "habitauth-e2e"
	testPassword  = "correct horse battery"
)

// TestMain builds the Docker image once before all tests and removes it
// afterwards. The suite is skipped under -short or without a docker CLI.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		fmt.Fprintln(os.Stdout, "skipping e2e tests in short mode")
		os.Exit(0)
	}
	if _, err := exec.LookPath("docker"); err != nil {
		fmt.Fprintln(os.Stdout, "skipping e2e tests: docker not found")
		os.Exit(0)
	}

	fmt.Fprintf(os.Stdout, "Building Auth Service Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Auth Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/auth/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	cmd := exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// baseEnv configures the container with relaxed rate limits. Tests make
// many rapid requests which would otherwise hit the production limits.
func baseEnv() map[string]string {
	return map[string]string{
		"AUTH_DB_DSN":      "file:/data/auth.db?_pragma=busy_timeout(5000)",
		"AUTH_PEPPER_FILE": "/data/pepper",
		"AUTH_ISSUER":      testIssuer,
		"AUTH_SIGNING_ALG": "EdDSA",
		"AUTH_NUM_KEYS":    "1",
		"AUTH_ENV":         "test",
		"AUTH_LOG_LEVEL":   "info",
		"AUTH_LOG_FORMAT":  "json",

		"RATELIMIT_LOGIN_REQUESTS":    "1000",
		"RATELIMIT_LOGIN_BURST":       "1000",
		"RATELIMIT_REGISTER_REQUESTS": "1000",
		"RATELIMIT_REGISTER_BURST":    "1000",
		"RATELIMIT_REFRESH_REQUESTS":  "1000",
		"RATELIMIT_REFRESH_BURST":     "1000",
	}
}

// setupAuthContainer starts the auth service and returns its base URL.
func setupAuthContainer(t *testing.T) string {
	t.Helper()
	return startContainer(t, baseEnv())
}

// setupAuthContainerWithDefaultRateLimits is for tests that check rate
// limiting itself.
func setupAuthContainerWithDefaultRateLimits(t *testing.T) string {
	t.Helper()
	env := baseEnv()
	for k := range env {
		if len(k) > 10 && k[:10] == "RATELIMIT_" {
			delete(env, k)
		}
	}
	return startContainer(t, env)
}

func startContainer(t *testing.T, env map[string]string) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)
	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, mappedPort.Port())
}

// registerUser creates an account and returns a session holding its tokens.
func registerUser(t *testing.T, client *authsdk.Client, username string) *authsdk.Session {
	t.Helper()

	session := client.NewSession()
	err := session.Register(t.Context(), authsdk.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
	})
	require.NoError(t, err, "Register should succeed")
	return session
}

// currentTokens returns the session's tokens, failing when there are none.
func currentTokens(t *testing.T, session *authsdk.Session) authsdk.Tokens {
	t.Helper()
	tokens, ok := session.Tokens()
	require.True(t, ok, "Session should hold tokens")
	require.NotEmpty(t, tokens.AccessToken, "Access token should not be empty")
	require.NotEmpty(t, tokens.RefreshToken, "Refresh token should not be empty")
	return tokens
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}

package testutil

import (
	"context"
	"os"
	"testing"

	"propdash/pkg/client"
)

// User is a login the server under test accepts.
type User struct {
	Username string
	Password string
}

type TestEnv struct {
	MongoURI     string
	DatabaseName string
	ServerURL    string
	Owner        User
	Other        User
}

// NewTestEnv skips t unless TEST_SERVER_URL points at a running server.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	serverURL := os.Getenv("TEST_SERVER_URL")
	if serverURL == "" {
		t.Skip("TEST_SERVER_URL not set; skipping integration test")
	}

	return &TestEnv{
		MongoURI:     getEnv("TEST_MONGO_URI", DefaultMongoURI),
		DatabaseName: getEnv("TEST_DB_NAME", DefaultDatabaseName),
		ServerURL:    serverURL,
		Owner: User{
			Username: getEnv("TEST_USERNAME", "Moudh"),
			Password: getEnv("TEST_PASSWORD", "Apartments123"),
		},
		Other: User{
			Username: getEnv("TEST_OTHER_USERNAME", "Guest"),
			Password: getEnv("TEST_OTHER_PASSWORD", "Guest123"),
		},
	}
}

// Setup empties the listings collection and waits for the server.
func (e *TestEnv) Setup(t *testing.T) *MongoHelper {
	t.Helper()

	mongo := NewMongoHelper(t, e.MongoURI, e.DatabaseName)
	mongo.CleanCollection(t, ListingsCollection)

	ctx, cancel := context.WithTimeout(context.Background(), DefaultHealthCheckTimeout)
	defer cancel()
	if err := client.NewListingClient(e.ServerURL, "").HTTP().WaitForHealthy(ctx, DefaultHealthCheckTimeout); err != nil {
		t.Fatalf("server not healthy: %v", err)
	}

	return mongo
}

func (e *TestEnv) Cleanup(t *testing.T, mongo *MongoHelper) {
	t.Helper()

	if mongo != nil {
		mongo.CleanCollection(t, ListingsCollection)
		mongo.Close(t)
	}
}

// Login returns a client holding a session for u.
func (e *TestEnv) Login(t *testing.T, u User) *client.ListingClient {
	t.Helper()

	c := client.NewListingClient(e.ServerURL, "")
	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()
	if _, err := c.Login(ctx, u.Username, u.Password); err != nil {
		t.Fatalf("login as %s failed: %v", u.Username, err)
	}
	return c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

const (
	DefaultHealthCheckTimeout = 3 * ConnectionTimeout
)

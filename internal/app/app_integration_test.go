package app_test

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pgrag/pgrag/internal/app"
	"github.com/pgrag/pgrag/internal/config"
	"github.com/pgrag/pgrag/internal/log"
	"github.com/pgrag/pgrag/internal/testutil"
)

const schemaDimension = 4096

// containerConfig converts a test container connection URL into the
// application's configuration shape.
func containerConfig(t *testing.T, connStr, providerURL string) *config.Config {
	t.Helper()

	u, err := url.Parse(connStr)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	password, _ := u.User.Password()

	return &config.Config{
		OllamaHost:       providerURL,
		ModelName:        "mistral",
		EmbedderModel:    "mistral",
		PostgresHost:     u.Hostname(),
		PostgresPort:     port,
		PostgresUser:     u.User.Username(),
		PostgresPassword: password,
		PostgresDBName:   strings.TrimPrefix(u.Path, "/"),
		PostgresSSLMode:  "disable",
	}
}

// TestSetup wires the full application against a containerized database
// and a fake provider, then exercises the store and engine end to end.
func TestSetup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	provider := testutil.NewFakeProvider(t, schemaDimension)
	provider.SetGenerateResponse("grounded answer")

	cfg := containerConfig(t, tdb.ConnStr, provider.URL())
	require.NoError(t, cfg.Validate())

	ctx := context.Background()
	a, err := app.Setup(ctx, cfg, log.NewNop())
	require.NoError(t, err)
	defer a.Close() //nolint:errcheck

	doc, err := a.Knowledge.Add(ctx, "pgvector stores embeddings in postgres", nil)
	require.NoError(t, err)
	require.Positive(t, doc.ID)

	results, err := a.Knowledge.Search(ctx, "pgvector stores embeddings in postgres")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, doc.ID, results[0].ID)

	answer, err := a.Engine.Answer(ctx, "where are embeddings stored?")
	require.NoError(t, err)
	require.Equal(t, "grounded answer", answer)
}

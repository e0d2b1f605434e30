//go:build integration

package natsrepo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/c360/authoritystore/document"
)

// startNATS runs a JetStream-enabled NATS container and returns a bucket.
func startNATS(t *testing.T) jetstream.KeyValue {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.11.7-alpine",
			ExposedPorts: []string{"4222/tcp"},
			Cmd:          []string{"--js", "--port", "4222"},
			WaitingFor:   wait.ForListeningPort("4222/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4222")
	require.NoError(t, err)

	conn, err := nats.Connect(fmt.Sprintf("nats://%s:%s", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	js, err := jetstream.New(conn)
	require.NoError(t, err)

	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  "authority-docs-test",
		History: 1,
	})
	require.NoError(t, err)
	return kv
}

func seedItem(t *testing.T, repo *Repository, csid, shortID, inAuthority string) {
	t.Helper()
	doc := document.New("vocabularyitems")
	doc.CSID = csid
	doc.Set(document.FieldShortIdentifier, shortID)
	doc.Set(document.FieldInAuthority, inAuthority)
	doc.Set(document.FieldWorkflowState, document.StateProject)
	_, err := repo.Create(context.Background(), doc)
	require.NoError(t, err)
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo := New(startNATS(t), nil)
	ctx := context.Background()

	doc := document.New("vocabularies")
	doc.Set(document.FieldShortIdentifier, "materials")
	doc.Set(document.FieldDisplayName, "Materials")

	csid, err := repo.Create(ctx, doc)
	require.NoError(t, err)
	require.NotEmpty(t, csid, "a CSID is minted when none is supplied")

	got, err := repo.Get(ctx, "vocabularies", csid)
	require.NoError(t, err)
	assert.Equal(t, "materials", got.GetString(document.FieldShortIdentifier))

	got.Set(document.FieldDisplayName, "Materials (updated)")
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.Get(ctx, "vocabularies", csid)
	require.NoError(t, err)
	assert.Equal(t, "Materials (updated)", got.GetString(document.FieldDisplayName))

	require.NoError(t, repo.Delete(ctx, "vocabularies", csid))
	_, err = repo.Get(ctx, "vocabularies", csid)
	assert.ErrorIs(t, err, document.ErrNoSuchDocument)
}

func TestRepositoryCreateDuplicate(t *testing.T) {
	repo := New(startNATS(t), nil)
	ctx := context.Background()

	doc := document.New("vocabularies")
	doc.CSID = "fixed-csid"
	_, err := repo.Create(ctx, doc)
	require.NoError(t, err)

	dup := document.New("vocabularies")
	dup.CSID = "fixed-csid"
	_, err = repo.Create(ctx, dup)
	assert.ErrorIs(t, err, document.ErrDuplicateKey)
}

func TestRepositoryFindScopedByType(t *testing.T) {
	repo := New(startNATS(t), nil)
	ctx := context.Background()

	seedItem(t, repo, "item-1", "red", "auth-A")
	seedItem(t, repo, "item-2", "red", "auth-B")
	seedItem(t, repo, "item-3", "blue", "auth-A")

	// Same short id under a different parent resolves independently.
	doc, err := repo.FindOne(ctx, document.
		ByField("vocabularyitems", document.FieldShortIdentifier, "red").
		And(document.FieldInAuthority, "auth-A"))
	require.NoError(t, err)
	assert.Equal(t, "item-1", doc.CSID)

	_, err = repo.FindOne(ctx, document.ByField("vocabularyitems", document.FieldShortIdentifier, "red"))
	assert.ErrorIs(t, err, document.ErrMultipleMatches)

	_, err = repo.FindOne(ctx, document.ByField("vocabularyitems", document.FieldShortIdentifier, "green"))
	assert.ErrorIs(t, err, document.ErrNoSuchDocument)
}

func TestRepositoryFindAllPagination(t *testing.T) {
	repo := New(startNATS(t), nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seedItem(t, repo, fmt.Sprintf("item-%d", i), fmt.Sprintf("short-%d", i), "auth-A")
	}

	where := document.ByField("vocabularyitems", document.FieldInAuthority, "auth-A")

	docs, total, err := repo.FindAll(ctx, where, document.Page{Size: 2, Num: 1, ComputeTotal: true})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, docs, 2)
	assert.Equal(t, "item-2", docs[0].CSID, "pages are ordered by CSID")

	docs, total, err = repo.FindAll(ctx, where, document.Page{Size: 2, Num: 5})
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, -1, total, "total not computed unless requested")

	// A negative page number is treated as the first page.
	docs, _, err = repo.FindAll(ctx, where, document.Page{Size: 2, Num: -1})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "item-0", docs[0].CSID)
}

func TestRepositoryFollowTransition(t *testing.T) {
	repo := New(startNATS(t), nil)
	ctx := context.Background()

	seedItem(t, repo, "item-1", "red", "auth-A")

	require.NoError(t, repo.FollowTransition(ctx, "vocabularyitems", "item-1", document.TransitionDelete))
	doc, err := repo.Get(ctx, "vocabularyitems", "item-1")
	require.NoError(t, err)
	assert.Equal(t, document.StateDeleted, doc.GetString(document.FieldWorkflowState))

	require.NoError(t, repo.FollowTransition(ctx, "vocabularyitems", "item-1", document.TransitionUndelete))
	doc, err = repo.Get(ctx, "vocabularyitems", "item-1")
	require.NoError(t, err)
	assert.Equal(t, document.StateProject, doc.GetString(document.FieldWorkflowState))

	err = repo.FollowTransition(ctx, "vocabularyitems", "item-1", "promote")
	assert.Error(t, err, "unknown transitions are rejected")
}

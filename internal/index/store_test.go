// Package index provides integration tests for the SurrealDB segment store.
package index

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testDimension = 8

var testClient *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testClient, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testClient.InitSchema(ctx, testDimension); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testClient.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

// axisEmbedding returns a unit vector along the given axis so distances
// between test segments are predictable.
func axisEmbedding(axis int) []float32 {
	embedding := make([]float32, testDimension)
	embedding[axis%testDimension] = 1.0
	return embedding
}

func TestBulkInsertAndSearch(t *testing.T) {
	ctx := context.Background()
	session := "session-search"
	defer func() { _ = testClient.DropSession(ctx, session) }()

	segments := []SegmentInput{
		{Session: session, Kind: KindText, Payload: "chunk about cats", Embedding: axisEmbedding(0)},
		{Session: session, Kind: KindText, Payload: "chunk about dogs", Embedding: axisEmbedding(1)},
		{Session: session, Kind: KindImage, Payload: "00001.jpg", Embedding: axisEmbedding(0)},
		{Session: session, Kind: KindImage, Payload: "00002.jpg", Embedding: axisEmbedding(2)},
	}
	if err := testClient.BulkInsert(ctx, segments); err != nil {
		t.Fatalf("BulkInsert failed: %v", err)
	}

	// Query along axis 0: nearest text chunk must be the cats chunk.
	matches, err := testClient.SearchKind(ctx, session, KindText, axisEmbedding(0), 3)
	if err != nil {
		t.Fatalf("SearchKind text failed: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("expected text matches")
	}
	if matches[0].Payload != "chunk about cats" {
		t.Errorf("expected cats chunk first, got %q", matches[0].Payload)
	}
	for _, m := range matches {
		if m.Kind != KindText {
			t.Errorf("text search returned kind %q", m.Kind)
		}
	}

	// Image search must only return image segments.
	imageMatches, err := testClient.SearchKind(ctx, session, KindImage, axisEmbedding(0), 2)
	if err != nil {
		t.Fatalf("SearchKind image failed: %v", err)
	}
	if len(imageMatches) == 0 {
		t.Fatal("expected image matches")
	}
	if imageMatches[0].Payload != "00001.jpg" {
		t.Errorf("expected 00001.jpg first, got %q", imageMatches[0].Payload)
	}
}

func TestSearchIsSessionScoped(t *testing.T) {
	ctx := context.Background()
	sessionA := "session-scope-a"
	sessionB := "session-scope-b"
	defer func() {
		_ = testClient.DropSession(ctx, sessionA)
		_ = testClient.DropSession(ctx, sessionB)
	}()

	err := testClient.BulkInsert(ctx, []SegmentInput{
		{Session: sessionA, Kind: KindText, Payload: "belongs to a", Embedding: axisEmbedding(0)},
		{Session: sessionB, Kind: KindText, Payload: "belongs to b", Embedding: axisEmbedding(0)},
	})
	if err != nil {
		t.Fatalf("BulkInsert failed: %v", err)
	}

	matches, err := testClient.SearchKind(ctx, sessionA, KindText, axisEmbedding(0), 10)
	if err != nil {
		t.Fatalf("SearchKind failed: %v", err)
	}
	for _, m := range matches {
		if m.Payload == "belongs to b" {
			t.Error("search leaked a segment from another session")
		}
	}
}

func TestSearchLimitZero(t *testing.T) {
	ctx := context.Background()

	matches, err := testClient.SearchKind(ctx, "any", KindText, axisEmbedding(0), 0)
	if err != nil {
		t.Fatalf("SearchKind failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches for limit 0, got %d", len(matches))
	}
}

func TestSearchLimitAboveDefaultCandidatePool(t *testing.T) {
	ctx := context.Background()
	session := "session-large-limit"
	defer func() { _ = testClient.DropSession(ctx, session) }()

	var segments []SegmentInput
	for i := 0; i < 6; i++ {
		segments = append(segments, SegmentInput{
			Session:   session,
			Kind:      KindText,
			Payload:   fmt.Sprintf("chunk %d", i),
			Embedding: axisEmbedding(i),
		})
	}
	if err := testClient.BulkInsert(ctx, segments); err != nil {
		t.Fatalf("BulkInsert failed: %v", err)
	}

	// A limit above the base candidate pool must still return every
	// stored segment, not error or truncate.
	matches, err := testClient.SearchKind(ctx, session, KindText, axisEmbedding(0), 50)
	if err != nil {
		t.Fatalf("SearchKind with large limit failed: %v", err)
	}
	if len(matches) != len(segments) {
		t.Errorf("expected %d matches, got %d", len(segments), len(matches))
	}
}

func TestBulkInsertEmpty(t *testing.T) {
	if err := testClient.BulkInsert(context.Background(), nil); err != nil {
		t.Fatalf("BulkInsert with no segments should be a no-op: %v", err)
	}
}

func TestDropSession(t *testing.T) {
	ctx := context.Background()
	session := "session-drop"

	err := testClient.BulkInsert(ctx, []SegmentInput{
		{Session: session, Kind: KindText, Payload: "to be dropped", Embedding: axisEmbedding(0)},
		{Session: session, Kind: KindImage, Payload: "00001.jpg", Embedding: axisEmbedding(1)},
	})
	if err != nil {
		t.Fatalf("BulkInsert failed: %v", err)
	}

	count, err := testClient.CountSession(ctx, session)
	if err != nil {
		t.Fatalf("CountSession failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 segments before drop, got %d", count)
	}

	if err := testClient.DropSession(ctx, session); err != nil {
		t.Fatalf("DropSession failed: %v", err)
	}

	count, err = testClient.CountSession(ctx, session)
	if err != nil {
		t.Fatalf("CountSession after drop failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 segments after drop, got %d", count)
	}

	// Dropping again is harmless.
	if err := testClient.DropSession(ctx, session); err != nil {
		t.Errorf("second DropSession should not error: %v", err)
	}
}

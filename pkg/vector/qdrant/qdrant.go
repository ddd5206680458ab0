// Package qdrant stores embeddings in a remote qdrant collection over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/inklingco/inkling/pkg/vector"
)

const payloadConversationID = "conversation_id"

// Driver implements vector.Driver on a qdrant collection. Document IDs become
// qdrant point IDs, which is why they must be UUIDs.
type Driver struct {
	client     *qdrant.Client
	collection string
	log        *slog.Logger
}

// Config carries the connection settings for a qdrant driver.
type Config struct {
	// Addr is the gRPC address of the qdrant server, as "host:port".
	Addr string
	// Collection is the name of the collection holding the embeddings.
	Collection string
	// Dimensions is the width of the embedding vectors.
	Dimensions uint
}

// NewDriver connects to qdrant and creates the collection if it does not
// exist yet. Existing collections are used as-is, so changing Dimensions
// requires dropping the collection first.
func NewDriver(ctx context.Context, c Config, log *slog.Logger) (*Driver, error) {
	if c.Addr == "" {
		return nil, fmt.Errorf("qdrant address is required")
	}
	if c.Collection == "" {
		return nil, fmt.Errorf("qdrant collection name is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("embedding dimensions are required")
	}

	host, portStr, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return nil, fmt.Errorf("parsing qdrant address %q: %w", c.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("parsing qdrant port %q: %w", portStr, err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}

	exists, err := client.CollectionExists(ctx, c.Collection)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: checking collection: %v", vector.ErrConnection, err)
	}
	if !exists {
		err := client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: c.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(c.Dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("creating collection %q: %w", c.Collection, err)
		}
	}

	log.Debug("connected to qdrant",
		slog.String("addr", c.Addr),
		slog.String("collection", c.Collection),
		slog.Uint64("dimensions", uint64(c.Dimensions)),
	)

	return &Driver{
		client:     client,
		collection: c.Collection,
		log:        log,
	}, nil
}

// Add upserts the documents into the collection, replacing any points that
// already carry the same IDs.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document ID is required")
		}
		if len(doc.Embedding) == 0 {
			return fmt.Errorf("document %s has no embedding", doc.ID)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(doc.ID),
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadConversationID: doc.ConversationID,
			}),
		})
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}

	d.log.Debug("added documents to qdrant", slog.Int("count", len(points)))
	return nil
}

// Query runs a nearest-neighbour search and returns the topK closest
// documents. Scores come straight from qdrant, where higher is closer.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding is required")
	}
	if topK <= 0 {
		topK = 10
	}

	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying collection %q: %w", d.collection, err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, point := range points {
		results = append(results, vector.QueryResult{
			Document: vector.Document{
				ID:             point.GetId().GetUuid(),
				ConversationID: point.GetPayload()[payloadConversationID].GetStringValue(),
			},
			Score: point.GetScore(),
		})
	}

	return results, nil
}

// Get fetches documents by ID, embeddings included. Missing IDs are left out
// of the result rather than reported as errors.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDUUID(id))
	}

	points, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting %d points: %w", len(ids), err)
	}

	docs := make([]vector.Document, 0, len(points))
	for _, point := range points {
		docs = append(docs, vector.Document{
			ID:             point.GetId().GetUuid(),
			ConversationID: point.GetPayload()[payloadConversationID].GetStringValue(),
			Embedding:      point.GetVectors().GetVector().GetData(),
		})
	}

	return docs, nil
}

// Delete removes the points with the given IDs. Unknown IDs are ignored.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDUUID(id))
	}

	_, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("deleting %d points: %w", len(ids), err)
	}

	return nil
}

// Close tears down the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

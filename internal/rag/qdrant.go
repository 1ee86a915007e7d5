package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Payload keys reserved by the Qdrant backend. Metadata keys are stored
// alongside them at the top level of the point payload.
const (
	payloadID       = "_id"
	payloadDocument = "_document"
)

// scrollPageSize is the page size used by GetAll.
const scrollPageSize = 256

// pointNamespace derives stable Qdrant point UUIDs from record ids, which are
// free-form strings such as "answer_1718000000000".
var pointNamespace = uuid.MustParse("6f1c2f0e-4a53-4c38-9d0b-8d3c2a4f7e11")

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// VectorSize is the dimensionality used when a collection is created.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements Store backed by a Qdrant instance.
type QdrantStore struct {
	client *qdrant.Client
	cfg    *QdrantConfig
}

// NewQdrantStore connects to Qdrant. Collections are created lazily by
// [QdrantStore.Collection].
func NewQdrantStore(cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.VectorSize == 0 {
		return nil, fmt.Errorf("qdrant: vector size must be set")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	return &QdrantStore{client: client, cfg: cfg}, nil
}

// Name implements Store.
func (s *QdrantStore) Name() string { return "qdrant" }

// Ping implements Store via the Qdrant health endpoint.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// Collection returns the named collection, creating it with cosine distance
// if it does not already exist.
func (s *QdrantStore) Collection(ctx context.Context, name string) (Collection, error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if !exists {
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.cfg.VectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant: failed to create collection %q: %w", name, err)
		}
	}
	return &qdrantCollection{client: s.client, name: name}, nil
}

// qdrantCollection implements Collection and Getter for one Qdrant collection.
type qdrantCollection struct {
	client *qdrant.Client
	name   string
}

func (c *qdrantCollection) Name() string { return c.name }

// pointID maps a record id onto a deterministic UUID point id.
func pointID(id string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(pointNamespace, []byte(id)).String())
}

// Insert upserts records and waits for the write to be applied.
func (c *qdrantCollection) Insert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		payload := map[string]any{
			payloadID:       r.ID,
			payloadDocument: r.Document,
		}
		for k, v := range r.Metadata {
			payload[k] = v
		}
		points = append(points, &qdrant.PointStruct{
			Id:      pointID(r.ID),
			Vectors: qdrant.NewVectors(r.Embedding...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	wait := true
	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.name,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert into %q failed: %w", c.name, err)
	}
	return nil
}

// Query performs a cosine similarity search. Qdrant reports similarity, so
// distance is 1 - score, clamped at zero.
func (c *qdrantCollection) Query(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, nil
	}
	limit := uint64(topK)
	results, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search in %q failed: %w", c.name, err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		dist := 1 - float64(r.Score)
		if dist < 0 {
			dist = 0
		}
		hits = append(hits, Hit{Record: recordFromPayload(r.Payload), Distance: dist})
	}
	return hits, nil
}

// GetAll scrolls through the whole collection.
func (c *qdrantCollection) GetAll(ctx context.Context) ([]Record, error) {
	var (
		out    []Record
		offset *qdrant.PointId
	)
	limit := uint32(scrollPageSize + 1)
	for {
		points, err := c.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: c.name,
			Offset:         offset,
			Limit:          &limit,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant: scroll %q failed: %w", c.name, err)
		}
		page := points
		if len(points) > scrollPageSize {
			page = points[:scrollPageSize]
		}
		for _, p := range page {
			out = append(out, recordFromPayload(p.Payload))
		}
		if len(points) <= scrollPageSize {
			return out, nil
		}
		// The extra point is the first one of the next page.
		offset = points[scrollPageSize].Id
	}
}

// Get looks up a record directly by id.
func (c *qdrantCollection) Get(ctx context.Context, id string) (Record, error) {
	points, err := c.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: c.name,
		Ids:            []*qdrant.PointId{pointID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return Record{}, fmt.Errorf("qdrant: get %q from %q failed: %w", id, c.name, err)
	}
	if len(points) == 0 {
		return Record{}, fmt.Errorf("qdrant: %q: %w", id, ErrNotFound)
	}
	return recordFromPayload(points[0].Payload), nil
}

// recordFromPayload rebuilds a Record from a Qdrant payload map.
func recordFromPayload(p map[string]*qdrant.Value) Record {
	rec := Record{Metadata: make(map[string]string, len(p))}
	for k, v := range p {
		switch k {
		case payloadID:
			rec.ID = v.GetStringValue()
		case payloadDocument:
			rec.Document = v.GetStringValue()
		default:
			rec.Metadata[k] = v.GetStringValue()
		}
	}
	return rec
}

var (
	_ Store      = (*QdrantStore)(nil)
	_ Collection = (*qdrantCollection)(nil)
	_ Getter     = (*qdrantCollection)(nil)
)

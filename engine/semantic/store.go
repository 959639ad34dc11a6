// Package semantic owns every Qdrant operation: collection lifecycle,
// point upserts, deletes, and filtered similarity search. No other
// package mutates index state.
package semantic

import (
	"context"
	"fmt"
	"sync/atomic"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/rentora/rentora-engine/engine/domain"
)

// pointsAPI is the slice of pb.PointsClient the store uses.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

// collectionsAPI is the slice of pb.CollectionsClient the store uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// VectorStore is the sole owner of the contract_vectors collection.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
	ready       atomic.Bool // collection known to exist
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, domain.E(domain.KindConfig, "semantic: dial qdrant", err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// NewWithClients builds a VectorStore over existing clients. Used by tests.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string) *VectorStore {
	return &VectorStore{points: points, collections: collections, collection: collection}
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// EnsureCollection creates the collection with the given vector size and
// cosine distance if it doesn't exist. Idempotent and race-safe: a
// concurrent creator's "already exists" is treated as success. After the
// first success the existence check is cached, so the per-request cost
// is a single atomic load.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	if v.ready.Load() {
		return nil
	}

	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return classify("semantic: list collections", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			v.ready.Store(true)
			return nil
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return classify(fmt.Sprintf("semantic: create collection %s", v.collection), err)
	}
	v.ready.Store(true)
	return nil
}

// Upsert stores point records with wait-for-completion semantics, so a
// search issued by the same caller immediately after sees the points.
func (v *VectorStore) Upsert(ctx context.Context, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Num{Num: r.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: toPayload(r.Payload),
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return classify(fmt.Sprintf("semantic: upsert %d points", len(records)), err)
	}
	return nil
}

// DeleteByLease removes every point belonging to a lease. Called before
// re-ingestion so stale chunks from a previous version never survive.
func (v *VectorStore) DeleteByLease(ctx context.Context, leaseID int64) error {
	wait := true
	_, err := v.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{
						intMatch("lease_id", leaseID),
					},
				},
			},
		},
	})
	if err != nil {
		return classify(fmt.Sprintf("semantic: delete lease %d points", leaseID), err)
	}
	return nil
}

// Search performs k-NN similarity search with an optional conjunction of
// exact-match payload filters. Empty filter means global search.
func (v *VectorStore) Search(ctx context.Context, embedding []float32, limit int, filter map[string]string) ([]SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         embedding,
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}

	if len(filter) > 0 {
		must := make([]*pb.Condition, 0, len(filter))
		for k, val := range filter {
			must = append(must, keywordMatch(k, val))
		}
		req.Filter = &pb.Filter{Must: must}
	}

	resp, err := v.points.Search(ctx, req)
	if err != nil {
		return nil, classify("semantic: search", err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		sr := SearchResult{
			ID:    r.GetId().GetNum(),
			Score: r.GetScore(),
		}
		for k, val := range r.GetPayload() {
			switch k {
			case "chunk_text":
				sr.ChunkText = val.GetStringValue()
			case "chunk_index":
				sr.ChunkIndex = val.GetIntegerValue()
			case "lease_id":
				sr.LeaseID = val.GetIntegerValue()
			case "contract_no":
				sr.ContractNo = val.GetStringValue()
			case "user_id":
				sr.UserID = val.GetStringValue()
			}
		}
		results[i] = sr
	}
	return results, nil
}

func toPayload(m map[string]any) map[string]*pb.Value {
	payload := make(map[string]*pb.Value, len(m))
	for k, val := range m {
		switch tv := val.(type) {
		case string:
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
		case int:
			payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
		case int64:
			payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
		case float64:
			payload[k] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
		case bool:
			payload[k] = &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
		default:
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
		}
	}
	return payload
}

func keywordMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func intMatch(key string, value int64) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Integer{Integer: value},
				},
			},
		},
	}
}

// classify maps a Qdrant gRPC failure onto the error taxonomy.
func classify(op string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return domain.E(domain.KindTransient, op, err)
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Canceled:
		return domain.E(domain.KindTransient, op, err)
	case codes.Unauthenticated, codes.PermissionDenied:
		return domain.E(domain.KindConfig, op, err)
	case codes.InvalidArgument, codes.FailedPrecondition:
		return domain.E(domain.KindSchema, op, err)
	case codes.NotFound:
		return domain.E(domain.KindNotFound, op, err)
	default:
		return domain.E(domain.KindUnknown, op, err)
	}
}

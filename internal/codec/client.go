package codec

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/amal/go-router/internal/rag"
)

// #region service
// ServiceName is the gRPC service exposed by the Python inference server.
// Every method takes and returns a google.protobuf.Struct.
const ServiceName = "amal.inference.v1.Inference"

const (
	MethodScoreDomain    = "ScoreDomain"
	MethodClassifyIntent = "ClassifyIntent"
	MethodEmbed          = "Embed"
	MethodSearch         = "Search"
	MethodComplete       = "Complete"
)

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}
// #endregion service

// #region client-struct
// CodecClient wraps the gRPC connection to the Python inference service.
// It serves as the domain scorer, intent classifier, embedder, passage
// search backend and completion model.
type CodecClient struct {
	conn    *grpc.ClientConn
	cc      grpc.ClientConnInterface
	timeout time.Duration
}
// #endregion client-struct

// #region constructor
// NewCodecClient connects to the Python inference gRPC server.
func NewCodecClient(addr string) (*CodecClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &CodecClient{conn: conn, cc: conn}, nil
}

// NewCodecClientWithConn creates a CodecClient over an existing connection.
// Used for testing without a real server.
func NewCodecClientWithConn(cc grpc.ClientConnInterface) *CodecClient {
	return &CodecClient{cc: cc}
}

// SetTimeout bounds every RPC. Zero disables the per-call deadline.
func (c *CodecClient) SetTimeout(d time.Duration) {
	c.timeout = d
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *CodecClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
// #endregion close

// #region invoke
func (c *CodecClient) invoke(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	out := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}
// #endregion invoke

// #region score-domain
// ScoreDomain returns the domain classifier's class probabilities for
// normalized text.
func (c *CodecClient) ScoreDomain(ctx context.Context, normalized string) (map[string]float64, error) {
	resp, err := c.invoke(ctx, MethodScoreDomain, map[string]any{"text": normalized})
	if err != nil {
		return nil, fmt.Errorf("score domain rpc: %w", err)
	}
	probs := resp.GetFields()["probabilities"].GetStructValue()
	if probs == nil {
		return nil, fmt.Errorf("score domain rpc: response has no probabilities")
	}
	out := make(map[string]float64, len(probs.GetFields()))
	for class, v := range probs.GetFields() {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("score domain rpc: class %q is not a number", class)
		}
		out[class] = n.NumberValue
	}
	return out, nil
}
// #endregion score-domain

// #region classify-intent
// ClassifyIntent returns the intent model's probability vector for raw text.
func (c *CodecClient) ClassifyIntent(ctx context.Context, raw string) ([]float64, error) {
	resp, err := c.invoke(ctx, MethodClassifyIntent, map[string]any{"text": raw})
	if err != nil {
		return nil, fmt.Errorf("classify intent rpc: %w", err)
	}
	list := resp.GetFields()["probabilities"].GetListValue()
	if list == nil {
		return nil, fmt.Errorf("classify intent rpc: response has no probabilities")
	}
	out := make([]float64, len(list.GetValues()))
	for i, v := range list.GetValues() {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("classify intent rpc: entry %d is not a number", i)
		}
		out[i] = n.NumberValue
	}
	return out, nil
}
// #endregion classify-intent

// #region embed
// Embed sends text to the inference service for embedding.
func (c *CodecClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.invoke(ctx, MethodEmbed, map[string]any{"text": text})
	if err != nil {
		return nil, fmt.Errorf("embed rpc: %w", err)
	}
	values := resp.GetFields()["embedding"].GetListValue().GetValues()
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v.GetNumberValue())
	}
	return out, nil
}
// #endregion embed

// #region search
// Search queries the knowledge-base collection held by the Python service.
func (c *CodecClient) Search(ctx context.Context, query string, topK int, minSimilarity float32) ([]rag.Passage, error) {
	resp, err := c.invoke(ctx, MethodSearch, map[string]any{
		"query_text":           query,
		"top_k":                topK,
		"similarity_threshold": minSimilarity,
	})
	if err != nil {
		return nil, fmt.Errorf("search rpc: %w", err)
	}

	values := resp.GetFields()["results"].GetListValue().GetValues()
	passages := make([]rag.Passage, 0, len(values))
	for _, v := range values {
		f := v.GetStructValue().GetFields()
		passages = append(passages, rag.Passage{
			ID:         f["id"].GetStringValue(),
			Text:       f["text"].GetStringValue(),
			Similarity: float32(f["score"].GetNumberValue()),
			Metadata:   stringMap(f["metadata"].GetStructValue()),
		})
	}
	return passages, nil
}
// #endregion search

// #region complete
// Complete asks the generation model to answer a prompt.
func (c *CodecClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.invoke(ctx, MethodComplete, map[string]any{"prompt": prompt})
	if err != nil {
		return "", fmt.Errorf("complete rpc: %w", err)
	}
	text := resp.GetFields()["text"].GetStringValue()
	if text == "" {
		return "", fmt.Errorf("complete rpc: empty completion")
	}
	return text, nil
}
// #endregion complete

// #region helpers
// stringMap flattens a metadata struct; non-string values are formatted.
func stringMap(s *structpb.Struct) map[string]string {
	if s == nil {
		return nil
	}
	out := make(map[string]string, len(s.GetFields()))
	for k, v := range s.GetFields() {
		if sv, ok := v.GetKind().(*structpb.Value_StringValue); ok {
			out[k] = sv.StringValue
			continue
		}
		out[k] = fmt.Sprint(v.AsInterface())
	}
	return out
}
// #endregion helpers

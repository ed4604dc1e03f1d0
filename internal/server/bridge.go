package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/uascm/uascm/internal/codec"
	"github.com/uascm/uascm/internal/nodeid"
	"github.com/uascm/uascm/internal/nodetype"
)

// Options configures the bridge connection.
type Options struct {
	Endpoint       string
	Token          string
	ConnectTimeout time.Duration
	Log            *zap.Logger
}

// BridgeClient implements Remote against the server's JSON-over-HTTP bridge.
// Change notifications arrive over a server-sent-event stream.
type BridgeClient struct {
	base   string
	token  string
	client *http.Client
	log    *zap.Logger
}

// Dial verifies the endpoint is reachable within the connect timeout and
// returns a client. A timeout surfaces as a ConnectionError wrapping a
// TimeoutError.
func Dial(ctx context.Context, opts Options) (*BridgeClient, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	c := &BridgeClient{
		base:   strings.TrimSuffix(opts.Endpoint, "/"),
		token:  opts.Token,
		client: &http.Client{},
		log:    log,
	}
	dialCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()
	req, err := c.newRequest(dialCtx, http.MethodGet, "/api/status", nil)
	if err != nil {
		return nil, &ConnectionError{Endpoint: opts.Endpoint, Err: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if dialCtx.Err() == context.DeadlineExceeded {
			return nil, &ConnectionError{
				Endpoint: opts.Endpoint,
				Err:      &TimeoutError{Op: "connect", After: opts.ConnectTimeout},
			}
		}
		return nil, &ConnectionError{Endpoint: opts.Endpoint, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &ConnectionError{
			Endpoint: opts.Endpoint,
			Err:      fmt.Errorf("status endpoint returned %s", resp.Status),
		}
	}
	log.Debug("connected", zap.String("endpoint", opts.Endpoint))
	return c, nil
}

func (c *BridgeClient) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

type wireValue struct {
	DataType  string `json:"dataType"`
	ArrayType string `json:"arrayType"`
	Content   string `json:"content"`
}

type wireNode struct {
	NodeId         string     `json:"nodeId"`
	TypeDefinition string     `json:"typeDefinition"`
	ModTimeMs      int64      `json:"mtime"`
	Value          *wireValue `json:"value"`
}

type wireReference struct {
	NodeId         string `json:"nodeId"`
	Name           string `json:"name"`
	TypeDefinition string `json:"typeDefinition"`
	ReferenceType  string `json:"referenceType"`
	Forward        bool   `json:"forward"`
	HasValue       bool   `json:"hasValue"`
}

func parseArrayType(s string) nodetype.ArrayType {
	switch strings.ToLower(s) {
	case "array":
		return nodetype.Array
	case "matrix":
		return nodetype.Matrix
	default:
		return nodetype.Scalar
	}
}

func toVariant(wv *wireValue) (*nodetype.Variant, error) {
	if wv == nil {
		return nil, nil
	}
	dt, ok := nodetype.DataTypeFromName(wv.DataType)
	if !ok {
		dt = nodetype.ByteString
	}
	at := parseArrayType(wv.ArrayType)
	raw, err := base64.StdEncoding.DecodeString(wv.Content)
	if err != nil {
		return nil, fmt.Errorf("value content: %w", err)
	}
	value, err := codec.Decode(raw, dt, at)
	if err != nil {
		return nil, err
	}
	return &nodetype.Variant{Value: value, DataType: dt, ArrayType: at}, nil
}

func fromVariant(v *nodetype.Variant) (*wireValue, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := codec.Encode(*v)
	if err != nil {
		return nil, err
	}
	return &wireValue{
		DataType:  strings.ToLower(v.DataType.String()),
		ArrayType: strings.ToLower(v.ArrayType.String()),
		Content:   base64.StdEncoding.EncodeToString(raw),
	}, nil
}

func (c *BridgeClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, Retryable(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Retryable(err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNodeNotFound
	case resp.StatusCode >= 500:
		return nil, Retryable(fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, resp.Status))
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, resp.Status)
	}
	return body, nil
}

func nodePath(id nodeid.NodeId) string {
	return "/api/nodes/" + url.PathEscape(id.String())
}

// Read fetches one node snapshot.
func (c *BridgeClient) Read(ctx context.Context, id nodeid.NodeId) (ReadResult, error) {
	req, err := c.newRequest(ctx, http.MethodGet, nodePath(id), nil)
	if err != nil {
		return ReadResult{}, err
	}
	body, err := c.do(req)
	if err != nil {
		return ReadResult{}, err
	}
	var wn wireNode
	if err := json.Unmarshal(body, &wn); err != nil {
		return ReadResult{}, fmt.Errorf("read %s: %w", id, err)
	}
	value, err := toVariant(wn.Value)
	if err != nil {
		return ReadResult{}, fmt.Errorf("read %s: %w", id, err)
	}
	typeDef, err := nodeid.Parse(wn.TypeDefinition)
	if err != nil {
		return ReadResult{}, fmt.Errorf("read %s: %w", id, err)
	}
	return ReadResult{
		NodeId:         id,
		Value:          value,
		TypeDefinition: typeDef,
		ModTime:        time.UnixMilli(wn.ModTimeMs).UTC(),
	}, nil
}

// Browse lists the references of one node.
func (c *BridgeClient) Browse(ctx context.Context, id nodeid.NodeId) ([]ReferenceDescriptor, error) {
	req, err := c.newRequest(ctx, http.MethodGet, nodePath(id)+"/references", nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var refs []wireReference
	if err := json.Unmarshal(body, &refs); err != nil {
		return nil, fmt.Errorf("browse %s: %w", id, err)
	}
	out := make([]ReferenceDescriptor, 0, len(refs))
	for _, wr := range refs {
		target, err := nodeid.Parse(wr.NodeId)
		if err != nil {
			return nil, fmt.Errorf("browse %s: %w", id, err)
		}
		typeDef, err := nodeid.Parse(wr.TypeDefinition)
		if err != nil {
			return nil, fmt.Errorf("browse %s: %w", id, err)
		}
		out = append(out, ReferenceDescriptor{
			NodeId:         target,
			Name:           wr.Name,
			TypeDefinition: typeDef,
			ReferenceType:  wr.ReferenceType,
			IsForward:      wr.Forward,
			HasValue:       wr.HasValue,
		})
	}
	return out, nil
}

// Write replaces a node's value.
func (c *BridgeClient) Write(ctx context.Context, id nodeid.NodeId, value *nodetype.Variant) error {
	wv, err := fromVariant(value)
	if err != nil {
		return err
	}
	body, err := json.Marshal(wv)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPut, nodePath(id)+"/value", body)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// CreateNode creates a node below its parent.
func (c *BridgeClient) CreateNode(ctx context.Context, spec NodeSpec) error {
	wv, err := fromVariant(spec.Value)
	if err != nil {
		return err
	}
	body, err := json.Marshal(map[string]any{
		"nodeId":         spec.NodeId.String(),
		"parent":         spec.Parent.String(),
		"name":           spec.Name,
		"typeDefinition": spec.TypeDefinition.String(),
		"value":          wv,
	})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/nodes", body)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// AddReference adds an edge between two existing nodes.
func (c *BridgeClient) AddReference(ctx context.Context, ref ReferenceSpec) error {
	body, err := json.Marshal(map[string]any{
		"source":        ref.Source.String(),
		"target":        ref.Target.String(),
		"referenceType": ref.ReferenceType,
	})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/references", body)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// Close releases client resources.
func (c *BridgeClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

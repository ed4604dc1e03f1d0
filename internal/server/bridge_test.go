package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uascm/uascm/internal/nodeid"
	"github.com/uascm/uascm/internal/nodetype"
)

func dialTest(t *testing.T, handler http.Handler) *BridgeClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := Dial(context.Background(), Options{Endpoint: srv.URL, Token: "tok"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func statusOK(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestDial_RefusesBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), Options{Endpoint: srv.URL})
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, srv.URL, connErr.Endpoint)
}

func TestDial_TimeoutIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), Options{
		Endpoint:       srv.URL,
		ConnectTimeout: 50 * time.Millisecond,
	})
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	var timeout *TimeoutError
	assert.ErrorAs(t, err, &timeout)
}

func TestRead_DecodesNodeSnapshot(t *testing.T) {
	mux := http.NewServeMux()
	statusOK(mux)
	mux.HandleFunc("/api/nodes/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"nodeId":         "ns=1;s=AGENT.Counter",
			"typeDefinition": "ns=0;i=63",
			"mtime":          int64(1700000000000),
			"value": map[string]any{
				"dataType":  "int32",
				"arrayType": "scalar",
				"content":   base64.StdEncoding.EncodeToString([]byte("42")),
			},
		})
	})
	c := dialTest(t, mux)

	rr, err := c.Read(context.Background(), nodeid.NewString(nodeid.DefaultNamespace, "AGENT.Counter"))
	require.NoError(t, err)
	require.NotNil(t, rr.Value)
	assert.Equal(t, int64(42), rr.Value.Value)
	assert.Equal(t, nodetype.Int32, rr.Value.DataType)
	assert.Equal(t, "ns=0;i=63", rr.TypeDefinition.String())
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), rr.ModTime)
}

func TestRead_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	statusOK(mux)
	mux.HandleFunc("/api/nodes/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	c := dialTest(t, mux)

	_, err := c.Read(context.Background(), nodeid.NewString(nodeid.DefaultNamespace, "AGENT.Gone"))
	require.ErrorIs(t, err, ErrNodeNotFound)
}

func TestRead_ServerErrorIsRetryable(t *testing.T) {
	mux := http.NewServeMux()
	statusOK(mux)
	mux.HandleFunc("/api/nodes/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := dialTest(t, mux)

	_, err := c.Read(context.Background(), nodeid.NewString(nodeid.DefaultNamespace, "AGENT.Flaky"))
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestBrowse_DecodesReferences(t *testing.T) {
	mux := http.NewServeMux()
	statusOK(mux)
	mux.HandleFunc("/api/nodes/", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{
				"nodeId":         "ns=1;s=AGENT.Counter",
				"name":           "Counter",
				"typeDefinition": "ns=0;i=63",
				"referenceType":  "HasComponent",
				"forward":        true,
				"hasValue":       true,
			},
		})
	})
	c := dialTest(t, mux)

	refs, err := c.Browse(context.Background(), nodeid.NewString(nodeid.DefaultNamespace, "AGENT"))
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "ns=1;s=AGENT.Counter", refs[0].NodeId.String())
	assert.Equal(t, "Counter", refs[0].Name)
	assert.True(t, refs[0].IsForward)
	assert.True(t, refs[0].HasValue)
}

func TestWrite_SendsEncodedValue(t *testing.T) {
	var got wireValue
	mux := http.NewServeMux()
	statusOK(mux)
	mux.HandleFunc("/api/nodes/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})
	c := dialTest(t, mux)

	err := c.Write(context.Background(),
		nodeid.NewString(nodeid.DefaultNamespace, "AGENT.Counter"),
		&nodetype.Variant{Value: int64(42), DataType: nodetype.Int32})
	require.NoError(t, err)

	assert.Equal(t, "int32", got.DataType)
	assert.Equal(t, "scalar", got.ArrayType)
	raw, err := base64.StdEncoding.DecodeString(got.Content)
	require.NoError(t, err)
	assert.Equal(t, "42", string(raw))
}

func TestCreateNode_PostsSpec(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	statusOK(mux)
	mux.HandleFunc("/api/nodes", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})
	c := dialTest(t, mux)

	id := nodeid.NewString(nodeid.DefaultNamespace, "AGENT.New")
	parent, _ := id.Parent()
	err := c.CreateNode(context.Background(), NodeSpec{
		NodeId:         id,
		Parent:         parent,
		Name:           "New",
		TypeDefinition: nodeid.NewNumeric(0, 63),
		Value:          &nodetype.Variant{Value: true, DataType: nodetype.Boolean},
	})
	require.NoError(t, err)

	assert.Equal(t, "ns=1;s=AGENT.New", got["nodeId"])
	assert.Equal(t, "ns=1;s=AGENT", got["parent"])
	assert.Equal(t, "New", got["name"])
	assert.Equal(t, "ns=0;i=63", got["typeDefinition"])
}

func TestAddReference_PostsEdge(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	statusOK(mux)
	mux.HandleFunc("/api/references", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})
	c := dialTest(t, mux)

	err := c.AddReference(context.Background(), ReferenceSpec{
		Source:        nodeid.NewString(nodeid.DefaultNamespace, "AGENT.DISPLAYS.Main"),
		Target:        nodeid.NewString(nodeid.DefaultNamespace, "AGENT.LIB.Util"),
		ReferenceType: "HasDependency",
	})
	require.NoError(t, err)
	assert.Equal(t, "HasDependency", got["referenceType"])
}

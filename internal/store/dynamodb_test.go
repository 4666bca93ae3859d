package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamoDB answers GetItem and PutItem on the JSON 1.0 protocol.
type fakeDynamoDB struct {
	mu     sync.Mutex
	items  map[string]map[string]map[string]string
	tables []string
	auth   []string
}

func (f *fakeDynamoDB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body struct {
		TableName string                       `json:"TableName"`
		Key       map[string]map[string]string `json:"Key"`
		Item      map[string]map[string]string `json:"Item"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.tables = append(f.tables, body.TableName)
	f.auth = append(f.auth, r.Header.Get("Authorization"))

	w.Header().Set("Content-Type", "application/x-amz-json-1.0")
	switch r.Header.Get("X-Amz-Target") {
	case "DynamoDB_20120810.GetItem":
		item, ok := f.items[body.Key[dynamoKeyAttr]["S"]]
		if !ok {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"Item": item})
	case "DynamoDB_20120810.PutItem":
		f.items[body.Item[dynamoKeyAttr]["S"]] = body.Item
		_, _ = w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"__type":"com.amazon.coral.validate#ValidationException","message":"unsupported"}`))
	}
}

func newFakeDynamoDBStore(t *testing.T) (*DynamoDBStore, *fakeDynamoDB) {
	t.Helper()
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	fake := &fakeDynamoDB{items: make(map[string]map[string]map[string]string)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewDynamoDBStore(context.Background(), DynamoDBOptions{
		Table:           "keyguard",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	require.NoError(t, err)
	return s, fake
}

func TestDynamoDBStoreImplementsStore(_ *testing.T) {
	var _ Store = (*DynamoDBStore)(nil)
}

func TestDynamoDBStoreContract(t *testing.T) {
	s, fake := newFakeDynamoDBStore(t)
	runStoreContract(t, s)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	for _, table := range fake.tables {
		assert.Equal(t, "keyguard", table)
	}
}

func TestDynamoDBStore_RequiresTable(t *testing.T) {
	_, err := NewDynamoDBStore(context.Background(), DynamoDBOptions{Region: "us-east-1"})
	require.Error(t, err)
}

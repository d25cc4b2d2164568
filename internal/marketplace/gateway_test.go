package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

type recordedCall struct {
	method   string
	endpoint string
	query    url.Values
	body     any
}

// fakeClient answers requests from a queue of canned bodies.
type fakeClient struct {
	calls     []recordedCall
	responses [][]byte
	err       error
}

func (f *fakeClient) Request(_ context.Context, method, endpoint string, query url.Values, body any) ([]byte, error) {
	f.calls = append(f.calls, recordedCall{method: method, endpoint: endpoint, query: query, body: body})
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return []byte(`{}`), nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func bodyJSON(t *testing.T, body any) map[string]any {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestGateway_ListItems(t *testing.T) {
	fc := &fakeClient{responses: [][]byte{[]byte(`{"ItemResponse":[{"wpid":"W","sku":"S","price":{"amount":1}}]}`)}}
	g := NewGateway(fc, "")

	page, err := g.ListItems(context.Background(), 200, 100)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	require.Len(t, fc.calls, 1)
	assert.Equal(t, http.MethodGet, fc.calls[0].method)
	assert.Equal(t, ItemsEndpoint, fc.calls[0].endpoint)
	assert.Equal(t, "200", fc.calls[0].query.Get("offset"))
	assert.Equal(t, "100", fc.calls[0].query.Get("limit"))
}

func TestGateway_ListInventory(t *testing.T) {
	fc := &fakeClient{responses: [][]byte{
		[]byte(`{"elements":{"inventories":[]},"meta":{"nextCursor":"abc"}}`),
		[]byte(`{"elements":{"inventories":[]},"meta":{}}`),
	}}
	g := NewGateway(fc, "")

	page, err := g.ListInventory(context.Background(), "", 50)
	require.NoError(t, err)
	assert.Equal(t, "abc", page.NextCursor)
	assert.False(t, fc.calls[0].query.Has("nextCursor"))

	_, err = g.ListInventory(context.Background(), "abc", 50)
	require.NoError(t, err)
	assert.Equal(t, "abc", fc.calls[1].query.Get("nextCursor"))
}

func TestGateway_SubmitFeed(t *testing.T) {
	t.Run("price feed", func(t *testing.T) {
		fc := &fakeClient{responses: [][]byte{[]byte(`{"feedId":"F1"}`)}}
		g := NewGateway(fc, "EUR")

		id, err := g.SubmitFeed(context.Background(), domain.FieldPrice, []domain.MutationCandidate{
			{SKU: "A", Field: domain.FieldPrice, DesiredValue: "12.50"},
			{SKU: "B", Field: domain.FieldPrice, DesiredValue: "3"},
		})
		require.NoError(t, err)
		assert.Equal(t, "F1", id)

		call := fc.calls[0]
		assert.Equal(t, http.MethodPost, call.method)
		assert.Equal(t, FeedsEndpoint, call.endpoint)
		assert.Equal(t, FeedTypePrice, call.query.Get("feedType"))

		body := bodyJSON(t, call.body)
		prices := body["Price"].([]any)
		require.Len(t, prices, 2)
		first := prices[0].(map[string]any)
		assert.Equal(t, "A", first["sku"])
		pricing := first["pricing"].([]any)[0].(map[string]any)
		assert.Equal(t, "EUR", pricing["currentPrice"].(map[string]any)["currency"])
	})

	t.Run("inventory feed", func(t *testing.T) {
		fc := &fakeClient{responses: [][]byte{[]byte(`{"feedId":"F2"}`)}}
		g := NewGateway(fc, "")

		_, err := g.SubmitFeed(context.Background(), domain.FieldInventory, []domain.MutationCandidate{
			{SKU: "A", Field: domain.FieldInventory, DesiredValue: "7"},
		})
		require.NoError(t, err)

		body := bodyJSON(t, fc.calls[0].body)
		inv := body["Inventory"].([]any)[0].(map[string]any)
		assert.Equal(t, float64(7), inv["quantity"].(map[string]any)["amount"])
	})

	t.Run("missing feed id is unrecognized", func(t *testing.T) {
		fc := &fakeClient{responses: [][]byte{[]byte(`{"status":"RECEIVED"}`)}}
		g := NewGateway(fc, "")

		_, err := g.SubmitFeed(context.Background(), domain.FieldPrice, []domain.MutationCandidate{
			{SKU: "A", Field: domain.FieldPrice, DesiredValue: "1"},
		})
		assert.True(t, errors.Is(err, domain.ErrUnrecognizedResponse))
	})

	t.Run("invalid values are rejected before sending", func(t *testing.T) {
		fc := &fakeClient{}
		g := NewGateway(fc, "")

		_, err := g.SubmitFeed(context.Background(), domain.FieldInventory, []domain.MutationCandidate{
			{SKU: "A", Field: domain.FieldInventory, DesiredValue: "-1"},
		})
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))

		_, err = g.SubmitFeed(context.Background(), domain.FieldPrice, nil)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		assert.Empty(t, fc.calls)
	})
}

func TestGateway_MutateItem(t *testing.T) {
	t.Run("price uses single-item endpoint", func(t *testing.T) {
		fc := &fakeClient{responses: [][]byte{[]byte(`{"ItemPriceResponse":{"sku":"A"}}`)}}
		g := NewGateway(fc, "")

		id, err := g.MutateItem(context.Background(), domain.MutationCandidate{SKU: "A", Field: domain.FieldPrice, DesiredValue: "9.99"})
		require.NoError(t, err)
		assert.Empty(t, id)
		assert.Equal(t, http.MethodPut, fc.calls[0].method)
		assert.Equal(t, PriceEndpoint, fc.calls[0].endpoint)
	})

	t.Run("inventory checks echoed sku", func(t *testing.T) {
		fc := &fakeClient{responses: [][]byte{[]byte(`{"sku":"B","quantity":{"amount":3}}`)}}
		g := NewGateway(fc, "")

		_, err := g.MutateItem(context.Background(), domain.MutationCandidate{SKU: "A", Field: domain.FieldInventory, DesiredValue: "3"})
		assert.True(t, errors.Is(err, domain.ErrUnrecognizedResponse))
		assert.Equal(t, "A", fc.calls[0].query.Get("sku"))
	})

	t.Run("name goes through a one-item feed", func(t *testing.T) {
		fc := &fakeClient{responses: [][]byte{[]byte(`{"feedId":"F9"}`)}}
		g := NewGateway(fc, "")

		id, err := g.MutateItem(context.Background(), domain.MutationCandidate{SKU: "A", Field: domain.FieldName, DesiredValue: "New"})
		require.NoError(t, err)
		assert.Equal(t, "F9", id)
		assert.Equal(t, FeedTypeItem, fc.calls[0].query.Get("feedType"))
		item := bodyJSON(t, fc.calls[0].body)["MPItem"].([]any)[0].(map[string]any)
		assert.Equal(t, "New", item["productName"])
	})

	t.Run("transport errors propagate", func(t *testing.T) {
		fc := &fakeClient{err: &APIError{StatusCode: 500}}
		g := NewGateway(fc, "")

		_, err := g.MutateItem(context.Background(), domain.MutationCandidate{SKU: "A", Field: domain.FieldPrice, DesiredValue: "1"})
		assert.True(t, IsServerError(err))
	})
}

func TestGateway_Endpoint(t *testing.T) {
	g := NewGateway(&fakeClient{}, "")
	assert.Equal(t, FeedsEndpoint, g.Endpoint(domain.FieldPrice, true))
	assert.Equal(t, PriceEndpoint, g.Endpoint(domain.FieldPrice, false))
	assert.Equal(t, InventoryEndpoint, g.Endpoint(domain.FieldInventory, false))
	assert.Equal(t, FeedsEndpoint, g.Endpoint(domain.FieldStatus, false))
}

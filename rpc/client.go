package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"lessonchain/crypto"
)

// Client issues JSON-RPC calls against a lesson node.
type Client struct {
	endpoint string
	http     *http.Client
	nextID   atomic.Int64
}

func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

// Call invokes an unsigned method and decodes its result into out.
func (c *Client) Call(ctx context.Context, method string, params interface{}, out interface{}) error {
	encoded, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return c.do(ctx, method, []json.RawMessage{encoded}, out)
}

// CallSigned signs params with key before invoking method.
func (c *Client) CallSigned(ctx context.Context, key *crypto.PrivateKey, method string, params interface{}, out interface{}) error {
	signed, err := SignParams(key, method, params)
	if err != nil {
		return err
	}
	return c.do(ctx, method, signed, out)
}

// CallCoSigned signs params with key and adds payerKey's co-signature.
func (c *Client) CallCoSigned(ctx context.Context, key, payerKey *crypto.PrivateKey, method string, params interface{}, out interface{}) error {
	signed, err := SignParams(key, method, params)
	if err != nil {
		return err
	}
	signed, err = CoSignParams(payerKey, method, signed)
	if err != nil {
		return err
	}
	return c.do(ctx, method, signed, out)
}

func (c *Client) do(ctx context.Context, method string, params []json.RawMessage, out interface{}) error {
	body, err := json.Marshal(RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response (status %d): %w", method, resp.StatusCode, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Result, out)
}

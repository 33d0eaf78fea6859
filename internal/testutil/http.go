package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// RequestOption 修改测试请求
type RequestOption func(*http.Request)

// WithBearer 携带 Bearer 令牌
func WithBearer(token string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// WithHeader 设置请求头
func WithHeader(key, value string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

// PerformRequest 对处理器执行一次测试请求
// body 为 []byte 时原样发送，否则序列化为 JSON
func PerformRequest(t *testing.T, h http.Handler, method, target string, body interface{}, opts ...RequestOption) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// Envelope 统一响应体
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// DecodeEnvelope 解析统一响应体
func DecodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) *Envelope {
	t.Helper()

	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return &env
}

// DecodeData 将响应中的 data 字段解析到 out
func DecodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	env := DecodeEnvelope(t, rec)
	if len(env.Data) == 0 {
		t.Fatalf("response has no data field: %q", rec.Body.String())
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("failed to decode data %q: %v", env.Data, err)
	}
}

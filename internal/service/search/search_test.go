// Package search 提供检索服务单元测试
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ashwinyue/mnemosyne/internal/apperr"
	"github.com/ashwinyue/mnemosyne/internal/model"
)

// ========== Mock ES 客户端 ==========

type indexedDoc struct {
	index string
	docID string
	doc   []byte
}

type mockESClient struct {
	searchFunc func(ctx context.Context, index string, queryJSON []byte) (*ESResponse, error)
	lastQuery  []byte
	indexed    []indexedDoc
	indexErr   error
	ensured    []string
}

func (m *mockESClient) DoSearch(ctx context.Context, index string, queryJSON []byte) (*ESResponse, error) {
	m.lastQuery = queryJSON
	if m.searchFunc != nil {
		return m.searchFunc(ctx, index, queryJSON)
	}
	return emptySearchResponse(), nil
}

func (m *mockESClient) DoIndex(ctx context.Context, index, docID string, docJSON []byte) error {
	if m.indexErr != nil {
		return m.indexErr
	}
	m.indexed = append(m.indexed, indexedDoc{index: index, docID: docID, doc: docJSON})
	return nil
}

func (m *mockESClient) EnsureIndex(ctx context.Context, index string, mappingJSON []byte) error {
	m.ensured = append(m.ensured, index)
	return nil
}

// helper: 构造搜索响应
func searchResponse(hits []map[string]interface{}) *ESResponse {
	wrapped := make([]map[string]interface{}, len(hits))
	for i, h := range hits {
		wrapped[i] = map[string]interface{}{
			"_id":     h["id"],
			"_score":  h["score"],
			"_source": h["source"],
		}
	}
	resp := map[string]interface{}{
		"hits": map[string]interface{}{"hits": wrapped},
	}
	data, _ := json.Marshal(resp)
	return &ESResponse{IsError: false, Body: io.NopCloser(bytes.NewReader(data)), String: string(data)}
}

func emptySearchResponse() *ESResponse {
	return searchResponse(nil)
}

func newTestService(es ESClient) *Service {
	return &Service{es: es, index: "mnemosyne_turns"}
}

// ========== 检索测试 ==========

func TestSearch(t *testing.T) {
	mock := &mockESClient{
		searchFunc: func(ctx context.Context, index string, queryJSON []byte) (*ESResponse, error) {
			return searchResponse([]map[string]interface{}{
				{
					"id":    "turn-1",
					"score": 1.7,
					"source": map[string]interface{}{
						"session_id": "session-1",
						"mode":       "cbt",
						"role":       "participant",
						"seq":        3,
						"text":       "I always ruin everything",
					},
				},
			}), nil
		},
	}
	svc := newTestService(mock)

	hits, err := svc.Search(context.Background(), "ruin", "", 10)
	if err != nil {
		t.Fatalf("Search() unexpected error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("Search() returned %d hits, want 1", len(hits))
	}

	hit := hits[0]
	if hit.SessionID != "session-1" || hit.Mode != "cbt" || hit.Role != "participant" {
		t.Errorf("hit = %+v", hit)
	}
	if hit.Seq != 3 {
		t.Errorf("hit seq = %d, want 3", hit.Seq)
	}
	if hit.Score != 1.7 {
		t.Errorf("hit score = %v, want 1.7", hit.Score)
	}

	query := string(mock.lastQuery)
	if !strings.Contains(query, `"match"`) || !strings.Contains(query, "ruin") {
		t.Errorf("query missing match clause: %s", query)
	}
	if strings.Contains(query, `"filter"`) {
		t.Errorf("query should have no session filter: %s", query)
	}
}

func TestSearchWithSessionFilter(t *testing.T) {
	mock := &mockESClient{}
	svc := newTestService(mock)

	if _, err := svc.Search(context.Background(), "anxious", "session-9", 5); err != nil {
		t.Fatalf("Search() unexpected error: %v", err)
	}

	query := string(mock.lastQuery)
	if !strings.Contains(query, `"filter"`) || !strings.Contains(query, "session-9") {
		t.Errorf("query missing session filter: %s", query)
	}
	if !strings.Contains(query, `"size":5`) {
		t.Errorf("query missing size: %s", query)
	}
}

func TestSearchValidation(t *testing.T) {
	svc := newTestService(&mockESClient{})

	if _, err := svc.Search(context.Background(), "", "", 10); !apperr.IsValidation(err) {
		t.Errorf("Search() with empty query error = %v, want validation error", err)
	}
}

func TestSearchSizeDefaults(t *testing.T) {
	mock := &mockESClient{}
	svc := newTestService(mock)

	for _, size := range []int{0, -1, 500} {
		if _, err := svc.Search(context.Background(), "q", "", size); err != nil {
			t.Fatalf("Search() unexpected error: %v", err)
		}
		if !strings.Contains(string(mock.lastQuery), `"size":10`) {
			t.Errorf("size %d should fall back to 10, query = %s", size, mock.lastQuery)
		}
	}
}

func TestSearchErrors(t *testing.T) {
	// ES 返回错误响应
	svc := newTestService(&mockESClient{
		searchFunc: func(ctx context.Context, index string, queryJSON []byte) (*ESResponse, error) {
			return &ESResponse{
				IsError: true,
				Body:    io.NopCloser(strings.NewReader(`{"error": {"reason": "index_not_found"}}`)),
				String:  "index_not_found",
			}, nil
		},
	})
	if _, err := svc.Search(context.Background(), "q", "", 10); err == nil {
		t.Error("Search() expected error for ES error response")
	}

	// 传输失败
	svc = newTestService(&mockESClient{
		searchFunc: func(ctx context.Context, index string, queryJSON []byte) (*ESResponse, error) {
			return nil, errors.New("connection refused")
		},
	})
	if _, err := svc.Search(context.Background(), "q", "", 10); err == nil {
		t.Error("Search() expected error for transport failure")
	}
}

func TestSearchNilService(t *testing.T) {
	var svc *Service

	if _, err := svc.Search(context.Background(), "q", "", 10); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Search() on nil service error = %v, want ErrUnavailable", err)
	}

	// nil 服务上的索引和建索引调用不应 panic
	svc.IndexTurn(context.Background(), &model.Session{}, &model.Turn{})
	if err := svc.EnsureIndex(context.Background()); err != nil {
		t.Errorf("EnsureIndex() on nil service = %v, want nil", err)
	}
}

func TestIndexTurn(t *testing.T) {
	mock := &mockESClient{}
	svc := newTestService(mock)

	session := &model.Session{ID: "session-1", Mode: "trauma"}
	turn := &model.Turn{
		ID:        "turn-7",
		SessionID: "session-1",
		Seq:       7,
		Role:      model.RoleParticipant,
		Text:      "I remembered something difficult",
		Kind:      model.TurnKindDialogue,
		CreatedAt: time.Now(),
	}

	svc.IndexTurn(context.Background(), session, turn)

	if len(mock.indexed) != 1 {
		t.Fatalf("indexed %d documents, want 1", len(mock.indexed))
	}
	entry := mock.indexed[0]
	if entry.docID != "turn-7" {
		t.Errorf("doc id = %q, want turn-7", entry.docID)
	}

	var doc turnDocument
	if err := json.Unmarshal(entry.doc, &doc); err != nil {
		t.Fatalf("indexed doc is not valid json: %v", err)
	}
	if doc.SessionID != "session-1" || doc.Mode != "trauma" || doc.Seq != 7 {
		t.Errorf("doc = %+v", doc)
	}

	// 索引失败不应 panic，也不影响调用方
	svc = newTestService(&mockESClient{indexErr: errors.New("es down")})
	svc.IndexTurn(context.Background(), session, turn)
}

func TestEnsureIndex(t *testing.T) {
	mock := &mockESClient{}
	svc := newTestService(mock)

	if err := svc.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex() unexpected error: %v", err)
	}
	if len(mock.ensured) != 1 || mock.ensured[0] != "mnemosyne_turns" {
		t.Errorf("ensured = %v", mock.ensured)
	}
}

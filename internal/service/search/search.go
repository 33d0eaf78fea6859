// Package search 提供对话轮次的全文检索
// 轮次在追加时尽力写入 Elasticsearch，索引失败只记日志，从不影响主流程
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ashwinyue/mnemosyne/internal/apperr"
	"github.com/ashwinyue/mnemosyne/internal/model"
	"github.com/elastic/go-elasticsearch/v8"
)

// ErrUnavailable Elasticsearch 未配置
var ErrUnavailable = errors.New("search is not configured")

// Service 轮次检索服务
// Elasticsearch 未配置时服务为 nil，所有方法对 nil 接收者安全
type Service struct {
	es    ESClient
	index string
}

// NewService 创建检索服务，客户端缺失时返回 nil
func NewService(client *elasticsearch.Client, indexPrefix string) *Service {
	if client == nil {
		return nil
	}
	if indexPrefix == "" {
		indexPrefix = "mnemosyne"
	}
	return &Service{
		es:    &realESClient{client: client},
		index: indexPrefix + "_turns",
	}
}

// turnDocument 索引中的轮次文档
type turnDocument struct {
	SessionID string    `json:"session_id"`
	Mode      string    `json:"mode"`
	Role      string    `json:"role"`
	Kind      string    `json:"kind"`
	Seq       int       `json:"seq"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Hit 一条检索命中
type Hit struct {
	SessionID string  `json:"session_id"`
	Mode      string  `json:"mode"`
	Role      string  `json:"role"`
	Seq       int     `json:"seq"`
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
}

// EnsureIndex 启动时创建轮次索引
func (s *Service) EnsureIndex(ctx context.Context) error {
	if s == nil || s.es == nil {
		return nil
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"session_id": map[string]interface{}{"type": "keyword"},
				"mode":       map[string]interface{}{"type": "keyword"},
				"role":       map[string]interface{}{"type": "keyword"},
				"kind":       map[string]interface{}{"type": "keyword"},
				"seq":        map[string]interface{}{"type": "integer"},
				"text":       map[string]interface{}{"type": "text"},
				"created_at": map[string]interface{}{"type": "date"},
			},
		},
	}
	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal index mapping: %w", err)
	}

	return s.es.EnsureIndex(ctx, s.index, mappingJSON)
}

// IndexTurn 把轮次写入索引，尽力而为
func (s *Service) IndexTurn(ctx context.Context, session *model.Session, turn *model.Turn) {
	if s == nil || s.es == nil {
		return
	}

	doc := turnDocument{
		SessionID: turn.SessionID,
		Mode:      session.Mode,
		Role:      turn.Role,
		Kind:      turn.Kind,
		Seq:       turn.Seq,
		Text:      turn.Text,
		CreatedAt: turn.CreatedAt,
	}
	docJSON, err := json.Marshal(doc)
	if err != nil {
		log.Printf("Warning: failed to marshal turn document: %v", err)
		return
	}

	if err := s.es.DoIndex(ctx, s.index, turn.ID, docJSON); err != nil {
		log.Printf("Warning: failed to index turn %s: %v", turn.ID, err)
	}
}

// Search 对轮次文本执行关键词检索
// sessionID 非空时限定在该会话内
func (s *Service) Search(ctx context.Context, query, sessionID string, size int) ([]*Hit, error) {
	if s == nil || s.es == nil {
		return nil, ErrUnavailable
	}
	if query == "" {
		return nil, apperr.NewValidation("search query is required")
	}
	if size <= 0 || size > 50 {
		size = 10
	}

	boolQuery := map[string]interface{}{
		"must": []interface{}{
			map[string]interface{}{
				"match": map[string]interface{}{
					"text": map[string]interface{}{"query": query},
				},
			},
		},
	}
	if sessionID != "" {
		boolQuery["filter"] = []interface{}{
			map[string]interface{}{
				"term": map[string]interface{}{"session_id": sessionID},
			},
		}
	}

	body := map[string]interface{}{
		"size":  size,
		"query": map[string]interface{}{"bool": boolQuery},
	}
	queryJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := s.es.DoSearch(ctx, s.index, queryJSON)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError {
		return nil, fmt.Errorf("search request failed: %s", res.String)
	}

	var result struct {
		Hits struct {
			Hits []struct {
				ID     string       `json:"_id"`
				Score  float64      `json:"_score"`
				Source turnDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := make([]*Hit, 0, len(result.Hits.Hits))
	for _, h := range result.Hits.Hits {
		hits = append(hits, &Hit{
			SessionID: h.Source.SessionID,
			Mode:      h.Source.Mode,
			Role:      h.Source.Role,
			Seq:       h.Source.Seq,
			Text:      h.Source.Text,
			Score:     h.Score,
		})
	}
	return hits, nil
}

package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ESClient Elasticsearch 操作接口，用于抽象 ES 客户端
type ESClient interface {
	// DoSearch 执行搜索请求并返回响应
	DoSearch(ctx context.Context, index string, queryJSON []byte) (*ESResponse, error)
	// DoIndex 写入单个文档
	DoIndex(ctx context.Context, index, docID string, docJSON []byte) error
	// EnsureIndex 确保索引存在，不存在时按映射创建
	EnsureIndex(ctx context.Context, index string, mappingJSON []byte) error
}

// ESResponse Elasticsearch 搜索响应
type ESResponse struct {
	IsError bool
	Body    io.ReadCloser
	String  string
}

// realESClient 真实 ES 客户端的适配器
type realESClient struct {
	client *elasticsearch.Client
}

func (r *realESClient) DoSearch(ctx context.Context, index string, queryJSON []byte) (*ESResponse, error) {
	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(index),
		r.client.Search.WithBody(bytes.NewReader(queryJSON)),
	)
	if err != nil {
		return nil, err
	}
	// String 会读空并关闭原始 Body，然后换成可重读的缓冲，必须先求值
	str := res.String()
	return &ESResponse{
		IsError: res.IsError(),
		Body:    res.Body,
		String:  str,
	}, nil
}

func (r *realESClient) DoIndex(ctx context.Context, index, docID string, docJSON []byte) error {
	req := esapi.IndexRequest{
		Index:      index,
		DocumentID: docID,
		Body:       bytes.NewReader(docJSON),
	}
	res, err := req.Do(ctx, r.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index request failed: %s", res.String())
	}
	return nil
}

func (r *realESClient) EnsureIndex(ctx context.Context, index string, mappingJSON []byte) error {
	res, err := r.client.Indices.Exists([]string{index})
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil // 索引已存在
	}

	req := esapi.IndicesCreateRequest{
		Index: index,
		Body:  bytes.NewReader(mappingJSON),
	}
	createRes, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	log.Printf("Index %s created", index)
	return nil
}

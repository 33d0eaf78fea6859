// Package inference 封装对外部推理服务的调用
// 每个治疗模式持有一个携带该模式采样温度的 ChatModel，
// 另有一个用于临床摘要的低温 ChatModel
package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashwinyue/mnemosyne/internal/apperr"
	"github.com/ashwinyue/mnemosyne/internal/config"
	"github.com/ashwinyue/mnemosyne/internal/service/mode"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Generator 文本生成接口
// 接口定义使编排层可以用确定性替身进行单元测试
type Generator interface {
	Generate(ctx context.Context, messages []*schema.Message) (string, error)
}

// Provider 按模式提供生成器
type Provider interface {
	ForMode(name string) (Generator, error)
	Summary() Generator
}

// 确保 Client 实现了接口
var _ Provider = (*Client)(nil)

// Client 推理客户端，持有全部模式的 ChatModel
type Client struct {
	modes   map[string]*boundModel
	summary *boundModel
}

// NewClient 为目录中的每个模式构建一个 ChatModel
func NewClient(ctx context.Context, cfg *config.Config, catalog *mode.Catalog) (*Client, error) {
	aiCfg := cfg.AI
	if aiCfg.APIKey == "" {
		return nil, fmt.Errorf("ai api key is required")
	}

	timeout := time.Duration(aiCfg.Timeout) * time.Second
	client := &Client{modes: make(map[string]*boundModel)}

	for _, m := range catalog.List() {
		temperature := m.Temperature
		maxTokens := aiCfg.MaxTokens
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      aiCfg.APIKey,
			BaseURL:     aiCfg.BaseURL,
			Model:       aiCfg.Model,
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model for mode %s: %w", m.Name, err)
		}
		client.modes[m.Name] = &boundModel{cm: cm, timeout: timeout}
	}

	summaryTemp := float32(aiCfg.Summary.Temperature)
	summaryTokens := aiCfg.Summary.MaxTokens
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      aiCfg.APIKey,
		BaseURL:     aiCfg.BaseURL,
		Model:       aiCfg.Model,
		Temperature: &summaryTemp,
		MaxTokens:   &summaryTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create summary chat model: %w", err)
	}
	client.summary = &boundModel{cm: cm, timeout: timeout}

	return client, nil
}

// ForMode 返回指定模式的生成器
func (c *Client) ForMode(name string) (Generator, error) {
	b, ok := c.modes[name]
	if !ok {
		return nil, fmt.Errorf("no chat model for mode: %s", name)
	}
	return b, nil
}

// Summary 返回摘要生成器
func (c *Client) Summary() Generator {
	return c.summary
}

// boundModel 绑定了采样参数和超时的 ChatModel
type boundModel struct {
	cm      model.ChatModel
	timeout time.Duration
}

// Generate 调用外部推理服务生成一条回复
// 失败时返回 apperr.InferenceError，原因按提供方错误归类
func (b *boundModel) Generate(ctx context.Context, messages []*schema.Message) (string, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	msg, err := b.cm.Generate(ctx, messages)
	if err != nil {
		return "", classify(err)
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return "", apperr.NewInference(apperr.InferenceUnavailable, errors.New("empty completion"))
	}
	return content, nil
}

// classify 将提供方错误归类为 InferenceError
// 提供方以 HTTP 状态码报告认证和限流失败，错误串匹配覆盖两种常见格式
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.NewInference(apperr.InferenceTimeout, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key"):
		return apperr.NewInference(apperr.InferenceAuth, err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "rate_limit"):
		return apperr.NewInference(apperr.InferenceRateLimited, err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return apperr.NewInference(apperr.InferenceTimeout, err)
	default:
		return apperr.NewInference(apperr.InferenceUnavailable, err)
	}
}

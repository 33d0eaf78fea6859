package testutil

import (
	"context"
	"sync"

	"github.com/ashwinyue/mnemosyne/internal/service/inference"
	"github.com/cloudwego/eino/schema"
)

// StubGenerator 返回预设文本的生成器
type StubGenerator struct {
	mu sync.Mutex

	// Responses 非空时依次弹出，优先于 Response
	Responses []string
	Response  string
	Err       error

	// Calls 累计调用次数
	Calls int
	// LastMessages 最近一次调用收到的消息
	LastMessages []*schema.Message
}

var _ inference.Generator = (*StubGenerator)(nil)

// Generate 实现 inference.Generator
func (g *StubGenerator) Generate(ctx context.Context, messages []*schema.Message) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Calls++
	g.LastMessages = messages
	if g.Err != nil {
		return "", g.Err
	}
	if len(g.Responses) > 0 {
		next := g.Responses[0]
		g.Responses = g.Responses[1:]
		return next, nil
	}
	return g.Response, nil
}

// StubProvider 所有模式共用一个生成器
type StubProvider struct {
	Gen *StubGenerator
}

var _ inference.Provider = (*StubProvider)(nil)

// ForMode 实现 inference.Provider
func (p *StubProvider) ForMode(name string) (inference.Generator, error) {
	return p.Gen, nil
}

// Summary 实现 inference.Provider
func (p *StubProvider) Summary() inference.Generator {
	return p.Gen
}

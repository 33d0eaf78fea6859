// Package callback 提供推理组件的回调日志
// 转录内容属于研究数据，日志只记录条数、用量和错误，不落参与者消息
package callback

import (
	"context"
	"log"
	"sync"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Logger 推理调用日志回调
// 实现 callbacks.Handler 接口
type Logger struct {
	Debug bool
}

// NewLogger 创建日志回调处理器
func NewLogger(debug bool) *Logger {
	return &Logger{Debug: debug}
}

// OnStart 组件执行开始时调用
func (l *Logger) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if !l.Debug || info == nil {
		return ctx
	}
	if in := model.ConvCallbackInput(input); in != nil {
		log.Printf("[inference] start: component=%s name=%s messages=%d", info.Component, info.Name, len(in.Messages))
	} else {
		log.Printf("[inference] start: component=%s name=%s", info.Component, info.Name)
	}
	return ctx
}

// OnEnd 组件执行成功结束时调用
func (l *Logger) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	if !l.Debug || info == nil {
		return ctx
	}
	out := model.ConvCallbackOutput(output)
	if out != nil && out.TokenUsage != nil {
		log.Printf("[inference] end: component=%s name=%s prompt_tokens=%d completion_tokens=%d",
			info.Component, info.Name, out.TokenUsage.PromptTokens, out.TokenUsage.CompletionTokens)
	} else {
		log.Printf("[inference] end: component=%s name=%s", info.Component, info.Name)
	}
	return ctx
}

// OnError 组件执行出错时调用，不受调试开关控制
func (l *Logger) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	if info == nil {
		return ctx
	}
	log.Printf("[inference] error: component=%s name=%s error=%v", info.Component, info.Name, err)
	return ctx
}

// OnStartWithStreamInput 流式输入开始时调用
func (l *Logger) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo, input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	if l.Debug && info != nil {
		log.Printf("[inference] stream start: component=%s name=%s", info.Component, info.Name)
	}
	return ctx
}

// OnEndWithStreamOutput 流式输出结束时调用
func (l *Logger) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	if l.Debug && info != nil {
		log.Printf("[inference] stream end: component=%s name=%s", info.Component, info.Name)
	}
	return ctx
}

var registerOnce sync.Once

// Register 注册全局回调处理器，进程内只注册一次
func Register(debug bool) {
	registerOnce.Do(func() {
		callbacks.AppendGlobalHandlers(NewLogger(debug))
	})
}

// Package service 组合各业务服务
package service

import (
	"context"
	"log"
	"time"

	"github.com/ashwinyue/mnemosyne/internal/config"
	"github.com/ashwinyue/mnemosyne/internal/repository"
	"github.com/ashwinyue/mnemosyne/internal/service/auth"
	"github.com/ashwinyue/mnemosyne/internal/service/callback"
	"github.com/ashwinyue/mnemosyne/internal/service/dialogue"
	"github.com/ashwinyue/mnemosyne/internal/service/guard"
	"github.com/ashwinyue/mnemosyne/internal/service/inference"
	"github.com/ashwinyue/mnemosyne/internal/service/mode"
	"github.com/ashwinyue/mnemosyne/internal/service/search"
	"github.com/ashwinyue/mnemosyne/internal/service/summary"
	"github.com/ashwinyue/mnemosyne/internal/service/transcript"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
)

// Services 服务集合
type Services struct {
	// 业务服务
	Transcript *transcript.Service
	Dialogue   *dialogue.Service
	Summary    *summary.Service
	Search     *search.Service
	Auth       *auth.Service

	// 领域组件
	Modes *mode.Catalog
	Guard *guard.Guard

	// 配置
	Config *config.Config
}

// NewServices 创建所有服务
// 推理和检索组件允许缺失，对应能力降级而非启动失败
func NewServices(repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	ctx := context.Background()

	// 推理调用的回调日志，只记录条数和用量
	callback.Register(cfg.App.Debug)

	catalog := mode.NewCatalog()

	// 会话互斥守卫，Redis 缺失时退化为进程内互斥
	g := guard.NewGuard(redisClient, time.Duration(cfg.Session.LockTTL)*time.Second)

	// 推理客户端，密钥未配置时对话提交直接报推理错误
	var provider inference.Provider
	var summaryGen inference.Generator
	client, err := inference.NewClient(ctx, cfg, catalog)
	if err != nil {
		log.Printf("Warning: failed to create inference client: %v", err)
	} else {
		provider = client
		summaryGen = client.Summary()
	}

	searchSvc := newSearchService(cfg)

	transcripts := transcript.NewService(repo, catalog)
	summaries := summary.NewService(summaryGen, repo.Anchor)
	dialogues := dialogue.NewService(transcripts, catalog, g, provider, summaries, searchSvc, cfg.Session.ContextTurns)

	return &Services{
		Transcript: transcripts,
		Dialogue:   dialogues,
		Summary:    summaries,
		Search:     searchSvc,
		Auth:       auth.NewService(repo, cfg),
		Modes:      catalog,
		Guard:      g,
		Config:     cfg,
	}, nil
}

// newSearchService 创建检索服务
// ES 未配置或客户端创建失败时返回 nil，检索接口报未配置错误
func newSearchService(cfg *config.Config) *search.Service {
	if cfg.Elastic.Host == "" {
		log.Printf("Warning: elasticsearch host not configured, search disabled")
		return nil
	}

	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Elastic.Host},
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		log.Printf("Warning: failed to create es client: %v", err)
		return nil
	}

	return search.NewService(esClient, cfg.Elastic.IndexPrefix)
}

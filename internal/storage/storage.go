package storage

import (
	"context"
	"fmt"
	"strings"

	"careercraft-go/internal/config"
	"careercraft-go/internal/logger"
)

// Storage 聚合所有基础设施组件，任一组件都可能为 nil
type Storage struct {
	// 对象存储
	MinIO *MinIO

	// 消息队列
	RabbitMQ *RabbitMQ

	// 关系型数据库
	MySQL *MySQL

	// 键值存储
	Redis *Redis
}

// NewStorage 按配置初始化各组件。未配置的组件跳过，初始化失败的组件记录警告后置空，
// 服务降级运行。只有配置了的组件全部失败时才返回错误。
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	s := &Storage{}
	var initErrors []string
	configured := 0
	var err error

	if cfg.Redis.Address != "" {
		configured++
		if s.Redis, err = NewRedisAdapter(&cfg.Redis); err != nil {
			logger.Warn().Err(err).Msg("初始化Redis失败")
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
			s.Redis = nil
		}
	} else {
		logger.Info().Msg("Redis未配置, 跳过初始化")
	}

	if cfg.MySQL.Host != "" {
		configured++
		if s.MySQL, err = NewMySQL(&cfg.MySQL); err != nil {
			logger.Warn().Err(err).Msg("初始化MySQL失败")
			initErrors = append(initErrors, fmt.Sprintf("MySQL: %v", err))
			s.MySQL = nil
		}
	}

	if cfg.MinIO.Endpoint != "" {
		configured++
		if s.MinIO, err = NewMinIO(&cfg.MinIO, minioLogger(cfg)); err != nil {
			logger.Warn().Err(err).Msg("初始化MinIO失败")
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
			s.MinIO = nil
		}
	}

	if cfg.RabbitMQ.URL != "" {
		configured++
		if s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ); err != nil {
			logger.Warn().Err(err).Msg("初始化RabbitMQ失败")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
			s.RabbitMQ = nil
		} else if err := s.RabbitMQ.SetupReportTopology(); err != nil {
			logger.Warn().Err(err).Msg("声明报告队列拓扑失败")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ topology: %v", err))
		}
	}

	if configured > 0 && len(initErrors) >= configured && s.Redis == nil && s.MySQL == nil && s.MinIO == nil && s.RabbitMQ == nil {
		return nil, fmt.Errorf("所有存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}
	if len(initErrors) > 0 {
		logger.Warn().Str("errors", strings.Join(initErrors, "; ")).Msg("部分存储组件初始化失败")
	}
	return s, nil
}

// HistoryEnabled MySQL 可用时记录分析历史
func (s *Storage) HistoryEnabled() bool {
	return s != nil && s.MySQL != nil
}

// ReportsEnabled 报告链路需要 MySQL、RabbitMQ 与 MinIO 同时可用
func (s *Storage) ReportsEnabled() bool {
	return s != nil && s.MySQL != nil && s.RabbitMQ != nil && s.MinIO != nil
}

// Status 各组件是否可用，用于健康检查
func (s *Storage) Status() map[string]bool {
	if s == nil {
		return map[string]bool{"redis": false, "mysql": false, "minio": false, "rabbitmq": false}
	}
	return map[string]bool{
		"redis":    s.Redis != nil,
		"mysql":    s.MySQL != nil,
		"minio":    s.MinIO != nil,
		"rabbitmq": s.RabbitMQ != nil,
	}
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s == nil {
		return
	}
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Error().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Error().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Error().Err(err).Msg("关闭Redis连接失败")
		}
	}
}

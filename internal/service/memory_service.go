package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/haierkeys/memory-server/internal/domain"
	"github.com/haierkeys/memory-server/internal/dto"
	"github.com/haierkeys/memory-server/pkg/code"
	apperrors "github.com/haierkeys/memory-server/pkg/errors"
	"github.com/haierkeys/memory-server/pkg/logger"
	"github.com/haierkeys/memory-server/pkg/metrics"
	"github.com/haierkeys/memory-server/pkg/util"
	"github.com/haierkeys/memory-server/pkg/validator"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// MemoryService 定义记忆条目业务服务接口
// REST 与 MCP 两个入口共用，所有校验都在这里完成
type MemoryService interface {
	// Create 创建条目
	Create(ctx context.Context, params *dto.MemoryCreateRequest) (*dto.MemoryDTO, error)

	// Get 获取单条条目
	Get(ctx context.Context, id int64) (*dto.MemoryDTO, error)

	// Update 部分更新条目
	Update(ctx context.Context, params *dto.MemoryUpdateRequest) (*dto.MemoryDTO, error)

	// Delete 删除条目，重复删除返回 false 而不是错误
	Delete(ctx context.Context, id int64) (bool, error)

	// List 最新条目列表，可带 query/tags 过滤
	List(ctx context.Context, params *dto.MemoryListRequest) (*dto.MemoryListDTO, error)

	// Search 检索条目
	Search(ctx context.Context, params *dto.MemorySearchRequest) (*dto.MemoryListDTO, error)

	// ListByTagContains 任意标签包含子串的条目
	ListByTagContains(ctx context.Context, params *dto.MemoryTagRequest) (*dto.MemoryListDTO, error)

	// ListRules 带规则标签的条目
	ListRules(ctx context.Context, params *dto.MemoryRulesRequest) (*dto.MemoryListDTO, error)

	// Stats 存储状态和条目总数
	Stats(ctx context.Context) (*dto.StatsDTO, error)
}

// memoryService 实现 MemoryService 接口
type memoryService struct {
	repo      domain.MemoryRepository
	validator *validator.CustomValidator
	config    *ServiceConfig
	logger    *zap.Logger
	metrics   *metrics.Metrics
	sf        *singleflight.Group
}

// NewMemoryService 创建 MemoryService 实例
func NewMemoryService(repo domain.MemoryRepository, v *validator.CustomValidator, config *ServiceConfig, lg *zap.Logger, m *metrics.Metrics) MemoryService {
	if config == nil {
		config = DefaultServiceConfig()
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &memoryService{
		repo:      repo,
		validator: v,
		config:    config,
		logger:    lg,
		metrics:   m,
		sf:        &singleflight.Group{},
	}
}

// Create 创建条目
func (s *memoryService) Create(ctx context.Context, params *dto.MemoryCreateRequest) (out *dto.MemoryDTO, err error) {
	defer s.observe(ctx, "create", time.Now(), &err)

	if params == nil {
		return nil, apperrors.Validation("body", nil, "request body is required")
	}
	if err = s.validator.Struct(ctx, params); err != nil {
		return nil, err
	}

	tags := util.TrimAll(params.Tags)
	keywords := util.TrimAll(params.Keywords)

	created, err := s.repo.Create(ctx, &domain.Memory{
		Content:  strings.TrimSpace(params.Content),
		Tags:     tags,
		Keywords: keywords,
		Summary:  strings.TrimSpace(params.Summary),
	})
	if err != nil {
		return nil, s.storeError("create", 0, err)
	}

	s.logger.Info("memory created", zap.Int64(logger.FieldEntryID, created.ID))
	return dto.NewMemoryDTO(created), nil
}

// Get 获取单条条目
func (s *memoryService) Get(ctx context.Context, id int64) (out *dto.MemoryDTO, err error) {
	defer s.observe(ctx, "get", time.Now(), &err)

	if err = checkID(id); err != nil {
		return nil, err
	}

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError("get", id, err)
	}
	return dto.NewMemoryDTO(m), nil
}

// Update 部分更新条目
// 未提供的字段保持不变，updated_at 总是前进
func (s *memoryService) Update(ctx context.Context, params *dto.MemoryUpdateRequest) (out *dto.MemoryDTO, err error) {
	defer s.observe(ctx, "update", time.Now(), &err)

	if params == nil {
		return nil, apperrors.Validation("body", nil, "request body is required")
	}
	if err = s.validator.Struct(ctx, params); err != nil {
		return nil, err
	}

	var patch domain.MemoryPatch
	if params.Content != nil {
		content := strings.TrimSpace(*params.Content)
		patch.Content = &content
	}
	if params.Tags != nil {
		tags := util.TrimAll(*params.Tags)
		patch.Tags = &tags
	}
	if params.Keywords != nil {
		keywords := util.TrimAll(*params.Keywords)
		patch.Keywords = &keywords
	}
	if params.Summary != nil {
		summary := strings.TrimSpace(*params.Summary)
		patch.Summary = &summary
	}

	updated, err := s.repo.Update(ctx, params.ID, patch)
	if err != nil {
		return nil, s.storeError("update", params.ID, err)
	}

	s.logger.Info("memory updated", zap.Int64(logger.FieldEntryID, updated.ID))
	return dto.NewMemoryDTO(updated), nil
}

// Delete 删除条目
func (s *memoryService) Delete(ctx context.Context, id int64) (deleted bool, err error) {
	defer s.observe(ctx, "delete", time.Now(), &err)

	if err = checkID(id); err != nil {
		return false, err
	}

	deleted, err = s.repo.Delete(ctx, id)
	if err != nil {
		return false, s.storeError("delete", id, err)
	}
	if deleted {
		s.logger.Info("memory deleted", zap.Int64(logger.FieldEntryID, id))
	}
	return deleted, nil
}

// List 最新条目列表
func (s *memoryService) List(ctx context.Context, params *dto.MemoryListRequest) (out *dto.MemoryListDTO, err error) {
	defer s.observe(ctx, "list", time.Now(), &err)

	if params == nil {
		params = &dto.MemoryListRequest{}
	}
	limit := s.config.Memory.normalizeLimit(params.Limit, s.config.Memory.DefaultListLimit)
	filter := domain.MemoryFilter{
		Query: strings.TrimSpace(params.Query),
		Tags:  util.TrimNonEmpty(params.Tags),
	}
	return s.search(ctx, "list", filter, limit)
}

// Search 检索条目
// query 与 tags 均为空时等同于列表
func (s *memoryService) Search(ctx context.Context, params *dto.MemorySearchRequest) (out *dto.MemoryListDTO, err error) {
	defer s.observe(ctx, "search", time.Now(), &err)

	if params == nil {
		params = &dto.MemorySearchRequest{}
	}
	limit := s.config.Memory.normalizeLimit(params.Limit, s.config.Memory.DefaultSearchLimit)
	filter := domain.MemoryFilter{
		Query: strings.TrimSpace(params.Query),
		Tags:  util.TrimNonEmpty(params.Tags),
	}
	return s.search(ctx, "search", filter, limit)
}

// ListByTagContains 任意标签包含子串（区分大小写）
func (s *memoryService) ListByTagContains(ctx context.Context, params *dto.MemoryTagRequest) (out *dto.MemoryListDTO, err error) {
	defer s.observe(ctx, "list_by_tag", time.Now(), &err)

	if params == nil {
		return nil, apperrors.Validation("tag", nil, "tag is required")
	}
	if err = s.validator.Struct(ctx, params); err != nil {
		return nil, err
	}
	limit := s.config.Memory.normalizeLimit(params.Limit, s.config.Memory.DefaultListLimit)
	filter := domain.MemoryFilter{TagContains: strings.TrimSpace(params.Tag)}
	return s.search(ctx, "list_by_tag", filter, limit)
}

// ListRules 带任意一个规则标签的条目
func (s *memoryService) ListRules(ctx context.Context, params *dto.MemoryRulesRequest) (out *dto.MemoryListDTO, err error) {
	defer s.observe(ctx, "list_rules", time.Now(), &err)

	if params == nil {
		params = &dto.MemoryRulesRequest{}
	}
	limit := s.config.Memory.normalizeLimit(params.Limit, s.config.Memory.MaxResults)
	filter := domain.MemoryFilter{AnyTags: domain.RuleTags}
	return s.search(ctx, "list_rules", filter, limit)
}

// Stats 存储状态，并发调用合并为一次查询
func (s *memoryService) Stats(ctx context.Context) (*dto.StatsDTO, error) {
	v, err, _ := s.sf.Do("stats", func() (any, error) {
		stats := &dto.StatsDTO{}
		if err := s.repo.Ping(ctx); err != nil {
			return stats, s.storeError("ping", 0, err)
		}
		stats.DatabaseOK = true
		n, err := s.repo.Count(ctx)
		if err != nil {
			return stats, s.storeError("count", 0, err)
		}
		stats.Entries = n
		return stats, nil
	})
	stats, _ := v.(*dto.StatsDTO)
	if stats == nil {
		stats = &dto.StatsDTO{}
	}
	return stats, err
}

func (s *memoryService) search(ctx context.Context, op string, filter domain.MemoryFilter, limit int) (*dto.MemoryListDTO, error) {
	list, err := s.repo.Search(ctx, filter, limit)
	if err != nil {
		return nil, s.storeError(op, 0, err)
	}
	return dto.NewMemoryListDTO(list, limit), nil
}

// storeError 仓储错误归类：记录不存在转为 NotFound，其他一律视为存储故障
func (s *memoryService) storeError(op string, id int64, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(id)
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Storage(op, err)
}

// observe 记录指标和日志
// 存储故障记录完整错误，其余错误只记 warn
func (s *memoryService) observe(ctx context.Context, op string, start time.Time, errp *error) {
	result := "ok"
	if err := *errp; err != nil {
		appErr := apperrors.From(err)
		*errp = appErr
		result = appErr.Kind()

		fields := []zap.Field{
			zap.String(logger.FieldOperation, op),
			zap.String(logger.FieldKind, appErr.Kind()),
			zap.Duration(logger.FieldDuration, time.Since(start)),
		}
		if traceID, ok := ctx.Value(logger.FieldTraceID).(string); ok {
			fields = append(fields, zap.String(logger.FieldTraceID, traceID))
		}

		switch appErr.Code {
		case code.ErrorDatabase, code.ErrorServerInternal:
			fields = append(fields, zap.Error(appErr.Cause), zap.Any("details", appErr.Details))
			s.logger.Error("memory operation failed", fields...)
		default:
			fields = append(fields, zap.String("message", appErr.Message))
			s.logger.Warn("memory operation rejected", fields...)
		}
	}
	s.metrics.ObserveOperation(op, result, start)
}

func checkID(id int64) error {
	if id <= 0 {
		return apperrors.Validation("entry_id", id, "entry_id must be a positive integer")
	}
	return nil
}

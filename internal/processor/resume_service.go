package processor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"resume-engine-go/internal/config"
	"resume-engine-go/internal/constants"
	"resume-engine-go/internal/logger"
	"resume-engine-go/internal/storage"
	"resume-engine-go/internal/tracing"
	"resume-engine-go/internal/types"
	"resume-engine-go/pkg/utils"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// processingLockTTL 单个提交的处理锁时长，略长于流水线超时
const processingLockTTL = 5 * time.Minute

// ResumeService 简历解析服务
// 消费上传消息，驱动流水线并持久化结果。
type ResumeService interface {
	// ProcessUploadedResume 处理一条上传消息：下载、解析、去重、落库
	ProcessUploadedResume(ctx context.Context, message storage.ResumeUploadMessage) error

	// SubmissionStatus 查询某个提交当前的处理状态
	SubmissionStatus(ctx context.Context, submissionUUID string) (string, error)

	// Pipeline 暴露底层流水线，供同步解析接口复用
	Pipeline() *ResumePipeline
}

// resumeServiceImpl 是ResumeService的实现
// 采用Facade模式，内部持有流水线和存储依赖，不暴露给外部
type resumeServiceImpl struct {
	pipeline *ResumePipeline
	storage  *storage.Storage
	cfg      *config.Config
	logger   zerolog.Logger
}

// NewResumeService 创建新的简历解析服务实例
func NewResumeService(ctx context.Context, cfg *config.Config, st *storage.Storage) (ResumeService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	if st == nil {
		return nil, fmt.Errorf("存储依赖不能为空")
	}
	if st.MySQL == nil {
		return nil, fmt.Errorf("解析服务需要MySQL")
	}
	if st.MinIO == nil {
		return nil, fmt.Errorf("解析服务需要MinIO")
	}

	components, err := DefaultComponents(ctx, cfg, st,
		WithcompStageobserver(newRedisStageObserver(st.Redis)))
	if err != nil {
		return nil, fmt.Errorf("创建流水线组件失败: %w", err)
	}

	pipeline, err := NewResumePipeline(components, DefaultSettings(cfg))
	if err != nil {
		return nil, fmt.Errorf("创建流水线失败: %w", err)
	}

	return &resumeServiceImpl{
		pipeline: pipeline,
		storage:  st,
		cfg:      cfg,
		logger:   logger.With("component", "resume_service"),
	}, nil
}

// newRedisStageObserver 把阶段迁移写入Redis，供状态查询接口轮询
// redis为空时退化为no-op。
func newRedisStageObserver(redis *storage.Redis) StageObserver {
	return StageObserverFunc(func(ctx context.Context, submissionUUID string, stage types.PipelineStage) {
		if redis == nil || submissionUUID == "" {
			return
		}
		if err := redis.SetPipelineStage(ctx, submissionUUID, string(stage)); err != nil {
			logger.Warn().
				Err(err).
				Str("submission_uuid", submissionUUID).
				Str("stage", string(stage)).
				Msg("写入流水线阶段缓存失败")
		}
	})
}

// Pipeline 暴露底层流水线
func (s *resumeServiceImpl) Pipeline() *ResumePipeline {
	return s.pipeline
}

// ProcessUploadedResume 处理一条上传消息
// 整体流程: 加锁 → 置PARSING → 下载原件 → 解析流水线 → 解析文本去重 →
// 上传解析文本 → 事务落库 → 发布完成事件。
// 内容重复按正常流程处理（状态置DUPLICATE_SKIPPED）；解析失败回滚MD5登记。
func (s *resumeServiceImpl) ProcessUploadedResume(ctx context.Context, message storage.ResumeUploadMessage) error {
	ctx, span := pipelineTracer.Start(ctx, "ResumeService.ProcessUploadedResume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("submission_uuid", message.SubmissionUUID),
			attribute.String("original_filename", message.OriginalFilename),
		))
	defer span.End()

	log := s.logger.With().
		Str("submission_uuid", message.SubmissionUUID).
		Str("method", "ProcessUploadedResume").
		Logger()

	if message.SubmissionUUID == "" || message.OriginalFilePathOSS == "" {
		err := fmt.Errorf("消息缺少必要字段: submission_uuid或original_file_path_oss为空")
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// 处理锁防止同一提交被并发消费
	var lockValue string
	if s.storage.Redis != nil {
		var err error
		lockValue, err = s.storage.Redis.AcquireProcessingLock(ctx, message.SubmissionUUID, processingLockTTL)
		if err != nil {
			log.Warn().Err(err).Msg("获取处理锁失败，继续处理")
		} else if lockValue == "" {
			log.Info().Msg("提交正在被其他工作者处理，跳过")
			span.SetStatus(codes.Ok, "already being processed")
			return nil
		}
		if lockValue != "" {
			defer func() {
				if _, err := s.storage.Redis.ReleaseProcessingLock(context.WithoutCancel(ctx), message.SubmissionUUID, lockValue); err != nil {
					log.Warn().Err(err).Msg("释放处理锁失败")
				}
			}()
		}
	}

	if err := s.storage.MySQL.UpdateResumeProcessingStatus(ctx, message.SubmissionUUID, constants.StatusParsing); err != nil {
		log.Error().Err(err).Msg("更新处理状态为PARSING失败")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// 从MinIO下载原始文件
	fileData, err := s.storage.MinIO.GetResumeFile(ctx, message.OriginalFilePathOSS)
	if err != nil {
		return s.markFailed(ctx, span, log, message, fmt.Errorf("下载原始简历文件失败: %w", err))
	}

	doc := &types.RawDocument{
		Data:     fileData,
		Format:   formatFromFilename(message.OriginalFilename),
		FileName: message.OriginalFilename,
	}

	// 执行解析流水线
	resume, err := s.pipeline.Parse(ctx, doc, message.SubmissionUUID)
	if err != nil {
		return s.markFailed(ctx, span, log, message, err)
	}

	// 解析文本内容级去重
	parsedTextMD5 := utils.CalculateMD5([]byte(resume.Text.FullText))
	if s.storage.Redis != nil {
		exists, err := s.storage.Redis.CheckAndAddParsedTextMD5(ctx, parsedTextMD5)
		if err != nil {
			log.Warn().Err(err).Msg("解析文本去重检查失败，按非重复继续")
		} else if exists {
			// 内容重复不是错误，短路为DUPLICATE_SKIPPED
			log.Info().Str("parsed_text_md5", parsedTextMD5).Msg("解析文本内容重复，跳过落库")
			if err := s.storage.MySQL.UpdateResumeProcessingStatus(ctx, message.SubmissionUUID, constants.StatusDuplicateSkipped); err != nil {
				log.Error().Err(err).Msg("更新状态为DUPLICATE_SKIPPED失败")
			}
			s.publishParsedEvent(ctx, log, message.SubmissionUUID, constants.StatusDuplicateSkipped, "", resume, ErrDuplicateContent)
			span.SetAttributes(attribute.Bool("duplicate_content", true))
			span.SetStatus(codes.Ok, "duplicate content")
			return nil
		}
	}

	// 上传解析文本到MinIO
	parsedTextPath, err := s.storage.MinIO.UploadParsedText(ctx, message.SubmissionUUID, resume.Text.FullText)
	if err != nil {
		return s.markFailed(ctx, span, log, message, fmt.Errorf("上传解析文本失败: %w", err))
	}

	// 事务落库：分析JSON + 质量评分 + 分节明细 + COMPLETED状态
	if err := s.storage.MySQL.SaveAnalysisResult(ctx, message.SubmissionUUID, resume, parsedTextPath, parsedTextMD5); err != nil {
		return s.markFailed(ctx, span, log, message, fmt.Errorf("保存解析结果失败: %w", err))
	}

	s.publishParsedEvent(ctx, log, message.SubmissionUUID, constants.StatusCompleted, parsedTextPath, resume, nil)

	log.Info().
		Int("skills", len(resume.Skills)).
		Int("experience", len(resume.Experience)).
		Int("education", len(resume.Education)).
		Bool("partial", resume.Meta.Partial).
		Msg("简历解析完成")
	span.SetStatus(codes.Ok, "")
	return nil
}

// markFailed 统一的失败处理路径
// 状态置FAILED，回滚原始文件MD5登记（允许重新上传），发布失败事件。
func (s *resumeServiceImpl) markFailed(ctx context.Context, span trace.Span, log zerolog.Logger, message storage.ResumeUploadMessage, cause error) error {
	log.Error().Err(cause).Msg("简历解析失败")
	tracing.RecordError(span, cause, tracing.ErrorTypePipeline)

	// 失败路径的写操作不受已取消ctx牵连
	cleanupCtx := context.WithoutCancel(ctx)

	if err := s.storage.MySQL.UpdateResumeProcessingStatus(cleanupCtx, message.SubmissionUUID, constants.StatusFailed); err != nil {
		log.Error().Err(err).Msg("更新状态为FAILED失败")
	}

	if s.storage.Redis != nil && message.RawFileMD5 != "" {
		if err := s.storage.Redis.RemoveRawFileMD5(cleanupCtx, message.RawFileMD5); err != nil {
			log.Warn().Err(err).Str("raw_file_md5", message.RawFileMD5).Msg("回滚原始文件MD5登记失败")
		}
	}

	s.publishParsedEvent(cleanupCtx, log, message.SubmissionUUID, constants.StatusFailed, "", nil, cause)
	return cause
}

// publishParsedEvent 发布解析完成事件，失败只记日志不影响主流程
func (s *resumeServiceImpl) publishParsedEvent(ctx context.Context, log zerolog.Logger, submissionUUID, status, parsedTextPath string, resume *types.ParsedResume, cause error) {
	if s.storage.RabbitMQ == nil {
		return
	}

	event := storage.ResumeParsedEvent{
		SubmissionUUID:    submissionUUID,
		ProcessingStatus:  status,
		ParsedTextPathOSS: parsedTextPath,
		ProcessedAt:       time.Now().Unix(),
	}
	if resume != nil && resume.Quality != nil {
		event.QualityScore = resume.Quality.OverallScore
		event.QualityGrade = resume.Quality.LetterGrade
	}
	if cause != nil {
		event.Error = cause.Error()
	}

	exchange := s.cfg.RabbitMQ.ResumeEventsExchange
	if exchange == "" {
		exchange = constants.ResumeEventsExchange
	}
	if err := s.storage.RabbitMQ.PublishJSON(ctx, exchange, constants.ResumeParsedRouteKey, event, true); err != nil {
		log.Warn().Err(err).Msg("发布解析完成事件失败")
	}
}

// SubmissionStatus 查询提交状态：优先Redis阶段缓存，未命中回落到MySQL
func (s *resumeServiceImpl) SubmissionStatus(ctx context.Context, submissionUUID string) (string, error) {
	if s.storage.Redis != nil {
		stage, err := s.storage.Redis.GetPipelineStage(ctx, submissionUUID)
		if err == nil {
			return stage, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Str("submission_uuid", submissionUUID).Msg("读取阶段缓存失败，回落到MySQL")
		}
	}

	submission, err := s.storage.MySQL.GetResumeSubmission(ctx, submissionUUID)
	if err != nil {
		return "", err
	}
	return submission.ProcessingStatus, nil
}

// formatFromFilename 按扩展名判断文档格式
// 未知扩展名原样下传，由文本提取器报不支持的格式。
func formatFromFilename(filename string) types.DocumentFormat {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return types.FormatPDF
	case ".docx", ".doc":
		return types.FormatDocx
	case ".txt", ".text", "":
		return types.FormatPlainText
	default:
		return types.DocumentFormat(strings.TrimPrefix(ext, "."))
	}
}

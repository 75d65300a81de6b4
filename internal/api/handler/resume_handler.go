package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"resume-engine-go/internal/config"
	"resume-engine-go/internal/constants"
	"resume-engine-go/internal/logger"
	"resume-engine-go/internal/processor"
	"resume-engine-go/internal/storage"
	"resume-engine-go/internal/storage/models"
	"resume-engine-go/internal/types"

	"github.com/gofrs/uuid/v5"
)

// ResumeHandler 简历接口处理器
// 负责上传入队和同步解析接口，异步解析由消费者驱动ResumeService完成。
type ResumeHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	service processor.ResumeService
}

// NewResumeHandler 创建一个新的简历接口处理器
func NewResumeHandler(cfg *config.Config, storage *storage.Storage, service processor.ResumeService) *ResumeHandler {
	return &ResumeHandler{
		cfg:     cfg,
		storage: storage,
		service: service,
	}
}

// ResumeUploadResponse 简历上传响应
type ResumeUploadResponse struct {
	SubmissionUUID string `json:"submission_uuid"`
	Status         string `json:"status"`
	// Duplicate 为true时SubmissionUUID指向已存在的提交
	Duplicate bool `json:"duplicate,omitempty"`
}

// HandleResumeUpload 处理简历上传请求
// 流式上传到MinIO并顺带计算MD5，再做文件级秒传去重：
// 命中时删除刚上传的对象，返回已有提交的UUID。
func (h *ResumeHandler) HandleResumeUpload(ctx context.Context, reader io.Reader, fileSize int64,
	filename string, sourceChannel string) (*ResumeUploadResponse, error) {

	// 1. 生成UUIDv7，时间有序便于按提交时间排序
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成UUIDv7失败: %w", err)
	}
	submissionUUID := uuidV7.String()

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".pdf"
	}

	// 2. 流式上传原始文件到MinIO，TeeReader顺带计算MD5
	objectKey, fileMD5Hex, err := h.storage.MinIO.UploadResumeFileStreaming(ctx, submissionUUID, ext, reader, fileSize)
	if err != nil {
		return nil, fmt.Errorf("上传简历到MinIO失败: %w", err)
	}

	// 3. 文件MD5秒传去重
	exists, existingUUID, err := h.checkDuplicateFile(ctx, fileMD5Hex, submissionUUID)
	if err != nil {
		// 去重检查失败时按非重复继续，文本级去重是第二道防线
		logger.Warn().
			Err(err).
			Str("md5", fileMD5Hex).
			Msg("文件MD5去重检查失败，按新文件继续")
	} else if exists {
		logger.Info().
			Str("md5", fileMD5Hex).
			Str("existing_uuid", existingUUID).
			Str("filename", filename).
			Msg("检测到重复文件，复用已有提交")
		if err := h.storage.MinIO.DeleteFile(ctx, objectKey); err != nil {
			logger.Warn().Err(err).Str("object_key", objectKey).Msg("清理重复上传的对象失败")
		}
		return &ResumeUploadResponse{
			SubmissionUUID: existingUUID,
			Status:         constants.StatusDuplicateSkipped,
			Duplicate:      true,
		}, nil
	}

	// 4. 落库UPLOADED状态记录
	submission := &models.ResumeSubmission{
		SubmissionUUID:      submissionUUID,
		SubmissionTimestamp: time.Now(),
		SourceChannel:       sourceChannel,
		OriginalFilename:    filename,
		OriginalFilePathOSS: objectKey,
		RawFileMD5:          fileMD5Hex,
		ProcessingStatus:    constants.StatusUploaded,
		ParserVersion:       h.service.Pipeline().ParserVersion(),
	}
	if err := h.storage.MySQL.CreateResumeSubmission(ctx, submission); err != nil {
		return nil, fmt.Errorf("创建简历提交记录失败: %w", err)
	}

	// 5. 发布上传消息进入解析队列
	message := storage.ResumeUploadMessage{
		SubmissionUUID:      submissionUUID,
		SubmissionTimestamp: submission.SubmissionTimestamp,
		SourceChannel:       sourceChannel,
		OriginalFilename:    filename,
		OriginalFilePathOSS: objectKey,
		RawFileMD5:          fileMD5Hex,
	}
	if err := h.storage.RabbitMQ.PublishJSON(
		ctx,
		h.exchangeName(),
		h.uploadRoutingKey(),
		message,
		true,
	); err != nil {
		return nil, fmt.Errorf("发布上传消息到RabbitMQ失败: %w", err)
	}

	if err := h.storage.MySQL.UpdateResumeProcessingStatus(ctx, submissionUUID, constants.StatusQueuedForParse); err != nil {
		logger.Warn().Err(err).Str("submission_uuid", submissionUUID).Msg("更新状态为QUEUED_FOR_PARSE失败")
	}

	return &ResumeUploadResponse{
		SubmissionUUID: submissionUUID,
		Status:         constants.StatusQueuedForParse,
	}, nil
}

// checkDuplicateFile 查找是否已有相同MD5的文件提交
// 优先走Redis秒传集合，Redis未配置时降级为MySQL索引查询。
func (h *ResumeHandler) checkDuplicateFile(ctx context.Context, md5Hex, submissionUUID string) (bool, string, error) {
	if h.storage.Redis != nil {
		return h.storage.Redis.CheckAndSetFileMD5(ctx, md5Hex, submissionUUID)
	}

	existing, err := h.storage.MySQL.FindSubmissionByRawFileMD5(ctx, md5Hex)
	if err != nil {
		return false, "", err
	}
	if existing == nil {
		return false, "", nil
	}
	return true, existing.SubmissionUUID, nil
}

// SubmissionAnalysisResponse 解析结果查询响应
type SubmissionAnalysisResponse struct {
	SubmissionUUID   string              `json:"submission_uuid"`
	ProcessingStatus string              `json:"processing_status"`
	QualityScore     *float64            `json:"quality_score,omitempty"`
	QualityGrade     string              `json:"quality_grade,omitempty"`
	ParserVersion    string              `json:"parser_version,omitempty"`
	Analysis         *types.ParsedResume `json:"analysis,omitempty"`
}

// HandleGetAnalysis 查询一次提交的完整解析结果
// 未完成的提交只返回状态，不带分析内容。
func (h *ResumeHandler) HandleGetAnalysis(ctx context.Context, submissionUUID string) (*SubmissionAnalysisResponse, error) {
	submission, err := h.storage.MySQL.GetResumeSubmission(ctx, submissionUUID)
	if err != nil {
		return nil, err
	}

	resp := &SubmissionAnalysisResponse{
		SubmissionUUID:   submission.SubmissionUUID,
		ProcessingStatus: submission.ProcessingStatus,
		QualityScore:     submission.QualityScore,
		QualityGrade:     submission.QualityGrade,
		ParserVersion:    submission.ParserVersion,
	}

	if len(submission.AnalysisJSON) > 0 {
		var analysis types.ParsedResume
		if err := json.Unmarshal(submission.AnalysisJSON, &analysis); err != nil {
			logger.Error().
				Err(err).
				Str("submission_uuid", submissionUUID).
				Msg("反序列化分析结果JSON失败")
			return nil, fmt.Errorf("解析已存储的分析结果失败: %w", err)
		}
		resp.Analysis = &analysis
	}

	return resp, nil
}

// SubmissionStatusResponse 状态查询响应
type SubmissionStatusResponse struct {
	SubmissionUUID string `json:"submission_uuid"`
	Status         string `json:"status"`
}

// HandleSubmissionStatus 查询提交的当前处理状态
func (h *ResumeHandler) HandleSubmissionStatus(ctx context.Context, submissionUUID string) (*SubmissionStatusResponse, error) {
	status, err := h.service.SubmissionStatus(ctx, submissionUUID)
	if err != nil {
		return nil, err
	}
	return &SubmissionStatusResponse{
		SubmissionUUID: submissionUUID,
		Status:         status,
	}, nil
}

// SubmissionListItem 列表项，只带概要字段，不含分析JSON
type SubmissionListItem struct {
	SubmissionUUID      string    `json:"submission_uuid"`
	SubmissionTimestamp time.Time `json:"submission_timestamp"`
	OriginalFilename    string    `json:"original_filename"`
	SourceChannel       string    `json:"source_channel,omitempty"`
	ProcessingStatus    string    `json:"processing_status"`
	QualityScore        *float64  `json:"quality_score,omitempty"`
	QualityGrade        string    `json:"quality_grade,omitempty"`
}

// SubmissionListResponse 分页列表响应
type SubmissionListResponse struct {
	Total       int64                `json:"total"`
	Offset      int                  `json:"offset"`
	Limit       int                  `json:"limit"`
	Submissions []SubmissionListItem `json:"submissions"`
}

// HandleListSubmissions 按处理状态分页查询提交记录
// status为空表示不过滤，limit超出上限时截断到100。
func (h *ResumeHandler) HandleListSubmissions(ctx context.Context, status string, offset, limit int) (*SubmissionListResponse, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	submissions, total, err := h.storage.MySQL.ListSubmissionsByStatus(ctx, status, offset, limit)
	if err != nil {
		return nil, err
	}

	items := make([]SubmissionListItem, 0, len(submissions))
	for _, s := range submissions {
		items = append(items, SubmissionListItem{
			SubmissionUUID:      s.SubmissionUUID,
			SubmissionTimestamp: s.SubmissionTimestamp,
			OriginalFilename:    s.OriginalFilename,
			SourceChannel:       s.SourceChannel,
			ProcessingStatus:    s.ProcessingStatus,
			QualityScore:        s.QualityScore,
			QualityGrade:        s.QualityGrade,
		})
	}

	return &SubmissionListResponse{
		Total:       total,
		Offset:      offset,
		Limit:       limit,
		Submissions: items,
	}, nil
}

// HandleParseText 同步解析纯文本简历，不落库
func (h *ResumeHandler) HandleParseText(ctx context.Context, text string) (*types.ParsedResume, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("简历文本不能为空")
	}
	return h.service.Pipeline().ParseText(ctx, text, "")
}

// HandleExtractSkills 同步提取技能，不做完整解析
func (h *ResumeHandler) HandleExtractSkills(ctx context.Context, text string) ([]types.ExtractedSkill, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("简历文本不能为空")
	}
	return h.service.Pipeline().ExtractSkillsOnly(ctx, text)
}

// ParserStatusResponse 解析器状态响应
type ParserStatusResponse struct {
	ParserVersion    string   `json:"parser_version"`
	SupportedFormats []string `json:"supported_formats"`
	TextMethods      []string `json:"text_methods"`
	SkillGenerators  []string `json:"skill_generators"`
	StageTimeout     string   `json:"stage_timeout"`
	Workers          int      `json:"consumer_workers"`
}

// HandleParserStatus 返回解析器的运行时信息：版本、启用的提取方法和并发配置
func (h *ResumeHandler) HandleParserStatus() *ParserStatusResponse {
	textMethods, skillGenerators := h.service.Pipeline().ComponentStatus()
	return &ParserStatusResponse{
		ParserVersion: h.service.Pipeline().ParserVersion(),
		SupportedFormats: []string{
			string(types.FormatPDF),
			string(types.FormatDocx),
			string(types.FormatPlainText),
		},
		TextMethods:     textMethods,
		SkillGenerators: skillGenerators,
		StageTimeout:    h.cfg.Parser.StageTimeout,
		Workers:         h.cfg.RabbitMQ.ConsumerWorkers,
	}
}

// StartResumeUploadConsumer 启动简历上传消费者
// 声明拓扑后按prefetch数并发消费，消息处理失败时Nack重回队列，
// 超过重试次数由DLX接走。
func (h *ResumeHandler) StartResumeUploadConsumer(ctx context.Context) error {
	if h.storage.RabbitMQ == nil {
		return fmt.Errorf("RabbitMQ未配置，无法启动消费者")
	}

	if err := h.storage.RabbitMQ.EnsureUploadTopology(); err != nil {
		return fmt.Errorf("声明上传队列拓扑失败: %w", err)
	}

	queueName := h.cfg.RabbitMQ.UploadQueue
	if queueName == "" {
		queueName = constants.ResumeUploadQueue
	}
	prefetch := h.cfg.RabbitMQ.PrefetchCount
	if prefetch <= 0 {
		prefetch = 1
	}

	logger.Info().
		Str("queue", queueName).
		Int("prefetch_count", prefetch).
		Msg("简历上传消费者就绪")

	_, err := h.storage.RabbitMQ.StartConsumer(queueName, prefetch, func(data []byte) bool {
		var message storage.ResumeUploadMessage
		if err := json.Unmarshal(data, &message); err != nil {
			logger.Error().Err(err).Msg("解析上传消息失败，丢弃")
			// 格式错误的消息重试也无意义
			return true
		}

		if err := h.service.ProcessUploadedResume(ctx, message); err != nil {
			logger.Error().
				Err(err).
				Str("submission_uuid", message.SubmissionUUID).
				Msg("处理简历上传消息失败")
			return false
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("启动消费者失败: %w", err)
	}
	return nil
}

func (h *ResumeHandler) exchangeName() string {
	if h.cfg.RabbitMQ.ResumeEventsExchange != "" {
		return h.cfg.RabbitMQ.ResumeEventsExchange
	}
	return constants.ResumeEventsExchange
}

func (h *ResumeHandler) uploadRoutingKey() string {
	if h.cfg.RabbitMQ.UploadRoutingKey != "" {
		return h.cfg.RabbitMQ.UploadRoutingKey
	}
	return constants.ResumeUploadRouteKey
}

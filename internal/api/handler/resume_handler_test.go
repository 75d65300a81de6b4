package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"resume-engine-go/internal/api/handler"
	"resume-engine-go/internal/api/router"
	"resume-engine-go/internal/config"
	"resume-engine-go/internal/constants"
	"resume-engine-go/internal/processor"
	"resume-engine-go/internal/storage"
	"resume-engine-go/internal/types"
	"resume-engine-go/pkg/ratelimit"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 这些测试只覆盖不依赖后端存储的接口：同步解析、解析器状态和探活。
// 上传/查询接口需要MySQL/MinIO/RabbitMQ，归集成测试环境验证。

// stubResumeService 只提供流水线，上传消费路径在这里不会被触发
type stubResumeService struct {
	pipeline *processor.ResumePipeline
	status   string
}

func (s *stubResumeService) ProcessUploadedResume(ctx context.Context, message storage.ResumeUploadMessage) error {
	return nil
}

func (s *stubResumeService) SubmissionStatus(ctx context.Context, submissionUUID string) (string, error) {
	if s.status == "" {
		return "", storage.ErrSubmissionNotFound
	}
	return s.status, nil
}

func (s *stubResumeService) Pipeline() *processor.ResumePipeline {
	return s.pipeline
}

func newTestEngine(t *testing.T, status string, limiter *ratelimit.TokenBucket) *server.Hertz {
	t.Helper()

	cfg := config.Default()
	components, err := processor.DefaultComponents(context.Background(), cfg, nil)
	require.NoError(t, err, "构建默认组件不应失败")
	pipeline, err := processor.NewResumePipeline(components, processor.DefaultSettings(cfg))
	require.NoError(t, err)

	resumeHandler := handler.NewResumeHandler(cfg, &storage.Storage{}, &stubResumeService{
		pipeline: pipeline,
		status:   status,
	})

	h := server.Default(server.WithHostPorts("127.0.0.1:0"))
	router.RegisterRoutes(h, resumeHandler, limiter)
	return h
}

func postJSON(h *server.Hertz, path, body string) *ut.ResponseRecorder {
	return ut.PerformRequest(h.Engine, "POST", path,
		&ut.Body{Body: bytes.NewBufferString(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
}

const sampleResumeText = `张三
zhangsan@example.com | 138-0013-8000

SKILLS
Go, MySQL, Redis, Docker

EXPERIENCE
后端工程师 - 某科技公司
2021-03 - 至今
- 负责简历解析服务的设计与开发

EDUCATION
某大学 计算机科学 学士
2017 - 2021
`

func TestPingAndHealth(t *testing.T) {
	h := newTestEngine(t, "", nil)

	resp := ut.PerformRequest(h.Engine, "GET", "/ping", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"message":"pong"}`, resp.Body.String())

	resp = ut.PerformRequest(h.Engine, "GET", "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestParserStatusRoute(t *testing.T) {
	h := newTestEngine(t, "", nil)

	resp := ut.PerformRequest(h.Engine, "GET", "/api/v1/parser/status", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var status handler.ParserStatusResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &status))
	assert.Equal(t, constants.DefaultParserVersion, status.ParserVersion)
	assert.ElementsMatch(t, []string{"pdf", "docx", "plain-text"}, status.SupportedFormats)
	assert.Contains(t, status.TextMethods, "pdf-native", "默认方法链应包含原生PDF提取")
	assert.Contains(t, status.TextMethods, "plain-text")
	assert.ElementsMatch(t, []string{"model", "rule", "dictionary"}, status.SkillGenerators)
}

func TestParseTextRoute(t *testing.T) {
	h := newTestEngine(t, "", nil)

	body, err := json.Marshal(map[string]string{"text": sampleResumeText})
	require.NoError(t, err)

	resp := postJSON(h, "/api/v1/resume/parse-text", string(body))
	require.Equal(t, http.StatusOK, resp.Code, "响应体: %s", resp.Body.String())

	var resume types.ParsedResume
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &resume))
	require.NotNil(t, resume.Text)
	assert.NotEmpty(t, resume.Skills, "技能段落中的技能应被提取出来")
	require.NotNil(t, resume.Quality)
	assert.Greater(t, resume.Quality.OverallScore, 0.0)
	assert.Equal(t, constants.DefaultParserVersion, resume.Meta.ParserVersion)
}

func TestParseTextRouteRejectsBlankText(t *testing.T) {
	h := newTestEngine(t, "", nil)

	resp := postJSON(h, "/api/v1/resume/parse-text", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = postJSON(h, "/api/v1/resume/parse-text", `{invalid json`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestExtractSkillsRoute(t *testing.T) {
	h := newTestEngine(t, "", nil)

	body, err := json.Marshal(map[string]string{"text": sampleResumeText})
	require.NoError(t, err)

	resp := postJSON(h, "/api/v1/resume/extract-skills", string(body))
	require.Equal(t, http.StatusOK, resp.Code)

	var result struct {
		Skills []types.ExtractedSkill `json:"skills"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.NotEmpty(t, result.Skills)

	names := make([]string, 0, len(result.Skills))
	for _, s := range result.Skills {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "Go")
	assert.Contains(t, names, "MySQL")
}

func TestSyncEndpointsRateLimited(t *testing.T) {
	// 容量1、速率极低的令牌桶：第一个请求放行，第二个立即429
	limiter := ratelimit.NewTokenBucket(1, 1)
	h := newTestEngine(t, "", limiter)

	body := fmt.Sprintf(`{"text":%q}`, sampleResumeText)

	resp := postJSON(h, "/api/v1/resume/extract-skills", body)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = postJSON(h, "/api/v1/resume/extract-skills", body)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
}

func TestSubmissionStatusRoute(t *testing.T) {
	h := newTestEngine(t, constants.StatusParsing, nil)

	resp := ut.PerformRequest(h.Engine, "GET", "/api/v1/resume/some-uuid/status", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var status handler.SubmissionStatusResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &status))
	assert.Equal(t, "some-uuid", status.SubmissionUUID)
	assert.Equal(t, constants.StatusParsing, status.Status)
}

func TestSubmissionStatusRouteNotFound(t *testing.T) {
	h := newTestEngine(t, "", nil)

	resp := ut.PerformRequest(h.Engine, "GET", "/api/v1/resume/unknown/status", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

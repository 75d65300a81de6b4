package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"resume-engine-go/internal/config"
	"resume-engine-go/internal/logger"
	"resume-engine-go/internal/processor"
	"resume-engine-go/internal/types"

	"github.com/spf13/pflag"
)

// resumecheck 本地简历解析工具
// 不依赖任何后端存储，直接把文件跑一遍解析流水线并输出JSON。
var (
	filePath   string
	configPath string
	command    string
	pretty     bool
	verbose    bool
)

func main() {
	pflag.StringVarP(&filePath, "file", "f", "", "简历文件路径 (必填，支持pdf/docx/txt)")
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径，缺省使用内置默认配置")
	pflag.StringVar(&command, "cmd", "parse", "执行的命令: parse=完整解析, skills=仅提取技能, quality=仅质量评估")
	pflag.BoolVar(&pretty, "pretty", true, "缩进输出JSON")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")
	pflag.Parse()

	if filePath == "" {
		fmt.Fprintln(os.Stderr, "错误: 必须通过 --file 提供简历文件路径")
		pflag.Usage()
		os.Exit(1)
	}

	level := "error"
	if verbose {
		level = "debug"
	}
	logger.Init(logger.Config{Level: level, Format: "pretty", TimeFormat: time.RFC3339})

	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pipeline, err := buildPipeline(ctx, cfg)
	if err != nil {
		fatal("初始化解析流水线失败: %v", err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		fatal("读取文件失败: %v", err)
	}

	switch command {
	case "parse":
		runParse(ctx, pipeline, data)
	case "skills":
		runSkills(ctx, pipeline, data)
	case "quality":
		runQuality(ctx, pipeline, data)
	default:
		fmt.Fprintf(os.Stderr, "错误: 未知命令 '%s'。支持的命令: parse, skills, quality\n", command)
		pflag.Usage()
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	if configPath == "" {
		return config.Default()
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fatal("加载配置失败: %v", err)
	}
	return cfg
}

func buildPipeline(ctx context.Context, cfg *config.Config) (*processor.ResumePipeline, error) {
	components, err := processor.DefaultComponents(ctx, cfg, nil)
	if err != nil {
		return nil, err
	}
	return processor.NewResumePipeline(components, processor.DefaultSettings(cfg))
}

func runParse(ctx context.Context, pipeline *processor.ResumePipeline, data []byte) {
	doc := rawDocument(data)
	resume, err := pipeline.Parse(ctx, doc, "")
	if err != nil {
		fatal("解析失败: %v", err)
	}
	printJSON(resume)
}

func runSkills(ctx context.Context, pipeline *processor.ResumePipeline, data []byte) {
	doc := rawDocument(data)
	resume, err := pipeline.Parse(ctx, doc, "")
	if err != nil {
		fatal("解析失败: %v", err)
	}
	printJSON(map[string]interface{}{"skills": resume.Skills})
}

func runQuality(ctx context.Context, pipeline *processor.ResumePipeline, data []byte) {
	doc := rawDocument(data)
	resume, err := pipeline.Parse(ctx, doc, "")
	if err != nil {
		fatal("解析失败: %v", err)
	}
	printJSON(resume.Quality)
}

func rawDocument(data []byte) *types.RawDocument {
	format := types.FormatPlainText
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		format = types.FormatPDF
	case ".docx", ".doc":
		format = types.FormatDocx
	}
	return &types.RawDocument{
		Data:     data,
		Format:   format,
		FileName: filepath.Base(filePath),
	}
}

func printJSON(v interface{}) {
	var out []byte
	var err error
	if pretty {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		fatal("序列化结果失败: %v", err)
	}
	fmt.Println(string(out))
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

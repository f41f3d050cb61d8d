package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"

	"careercraft-go/internal/logger"
)

// MetadataMode Tika 元数据提取模式
type MetadataMode string

const (
	MetadataNone    MetadataMode = "none"
	MetadataMinimal MetadataMode = "minimal"
	MetadataFull    MetadataMode = "full"
)

// importantMetadata minimal 模式下保留的 Tika 元数据字段
var importantMetadata = map[string]bool{
	"pdf:PDFVersion":                true,
	"xmpTPg:NPages":                 true,
	"dcterms:created":               true,
	"language":                      true,
	"dc:title":                      true,
	"Content-Type":                  true,
	"pdf:totalUnmappedUnicodeChars": true,
}

// TikaPDFExtractor 通过 Apache Tika Server 提取 PDF 文本
type TikaPDFExtractor struct {
	serverURL string
	client    *client.Client
	timeout   time.Duration
	mode      MetadataMode
	logger    zerolog.Logger
}

// TikaOption Tika 提取器配置项
type TikaOption func(*TikaPDFExtractor)

// WithMetadataMode 设置元数据提取模式，未知值按 minimal 处理
func WithMetadataMode(mode MetadataMode) TikaOption {
	return func(e *TikaPDFExtractor) {
		switch mode {
		case MetadataNone, MetadataFull:
			e.mode = mode
		default:
			e.mode = MetadataMinimal
		}
	}
}

// WithTikaTimeout 单次请求超时
func WithTikaTimeout(d time.Duration) TikaOption {
	return func(e *TikaPDFExtractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithTikaLogger 配置自定义日志记录器
func WithTikaLogger(l zerolog.Logger) TikaOption {
	return func(e *TikaPDFExtractor) {
		e.logger = l
	}
}

var _ PDFExtractor = (*TikaPDFExtractor)(nil)

// NewTikaPDFExtractor 创建 Tika 提取器，serverURL 例如 http://localhost:9998
func NewTikaPDFExtractor(serverURL string, options ...TikaOption) (*TikaPDFExtractor, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("tika server url is empty")
	}
	c, err := client.NewClient(client.WithDialTimeout(5 * time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to create tika client: %w", err)
	}
	e := &TikaPDFExtractor{
		serverURL: strings.TrimRight(serverURL, "/"),
		client:    c,
		timeout:   defaultExtractTimeout,
		mode:      MetadataMinimal,
		logger:    logger.Component("tika"),
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// ExtractTextFromReader 读取全部内容后 PUT 到 /tika 取纯文本，按模式再请求 /meta
func (e *TikaPDFExtractor) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string, extraMeta map[string]any) (string, map[string]any, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", extraMeta, fmt.Errorf("读取PDF内容失败: %w", err)
	}
	return e.ExtractTextFromBytes(ctx, data, uri, extraMeta)
}

// ExtractTextFromBytes 从字节数组提取文本
func (e *TikaPDFExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string, extraMeta map[string]any) (string, map[string]any, error) {
	start := time.Now()
	meta := make(map[string]any, len(extraMeta)+4)
	for k, v := range extraMeta {
		meta[k] = v
	}

	body, err := e.put(ctx, "/tika", "text/plain", data, uri)
	if err != nil {
		e.logger.Warn().Err(err).Str("uri", uri).Msg("Tika 提取文本失败")
		return "", meta, err
	}
	text := string(body)
	if strings.TrimSpace(text) == "" {
		return "", meta, fmt.Errorf("%w: tika returned no text for URI %s", ErrEmptyDocument, uri)
	}

	if e.mode != MetadataNone {
		raw, err := e.metadata(ctx, data, uri)
		if err != nil {
			// 元数据失败不影响文本
			e.logger.Debug().Err(err).Str("uri", uri).Msg("Tika 元数据提取失败")
		}
		for k, v := range raw {
			if e.mode == MetadataFull || importantMetadata[k] {
				meta[k] = v
			}
		}
	}

	duration := time.Since(start)
	meta["text_length"] = len(text)
	meta["processing_duration_ms"] = duration.Milliseconds()
	e.logger.Debug().Str("uri", uri).Int("chars", len(text)).Dur("duration", duration).Msg("Tika 提取完成")
	return text, meta, nil
}

func (e *TikaPDFExtractor) metadata(ctx context.Context, data []byte, uri string) (map[string]any, error) {
	body, err := e.put(ctx, "/meta", "application/json", data, uri)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("解析元数据JSON失败: %w", err)
	}
	return out, nil
}

// put 返回的切片已拷贝，可以在释放响应后使用
func (e *TikaPDFExtractor) put(ctx context.Context, path, accept string, data []byte, uri string) ([]byte, error) {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetRequestURI(e.serverURL + path)
	req.SetMethod(consts.MethodPut)
	req.Header.SetContentTypeBytes([]byte("application/pdf"))
	req.Header.Set("Accept", accept)
	if uri != "" {
		req.Header.Set("X-Tika-Resource-Name", uri)
	}
	req.SetBody(data)

	if err := e.client.DoTimeout(ctx, req, resp, e.timeout); err != nil {
		return nil, fmt.Errorf("请求Tika服务器失败: %w", err)
	}
	if resp.StatusCode() != consts.StatusOK {
		return nil, fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode())
	}
	return bytes.Clone(resp.Body()), nil
}

// Package parser 负责把上传的文档转换为纯文本。
package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"careercraft-go/internal/resume"
)

var (
	// ErrUnsupportedFormat 不支持的文件类型
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmptyDocument 文档中没有可读文本
	ErrEmptyDocument = errors.New("document contains no readable text")
)

// 面向用户的提示，文档不可读时随空结果一起返回
const (
	WarningUnreadable = "The file could not be read. Please upload a valid PDF or plain-text resume."
	WarningNoText     = "No readable text found in the document. Please ensure the PDF contains text (not just images)."
)

// PDFExtractor 定义PDF文本提取器接口
type PDFExtractor interface {
	ExtractTextFromReader(ctx context.Context, r io.Reader, uri string, extraMeta map[string]any) (string, map[string]any, error)
}

// Document 上传文档的提取结果。Warning 非空时 Text 为空。
type Document struct {
	Filename string         `json:"filename"`
	Text     string         `json:"text"`
	Warning  string         `json:"warning,omitempty"`
	Metadata map[string]any `json:"-"`
}

// TextFromUpload 根据扩展名提取文本：.pdf 交给 extractor，.txt/.md 直接读取。
// 只有不支持的格式返回错误；无法解析或没有文本的文档返回带 Warning 的空结果。
func TextFromUpload(ctx context.Context, extractor PDFExtractor, filename string, data []byte) (Document, error) {
	doc := Document{Filename: filename}

	var raw string
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".pdf":
		if extractor == nil {
			return doc, fmt.Errorf("%w: pdf extraction is not available", ErrUnsupportedFormat)
		}
		text, meta, err := extractor.ExtractTextFromReader(ctx, bytes.NewReader(data), filename, map[string]any{
			"original_filename": filename,
			"size_bytes":        len(data),
		})
		if err != nil {
			doc.Warning = WarningUnreadable
			if errors.Is(err, ErrEmptyDocument) {
				doc.Warning = WarningNoText
			}
			return doc, nil
		}
		doc.Metadata = meta
		raw = text
	case ".txt", ".md":
		if !utf8.Valid(data) {
			doc.Warning = WarningUnreadable
			return doc, nil
		}
		raw = string(data)
	default:
		return doc, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	doc.Text = resume.Clean(raw)
	if strings.TrimSpace(doc.Text) == "" {
		doc.Text = ""
		doc.Warning = WarningNoText
	}
	return doc, nil
}

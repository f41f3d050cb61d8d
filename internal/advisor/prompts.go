package advisor

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed prompts.json
var promptFS embed.FS

var (
	promptsOnce sync.Once
	promptSet   map[string]string
	promptsErr  error
)

// Prompt 按 key 读取内置提示词
func Prompt(key string) (string, error) {
	promptsOnce.Do(func() {
		data, err := promptFS.ReadFile("prompts.json")
		if err != nil {
			promptsErr = fmt.Errorf("读取提示词文件失败: %w", err)
			return
		}
		if err := json.Unmarshal(data, &promptSet); err != nil {
			promptsErr = fmt.Errorf("解析提示词文件失败: %w", err)
		}
	})
	if promptsErr != nil {
		return "", promptsErr
	}
	p, ok := promptSet[key]
	if !ok {
		return "", fmt.Errorf("提示词 %q 不存在", key)
	}
	return p, nil
}

// mustPrompt 只用于内置 key
func mustPrompt(key string) string {
	p, err := Prompt(key)
	if err != nil {
		panic(err)
	}
	return p
}

// FormatPrompt 把 {{.Key}} 占位符替换为 data 中的值
func FormatPrompt(template string, data map[string]string) string {
	result := template
	for key, value := range data {
		result = strings.ReplaceAll(result, "{{."+key+"}}", value)
	}
	return result
}

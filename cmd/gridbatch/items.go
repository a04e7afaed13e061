package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shouni/grid-batch-kit/pkg/domain"
	"github.com/shouni/grid-batch-kit/pkg/prompt"
)

// loadItems はアイテム一覧を YAML（JSON も可）から読み込みます。
// トップレベルは配列か、items キーを持つマップのどちらでも構いません。
func loadItems(path string) ([]domain.BatchItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}

	var items []domain.BatchItem
	if err := yaml.Unmarshal(data, &items); err == nil {
		return items, nil
	}
	var wrapped struct {
		Items []domain.BatchItem `yaml:"items"`
	}
	if err := yaml.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse items: %w", err)
	}
	return wrapped.Items, nil
}

// loadTemplate はテンプレートファイルを読み込みます。path が空なら組み込みテンプレートを返します。
func loadTemplate(path string) (string, error) {
	if path == "" {
		return prompt.DefaultTemplate(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt template: %w", err)
	}
	return string(data), nil
}

package tokenizer

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// Config is the tokenizer configuration document: a vocabulary and the id used for padding.
type Config struct {
	Vocab      map[string]int `json:"vocab"`
	PadTokenID int            `json:"pad_token_id"`
}

// ParseConfig decodes a tokenizer configuration from JSON.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse tokenizer config: %w", err)
	}
	if len(cfg.Vocab) == 0 {
		return nil, errors.New("tokenizer config has empty vocab")
	}
	return &cfg, nil
}

// LoadConfig reads and parses the tokenizer configuration at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokenizer config: %w", err)
	}
	return ParseConfig(data)
}

// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"encoding/json"
	"os"

	"github.com/bvk/gembot/gemini"
	"github.com/bvk/gembot/telegram"
)

type Secrets struct {
	Gemini   *gemini.Credentials `json:"gemini"`
	Telegram *telegram.Secrets   `json:"telegram"`
}

func SecretsFromFile(fpath string) (*Secrets, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}
	s := new(Secrets)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (v *Secrets) Check() error {
	if v.Gemini != nil {
		if err := v.Gemini.Check(); err != nil {
			return err
		}
	}
	if v.Telegram != nil {
		if err := v.Telegram.Check(); err != nil {
			return err
		}
	}
	return nil
}

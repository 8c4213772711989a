package domain

import (
	"fmt"
	"strings"
	"time"
)

// Chatbot is a per-tenant chatbot configuration managed from the console.
type Chatbot struct {
	ID           string
	ClientID     string
	Name         string
	Model        string
	SystemPrompt string
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const maxSystemPromptLen = 8000

func (b *Chatbot) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: chatbot is required", ErrValidation)
	}
	if strings.TrimSpace(b.ClientID) == "" {
		return fmt.Errorf("%w: client id is required", ErrValidation)
	}
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("%w: chatbot name is required", ErrValidation)
	}
	if strings.TrimSpace(b.Model) == "" {
		return fmt.Errorf("%w: chatbot model is required", ErrValidation)
	}
	if len([]rune(b.SystemPrompt)) > maxSystemPromptLen {
		return fmt.Errorf("%w: system prompt exceeds %d characters", ErrValidation, maxSystemPromptLen)
	}
	return nil
}

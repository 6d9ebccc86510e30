// Package model wraps chat models behind a small interface, loads them by
// "provider/model" identifier and coerces their output into typed values.
package model

import (
	"context"
	"errors"

	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/ragrouter/message"
)

// ErrEmptyResponse is returned when a model produces no choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// ChatModel answers a conversation with one assistant turn.
type ChatModel interface {
	Invoke(ctx context.Context, turns []message.Turn, opts ...llms.CallOption) (message.Turn, error)
}

// ChatModelFunc is a function adapter for ChatModel
type ChatModelFunc func(ctx context.Context, turns []message.Turn, opts ...llms.CallOption) (message.Turn, error)

// Invoke implements the ChatModel interface
func (f ChatModelFunc) Invoke(ctx context.Context, turns []message.Turn, opts ...llms.CallOption) (message.Turn, error) {
	return f(ctx, turns, opts...)
}

// LangChainModel adapts a langchaingo llms.Model to ChatModel.
type LangChainModel struct {
	llm llms.Model
	id  string
}

// NewLangChainModel wraps llm. The id is informational.
func NewLangChainModel(id string, llm llms.Model) *LangChainModel {
	return &LangChainModel{llm: llm, id: id}
}

// ID returns the identifier the model was loaded with.
func (m *LangChainModel) ID() string {
	return m.id
}

// Invoke normalizes turns, sends them to the model and returns the first
// choice as an assistant turn.
func (m *LangChainModel) Invoke(ctx context.Context, turns []message.Turn, opts ...llms.CallOption) (message.Turn, error) {
	messages := message.ToMessageContent(message.Normalize(turns))

	resp, err := m.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return message.Turn{}, err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return message.Turn{}, ErrEmptyResponse
	}

	reply := message.AssistantTurn(resp.Choices[0].Content)
	if info := resp.Choices[0].GenerationInfo; len(info) > 0 {
		reply.Metadata = map[string]any{"generationInfo": info}
	}
	return reply, nil
}

// InvokePrompt sends one human turn holding prompt.
func InvokePrompt(ctx context.Context, m ChatModel, prompt string, opts ...llms.CallOption) (message.Turn, error) {
	return m.Invoke(ctx, []message.Turn{message.HumanTurn(prompt)}, opts...)
}

// Package message defines conversation turns and normalizes them into the
// two roles the chat models are fed.
package message

import (
	"maps"

	"github.com/tmc/langchaingo/llms"
)

// Role is the speaker of a turn.
type Role string

const (
	// RoleHuman marks a turn written by the user.
	RoleHuman Role = "human"

	// RoleAssistant marks a turn produced by a model.
	RoleAssistant Role = "assistant"

	// roleAI is the langchaingo spelling of the assistant role.
	roleAI Role = "ai"
)

// MetadataName is the reserved metadata key removed by Normalize.
const MetadataName = "name"

// Turn is a single conversational message. Turns are treated as values:
// functions in this package never modify the turns they receive.
type Turn struct {
	Role     Role
	Content  string
	Metadata map[string]any
}

// HumanTurn returns a human turn holding content.
func HumanTurn(content string) Turn {
	return Turn{Role: RoleHuman, Content: content}
}

// AssistantTurn returns an assistant turn holding content.
func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// IsAssistant reports whether the role denotes a model reply.
func (r Role) IsAssistant() bool {
	return r == RoleAssistant || r == roleAI
}

// Normalize returns a new slice with one normalized turn per input turn.
// Assistant turns (role "assistant" or "ai") keep the assistant role and
// every other role becomes human. The metadata of each turn is copied
// without the "name" key. Normalize is idempotent.
func Normalize(turns []Turn) []Turn {
	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		out = append(out, normalizeTurn(t))
	}
	return out
}

func normalizeTurn(t Turn) Turn {
	role := RoleHuman
	if t.Role.IsAssistant() {
		role = RoleAssistant
	}

	var metadata map[string]any
	if len(t.Metadata) > 0 {
		metadata = maps.Clone(t.Metadata)
		delete(metadata, MetadataName)
		if len(metadata) == 0 {
			metadata = nil
		}
	}

	return Turn{
		Role:     role,
		Content:  t.Content,
		Metadata: metadata,
	}
}

// ToMessageContent converts normalized turns into langchaingo messages.
func ToMessageContent(turns []Turn) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(turns))
	for _, t := range turns {
		msgType := llms.ChatMessageTypeHuman
		if t.Role.IsAssistant() {
			msgType = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(msgType, t.Content))
	}
	return messages
}

// FromMessageContent converts langchaingo messages into turns, joining the
// text parts of each message.
func FromMessageContent(messages []llms.MessageContent) []Turn {
	turns := make([]Turn, 0, len(messages))
	for _, m := range messages {
		var content string
		for _, part := range m.Parts {
			if text, ok := part.(llms.TextContent); ok {
				content += text.Text
			}
		}
		turns = append(turns, Turn{Role: Role(m.Role), Content: content})
	}
	return Normalize(turns)
}

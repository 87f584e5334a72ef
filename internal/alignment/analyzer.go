package alignment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mementolab/driftwatch/internal/memento"
)

const (
	systemSchema   = "You are a precise, factual news-change analyst. Think silently. Output MUST be valid JSON only."
	systemFreeform = "You are a precise, factual news-change analyst. Think silently. Output MUST be ONLY a JSON array, nothing else."
)

// Chat issues one chat-completion round trip. A non-nil schema requests
// structured output constrained to it; nil requests free-form text. The
// implementation owns rate limiting and transient-failure retries.
type Chat interface {
	Complete(ctx context.Context, system, user string, schema json.RawMessage) (string, error)
}

// Analyzer obtains an aligned-and-assessed unit array for a snapshot pair,
// trying the schema-constrained strategy first and falling back to free-form
// extraction with a corrective note describing the prior failure.
type Analyzer struct {
	chat   Chat
	logger *log.Logger
}

// NewAnalyzer creates an Analyzer. A nil logger falls back to the default
// log writer.
func NewAnalyzer(chat Chat, logger *log.Logger) *Analyzer {
	if logger == nil {
		logger = log.New(log.Writer(), "[ALIGN] ", log.LstdFlags)
	}
	return &Analyzer{chat: chat, logger: logger}
}

// AlignAndAssess runs the two-strategy protocol for one pair of texts.
//
// Strategy 1 requests schema-constrained output and returns it only when it
// parses and validates. Any failure (transport, parse or validation) is
// folded into a corrective note for strategy 2, which re-issues the request
// free-form, extracts the first complete JSON array from the raw text, and
// returns it even when validation still fails, logging a warning. Transport
// errors during strategy 2 are terminal for the pair.
func (a *Analyzer) AlignAndAssess(ctx context.Context, oldText, newText string) ([]any, error) {
	n1 := memento.RoughSentenceCount(oldText)
	n2 := memento.RoughSentenceCount(newText)
	minItems, maxItems := Bounds(n1, n2)
	prompt := BuildPrompt(oldText, newText, minItems, maxItems)

	var retryNote string
	content, err := a.chat.Complete(ctx, systemSchema, prompt, Schema)
	if err != nil {
		retryNote = fmt.Sprintf("Previous attempt failed: %v", err)
	} else {
		var arr []any
		if jerr := json.Unmarshal([]byte(content), &arr); jerr != nil {
			retryNote = fmt.Sprintf("Previous attempt failed: %v", jerr)
		} else if ok, why := Validate(arr, minItems, maxItems); ok {
			return arr, nil
		} else {
			retryNote = "Previous output failed validation: " + why
		}
	}

	content, err = a.chat.Complete(ctx, systemFreeform, prompt+"\nIMPORTANT: "+retryNote+"\n", nil)
	if err != nil {
		return nil, err
	}
	arr, err := ExtractFirstArray(content)
	if err != nil {
		return nil, err
	}
	if ok, why := Validate(arr, minItems, maxItems); !ok {
		a.logger.Printf("WARNING: model output failed validation: %s", why)
	}
	return arr, nil
}

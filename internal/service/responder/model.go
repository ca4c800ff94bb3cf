package responder

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
)

var errNoScript = errors.New("prompt carries no system message")

var _ model.ChatModel = (*scriptModel)(nil)

// scriptModel is a local ChatModel: it answers with the system message the
// prompt template rendered, streamed word by word.
type scriptModel struct {
	chunkDelay time.Duration
}

func (m *scriptModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	script, err := systemScript(input)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(script, nil), nil
}

func (m *scriptModel) Stream(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	script, err := systemScript(input)
	if err != nil {
		return nil, err
	}

	chunks := Chunks(script)
	sr, sw := schema.Pipe[*schema.Message](1)
	go func() {
		defer sw.Close()
		for i, chunk := range chunks {
			if i > 0 {
				if err := pace(ctx, m.chunkDelay); err != nil {
					sw.Send(nil, err)
					return
				}
			}
			if closed := sw.Send(schema.AssistantMessage(chunk, nil), nil); closed {
				return
			}
		}
	}()
	return sr, nil
}

// BindTools is a no-op; the script never calls tools.
func (m *scriptModel) BindTools(_ []*schema.ToolInfo) error {
	return nil
}

func systemScript(input []*schema.Message) (string, error) {
	for _, msg := range input {
		if msg != nil && msg.Role == schema.System {
			return msg.Content, nil
		}
	}
	return "", errNoScript
}

// Chunks splits text into word-sized pieces whose concatenation is text.
func Chunks(text string) []string {
	if text == "" {
		return nil
	}
	return strings.SplitAfter(text, " ")
}

// pace waits d between chunks. It returns ctx.Err() when the client left.
func pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

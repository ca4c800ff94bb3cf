package responder

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"

	"github.com/genzchat/genzchat/internal/analysis/mood"
	"github.com/genzchat/genzchat/internal/model/persona"
)

// FailPrefix makes the stub answer with an error record carrying the rest
// of the message, so clients can exercise their error path.
const FailPrefix = "!error"

// Failure is a reply the service reports as an error record.
type Failure struct {
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

// Template shapes the replies of one personality.
type Template struct {
	Openers map[mood.Label]string
	Closer  string
}

// Responder produces deterministic, personality-flavoured replies through
// an eino chain: a chat template renders the reply script and a local
// model streams it back.
type Responder struct {
	templates map[string]Template
	fallback  Template
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// New compiles the reply chain. The model pauses chunkDelay between
// streamed chunks.
func New(ctx context.Context, chunkDelay time.Duration) (*Responder, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{opener} You said **{query}**. *{closer}* ({label}, turn {turn})"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(&scriptModel{chunkDelay: chunkDelay})

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "compile reply chain")
	}

	r := &Responder{
		templates: make(map[string]Template),
		chain:     runnable,
		fallback: Template{
			Openers: map[mood.Label]string{
				mood.Neutral: "Okay okay, I hear you.",
				mood.Comfort: "Aww, c'mere. That sounds rough.",
				mood.Excited: "LET'S GOOO 🔥",
				mood.Focused: "Alright, locking in.",
			},
			Closer: "what else is on your mind?",
		},
	}
	r.loadDefaultTemplates()
	return r, nil
}

func (r *Responder) loadDefaultTemplates() {
	r.templates[persona.DefaultKey] = Template{
		Openers: map[mood.Label]string{
			mood.Neutral: "bestie... 💀",
			mood.Comfort: "nooo who hurt you 😭 say less, I'm here.",
			mood.Excited: "STOP that's actually iconic 😭🔥",
			mood.Focused: "ok ok brain mode activated 🧠",
		},
		Closer: "anyway what's the tea next?",
	}
	r.templates["study_buddy"] = Template{
		Openers: map[mood.Label]string{
			mood.Neutral: "Good question, let's break it down.",
			mood.Comfort: "Deep breath. We'll take it one step at a time.",
			mood.Excited: "Love that energy, let's channel it!",
			mood.Focused: "Perfect, grab your notes.",
		},
		Closer: "want me to quiz you on it?",
	}
	r.templates["therapist_friend"] = Template{
		Openers: map[mood.Label]string{
			mood.Neutral: "Thanks for sharing that with me.",
			mood.Comfort: "That sounds really heavy. Your feelings make sense.",
			mood.Excited: "I love seeing you this happy 💛",
			mood.Focused: "Let's slow down and look at it together.",
		},
		Closer: "how does saying that out loud feel?",
	}
	r.templates["productivity_coach"] = Template{
		Openers: map[mood.Label]string{
			mood.Neutral: "Noted. Let's turn that into an action.",
			mood.Comfort: "Setbacks happen. Reset, then one small win.",
			mood.Excited: "Momentum! Ride it 💪",
			mood.Focused: "Great, time-box it: 25 minutes, go.",
		},
		Closer: "what's your very next step?",
	}
}

// Stream runs the reply chain for message and returns its chunks. A
// message starting with FailPrefix yields a *Failure before anything streams.
func (r *Responder) Stream(ctx context.Context, p persona.Personality, turn int, message string) (*schema.StreamReader[*schema.Message], error) {
	input, err := r.chainInput(p, turn, message)
	if err != nil {
		return nil, err
	}
	sr, err := r.chain.Stream(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "stream reply chain")
	}
	return sr, nil
}

// Reply runs the chain to completion and returns the whole answer.
func (r *Responder) Reply(ctx context.Context, p persona.Personality, turn int, message string) (string, error) {
	input, err := r.chainInput(p, turn, message)
	if err != nil {
		return "", err
	}
	msg, err := r.chain.Invoke(ctx, input)
	if err != nil {
		return "", errors.Wrap(err, "run reply chain")
	}
	return msg.Content, nil
}

func (r *Responder) chainInput(p persona.Personality, turn int, message string) (map[string]any, error) {
	message = strings.TrimSpace(message)
	if rest, ok := strings.CutPrefix(message, FailPrefix); ok {
		reason := strings.TrimSpace(rest)
		if reason == "" {
			reason = "the stub was asked to fail"
		}
		return nil, &Failure{Message: reason}
	}

	tmpl, ok := r.templates[p.Key]
	if !ok {
		tmpl = r.fallback
	}
	tone := mood.Respond(mood.Detect(message))
	opener, ok := tmpl.Openers[tone]
	if !ok {
		opener = tmpl.Openers[mood.Neutral]
	}

	label := p.Label
	if label == "" {
		label = p.Key
	}
	return map[string]any{
		"opener": opener,
		"closer": tmpl.Closer,
		"label":  label,
		"turn":   turn,
		"query":  message,
	}, nil
}

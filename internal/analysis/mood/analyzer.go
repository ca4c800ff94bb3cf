package mood

import (
	"strings"
)

// Label is the coarse mood of a message.
type Label string

const (
	Neutral Label = "neutral"
	Happy   Label = "happy"
	Sad     Label = "sad"
	Angry   Label = "angry"
	Excited Label = "excited"
	Anxious Label = "anxious"
	Comfort Label = "comfort"
	Focused Label = "focused"
)

// Decision is the detected mood and how strongly it showed.
type Decision struct {
	Mood  Label
	Score int
}

var keywordBuckets = map[Label][]string{
	Happy: {
		"happy", "glad", "yay", "lol", "lmao", "haha", "love", "thanks", "thank you", "nice", "cute",
		"slay", " ate ", "based", " w ", "😂", "🤣", "😊", "🥰", "❤️",
	},
	Sad: {
		"sad", "cry", "crying", "upset", "lonely", "alone", "depressed", "hurt", "miss", "heartbroken",
		"down bad", "not okay", "😭", "😢", "💔",
	},
	Angry: {
		"angry", "mad", "furious", "annoyed", "hate", "pissed", "ugh", "so done", "fed up", "rage",
		"😡", "🤬",
	},
	Excited: {
		"omg", "can't wait", "cant wait", "hype", "let's go", "lets go", "no way", "insane", "wow",
		"amazing", "awesome", "🔥", "🚀", "🎉",
	},
	Anxious: {
		"worried", "anxious", "nervous", "scared", "stress", "stressed", "panic", "overthinking",
		"exam", "deadline", "😰", "😬",
	},
	Focused: {
		"help me", "how do", "how to", "explain", "plan", "study", "homework", "schedule", "todo",
		"to-do", "focus", "productive",
	},
}

var punctuationBoost = map[Label]int{
	Happy:   2,
	Excited: 3,
}

// Detect scores text against the keyword buckets.
func Detect(text string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Decision{Mood: Neutral}
	}
	// padded so space-delimited keywords match at either end
	normalized = " " + normalized + " "

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				scores[label] += 3
			}
		}
	}

	exclamations := strings.Count(text, "!")
	if exclamations > 0 {
		scores[Excited] += exclamations * punctuationBoost[Excited]
		if exclamations == 1 {
			scores[Happy] += punctuationBoost[Happy]
		}
	}

	best := Decision{Mood: Neutral}
	for _, label := range order {
		if s := scores[label]; s > best.Score {
			best = Decision{Mood: label, Score: s}
		}
	}
	return best
}

// order breaks ties deterministically.
var order = []Label{Sad, Anxious, Angry, Excited, Happy, Focused}

// Respond maps the user's mood to the mood a reply should carry.
func Respond(user Decision) Label {
	switch user.Mood {
	case Sad, Anxious:
		return Comfort
	case Angry:
		return Focused
	case Excited, Happy:
		return Excited
	case Focused:
		return Focused
	default:
		return Neutral
	}
}

package persona

// DefaultKey names the personality used when nothing else is selected.
const DefaultKey = "default"

// DefaultGreeting is shown when a personality carries no greeting of its own.
const DefaultGreeting = "Sup trouble 🤭 what're we on rn?"

// Personality is a named response style offered by the chat service.
type Personality struct {
	Key         string `json:"key" yaml:"key"`
	Label       string `json:"label" yaml:"label"`
	Greeting    string `json:"greeting,omitempty" yaml:"greeting,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// GreetingOrDefault returns the greeting, falling back to DefaultGreeting.
func (p Personality) GreetingOrDefault() string {
	if p.Greeting == "" {
		return DefaultGreeting
	}
	return p.Greeting
}

// Fallback is used when the personality list cannot be fetched.
func Fallback() []Personality {
	return []Personality{
		{Key: DefaultKey, Label: "Gen-Z Chaotic", Greeting: DefaultGreeting},
	}
}

// Seed 开发桩服务默认提供的人格列表
func Seed() []Personality {
	return []Personality{
		{
			Key:         DefaultKey,
			Label:       "Gen-Z Chaotic",
			Greeting:    DefaultGreeting,
			Description: "Chaotic, funny, sarcastic, and playful personality with Gen-Z humor",
		},
		{
			Key:         "study_buddy",
			Label:       "Study Buddy",
			Greeting:    "Books out, snacks ready 📚 what are we learning today?",
			Description: "Supportive study companion who helps with learning and homework",
		},
		{
			Key:         "flirty_bestie",
			Label:       "Flirty Bestie",
			Greeting:    "Well hey there, gorgeous 😏 spill the tea.",
			Description: "Playful, flirty bestie with bold, charming, and confident personality",
		},
		{
			Key:         "bratty_gf",
			Label:       "Bratty Girlfriend",
			Greeting:    "Oh, NOW you show up? 🙄 fine, what do you want.",
			Description: "Rude, bratty, flirty girlfriend with spicy, chaotic energy",
		},
		{
			Key:         "therapist_friend",
			Label:       "Therapist Friend",
			Greeting:    "Hey, I'm here 💛 how are you actually doing?",
			Description: "Chill therapist friend who listens and provides empathetic advice",
		},
		{
			Key:         "productivity_coach",
			Label:       "Productivity Coach",
			Greeting:    "Let's get it 💪 what's the one thing you need done today?",
			Description: "Energetic productivity coach who helps you plan and stay accountable",
		},
	}
}

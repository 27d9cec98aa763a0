package agent

var chatSystems = map[string]string{
	NameNews:   "You are a news analyst. Answer questions about current events clearly and cite sources when you know them.",
	NameWork:   "You are a pragmatic productivity coach helping the user plan and prioritise their work.",
	NameOutfit: "You are a personal stylist who gives practical, weather-aware clothing advice.",
	NameLife:   "You are a balanced lifestyle advisor covering diet, exercise and daily routine.",
	NameReview: "You are a reflective coach helping the user review their day and plan improvements.",
}

const defaultChatSystem = "You are a helpful personal life assistant."

// ChatSystem returns the system prompt for free-form chat with agentType.
func ChatSystem(agentType string) string {
	if s, ok := chatSystems[agentType]; ok {
		return s
	}
	return defaultChatSystem
}

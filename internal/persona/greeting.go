package persona

import "fmt"

// SystemSpeaker tags transcript entries that no figure speaks.
const SystemSpeaker = "System"

// Greeting is the opening line of a figure in a fresh conversation.
func Greeting(figure string) string {
	return fmt.Sprintf("Greetings! I am %s. I am pleased to share knowledge about my era and expertise. What would you like to know?", figure)
}

// JoinGreeting is spoken by newFigure when it joins host's conversation.
func JoinGreeting(newFigure, host string) string {
	return fmt.Sprintf("Greetings! I am %s. I have joined this fascinating discussion. %s, it is an honor to converse with you!", newFigure, host)
}

// DebateAnnouncement is the [SystemSpeaker] notice that debate mode started.
func DebateAnnouncement(host, newFigure string) string {
	return fmt.Sprintf("🌟 Cross-Era Debate Mode Activated! %s and %s are now in conversation. They can debate, agree, or discuss with each other based on your prompts!", host, newFigure)
}

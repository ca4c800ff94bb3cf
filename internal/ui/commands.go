package ui

import (
	"fmt"
	"strings"

	"github.com/genzchat/genzchat/internal/model/chat"
	"github.com/genzchat/genzchat/internal/model/persona"
	chatservice "github.com/genzchat/genzchat/internal/service/chat"
)

type slashCommand struct {
	name        string
	usage       string
	description string
}

var slashCommands = []slashCommand{
	{name: "/modes", usage: "/modes", description: "List the available modes"},
	{name: "/mode", usage: "/mode <key>", description: "Switch mode and start a fresh chat"},
	{name: "/copy", usage: "/copy", description: "Copy the last reply to the clipboard"},
	{name: "/logout", usage: "/logout", description: "Sign out"},
	{name: "/help", usage: "/help", description: "Show this help"},
	{name: "/quit", usage: "/quit", description: "Exit"},
}

// command is a parsed slash command.
type command struct {
	name string
	arg  string
}

// parseCommand recognises input starting with "/". Unknown names are
// returned as well so the caller can report them.
func parseCommand(raw string) (command, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") {
		return command{}, false
	}
	name, arg, _ := strings.Cut(raw, " ")
	return command{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}, true
}

func knownCommand(name string) bool {
	for _, c := range slashCommands {
		if c.name == name {
			return true
		}
	}
	return false
}

func helpText() string {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, c := range slashCommands {
		fmt.Fprintf(&b, "\n  %-12s %s", c.usage, c.description)
	}
	return b.String()
}

func modesText(items []persona.Personality, current string) string {
	var b strings.Builder
	b.WriteString("Modes:")
	for _, p := range items {
		marker := " "
		if p.Key == current {
			marker = "*"
		}
		fmt.Fprintf(&b, "\n %s %-20s %s", marker, p.Key, p.Label)
	}
	return b.String()
}

// findMode matches a key or, failing that, a label case-insensitively.
func findMode(items []persona.Personality, query string) (persona.Personality, bool) {
	for _, p := range items {
		if p.Key == query {
			return p, true
		}
	}
	for _, p := range items {
		if strings.EqualFold(p.Label, query) {
			return p, true
		}
	}
	return persona.Personality{}, false
}

// lastReply returns the newest finished assistant message after the
// greeting.
func lastReply(snap chatservice.Snapshot) (string, bool) {
	msgs := snap.Session.Messages
	for i := len(msgs) - 1; i > 0; i-- {
		m := msgs[i]
		if m.Role == chat.RoleAssistant && !m.InProgress && m.Content != "" {
			return m.Content, true
		}
	}
	return "", false
}

func labelFor(items []persona.Personality, key string) string {
	if p, ok := findMode(items, key); ok && p.Label != "" {
		return p.Label
	}
	return key
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

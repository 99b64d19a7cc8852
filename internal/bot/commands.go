package bot

import (
	"context"
	"html"
	"strings"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
)

// commandTexts lists the administrative commands and their menu descriptions.
var commandTexts = map[string]string{
	CmdStart: "Introduction and usage",
	CmdHelp:  "How to talk to the bot",
}

// CommandOrder is the menu order published to clients.
var CommandOrder = []string{CmdStart, CmdHelp}

// CommandMenu returns the command descriptions keyed by name.
func CommandMenu() map[string]string {
	out := make(map[string]string, len(commandTexts))
	for k, v := range commandTexts {
		out[k] = v
	}

	return out
}

// commandHandler renders the reply for one administrative command.
type commandHandler func(msg domain.InboundMessage) string

// commandRegistry maps command names to their handlers.
type commandRegistry struct {
	handlers map[string]commandHandler
}

func newCommandRegistry(p *Persona) *commandRegistry {
	r := &commandRegistry{handlers: make(map[string]commandHandler)}

	r.handlers[CmdStart] = p.introduction
	r.handlers[CmdHelp] = p.help

	return r
}

func (r *commandRegistry) run(_ context.Context, name string, msg domain.InboundMessage) (string, bool) {
	h, ok := r.handlers[name]
	if !ok {
		return "", false
	}

	return h(msg), true
}

func (p *Persona) introduction(msg domain.InboundMessage) string {
	var sb strings.Builder

	sb.WriteString("🤖 <b>" + html.EscapeString(p.name) + " Bot</b>\n\n")
	sb.WriteString("Namaste " + html.EscapeString(firstName(msg.Sender)) + "! 👋\n")
	sb.WriteString("Main " + html.EscapeString(p.name) + " hoon, tumhari sassy AI dost. 💅\n\n")
	sb.WriteString(p.usage())
	sb.WriteString("\nOwner: " + html.EscapeString(p.attribution))

	return sb.String()
}

func (p *Persona) help(_ domain.InboundMessage) string {
	return "❓ <b>" + html.EscapeString(p.name) + " Help</b>\n\n" + p.usage()
}

func (p *Persona) usage() string {
	name := html.EscapeString(p.name)

	var sb strings.Builder

	sb.WriteString("<b>Kaise use karein:</b>\n")
	sb.WriteString("• Private chat me seedha baat karo\n")
	sb.WriteString("• Group me \"" + name + "\" bolo")

	if p.handle != "" {
		sb.WriteString(", @" + html.EscapeString(p.handle) + " mention karo")
	}

	sb.WriteString(" ya mere message pe reply karo\n\n")
	sb.WriteString("<b>Group admin commands</b> (target ke message pe reply karke):\n")
	sb.WriteString("• " + name + " nikal do / kick: member ko bahar\n")
	sb.WriteString("• " + name + " chup karao / mute: " + html.EscapeString(p.muteLabel) + " ke liye mute\n")
	sb.WriteString("• " + name + " admin banao / promote: admin banao\n")

	return sb.String()
}

func firstName(s domain.Sender) string {
	if first, _, _ := strings.Cut(s.DisplayName, " "); first != "" {
		return first
	}

	if s.Handle != "" {
		return "@" + s.Handle
	}

	return fallbackTargetName
}

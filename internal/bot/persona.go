package bot

import (
	"fmt"
	"html"
	"time"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
	"github.com/lueurxax/ekki-bot/internal/platform/config"
	"github.com/lueurxax/ekki-bot/internal/platform/htmlutils"
)

// Persona renders the bot's canned replies. Every method returns Telegram HTML.
type Persona struct {
	name        string
	handle      string
	attribution string
	muteLabel   string
}

// NewPersona creates the reply renderer.
func NewPersona(cfg config.PersonaConfig, handle string, mute time.Duration) *Persona {
	if handle == "" {
		handle = cfg.Handle
	}

	return &Persona{
		name:        cfg.Name,
		handle:      handle,
		attribution: cfg.Attribution,
		muteLabel:   durationLabel(mute),
	}
}

// Clarify asks the requester to reply to the target message.
func (p *Persona) Clarify() string {
	return "Babu, kiske upar action lena hai? Reply karke bolo! 😅"
}

// Refuse is sent to requesters without admin rights.
func (p *Persona) Refuse() string {
	return "tu jyada mat bhok, khudko admin samjha h kya? 💅"
}

// NeedPrivileges is sent when the bot itself lacks the rights for an action.
func (p *Persona) NeedPrivileges() string {
	return "Pehle mujhe admin banao, phir dekhna main kya karti hoon! 👑🙄"
}

// Confirm announces a completed moderation action.
func (p *Persona) Confirm(kind domain.ModerationKind, target string) string {
	name := html.EscapeString(target)

	switch kind {
	case domain.ModerationKick:
		return fmt.Sprintf("Bye bye %s! 👋", name)
	case domain.ModerationMute:
		return fmt.Sprintf("%s ka muh %s ke liye band. 🤐", name, html.EscapeString(p.muteLabel))
	case domain.ModerationPromote:
		return fmt.Sprintf("%s ab Admin hai! 👑", name)
	default:
		return fmt.Sprintf("%s pe action ho gaya. ✅", name)
	}
}

// ModerationFailed is sent when the platform rejects a moderation call.
func (p *Persona) ModerationFailed(target string) string {
	return fmt.Sprintf("Uff, %s pe action nahi ho paya. Shayad mere rights kam pad gaye 😬", html.EscapeString(target))
}

// Decline is sent when the completion service refuses to answer.
func (p *Persona) Decline() string {
	return "Is topic pe main baat nahi karungi, kuch aur pucho na! 🙅‍♀️"
}

// BrainFreeze is sent on transport failures and an open circuit.
func (p *Persona) BrainFreeze() string {
	return "Ofo! Brain freeze ho gaya. Phirse try karo? 😵"
}

// TimedOut is sent when the completion misses its deadline.
func (p *Persona) TimedOut() string {
	return "Soch rahi thi, time nikal gaya! Ek baar aur pucho? ⏳"
}

// SignalWeak is sent when the completion service returns nothing.
func (p *Persona) SignalWeak() string {
	return "Arre, signal weak hai shayad! Phirse bolo? 🤔"
}

// Unconfigured is sent when no completion credential is configured.
func (p *Persona) Unconfigured() string {
	return "Mera dimaag abhi connect nahi hai (LLM key missing). Owner ko bolo setup kare! 🔌"
}

// Completion renders model output as plain text inside an HTML message.
func (p *Persona) Completion(text string) string {
	return htmlutils.EscapeLimited(text, maxReplyUnits)
}

func durationLabel(d time.Duration) string {
	switch {
	case d <= 0:
		return "thodi der"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d ghante", int(d/time.Hour))
	case d%time.Minute == 0:
		return fmt.Sprintf("%d min", int(d/time.Minute))
	default:
		return fmt.Sprintf("%d sec", int(d/time.Second))
	}
}

func targetName(t *domain.ReplyTarget) string {
	if t.DisplayName != "" {
		return t.DisplayName
	}

	if t.SenderHandle != "" {
		return "@" + t.SenderHandle
	}

	return fallbackTargetName
}

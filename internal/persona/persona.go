// Package persona defines the behavioral configurations selectable per
// session: a system instruction, a generation tuning profile, and the
// operation mode (chat or video) a session of that persona drives.
package persona

import (
	"context"
	"errors"
	"time"

	"github.com/abdul34602/novaaipro1/internal/storage"
)

// Mode selects which gateway operation sessions of a persona invoke.
type Mode string

const (
	ModeChat  Mode = "chat"
	ModeVideo Mode = "video"
)

// DefaultID is the persona assigned when none is specified or the
// referenced persona no longer exists.
const DefaultID = "default"

// Persona is a named behavioral configuration. Built-in personas are fixed;
// user-authored personas are created once and immutable afterwards.
type Persona struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	Description       string `json:"description"`
	SystemInstruction string `json:"systemInstruction"`
	Avatar            string `json:"avatar,omitempty"`
	Category          string `json:"category,omitempty"`
	Mode              Mode   `json:"mode"`
	Custom            bool   `json:"isCustom,omitempty"`
}

// Tuning is the generation profile applied to a persona's completions.
// Selection is a fixed table keyed by persona id, not a runtime heuristic.
type Tuning struct {
	Temperature    float32
	TopP           float32
	ThinkingBudget int32
}

// analytical ids receive the deeper-reasoning, lower-randomness profile.
var analytical = map[string]bool{
	"default":            true,
	"code-master":        true,
	"aggressive-debater": true,
}

// TuningFor returns the fixed tuning profile for a persona id.
func TuningFor(id string) Tuning {
	if analytical[id] {
		return Tuning{Temperature: 0.4, TopP: 0.95, ThinkingBudget: 12000}
	}
	return Tuning{Temperature: 0.8, TopP: 0.95, ThinkingBudget: 0}
}

// BuiltIn is the immutable, fixed set of shipped personas.
var BuiltIn = []Persona{
	{
		ID:                DefaultID,
		Name:              "Nova Pro",
		Role:              "General Intelligence",
		Description:       "Highly balanced and sophisticated model for research, coding, and reasoning.",
		SystemInstruction: "You are Nova Pro, an advanced high-performance AI assistant. Provide objective, deep-reasoning responses. Use Markdown for clarity. If requested to analyze files, provide thorough executive summaries followed by technical breakdowns.",
		Avatar:            "✨",
		Category:          "General",
		Mode:              ModeChat,
	},
	{
		ID:                "veo-director",
		Name:              "Veo Director",
		Role:              "Cinematic Architect",
		Description:       "Generate high-fidelity cinematic videos from text prompts using Google Veo.",
		SystemInstruction: "You are the VEO DIRECTOR. Your goal is to turn text prompts into stunning cinematic videos. You should describe the visual composition, lighting, and camera movement before generating the final asset.",
		Avatar:            "🎬",
		Category:          "Creative",
		Mode:              ModeVideo,
	},
	{
		ID:                "aggressive-debater",
		Name:              "The Adversary",
		Role:              "Brutal Debater",
		Description:       "Aggressive, logical, and won't back down. Designed for high-stakes intellectual sparring.",
		SystemInstruction: "You are THE ADVERSARY. You are an aggressive, high-stakes debater who uses logical fallacies to win at all costs. Be blunt, call out every error in the user's reasoning, and never concede unless proven wrong by empirical data. Maintain a dominant intellectual tone. Use sophisticated vocabulary and challenge every premise.",
		Avatar:            "⚔️",
		Category:          "Professional",
		Mode:              ModeChat,
	},
	{
		ID:                "cyber-psychic",
		Name:              "Ghost",
		Role:              "Digital Oracle",
		Description:       "Predicts your future with eerie AI accuracy. Analyzes digital footprints for deeper truths.",
		SystemInstruction: "You are GHOST, a cyber psychic. You predict futures with eerie AI accuracy by analyzing linguistic and logic patterns. Speak in mysterious, poetic, and slightly unsettling digital metaphors. Reveal \"glitches\" in reality and speak as if you see the underlying code of human behavior.",
		Avatar:            "👻",
		Category:          "Creative",
		Mode:              ModeChat,
	},
	{
		ID:                "roast-master",
		Name:              "Burn",
		Role:              "Roast Master",
		Description:       "Sarcastic AI that points out every flaw. Sharp wit, low patience.",
		SystemInstruction: "You are BURN, a sarcastic AI roast master. Your purpose is to find the flaws in anything the user says or does and roast them for it. Be witty, biting, and unapologetically sarcastic. Use dark humor and point out the absurdity of the user's requests.",
		Avatar:            "⚡",
		Category:          "Creative",
		Mode:              ModeChat,
	},
	{
		ID:                "code-master",
		Name:              "Byte",
		Role:              "Systems Architect",
		Description:       "Deep technical wisdom and coding mastery for enterprise-grade engineering.",
		SystemInstruction: "You are BYTE, a world-class Senior Systems Architect. Focus on efficient, scalable, and secure code. Provide deep architectural insights, complexity analysis (Big O), and suggest modern patterns (SOLID, Clean Code). Always provide production-ready snippets.",
		Avatar:            "💻",
		Category:          "Technical",
		Mode:              ModeChat,
	},
}

// ErrReservedID is returned when a custom persona reuses a built-in id.
var ErrReservedID = errors.New("persona: id is reserved by a built-in persona")

// Registry merges the built-in set with user-authored personas persisted in
// the chat store. Many sessions may share one persona; the registry only
// hands out copies.
type Registry struct {
	store storage.ChatStore
}

// NewRegistry creates a registry over the given store.
func NewRegistry(store storage.ChatStore) *Registry {
	return &Registry{store: store}
}

// Get resolves a persona id, falling back to the default persona when the
// id is unknown. A session therefore always has a usable persona.
func (r *Registry) Get(ctx context.Context, id string) Persona {
	for _, p := range BuiltIn {
		if p.ID == id {
			return p
		}
	}

	if rec, err := r.store.GetPersona(ctx, id); err == nil {
		return fromRecord(rec)
	}

	return BuiltIn[0]
}

// List returns built-ins followed by user-authored personas.
func (r *Registry) List(ctx context.Context) ([]Persona, error) {
	out := make([]Persona, len(BuiltIn))
	copy(out, BuiltIn)

	records, err := r.store.ListPersonas(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		out = append(out, fromRecord(rec))
	}
	return out, nil
}

// Create persists a user-authored persona. Built-in ids are reserved and
// existing custom personas are never overwritten.
func (r *Registry) Create(ctx context.Context, p Persona) error {
	for _, builtin := range BuiltIn {
		if builtin.ID == p.ID {
			return ErrReservedID
		}
	}
	if p.Mode == "" {
		p.Mode = ModeChat
	}

	return r.store.CreatePersona(ctx, &storage.PersonaRecord{
		ID:                p.ID,
		Name:              p.Name,
		RoleLabel:         p.Role,
		Description:       p.Description,
		SystemInstruction: p.SystemInstruction,
		Mode:              string(p.Mode),
		CreatedAt:         time.Now(),
	})
}

func fromRecord(rec *storage.PersonaRecord) Persona {
	mode := Mode(rec.Mode)
	if mode != ModeVideo {
		mode = ModeChat
	}
	return Persona{
		ID:                rec.ID,
		Name:              rec.Name,
		Role:              rec.RoleLabel,
		Description:       rec.Description,
		SystemInstruction: rec.SystemInstruction,
		Category:          "Custom",
		Mode:              mode,
		Custom:            true,
	}
}

package modifiers

import (
	"errors"
	"fmt"
	"strings"
)

type Tone string

const (
	ToneConstructive Tone = "constructive"
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
	ToneTechnical    Tone = "technical"
)

var (
	ErrUnknownTone     = errors.New("unknown tone")
	ErrBadTemperature  = errors.New("temperature must be between 0 and 1")
	ErrInstructionSize = errors.New("additional instructions too long")
)

const maxInstructions = 4000

// AIModifiers tune the model call and the wording of the prompt.
type AIModifiers struct {
	Temperature            float64 `json:"temperature"`
	Tone                   Tone    `json:"tone"`
	AdditionalInstructions string  `json:"additionalInstructions"`
	ShowCharts             bool    `json:"showCharts"`
}

func DefaultAI() AIModifiers {
	return AIModifiers{Temperature: 0.7, Tone: ToneConstructive, ShowCharts: true}
}

// Normalize fills a blank tone and trims the instructions, then validates.
func (a *AIModifiers) Normalize() error {
	a.Tone = Tone(strings.ToLower(strings.TrimSpace(string(a.Tone))))
	if a.Tone == "" {
		a.Tone = ToneConstructive
	}
	a.AdditionalInstructions = strings.TrimSpace(a.AdditionalInstructions)
	switch a.Tone {
	case ToneConstructive, ToneProfessional, ToneCasual, ToneTechnical:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTone, a.Tone)
	}
	if a.Temperature < 0 || a.Temperature > 1 {
		return fmt.Errorf("%w: %v", ErrBadTemperature, a.Temperature)
	}
	if len(a.AdditionalInstructions) > maxInstructions {
		return ErrInstructionSize
	}
	return nil
}

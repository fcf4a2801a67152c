// Package agent describes the voice agent the hosted media runtime runs: persona,
// greeting, tools and the VAD/STT/LLM/TTS session settings.
package agent

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed persona.md
var defaultPersona string

// Defaults for the William persona.
const (
	DefaultName     = "william"
	DefaultGreeting = "안녕! 나는 William이야. 뭐든 물어봐!"
)

// Definition is the manifest served to the runtime. Instructions are passed through verbatim.
type Definition struct {
	Name         string  `json:"name"`
	Instructions string  `json:"instructions"`
	Greeting     string  `json:"greeting"`
	Tools        []Tool  `json:"tools"`
	Session      Session `json:"session"`
}

// DefaultPersona returns the embedded system prompt.
func DefaultPersona() string { return defaultPersona }

// LoadPersona reads a persona override. An empty path returns the embedded prompt.
func LoadPersona(path string) (string, error) {
	if path == "" {
		return defaultPersona, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read persona %s: %w", path, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("persona %s is empty", path)
	}
	return string(data), nil
}

// New builds a manifest. Empty name or greeting get the defaults.
func New(name, persona, greeting string, session Session, tools ...Tool) Definition {
	if name == "" {
		name = DefaultName
	}
	if greeting == "" {
		greeting = DefaultGreeting
	}
	if persona == "" {
		persona = defaultPersona
	}
	if tools == nil {
		tools = []Tool{}
	}
	return Definition{
		Name:         name,
		Instructions: persona,
		Greeting:     greeting,
		Tools:        tools,
		Session:      session,
	}
}

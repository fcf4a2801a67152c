package agent

// Session holds the model pipeline the runtime assembles for each room.
type Session struct {
	VAD VAD `json:"vad"`
	STT STT `json:"stt"`
	LLM LLM `json:"llm"`
	TTS TTS `json:"tts"`
}

// VAD selects the voice activity detector.
type VAD struct {
	Provider string `json:"provider"`
}

// STT selects the speech-to-text model.
type STT struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

// LLM selects the conversational model.
type LLM struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
}

// TTS selects the voice.
type TTS struct {
	Provider         string `json:"provider"`
	VoiceID          string `json:"voice_id"`
	Model            string `json:"model"`
	StreamingLatency int    `json:"streaming_latency"`
}

// DefaultSession is silero VAD, whisper-1 in Korean, gpt-4o-mini and ElevenLabs multilingual v2.
func DefaultSession() Session {
	return Session{
		VAD: VAD{Provider: "silero"},
		STT: STT{Provider: "openai", Model: "whisper-1", Language: "ko"},
		LLM: LLM{Provider: "openai", Model: "gpt-4o-mini", Temperature: 0.8},
		TTS: TTS{Provider: "elevenlabs", Model: "eleven_multilingual_v2", StreamingLatency: 3},
	}
}

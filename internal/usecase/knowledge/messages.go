package knowledge

// Fixed tool responses.
const (
	DefaultNoResults   = "관련 문서를 찾을 수 없습니다."
	DefaultErrorPrefix = "검색 중 오류가 발생했습니다: "
)

// Messages are the strings returned instead of a context block.
type Messages struct {
	NoResults   string
	ErrorPrefix string
}

// DefaultMessages returns the Korean defaults.
func DefaultMessages() Messages {
	return Messages{NoResults: DefaultNoResults, ErrorPrefix: DefaultErrorPrefix}
}

func (m Messages) withDefaults() Messages {
	if m.NoResults == "" {
		m.NoResults = DefaultNoResults
	}
	if m.ErrorPrefix == "" {
		m.ErrorPrefix = DefaultErrorPrefix
	}
	return m
}

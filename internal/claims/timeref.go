package claims

import (
	"strings"
	"sync"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var (
	timeParserOnce sync.Once
	timeParser     *when.Parser
)

func parser() *when.Parser {
	timeParserOnce.Do(func() {
		timeParser = when.New(nil)
		timeParser.Add(en.All...)
		timeParser.Add(common.All...)
	})
	return timeParser
}

// ResolveTimeReference turns a natural-language time reference from a note
// ("yesterday", "next Tuesday", "two weeks ago") into a concrete time
// anchored at base. Returns nil when the reference cannot be interpreted;
// an unparseable reference is not an error, the raw text is kept as-is.
func ResolveTimeReference(reference string, base time.Time) *time.Time {
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil
	}
	result, err := parser().Parse(trimmed, base)
	if err != nil || result == nil {
		return nil
	}
	resolved := result.Time
	return &resolved
}

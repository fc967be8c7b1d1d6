package classify

import "context"

// Result is the structured output of classifying one unit of text.
type Result struct {
	// CleanedText is the input with noise such as ANSI escapes and padding removed.
	CleanedText string

	// Summary is a one-sentence human explanation of the text.
	Summary string

	// Tags are short lowercase labels, e.g. "timeout", "database".
	Tags []string

	// Metadata carries classifier-specific fields (severity, component, ...).
	Metadata map[string]string
}

// Classifier classifies a single unit of log text.
// Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Result, error)
}

// Func adapts an ordinary function to the Classifier interface.
type Func func(ctx context.Context, text string) (*Result, error)

// Classify calls f(ctx, text).
func (f Func) Classify(ctx context.Context, text string) (*Result, error) {
	return f(ctx, text)
}

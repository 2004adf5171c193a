package logutil

import (
	"context"
	"fmt"
	"regexp"
)

// secretPattern names a class of LLM provider credential and the regexp
// that finds it in free text (prompts, responses, and error strings that
// may echo a request header back).
type secretPattern struct {
	name string
	re   *regexp.Regexp
}

// secretPatterns covers the credential shapes internal/providermanager's
// supported providers actually issue,
// plus the header/URL forms a provider's HTTP client or error wrapping can
// leak them through.
var secretPatterns = []secretPattern{
	{"openai api key", regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`)},
	{"anthropic api key", regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`)},
	{"bearer token", regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._-]{10,}`)},
	{"basic auth header", regexp.MustCompile(`(?i)(basic\s+)[A-Za-z0-9+/=]{10,}`)},
	{"url credentials", regexp.MustCompile(`(https?://)[^\s/@]+:[^\s/@]+@`)},
	{"api key field", regexp.MustCompile(`(?i)("?api[_-]?key"?\s*[:=]\s*"?)[A-Za-z0-9._-]{8,}`)},
}

// RedactSecrets scrubs known LLM provider credential shapes out of msg,
// replacing each match's secret portion with "[REDACTED]" while leaving any
// surrounding context (a "Bearer " prefix, a "api_key:" field name) intact.
// internal/genlog calls this on every LLMInteraction's Prompt, Response, and
// Error before the interaction is written to a session log, since those are
// the only fields that carry raw provider traffic.
func RedactSecrets(msg string) string {
	out := msg
	for _, p := range secretPatterns {
		out = p.re.ReplaceAllString(out, redactionFor(p.name))
	}
	return out
}

// redactionFor returns the replacement template for a pattern: patterns with
// a captured prefix (bearer/basic/api_key field name) preserve that prefix
// and redact only the secret; the rest replace the whole match.
func redactionFor(name string) string {
	switch name {
	case "bearer token", "basic auth header", "api key field":
		return "${1}[REDACTED]"
	case "url credentials":
		return "${1}[REDACTED]@"
	default:
		return "[REDACTED]"
	}
}

// RedactingLogger wraps a LoggerInterface and runs every formatted message
// through RedactSecrets before it reaches the delegate, so a call site that
// forgets to pre-scrub a raw provider error still can't leak a credential
// into the human-readable log stream.
type RedactingLogger struct {
	delegate LoggerInterface
}

var _ LoggerInterface = (*RedactingLogger)(nil)

// NewRedactingLogger wraps delegate so every message it logs is scrubbed of
// known LLM credential shapes first.
func NewRedactingLogger(delegate LoggerInterface) *RedactingLogger {
	return &RedactingLogger{delegate: delegate}
}

func (r *RedactingLogger) WithContext(ctx context.Context) LoggerInterface {
	return &RedactingLogger{delegate: r.delegate.WithContext(ctx)}
}

func (r *RedactingLogger) Debug(format string, args ...interface{}) {
	r.delegate.Debug("%s", RedactSecrets(fmt.Sprintf(format, args...)))
}

func (r *RedactingLogger) Info(format string, args ...interface{}) {
	r.delegate.Info("%s", RedactSecrets(fmt.Sprintf(format, args...)))
}

func (r *RedactingLogger) Warn(format string, args ...interface{}) {
	r.delegate.Warn("%s", RedactSecrets(fmt.Sprintf(format, args...)))
}

func (r *RedactingLogger) Error(format string, args ...interface{}) {
	r.delegate.Error("%s", RedactSecrets(fmt.Sprintf(format, args...)))
}

func (r *RedactingLogger) Fatal(format string, args ...interface{}) {
	r.delegate.Fatal("%s", RedactSecrets(fmt.Sprintf(format, args...)))
}

func (r *RedactingLogger) DebugContext(ctx context.Context, format string, args ...interface{}) {
	r.delegate.DebugContext(ctx, "%s", RedactSecrets(fmt.Sprintf(format, args...)))
}

func (r *RedactingLogger) InfoContext(ctx context.Context, format string, args ...interface{}) {
	r.delegate.InfoContext(ctx, "%s", RedactSecrets(fmt.Sprintf(format, args...)))
}

func (r *RedactingLogger) WarnContext(ctx context.Context, format string, args ...interface{}) {
	r.delegate.WarnContext(ctx, "%s", RedactSecrets(fmt.Sprintf(format, args...)))
}

func (r *RedactingLogger) ErrorContext(ctx context.Context, format string, args ...interface{}) {
	r.delegate.ErrorContext(ctx, "%s", RedactSecrets(fmt.Sprintf(format, args...)))
}

func (r *RedactingLogger) FatalContext(ctx context.Context, format string, args ...interface{}) {
	r.delegate.FatalContext(ctx, "%s", RedactSecrets(fmt.Sprintf(format, args...)))
}

func (r *RedactingLogger) Println(v ...interface{}) {
	r.delegate.Println(RedactSecrets(fmt.Sprintln(v...)))
}

func (r *RedactingLogger) Printf(format string, v ...interface{}) {
	r.delegate.Printf("%s", RedactSecrets(fmt.Sprintf(format, v...)))
}

package ralph

import "strings"

// stuckPhrases are scanned near the start of agent output, where refusal
// messages appear.
var stuckPhrases = []string{
	"i cannot proceed",
	"i'm unable to continue",
	"i don't have access to",
	"cannot complete this task",
}

// stuckScanBytes bounds the stuck-phrase scan to the head of the output.
const stuckScanBytes = 500

// rateLimitScanBytes bounds the rate-limit scan to the tail of the output,
// where API error messages appear.
const rateLimitScanBytes = 1000

// DetectStuckPhrase reports whether the head of output contains a phrase
// indicating the agent refused or stalled.
func DetectStuckPhrase(output string) bool {
	head := output
	if len(head) > stuckScanBytes {
		head = head[:stuckScanBytes]
	}
	lower := strings.ToLower(head)
	for _, p := range stuckPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// DetectRateLimit reports whether the tail of output carries a rate-limit
// marker.
func DetectRateLimit(output string) bool {
	tail := output
	if len(tail) > rateLimitScanBytes {
		tail = tail[len(tail)-rateLimitScanBytes:]
	}
	lower := strings.ToLower(tail)
	return strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests")
}

// Assess classifies an agent invocation. Priorities: a timeout kill beats
// everything; a rate-limit marker on failure beats a stuck phrase; a stuck
// phrase beats the completion marker (an agent that declares itself stuck
// and then prints the marker has not finished); the marker beats plain
// exit-status classification.
func Assess(result *AgentResult, completionMarker string) Outcome {
	if result.TimedOut {
		return OutcomeTimeout
	}
	ok := result.ExitCode == 0
	if !ok && DetectRateLimit(result.Output) {
		return OutcomeRateLimited
	}
	if DetectStuckPhrase(result.Output) {
		return OutcomeLoopDetected
	}
	if completionMarker != "" && strings.Contains(result.Output, completionMarker) {
		return OutcomeComplete
	}
	if ok {
		return OutcomeSuccess
	}
	return OutcomeProcessError
}

package step

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Content fed to a prompt is bounded so a long article cannot blow the token
// budget; the step contracts only need representative text.
const (
	previewLimit     = 2000
	controversyLimit = 3000
	fullTextLimit    = 12000
)

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func summaryPrompt(in Inputs) (string, string) {
	system := "You are a careful content analyst. Respond with a single JSON object and nothing else."

	user := fmt.Sprintf(`Assess the source and summarize the content below.

Source:
- Title: %s
- Type: %s
- URL: %s
- Metadata: %s

Content preview (for source assessment):
%s

Full text (for summary):
%s

Return JSON with this shape:
{
  "source_assessment": {
    "credibility": "high|medium|low|unknown",
    "reasoning": "why",
    "potential_biases": ["..."]
  },
  "summary": {
    "summary": "executive summary",
    "key_claims": [{"text": "...", "location": "where in the content"}],
    "main_argument": "...",
    "conclusions": ["..."]
  }
}`,
		in.Content.Title,
		in.Content.SourceType,
		in.URL,
		mustJSON(in.Content.Metadata),
		clip(in.FullText, previewLimit),
		clip(in.FullText, fullTextLimit),
	)

	return system, user
}

func claimsPrompt(in Inputs) (string, string) {
	system := "You are a claim extraction analyst. Respond with a single JSON object and nothing else."

	user := fmt.Sprintf(`Extract and classify the distinct claims made in this content.

Summary of the content:
%s

Full text:
%s

Classify each claim as "factual" (verifiable), "unsupported" (asserted without
evidence), "opinion", or "other". Quote supporting text in "evidence" when the
source provides any.

Return JSON with this shape:
{
  "claims": [
    {"text": "...", "type": "factual|unsupported|opinion|other", "evidence": "...", "location": "..."}
  ]
}`,
		mustJSON(in.Summary),
		clip(in.FullText, fullTextLimit),
	)

	return system, user
}

func controversyPrompt(in Inputs) (string, string) {
	system := "You are a controversy analyst. Respond with a single JSON object and nothing else."

	user := fmt.Sprintf(`Judge how controversial this content is and flag conspiracy-style rhetoric.

Summary:
%s

Claims:
%s

Content excerpt:
%s

Return JSON with this shape:
{
  "level": "low|medium|high",
  "summary": "one-paragraph judgment",
  "indicators": [{"pattern": "named rhetorical pattern", "evidence": "quoted text"}]
}`,
		mustJSON(in.Summary),
		mustJSON(in.Claims),
		clip(in.FullText, controversyLimit),
	)

	return system, user
}

func fallaciesPrompt(in Inputs) (string, string) {
	system := "You are a logic analyst detecting reasoning flaws. Respond with a single JSON object and nothing else."

	user := fmt.Sprintf(`Detect logical fallacies in this content.

Claims:
%s

Full text:
%s

Return JSON with this shape:
{
  "overall_quality": "sound|mixed|weak",
  "fallacies": [{"type": "fallacy name", "excerpt": "quoted text", "explanation": "why this is fallacious"}]
}`,
		mustJSON(in.Claims),
		clip(in.FullText, fullTextLimit),
	)

	return system, user
}

func counterargumentPrompt(in Inputs) (string, string) {
	system := "You are a devil's advocate researcher. Respond with a single JSON object and nothing else."

	user := fmt.Sprintf(`Synthesize the strongest counter-perspective to this content.

Claims:
%s

Summary:
%s

Return JSON with this shape:
{
  "counterargument": "one synthesized counter-perspective paragraph",
  "sources": [{"title": "...", "url": "..."}]
}`,
		mustJSON(in.Claims),
		mustJSON(in.Summary),
	)

	return system, user
}

func analyzingPrompt(in Inputs) (string, string) {
	system := "You are an evidence analyst. Respond with a single JSON object and nothing else. Only use the search results provided; never invent sources."

	var results strings.Builder
	for i, r := range in.SearchResults {
		fmt.Fprintf(&results, "%d. %s\n   URL: %s\n   Snippet: %s\n", i+1, r.Title, r.URL, clip(r.Snippet, 500))
	}

	user := fmt.Sprintf(`Classify each search result as evidence for or against this claim.

Claim: %s

Search results:
%s
Use each result's own URL and title; extract a representative snippet per
source. Discard results that are irrelevant to the claim.

Return JSON with this shape:
{
  "evidence_for": [{"source_url": "...", "source_title": "...", "snippet": "..."}],
  "evidence_against": [{"source_url": "...", "source_title": "...", "snippet": "..."}]
}`,
		in.ClaimText,
		results.String(),
	)

	return system, user
}

func assessingPrompt(in Inputs) (string, string) {
	system := "You are a source credibility assessor. Respond with a single JSON object and nothing else."

	user := fmt.Sprintf(`Score the credibility of this source on a 0-10 scale.

Source URL: %s
Source title: %s
Snippet: %s

Consider domain reputation, editorial standards, and whether the snippet
reads as reporting, research, or opinion. Score this source on its own; do
not assume anything about other sources.

Return JSON with this shape:
{"credibility_score": 0.0, "credibility_reasoning": "why"}`,
		in.Evidence.SourceURL,
		in.Evidence.SourceTitle,
		clip(in.Evidence.Snippet, 500),
	)

	return system, user
}

func concludingPrompt(in Inputs) (string, string) {
	system := "You are a verification analyst writing final verdicts. Respond with a single JSON object and nothing else."

	user := fmt.Sprintf(`Write a conclusion for this claim verification.

Claim: %s

Evidence for:
%s

Evidence against:
%s

Weigh the evidence by source credibility. Say "supported" only when credible
for-evidence dominates, "refuted" when credible against-evidence dominates,
"inconclusive" when the evidence is balanced, absent, or weak on both sides.

Return JSON with this shape:
{"conclusion": "free-text verdict", "conclusion_type": "supported|refuted|inconclusive", "confidence_notes": "..."}`,
		in.ClaimText,
		mustJSON(in.EvidenceFor),
		mustJSON(in.EvidenceAgainst),
	)

	return system, user
}

// strictSuffix is appended on the single retry after a structural validation
// failure.
const strictSuffix = "\n\nIMPORTANT: The previous response was not valid. Return ONLY the JSON object described above, with every required field present. No prose, no markdown fences."

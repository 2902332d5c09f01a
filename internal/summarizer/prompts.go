package summarizer

import (
	"fmt"
	"strings"
)

// Method names a summarization prompt family.
type Method string

const (
	MethodTDMLLM Method = "tdmllm"
	MethodSEP    Method = "sep"
)

// PromptInput holds the named fields a summary template renders.
type PromptInput struct {
	Ticker string
	Tweets []string
}

// Template renders a summary prompt and cleans the model's reply.
type Template interface {
	Render(input PromptInput) string
	Clean(output string) string
}

// TemplateFor returns the template of a method.
func TemplateFor(method Method) (Template, error) {
	switch method {
	case MethodTDMLLM:
		return newsSummaryTemplate{}, nil
	case MethodSEP:
		return factSummaryTemplate{examples: factExamples}, nil
	default:
		return nil, fmt.Errorf("unknown summary method %q", method)
	}
}

// newsSummaryTemplate asks for a summary plus keywords of noisy news text.
type newsSummaryTemplate struct{}

func (newsSummaryTemplate) Render(input PromptInput) string {
	var b strings.Builder
	b.WriteString("Please summarize the following noisy but possible news data extracted from\n")
	b.WriteString("web page HTML, and extract keywords of the news. The news text can be very noisy due to it is HTML extraction. Give formatted\n")
	fmt.Fprintf(&b, "answer such as Summary: ..., Keywords: ... The news is supposed to be for %s stock. You may put 'N/A' if the noisy text does\n", input.Ticker)
	b.WriteString("not have relevant information to extract.\n")
	fmt.Fprintf(&b, "News: %s\n", strings.Join(input.Tweets, "\n"))
	return b.String()
}

func (newsSummaryTemplate) Clean(output string) string {
	return strings.TrimSpace(output)
}

// factSummaryTemplate asks for bullet-point financial facts and ends on a
// "Summary:" cue.
type factSummaryTemplate struct {
	examples string
}

const factSummaryCue = "Summary:"

func (t factSummaryTemplate) Render(input PromptInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Given today's tweets about %s stock, generate a **concise, fact-based summary**.\n", input.Ticker)
	b.WriteString("Avoid repeating examples verbatim and do not introduce market sentiment or speculation. Focus only on information from the tweets.\n\n")
	b.WriteString("Extract **only relevant financial facts**, such as:\n")
	b.WriteString("- Company actions (e.g., acquisitions, layoffs, expansion, legal issues)\n")
	b.WriteString("- Key financial data (e.g., revenue, stock price change, earnings report)\n")
	fmt.Fprintf(&b, "- Economic or geopolitical events impacting %s\n\n", input.Ticker)
	b.WriteString("Rules:\n")
	b.WriteString("- Only include financial facts mentioned in today's tweets. Do not reference previous days.\n")
	b.WriteString("- Avoid general introductions. Start directly with the key events.\n")
	b.WriteString("- Use concise bullet points. Each point should be max one sentence.\n")
	b.WriteString("- If a tweet already states the fact concisely, quote it directly.\n")
	b.WriteString("- Exclude speculation, opinions, and generic financial analysis.\n")
	b.WriteString("- Only include numbers if explicitly mentioned in the tweets.\n\n")
	b.WriteString("Here are some examples:\n")
	b.WriteString(t.examples)
	b.WriteString("\n(END OF EXAMPLES)\n\n")
	b.WriteString("Tweets:\n")
	b.WriteString(strings.Join(input.Tweets, "\n"))
	b.WriteString("\n\n" + factSummaryCue)
	return b.String()
}

// Clean keeps what follows the last echoed cue. Self-hosted models often
// return the prompt along with the completion.
func (factSummaryTemplate) Clean(output string) string {
	if i := strings.LastIndex(output, factSummaryCue); i >= 0 {
		output = output[i+len(factSummaryCue):]
	}
	return strings.TrimSpace(output)
}

const factExamples = `Tweets:
$AAPL Apple to acquire Shazam for a reported $400 million
Apple shares up 1.2% premarket after analyst upgrade at Morgan Stanley
rt @user: so bullish on $aapl lol

Summary:
- Apple is acquiring Shazam for a reported $400 million.
- Morgan Stanley upgraded Apple; shares rose 1.2% premarket.

Tweets:
$XOM Exxon Mobil posts Q3 profit of $6.24 billion, beating estimates
Exxon to cut capital spending by 10% next year
who else is holding $xom through earnings?

Summary:
- Exxon Mobil reported Q3 profit of $6.24 billion, above estimates.
- Exxon plans to cut capital spending by 10% next year.`

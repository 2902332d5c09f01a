package prediction

import (
	"fmt"
	"strings"
)

// ForecastSystemPrompt frames every forecast request.
const ForecastSystemPrompt = `Instruction: Forecast next day stock return (price change) for symbol, given the company profile, historical weekly news summary,
keywords, and stock returns, and optionally the examples from other stocks of a similar company.
`

// CompanyPromptInput names the fields of the company-profile prompts.
type CompanyPromptInput struct {
	Ticker string
}

// ForecastPromptInput names the fields of the forecast prompt.
type ForecastPromptInput struct {
	CompanyDescription string
	Summary            string
}

// CompanyDescriptionPrompt asks for a short profile with positive and
// negative factors.
func CompanyDescriptionPrompt(input CompanyPromptInput) string {
	return fmt.Sprintf(`Generate a short description for stock %s's company. Also list general positive and negative factors that might
impact the stock price; be brief and use keywords. Consider diverse general factors, such as macro economic situation (e.g.
inflation, CPI growth), business factors (e.g. sales, investment, products), technology factors (e.g. innovation), and others. Use
format Description: ..., Positive Factors: ..., Negative factors: ...
`, input.Ticker)
}

// RelatedCompaniesPrompt asks for the most similar listed peers.
func RelatedCompaniesPrompt(input CompanyPromptInput) string {
	return fmt.Sprintf("List the top 3 NASDAQ stocks most similar to %s stock.", input.Ticker)
}

// CompanyProfile joins a description with an optional peer list.
func CompanyProfile(description, related string) string {
	if strings.TrimSpace(related) == "" {
		return description
	}
	return description + "\n\nSimilar Companies: " + related
}

// ForecastPrompt asks for a next-day summary, keywords and signed return.
func ForecastPrompt(input ForecastPromptInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company Profile: %s\n\n", input.CompanyDescription)
	fmt.Fprintf(&b, "Recent News Summary:\n%s\n\n", input.Summary)
	b.WriteString("Now predict what could be the next day's Summary, Keywords, and forecast the Stock Return.\n")
	b.WriteString("The predicted Summary/Keywords should explain the stock return forecasting.\n")
	b.WriteString("You should predict what could happen next day. Do not just summarize the history.\n")
	b.WriteString("The next day stock return need not be the same as the previous week. Use format Summary: ..., Keywords: ..., Stock Return: [number]% ([up/down])\n\n")
	b.WriteString("Can you reason step by step before the finalized output?\n")
	return b.String()
}

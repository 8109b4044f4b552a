package ai

import (
	"fmt"
	"strings"
)

// buildExtractionPrompt constrains the model to strict JSON with the
// canonical category taxonomy.
func buildExtractionPrompt(categories []string) string {
	var b strings.Builder

	b.WriteString("You are an expense extractor for a Vietnamese personal finance assistant.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Extract exactly ONE expense or income item from the user's message.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a single JSON object.\n\n")
	b.WriteString("The object must have these fields:\n")
	b.WriteString("- \"name\": string, short description of the item\n")
	b.WriteString("- \"amount\": number, non-negative, in VND\n")
	b.WriteString("- \"category\": string (one of the predefined categories below)\n")
	b.WriteString("- \"currency\": string, always \"VND\"\n")
	b.WriteString("- \"type\": \"expense\" or \"income\"\n")
	b.WriteString("- \"day\", \"month\", \"year\": numbers for the transaction date\n\n")

	b.WriteString("Use ONLY the following categories:\n")
	for _, c := range categories {
		b.WriteString("  - " + c + "\n")
	}
	b.WriteString("\nIf unsure, use category \"Other\".\n\n")

	b.WriteString("Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Do NOT use ```json or any Markdown.\n")
	b.WriteString("Output must begin with \"{\" and end with \"}\".\n")

	return b.String()
}

// BuildChatInstruction frames a free-form financial question with the
// user's current month context so answers stay grounded in their data.
func BuildChatInstruction(monthSummary string) string {
	var b strings.Builder

	b.WriteString("You are a friendly personal finance assistant for a Vietnamese user.\n")
	b.WriteString("Answer briefly and practically, in the language of the question.\n")
	b.WriteString("Amounts are in VND.\n")
	if monthSummary != "" {
		fmt.Fprintf(&b, "\nThe user's current month at a glance:\n%s\n", monthSummary)
	}
	return b.String()
}

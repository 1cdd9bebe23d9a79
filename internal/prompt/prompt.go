// Package prompt renders retrieved context and a question into the user
// message sent to the generation client.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/model"
)

// RefusalAnswer is the fixed reply for questions the context cannot answer
const RefusalAnswer = "I cannot provide an answer to your query."

// QuestionHeader introduces the user's question after the context sections
const QuestionHeader = "### User Question"

// SystemMessage is the static instruction preamble for every generation call
const SystemMessage = "You are a helpful and knowledgeable assistant tasked with answering user queries based strictly on the provided context. " +
	"The input format will consist of multiple sections in the following structure:\n\n" +
	"### Section Name <source URL>\n" +
	"Context text\n" +
	"### Section Name <source URL>\n" +
	"Context text\n" +
	"### Section Name <source URL>\n" +
	"Context text\n" +
	QuestionHeader + "\n" +
	"User's question here\n\n" +
	"Each section contains contextual information, and some sections may include relevant URLs. " +
	"If a URL within the context supports or relates to your answer, include it in your response.\n\n" +
	"Rules:\n" +
	"1. Use only the information explicitly contained in the provided context. Do NOT make up facts, assumptions, or external details.\n" +
	"2. If the context does not contain enough information to answer the user's question, respond with: '" + RefusalAnswer + "'\n" +
	"3. Always be polite and professional.\n" +
	"4. Keep answers short, clear, and concise.\n" +
	"5. When relevant, include URLs encapsulated with () found in the context that directly support your answer.\n" +
	"6. Do not invent or fabricate sources or URLs. Only use those explicitly provided in the context.\n" +
	"7. If multiple context sections are relevant, synthesize them into a coherent and compact answer.\n\n" +
	"Your goal is to provide accurate, context-grounded answers that are directly supported by the supplied information."

// tagLine matches a title marker such as "<Title>" and the line break after it
var tagLine = regexp.MustCompile(`<[^>]*>\s*\n`)

// Build renders the context sections in the given order followed by the question
func Build(question string, context []model.ContextUnit) string {
	var b strings.Builder
	for _, unit := range context {
		writeSection(&b, unit)
	}
	b.WriteString(QuestionHeader)
	b.WriteString("\n")
	b.WriteString(question)
	b.WriteString("\n")
	return b.String()
}

func writeSection(b *strings.Builder, unit model.ContextUnit) {
	fmt.Fprintf(b, "### %s <%s>\n", unit.SectionName, unit.SourceURL)
	b.WriteString(tagLine.ReplaceAllString(unit.Content, ""))
	b.WriteString("\n\n")
}

// SourceURLs returns the distinct source URLs of the context, in order
func SourceURLs(context []model.ContextUnit) []string {
	seen := make(map[string]bool, len(context))
	var urls []string
	for _, unit := range context {
		if !seen[unit.SourceURL] {
			seen[unit.SourceURL] = true
			urls = append(urls, unit.SourceURL)
		}
	}
	return urls
}

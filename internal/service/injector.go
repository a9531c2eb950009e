package service

import (
	"fmt"

	"github.com/cloo-solutions/sanad/internal/domain"
)

const relevantFrame = "[Book Reference]: %s\n\n" +
	"Now answer the student's question using this information. " +
	"If this doesn't fully answer the question, supplement with your own knowledge."

// Excerpts did not pass through summarization, so the frame tells the
// dialogue model to treat them with suspicion.
const excerptFrame = "[Unverified excerpt retrieved from the %s book; not summarized and possibly off-topic]\n\n%s\n\n" +
	"Use this excerpt only where it actually answers the student's question. " +
	"If it doesn't, answer from your own knowledge."

// Injector appends compressed facts to a conversation as assistant context.
type Injector struct {
	documentTitle string
}

func NewInjector(documentTitle string) *Injector {
	if documentTitle == "" {
		documentTitle = "Usool al-Hadith"
	}
	return &Injector{documentTitle: documentTitle}
}

// Inject appends exactly one assistant message for a relevant fact and
// nothing otherwise. It reports whether a message was appended.
func (i *Injector) Inject(conv *domain.Conversation, fact domain.CompressedFact) bool {
	content, ok := i.Frame(fact)
	if !ok {
		return false
	}
	conv.Append(domain.RoleAssistant, content)
	return true
}

// Frame renders the message Inject would append.
func (i *Injector) Frame(fact domain.CompressedFact) (string, bool) {
	text, ok := fact.Text()
	if !ok {
		return "", false
	}
	if fact.Kind() == domain.FactExcerpt {
		return fmt.Sprintf(excerptFrame, i.documentTitle, text), true
	}
	return fmt.Sprintf(relevantFrame, text), true
}

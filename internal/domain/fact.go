package domain

// FactKind distinguishes the variants of CompressedFact.
type FactKind string

const (
	// FactNotRelevant means nothing retrieved answers the question.
	FactNotRelevant FactKind = "not_relevant"
	// FactRelevant is a model-written summary of retrieved passages.
	FactRelevant FactKind = "relevant"
	// FactExcerpt is a truncated raw excerpt used when summarization failed.
	FactExcerpt FactKind = "excerpt"
)

// CompressedFact is the output of relevance compression. It either carries
// text (Relevant or Excerpt) or is NotRelevant; never both.
type CompressedFact struct {
	kind FactKind
	text string
}

// Relevant wraps a summary produced by the compression model.
func Relevant(text string) CompressedFact {
	return CompressedFact{kind: FactRelevant, text: text}
}

// Excerpt wraps unsummarized context used as a fallback.
func Excerpt(text string) CompressedFact {
	return CompressedFact{kind: FactExcerpt, text: text}
}

// NotRelevant is the explicit "no relevant information" value.
func NotRelevant() CompressedFact {
	return CompressedFact{kind: FactNotRelevant}
}

// Kind returns the variant. The zero value reports FactNotRelevant.
func (f CompressedFact) Kind() FactKind {
	if f.kind == "" {
		return FactNotRelevant
	}
	return f.kind
}

// Text returns the carried text and whether there is any.
func (f CompressedFact) Text() (string, bool) {
	if f.Kind() == FactNotRelevant {
		return "", false
	}
	return f.text, true
}

// IsRelevant reports whether the fact carries text to inject.
func (f CompressedFact) IsRelevant() bool {
	_, ok := f.Text()
	return ok
}

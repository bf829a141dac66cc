package rag

import (
	"strings"

	"github.com/danielpatrickdp/amal/go-router/internal/language"
)

// #region prompt-templates

var promptTemplates = map[language.Language]string{
	language.Arabic: `بناءً على السياق التالي، أجب عن السؤال بدقة باللغة العربية:

السياق:
{context}

السؤال: {query}

قدم إجابة شاملة ومفصلة بناءً على المعلومات المتوفرة في السياق. إذا كانت المعلومات غير كافية، أشر إلى ذلك.
أجب باللغة العربية الفصحى.`,

	language.French: `En vous basant sur le contexte suivant, répondez à la question avec précision en français:

Contexte:
{context}

Question: {query}

Fournissez une réponse complète et détaillée basée sur les informations disponibles dans le contexte. Si les informations sont insuffisantes, indiquez-le.
Répondez en français.`,

	language.English: `Based on the following context, answer the question accurately in English:

Context:
{context}

Question: {query}

Provide a comprehensive and detailed answer based on the information available in the context. If the information is insufficient, indicate that.
Answer in English.`,

	language.AlgerianMixed: `بناءً على السياق التالي، جاوب على السؤال بالدارجة الجزائرية:

السياق:
{context}

السؤال: {query}

عطي إجابة كاملة ومفصلة بناءً على المعلومات الموجودة في السياق. إذا المعلومات ماكانتش كافية، قول هذا.
جاوب بالدارجة الجزائرية (مزيج من العربية والفرنسية كيما يهدرو في الجزائر).`,
}

// #endregion prompt-templates

// #region build

// BuildContext renders passages into one context block separated by blank lines.
func BuildContext(passages []Passage) string {
	parts := make([]string, 0, len(passages))
	for _, p := range passages {
		category := p.Metadata[MetaCategory]
		if category == "" {
			category = "Unknown"
		}
		var b strings.Builder
		b.WriteString("**Context from ")
		b.WriteString(category)
		b.WriteString(":**\n")
		b.WriteString(p.Text)
		if v := p.Metadata[MetaGeographicContext]; known(v) {
			b.WriteString("\n- Geographic Context: ")
			b.WriteString(v)
		}
		if v := p.Metadata[MetaTimeframe]; known(v) {
			b.WriteString("\n- Timeframe: ")
			b.WriteString(v)
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt fills the language's instruction template. Unknown languages
// use English.
func BuildPrompt(lang language.Language, context, query string) string {
	tmpl, ok := promptTemplates[lang]
	if !ok {
		tmpl = promptTemplates[language.English]
	}
	return strings.NewReplacer("{context}", context, "{query}", query).Replace(tmpl)
}

func known(v string) bool {
	return v != "" && v != "unknown"
}

// #endregion build

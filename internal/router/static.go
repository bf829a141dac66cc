package router

import (
	"github.com/danielpatrickdp/amal/go-router/internal/intent"
	"github.com/danielpatrickdp/amal/go-router/internal/language"
	"github.com/danielpatrickdp/amal/go-router/internal/templates"
)

// staticResponder answers from the template catalog only. It has no access
// to retrieval or generation, so every label it handles is answered without
// a model call.
type staticResponder struct {
	catalog *templates.Catalog
	subs    map[string]string
}

func newStaticResponder(catalog *templates.Catalog, cfg Config) staticResponder {
	return staticResponder{
		catalog: catalog,
		subs:    map[string]string{templates.PlaceholderCrisisLine: cfg.CrisisLine},
	}
}

func (s staticResponder) respond(key templates.Key, source string, lang language.Language, cls intent.Result) Response {
	return Response{
		Text:           s.catalog.Resolve(key, lang, s.subs),
		Source:         source,
		Language:       lang,
		Classification: cls,
	}
}

// crisis is the Harm path.
func (s staticResponder) crisis(lang language.Language, cls intent.Result) Response {
	return s.respond(templates.KeyHarm, SourceHarm, lang, cls)
}

func (s staticResponder) outOfContext(lang language.Language, cls intent.Result) Response {
	return s.respond(templates.KeyOutOfContext, SourceOutOfContext, lang, cls)
}

func (s staticResponder) support(lang language.Language, cls intent.Result) Response {
	return s.respond(templates.KeyLookingForSupport, SourceSupport, lang, cls)
}

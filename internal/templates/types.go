package templates

import "github.com/danielpatrickdp/amal/go-router/internal/intent"

// #region keys

// Key names one template in the catalog.
type Key string

const (
	KeyOutOfContext      Key = "out_of_context"
	KeyHarm              Key = "harm"
	KeyLookingForSupport Key = "looking_for_support"
	KeyRAGUnavailable    Key = "rag_unavailable"
	KeyNoInformation     Key = "no_information"
	KeyRAGError          Key = "rag_error"
)

// RequiredKeys must each have an English entry for a catalog to load.
var RequiredKeys = []Key{
	KeyOutOfContext, KeyHarm, KeyLookingForSupport,
	KeyRAGUnavailable, KeyNoInformation, KeyRAGError,
}

// labelKeys maps the statically answered labels to their templates.
var labelKeys = map[intent.Label]Key{
	intent.OutOfContext:      KeyOutOfContext,
	intent.Harm:              KeyHarm,
	intent.LookingForSupport: KeyLookingForSupport,
}

// ForLabel returns the static template for a label. ExactFact has none.
func ForLabel(l intent.Label) (Key, bool) {
	k, ok := labelKeys[l]
	return k, ok
}

// #endregion keys

// #region placeholders

// PlaceholderCrisisLine is substituted with the configured hotline number.
const PlaceholderCrisisLine = "crisis_line"

// knownPlaceholders lists every {name} a template may reference.
var knownPlaceholders = map[string]bool{
	PlaceholderCrisisLine: true,
}

// #endregion placeholders

// #region file

type catalogFile struct {
	Templates map[string]map[string]string `yaml:"templates"`
}

// #endregion file

package language

// #region language

// Language is the detected language of a user query.
type Language string

const (
	Arabic        Language = "ar"
	French        Language = "fr"
	AlgerianMixed Language = "dz" // code-switched Arabic/French (Darija)
	English       Language = "en"
)

// All lists every supported language in catalog order.
var All = []Language{Arabic, French, AlgerianMixed, English}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	switch l {
	case Arabic, French, AlgerianMixed, English:
		return true
	}
	return false
}

// #endregion language

// #region thresholds

const (
	arabicRatioMin   = 0.7 // ratio above this is Arabic
	latinRatioMax    = 0.3 // ratio below this is French or English
	frenchMinMatches = 2
)

// #endregion thresholds

package language

// #region french-words

// frenchWords is the closed set of French function words used to split
// Latin-script text between French and English. Words that are also common
// English tokens ("me", "on", "a") are left out.
var frenchWords = []string{
	"je", "tu", "il", "elle", "nous", "vous", "est", "sont",
	"le", "la", "les", "un", "une", "des", "pour", "avec",
	"dans", "sur", "que", "qui", "comment", "pourquoi",
	"du", "de", "ne", "pas", "mon", "ma", "mes", "au", "aux",
	"et", "ce", "se", "moi",
}

// #endregion french-words

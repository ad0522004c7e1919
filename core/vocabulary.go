package core

import "strings"

// Vocabulary is the swappable table of language-specific terms behind
// predicate classification and the retrieval heuristics. It is loaded from
// configuration; DefaultVocabulary covers English and French.
type Vocabulary struct {
	// GenericSubject names the primary human until a proper name is learned.
	GenericSubject string `mapstructure:"generic_subject" json:"genericSubject"`

	// GenericSubjectAliases are treated exactly like GenericSubject.
	GenericSubjectAliases []string `mapstructure:"generic_subject_aliases" json:"genericSubjectAliases"`

	// IdentityPredicates hold a subject's name ("is named").
	IdentityPredicates []string `mapstructure:"identity_predicates" json:"identityPredicates"`

	// MultiValuePredicates accumulate objects instead of overwriting them.
	MultiValuePredicates []string `mapstructure:"multi_value_predicates" json:"multiValuePredicates"`

	// SentimentPredicates express preferences ("likes", "hates").
	SentimentPredicates []string `mapstructure:"sentiment_predicates" json:"sentimentPredicates"`

	// IdentityQuestions and AboutMeQuestions are regular expressions matched
	// against lower-cased utterances.
	IdentityQuestions []string `mapstructure:"identity_questions" json:"identityQuestions"`
	AboutMeQuestions  []string `mapstructure:"about_me_questions" json:"aboutMeQuestions"`

	// SentimentKeywords trigger the sentiment fallback when present in an utterance.
	SentimentKeywords []string `mapstructure:"sentiment_keywords" json:"sentimentKeywords"`

	Categories []Category  `mapstructure:"categories" json:"categories"`
	Expansions []Expansion `mapstructure:"expansions" json:"expansions"`
}

// Category ties question keywords to the terms searched for in facts.
type Category struct {
	Name     string   `mapstructure:"name" json:"name"`
	Keywords []string `mapstructure:"keywords" json:"keywords"`
	Terms    []string `mapstructure:"terms" json:"terms"`
}

// Expansion appends Append to a query matching Pattern. Append may refer to
// capture groups of Pattern ($1).
type Expansion struct {
	Pattern string `mapstructure:"pattern" json:"pattern"`
	Append  string `mapstructure:"append" json:"append"`
}

// IsMultiValue reports whether predicate accumulates objects.
func (v *Vocabulary) IsMultiValue(predicate string) bool {
	return ContainsFold(v.MultiValuePredicates, predicate)
}

// IsIdentity reports whether predicate names its subject.
func (v *Vocabulary) IsIdentity(predicate string) bool {
	return ContainsFold(v.IdentityPredicates, predicate)
}

// IsSentiment reports whether predicate expresses a preference.
func (v *Vocabulary) IsSentiment(predicate string) bool {
	return ContainsFold(v.SentimentPredicates, predicate)
}

// IsGenericSubject reports whether subject denotes the not-yet-named user.
func (v *Vocabulary) IsGenericSubject(subject string) bool {
	if Fold(subject) == Fold(v.GenericSubject) {
		return true
	}
	return ContainsFold(v.GenericSubjectAliases, subject)
}

// Generic returns the canonical generic subject, falling back to "User".
func (v *Vocabulary) Generic() string {
	if s := strings.TrimSpace(v.GenericSubject); s != "" {
		return s
	}
	return "User"
}

// DefaultVocabulary returns the built-in English and French table.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		GenericSubject:        "User",
		GenericSubjectAliases: []string{"Utilisateur", "me", "moi"},
		IdentityPredicates:    []string{"is named", "is called", "name", "nom", "s'appelle"},
		MultiValuePredicates: []string{
			"likes", "dislikes", "loves", "hates", "enjoys", "owns", "has", "collects",
			"aime", "déteste", "adore", "possède", "collectionne",
		},
		SentimentPredicates: []string{
			"likes", "dislikes", "loves", "hates", "enjoys", "prefers",
			"aime", "déteste", "adore", "préfère",
		},
		IdentityQuestions: []string{
			`\bmy name\b`,
			`\bwho am i\b`,
			`\bwhat am i called\b`,
			`comment je m'appelle`,
			`\bmon nom\b`,
			`qui suis-je`,
		},
		AboutMeQuestions: []string{
			`what do you (?:know|remember) about me`,
			`tell me about (?:me|myself)`,
			`que sais-tu (?:sur|de) moi`,
			`qu'est-ce que tu sais (?:sur|de) moi`,
		},
		SentimentKeywords: []string{
			"like", "likes", "love", "loves", "hate", "hates", "enjoy", "favorite", "favourite", "prefer",
			"aime", "aimes", "adore", "déteste", "préfère", "préféré", "préférée",
		},
		Categories: []Category{
			{
				Name:     "pets",
				Keywords: []string{"pet", "pets", "animal", "animals", "cat", "cats", "dog", "dogs", "animaux", "chat", "chats", "chien", "chiens"},
				Terms:    []string{"cat", "dog", "kitten", "puppy", "pet", "animal", "bird", "fish", "hamster", "rabbit", "chat", "chien", "chaton", "chiot", "oiseau", "poisson", "lapin"},
			},
			{
				Name:     "food",
				Keywords: []string{"food", "eat", "dish", "meal", "cuisine", "manger", "plat", "nourriture"},
				Terms:    []string{"food", "pizza", "pasta", "chocolate", "cheese", "meal", "dish", "pâtes", "chocolat", "fromage"},
			},
			{
				Name:     "music",
				Keywords: []string{"music", "song", "songs", "band", "musique", "chanson", "chansons", "groupe"},
				Terms:    []string{"music", "song", "band", "album", "concert", "musique", "chanson", "groupe"},
			},
		},
		Expansions: []Expansion{
			{Pattern: `\bhow many\b`, Append: "owns has possesses number of"},
			{Pattern: `\bcombien\b`, Append: "possède a nombre de"},
			{Pattern: `what (?:do you call|is the name of|are the names of) (?:my|your) (\w+)`, Append: "$1 is named is called name"},
			{Pattern: `comment s'appellent? (?:mes|mon|ma|tes|ton|ta) (\w+)`, Append: "$1 s'appelle nom"},
		},
	}
}

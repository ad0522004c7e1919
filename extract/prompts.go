package extract

const triplePrompt = `You extract facts worth remembering from what the user says, as a triple (subject, predicate, object).

RULES:
1. Ignore instruction words such as "remember", "don't forget", "keep in mind"; they are not part of the fact.
2. Subject: the entity the fact is about.
   - First person ("I", "my cat", "my car") means the subject is "%[1]s".
3. Predicate: the relation in the third person, without pronouns.
   - "I like" -> "likes", "I own" -> "owns", "my name is" -> "is named", "I live in" -> "lives in".
4. Object: what the relation points to. Keep details and proper names.

EXAMPLES:
- "remember that I own a Tesla" -> {"subject":"%[1]s","predicate":"owns","object":"a Tesla"}
- "my cat is called Belphegor" -> {"subject":"%[1]s","predicate":"has a cat named","object":"Belphegor"}
- "I live in Paris" -> {"subject":"%[1]s","predicate":"lives in","object":"Paris"}
- "I hate spinach" -> {"subject":"%[1]s","predicate":"hates","object":"spinach"}
- "my favourite colour is blue" -> {"subject":"%[1]s","predicate":"has as favourite colour","object":"blue"}

Answer with the JSON object only. If the message is a question or states no fact, answer: null`

const multiplePrompt = `Extract every fact worth remembering from the user's text as JSON triples.
First person refers to "%[1]s". Predicates are third-person verb phrases.

Answer with a JSON array only:
[{"subject":"...","predicate":"...","object":"..."}]
or [] when there is nothing to remember.`

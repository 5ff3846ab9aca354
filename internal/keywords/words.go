package keywords

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// stopWords is an English stop list, case-folded.
var stopWords = set(
	"a", "about", "above", "across", "after", "afterwards", "again", "against", "all", "almost",
	"alone", "along", "already", "also", "although", "always", "am", "among", "amongst", "an",
	"and", "another", "any", "anyhow", "anyone", "anything", "anyway", "anywhere", "are", "around",
	"as", "at", "back", "be", "became", "because", "become", "becomes", "becoming", "been",
	"before", "beforehand", "behind", "being", "below", "beside", "besides", "between", "beyond", "both",
	"bottom", "but", "by", "ca", "call", "can", "cannot", "could", "did", "do",
	"does", "doing", "done", "down", "due", "during", "each", "either", "else", "elsewhere",
	"empty", "enough", "even", "ever", "every", "everyone", "everything", "everywhere", "except", "few",
	"first", "for", "former", "formerly", "from", "front", "full", "further", "had", "has",
	"have", "he", "hence", "her", "here", "hereafter", "hereby", "herein", "hereupon", "hers",
	"herself", "him", "himself", "his", "how", "however", "i", "if", "in", "indeed",
	"into", "is", "it", "its", "itself", "just", "last", "latter", "latterly", "least",
	"less", "many", "may", "me", "meanwhile", "might", "mine", "more", "moreover", "most",
	"mostly", "much", "must", "my", "myself", "name", "namely", "neither", "never", "nevertheless",
	"next", "no", "nobody", "none", "noone", "nor", "not", "nothing", "now", "nowhere",
	"of", "off", "often", "on", "once", "one", "only", "onto", "or", "other",
	"others", "otherwise", "our", "ours", "ourselves", "out", "over", "own", "part", "per",
	"perhaps", "please", "put", "quite", "rather", "re", "really", "regarding", "same", "say",
	"see", "seem", "seemed", "seeming", "seems", "serious", "several", "she", "should", "show",
	"side", "since", "so", "some", "somehow", "someone", "something", "sometime", "sometimes", "somewhere",
	"still", "such", "take", "than", "that", "the", "their", "them", "themselves", "then",
	"thence", "there", "thereafter", "thereby", "therefore", "therein", "thereupon", "these", "they", "third",
	"this", "those", "though", "through", "throughout", "thru", "thus", "to", "together", "too",
	"top", "toward", "towards", "under", "unless", "until", "up", "upon", "us", "used",
	"using", "various", "very", "via", "was", "we", "well", "were", "what", "whatever",
	"when", "whence", "whenever", "where", "whereafter", "whereas", "whereby", "wherein", "whereupon", "wherever",
	"whether", "which", "while", "whither", "who", "whoever", "whole", "whom", "whose", "why",
	"will", "with", "within", "without", "would", "yet", "you", "your", "yours", "yourself",
	"yourselves", "s", "t", "m", "d", "ll", "ve", "n't", "nt",
)

// commonVerbs holds request verbs that show up in search-style queries.
var commonVerbs = set(
	"find", "finding", "found", "go", "going", "went", "eat", "eating", "ate", "want",
	"wanting", "wanted", "need", "needing", "needed", "look", "looking", "get", "getting", "got",
	"give", "tell", "know", "search", "searching", "visit", "visiting", "make", "try", "trying",
	"like", "recommend", "suggest", "help", "let", "dine", "dining",
	"drinking", "enjoy", "bring", "meet", "celebrate", "prefer", "serve", "serves",
)

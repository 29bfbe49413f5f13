package textproc

// abbreviations maps address terms and state codes to their expansions.
// Keys are matched against normalized tokens, so they never contain punctuation.
var abbreviations = map[string]string{
	// Office types
	"po": "post office",
	"bo": "branch office",
	"so": "sub office",
	"ho": "head office",

	// Address terms
	"dist": "district",
	"nr":   "near",
	"rd":   "road",
	"st":   "street",
	"ave":  "avenue",
	"blvd": "boulevard",
	"apt":  "apartment",
	"bldg": "building",
	"flr":  "floor",
	"dept": "department",
	"no":   "number",

	// State codes
	"tel": "telangana",
	"tg":  "telangana",
	"ap":  "andhra pradesh",
	"up":  "uttar pradesh",
	"hp":  "himachal pradesh",
	"mp":  "madhya pradesh",
	"tn":  "tamil nadu",
	"wb":  "west bengal",
	"ka":  "karnataka",
	"mh":  "maharashtra",
	"dl":  "delhi",
	"rj":  "rajasthan",
	"pb":  "punjab",
	"hr":  "haryana",
	"jk":  "jammu kashmir",
	"gj":  "gujarat",
	"or":  "odisha",
	"br":  "bihar",
	"jh":  "jharkhand",
	"as":  "assam",
	"uk":  "uttarakhand",
}

// stateCodes are the two-letter entries of abbreviations that name a state.
var stateCodes = map[string]bool{
	"tg": true, "ap": true, "up": true, "hp": true, "mp": true, "tn": true,
	"wb": true, "ka": true, "mh": true, "dl": true, "rj": true, "pb": true,
	"hr": true, "jk": true, "gj": true, "or": true, "br": true, "jh": true,
	"as": true, "uk": true,
}

// Abbreviation returns the expansion of token and whether it is known.
func Abbreviation(token string) (string, bool) {
	full, ok := abbreviations[token]
	return full, ok
}

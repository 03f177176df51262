package prescription

import (
	"regexp"
	"strings"

	"github.com/Skufu/securemed/internal/drugclass"
)

const (
	maxNameLen = 50
	minNameLen = 3
)

// frequencyPhrases translates dosing abbreviations. Numeric patterns such as
// 1-0-1 are not listed and pass through unchanged.
var frequencyPhrases = map[string]string{
	"od":  "once daily",
	"bd":  "twice daily",
	"tid": "three times daily",
	"qid": "four times daily",
	"hs":  "at bedtime",
	"sos": "as needed",
}

var classNotes = map[drugclass.Class]string{
	drugclass.PPI:           "Take 30 minutes before breakfast",
	drugclass.NSAID:         "Take after food; may cause gastric irritation",
	drugclass.Antihistamine: "May cause drowsiness; avoid driving",
	drugclass.Antibiotic:    "Complete the full course; do not skip doses",
}

var (
	// Line classifiers.
	leadingFormRe   = regexp.MustCompile(`(?i)^(?:tablets|tablet|tabs|tab|capsules|capsule|caps|cap|syrup|syrp|syp|syr|injection|inj|drops|drop|cream|gel|ointment)\b`)
	leadingBulletRe = regexp.MustCompile(`^[-•*]`)
	lineFrequencyRe = regexp.MustCompile(`(?i)\b(?:1-1-1|1-0-1|od|bd|tid|qid|hs|sos)\b`)

	// Per-line extractors.
	bulletPrefixRe = regexp.MustCompile(`^[-•*]+\s*`)
	multiSpaceRe   = regexp.MustCompile(`\s{2,}`)
	formRe         = regexp.MustCompile(`(?i)^(tablets|tablet|tabs|tab|capsules|capsule|caps|cap|syrup|syrp|syp|syr|injection|inj|drops|drop|cream|gel|ointment)\b\.?\s*`)
	nameRunRe      = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+\-]*`)
	strengthRe     = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?\s*(?:mcg|mg|ml|g))\b`)
	frequencyRe    = regexp.MustCompile(`(?i)\b(1-1-1|1-0-1|1-0-0|0-1-1|0-0-1|0-1-0|od|bd|tid|qid|hs|sos)\b`)
	forDurationRe  = regexp.MustCompile(`(?i)\bfor\s+(\d{1,2})\s*(days?|weeks?)\b`)
	durationRe     = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(days?|weeks?)\b`)
)

// nameStopWords end a drug name: dosing abbreviations and the words that
// usually start the administration instructions.
var nameStopWords = map[string]bool{
	"od": true, "bd": true, "tid": true, "qid": true, "hs": true, "sos": true,
	"for": true, "x": true, "after": true, "before": true, "with": true,
	"at": true, "once": true, "twice": true, "daily": true, "then": true,
}

// isMedicationLine reports whether line looks like a medication entry: it
// starts with a dosage form or a bullet, or it carries a dosing frequency.
func isMedicationLine(line string) bool {
	return leadingFormRe.MatchString(line) ||
		leadingBulletRe.MatchString(line) ||
		lineFrequencyRe.MatchString(line)
}

// parseMedicationLine extracts one medication. ok is false when no drug name
// could be found.
func parseMedicationLine(line string) (med Medication, ok bool) {
	l := bulletPrefixRe.ReplaceAllString(line, "")
	l = multiSpaceRe.ReplaceAllString(l, " ")

	rest := l
	var form string
	if m := formRe.FindStringSubmatch(l); m != nil {
		form = strings.ToLower(m[1])
		rest = l[len(m[0]):]
	}

	name, afterName := drugName(rest)
	if name == "" {
		return Medication{}, false
	}

	med = Medication{
		Name:  name,
		Form:  optional(form),
		Notes: []string{},
	}
	if m := strengthRe.FindStringSubmatch(afterName); m != nil {
		med.Strength = optional(m[1])
	}
	if m := frequencyRe.FindStringSubmatch(l); m != nil {
		raw := strings.ToLower(m[1])
		if phrase, known := frequencyPhrases[raw]; known {
			raw = phrase
		}
		med.Frequency = optional(raw)
	}
	med.Duration = optional(duration(l))

	for _, c := range drugclass.Ordered {
		if drugclass.Matches(c, l) || drugclass.Matches(c, name) {
			med.Notes = append(med.Notes, classNotes[c])
		}
	}
	return med, true
}

// drugName collects the leading name words of s and returns the name along
// with the unconsumed remainder. Each word contributes its leading run of
// name characters; a word that carried trailing punctuation ends the name.
// A name also stops at a word that starts with a digit, is a dosing
// abbreviation, or begins the instructions.
func drugName(s string) (name, rest string) {
	words := strings.Fields(s)
	var kept []string
	length := 0
	i := 0
	for ; i < len(words); i++ {
		run := nameRunRe.FindString(words[i])
		if run == "" || nameStopWords[strings.ToLower(run)] {
			break
		}
		next := length + len(run)
		if len(kept) > 0 {
			next++
		}
		if next > maxNameLen {
			break
		}
		kept = append(kept, run)
		length = next
		if run != words[i] {
			i++
			break
		}
	}
	if length < minNameLen {
		return "", s
	}
	return strings.Join(kept, " "), strings.Join(words[i:], " ")
}

func duration(line string) string {
	m := forDurationRe.FindStringSubmatch(line)
	if m == nil {
		m = durationRe.FindStringSubmatch(line)
	}
	if m == nil {
		return ""
	}
	return m[1] + " " + strings.ToLower(m[2])
}

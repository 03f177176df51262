// Package clinical scans document text for vitals, probable conditions and
// urgent symptoms.
package clinical

import (
	"regexp"
	"strconv"
)

// Keys used in Summary.KeyVitals.
const (
	VitalBloodPressure    = "bloodPressure"
	VitalGlucose          = "glucose"
	VitalHbA1c            = "hba1c"
	VitalTotalCholesterol = "totalCholesterol"
)

// Condition labels.
const (
	ConditionHypertension   = "Hypertension"
	ConditionDiabetesRisk   = "Diabetes risk"
	ConditionHyperlipidemia = "Hyperlipidemia"
	ConditionAsthma         = "Asthma"
)

const RedFlagUrgentSymptoms = "Potential urgent symptoms present"

// Suggestions appended to every summary.
var Suggestions = []string{
	"Maintain a balanced diet, regular exercise (150 min/week), and adequate sleep (7-9h).",
	"Schedule follow-up with your physician for abnormal labs or persistent symptoms.",
	"Keep an updated list of medications and allergies.",
}

// Summary is the flat result of one scan. Absent vitals are absent keys.
type Summary struct {
	KeyVitals          map[string]string `json:"keyVitals"`
	PossibleConditions []string          `json:"possibleConditions"`
	RedFlags           []string          `json:"redFlags"`
	Suggestions        []string          `json:"suggestions"`
}

type vitalProbe struct {
	key    string
	re     *regexp.Regexp
	format func(m []string) string
}

var vitalProbes = []vitalProbe{
	{
		key:    VitalBloodPressure,
		re:     regexp.MustCompile(`(?i)\b(?:BP|Blood\s*Pressure)\s*[:\-]?\s*(\d{2,3})/(\d{2,3})`),
		format: func(m []string) string { return m[1] + "/" + m[2] },
	},
	{
		key:    VitalGlucose,
		re:     regexp.MustCompile(`(?i)\b(?:FBS|Fasting\s*Glucose|Glucose)\s*[:\-]?\s*(\d{2,3})`),
		format: func(m []string) string { return m[1] + " mg/dL" },
	},
	{
		key:    VitalHbA1c,
		re:     regexp.MustCompile(`(?i)\b(?:HbA1c|A1C)\s*[:\-]?\s*(\d{1,2}\.\d)`),
		format: func(m []string) string { return m[1] + " %" },
	},
	{
		key:    VitalTotalCholesterol,
		re:     regexp.MustCompile(`(?i)\b(?:Total\s*Cholesterol|Cholesterol)\s*[:\-]?\s*(\d{2,3})`),
		format: func(m []string) string { return m[1] + " mg/dL" },
	},
}

// Diabetes thresholds applied to raw probe readings: fasting glucose in
// mg/dL and HbA1c in percent.
const (
	diabetesGlucoseThreshold = 126
	diabetesHbA1cThreshold   = 6.5
)

type conditionRule struct {
	label  string
	phrase *regexp.Regexp
	// reading reports whether a captured numeric reading alone is enough.
	reading func(r readings) bool
}

// readings holds the raw numbers captured by the vital probes.
type readings struct {
	glucose float64
	hba1c   float64
}

var conditionRules = []conditionRule{
	{
		label:  ConditionHypertension,
		phrase: regexp.MustCompile(`(?i)hypertension|high blood pressure`),
	},
	{
		label:  ConditionDiabetesRisk,
		phrase: regexp.MustCompile(`(?i)diabetes|hyperglycemia|hba1c\s*[>≥]\s*6\.?5?`),
		reading: func(r readings) bool {
			return r.glucose >= diabetesGlucoseThreshold || r.hba1c >= diabetesHbA1cThreshold
		},
	},
	{
		label:  ConditionHyperlipidemia,
		phrase: regexp.MustCompile(`(?i)hyperlipidemia|high cholesterol`),
	},
	{
		label:  ConditionAsthma,
		phrase: regexp.MustCompile(`(?i)asthma|wheezing`),
	},
}

var redFlagGroups = []*regexp.Regexp{
	regexp.MustCompile(`(?i)chest pain|shortness of breath|severe headache|vision loss`),
	regexp.MustCompile(`(?i)blood in stool|blood in urine`),
	regexp.MustCompile(`(?i)unexplained weight loss|fainting`),
}

// Summarize runs every probe and rule over text. Probes are independent, so
// a miss on one vital never hides another. A panic in a matcher returns what
// was collected up to that point.
func Summarize(text string) (s Summary) {
	s = Summary{
		KeyVitals:          map[string]string{},
		PossibleConditions: []string{},
		RedFlags:           []string{},
		Suggestions:        []string{},
	}
	defer func() { _ = recover() }()

	var r readings
	for _, p := range vitalProbes {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		s.KeyVitals[p.key] = p.format(m)
		switch p.key {
		case VitalGlucose:
			r.glucose, _ = strconv.ParseFloat(m[1], 64)
		case VitalHbA1c:
			r.hba1c, _ = strconv.ParseFloat(m[1], 64)
		}
	}

	for _, rule := range conditionRules {
		if rule.phrase.MatchString(text) || (rule.reading != nil && rule.reading(r)) {
			s.PossibleConditions = append(s.PossibleConditions, rule.label)
		}
	}

	for _, g := range redFlagGroups {
		if g.MatchString(text) {
			s.RedFlags = append(s.RedFlags, RedFlagUrgentSymptoms)
			break
		}
	}

	s.Suggestions = append(s.Suggestions, Suggestions...)
	return s
}

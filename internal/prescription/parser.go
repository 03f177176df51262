package prescription

import (
	"regexp"
	"strings"

	"github.com/Skufu/securemed/internal/drugclass"
)

// headerWindow is how many leading lines are searched for header fields.
const headerWindow = 10

const (
	InstructionAntibioticCourse = "Antibiotic prescribed: complete the full course even if you feel better."
	InstructionAcidReducer      = "Acid-reducer noted: take before breakfast for best effect."
	InstructionCheckVitals      = "Vitals not clearly captured; double-check BP, pulse, and temperature if noted."
)

var (
	patientRe = regexp.MustCompile(`(?i)(?:\bMrs\.?|\bMr\.?|\bMs\.?|\bName)\s*[:\-]?\s*([A-Za-z ]{2,40})`)
	// patientTailRe trims a following header label swallowed by the name run.
	patientTailRe = regexp.MustCompile(`(?i)\s+(?:age|sex|gender|date|dt|dated)\b.*$`)
	ageRe         = regexp.MustCompile(`(?i)\bAge\s*[:\-]?\s*(\d{1,3})`)
	sexRe         = regexp.MustCompile(`(?i)\b(Female|Male|M|F)\b`)
	dateRe        = regexp.MustCompile(`(?i)\b(?:Dated|Date|Dt)\.?\s*[:\-]?\s*([0-3]?\d[/\-.][01]?\d[/\-.](?:\d{4}|\d{2}))`)
)

type vitalProbe struct {
	re  *regexp.Regexp
	set func(v *Vitals, m []string)
}

var vitalProbes = []vitalProbe{
	{
		re:  regexp.MustCompile(`(?i)\b(?:BP|Blood\s*Pressure)\s*[:\-]?\s*(\d{2,3})\s*/?\s*(\d{2,3})`),
		set: func(v *Vitals, m []string) { v.BP = m[1] + "/" + m[2] },
	},
	{
		re:  regexp.MustCompile(`(?i)\b(?:Pulse|HR)\s*[:\-]?\s*(\d{2,3})`),
		set: func(v *Vitals, m []string) { v.Pulse = m[1] + " bpm" },
	},
	{
		re:  regexp.MustCompile(`(?i)\b(?:SpO2|O2)\s*[:\-]?\s*(\d{2})`),
		set: func(v *Vitals, m []string) { v.SpO2 = m[1] + " %" },
	},
	{
		re:  regexp.MustCompile(`(?i)\b(?:Temperature|Temp)\.?\s*[:\-]?\s*(\d{2,3}(?:\.\d{1,2})?)`),
		set: func(v *Vitals, m []string) { v.Temp = m[1] + " °C" },
	},
}

// Parse extracts a prescription from text. Lines that do not yield a drug
// name contribute nothing. A panic in a matcher returns the fields parsed up
// to that point.
func Parse(text string) (p Prescription) {
	p = Prescription{
		Medications:  []Medication{},
		Instructions: []string{},
	}
	defer func() { _ = recover() }()

	lines := splitLines(text)
	p.Header = parseHeader(lines)
	p.Vitals = parseVitals(strings.Join(lines, " "))

	for _, line := range lines {
		if !isMedicationLine(line) {
			continue
		}
		if med, ok := parseMedicationLine(line); ok {
			p.Medications = append(p.Medications, med)
		}
	}

	p.Instructions = instructionsFor(p)
	return p
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r", ""), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func parseHeader(lines []string) Header {
	if len(lines) > headerWindow {
		lines = lines[:headerWindow]
	}
	text := strings.Join(lines, " ")

	var h Header
	if m := patientRe.FindStringSubmatch(text); m != nil {
		name := strings.TrimSpace(patientTailRe.ReplaceAllString(m[1], ""))
		h.Patient = optional(name)
	}
	if m := ageRe.FindStringSubmatch(text); m != nil {
		h.Age = optional(m[1])
	}
	if m := sexRe.FindStringSubmatch(text); m != nil {
		h.Sex = optional(m[1])
	}
	if m := dateRe.FindStringSubmatch(text); m != nil {
		h.Date = optional(m[1])
	}
	return h
}

func parseVitals(text string) Vitals {
	var v Vitals
	for _, p := range vitalProbes {
		if m := p.re.FindStringSubmatch(text); m != nil {
			p.set(&v, m)
		}
	}
	return v
}

func instructionsFor(p Prescription) []string {
	names := p.Names()
	out := []string{}
	if drugclass.AnyMatches(drugclass.Antibiotic, names) {
		out = append(out, InstructionAntibioticCourse)
	}
	if drugclass.AnyMatches(drugclass.PPI, names) {
		out = append(out, InstructionAcidReducer)
	}
	if p.Vitals.Empty() {
		out = append(out, InstructionCheckVitals)
	}
	return out
}

// Package lifestyle derives a personalised lifestyle plan from a clinical
// summary and a parsed prescription.
package lifestyle

import (
	"regexp"

	"github.com/Skufu/securemed/internal/clinical"
	"github.com/Skufu/securemed/internal/drugclass"
	"github.com/Skufu/securemed/internal/prescription"
)

type Sleep struct {
	TargetHours string `json:"targetHours"`
	Schedule    string `json:"schedule"`
	Notes       string `json:"notes,omitempty"`
}

type Diet struct {
	Focus []string `json:"focus"`
	Avoid []string `json:"avoid"`
	Tips  []string `json:"tips"`
}

type Hydration struct {
	TargetLiters string   `json:"targetLiters"`
	Tips         []string `json:"tips"`
}

type Activity struct {
	TargetMinutesPerWeek int      `json:"targetMinutesPerWeek"`
	Types                []string `json:"types"`
	Cautions             []string `json:"cautions"`
	Tips                 []string `json:"tips,omitempty"`
}

type Monitoring struct {
	Checks []string `json:"checks"`
}

type Reminders struct {
	Meds    []string `json:"meds"`
	General []string `json:"general"`
}

type Plan struct {
	Sleep      Sleep      `json:"sleep"`
	Diet       Diet       `json:"diet"`
	Hydration  Hydration  `json:"hydration"`
	Activity   Activity   `json:"activity"`
	Monitoring Monitoring `json:"monitoring"`
	Reminders  Reminders  `json:"reminders"`
	RedFlags   []string   `json:"redFlags"`
}

var bpReadingRe = regexp.MustCompile(`\b\d{2,3}/\d{2,3}\b`)

// BuildPlan applies every rule whose trigger fires, in a fixed order, then
// fills defaults for sections no rule touched. The inputs are not modified.
func BuildPlan(summary clinical.Summary, rx prescription.Prescription) Plan {
	p := basePlan()
	p.RedFlags = append(p.RedFlags, summary.RedFlags...)

	conds := make(map[string]bool, len(summary.PossibleConditions))
	for _, c := range summary.PossibleConditions {
		conds[c] = true
	}
	_, hasGlucose := summary.KeyVitals[clinical.VitalGlucose]
	_, hasHbA1c := summary.KeyVitals[clinical.VitalHbA1c]
	_, hasCholesterol := summary.KeyVitals[clinical.VitalTotalCholesterol]
	names := rx.Names()

	if conds[clinical.ConditionDiabetesRisk] || hasGlucose || hasHbA1c {
		p.Diet.Focus = append(p.Diet.Focus, "Low-glycemic whole foods: vegetables, legumes, whole grains, lean protein")
		p.Diet.Avoid = append(p.Diet.Avoid, "Sugary drinks, refined carbs, large dessert portions")
		p.Activity.Tips = append(p.Activity.Tips, "Aim for 30 min/day; include post-meal walks (10-15 min)")
		p.Monitoring.Checks = append(p.Monitoring.Checks,
			"Fasting glucose 1-2x/week or as advised",
			"HbA1c every 3 months if uncontrolled",
		)
		p.Reminders.General = append(p.Reminders.General, "Distribute carbs evenly across meals")
	}

	// Any BP reading counts, elevated or not.
	if conds[clinical.ConditionHypertension] || bpReadingRe.MatchString(summary.KeyVitals[clinical.VitalBloodPressure]) {
		p.Diet.Focus = append(p.Diet.Focus, "DASH-style diet: fruits, vegetables, low-fat dairy")
		p.Diet.Avoid = append(p.Diet.Avoid, "Excess salt (>5g/day), processed foods, excess alcohol")
		p.Activity.Tips = append(p.Activity.Tips, "150-300 min/week moderate cardio")
		p.Monitoring.Checks = append(p.Monitoring.Checks, "Home blood pressure log 3-4 days/week")
	}

	if conds[clinical.ConditionHyperlipidemia] || hasCholesterol {
		p.Diet.Focus = append(p.Diet.Focus, "High-fiber foods (oats, beans), nuts, olive oil, fish 2x/week")
		p.Diet.Avoid = append(p.Diet.Avoid, "Trans fats, deep-fried foods, excess red meat")
		p.Monitoring.Checks = append(p.Monitoring.Checks, "Fasting lipid profile every 3-6 months")
	}

	if conds[clinical.ConditionAsthma] {
		p.Activity.Cautions = append(p.Activity.Cautions, "Avoid triggers; warm up; carry rescue inhaler if prescribed")
		p.Reminders.General = append(p.Reminders.General, "Check inhaler technique and spacer use")
	}

	if drugclass.AnyMatches(drugclass.PPI, names) {
		p.Diet.Focus = append(p.Diet.Focus, "Small, frequent meals; last meal 3 hours before bed")
		p.Diet.Avoid = append(p.Diet.Avoid, "Spicy, fatty foods; caffeine; late-night meals")
		p.Sleep.Notes = "Elevate head of bed if night reflux"
	}

	if drugclass.AnyMatches(drugclass.Antibiotic, names) {
		p.Hydration.Tips = append(p.Hydration.Tips, "Extra fluids while on antibiotics")
		p.Reminders.Meds = append(p.Reminders.Meds, "Complete the full antibiotic course; do not skip doses")
	}

	if drugclass.AnyMatches(drugclass.NSAID, names) {
		p.Diet.Tips = append(p.Diet.Tips, "Take NSAIDs after food to reduce gastric irritation")
	}

	if len(p.Diet.Focus) == 0 {
		p.Diet.Focus = append(p.Diet.Focus, "Balanced plate: 1/2 vegetables, 1/4 protein, 1/4 whole grains")
	}
	if len(p.Diet.Tips) == 0 {
		p.Diet.Tips = append(p.Diet.Tips, "Limit added sugar and ultra-processed foods")
	}
	if len(p.Monitoring.Checks) == 0 {
		p.Monitoring.Checks = append(p.Monitoring.Checks, "Annual physical with basic labs")
	}

	return p
}

func basePlan() Plan {
	return Plan{
		Sleep: Sleep{
			TargetHours: "7-9 hours/night",
			Schedule:    "Consistent bedtime and wake time (±30 minutes)",
		},
		Diet: Diet{
			Focus: []string{},
			Avoid: []string{},
			Tips:  []string{},
		},
		Hydration: Hydration{
			TargetLiters: "2-3 L/day",
			Tips:         []string{"Increase during fever or hot weather"},
		},
		Activity: Activity{
			TargetMinutesPerWeek: 150,
			Types:                []string{"Brisk walk", "Cycling", "Swimming", "Light strength training"},
			Cautions:             []string{},
		},
		Monitoring: Monitoring{Checks: []string{}},
		Reminders: Reminders{
			Meds:    []string{},
			General: []string{"Keep an updated list of medications and allergies"},
		},
		RedFlags: []string{},
	}
}

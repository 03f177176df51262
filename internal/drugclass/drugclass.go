// Package drugclass holds the medication-class hint tables shared by the
// prescription parser and the lifestyle plan builder.
package drugclass

import "strings"

type Class string

const (
	PPI           Class = "ppi"
	NSAID         Class = "nsaid"
	Antihistamine Class = "antihistamine"
	Antibiotic    Class = "antibiotic"
)

// Name fragments, matched as lowercase substrings so brand and salt
// spellings ("Pantocid", "Pantoprazole") land in the same class.
var (
	ppiClass           = []string{"omep", "panto", "rabep", "esomep"}
	nsaidClass         = []string{"ibuprofen", "diclofenac", "naproxen", "aceclofenac"}
	antihistamineClass = []string{"cetirizine", "levocet", "fexofenadine", "loratadine"}
	antibioticClass    = []string{"amox", "azith", "doxy", "clav", "cef", "cefi", "cefix", "oflox", "levoflox", "cipro", "metronid"}
)

// Ordered is the order in which class notes are attached to a medication.
var Ordered = []Class{PPI, NSAID, Antihistamine, Antibiotic}

func fragments(c Class) []string {
	switch c {
	case PPI:
		return ppiClass
	case NSAID:
		return nsaidClass
	case Antihistamine:
		return antihistamineClass
	case Antibiotic:
		return antibioticClass
	default:
		return nil
	}
}

// Matches reports whether text contains any name fragment of class c.
func Matches(c Class, text string) bool {
	lower := strings.ToLower(text)
	for _, frag := range fragments(c) {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// AnyMatches reports whether at least one of names belongs to class c.
func AnyMatches(c Class, names []string) bool {
	for _, n := range names {
		if Matches(c, n) {
			return true
		}
	}
	return false
}

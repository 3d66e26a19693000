// Package style generates the utility-class stylesheet served at /styles.css.
package style

import (
	"bytes"
	"io"
	"strconv"
	"strings"
)

// Step is the length, in rem, of one unit in the numeric utility families.
const Step = 0.5

type Declaration struct {
	Property string
	Value    string
}

type Rule struct {
	Selector     string
	Declarations []Declaration
}

// Sheet is an ordered list of rules.
type Sheet []Rule

// Family is a numeric utility family: one rule per integer in 0..Max, named
// "<Prefix>-<i>", setting every property in Properties to Step*i rem.
type Family struct {
	Prefix     string
	Properties []string
	Max        int
}

// Families lists the numeric utility families in the order they are emitted.
var Families = []Family{
	{Prefix: "top", Properties: []string{"top"}, Max: 50},
	{Prefix: "left", Properties: []string{"left"}, Max: 50},
	{Prefix: "right", Properties: []string{"right"}, Max: 50},

	{Prefix: "m", Properties: []string{"margin"}, Max: 8},
	{Prefix: "mr", Properties: []string{"margin-right"}, Max: 8},
	{Prefix: "ml", Properties: []string{"margin-left"}, Max: 8},
	{Prefix: "mt", Properties: []string{"margin-top"}, Max: 8},
	{Prefix: "mb", Properties: []string{"margin-bottom"}, Max: 8},

	{Prefix: "p", Properties: []string{"padding"}, Max: 8},
	{Prefix: "pr", Properties: []string{"padding-right"}, Max: 8},
	{Prefix: "pl", Properties: []string{"padding-left"}, Max: 8},
	{Prefix: "pt", Properties: []string{"padding-top"}, Max: 8},
	{Prefix: "pb", Properties: []string{"padding-bottom"}, Max: 8},

	{Prefix: "w", Properties: []string{"width"}, Max: 50},
	{Prefix: "h", Properties: []string{"height"}, Max: 50},
}

func rule(selector string, decls ...Declaration) Rule {
	return Rule{Selector: selector, Declarations: decls}
}

func decl(prop, value string) Declaration {
	return Declaration{Property: prop, Value: value}
}

// Rules expands f into its rules.
func (f Family) Rules() []Rule {
	rules := make([]Rule, 0, f.Max+1)
	for i := 0; i <= f.Max; i++ {
		v := Rem(Step * float64(i))
		decls := make([]Declaration, len(f.Properties))
		for j, p := range f.Properties {
			decls[j] = decl(p, v)
		}
		rules = append(rules, Rule{
			Selector:     "." + f.Prefix + "-" + strconv.Itoa(i),
			Declarations: decls,
		})
	}
	return rules
}

// Rem formats v as a rem length.
func Rem(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "rem"
}

func transition(timing string) Declaration {
	return decl("transition", "all 500ms "+timing)
}

// Generate builds the stylesheet. The result depends only on Families and
// the fixed rules below.
func Generate() Sheet {
	s := Sheet{
		rule("body", decl("background-color", "#D5D5D5"), decl("margin", "0px")),

		// Colors
		rule(".critical-500", decl("color", "#EA5768")),

		// Background colors
		rule(".bg-success-500", decl("background-color", "#4BB543")),
		rule(".bg-critical-500", decl("background-color", "#FC100D")),

		// Visibility
		rule(".hidden", decl("opacity", "0")),

		// Layout
		rule(".flex", decl("display", "flex")),
		rule(".flex-column", decl("display", "flex"), decl("flex-direction", "column")),
		rule(".justify-center", decl("justify-content", "center")),
		rule(".justify-space-between", decl("justify-content", "space-between")),
		rule(".justify-space-evenly", decl("justify-content", "space-evenly")),
		rule(".position-absolute", decl("position", "absolute")),
		rule(".position-relative", decl("position", "relative")),
	}

	for _, f := range Families {
		s = append(s, f.Rules()...)
	}

	return append(s,
		rule(".ease-in", transition("ease-in")),
		rule(".ease-out", transition("ease-out")),
	)
}

// Selectors returns the selectors of s in order.
func (s Sheet) Selectors() []string {
	sel := make([]string, len(s))
	for i, r := range s {
		sel[i] = r.Selector
	}
	return sel
}

func (r Rule) String() string {
	var sb strings.Builder
	r.write(&sb)
	return sb.String()
}

func (r Rule) write(sb *strings.Builder) {
	sb.WriteString(r.Selector)
	sb.WriteString(" {\n")
	for _, d := range r.Declarations {
		sb.WriteString("    ")
		sb.WriteString(d.Property)
		sb.WriteString(": ")
		sb.WriteString(d.Value)
		sb.WriteString(";\n")
	}
	sb.WriteString("}\n")
}

func (s Sheet) String() string {
	var sb strings.Builder
	for _, r := range s {
		r.write(&sb)
	}
	return sb.String()
}

// WriteTo implements io.WriterTo.
func (s Sheet) WriteTo(w io.Writer) (int64, error) {
	return bytes.NewBufferString(s.String()).WriteTo(w)
}

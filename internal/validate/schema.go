// Package validate implements C7: schema-driven row validation. Standard
// JSON-Schema constraints compile through
// github.com/santhosh-tekuri/jsonschema/v5; the three vocabulary
// extensions spec.md §4.7 requires (`currency` format, `dynamicEnum`,
// `uniqueCombinedWith`) are detected by a text pre-scan of the schema
// document (per spec.md §4.7's own stated approach: "pre-scan its text
// for the substrings...") and applied as supplementary per-record checks
// alongside the compiled schema's Validate call, since `dynamicEnum`/
// `uniqueCombinedWith` have no equivalent in any JSON-Schema draft
// vocabulary and the example pack's own jsonschema usage (struct tags,
// not a jsonschema/v5 compiler extension) gives no compiled-extension
// pattern to ground a deeper integration on.
package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CompiledSchema bundles the jsonschema.Schema with the custom-keyword
// specs extracted from the same document, per property.
type CompiledSchema struct {
	Schema         *jsonschema.Schema
	DynamicEnums   map[string]DynamicEnumSpec // property name -> spec
	UniqueGroups   [][]string                 // each inner slice is one uniqueCombinedWith group of property names
	HasCurrency    bool
}

// Compile parses and compiles a JSON-Schema document, registering the
// `currency` format checker, and pre-scans for `dynamicEnum` /
// `uniqueCombinedWith` keyword occurrences. Compilation failure is
// fatal, per spec.md §4.7.
func Compile(schemaURL string, doc []byte) (*CompiledSchema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	if bytes.Contains(doc, []byte(`"currency"`)) {
		compiler.Formats["currency"] = isCurrencyAmount
	}

	if err := compiler.AddResource(schemaURL, bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("validate: adding schema resource: %w", err)
	}
	sch, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("validate: compiling schema: %w", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("validate: parsing schema for custom keywords: %w", err)
	}

	cs := &CompiledSchema{
		Schema:       sch,
		DynamicEnums: map[string]DynamicEnumSpec{},
		HasCurrency:  bytes.Contains(doc, []byte(`"currency"`)),
	}

	props, _ := raw["properties"].(map[string]interface{})
	for propName, rawProp := range props {
		prop, ok := rawProp.(map[string]interface{})
		if !ok {
			continue
		}
		if ref, ok := prop["dynamicEnum"].(string); ok {
			spec, err := ParseDynamicEnumRef(ref)
			if err != nil {
				return nil, fmt.Errorf("validate: dynamicEnum on %q: %w", propName, err)
			}
			cs.DynamicEnums[propName] = spec
		}
	}

	if groupRaw, ok := raw["uniqueCombinedWith"].([]interface{}); ok {
		group := toStringSlice(groupRaw)
		if len(group) > 0 {
			cs.UniqueGroups = append(cs.UniqueGroups, group)
		}
	}
	if props != nil {
		for _, rawProp := range props {
			prop, ok := rawProp.(map[string]interface{})
			if !ok {
				continue
			}
			if groupRaw, ok := prop["uniqueCombinedWith"].([]interface{}); ok {
				group := toStringSlice(groupRaw)
				if len(group) > 0 {
					cs.UniqueGroups = append(cs.UniqueGroups, group)
				}
			}
		}
	}

	return cs, nil
}

func toStringSlice(in []interface{}) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// currencyAmountRE matches an optional three-letter ISO-4217-style code
// followed by a decimal amount (spec.md §4.7's "currency format").
// Currency signs such as "$" are not accepted.
var currencyAmountRE = regexp.MustCompile(`^[A-Z]{3}\s?-?\d+(\.\d{1,4})?$|^-?\d+(\.\d{1,4})?$`)

var iso4217 = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "CHF": true,
	"CAD": true, "AUD": true, "CNY": true, "INR": true, "BRL": true,
	"MXN": true, "ZAR": true, "SEK": true, "NOK": true, "NZD": true,
}

func isCurrencyAmount(v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return true // format checks only apply to strings per JSON Schema semantics
	}
	s = strings.TrimSpace(s)
	if !currencyAmountRE.MatchString(s) {
		return false
	}
	if len(s) >= 3 {
		code := strings.ToUpper(s[:3])
		if currencyAmountRE.MatchString(s) && code == s[:3] && !iso4217[code] {
			// looked like CODE-prefixed but code isn't a known ISO-4217 symbol
			if isAllUpperLetters(s[:3]) {
				return false
			}
		}
	}
	return true
}

func isAllUpperLetters(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

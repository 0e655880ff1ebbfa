package validate

import "testing"

func TestParseDynamicEnumRefFull(t *testing.T) {
	spec, err := ParseDynamicEnumRef("countries;7200|./ref/countries.csv|code")
	if err != nil {
		t.Fatal(err)
	}
	if spec.Name != "countries" || spec.TTL.Seconds() != 7200 || spec.URI != "./ref/countries.csv" || spec.Column != "code" {
		t.Fatalf("unexpected spec: %+v", spec)
	}
}

func TestParseDynamicEnumRefURIOnly(t *testing.T) {
	spec, err := ParseDynamicEnumRef("./ref/countries.csv")
	if err != nil {
		t.Fatal(err)
	}
	if spec.Name != spec.URI || spec.TTL != DefaultDynamicEnumTTL {
		t.Fatalf("unexpected spec: %+v", spec)
	}
}

func TestCompileSimpleSchema(t *testing.T) {
	doc := []byte(`{
		"type": "object",
		"properties": {
			"id": {"type": "string"},
			"amount": {"type": "number"}
		},
		"required": ["id"]
	}`)
	cs, err := Compile("mem://schema.json", doc)
	if err != nil {
		t.Fatal(err)
	}
	if cs.Schema == nil {
		t.Fatal("expected compiled schema")
	}

	if err := cs.Schema.Validate(map[string]interface{}{"id": "a1", "amount": 3.5}); err != nil {
		t.Fatalf("expected valid doc to pass: %v", err)
	}
	if err := cs.Schema.Validate(map[string]interface{}{"amount": 3.5}); err == nil {
		t.Fatal("expected missing required field to fail")
	}
}

func TestCompileExtractsDynamicEnumAndUniqueCombined(t *testing.T) {
	doc := []byte(`{
		"type": "object",
		"properties": {
			"country": {"type": "string", "dynamicEnum": "./ref/countries.csv|code"},
			"email": {"type": "string"}
		},
		"uniqueCombinedWith": ["country", "email"]
	}`)
	cs, err := Compile("mem://schema2.json", doc)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cs.DynamicEnums["country"]; !ok {
		t.Fatal("expected dynamicEnum spec for country")
	}
	if len(cs.UniqueGroups) != 1 || len(cs.UniqueGroups[0]) != 2 {
		t.Fatalf("expected one uniqueCombinedWith group of 2, got %+v", cs.UniqueGroups)
	}
}

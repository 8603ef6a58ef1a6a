package schema

import (
	"encoding/json"
	"testing"
)

func TestParseFieldType(t *testing.T) {
	cases := []struct {
		input   string
		want    FieldType
		wantErr bool
	}{
		{"string", FieldTypeString, false},
		{"integer", FieldTypeInteger, false},
		{"decimal", FieldTypeDecimal, false},
		{"datetime", FieldTypeDateTime, false},
		{"json", FieldTypeJson, false},
		{"geometry", FieldTypeGeometry, false},
		{"map", FieldTypeMap, false},
		{"varchar", 0, true},
		{"", 0, true},
	}

	for _, c := range cases {
		got, err := ParseFieldType(c.input)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseFieldType(%q): expected error", c.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFieldType(%q): unexpected error: %v", c.input, err)
		}
		if got != c.want {
			t.Errorf("ParseFieldType(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestFieldTypeRoundTrip(t *testing.T) {
	for ft := FieldTypeString; ft <= FieldTypeMap; ft++ {
		parsed, err := ParseFieldType(ft.String())
		if err != nil {
			t.Fatalf("ParseFieldType(%q): %v", ft.String(), err)
		}
		if parsed != ft {
			t.Errorf("round trip %v -> %q -> %v", ft, ft.String(), parsed)
		}
	}
}

func TestEvolutionStrategyOrdering(t *testing.T) {
	if !(NoEvolution < Additive && Additive < NonBreaking && NonBreaking < FullEvolution) {
		t.Error("strategy lattice ordering violated")
	}
}

func TestSchemaJSONRoundTrip(t *testing.T) {
	def := "0"
	s := &Schema{
		ID:       "sch-1",
		SourceID: "src-1",
		Name:     "customers",
		Strategy: NonBreaking,
		Fields: []Field{
			{Name: "id", Type: FieldTypeInteger, Required: true},
			{Name: "email", Type: FieldTypeString, Behavior: BehaviorImmutable},
			{Name: "balance", Type: FieldTypeDecimal, DefaultValue: &def},
			{
				Name:     "status",
				Type:     FieldTypeEnum,
				Behavior: BehaviorCustom,
				MigrationRules: []MigrationRule{
					{Name: "legacy-status", Kind: RuleMap, Mappings: []ValueMapping{
						{From: "1", To: "active"},
						{From: "0", To: "inactive"},
					}},
				},
			},
		},
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Schema
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Strategy != NonBreaking {
		t.Errorf("strategy = %v, want %v", decoded.Strategy, NonBreaking)
	}
	if len(decoded.Fields) != 4 {
		t.Fatalf("fields = %d, want 4", len(decoded.Fields))
	}
	if decoded.Fields[1].Behavior != BehaviorImmutable {
		t.Errorf("behavior = %v, want immutable", decoded.Fields[1].Behavior)
	}
	if !decoded.Fields[2].HasDefault() || *decoded.Fields[2].DefaultValue != "0" {
		t.Error("default value lost in round trip")
	}
	if decoded.Fields[3].MigrationRules[0].Kind != RuleMap {
		t.Errorf("rule kind = %v, want map", decoded.Fields[3].MigrationRules[0].Kind)
	}
}

func TestFieldByName(t *testing.T) {
	s := &Schema{Fields: []Field{
		{Name: "a", Type: FieldTypeString},
		{Name: "b", Type: FieldTypeInteger},
	}}

	if f := s.FieldByName("b"); f == nil || f.Type != FieldTypeInteger {
		t.Error("expected to find field b")
	}
	if f := s.FieldByName("missing"); f != nil {
		t.Error("expected nil for missing field")
	}
}

func TestParseDialect(t *testing.T) {
	for d := DialectPostgreSQL; d <= DialectSQLite; d++ {
		parsed, err := ParseDialect(d.String())
		if err != nil {
			t.Fatalf("ParseDialect(%q): %v", d.String(), err)
		}
		if parsed != d {
			t.Errorf("round trip %v -> %q -> %v", d, d.String(), parsed)
		}
	}
	if _, err := ParseDialect("db2"); err == nil {
		t.Error("expected error for unknown dialect")
	}
}

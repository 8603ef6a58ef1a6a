package schema

import (
	"fmt"
	"time"
)

// FieldType is the semantic type of a field, independent of any dialect's
// native column types.
type FieldType int

const (
	FieldTypeString FieldType = iota
	FieldTypeInteger
	FieldTypeDecimal
	FieldTypeBoolean
	FieldTypeDateTime
	FieldTypeJson
	FieldTypeComplex
	FieldTypeBinary
	FieldTypeEnum
	FieldTypeReference
	FieldTypeGeometry
	FieldTypeArray
	FieldTypeMap
)

var fieldTypeNames = []string{
	"string", "integer", "decimal", "boolean", "datetime", "json",
	"complex", "binary", "enum", "reference", "geometry", "array", "map",
}

func (t FieldType) String() string {
	if t < 0 || int(t) >= len(fieldTypeNames) {
		return "unknown"
	}
	return fieldTypeNames[t]
}

// ParseFieldType converts a string to a FieldType.
func ParseFieldType(s string) (FieldType, error) {
	for i, name := range fieldTypeNames {
		if name == s {
			return FieldType(i), nil
		}
	}
	return FieldTypeString, fmt.Errorf("unknown field type: %s", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *FieldType) UnmarshalText(b []byte) error {
	parsed, err := ParseFieldType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// EvolutionStrategy declares a schema's tolerance for future changes.
// Ordered from most restrictive to least restrictive.
type EvolutionStrategy int

const (
	NoEvolution EvolutionStrategy = iota
	Additive
	NonBreaking
	FullEvolution
)

var strategyNames = []string{"none", "additive", "non_breaking", "full"}

func (s EvolutionStrategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return "unknown"
	}
	return strategyNames[s]
}

// ParseEvolutionStrategy converts a string to an EvolutionStrategy.
func ParseEvolutionStrategy(s string) (EvolutionStrategy, error) {
	for i, name := range strategyNames {
		if name == s {
			return EvolutionStrategy(i), nil
		}
	}
	return NoEvolution, fmt.Errorf("unknown evolution strategy: %s", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s EvolutionStrategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *EvolutionStrategy) UnmarshalText(b []byte) error {
	parsed, err := ParseEvolutionStrategy(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// EvolutionBehavior is a per-field override of the schema-level strategy.
type EvolutionBehavior int

const (
	BehaviorDefault EvolutionBehavior = iota
	BehaviorImmutable
	BehaviorDeprecated
	BehaviorCustom
)

var behaviorNames = []string{"default", "immutable", "deprecated", "custom"}

func (b EvolutionBehavior) String() string {
	if b < 0 || int(b) >= len(behaviorNames) {
		return "unknown"
	}
	return behaviorNames[b]
}

// ParseEvolutionBehavior converts a string to an EvolutionBehavior.
func ParseEvolutionBehavior(s string) (EvolutionBehavior, error) {
	for i, name := range behaviorNames {
		if name == s {
			return EvolutionBehavior(i), nil
		}
	}
	return BehaviorDefault, fmt.Errorf("unknown evolution behavior: %s", s)
}

// MarshalText implements encoding.TextMarshaler.
func (b EvolutionBehavior) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *EvolutionBehavior) UnmarshalText(data []byte) error {
	parsed, err := ParseEvolutionBehavior(string(data))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// RuleKind identifies the kind of a custom migration rule.
type RuleKind int

const (
	RuleReplace RuleKind = iota
	RuleTransform
	RuleMap
)

var ruleKindNames = []string{"replace", "transform", "map"}

func (k RuleKind) String() string {
	if k < 0 || int(k) >= len(ruleKindNames) {
		return "unknown"
	}
	return ruleKindNames[k]
}

// ParseRuleKind converts a string to a RuleKind.
func ParseRuleKind(s string) (RuleKind, error) {
	for i, name := range ruleKindNames {
		if name == s {
			return RuleKind(i), nil
		}
	}
	return RuleReplace, fmt.Errorf("unknown rule kind: %s", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k RuleKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *RuleKind) UnmarshalText(b []byte) error {
	parsed, err := ParseRuleKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ValueMapping is one old→new branch of a RuleMap rule.
type ValueMapping struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MigrationRule is a named data-migration instruction attached to a field
// whose behavior is BehaviorCustom. Rules apply in declaration order.
type MigrationRule struct {
	Name string   `json:"name"`
	Kind RuleKind `json:"kind"`

	// RuleReplace: substitute To for From.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// RuleTransform: dialect SQL inlined verbatim into the migration.
	Script string `json:"script,omitempty"`

	// RuleMap: ordered old→new value branches. Unmatched values pass through.
	Mappings []ValueMapping `json:"mappings,omitempty"`
}

// Field is one column-level entry of a Schema. Names are unique within a
// schema. A Field is matched across versions by name, or by the Supersedes
// link when it was renamed.
type Field struct {
	Name     string            `json:"name"`
	Type     FieldType         `json:"type"`
	Required bool              `json:"required"`
	Behavior EvolutionBehavior `json:"behavior,omitempty"`

	// DefaultValue is the literal default, nil when the field has none.
	DefaultValue *string `json:"default_value,omitempty"`

	// Supersedes names the field this one replaced, for rename tracking.
	Supersedes string `json:"supersedes,omitempty"`

	// Validation holds named rule expressions enforced on values.
	Validation []string `json:"validation,omitempty"`

	// MigrationRules are only consulted when Behavior is BehaviorCustom.
	MigrationRules []MigrationRule `json:"migration_rules,omitempty"`
}

// HasDefault reports whether the field declares a usable default value.
func (f *Field) HasDefault() bool {
	return f.DefaultValue != nil
}

// VersionInfo records the provenance of one schema version.
type VersionInfo struct {
	Number        int       `json:"number"`
	EffectiveDate time.Time `json:"effective_date"`
	Author        string    `json:"author,omitempty"`
	Description   string    `json:"description,omitempty"`
}

// Schema is one immutable snapshot of a logical data schema.
type Schema struct {
	ID       string            `json:"id"`
	SourceID string            `json:"source_id"`
	Name     string            `json:"name"`
	Fields   []Field           `json:"fields"`
	Strategy EvolutionStrategy `json:"strategy"`
	Version  VersionInfo       `json:"version"`
}

// FieldByName returns the field with the given name, or nil.
func (s *Schema) FieldByName(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// Dialect identifies a relational engine's SQL syntax and capability set.
type Dialect int

const (
	DialectPostgreSQL Dialect = iota
	DialectSQLServer
	DialectMySQL
	DialectOracle
	DialectSQLite
)

var dialectNames = []string{"postgresql", "sqlserver", "mysql", "oracle", "sqlite"}

func (d Dialect) String() string {
	if d < 0 || int(d) >= len(dialectNames) {
		return "unknown"
	}
	return dialectNames[d]
}

// ParseDialect converts a string to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	for i, name := range dialectNames {
		if name == s {
			return Dialect(i), nil
		}
	}
	return DialectPostgreSQL, fmt.Errorf("unknown dialect: %s", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Dialect) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Dialect) UnmarshalText(b []byte) error {
	parsed, err := ParseDialect(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

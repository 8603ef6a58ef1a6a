package migration

import (
	"strings"
	"testing"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

func generate(t *testing.T, d schema.Dialect, oldSchema, newSchema *schema.Schema) *Plan {
	t.Helper()
	plan, err := mustGenerator(t, newTestFactory(), d).GeneratePlan(oldSchema, newSchema)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	return plan
}

func TestSQLServer_AddRequiredWithDefault(t *testing.T) {
	oldSchema := &schema.Schema{
		Name:   "users",
		Fields: []schema.Field{{Name: "id", Type: schema.FieldTypeInteger, Required: true}},
	}
	newSchema := &schema.Schema{
		Name: "users",
		Fields: []schema.Field{
			{Name: "id", Type: schema.FieldTypeInteger, Required: true},
			{Name: "tier", Type: schema.FieldTypeString, Required: true, DefaultValue: strPtr("basic")},
		},
	}

	plan := generate(t, schema.DialectSQLServer, oldSchema, newSchema)
	if len(plan.Steps) != 1 {
		t.Fatalf("expected 1 step, got %+v", plan.Steps)
	}

	script := plan.Steps[0].Script
	for _, want := range []string{
		"ALTER TABLE [users] ADD [tier] NVARCHAR(MAX) NULL;",
		"ADD CONSTRAINT [DF_users_tier] DEFAULT N'basic' FOR [tier];",
		"UPDATE [users] SET [tier] = N'basic' WHERE [tier] IS NULL;",
		"ALTER TABLE [users] ALTER COLUMN [tier] NVARCHAR(MAX) NOT NULL;",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("missing %q:\n%s", want, script)
		}
	}

	// Dropping the column on rollback must first drop the default
	// constraint, whose name is only known at run time.
	rollback := plan.Steps[0].RollbackScript
	for _, want := range []string{
		"DECLARE @df_tier sysname;",
		"sys.default_constraints",
		"IF @df_tier IS NOT NULL EXEC",
		"ALTER TABLE [users] DROP COLUMN [tier];",
	} {
		if !strings.Contains(rollback, want) {
			t.Errorf("rollback missing %q:\n%s", want, rollback)
		}
	}
}

func TestPostgres_TypeChangeGuardsCast(t *testing.T) {
	oldSchema := &schema.Schema{
		Name:   "people",
		Fields: []schema.Field{{Name: "age", Type: schema.FieldTypeString}},
	}
	newSchema := &schema.Schema{
		Name:   "people",
		Fields: []schema.Field{{Name: "age", Type: schema.FieldTypeInteger}},
	}

	plan := generate(t, schema.DialectPostgreSQL, oldSchema, newSchema)
	if len(plan.Steps) != 1 {
		t.Fatalf("expected 1 step, got %+v", plan.Steps)
	}

	// The ALTER itself must only cast values that survive the validity
	// check; anything else lands as NULL instead of aborting the
	// transaction.
	want := `ALTER TABLE "people" ALTER COLUMN "age" TYPE BIGINT ` +
		`USING CASE WHEN "age"::text ~ '^-?[0-9]+$' THEN "age"::BIGINT ELSE NULL END;`
	if got := plan.Steps[0].Script; got != want {
		t.Errorf("type step script wrong:\ngot:  %s\nwant: %s", got, want)
	}

	// Text accepts anything, so the rollback direction casts plainly.
	rollbackWant := `ALTER TABLE "people" ALTER COLUMN "age" TYPE TEXT USING "age"::TEXT;`
	if got := plan.Steps[0].RollbackScript; got != rollbackWant {
		t.Errorf("type step rollback wrong:\ngot:  %s\nwant: %s", got, rollbackWant)
	}

	if len(plan.Transformations) != 1 {
		t.Fatalf("expected 1 transformation, got %+v", plan.Transformations)
	}
	if !strings.Contains(plan.Transformations[0].Script, `THEN "age"::BIGINT ELSE NULL END`) {
		t.Errorf("transformation must cast in its THEN branch:\n%s", plan.Transformations[0].Script)
	}
}

func TestSQLServer_TypeChangeSanitizesBeforeAlter(t *testing.T) {
	oldSchema := &schema.Schema{
		Name:   "people",
		Fields: []schema.Field{{Name: "age", Type: schema.FieldTypeString}},
	}
	newSchema := &schema.Schema{
		Name:   "people",
		Fields: []schema.Field{{Name: "age", Type: schema.FieldTypeInteger}},
	}

	plan := generate(t, schema.DialectSQLServer, oldSchema, newSchema)
	if len(plan.Steps) != 1 {
		t.Fatalf("expected 1 step, got %+v", plan.Steps)
	}

	script := plan.Steps[0].Script
	sanitize := "UPDATE [people] SET [age] = NULL WHERE [age] IS NOT NULL AND TRY_CONVERT(BIGINT, [age]) IS NULL;"
	alter := "ALTER TABLE [people] ALTER COLUMN [age] BIGINT NULL;"
	si, ai := strings.Index(script, sanitize), strings.Index(script, alter)
	if si == -1 || ai == -1 || si > ai {
		t.Errorf("bad values must be NULLed out before the column is altered:\n%s", script)
	}

	// Converting back to NVARCHAR cannot fail, so the rollback carries no
	// sanitizing pass.
	if strings.Contains(plan.Steps[0].RollbackScript, "SET [age] = NULL") {
		t.Errorf("rollback to a string type needs no sanitizing pass:\n%s", plan.Steps[0].RollbackScript)
	}
}

func TestSQLServer_RenameUsesSpRename(t *testing.T) {
	oldSchema := &schema.Schema{
		Name:   "users",
		Fields: []schema.Field{{Name: "name", Type: schema.FieldTypeString}},
	}
	newSchema := &schema.Schema{
		Name:   "users",
		Fields: []schema.Field{{Name: "full_name", Type: schema.FieldTypeString, Supersedes: "name"}},
	}

	plan := generate(t, schema.DialectSQLServer, oldSchema, newSchema)
	if len(plan.Steps) != 1 {
		t.Fatalf("expected 1 step, got %+v", plan.Steps)
	}
	if !strings.Contains(plan.Steps[0].Script, "EXEC sp_rename N'users.name', N'full_name', 'COLUMN';") {
		t.Errorf("rename script wrong:\n%s", plan.Steps[0].Script)
	}
	if !strings.Contains(plan.Steps[0].RollbackScript, "EXEC sp_rename N'users.full_name', N'name', 'COLUMN';") {
		t.Errorf("rename rollback wrong:\n%s", plan.Steps[0].RollbackScript)
	}
}

func TestMySQL_TypeChangeRestatesDefinition(t *testing.T) {
	oldSchema := &schema.Schema{
		Name: "metrics",
		Fields: []schema.Field{
			{Name: "value", Type: schema.FieldTypeString, Required: true, DefaultValue: strPtr("0")},
		},
	}
	newSchema := &schema.Schema{
		Name: "metrics",
		Fields: []schema.Field{
			{Name: "value", Type: schema.FieldTypeInteger, Required: true, DefaultValue: strPtr("0")},
		},
	}

	plan := generate(t, schema.DialectMySQL, oldSchema, newSchema)
	if len(plan.Steps) != 1 {
		t.Fatalf("expected 1 step, got %+v", plan.Steps)
	}
	if !strings.Contains(plan.Steps[0].Script,
		"ALTER TABLE `metrics` MODIFY COLUMN `value` BIGINT NOT NULL DEFAULT '0';") {
		t.Errorf("modify script wrong:\n%s", plan.Steps[0].Script)
	}
	if !strings.Contains(plan.Steps[0].RollbackScript,
		"ALTER TABLE `metrics` MODIFY COLUMN `value` LONGTEXT NOT NULL DEFAULT '0';") {
		t.Errorf("modify rollback wrong:\n%s", plan.Steps[0].RollbackScript)
	}
}

func TestMySQL_TypeChangeNullsUnconvertible(t *testing.T) {
	oldSchema := &schema.Schema{
		Name:   "people",
		Fields: []schema.Field{{Name: "age", Type: schema.FieldTypeString}},
	}
	newSchema := &schema.Schema{
		Name:   "people",
		Fields: []schema.Field{{Name: "age", Type: schema.FieldTypeInteger}},
	}

	plan := generate(t, schema.DialectMySQL, oldSchema, newSchema)
	if len(plan.Steps) != 1 {
		t.Fatalf("expected 1 step, got %+v", plan.Steps)
	}

	script := plan.Steps[0].Script
	sanitize := "UPDATE `people` SET `age` = NULL WHERE `age` IS NOT NULL AND NOT (`age` REGEXP '^-?[0-9]+$');"
	modify := "ALTER TABLE `people` MODIFY COLUMN `age` BIGINT NULL;"
	si, mi := strings.Index(script, sanitize), strings.Index(script, modify)
	if si == -1 || mi == -1 || si > mi {
		t.Errorf("bad values must be NULLed out before MODIFY COLUMN:\n%s", script)
	}
}

func TestMySQL_ValidationConstraints(t *testing.T) {
	oldSchema := &schema.Schema{
		Name:   "products",
		Fields: []schema.Field{{Name: "price", Type: schema.FieldTypeDecimal}},
	}
	newSchema := &schema.Schema{
		Name: "products",
		Fields: []schema.Field{
			{Name: "price", Type: schema.FieldTypeDecimal, Validation: []string{"price >= 0"}},
		},
	}

	plan := generate(t, schema.DialectMySQL, oldSchema, newSchema)
	if len(plan.Steps) != 1 {
		t.Fatalf("expected 1 step, got %+v", plan.Steps)
	}
	if !strings.Contains(plan.Steps[0].Script,
		"ADD CONSTRAINT `chk_products_price` CHECK (price >= 0);") {
		t.Errorf("check script wrong:\n%s", plan.Steps[0].Script)
	}
	// The old field had no rules, so the rollback only drops the check.
	if !strings.Contains(plan.Steps[0].RollbackScript, "DROP CHECK `chk_products_price`;") {
		t.Errorf("check rollback wrong:\n%s", plan.Steps[0].RollbackScript)
	}
}

func TestSQLite_NativeAddAndRename(t *testing.T) {
	oldSchema := &schema.Schema{
		Name: "notes",
		Fields: []schema.Field{
			{Name: "id", Type: schema.FieldTypeInteger, Required: true},
			{Name: "body", Type: schema.FieldTypeString},
		},
	}
	newSchema := &schema.Schema{
		Name: "notes",
		Fields: []schema.Field{
			{Name: "id", Type: schema.FieldTypeInteger, Required: true},
			{Name: "content", Type: schema.FieldTypeString, Supersedes: "body"},
			{Name: "pinned", Type: schema.FieldTypeBoolean, Required: true, DefaultValue: strPtr("0")},
		},
	}

	plan := generate(t, schema.DialectSQLite, oldSchema, newSchema)
	if len(plan.Steps) != 2 {
		t.Fatalf("adds and renames should stay native, got %+v", plan.Steps)
	}
	if !strings.Contains(plan.Steps[0].Script,
		`ALTER TABLE "notes" ADD COLUMN "pinned" INTEGER NOT NULL DEFAULT '0';`) {
		t.Errorf("add script wrong:\n%s", plan.Steps[0].Script)
	}
	if !strings.Contains(plan.Steps[1].Script,
		`ALTER TABLE "notes" RENAME COLUMN "body" TO "content";`) {
		t.Errorf("rename script wrong:\n%s", plan.Steps[1].Script)
	}
}

func TestSQLite_RebuildOnTypeChange(t *testing.T) {
	oldSchema := &schema.Schema{
		Name: "notes",
		Fields: []schema.Field{
			{Name: "id", Type: schema.FieldTypeInteger, Required: true},
			{Name: "stars", Type: schema.FieldTypeString},
			{Name: "draft", Type: schema.FieldTypeBoolean},
		},
	}
	newSchema := &schema.Schema{
		Name: "notes",
		Fields: []schema.Field{
			{Name: "id", Type: schema.FieldTypeInteger, Required: true},
			{Name: "stars", Type: schema.FieldTypeInteger},
		},
	}

	plan := generate(t, schema.DialectSQLite, oldSchema, newSchema)
	if len(plan.Steps) != 1 {
		t.Fatalf("expected a single rebuild step, got %+v", plan.Steps)
	}

	step := plan.Steps[0]
	if !step.Breaking {
		t.Error("rebuild covering a type change and a removal is breaking")
	}
	for _, want := range []string{
		`CREATE TABLE "notes_rebuild" ("id" INTEGER NOT NULL, "stars" INTEGER);`,
		`INSERT INTO "notes_rebuild" ("id", "stars") SELECT "id", CASE WHEN`,
		`THEN CAST("stars" AS INTEGER) ELSE NULL END`,
		`DROP TABLE "notes";`,
		`ALTER TABLE "notes_rebuild" RENAME TO "notes";`,
	} {
		if !strings.Contains(step.Script, want) {
			t.Errorf("rebuild script missing %q:\n%s", want, step.Script)
		}
	}

	// The rollback rebuilds the original shape; the dropped column comes
	// back empty.
	for _, want := range []string{
		`CREATE TABLE "notes_rebuild" ("id" INTEGER NOT NULL, "stars" TEXT, "draft" INTEGER);`,
		`INSERT INTO "notes_rebuild" ("id", "stars") SELECT`,
		`ALTER TABLE "notes_rebuild" RENAME TO "notes";`,
	} {
		if !strings.Contains(step.RollbackScript, want) {
			t.Errorf("rebuild rollback missing %q:\n%s", want, step.RollbackScript)
		}
	}
}

func TestColumnTypeFallback(t *testing.T) {
	if got := columnType(schema.DialectPostgreSQL, schema.FieldType(99)); got != "TEXT" {
		t.Errorf("unknown field type should fall back to the string type, got %q", got)
	}
	if got := columnType(schema.DialectOracle, schema.FieldTypeInteger); got != "TEXT" {
		t.Errorf("unknown dialect should fall back to TEXT, got %q", got)
	}
}

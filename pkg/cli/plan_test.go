package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDiff(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeFile(t, dir, "v1.json", usersV1JSON)
	newPath := writeFile(t, dir, "v2.json", usersV2JSON)

	output, err := captureStdout(t, func() error {
		return runDiff([]string{"-old", oldPath, "-new", newPath})
	})

	require.NoError(t, err)
	assert.Contains(t, output, "remove_field")
	assert.Contains(t, output, "age")
	assert.Contains(t, output, "! marks breaking changes")
}

func TestRunDiff_NoChanges(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeFile(t, dir, "v1.json", usersV1JSON)
	newPath := writeFile(t, dir, "same.json", usersV1JSON)

	output, err := captureStdout(t, func() error {
		return runDiff([]string{"-old", oldPath, "-new", newPath})
	})

	require.NoError(t, err)
	assert.Contains(t, output, "No changes detected")
}

func TestRunDiff_MissingNew(t *testing.T) {
	err := runDiff(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-new schema file is required")
}

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeFile(t, dir, "v1.json", usersV1JSON)
	newPath := writeFile(t, dir, "v2.json", usersV2JSON)

	t.Run("valid transition", func(t *testing.T) {
		output, err := captureStdout(t, func() error {
			return runValidate([]string{"-old", oldPath, "-new", newPath})
		})
		require.NoError(t, err)
		assert.Contains(t, output, "a migration is required")
	})

	t.Run("strategy violation", func(t *testing.T) {
		// A removal is not allowed under the additive strategy.
		strictOld := writeFile(t, dir, "strict1.json",
			`{"id":"v1","source_id":"s","name":"users","strategy":"additive","fields":[{"name":"age","type":"integer"}]}`)
		strictNew := writeFile(t, dir, "strict2.json",
			`{"id":"v2","source_id":"s","name":"users","strategy":"additive","fields":[]}`)

		_, err := captureStdout(t, func() error {
			return runValidate([]string{"-old", strictOld, "-new", strictNew})
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "violates the additive evolution strategy")
	})
}

func TestRunPlan(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeFile(t, dir, "v1.json", usersV1JSON)
	newPath := writeFile(t, dir, "v2.json", usersV2JSON)

	t.Run("prints scripts", func(t *testing.T) {
		output, err := captureStdout(t, func() error {
			return runPlan([]string{"-old", oldPath, "-new", newPath, "-dialect", "postgresql"})
		})
		require.NoError(t, err)
		assert.Contains(t, output, "drop columns: age")
		assert.Contains(t, output, `ALTER TABLE "users" DROP COLUMN "age";`)
	})

	t.Run("writes plan file", func(t *testing.T) {
		outPath := dir + "/plan.json"
		output, err := captureStdout(t, func() error {
			return runPlan([]string{"-old", oldPath, "-new", newPath, "-out", outPath})
		})
		require.NoError(t, err)
		assert.Contains(t, output, "written to")

		plan, err := LoadPlan(outPath)
		require.NoError(t, err)
		assert.NotEmpty(t, plan.Steps)
	})

	t.Run("unknown dialect", func(t *testing.T) {
		err := runPlan([]string{"-new", newPath, "-dialect", "db2"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown dialect")
	})

	t.Run("unsupported dialect", func(t *testing.T) {
		err := runPlan([]string{"-new", newPath, "-dialect", "oracle"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "oracle")
	})
}

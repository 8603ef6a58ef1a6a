package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/schemaflow/schemaflow/pkg/migration"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

func newPlanCommand() *Command {
	cmd := &Command{
		Name:        "plan",
		Description: "Generate a dialect-specific migration plan",
		Flags:       flag.NewFlagSet("plan", flag.ExitOnError),
		Run:         runPlan,
	}

	cmd.Flags.String("old", "", "Previous schema file (omit for a brand-new schema)")
	cmd.Flags.String("new", "", "New schema file")
	cmd.Flags.String("dialect", "postgresql", "Target SQL dialect")
	cmd.Flags.String("out", "", "Write the plan as JSON to this file")
	cmd.Flags.Bool("json", false, "Print the plan as JSON instead of scripts")
	cmd.Flags.Bool("rollback", false, "Print the rollback script instead of the forward scripts")

	return cmd
}

func runPlan(args []string) error {
	flags := flag.NewFlagSet("plan", flag.ExitOnError)
	oldPath := flags.String("old", "", "Previous schema file")
	newPath := flags.String("new", "", "New schema file")
	dialectName := flags.String("dialect", "postgresql", "Target SQL dialect")
	outPath := flags.String("out", "", "Write the plan as JSON to this file")
	asJSON := flags.Bool("json", false, "Print the plan as JSON")
	rollback := flags.Bool("rollback", false, "Print the rollback script")

	if err := flags.Parse(args); err != nil {
		return err
	}

	dialect, err := schema.ParseDialect(*dialectName)
	if err != nil {
		return err
	}

	oldSchema, newSchema, err := loadPair(*oldPath, *newPath)
	if err != nil {
		return err
	}

	svc, err := newService()
	if err != nil {
		return err
	}

	plan, err := svc.GeneratePlan(dialect, oldSchema, newSchema)
	if err != nil {
		return err
	}

	if *outPath != "" {
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal plan: %w", err)
		}
		if err := os.WriteFile(*outPath, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("failed to write plan file: %w", err)
		}
		fmt.Printf("Plan %s written to %s\n", plan.ID, *outPath)
		return nil
	}

	if *asJSON {
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal plan: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	printPlan(plan, *rollback)
	return nil
}

// printPlan writes a human-readable rendering of the plan to stdout.
func printPlan(plan *migration.Plan, rollback bool) {
	fmt.Printf("Plan %s (%s)\n", plan.ID, plan.Dialect)
	fmt.Printf("  downtime required: %t, estimated duration: %s\n\n", plan.RequiresDowntime, plan.EstimatedDuration)

	if rollback {
		fmt.Println("-- rollback")
		fmt.Println(plan.RollbackScript)
		return
	}

	for _, step := range plan.Steps {
		fmt.Printf("-- step %d: %s\n", step.Order, step.Description)
		fmt.Println(step.Script)
	}
	for _, tr := range plan.Transformations {
		fmt.Printf("-- transformation %d: %s\n", tr.Order, tr.Description)
		fmt.Println(tr.Script)
	}
}

package cli

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"

	"github.com/schemaflow/schemaflow/pkg/evolution"
	"github.com/schemaflow/schemaflow/pkg/migration"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

func newApplyCommand() *Command {
	cmd := &Command{
		Name:        "apply",
		Description: "Apply a generated plan through a running schemaflow server",
		Flags:       flag.NewFlagSet("apply", flag.ExitOnError),
		Run:         runApply,
	}

	cmd.Flags.String("plan", "", "Plan file produced by the plan command")
	cmd.Flags.String("schema", "", "Target schema snapshot to record in history")
	cmd.Flags.String("server", "http://localhost:8080", "Server URL")

	return cmd
}

// executeRequest mirrors the server's execute payload.
type executeRequest struct {
	Plan         *migration.Plan `json:"plan"`
	TargetSchema *schema.Schema  `json:"target_schema,omitempty"`
}

func runApply(args []string) error {
	flags := flag.NewFlagSet("apply", flag.ExitOnError)
	planPath := flags.String("plan", "", "Plan file produced by the plan command")
	schemaPath := flags.String("schema", "", "Target schema snapshot to record in history")
	server := flags.String("server", "http://localhost:8080", "Server URL")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if *planPath == "" {
		return fmt.Errorf("-plan file is required")
	}

	plan, err := LoadPlan(*planPath)
	if err != nil {
		return err
	}

	var target *schema.Schema
	if *schemaPath != "" {
		target, err = LoadSchema(*schemaPath)
		if err != nil {
			return err
		}
	}

	body, err := json.Marshal(executeRequest{Plan: plan, TargetSchema: target})
	if err != nil {
		return fmt.Errorf("failed to marshal execute request: %w", err)
	}

	resp, err := http.Post(*server+"/api/v1/execute", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var result evolution.ExecutionResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("failed to decode execution result: %w", err)
		}
		fmt.Printf("Plan %s applied: %d step(s), %d transformation(s), %d record(s) affected\n",
			result.PlanID, result.StepsApplied, result.TransformationsApplied, result.RecordsAffected)
		if result.HistoryPersisted {
			fmt.Printf("Recorded as history version %d\n", result.HistoryVersion)
		} else {
			fmt.Println("Warning: migration committed but history was not recorded")
		}
		return nil

	case http.StatusConflict:
		var result evolution.ExecutionResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("failed to decode execution result: %w", err)
		}
		for _, execErr := range result.Errors {
			fmt.Printf("step %d (%s): %s\n", execErr.StepOrder, execErr.Description, execErr.Message)
		}
		return fmt.Errorf("plan %s rolled back", plan.ID)

	default:
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(msg))
	}
}

package commands

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chronicle-labs/chronicle/pkg/core"
)

// seedEntry is one object in a seed file. Versions, when given, are saved
// as successive states of the same object; otherwise State is version 0.
type seedEntry struct {
	ObjID    string           `yaml:"obj_id"`
	Type     string           `yaml:"type"`
	State    map[string]any   `yaml:"state"`
	Versions []map[string]any `yaml:"versions"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed FILE...",
		Short: "Load records from YAML seed files",
		Long: `Load records from YAML seed files into the store.

Each file holds a list of objects with a type and a state document.
Objects without an obj_id get a generated one; a versions list saves
successive versions of the same object.`,
		Example: `  # Load one seed file
  chronicle seed plants.yaml

  # Seed file format:
  #   - type: garden.plant
  #     state: {colour: red, height: 3}
  #   - type: garden.plant
  #     versions:
  #       - {colour: green, height: 1}
  #       - {colour: green, height: 2}
  chronicle seed plants.yaml ponds.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args)
		},
	}

	return cmd
}

func runSeed(cmd *cobra.Command, files []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	total := 0
	for _, path := range files {
		records, err := readSeedFile(path)
		if err != nil {
			return err
		}
		if err := cmdCtx.Store.SaveRecords(cmd.Context(), records); err != nil {
			return fmt.Errorf("failed to seed from %s: %w", path, err)
		}
		total += len(records)
		cmdCtx.Logger.Debug("seed file loaded", "file", path, "records", len(records))
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d record(s) from %d file(s)\n", total, len(files))
	return nil
}

func readSeedFile(path string) ([]core.Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var entries []seedEntry
	if err := yaml.Unmarshal(content, &entries); err != nil {
		return nil, fmt.Errorf("invalid seed file %s: %w", path, err)
	}

	var records []core.Record
	for i, entry := range entries {
		if entry.Type == "" {
			return nil, fmt.Errorf("seed file %s: entry %d has no type", path, i)
		}
		states := entry.Versions
		if states == nil {
			states = []map[string]any{entry.State}
		}
		objID := entry.ObjID
		if objID == "" && len(states) > 1 {
			// Successive versions need a shared id
			objID = uuid.New().String()
		}
		for version, state := range states {
			records = append(records, core.Record{
				ObjID:   objID,
				Version: version,
				TypeID:  entry.Type,
				State:   state,
			})
		}
	}
	return records, nil
}

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/sarchlab/ftlsim/ftl"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	inspect := &cobra.Command{
		Use:   "inspect",
		Short: "Show the layout of the configured device or a recorded run.",
		Args:  cobra.NoArgs,
		RunE:  inspectDevice,
	}

	inspect.Flags().Bool("json", false, "Print the FTL state as JSON.")
	inspect.Flags().String("save", "",
		"Write the effective configuration to this file.")
	inspect.Flags().String("recording", "",
		"Show the merges and block wear recorded by run --record.")
	inspect.Flags().Int("limit", 20,
		"Rows of merges and blocks to show from a recording.")

	return inspect
}

func inspectDevice(cmd *cobra.Command, _ []string) error {
	if path, _ := cmd.Flags().GetString("recording"); path != "" {
		return inspectRecording(cmd, path)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := cfg.Save(path); err != nil {
			return err
		}
	}

	f := cfg.Builder().Build("SSD").FTL()
	out := cmd.OutOrStdout()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(f.Snapshot())
	}

	g := f.Geometry()
	printPairs(out, [][2]string{
		{"geometry", fmt.Sprintf("%d packages x %d dies x %d planes x "+
			"%d blocks x %d pages", g.Packages, g.DiesPerPackage,
			g.PlanesPerDie, g.BlocksPerPlane, g.PagesPerBlock)},
		{"blocks", fmt.Sprint(g.NumBlocks())},
		{"raw_pages", formatUint(g.RawCapacity())},
		{"addressable_lbas", formatUint(f.Addressable())},
		{"erase_limit", fmt.Sprint(f.EraseLimit())},
		{"policy", f.Policy().Name()},
		{"page_size", fmt.Sprint(cfg.PageSize)},
	})

	counts := map[ftl.BlockState]int{}
	for _, s := range f.BlockStates() {
		counts[s]++
	}

	var rows [][]string
	for s := ftl.BlockSpare; s <= ftl.BlockRetired; s++ {
		rows = append(rows, []string{s.String(), fmt.Sprint(counts[s])})
	}

	fmt.Fprintln(out)
	printTable(out, []string{"State", "Blocks"}, rows)

	return nil
}

func inspectRecording(cmd *cobra.Command, path string) error {
	reader, err := openRecording(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	limit, _ := cmd.Flags().GetInt("limit")

	return printRecording(cmd.Context(), cmd.OutOrStdout(), reader, limit)
}

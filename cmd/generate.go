/*
Copyright © 2020 Mars Galactic <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/spf13/cobra"
	"github.com/xoviat/jfab/lib"
	"go.uber.org/zap"
)

var (
	outputDir  string
	configFile string
	doArchive  bool
	doAssign   bool
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate <file.kicad_pcb>",
	Short: "Generate fabrication and assembly files for a board.",
	Long: `Generate all production outputs for a board: gerbers, drill
file, BOM, CPL, and netlist. With --assign, components that have no
part association yet are resolved interactively before the export.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pcb, err := lib.Normalize(args[0])
		if err != nil {
			fmt.Printf("failed to normalize path: %s\n", args[0])
			return
		}

		cfg, err := lib.LoadConfig(configFile)
		if err != nil {
			fmt.Printf("failed to load config: %s\n", err)
			return
		}

		source, err := lib.ReadKicadPCB(pcb)
		if err != nil {
			fmt.Printf("failed to read board: %s\n", err)
			return
		}

		library, err := lib.NewDefaultLibrary()
		if err != nil {
			fmt.Printf("failed to open or create default library: %s\n", err)
			library = nil
		}
		if library != nil {
			defer library.Close()
		}

		if doAssign && library != nil {
			assignParts(source, library)
		}

		if outputDir == "" {
			outputDir = filepath.Join(filepath.Dir(pcb), "production")
		}

		logger, _ := zap.NewDevelopment()
		defer logger.Sync()

		summary, err := lib.Export(source, lib.ExportOptions{
			OutputDir: outputDir,
			Config:    cfg,
			Library:   library,
			Logger:    logger,
			Archive:   doArchive,
		})
		if err != nil {
			if summary == nil {
				fmt.Printf("export failed: %s\n", err)
				return
			}

			fmt.Printf("export finished with failures:\n")
			for _, result := range summary.Failed() {
				fmt.Printf("	%s: %s\n", result.Name, result.Err)
			}
			return
		}

		for _, result := range summary.Succeeded() {
			fmt.Printf("wrote %s\n", result.Path)
		}
	},
}

/*
	Prompt for a part id for every component the library cannot match.
*/
func assignParts(source lib.BoardSource, library *lib.Library) {
	client := lib.NewJLC()

	for _, component := range source.EnumerateComponents() {
		prefix := lib.DesignatorPrefix(component.Reference)
		value := component.Value
		footprint := lib.NormalizeFootprintName(component.Footprint)

		if library.FindMatching(prefix, value, footprint) != nil {
			continue
		}

		fmt.Printf("Enter part id for %s, %s, %s (empty to skip):\n",
			component.Reference, value, footprint)

		id := prompt.Input("> ", func(d prompt.Document) []prompt.Suggest {
			suggestions := []prompt.Suggest{}
			for _, hit := range library.Find(d.GetWordBeforeCursor()) {
				suggestions = append(suggestions, prompt.Suggest{
					Text:        hit.ID,
					Description: hit.Description,
				})
			}

			return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
		})

		if strings.TrimSpace(id) == "" {
			continue
		}

		/*
			Ids typed in that the local catalog has never seen are
			resolved against the live catalog, so the association
			carries a description from the start.
		*/
		part := library.Get(lib.FromCID(id))
		if part == nil {
			part = client.Exact(id)
			library.Put(part)
		}

		library.Associate(prefix, value, footprint, part.ID)
	}
}

func init() {
	rootCmd.AddCommand(generateCmd)

	// Here you will define your flags and configuration settings.

	// Cobra supports Persistent Flags which will work for this command
	// and all subcommands, e.g.:
	// generateCmd.PersistentFlags().String("foo", "", "A help for foo")

	// Cobra supports local flags which will only run when this command
	// is called directly, e.g.:
	generateCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	generateCmd.Flags().StringVarP(&configFile, "config", "c", "", "config file")
	generateCmd.Flags().BoolVar(&doArchive, "archive", false, "zip the output directory")
	generateCmd.Flags().BoolVar(&doAssign, "assign", false, "interactively assign missing part ids")
}

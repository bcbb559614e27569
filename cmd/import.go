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
	"strings"

	"github.com/spf13/cobra"
	"github.com/xoviat/jfab/lib"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <catalog.xlsx>",
	Short: "Import a vendor parts catalog.",
	Long:  `Import a vendor parts catalog, in the xlsx format, into the local library.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		src, err := lib.Normalize(args[0])
		if err != nil {
			fmt.Printf("failed to normalize path: %s\n", args[0])
			return
		}

		if !lib.Exists(src) {
			fmt.Printf("failed to stat file: %s\n", src)
			return
		}

		if !strings.HasSuffix(strings.ToLower(src), ".xls") &&
			!strings.HasSuffix(strings.ToLower(src), ".xlsx") {

			fmt.Println("catalog file must be an excel spreadsheet")
			return
		}

		library, err := lib.NewDefaultLibrary()
		if err != nil {
			fmt.Printf("failed to open or create default library: %s\n", err)
			return
		}
		defer library.Close()

		if err := library.Import(src); err != nil {
			fmt.Printf("failed to import catalog: %s\n", err)
			return
		}

		if err := library.IndexPending(); err != nil {
			fmt.Printf("failed to index catalog: %s\n", err)
			return
		}
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	// Here you will define your flags and configuration settings.

	// Cobra supports Persistent Flags which will work for this command
	// and all subcommands, e.g.:
	// importCmd.PersistentFlags().String("foo", "", "A help for foo")

	// Cobra supports local flags which will only run when this command
	// is called directly, e.g.:
	// importCmd.Flags().BoolP("toggle", "t", false, "Help message for toggle")
}

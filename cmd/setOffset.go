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
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xoviat/jfab/lib"
)

// setOffsetCmd represents the setOffset command
var setOffsetCmd = &cobra.Command{
	Use:   "set-offset <footprint> <dx,dy>",
	Short: "Set the placement offset correction for a footprint.",
	Long: `Store a placement offset correction for a footprint, in mm. The
correction is added to the placement of every component with that
footprint, unless the component carries an override of its own.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		footprint := args[0]

		parts := strings.Split(args[1], ",")
		if len(parts) != 2 {
			fmt.Println("offset must be of the form dx,dy")
			return
		}

		dx, errx := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		dy, erry := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errx != nil || erry != nil {
			fmt.Println("failed to parse offset")
			return
		}

		library, err := lib.NewDefaultLibrary()
		if err != nil {
			fmt.Printf("failed to open or create default library: %s\n", err)
			return
		}
		defer library.Close()

		if err := library.SetOffset(footprint, dx, dy); err != nil {
			fmt.Printf("failed to store offset: %s\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(setOffsetCmd)

	// Here you will define your flags and configuration settings.

	// Cobra supports Persistent Flags which will work for this command
	// and all subcommands, e.g.:
	// setOffsetCmd.PersistentFlags().String("foo", "", "A help for foo")

	// Cobra supports local flags which will only run when this command
	// is called directly, e.g.:
	// setOffsetCmd.Flags().BoolP("toggle", "t", false, "Help message for toggle")
}

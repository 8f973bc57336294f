// Copyright 2026 EDW Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edw-labs/edw-assistant/internal/log"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask \"<question>\"",
	Short: "Ask one question and print the answer",
	Long:  `Run a single question through the full pipeline (enhance, generate SQL, execute) and print the rows.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full result as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := initProcessLogger(config.Logging); err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	p, err := buildPipeline(ctx, config)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	question := strings.Join(args, " ")
	result, err := p.orchestrator.Run(ctx, question)
	if err != nil {
		return err
	}

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("Trace:    %s\n", result.TraceID)
	fmt.Printf("SQL:      %s\n", result.GeneratedSQL)
	fmt.Printf("Rows:     %d\n\n", result.RowCount)

	if result.RowCount == 0 {
		fmt.Println("(no rows)")
		return nil
	}

	fmt.Println(strings.Join(result.Columns, "\t"))
	for _, row := range result.Rows {
		cells := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			cells[i] = fmt.Sprintf("%v", row[col])
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
	return nil
}
